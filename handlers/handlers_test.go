package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate8382/error-logger-viewer/capture"
	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/database"
	"github.com/kate8382/error-logger-viewer/hub"
	"github.com/kate8382/error-logger-viewer/models"
	"github.com/kate8382/error-logger-viewer/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	feed   *hub.Hub
	store  *database.DocumentStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := database.NewDocumentStore(filepath.Join(t.TempDir(), "db.json"))
	feed := hub.New(16)
	t.Cleanup(feed.Close)

	h := New(service.NewRecordService(store),
		WithFeed(feed),
		WithMetrics(NewMetrics(feed)),
		WithHealthSources(store.Path(), nil),
	)
	return &testServer{router: NewRouter(h, nil), feed: feed, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestCreateAndGet(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/errors", `{"type":"TypeError","message":"x is undefined","lineno":42}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created map[string]any
	decodeBody(t, w, &created)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.NotEmpty(t, created["createdAt"])
	assert.NotContains(t, created, "updatedAt")
	assert.Equal(t, "new", created["status"])
	assert.EqualValues(t, 42, created["lineno"])

	w = s.do(t, http.MethodGet, "/errors/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	decodeBody(t, w, &got)
	assert.Equal(t, created, got)
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/errors", `{"type":"TypeError"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "Invalid error data", body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)

	w = s.do(t, http.MethodPost, "/errors", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &body)
	assert.Equal(t, "INVALID_REQUEST", body.Code)

	w = s.do(t, http.MethodGet, "/errors", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListWithQuery(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{
		`{"type":"TypeError","message":"b","timestamp":"2024-02-01T00:00:00Z"}`,
		`{"type":"FetchError","message":"x","timestamp":"2024-03-01T00:00:00Z"}`,
		`{"type":"TypeError","message":"a","timestamp":"2024-01-01T00:00:00Z"}`,
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/errors", body).Code)
	}

	w := s.do(t, http.MethodGet, "/errors?filter=typeerror&sort=timestamp&order=desc", "")
	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]any
	decodeBody(t, w, &records)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0]["message"])
	assert.Equal(t, "a", records[1]["message"])
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/errors", `{"type":"TypeError","message":"m"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	decodeBody(t, w, &created)
	id := created["id"].(string)

	w = s.do(t, http.MethodPut, "/errors/"+id, `{"id":"other","type":"TypeError","message":"m","status":"fixed","comment":"patched"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated map[string]any
	decodeBody(t, w, &updated)
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])
	assert.NotEmpty(t, updated["updatedAt"])
	assert.Equal(t, "fixed", updated["status"])

	w = s.do(t, http.MethodPut, "/errors/"+id, `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/errors/missing", `{"message":"m"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/errors/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(t, http.MethodDelete, "/errors/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "Error not found", body.Error)
	assert.Equal(t, "NOT_FOUND", body.Code)

	w = s.do(t, http.MethodGet, "/errors/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftIdentityFieldsAreIgnored(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/errors", `{"message":"boom","id":42,"createdAt":12345,"updatedAt":"soon"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]any
	decodeBody(t, w, &created)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.NotEqual(t, "42", id)
	_, err := time.Parse(time.RFC3339Nano, created["createdAt"].(string))
	assert.NoError(t, err)
	assert.NotContains(t, created, "updatedAt")

	w = s.do(t, http.MethodPut, "/errors/"+id, `{"message":"boom2","createdAt":"yesterday","id":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated map[string]any
	decodeBody(t, w, &updated)
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])
	assert.Equal(t, "boom2", updated["message"])
}

func TestLegacyDocumentRecordsAreServed(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(s.store.Path(), []byte(`{"errors": [
  {"id": 7, "message": "legacy", "createdAt": "last week", "timestamp": 1700000000000},
  {"id": "b", "message": "ok", "status": "ignored"}
]}`), 0o644))

	w := s.do(t, http.MethodGet, "/errors?sort=status", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var records []map[string]any
	decodeBody(t, w, &records)
	require.Len(t, records, 2)
	assert.Equal(t, "7", records[0]["id"])
	assert.Equal(t, "new", records[0]["status"])
	assert.Equal(t, "last week", records[0]["createdAt"])
	assert.EqualValues(t, 1700000000000, records[0]["timestamp"])

	w = s.do(t, http.MethodPut, "/errors/7", `{"message":"legacy","comment":"seen"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated map[string]any
	decodeBody(t, w, &updated)
	assert.Equal(t, "last week", updated["createdAt"])
	assert.Equal(t, "seen", updated["comment"])
}

func TestPersistenceFailureIs500(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"errors": [`), 0o644))

	h := New(service.NewRecordService(database.NewDocumentStore(path)))
	router := NewRouter(h, []string{"http://localhost:8080"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/errors", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "PERSISTENCE_ERROR", body.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/errors", `{"message":"m"}`)
	s.do(t, http.MethodGet, "/errors/nope", "")

	w := s.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	decodeBody(t, w, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["sqlite_up"])
	assert.Equal(t, s.store.Path(), health["document"])

	w = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, `error_logger_operations_total{op="create",outcome="ok"} 1`)
	assert.Contains(t, text, `error_logger_operations_total{op="get",outcome="not_found"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/errors", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestChangeFeedOverWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/errors/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/errors", "application/json", strings.NewReader(`{"type":"E","message":"live"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev struct {
		Action string         `json:"action"`
		ID     string         `json:"id"`
		Record map[string]any `json:"record"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, hub.ActionCreated, ev.Action)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "live", ev.Record["message"])
}

func TestRecordNamedWsIsAddressable(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(s.store.Path(), []byte(`{"errors": [{"id": "ws", "message": "m"}]}`), 0o644))

	w := s.do(t, http.MethodGet, "/errors/ws", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got map[string]any
	decodeBody(t, w, &got)
	assert.Equal(t, "ws", got["id"])

	w = s.do(t, http.MethodDelete, "/errors/ws", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type panickingStore struct {
	*service.RecordService
}

func (panickingStore) List(context.Context, core.QueryOptions) ([]models.ErrorRecord, error) {
	panic("list exploded")
}

func TestHandlerPanicIsRecorded(t *testing.T) {
	store := database.NewDocumentStore(filepath.Join(t.TempDir(), "db.json"))
	records := service.NewRecordService(store)
	reporter := capture.NewReporter(records, capture.NewPending(10))

	h := New(panickingStore{records}, WithReporter(reporter))
	router := NewRouter(h, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/errors", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	all, err := records.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, capture.TypeUnhandledPanic, all[0].Type)
	assert.Equal(t, "list exploded", all[0].Message)
}
