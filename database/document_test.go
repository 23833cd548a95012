package database

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate8382/error-logger-viewer/models"
)

func TestDocumentStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	store := NewDocumentStore(path)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "load must not create the document")
}

func TestDocumentStoreSaveCreatesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	store := NewDocumentStore(path)

	require.NoError(t, store.Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `[]`, string(doc["errors"]))
}

func TestDocumentStoreRoundTripKeepsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "errors": [
    {"id": "a1", "type": "TypeError", "message": "x is undefined", "lineno": 42, "stack": ["f", "g"]}
  ],
  "meta": {"owner": "ops"}
}`), 0o644))

	store := NewDocumentStore(path)
	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a1", records[0].ID)
	assert.JSONEq(t, `42`, string(records[0].Extra["lineno"]))

	require.NoError(t, store.Save(context.Background(), records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
  "errors": [
    {"id": "a1", "type": "TypeError", "message": "x is undefined", "lineno": 42, "stack": ["f", "g"]}
  ],
  "meta": {"owner": "ops"}
}`, string(raw))
}

func TestDocumentStoreLoadsRecordsWithOddFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"errors": [
  {"id": 7, "message": "a", "createdAt": "yesterday", "updatedAt": 12, "timestamp": 1700000000000},
  {"id": "b", "message": "b", "createdAt": "2024-01-01T00:00:00Z"}
]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store := NewDocumentStore(path)
	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "7", records[0].ID)
	assert.Nil(t, records[0].CreatedAt)
	require.NotNil(t, records[1].CreatedAt)

	require.NoError(t, store.Save(context.Background(), records))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors": [
  {"id": "7", "message": "a", "createdAt": "yesterday", "updatedAt": 12, "timestamp": 1700000000000},
  {"id": "b", "message": "b", "createdAt": "2024-01-01T00:00:00Z"}
]}`, string(raw))
}

func TestDocumentStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"errors": [`), 0o644))

	_, err := NewDocumentStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestDocumentStoreEmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	records, err := NewDocumentStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDocumentStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewDocumentStore(filepath.Join(dir, "db.json"))
	require.NoError(t, store.Save(context.Background(), []models.ErrorRecord{{ID: "1", Message: "m"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "db.json", entries[0].Name())
}

func TestDocumentStoreChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	store := NewDocumentStore(path)
	require.NoError(t, store.Save(context.Background(), []models.ErrorRecord{{ID: "1", Message: "m"}}))

	changed, err := store.Changed()
	require.NoError(t, err)
	assert.False(t, changed, "own write is not an external change")

	require.NoError(t, os.WriteFile(path, []byte(`{"errors": []}`), 0o644))
	changed, err = store.Changed()
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.Changed()
	require.NoError(t, err)
	assert.False(t, changed, "the same content is reported once")
}

func TestDocumentStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewDocumentStore(filepath.Join(t.TempDir(), "db.json"))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Save(ctx, nil), context.Canceled)
}
