package errorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/models"
)

// RemoteClient talks to the record service over HTTP.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient creates a client for the service at baseURL. A nil
// httpClient gets a default client with a 30 second timeout.
func NewRemoteClient(baseURL string, httpClient *http.Client) *RemoteClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL is the service address.
func (c *RemoteClient) BaseURL() string {
	return c.baseURL
}

// doRequest executes an HTTP request. Transport failures come back as
// persistence errors.
func (c *RemoteClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewPersistenceError("request failed", err)
	}

	return resp, nil
}

// handleResponse decodes a 2xx body into result, or rebuilds the error kind
// from a failure body.
func (c *RemoteClient) handleResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var failure struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.Unmarshal(bodyBytes, &failure)

		msg := failure.Error
		if msg == "" {
			msg = strings.TrimSpace(string(bodyBytes))
		}
		if msg == "" {
			msg = resp.Status
		}
		return core.FromWire(resp.StatusCode, failure.Code, msg)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return core.NewPersistenceError("failed to decode response", err)
		}
	}

	return nil
}

func recordPath(id string) string {
	return "/errors/" + url.PathEscape(id)
}

// List fetches records; filter and sort are evaluated by the service.
func (c *RemoteClient) List(ctx context.Context, opts core.QueryOptions) ([]models.ErrorRecord, error) {
	query := url.Values{}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Order != "" {
		query.Set("order", opts.Order)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/errors", query, nil)
	if err != nil {
		return nil, err
	}

	records := []models.ErrorRecord{}
	if err := c.handleResponse(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get fetches a single record
func (c *RemoteClient) Get(ctx context.Context, id string) (models.ErrorRecord, error) {
	if id == "" {
		return models.ErrorRecord{}, core.NewNotFoundError("Error not found")
	}
	resp, err := c.doRequest(ctx, http.MethodGet, recordPath(id), nil, nil)
	if err != nil {
		return models.ErrorRecord{}, err
	}

	var rec models.ErrorRecord
	if err := c.handleResponse(resp, &rec); err != nil {
		return models.ErrorRecord{}, err
	}
	return rec, nil
}

// Create stores a new record
func (c *RemoteClient) Create(ctx context.Context, draft models.ErrorRecord) (models.ErrorRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/errors", nil, draft)
	if err != nil {
		return models.ErrorRecord{}, err
	}

	var rec models.ErrorRecord
	if err := c.handleResponse(resp, &rec); err != nil {
		return models.ErrorRecord{}, err
	}
	return rec, nil
}

// Update replaces a record
func (c *RemoteClient) Update(ctx context.Context, id string, draft models.ErrorRecord) (models.ErrorRecord, error) {
	if id == "" {
		return models.ErrorRecord{}, core.NewNotFoundError("Error not found")
	}
	resp, err := c.doRequest(ctx, http.MethodPut, recordPath(id), nil, draft)
	if err != nil {
		return models.ErrorRecord{}, err
	}

	var rec models.ErrorRecord
	if err := c.handleResponse(resp, &rec); err != nil {
		return models.ErrorRecord{}, err
	}
	return rec, nil
}

// Delete removes a record
func (c *RemoteClient) Delete(ctx context.Context, id string) error {
	if id == "" {
		return core.NewNotFoundError("Error not found")
	}
	resp, err := c.doRequest(ctx, http.MethodDelete, recordPath(id), nil, nil)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

// Health is the service's health report.
type Health struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Document string `json:"document"`
	SQLiteUp bool   `json:"sqlite_up"`
	Pending  int    `json:"pending"`
}

// HealthCheck pings the health endpoint
func (c *RemoteClient) HealthCheck(ctx context.Context) (Health, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil, nil)
	if err != nil {
		return Health{}, err
	}

	var h Health
	if err := c.handleResponse(resp, &h); err != nil {
		return Health{}, err
	}
	if h.Status != "ok" {
		return h, errors.New("server unhealthy: " + h.Status)
	}
	return h, nil
}
