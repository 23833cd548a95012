package capture

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Transport wraps an http.RoundTripper and records failed calls as FetchError
// records. Requests for which Skip returns true are passed through untouched;
// use it to exclude calls to the record service itself.
type Transport struct {
	Base     http.RoundTripper
	Reporter *Reporter
	Skip     func(*http.Request) bool
	// Timeout bounds delivery of a single FetchError record.
	Timeout time.Duration
}

// NewTransport wraps base, which may be nil for http.DefaultTransport.
func NewTransport(base http.RoundTripper, reporter *Reporter) *Transport {
	return &Transport{
		Base:     base,
		Reporter: reporter,
		Timeout:  5 * time.Second,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if t.Reporter == nil || (t.Skip != nil && t.Skip(req)) {
		return resp, err
	}

	if err != nil {
		t.record(req, fmt.Sprintf("Fetch failed: %v", err))
		return resp, err
	}
	if resp.StatusCode >= 400 {
		t.record(req, fmt.Sprintf("Fetch failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	return resp, nil
}

func (t *Transport) record(req *http.Request, msg string) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rec := t.Reporter.newRecord(TypeFetchError, msg)
	_ = rec.SetExtra("source", req.URL.String())
	_ = rec.SetExtra("method", req.Method)
	if _, err := t.Reporter.Submit(ctx, rec); err != nil {
		log.Printf("[capture] %v", err)
	}
}
