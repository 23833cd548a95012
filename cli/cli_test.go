package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate8382/error-logger-viewer/capture"
	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/database"
	"github.com/kate8382/error-logger-viewer/errorapi"
	"github.com/kate8382/error-logger-viewer/models"
	"github.com/kate8382/error-logger-viewer/service"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	remote := service.NewRecordService(database.NewDocumentStore(filepath.Join(dir, "remote.json")))
	local := service.NewRecordService(database.NewDocumentStore(filepath.Join(dir, "local.json")))

	api, err := errorapi.New(errorapi.ModeRemote, remote, local)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return newCLI(api, capture.NewReporter(api, capture.NewPending(10)), nil, out), out
}

func TestParseListArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    core.QueryOptions
		wantErr bool
	}{
		{"empty", nil, core.QueryOptions{}, false},
		{"separate values", []string{"--filter", "TypeError", "--sort", "status", "--order", "DESC"},
			core.QueryOptions{Filter: "TypeError", Sort: "status", Order: core.OrderDesc}, false},
		{"inline values", []string{"--sort=timestamp", "-o=asc"},
			core.QueryOptions{Sort: "timestamp", Order: core.OrderAsc}, false},
		{"missing value", []string{"--filter"}, core.QueryOptions{}, true},
		{"bad order", []string{"--order", "up"}, core.QueryOptions{}, true},
		{"unknown option", []string{"--page", "2"}, core.QueryOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseListArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddEditAndDelete(t *testing.T) {
	c, out := newTestCLI(t)
	ctx := context.Background()

	c.handleCommand("add TypeError x is not a function")
	assert.Contains(t, out.String(), "✓ Recorded")

	records, err := c.api.List(ctx, core.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	id := records[0].ID
	assert.Equal(t, "x is not a function", records[0].Message)

	out.Reset()
	c.handleCommand("status " + id + " fixed")
	assert.Contains(t, out.String(), "✓ Updated")

	c.handleCommand("comment " + id + " handled upstream")
	rec, err := c.api.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFixed, rec.Status)
	assert.Equal(t, "handled upstream", rec.Comment)
	assert.Equal(t, "x is not a function", rec.Message)
	assert.NotNil(t, rec.UpdatedAt)

	out.Reset()
	c.handleCommand("show " + id)
	assert.Contains(t, out.String(), "handled upstream")

	out.Reset()
	c.handleCommand("delete " + id)
	assert.Contains(t, out.String(), "✓ Deleted")

	out.Reset()
	c.handleCommand("show " + id)
	assert.Contains(t, out.String(), "Error: Error not found")
}

func TestStatusRejectsUnknownValue(t *testing.T) {
	c, out := newTestCLI(t)
	c.handleCommand("status some-id done")
	assert.Contains(t, out.String(), "status must be one of new|in_progress|fixed|ignored")
}

func TestListFiltersAndSorts(t *testing.T) {
	c, out := newTestCLI(t)
	c.handleCommand("add TypeError first")
	c.handleCommand("add FetchError second")

	out.Reset()
	c.handleCommand("list --filter fetcherror")
	assert.Contains(t, out.String(), "Total Errors: 1")
	assert.Contains(t, out.String(), "second")
	assert.NotContains(t, out.String(), "first")

	out.Reset()
	c.handleCommand("list --order sideways")
	assert.Contains(t, out.String(), "Usage: list")
}

func TestModeSwitch(t *testing.T) {
	c, out := newTestCLI(t)
	c.handleCommand("add Error remote-only")

	c.handleCommand("mode demo")
	assert.Equal(t, errorapi.ModeLocal, c.api.Mode())

	out.Reset()
	c.handleCommand("list")
	assert.Contains(t, out.String(), "No errors recorded.")

	out.Reset()
	c.handleCommand("mode cloud")
	assert.Contains(t, out.String(), "unknown mode")
	assert.Equal(t, errorapi.ModeLocal, c.api.Mode())
}

func TestFlushWithNothingPending(t *testing.T) {
	c, out := newTestCLI(t)
	c.handleCommand("flush")
	assert.Contains(t, out.String(), "✓ Sent 0 pending errors")
}

func TestExitAndUnknown(t *testing.T) {
	c, out := newTestCLI(t)
	c.handleCommand("frobnicate")
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.True(t, c.running)

	c.handleCommand("quit")
	assert.False(t, c.running)
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfigFrom(path, "http://localhost:3000")
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.DefaultServer)
	assert.FileExists(t, path)

	url, err := cfg.ResolveURL("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", url)
}

func TestConfigServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`default_server: prod
servers:
  prod:
    url: https://errors.example.com
    description: Production
  staging:
    url: https://staging.example.com
`), 0600))

	cfg, err := LoadConfigFrom(path, "http://localhost:3000")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "staging"}, cfg.ServerNames())

	url, err := cfg.ResolveURL("staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", url)

	url, err = cfg.ResolveURL("http://10.0.0.1:3000")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:3000", url)

	require.NoError(t, cfg.RemoveServer("prod"))
	assert.Equal(t, "staging", cfg.DefaultServer)

	reloaded, err := LoadConfigFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, "staging", reloaded.DefaultServer)
	assert.Len(t, reloaded.Servers, 1)
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBannerWidth(&buf, "Title", 12)
	assert.Equal(t, "╔══════════╗\n║  Title   ║\n╚══════════╝\n", buf.String())
}

func TestAddKeepsRecordWhenServerIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	api, err := errorapi.New(errorapi.ModeRemote, errorapi.NewRemoteClient(url, nil), nil)
	require.NoError(t, err)
	reporter := capture.NewReporter(api, capture.NewPending(10))
	out := &bytes.Buffer{}
	c := newCLI(api, reporter, nil, out)

	c.handleCommand("add TypeError offline")
	assert.Contains(t, out.String(), "Kept for later (1 pending)")

	out.Reset()
	c.handleCommand("add TypeError")
	assert.Contains(t, out.String(), "Usage: add")
	assert.Equal(t, 1, reporter.Pending().Len())

	out.Reset()
	c.handleCommand("flush")
	assert.Contains(t, out.String(), "Sent 0, 1 still pending")
}
