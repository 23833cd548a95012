// Package errorapi is the single entry point clients use to reach error
// records, either on the remote service or in local-only storage.
package errorapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/models"
)

// Mode selects the backend an API instance talks to.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// ErrModeUnavailable is returned when the selected mode has no backend.
var ErrModeUnavailable = errors.New("mode unavailable")

// ParseMode accepts remote/local and the older server/demo spellings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remote", "server":
		return ModeRemote, nil
	case "local", "demo":
		return ModeLocal, nil
	}
	return "", fmt.Errorf("unknown mode %q (want remote or local)", s)
}

// Backend is one way of storing records.
type Backend interface {
	List(ctx context.Context, opts core.QueryOptions) ([]models.ErrorRecord, error)
	Get(ctx context.Context, id string) (models.ErrorRecord, error)
	Create(ctx context.Context, draft models.ErrorRecord) (models.ErrorRecord, error)
	Update(ctx context.Context, id string, draft models.ErrorRecord) (models.ErrorRecord, error)
	Delete(ctx context.Context, id string) error
}

// API dispatches record operations to the backend of its current mode.
// Switching modes never moves records between backends.
type API struct {
	mu     sync.RWMutex
	mode   Mode
	remote Backend
	local  Backend
}

// New creates an API starting in mode. Either backend may be nil, in which
// case that mode is unavailable.
func New(mode Mode, remote, local Backend) (*API, error) {
	a := &API{remote: remote, local: local}
	if err := a.SetMode(mode); err != nil {
		return nil, err
	}
	return a, nil
}

// Mode returns the current mode.
func (a *API) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// SetMode switches the backend used by later calls.
func (a *API) SetMode(mode Mode) error {
	if mode != ModeRemote && mode != ModeLocal {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if a.backendFor(mode) == nil {
		return fmt.Errorf("%w: %s", ErrModeUnavailable, mode)
	}
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()
	return nil
}

func (a *API) backendFor(mode Mode) Backend {
	if mode == ModeLocal {
		return a.local
	}
	return a.remote
}

func (a *API) backend() Backend {
	return a.backendFor(a.Mode())
}

// List returns records matching opts.
func (a *API) List(ctx context.Context, opts core.QueryOptions) ([]models.ErrorRecord, error) {
	return a.backend().List(ctx, opts)
}

// Get returns the record id.
func (a *API) Get(ctx context.Context, id string) (models.ErrorRecord, error) {
	return a.backend().Get(ctx, id)
}

// Create stores a new record from draft.
func (a *API) Create(ctx context.Context, draft models.ErrorRecord) (models.ErrorRecord, error) {
	return a.backend().Create(ctx, draft)
}

// Update replaces the record id with draft.
func (a *API) Update(ctx context.Context, id string, draft models.ErrorRecord) (models.ErrorRecord, error) {
	return a.backend().Update(ctx, id, draft)
}

// Delete removes the record id.
func (a *API) Delete(ctx context.Context, id string) error {
	return a.backend().Delete(ctx, id)
}
