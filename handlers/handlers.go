package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kate8382/error-logger-viewer/capture"
	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/database"
	"github.com/kate8382/error-logger-viewer/hub"
	"github.com/kate8382/error-logger-viewer/models"
	"github.com/kate8382/error-logger-viewer/version"
)

// RecordStore is the record service the handlers serve.
type RecordStore interface {
	List(ctx context.Context, opts core.QueryOptions) ([]models.ErrorRecord, error)
	Get(ctx context.Context, id string) (models.ErrorRecord, error)
	Create(ctx context.Context, draft models.ErrorRecord) (models.ErrorRecord, error)
	Update(ctx context.Context, id string, draft models.ErrorRecord) (models.ErrorRecord, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the record API.
type Handler struct {
	records  RecordStore
	feed     *hub.Hub
	metrics  *Metrics
	localDB  *gorm.DB
	document string
	reporter *capture.Reporter
}

// Option customises a Handler.
type Option func(*Handler)

// WithFeed publishes record changes to feed and serves it on /api/errors/ws.
func WithFeed(feed *hub.Hub) Option {
	return func(h *Handler) { h.feed = feed }
}

// WithMetrics counts operations in m and serves it on /metrics.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithHealthSources reports the document path and local database on /api/health.
func WithHealthSources(document string, localDB *gorm.DB) Option {
	return func(h *Handler) {
		h.document = document
		h.localDB = localDB
	}
}

// WithReporter records handler panics through reporter.
func WithReporter(reporter *capture.Reporter) Option {
	return func(h *Handler) { h.reporter = reporter }
}

// New creates a Handler serving records.
func New(records RecordStore, opts ...Option) *Handler {
	h := &Handler{records: records}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListErrors lists records, optionally filtered by type and sorted
func (h *Handler) ListErrors(c *gin.Context) {
	opts := core.QueryOptions{
		Filter: c.Query("filter"),
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
	}

	records, err := h.records.List(c.Request.Context(), opts)
	h.metrics.Observe("list", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetError returns a single record
func (h *Handler) GetError(c *gin.Context) {
	rec, err := h.records.Get(c.Request.Context(), c.Param("id"))
	h.metrics.Observe("get", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateError stores a new record
func (h *Handler) CreateError(c *gin.Context) {
	var draft models.ErrorRecord
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.metrics.Observe("create", core.NewInvalidRequestError(err.Error()))
		respondInvalidBody(c, err)
		return
	}

	rec, err := h.records.Create(c.Request.Context(), draft)
	h.metrics.Observe("create", err)
	if err != nil {
		respondError(c, err)
		return
	}

	h.publish(hub.ActionCreated, rec)
	c.JSON(http.StatusCreated, rec)
}

// UpdateError replaces a record
func (h *Handler) UpdateError(c *gin.Context) {
	var draft models.ErrorRecord
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.metrics.Observe("update", core.NewInvalidRequestError(err.Error()))
		respondInvalidBody(c, err)
		return
	}

	rec, err := h.records.Update(c.Request.Context(), c.Param("id"), draft)
	h.metrics.Observe("update", err)
	if err != nil {
		respondError(c, err)
		return
	}

	h.publish(hub.ActionUpdated, rec)
	c.JSON(http.StatusOK, rec)
}

// DeleteError removes a record
func (h *Handler) DeleteError(c *gin.Context) {
	id := c.Param("id")
	err := h.records.Delete(c.Request.Context(), id)
	h.metrics.Observe("delete", err)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.feed != nil {
		h.feed.Publish(hub.Event{Action: hub.ActionDeleted, ID: id})
	}
	c.Status(http.StatusNoContent)
}

// HealthCheck reports service health
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	pending := 0
	if h.reporter != nil {
		pending = h.reporter.Pending().Len()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   version.GetFullVersion(),
		"timestamp": time.Now().Unix(),
		"document":  h.document,
		"sqlite_up": database.SQLiteUp(ctx, h.localDB),
		"pending":   pending,
	})
}

func (h *Handler) publish(action string, rec models.ErrorRecord) {
	if h.feed == nil {
		return
	}
	h.feed.Publish(hub.Event{Action: action, ID: rec.ID, Record: &rec})
}
