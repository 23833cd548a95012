package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/models"
)

// Collection is the durable whole-collection storage behind a RecordService.
type Collection interface {
	Load(ctx context.Context) ([]models.ErrorRecord, error)
	Save(ctx context.Context, records []models.ErrorRecord) error
}

// RecordService implements the record lifecycle over a Collection. Every call
// loads the collection afresh and every mutation saves it whole.
type RecordService struct {
	coll  Collection
	now   func() time.Time
	newID func() string

	// serialises read-modify-write within this process only
	mu sync.Mutex
}

// Option customises a RecordService.
type Option func(*RecordService)

// WithClock sets the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *RecordService) { s.now = now }
}

// WithIDGenerator sets the id source used on create.
func WithIDGenerator(newID func() string) Option {
	return func(s *RecordService) { s.newID = newID }
}

// NewRecordService constructs a record service over coll
func NewRecordService(coll Collection, opts ...Option) *RecordService {
	s := &RecordService{
		coll:  coll,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAll returns the full collection in insertion order.
func (s *RecordService) ListAll(ctx context.Context) ([]models.ErrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// List returns the collection filtered and sorted by opts.
func (s *RecordService) List(ctx context.Context, opts core.QueryOptions) ([]models.ErrorRecord, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return core.Apply(records, opts), nil
}

// Get fetches a record by id
func (s *RecordService) Get(ctx context.Context, id string) (models.ErrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return models.ErrorRecord{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return models.ErrorRecord{}, core.NewNotFoundError("Error not found")
	}
	return records[i], nil
}

// Create stores a new record built from draft. The store assigns id and
// createdAt; any id or updatedAt in the draft is ignored.
func (s *RecordService) Create(ctx context.Context, draft models.ErrorRecord) (models.ErrorRecord, error) {
	if !draft.HasMessage() {
		return models.ErrorRecord{}, core.NewValidationError("Invalid error data")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return models.ErrorRecord{}, err
	}

	rec := draft.Clone()
	rec.ClearRaw(models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt)
	rec.ID = s.newID()
	if rec.ID == "" {
		return models.ErrorRecord{}, core.NewPersistenceError("assign id", errors.New("empty id generated"))
	}
	if indexOf(records, rec.ID) >= 0 {
		return models.ErrorRecord{}, core.NewConflictError("Error with this ID already exists")
	}
	created := s.now().UTC()
	rec.CreatedAt = &created
	rec.UpdatedAt = nil
	rec.ApplyDefaults()

	records = append(records, rec)
	if err := s.save(ctx, records); err != nil {
		return models.ErrorRecord{}, err
	}
	return rec, nil
}

// Update replaces the record id with draft, keeping the stored id and
// createdAt and stamping updatedAt.
func (s *RecordService) Update(ctx context.Context, id string, draft models.ErrorRecord) (models.ErrorRecord, error) {
	if !draft.HasMessage() {
		return models.ErrorRecord{}, core.NewValidationError("Invalid error data")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return models.ErrorRecord{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return models.ErrorRecord{}, core.NewNotFoundError("Error not found")
	}

	rec := draft.Clone()
	rec.KeepIdentity(records[i])
	updated := s.now().UTC()
	rec.UpdatedAt = &updated
	rec.ApplyDefaults()

	records[i] = rec
	if err := s.save(ctx, records); err != nil {
		return models.ErrorRecord{}, err
	}
	return rec, nil
}

// Delete removes the record id. Deleting an id that is not stored, including
// one deleted earlier, is a NotFound error.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return core.NewNotFoundError("Error not found")
	}

	records = append(records[:i], records[i+1:]...)
	return s.save(ctx, records)
}

func (s *RecordService) load(ctx context.Context) ([]models.ErrorRecord, error) {
	records, err := s.coll.Load(ctx)
	if err != nil {
		return nil, core.NewPersistenceError("load records", err)
	}
	for i := range records {
		records[i].ApplyDefaults()
	}
	return records, nil
}

func (s *RecordService) save(ctx context.Context, records []models.ErrorRecord) error {
	if err := s.coll.Save(ctx, records); err != nil {
		return core.NewPersistenceError("save records", err)
	}
	return nil
}

func indexOf(records []models.ErrorRecord, id string) int {
	if id == "" {
		return -1
	}
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
