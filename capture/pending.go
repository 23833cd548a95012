package capture

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kate8382/error-logger-viewer/models"
)

// Collection persists pending records between runs.
// *database.LocalCollection satisfies it.
type Collection interface {
	Load(ctx context.Context) ([]models.ErrorRecord, error)
	Save(ctx context.Context, records []models.ErrorRecord) error
}

// Pending holds records that could not be delivered, oldest first. When full,
// adding a record evicts the oldest one.
type Pending struct {
	mu      sync.Mutex
	items   []models.ErrorRecord
	max     int
	evicted int64
	coll    Collection
}

// NewPending creates an in-memory buffer holding at most max records.
func NewPending(max int) *Pending {
	if max < 1 {
		max = 1
	}
	return &Pending{
		items: make([]models.ErrorRecord, 0, max),
		max:   max,
	}
}

// LoadPending creates a buffer backed by coll, starting with the records
// already stored there. Only the newest max stored records are kept.
func LoadPending(ctx context.Context, max int, coll Collection) (*Pending, error) {
	p := NewPending(max)
	stored, err := coll.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending records: %w", err)
	}
	if len(stored) > p.max {
		p.evicted = int64(len(stored) - p.max)
		stored = stored[len(stored)-p.max:]
	}
	p.items = append(p.items, stored...)
	p.coll = coll
	return p, nil
}

// Add appends rec, evicting the oldest record when the buffer is full.
func (p *Pending) Add(rec models.ErrorRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) >= p.max {
		p.items = p.items[1:]
		p.evicted++
	}
	p.items = append(p.items, rec.Clone())
	p.persist()
}

// Peek returns the oldest record without removing it.
func (p *Pending) Peek() (models.ErrorRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return models.ErrorRecord{}, false
	}
	return p.items[0].Clone(), true
}

// Pop removes the oldest record.
func (p *Pending) Pop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) > 0 {
		p.items = p.items[1:]
		p.persist()
	}
}

// Len returns the number of buffered records.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Evicted returns how many records were dropped to make room.
func (p *Pending) Evicted() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evicted
}

// Snapshot returns a copy of the buffered records, oldest first.
func (p *Pending) Snapshot() []models.ErrorRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ErrorRecord, len(p.items))
	for i := range p.items {
		out[i] = p.items[i].Clone()
	}
	return out
}

// persist writes the buffer through to coll. Caller holds mu.
func (p *Pending) persist() {
	if p.coll == nil {
		return
	}
	if err := p.coll.Save(context.Background(), p.items); err != nil {
		// the in-memory copy stays authoritative until the next write
		log.Printf("[capture] failed to persist %d pending records: %v", len(p.items), err)
	}
}
