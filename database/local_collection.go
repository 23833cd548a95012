package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kate8382/error-logger-viewer/models"
)

// LocalCollection keeps a whole record collection as one JSON array stored
// under a single entry key.
type LocalCollection struct {
	entries *EntryStore
	key     string
}

// NewLocalCollection returns a collection stored under key.
func NewLocalCollection(entries *EntryStore, key string) *LocalCollection {
	return &LocalCollection{entries: entries, key: key}
}

// Key is the entry key holding the collection.
func (c *LocalCollection) Key() string {
	return c.key
}

// Load reads the collection. A missing or blank entry is an empty collection.
func (c *LocalCollection) Load(ctx context.Context) ([]models.ErrorRecord, error) {
	raw, ok, err := c.entries.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read entry %q: %w", c.key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []models.ErrorRecord{}, nil
	}

	var records []models.ErrorRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode entry %q: %w", c.key, err)
	}
	if records == nil {
		records = []models.ErrorRecord{}
	}
	return records, nil
}

// Save replaces the stored collection.
func (c *LocalCollection) Save(ctx context.Context, records []models.ErrorRecord) error {
	if records == nil {
		records = []models.ErrorRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode entry %q: %w", c.key, err)
	}
	if err := c.entries.Put(ctx, c.key, string(raw)); err != nil {
		return fmt.Errorf("write entry %q: %w", c.key, err)
	}
	return nil
}
