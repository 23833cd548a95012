package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kate8382/error-logger-viewer/models"
)

// EntryStore is a key/value table in the local SQLite database.
type EntryStore struct {
	db *gorm.DB
}

// NewEntryStore wraps an opened database.
func NewEntryStore(db *gorm.DB) *EntryStore {
	return &EntryStore{db: db}
}

// Get returns the value stored under key. ok is false when the key does not exist.
func (s *EntryStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("empty entry key")
	}

	var e models.LocalEntry
	if err := s.db.WithContext(ctx).First(&e, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Value, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *EntryStore) Put(ctx context.Context, key, value string) error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty entry key")
	}

	return s.db.WithContext(ctx).Save(&models.LocalEntry{Key: key, Value: value}).Error
}

// Delete removes key if it exists.
func (s *EntryStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty entry key")
	}

	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.LocalEntry{}).Error
}
