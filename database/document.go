package database

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kate8382/error-logger-viewer/models"
)

const documentErrorsKey = "errors"

// DocumentStore persists the server's records in one JSON document of the form
// {"errors": [...]}. The document is read on every Load and rewritten on every
// Save; other top-level keys are carried over untouched.
type DocumentStore struct {
	path string

	mu     sync.Mutex        // guards digest; held across writes
	digest [sha256.Size]byte // content last written or observed by this store
}

// NewDocumentStore returns a store for the document at path. The file is not
// touched until the first Load or Save.
func NewDocumentStore(path string) *DocumentStore {
	return &DocumentStore{path: path}
}

// Path is the document location.
func (s *DocumentStore) Path() string {
	return s.path
}

// Load reads the record collection. A missing or empty file yields an empty
// collection.
func (s *DocumentStore) Load(ctx context.Context) ([]models.ErrorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	top, err := s.readTop()
	if err != nil {
		return nil, err
	}

	records := []models.ErrorRecord{}
	if raw, ok := top[documentErrorsKey]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.path, err)
		}
	}
	return records, nil
}

// Save rewrites the document with records. The write goes to a temp file in the
// same directory which then replaces the document.
func (s *DocumentStore) Save(ctx context.Context, records []models.ErrorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []models.ErrorRecord{}
	}

	top, err := s.readTop()
	if err != nil {
		top = map[string]json.RawMessage{}
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	top[documentErrorsKey] = encoded

	raw, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path, raw); err != nil {
		return err
	}
	s.digest = sha256.Sum256(raw)
	return nil
}

// Changed reports whether the document content differs from what this store
// last wrote or observed, and records the current content as observed.
func (s *DocumentStore) Changed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		raw = nil
	} else if err != nil {
		return false, fmt.Errorf("read %s: %w", s.path, err)
	}

	sum := sha256.Sum256(raw)
	if sum == s.digest {
		return false, nil
	}
	s.digest = sum
	return true, nil
}

func (s *DocumentStore) readTop() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if top == nil {
		top = map[string]json.RawMessage{}
	}
	return top, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
