package database

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DocumentWatcher reports edits to the record document made outside this
// process, such as a restored backup or a manual fix.
type DocumentWatcher struct {
	fsw      *fsnotify.Watcher
	store    *DocumentStore
	name     string
	onChange func()
}

// NewDocumentWatcher watches the directory of store's document. onChange runs
// on the watcher goroutine whenever the document content changes under it.
// The directory is watched rather than the file so that the replace-by-rename
// writes keep being seen.
func NewDocumentWatcher(store *DocumentStore, onChange func()) (*DocumentWatcher, error) {
	name, err := filepath.Abs(store.Path())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", store.Path(), err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(name)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(name), err)
	}

	return &DocumentWatcher{
		fsw:      fsw,
		store:    store,
		name:     filepath.Clean(name),
		onChange: onChange,
	}, nil
}

// Run handles file events until ctx is cancelled.
func (w *DocumentWatcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			changed, err := w.store.Changed()
			if err != nil {
				log.Printf("[watcher] %v", err)
				continue
			}
			if changed && w.onChange != nil {
				log.Printf("[watcher] %s changed on disk (%s)", w.name, ev.Op)
				w.onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}
