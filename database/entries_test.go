package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate8382/error-logger-viewer/config"
	"github.com/kate8382/error-logger-viewer/models"
)

func testSettings() *config.Config {
	return &config.Config{
		LogLevel:             "INFO",
		SQLitePragmasEnabled: true,
		SQLiteBusyTimeoutMS:  5000,
		SQLiteJournalMode:    "WAL",
		SQLiteSynchronous:    "NORMAL",
		SQLiteMaxOpenConns:   1,
		SQLiteMaxIdleConns:   1,
	}
}

func openTestEntries(t *testing.T) *EntryStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "local.db"), testSettings())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewEntryStore(db)
}

func TestEntryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	entries := openTestEntries(t)

	_, ok, err := entries.Get(ctx, "demoErrors")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, entries.Put(ctx, "demoErrors", `[{"id":"1"}]`))
	require.NoError(t, entries.Put(ctx, "demoErrors", `[{"id":"2"}]`))

	value, ok, err := entries.Get(ctx, " demoErrors ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"2"}]`, value)

	require.NoError(t, entries.Delete(ctx, "demoErrors"))
	_, ok, err = entries.Get(ctx, "demoErrors")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntryStoreRejectsEmptyKey(t *testing.T) {
	entries := openTestEntries(t)
	assert.Error(t, entries.Put(context.Background(), "  ", "x"))

	var nilStore *EntryStore
	_, _, err := nilStore.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestLocalCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	coll := NewLocalCollection(openTestEntries(t), "demoErrors")

	records, err := coll.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	rec := models.ErrorRecord{ID: "1", Type: "TypeError", Message: "boom", Status: models.StatusNew}
	require.NoError(t, rec.SetExtra("colno", 7))
	require.NoError(t, coll.Save(ctx, []models.ErrorRecord{rec}))

	records, err = coll.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].Message)
	assert.JSONEq(t, `7`, string(records[0].Extra["colno"]))
}

func TestLocalCollectionCorruptEntry(t *testing.T) {
	ctx := context.Background()
	entries := openTestEntries(t)
	require.NoError(t, entries.Put(ctx, "demoErrors", "not json"))

	_, err := NewLocalCollection(entries, "demoErrors").Load(ctx)
	assert.Error(t, err)
}
