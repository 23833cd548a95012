package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/kate8382/error-logger-viewer/capture"
	"github.com/kate8382/error-logger-viewer/config"
	"github.com/kate8382/error-logger-viewer/database"
)

// Services is the service container of one process
type Services struct {
	Records *RecordService   // server document, nil in console mode
	Local   *RecordService   // local-mode collection, nil without a database
	Pending *capture.Pending // captured records not yet delivered
}

// NewServices builds the services available to this process. document is nil
// in console mode; db is nil when the local database could not be opened, in
// which case pending records are kept in memory only.
func NewServices(ctx context.Context, document *database.DocumentStore, db *gorm.DB, settings *config.Config) (*Services, error) {
	s := &Services{}
	if document != nil {
		s.Records = NewRecordService(document)
	}
	if db == nil {
		s.Pending = capture.NewPending(settings.MaxPendingErrors)
		return s, nil
	}

	s.Local = NewLocalRecordService(db, settings.LocalKey)
	entries := database.NewEntryStore(db)
	pending, err := capture.LoadPending(ctx, settings.MaxPendingErrors, database.NewLocalCollection(entries, settings.PendingKey))
	if err != nil {
		return nil, err
	}
	s.Pending = pending
	return s, nil
}

// NewLocalRecordService returns a record service over the collection stored
// under key in db.
func NewLocalRecordService(db *gorm.DB, key string, opts ...Option) *RecordService {
	return NewRecordService(database.NewLocalCollection(database.NewEntryStore(db), key), opts...)
}
