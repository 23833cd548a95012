package models

import "time"

// LocalEntry is one keyed value in the local SQLite store. Local mode keeps its
// whole error collection as a JSON array under a single key, mirroring the
// browser's localStorage layout.
type LocalEntry struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of gorm's pluralization rules.
func (LocalEntry) TableName() string {
	return "local_entries"
}
