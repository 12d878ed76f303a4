package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KVEntry is one persisted key/value pair in the sqlite-backed store.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// JournalEntry is one row of the local mutation journal. Destructive
// operations (resets) and progress mutations are recorded here when a
// DB-backed store is active.
type JournalEntry struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string         `gorm:"index:idx_journal_user;size:64" json:"user_id"`
	Persona   string         `gorm:"size:16" json:"persona"`
	Action    string         `gorm:"size:32;not null" json:"action"`
	Detail    datatypes.JSON `json:"detail"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&KVEntry{},
	&JournalEntry{},
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}
