// Package sqlite is the file-backed storage backend. Values live in a
// single KV table; the same database hosts the mutation journal.
package sqlite

import (
	"context"
	"errors"

	"github.com/pqtu-edu/progresskit/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists keys as rows in a sqlite file via GORM.
type Store struct {
	db *gorm.DB
}

// Open creates the GORM handle and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row model.KVEntry
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	row := model.KVEntry{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&model.KVEntry{}, "key = ?", key).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the gorm handle for the mutation journal.
func (s *Store) DB() *gorm.DB {
	return s.db
}
