package testutil

import (
	"testing"

	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestStore creates an in-memory failsafe store. It requires no
// external services and is safe to use in parallel tests.
func SetupTestStore(t *testing.T) *storage.Store {
	t.Helper()
	return storage.OpenStore(config.StorageConfig{Mode: storage.ModeMemory}, zap.NewNop())
}

// SetupTestDB creates an in-memory SQLite-backed store and returns both
// the store and its gorm handle with migrations applied.
func SetupTestDB(t *testing.T) (*storage.Store, *gorm.DB) {
	t.Helper()
	backend, err := storage.Open(config.StorageConfig{
		Mode:       storage.ModeSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err, "SetupTestDB: Open")
	db := storage.DB(backend)
	require.NotNil(t, db, "SetupTestDB: gorm handle")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return storage.NewStore(backend, zap.NewNop()), db
}

// Logger returns a development logger when verbose test output is on and
// a no-op logger otherwise.
func Logger(t *testing.T) *zap.Logger {
	t.Helper()
	if testing.Verbose() {
		l, err := zap.NewDevelopment()
		require.NoError(t, err)
		return l
	}
	return zap.NewNop()
}
