package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStateKey_AnonymousFallback(t *testing.T) {
	assert.Equal(t, "gamification-state_u42", storage.StateKey("u42"))
	assert.Equal(t, "gamification-state_anonymous", storage.StateKey(""))
	assert.Equal(t, "feedback_offline_queue_anonymous", storage.UserKey(storage.KeyFeedbackQueue, ""))
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := storage.Open(config.StorageConfig{Mode: "cassandra"})
	assert.Error(t, err)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	st := storage.OpenStore(config.StorageConfig{Mode: storage.ModeMemory}, zap.NewNop())
	ctx := context.Background()

	snap := model.NewSnapshot()
	ledger := snap.Ledgers[model.PersonaGa]
	ledger.CurrentXP = 160
	ledger.Level = 2
	ledger.NextLevelXP = 250
	ledger.TotalInteractions = 7
	ledger.Streak = model.Streak{Current: 2, Longest: 4, LastActivityDate: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)}
	ledger.Achievements = []model.UnlockedAchievement{
		{ID: "first_question", UnlockedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)},
	}
	snap.SyncVersion = 3
	snap.UpdatedAt = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	st.Set(ctx, storage.StateKey("u1"), string(raw))

	got, ok := st.Get(ctx, storage.StateKey("u1"))
	require.True(t, ok)

	var reloaded model.Snapshot
	require.NoError(t, json.Unmarshal([]byte(got), &reloaded))
	assert.Equal(t, *snap.Ledgers[model.PersonaGa], *reloaded.Ledgers[model.PersonaGa])
	assert.Equal(t, *snap.Ledgers[model.PersonaDr], *reloaded.Ledgers[model.PersonaDr])
	assert.Equal(t, snap.SyncVersion, reloaded.SyncVersion)
	assert.Equal(t, snap.SchemaVersion, reloaded.SchemaVersion)
}

func TestStore_GetMissing(t *testing.T) {
	st := storage.OpenStore(config.StorageConfig{Mode: storage.ModeMemory}, zap.NewNop())
	_, ok := st.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestStore_RemoveThenGet(t *testing.T) {
	st := storage.OpenStore(config.StorageConfig{Mode: storage.ModeMemory}, zap.NewNop())
	ctx := context.Background()
	st.Set(ctx, "k", "v")
	st.Remove(ctx, "k")
	_, ok := st.Get(ctx, "k")
	assert.False(t, ok)
}

// failingBackend errors on every call.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}
func (failingBackend) Set(context.Context, string, string) error { return errors.New("disk on fire") }
func (failingBackend) Remove(context.Context, string) error      { return errors.New("disk on fire") }
func (failingBackend) Close() error                              { return nil }

func TestStore_FailsSilent(t *testing.T) {
	st := storage.NewStore(failingBackend{}, zap.NewNop())
	ctx := context.Background()

	// None of these may panic or surface an error.
	st.Set(ctx, "k", "v")
	_, ok := st.Get(ctx, "k")
	assert.False(t, ok)
	st.Remove(ctx, "k")
}

func TestOpenStore_DegradesToMemory(t *testing.T) {
	// Redis at a closed port: OpenStore must fall back, not fail.
	st := storage.OpenStore(config.StorageConfig{
		Mode:      storage.ModeRedis,
		RedisAddr: "127.0.0.1:1",
	}, zap.NewNop())
	ctx := context.Background()
	st.Set(ctx, "k", "v")
	got, ok := st.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}
