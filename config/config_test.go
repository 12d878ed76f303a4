package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.Engine.XPQuestion)
	assert.Equal(t, 50, cfg.Engine.XPPerfectAnswer)
	assert.Equal(t, 100, cfg.Engine.XPFirstTime)
	assert.Len(t, cfg.Engine.LevelThresholds, 10)
	assert.Equal(t, 0, cfg.Engine.LevelThresholds[0])
	assert.Equal(t, 5000, cfg.Engine.LevelThresholds[9])
	assert.Equal(t, "memory", cfg.Storage.Mode)
	assert.Empty(t, cfg.Remote.BaseURL, "remote sync is off by default")
	assert.Equal(t, 2*time.Second, cfg.Remote.HealthTimeout)
	assert.Equal(t, 3, cfg.Feedback.MaxAttempts)
	assert.Equal(t, 50, cfg.Feedback.QueueCap)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  xp_question: 15
  streak_grace_days: 1
storage:
  mode: sqlite
  sqlite_path: /tmp/progress-test.db
remote:
  base_url: https://api.example.org
feedback:
  queue_cap: 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Engine.XPQuestion)
	assert.Equal(t, 1, cfg.Engine.StreakGraceDays)
	assert.Equal(t, 50, cfg.Engine.XPPerfectAnswer, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Storage.Mode)
	assert.Equal(t, "https://api.example.org", cfg.Remote.BaseURL)
	assert.Equal(t, 10, cfg.Feedback.QueueCap)
	assert.Equal(t, 30*time.Second, cfg.Feedback.FlushInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
