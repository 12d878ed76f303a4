package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
}

type EngineConfig struct {
	Debug bool `mapstructure:"debug"`

	// XP granted per interaction kind.
	XPQuestion      int `mapstructure:"xp_question"`
	XPPerfectAnswer int `mapstructure:"xp_perfect_answer"`
	XPFirstTime     int `mapstructure:"xp_first_time"`

	// LevelThresholds[i] is the minimum cumulative XP for level i+1.
	// The list is strictly increasing and starts at 0; its length is the
	// level cap.
	LevelThresholds []int `mapstructure:"level_thresholds"`

	// StreakGraceDays widens the streak-break rule: a gap of up to
	// 1+grace calendar days keeps the streak alive. 0 means a missed
	// calendar day breaks the streak.
	StreakGraceDays int `mapstructure:"streak_grace_days"`

	RecentGainsSize    int `mapstructure:"recent_gains_size"`
	RecentLevelUpsSize int `mapstructure:"recent_levelups_size"`
	FavoritesCap       int `mapstructure:"favorites_cap"`

	// AchievementCascadeDepth bounds how far reward XP from one unlock may
	// re-trigger further unlocks.
	AchievementCascadeDepth int `mapstructure:"achievement_cascade_depth"`
}

type StorageConfig struct {
	Mode          string `mapstructure:"mode"` // memory | sqlite | redis
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type RemoteConfig struct {
	// BaseURL of the gamification backend. Empty disables remote sync
	// entirely (local-only mode).
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	TokenSecret    string        `mapstructure:"token_secret"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PushRPS        float64       `mapstructure:"push_rps"`
	PushBurst      int           `mapstructure:"push_burst"`
}

type FeedbackConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	BackoffCap    time.Duration `mapstructure:"backoff_cap"`
	QueueCap      int           `mapstructure:"queue_cap"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config built purely from defaults, for embedders that
// do not ship a config file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.debug", false)
	v.SetDefault("engine.xp_question", 10)
	v.SetDefault("engine.xp_perfect_answer", 50)
	v.SetDefault("engine.xp_first_time", 100)
	v.SetDefault("engine.level_thresholds", []int{0, 100, 250, 500, 900, 1400, 2000, 2800, 3800, 5000})
	v.SetDefault("engine.streak_grace_days", 0)
	v.SetDefault("engine.recent_gains_size", 5)
	v.SetDefault("engine.recent_levelups_size", 3)
	v.SetDefault("engine.favorites_cap", 100)
	v.SetDefault("engine.achievement_cascade_depth", 2)
	v.SetDefault("storage.mode", "memory")
	v.SetDefault("storage.sqlite_path", "./data/progress.db")
	v.SetDefault("remote.health_timeout", "2s")
	v.SetDefault("remote.request_timeout", "10s")
	v.SetDefault("remote.push_rps", 1)
	v.SetDefault("remote.push_burst", 3)
	v.SetDefault("feedback.max_attempts", 3)
	v.SetDefault("feedback.backoff_base", "500ms")
	v.SetDefault("feedback.backoff_cap", "10s")
	v.SetDefault("feedback.queue_cap", 50)
	v.SetDefault("feedback.flush_interval", "30s")
}
