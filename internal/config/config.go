// Package config loads server settings from defaults, an optional YAML file
// and WORDBATTLES_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcoot/wordbattles/internal/model"
)

// EnvPrefix is prepended to every environment override, e.g.
// WORDBATTLES_SERVER_PORT for server.port
const EnvPrefix = "WORDBATTLES"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the full server configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Dictionary  DictionaryConfig  `mapstructure:"dictionary"`
	Game        GameConfig        `mapstructure:"game"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	PoolSize   int           `mapstructure:"pool_size"`
	GuestTTL   time.Duration `mapstructure:"guest_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// DictionaryConfig selects the word list. An empty path uses the stored
// word set, then the built-in list.
type DictionaryConfig struct {
	Path string `mapstructure:"path"`
}

// GameConfig holds the default rules for new games and engine timing
type GameConfig struct {
	Duration       int           `mapstructure:"duration"`
	RackSize       int           `mapstructure:"rack_size"`
	MinLength      int           `mapstructure:"min_length"`
	AIEnabled      bool          `mapstructure:"ai_enabled"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// Options returns the configured default game rules
func (g GameConfig) Options() model.GameOptions {
	ai := g.AIEnabled
	return model.GameOptions{
		DurationSeconds: g.Duration,
		RackSize:        g.RackSize,
		MinLength:       g.MinLength,
		AIEnabled:       &ai,
	}
}

type PersistenceConfig struct {
	Attempts uint          `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// NATSConfig enables the finished-session publisher when URL is set
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type AuthConfig struct {
	SessionDuration time.Duration `mapstructure:"session_duration"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses the configured level, defaulting to info
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.guest_ttl", 24*time.Hour)
	v.SetDefault("storage.redis.history_ttl", 90*24*time.Hour)
	v.SetDefault("storage.sqlite.path", "data/wordbattles.db")

	v.SetDefault("dictionary.path", "")

	v.SetDefault("game.duration", model.DefaultDurationSeconds)
	v.SetDefault("game.rack_size", model.DefaultRackSize)
	v.SetDefault("game.min_length", model.DefaultMinWordLength)
	v.SetDefault("game.ai_enabled", false)
	v.SetDefault("game.tick_interval", time.Second)
	v.SetDefault("game.persist_timeout", 10*time.Second)

	v.SetDefault("persistence.attempts", 3)
	v.SetDefault("persistence.delay", 100*time.Millisecond)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "wordbattles.sessions.ended")

	v.SetDefault("auth.session_duration", 24*time.Hour)
	v.SetDefault("auth.janitor_interval", 10*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot fix up on its own
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Type {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.type %q must be memory, redis or sqlite", c.Storage.Type))
	}
	if c.Storage.Type == StorageRedis && c.Storage.Redis.URL == "" {
		errs = append(errs, errors.New("storage.redis.url is required for redis storage"))
	}
	if c.Storage.Type == StorageSQLite && c.Storage.SQLite.Path == "" {
		errs = append(errs, errors.New("storage.sqlite.path is required for sqlite storage"))
	}
	if err := c.Game.Options().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("game: %w", err))
	}
	if c.Game.TickInterval <= 0 {
		errs = append(errs, errors.New("game.tick_interval must be positive"))
	}
	if c.Persistence.Attempts == 0 {
		errs = append(errs, errors.New("persistence.attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

// Default returns the built-in configuration, ignoring files and environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}
