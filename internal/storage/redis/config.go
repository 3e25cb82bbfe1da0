package redis

import "time"

// Config tunes the Redis-backed store.
type Config struct {
	URL      string
	PoolSize int

	// PingTimeout bounds the connectivity check New performs.
	PingTimeout time.Duration

	// GuestTTL expires guest players that never register.
	// HistoryTTL expires recorded session summaries. Zero keeps them.
	GuestTTL   time.Duration
	HistoryTTL time.Duration

	// MaxTxRetries bounds leaderboard updates that lose a WATCH race.
	MaxTxRetries int
}

func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379/0",
		PoolSize:     10,
		PingTimeout:  5 * time.Second,
		GuestTTL:     24 * time.Hour,
		HistoryTTL:   90 * 24 * time.Hour,
		MaxTxRetries: 50,
	}
}
