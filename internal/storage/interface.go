package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/wordbattles/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Session history. Summaries are write-once; saving an existing
	// session ID overwrites it.
	SaveSessionSummary(ctx context.Context, summary *model.SessionSummary) error
	GetSessionSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error)
	// ListSessionsForPlayer returns summaries most recently ended first
	ListSessionsForPlayer(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.SessionSummary, error)

	// Leaderboard operations.
	// UpdateLeaderboard is an atomic read-modify-write of the player's entry.
	UpdateLeaderboard(ctx context.Context, playerID model.PlayerID, displayName string, delta int, at time.Time) (*model.LeaderboardEntry, error)
	GetLeaderboardEntry(ctx context.Context, playerID model.PlayerID) (*model.LeaderboardEntry, error)
	// GetLeaderboard returns entries by total score descending, ties by player ID
	GetLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)

	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error
}

// ErrConflict is returned when a transactional update lost to a concurrent
// writer and nothing was written. Callers may retry.
var ErrConflict = errors.New("storage: conflicting concurrent update")
