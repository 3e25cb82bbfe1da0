package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/wordbattles/internal/dependencies/clock"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage"
)

// Sink receives a copy of every recorded session in addition to storage
type Sink interface {
	Name() string
	PublishSession(ctx context.Context, summary model.SessionSummary) error
}

// Config controls retries for storage and sink writes
type Config struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultConfig returns the default retry policy
func DefaultConfig() Config {
	return Config{
		Attempts: 3,
		Delay:    100 * time.Millisecond,
	}
}

// Adapter writes finished sessions and leaderboard deltas to storage.
// Both operations are no-ops for sessions without a player.
type Adapter struct {
	store  storage.Storage
	sinks  []Sink
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

// New creates a new persistence Adapter
func New(store storage.Storage, clk clock.Clock, cfg Config, logger *slog.Logger, sinks ...Sink) *Adapter {
	if cfg.Attempts == 0 {
		cfg = DefaultConfig()
	}
	return &Adapter{
		store:  store,
		sinks:  sinks,
		clock:  clk,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "persistence")),
	}
}

func (a *Adapter) retryOpts(ctx context.Context, op string, opts ...retry.Option) []retry.Option {
	base := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(a.cfg.Attempts),
		retry.Delay(a.cfg.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("persistence write failed, retrying",
				slog.String("op", op),
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}),
	}
	return append(base, opts...)
}

// RecordSession saves the summary and publishes it to every sink. Writes run
// concurrently and each is retried on its own; the first failure is returned
// after all writes finish.
func (a *Adapter) RecordSession(ctx context.Context, summary model.SessionSummary) error {
	if summary.PlayerID == "" {
		return nil
	}

	var g errgroup.Group
	g.Go(func() error {
		err := retry.Do(func() error {
			return a.store.SaveSessionSummary(ctx, &summary)
		}, a.retryOpts(ctx, "save_session")...)
		if err != nil {
			return fmt.Errorf("save session %s: %w", summary.SessionID, err)
		}
		return nil
	})
	for _, sink := range a.sinks {
		sink := sink
		g.Go(func() error {
			err := retry.Do(func() error {
				return sink.PublishSession(ctx, summary)
			}, a.retryOpts(ctx, "publish_"+sink.Name())...)
			if err != nil {
				return fmt.Errorf("publish session %s to %s: %w", summary.SessionID, sink.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// UpdateLeaderboard adds delta to the player's standing. Only conflicts are
// retried; any other error may have been applied and is returned as is.
func (a *Adapter) UpdateLeaderboard(ctx context.Context, playerID model.PlayerID, delta int) error {
	if playerID == "" {
		return nil
	}

	displayName := ""
	if player, err := a.store.GetPlayer(ctx, playerID); err == nil {
		displayName = player.DisplayName
	}

	var entry *model.LeaderboardEntry
	err := retry.Do(func() error {
		var err error
		entry, err = a.store.UpdateLeaderboard(ctx, playerID, displayName, delta, a.clock.Now())
		return err
	}, a.retryOpts(ctx, "update_leaderboard", retry.RetryIf(func(err error) bool {
		return errors.Is(err, storage.ErrConflict)
	}))...)
	if err != nil {
		return fmt.Errorf("update leaderboard for %s: %w", playerID, err)
	}

	a.logger.Info("leaderboard updated",
		slog.String("player_id", string(playerID)),
		slog.Int("delta", delta),
		slog.Int("total", entry.TotalScore),
	)
	return nil
}
