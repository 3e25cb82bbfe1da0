package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// getJSON loads key into v, returning notFound when the key is missing
func (s *Storage) getJSON(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestTTL
	}
	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var player model.Player
	if err := s.getJSON(ctx, playerKey(id), &player, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0)
		pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
		return nil
	})
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	var rp model.RegisteredPlayer
	if err := s.getJSON(ctx, registeredPlayerKey(playerID), &rp, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerID, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerID))
}

// Session history

func (s *Storage) SaveSessionSummary(ctx context.Context, summary *model.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(summary.SessionID), data, s.cfg.HistoryTTL)
		if summary.PlayerID != "" {
			pipe.ZAdd(ctx, playerSessionsKey(summary.PlayerID), redis.Z{
				Score:  float64(summary.EndedAt.UnixMilli()),
				Member: string(summary.SessionID),
			})
		}
		return nil
	})
	return err
}

func (s *Storage) GetSessionSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error) {
	var summary model.SessionSummary
	if err := s.getJSON(ctx, sessionKey(id), &summary, model.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Storage) ListSessionsForPlayer(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.SessionSummary, error) {
	ids, err := s.client.ZRevRange(ctx, playerSessionsKey(playerID), 0, stopIndex(limit)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.SessionSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(model.SessionID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	summaries := make([]*model.SessionSummary, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Expired
		}
		var summary model.SessionSummary
		if err := json.Unmarshal([]byte(str), &summary); err != nil {
			continue // Skip invalid data
		}
		summaries = append(summaries, &summary)
	}
	storage.SortSessionsRecentFirst(summaries)
	return summaries, nil
}

// Leaderboard operations

// UpdateLeaderboard runs an optimistic WATCH/MULTI transaction on the
// player's entry, retrying when another writer changes it first.
func (s *Storage) UpdateLeaderboard(ctx context.Context, playerID model.PlayerID, displayName string, delta int, at time.Time) (*model.LeaderboardEntry, error) {
	key := leaderboardEntryKey(playerID)
	var updated model.LeaderboardEntry

	txf := func(tx *redis.Tx) error {
		entry := model.LeaderboardEntry{PlayerID: playerID}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &entry); err != nil {
				return err
			}
		}

		if displayName != "" {
			entry.DisplayName = displayName
		}
		entry.Apply(delta, at)

		out, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			pipe.ZAdd(ctx, leaderboardRankKey(), redis.Z{
				Score:  float64(entry.TotalScore),
				Member: string(playerID),
			})
			return nil
		})
		if err == nil {
			updated = entry
		}
		return err
	}

	retries := max(s.cfg.MaxTxRetries, 1)
	for i := 0; i < retries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return &updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update leaderboard for %s: %w", playerID, storage.ErrConflict)
}

func (s *Storage) GetLeaderboardEntry(ctx context.Context, playerID model.PlayerID) (*model.LeaderboardEntry, error) {
	var entry model.LeaderboardEntry
	if err := s.getJSON(ctx, leaderboardEntryKey(playerID), &entry, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Storage) GetLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	ids, err := s.client.ZRevRange(ctx, leaderboardRankKey(), 0, stopIndex(limit)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.LeaderboardEntry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = leaderboardEntryKey(model.PlayerID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*model.LeaderboardEntry, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var entry model.LeaderboardEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	model.SortLeaderboard(entries)
	return entries, nil
}

// stopIndex converts a limit into an inclusive ZRANGE stop index
func stopIndex(limit int) int64 {
	if limit <= 0 {
		return -1
	}
	return int64(limit - 1)
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	words, err := s.client.SMembers(ctx, dictionaryKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}
	return words, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Delete existing dictionary and add new words atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(words) > 0 {
		members := make([]interface{}, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.SAdd(ctx, key, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
