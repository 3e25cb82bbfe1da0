// Package sqlite is a single-file storage backend built on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage"
)

// Config holds SQLite settings
type Config struct {
	// Path is the database file. ":memory:" keeps everything in process.
	Path string
}

// DefaultConfig returns the default SQLite configuration
func DefaultConfig() Config {
	return Config{Path: "data/wordbattles.db"}
}

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New opens (creating if needed) the database and applies migrations
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	logger = logger.With(slog.String("component", "sqlite"))

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers, which makes the leaderboard
	// transaction a plain BEGIN/COMMIT with no SQLITE_BUSY handling.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000; PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, display_name, is_guest, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, is_guest = excluded.is_guest`,
		string(player.ID), player.DisplayName, player.IsGuest, toUnix(player.CreatedAt))
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var (
		p       model.Player
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, is_guest, created_at FROM players WHERE id = ?`, string(id),
	).Scan(&p.ID, &p.DisplayName, &p.IsGuest, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromUnix(created)
	return &p, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, string(id))
	return err
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registered_players (player_id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`,
		string(rp.PlayerID), rp.Username, rp.PasswordHash, toUnix(rp.CreatedAt), toUnix(rp.UpdatedAt))
	return err
}

func (s *Storage) scanRegistered(row *sql.Row) (*model.RegisteredPlayer, error) {
	var (
		rp               model.RegisteredPlayer
		created, updated int64
	)
	err := row.Scan(&rp.PlayerID, &rp.Username, &rp.PasswordHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	rp.CreatedAt = fromUnix(created)
	rp.UpdatedAt = fromUnix(updated)
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	return s.scanRegistered(s.db.QueryRowContext(ctx, `
		SELECT player_id, username, password_hash, created_at, updated_at
		FROM registered_players WHERE player_id = ?`, string(playerID)))
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	return s.scanRegistered(s.db.QueryRowContext(ctx, `
		SELECT player_id, username, password_hash, created_at, updated_at
		FROM registered_players WHERE username = ?`, username))
}

// Session history

func (s *Storage) SaveSessionSummary(ctx context.Context, summary *model.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, player_id, score, ended_at, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			player_id = excluded.player_id,
			score = excluded.score,
			ended_at = excluded.ended_at,
			data = excluded.data`,
		string(summary.SessionID), string(summary.PlayerID), summary.Score, toUnix(summary.EndedAt), string(data))
	return err
}

func (s *Storage) GetSessionSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE session_id = ?`, string(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var summary model.SessionSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &summary, nil
}

func (s *Storage) ListSessionsForPlayer(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.SessionSummary, error) {
	if playerID == "" {
		return []*model.SessionSummary{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM sessions WHERE player_id = ?
		ORDER BY ended_at DESC, session_id ASC LIMIT ?`, string(playerID), sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []*model.SessionSummary{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var summary model.SessionSummary
		if err := json.Unmarshal([]byte(data), &summary); err != nil {
			continue // Skip invalid data
		}
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// Leaderboard operations

// UpdateLeaderboard reads, applies and writes the entry inside one transaction
func (s *Storage) UpdateLeaderboard(ctx context.Context, playerID model.PlayerID, displayName string, delta int, at time.Time) (*model.LeaderboardEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := scanEntry(tx.QueryRowContext(ctx, selectEntry+` WHERE player_id = ?`, string(playerID)))
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		entry = &model.LeaderboardEntry{PlayerID: playerID}
	case err != nil:
		return nil, err
	}

	if displayName != "" {
		entry.DisplayName = displayName
	}
	entry.Apply(delta, at)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leaderboard (player_id, display_name, total_score, games_played, best_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			display_name = excluded.display_name,
			total_score = excluded.total_score,
			games_played = excluded.games_played,
			best_score = excluded.best_score,
			updated_at = excluded.updated_at`,
		string(entry.PlayerID), entry.DisplayName, entry.TotalScore, entry.GamesPlayed, entry.BestScore, toUnix(entry.UpdatedAt))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit leaderboard update: %w", err)
	}
	return entry, nil
}

const selectEntry = `SELECT player_id, display_name, total_score, games_played, best_score, updated_at FROM leaderboard`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.LeaderboardEntry, error) {
	var (
		e       model.LeaderboardEntry
		updated int64
	)
	err := row.Scan(&e.PlayerID, &e.DisplayName, &e.TotalScore, &e.GamesPlayed, &e.BestScore, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	e.UpdatedAt = fromUnix(updated)
	return &e, nil
}

func (s *Storage) GetLeaderboardEntry(ctx context.Context, playerID model.PlayerID) (*model.LeaderboardEntry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE player_id = ?`, string(playerID)))
}

func (s *Storage) GetLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+`
		ORDER BY total_score DESC, player_id ASC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*model.LeaderboardEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// sqlLimit maps a non-positive limit to SQLite's "no limit"
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word FROM dictionary_words`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}
	return words, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dictionary_words`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO dictionary_words (word) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range words {
		if _, err := stmt.ExecContext(ctx, w); err != nil {
			return fmt.Errorf("insert word %q: %w", w, err)
		}
	}
	return tx.Commit()
}
