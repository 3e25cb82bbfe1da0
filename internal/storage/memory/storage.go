package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	sessions          map[model.SessionID]*model.SessionSummary
	playerSessions    map[model.PlayerID][]model.SessionID
	leaderboard       map[model.PlayerID]*model.LeaderboardEntry
	dictionaryWords   []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		sessions:          make(map[model.SessionID]*model.SessionSummary),
		playerSessions:    make(map[model.PlayerID][]model.SessionID),
		leaderboard:       make(map[model.PlayerID]*model.LeaderboardEntry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *player
	s.players[player.ID] = &cp
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *player
	return &cp, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rp
	s.registeredPlayers[rp.PlayerID] = &cp
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *rp
	return &cp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	playerID, ok := s.usernameIndex[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetRegisteredPlayer(ctx, playerID)
}

// Session history

func (s *Storage) SaveSessionSummary(ctx context.Context, summary *model.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[summary.SessionID]; !exists && summary.PlayerID != "" {
		s.playerSessions[summary.PlayerID] = append(s.playerSessions[summary.PlayerID], summary.SessionID)
	}
	s.sessions[summary.SessionID] = cloneSummary(summary)
	return nil
}

func (s *Storage) GetSessionSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return cloneSummary(summary), nil
}

func (s *Storage) ListSessionsForPlayer(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.playerSessions[playerID]
	result := make([]*model.SessionSummary, 0, len(ids))
	for _, id := range ids {
		result = append(result, cloneSummary(s.sessions[id]))
	}
	storage.SortSessionsRecentFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneSummary(summary *model.SessionSummary) *model.SessionSummary {
	cp := *summary
	cp.Words = append([]model.AcceptedWord(nil), summary.Words...)
	if summary.OpponentScore != nil {
		score := *summary.OpponentScore
		cp.OpponentScore = &score
	}
	return &cp
}

// Leaderboard operations

func (s *Storage) UpdateLeaderboard(ctx context.Context, playerID model.PlayerID, displayName string, delta int, at time.Time) (*model.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.leaderboard[playerID]
	if !ok {
		entry = &model.LeaderboardEntry{PlayerID: playerID}
		s.leaderboard[playerID] = entry
	}
	if displayName != "" {
		entry.DisplayName = displayName
	}
	entry.Apply(delta, at)

	cp := *entry
	return &cp, nil
}

func (s *Storage) GetLeaderboardEntry(ctx context.Context, playerID model.PlayerID) (*model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.leaderboard[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *Storage) GetLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*model.LeaderboardEntry, 0, len(s.leaderboard))
	for _, entry := range s.leaderboard {
		cp := *entry
		entries = append(entries, &cp)
	}
	model.SortLeaderboard(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	result := make([]string, len(s.dictionaryWords))
	copy(result, s.dictionaryWords)
	return result, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = make([]string, len(words))
	copy(s.dictionaryWords, words)
	return nil
}
