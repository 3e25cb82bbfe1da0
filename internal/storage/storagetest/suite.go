// Package storagetest holds the behavior every storage backend must share.
// Backend test files embed Suite and set NewStorage.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage"
)

// Suite runs the storage contract against a backend
type Suite struct {
	suite.Suite

	// NewStorage returns an empty backend for each test
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func summary(id string, player model.PlayerID, score int, endedAt time.Time) *model.SessionSummary {
	return &model.SessionSummary{
		SessionID:       model.SessionID(id),
		GameID:          "game-1",
		PlayerID:        player,
		Score:           score,
		Words:           []model.AcceptedWord{{Text: "cat", Points: 5, AcceptedAt: endedAt.Add(-time.Second)}},
		Rack:            "catdogs",
		DurationSeconds: 60,
		StartedAt:       endedAt.Add(-time.Minute),
		EndedAt:         endedAt,
		EndReason:       model.EndReasonTimeout,
	}
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "player-1",
		DisplayName: "Alice",
		IsGuest:     true,
		CreatedAt:   baseTime,
	}

	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	retrieved, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.DisplayName, retrieved.DisplayName)
	s.True(retrieved.IsGuest)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestDeletePlayer() {
	_ = s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "player-1", DisplayName: "Alice"})

	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "player-1"))

	_, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSaveAndGetRegisteredPlayer() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "player-1",
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	s.Require().NoError(s.Storage.SaveRegisteredPlayer(s.Ctx, rp))

	byID, err := s.Storage.GetRegisteredPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), byName.PlayerID)
	s.Equal("hash", byName.PasswordHash)
}

func (s *Suite) TestGetRegisteredPlayerByUsernameNotFound() {
	_, err := s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.Storage.GetRegisteredPlayer(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Session history tests

func (s *Suite) TestSaveAndGetSessionSummary() {
	opp := 4
	sum := summary("session-1", "player-1", 12, baseTime)
	sum.OpponentScore = &opp

	s.Require().NoError(s.Storage.SaveSessionSummary(s.Ctx, sum))

	got, err := s.Storage.GetSessionSummary(s.Ctx, "session-1")
	s.Require().NoError(err)
	s.Equal(12, got.Score)
	s.Equal("catdogs", got.Rack)
	s.Equal(model.EndReasonTimeout, got.EndReason)
	s.Require().Len(got.Words, 1)
	s.Equal("cat", got.Words[0].Text)
	s.Require().NotNil(got.OpponentScore)
	s.Equal(4, *got.OpponentScore)
	s.True(baseTime.Equal(got.EndedAt))
}

func (s *Suite) TestGetSessionSummaryNotFound() {
	_, err := s.Storage.GetSessionSummary(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestListSessionsForPlayerMostRecentFirst() {
	_ = s.Storage.SaveSessionSummary(s.Ctx, summary("s-old", "player-1", 3, baseTime))
	_ = s.Storage.SaveSessionSummary(s.Ctx, summary("s-new", "player-1", 9, baseTime.Add(2*time.Hour)))
	_ = s.Storage.SaveSessionSummary(s.Ctx, summary("s-mid", "player-1", 6, baseTime.Add(time.Hour)))
	_ = s.Storage.SaveSessionSummary(s.Ctx, summary("s-other", "player-2", 50, baseTime))

	list, err := s.Storage.ListSessionsForPlayer(s.Ctx, "player-1", 0)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(model.SessionID("s-new"), list[0].SessionID)
	s.Equal(model.SessionID("s-mid"), list[1].SessionID)
	s.Equal(model.SessionID("s-old"), list[2].SessionID)

	limited, err := s.Storage.ListSessionsForPlayer(s.Ctx, "player-1", 2)
	s.Require().NoError(err)
	s.Len(limited, 2)
	s.Equal(model.SessionID("s-new"), limited[0].SessionID)
}

func (s *Suite) TestListSessionsForUnknownPlayerIsEmpty() {
	list, err := s.Storage.ListSessionsForPlayer(s.Ctx, "nobody", 10)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *Suite) TestResavingSessionDoesNotDuplicate() {
	sum := summary("session-1", "player-1", 5, baseTime)
	_ = s.Storage.SaveSessionSummary(s.Ctx, sum)
	_ = s.Storage.SaveSessionSummary(s.Ctx, sum)

	list, err := s.Storage.ListSessionsForPlayer(s.Ctx, "player-1", 0)
	s.Require().NoError(err)
	s.Len(list, 1)
}

// Leaderboard tests

func (s *Suite) TestUpdateLeaderboardCreatesEntry() {
	entry, err := s.Storage.UpdateLeaderboard(s.Ctx, "player-1", "Alice", 12, baseTime)
	s.Require().NoError(err)
	s.Equal(12, entry.TotalScore)
	s.Equal(1, entry.GamesPlayed)
	s.Equal(12, entry.BestScore)
	s.Equal("Alice", entry.DisplayName)

	stored, err := s.Storage.GetLeaderboardEntry(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(12, stored.TotalScore)
}

func (s *Suite) TestUpdateLeaderboardAccumulates() {
	_, _ = s.Storage.UpdateLeaderboard(s.Ctx, "player-1", "Alice", 12, baseTime)
	_, _ = s.Storage.UpdateLeaderboard(s.Ctx, "player-1", "", 30, baseTime.Add(time.Minute))
	entry, err := s.Storage.UpdateLeaderboard(s.Ctx, "player-1", "Alice", 7, baseTime.Add(2*time.Minute))
	s.Require().NoError(err)

	s.Equal(49, entry.TotalScore)
	s.Equal(3, entry.GamesPlayed)
	s.Equal(30, entry.BestScore)
	s.Equal("Alice", entry.DisplayName)
	s.True(baseTime.Add(2 * time.Minute).Equal(entry.UpdatedAt))
}

func (s *Suite) TestGetLeaderboardEntryNotFound() {
	_, err := s.Storage.GetLeaderboardEntry(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetLeaderboardOrdersByTotal() {
	_, _ = s.Storage.UpdateLeaderboard(s.Ctx, "p-low", "Low", 5, baseTime)
	_, _ = s.Storage.UpdateLeaderboard(s.Ctx, "p-high", "High", 40, baseTime)
	_, _ = s.Storage.UpdateLeaderboard(s.Ctx, "p-mid", "Mid", 20, baseTime)

	board, err := s.Storage.GetLeaderboard(s.Ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(board, 3)
	s.Equal(model.PlayerID("p-high"), board[0].PlayerID)
	s.Equal(model.PlayerID("p-mid"), board[1].PlayerID)
	s.Equal(model.PlayerID("p-low"), board[2].PlayerID)

	top, err := s.Storage.GetLeaderboard(s.Ctx, 2)
	s.Require().NoError(err)
	s.Len(top, 2)
	s.Equal("High", top[0].DisplayName)
}

func (s *Suite) TestGetLeaderboardEmpty() {
	board, err := s.Storage.GetLeaderboard(s.Ctx, 10)
	s.Require().NoError(err)
	s.Empty(board)
}

func (s *Suite) TestConcurrentLeaderboardUpdatesAreNotLost() {
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Storage.UpdateLeaderboard(s.Ctx, "player-1", "Alice", i+1, baseTime); err != nil {
				errs <- fmt.Errorf("writer %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	entry, err := s.Storage.GetLeaderboardEntry(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(writers, entry.GamesPlayed)
	s.Equal(writers*(writers+1)/2, entry.TotalScore)
	s.Equal(writers, entry.BestScore)
}

// Dictionary tests

func (s *Suite) TestSaveAndGetDictionaryWords() {
	words := []string{"apple", "banana", "cherry"}
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, words))

	retrieved, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch(words, retrieved)
}

func (s *Suite) TestSaveDictionaryWordsReplaces() {
	_ = s.Storage.SaveDictionaryWords(s.Ctx, []string{"old"})
	_ = s.Storage.SaveDictionaryWords(s.Ctx, []string{"new", "words"})

	retrieved, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"new", "words"}, retrieved)
}

func (s *Suite) TestGetDictionaryWordsNotLoaded() {
	_, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}
