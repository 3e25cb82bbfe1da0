package model

import (
	"cmp"
	"slices"
	"time"
)

// LeaderboardEntry is a player's cumulative standing
type LeaderboardEntry struct {
	PlayerID    PlayerID
	DisplayName string
	TotalScore  int
	GamesPlayed int
	BestScore   int
	UpdatedAt   time.Time
}

// Apply folds one finished session's score into the entry
func (e *LeaderboardEntry) Apply(delta int, at time.Time) {
	e.TotalScore += delta
	e.GamesPlayed++
	if delta > e.BestScore {
		e.BestScore = delta
	}
	e.UpdatedAt = at
}

// DefaultLeaderboardLimit is used when a caller asks for a non-positive limit
const DefaultLeaderboardLimit = 20

// SortLeaderboard orders entries by total score descending, then player ID
func SortLeaderboard(entries []*LeaderboardEntry) {
	slices.SortFunc(entries, func(a, b *LeaderboardEntry) int {
		if a.TotalScore != b.TotalScore {
			return cmp.Compare(b.TotalScore, a.TotalScore)
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
}
