package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/wordbattles/internal/model"
)

// SortSessionsRecentFirst orders summaries by end time, newest first
func SortSessionsRecentFirst(summaries []*model.SessionSummary) {
	slices.SortStableFunc(summaries, func(a, b *model.SessionSummary) int {
		if c := b.EndedAt.Compare(a.EndedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.SessionID, b.SessionID)
	})
}
