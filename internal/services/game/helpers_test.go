package game

import (
	"context"
	"errors"
	"sync"

	"github.com/mcoot/wordbattles/internal/model"
)

// stubRacks deals the queued racks in order, repeating the last one
type stubRacks struct {
	mu    sync.Mutex
	racks []string
	calls int
}

func newStubRacks(racks ...string) *stubRacks {
	return &stubRacks{racks: racks}
}

func (s *stubRacks) BuildRack(size int) model.Rack {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.racks)-1)
	s.calls++
	return model.ParseRack(s.racks[i])
}

// recorder counts persistence calls and can block or fail them
type recorder struct {
	mu          sync.Mutex
	summaries   []model.SessionSummary
	deltas      map[model.PlayerID][]int
	leaderCalls int
	recordErr   error
	gate        chan struct{} // when set, RecordSession waits for it to close
}

func newRecorder() *recorder {
	return &recorder{deltas: make(map[model.PlayerID][]int)}
}

func (r *recorder) RecordSession(ctx context.Context, summary model.SessionSummary) error {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
	return r.recordErr
}

func (r *recorder) UpdateLeaderboard(_ context.Context, playerID model.PlayerID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaderCalls++
	r.deltas[playerID] = append(r.deltas[playerID], delta)
	if r.recordErr != nil {
		return errors.New("leaderboard unavailable")
	}
	return nil
}

func (r *recorder) recordCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summaries)
}

func (r *recorder) leaderboardCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderCalls
}

func (r *recorder) lastSummary() model.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaries[len(r.summaries)-1]
}

// timerRunning reports whether a timer is armed
func (e *Engine) timerRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer != nil
}

func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

var errStorageDown = errors.New("storage unavailable")
