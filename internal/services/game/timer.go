package game

import (
	"github.com/mcoot/wordbattles/internal/dependencies/clock"
)

// sessionTimer is the ticker driving one running session
type sessionTimer struct {
	ticker clock.Ticker
	stop   chan struct{}
}

// armTimerLocked replaces any previous timer with a fresh one
func (e *Engine) armTimerLocked() {
	e.stopTimerLocked()

	e.generation++
	t := &sessionTimer{
		ticker: e.deps.Clock.NewTicker(e.cfg.TickInterval),
		stop:   make(chan struct{}),
	}
	e.timer = t
	go e.runTimer(e.generation, t)
}

// stopTimerLocked stops the current timer. The timer goroutine exits on its
// own; nothing waits for it, so this is safe to call under the engine lock.
func (e *Engine) stopTimerLocked() {
	if e.timer == nil {
		return
	}
	e.timer.ticker.Stop()
	close(e.timer.stop)
	e.timer = nil
}

func (e *Engine) runTimer(gen uint64, t *sessionTimer) {
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C():
			e.onTimerTick(gen)
		}
	}
}

// onTimerTick applies a tick unless it came from a superseded timer
func (e *Engine) onTimerTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.timer == nil || gen != e.generation {
		return
	}
	_ = e.tickLocked()
}
