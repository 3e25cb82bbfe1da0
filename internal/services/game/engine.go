package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/wordbattles/internal/dependencies/clock"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/rack"
	"github.com/mcoot/wordbattles/internal/services/scoring"
)

// Engine defaults
const (
	DefaultTickInterval   = time.Second
	DefaultPersistTimeout = 10 * time.Second
	subscriberBuffer      = 64
)

// SessionRecorder stores a finished session. Called once per session.
type SessionRecorder interface {
	RecordSession(ctx context.Context, summary model.SessionSummary) error
}

// LeaderboardUpdater adds a finished session's score to the player's standing
type LeaderboardUpdater interface {
	UpdateLeaderboard(ctx context.Context, playerID model.PlayerID, delta int) error
}

// Validator checks and scores candidate words
type Validator interface {
	Evaluate(raw string, counts model.LetterCounts, used func(word string) bool) scoring.Verdict
}

// EngineConfig identifies the game instance and its rules
type EngineConfig struct {
	GameID         model.GameID
	PlayerID       model.PlayerID // Empty for anonymous play
	Options        model.GameOptions
	TickInterval   time.Duration
	PersistTimeout time.Duration
}

// EngineDeps are the collaborators an engine is built from.
// Recorder and Leaderboard may be nil.
type EngineDeps struct {
	Racks       rack.ServiceInterface
	Validator   Validator
	Recorder    SessionRecorder
	Leaderboard LeaderboardUpdater
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Engine runs one game instance: a single live session at a time, its
// countdown timer, and the hand-off of finished sessions to persistence.
// All transitions are serialized; each either applies fully or not at all.
type Engine struct {
	cfg  EngineConfig
	deps EngineDeps

	mu      sync.Mutex
	session *model.GameSession
	closed  bool

	// Timer state. generation increments on every arm so a tick from a
	// previous session's ticker is recognized and dropped.
	timer      *sessionTimer
	generation uint64

	subscribers map[int]chan model.Event
	nextSubID   int

	persisting sync.WaitGroup
	logger     *slog.Logger
}

// NewEngine creates an engine holding a freshly dealt idle session
func NewEngine(cfg EngineConfig, deps EngineDeps) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}

	e := &Engine{
		cfg:         cfg,
		deps:        deps,
		subscribers: make(map[int]chan model.Event),
		logger: deps.Logger.With(
			slog.String("component", "game"),
			slog.String("game_id", string(cfg.GameID)),
		),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.newSessionLocked()
	return e
}

// ID returns the game instance ID
func (e *Engine) ID() model.GameID { return e.cfg.GameID }

// PlayerID returns the player the engine records sessions for
func (e *Engine) PlayerID() model.PlayerID { return e.cfg.PlayerID }

// Options returns the rules the engine was created with
func (e *Engine) Options() model.GameOptions { return e.cfg.Options }

// newSessionLocked replaces the live session with a new idle one
func (e *Engine) newSessionLocked() {
	now := e.deps.Clock.Now()
	opts := e.cfg.Options

	s := &model.GameSession{
		ID:              model.SessionID(uuid.NewString()),
		GameID:          e.cfg.GameID,
		PlayerID:        e.cfg.PlayerID,
		Status:          model.SessionIdle,
		TimeLeftSeconds: opts.DurationSeconds,
		Rack:            e.deps.Racks.BuildRack(opts.RackSize),
		AcceptedWords:   []model.AcceptedWord{},
		Options:         opts,
		CreatedAt:       now,
	}
	if opts.AI() {
		s.Opponent = &model.Opponent{Enabled: true, Words: []model.AcceptedWord{}}
	}
	e.session = s

	e.logger.Debug("session created",
		slog.String("session_id", string(s.ID)),
		slog.String("rack", s.Rack.String()),
	)
	e.emitLocked(model.EventSessionCreated, nil)
}

// Snapshot returns a copy of the live session
func (e *Engine) Snapshot() model.GameSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// Start begins the countdown. Valid from Idle or Ended; starting after an
// end deals a brand-new session first.
func (e *Engine) Start() (model.GameSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.session.Clone(), model.ErrEngineClosed
	}
	if err := e.startLocked(); err != nil {
		return e.session.Clone(), err
	}
	return e.session.Clone(), nil
}

func (e *Engine) startLocked() error {
	switch e.session.Status {
	case model.SessionRunning:
		e.session.Message = "Game is already running"
		return model.ErrSessionAlreadyRunning
	case model.SessionEnded:
		e.newSessionLocked()
	}

	s := e.session
	s.Status = model.SessionRunning
	s.TimeLeftSeconds = s.Options.DurationSeconds
	s.StartedAt = e.deps.Clock.Now()
	s.Message = ""
	e.armTimerLocked()

	e.logger.Info("session started",
		slog.String("session_id", string(s.ID)),
		slog.Int("duration", s.Options.DurationSeconds),
	)
	e.emitLocked(model.EventSessionStarted, nil)
	return nil
}

// PlayAgain deals a brand-new session and starts it. Not valid while a
// session is running.
func (e *Engine) PlayAgain() (model.GameSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.session.Clone(), model.ErrEngineClosed
	}
	if e.session.Status == model.SessionRunning {
		e.session.Message = "Game is already running"
		return e.session.Clone(), model.ErrSessionAlreadyRunning
	}

	e.newSessionLocked()
	if err := e.startLocked(); err != nil {
		return e.session.Clone(), err
	}
	return e.session.Clone(), nil
}

// Tick counts one second down. Reaching zero ends the session in the same
// transition, so no observer sees a running session with no time left.
func (e *Engine) Tick() (model.GameSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.session.Clone(), model.ErrEngineClosed
	}
	if err := e.tickLocked(); err != nil {
		return e.session.Clone(), err
	}
	return e.session.Clone(), nil
}

func (e *Engine) tickLocked() error {
	s := e.session
	if s.Status != model.SessionRunning {
		return model.ErrSessionNotRunning
	}

	if s.TimeLeftSeconds > 0 {
		s.TimeLeftSeconds--
	}
	e.emitLocked(model.EventTick, nil)

	if s.TimeLeftSeconds == 0 {
		e.endLocked(model.EndReasonTimeout)
	}
	return nil
}

// Submit evaluates a word against the live rack. Rejections are reported
// in the Outcome, never as errors.
func (e *Engine) Submit(raw string) (model.Outcome, model.GameSession) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.submitLocked(raw)
	return out, e.session.Clone()
}

// SubmitPending submits the pending input buffer
func (e *Engine) SubmitPending() (model.Outcome, model.GameSession) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.submitLocked(e.session.PendingInput)
	return out, e.session.Clone()
}

func (e *Engine) submitLocked(raw string) model.Outcome {
	s := e.session

	if e.closed || s.Status != model.SessionRunning {
		out := model.Outcome{
			Word:    scoring.Normalize(raw),
			Reason:  model.RejectNotRunning,
			Message: model.RejectNotRunning.Message(),
		}
		s.Message = out.Message
		return out
	}

	v := e.deps.Validator.Evaluate(raw, s.Rack.Counts(), s.HasWord)
	if !v.Accepted() {
		s.Message = v.Reason.Message()
		e.logger.Debug("word rejected",
			slog.String("word", v.Word),
			slog.String("reason", string(v.Reason)),
		)
		e.emitLocked(model.EventWordRejected, model.WordRejectedPayload{Word: v.Word, Reason: v.Reason})
		return model.Outcome{
			Word:    v.Word,
			Reason:  v.Reason,
			Message: s.Message,
		}
	}

	accepted := model.AcceptedWord{
		Text:       v.Word,
		Points:     v.Points,
		AcceptedAt: e.deps.Clock.Now(),
	}
	s.AcceptedWords = append([]model.AcceptedWord{accepted}, s.AcceptedWords...)
	s.Score += v.Points
	s.PendingInput = ""
	s.Message = fmt.Sprintf("+%d for %s", v.Points, strings.ToUpper(v.Word))

	e.logger.Debug("word accepted",
		slog.String("word", v.Word),
		slog.Int("points", v.Points),
		slog.Int("score", s.Score),
	)
	e.emitLocked(model.EventWordAccepted, model.WordAcceptedPayload{Word: v.Word, Points: v.Points})

	return model.Outcome{
		Accepted: true,
		Word:     v.Word,
		Points:   v.Points,
		Message:  s.Message,
	}
}

// AddLetter appends a letter to the pending input. Allowed in any status.
func (e *Engine) AddLetter(r rune) (model.GameSession, error) {
	l, ok := model.ParseLetter(r)
	if !ok {
		return e.Snapshot(), model.ErrInvalidLetter
	}
	return e.editInput(func(in string) string { return in + l.String() })
}

// Backspace removes the last pending letter, if any
func (e *Engine) Backspace() (model.GameSession, error) {
	return e.editInput(func(in string) string {
		if in == "" {
			return in
		}
		return in[:len(in)-1]
	})
}

// ClearInput empties the pending input
func (e *Engine) ClearInput() (model.GameSession, error) {
	return e.editInput(func(string) string { return "" })
}

func (e *Engine) editInput(edit func(string) string) (model.GameSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.session.Clone(), model.ErrEngineClosed
	}
	before := e.session.PendingInput
	e.session.PendingInput = edit(before)
	if e.session.PendingInput != before {
		e.emitLocked(model.EventInputChanged, nil)
	}
	return e.session.Clone(), nil
}

// Shuffle deals a new rack for the running session. Score and accepted
// words are kept.
func (e *Engine) Shuffle() (model.GameSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.session.Clone(), model.ErrEngineClosed
	}
	s := e.session
	if s.Status != model.SessionRunning {
		s.Message = model.RejectNotRunning.Message()
		return s.Clone(), model.ErrSessionNotRunning
	}

	s.Rack = e.deps.Racks.BuildRack(s.Options.RackSize)
	s.Message = "New letters!"
	e.emitLocked(model.EventRackShuffled, nil)
	return s.Clone(), nil
}

// End finishes the running session. Only a running session can end, which
// makes the persistence hand-off happen at most once per session even when
// a manual end races the timer.
func (e *Engine) End() (model.GameSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.session.Clone(), model.ErrEngineClosed
	}
	if e.session.Status != model.SessionRunning {
		return e.session.Clone(), model.ErrSessionNotRunning
	}
	e.endLocked(model.EndReasonManual)
	return e.session.Clone(), nil
}

func (e *Engine) endLocked(reason model.EndReason) {
	s := e.session
	e.stopTimerLocked()

	s.Status = model.SessionEnded
	s.EndedAt = e.deps.Clock.Now()
	s.EndReason = reason
	if reason == model.EndReasonTimeout {
		s.Message = "Time's up!"
	} else {
		s.Message = "Game over"
	}

	summary := s.Summary()
	e.logger.Info("session ended",
		slog.String("session_id", string(s.ID)),
		slog.String("reason", string(reason)),
		slog.Int("score", s.Score),
		slog.Int("words", len(s.AcceptedWords)),
	)
	e.emitLocked(model.EventSessionEnded, model.SessionEndedPayload{Summary: summary})
	e.persistAsync(summary)
}

// persistAsync hands the summary to the collaborators off the caller's
// goroutine. Failures are logged and dropped; the in-memory result stands.
func (e *Engine) persistAsync(summary model.SessionSummary) {
	if e.deps.Recorder == nil && e.deps.Leaderboard == nil {
		return
	}

	e.persisting.Add(1)
	go func() {
		defer e.persisting.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
		defer cancel()

		logger := e.logger.With(slog.String("session_id", string(summary.SessionID)))
		if e.deps.Recorder != nil {
			if err := e.deps.Recorder.RecordSession(ctx, summary); err != nil {
				logger.Error("failed to record session", slog.String("error", err.Error()))
			}
		}
		if e.deps.Leaderboard != nil {
			if err := e.deps.Leaderboard.UpdateLeaderboard(ctx, summary.PlayerID, summary.Score); err != nil {
				logger.Error("failed to update leaderboard", slog.String("error", err.Error()))
			}
		}
	}()
}

// Subscribe returns a channel of events for every transition from now on
// and a function that ends the subscription. Slow subscribers miss events
// rather than stall the engine.
func (e *Engine) Subscribe() (<-chan model.Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan model.Event, subscriberBuffer)
	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subscribers[id]; ok {
				delete(e.subscribers, id)
				close(sub)
			}
		})
	}
}

func (e *Engine) emitLocked(t model.EventType, payload any) {
	if len(e.subscribers) == 0 {
		return
	}
	evt := model.Event{
		Type:      t,
		Timestamp: e.deps.Clock.Now(),
		GameID:    e.cfg.GameID,
		Session:   e.session.Clone(),
		Payload:   payload,
	}
	for id, ch := range e.subscribers {
		select {
		case ch <- evt:
		default:
			e.logger.Warn("dropping event for slow subscriber",
				slog.Int("subscriber", id),
				slog.String("event", string(t)),
			)
		}
	}
}

// Close tears the engine down: the timer stops, subscriptions close and
// in-flight persistence is awaited. A running session is discarded without
// being recorded. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		e.stopTimerLocked()
		for id, ch := range e.subscribers {
			delete(e.subscribers, id)
			close(ch)
		}
		e.logger.Debug("engine closed")
	}
	e.mu.Unlock()

	e.persisting.Wait()
}
