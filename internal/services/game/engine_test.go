package game

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordbattles/internal/dependencies/mocks"
	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/dictionary"
	"github.com/mcoot/wordbattles/internal/services/scoring"
	"github.com/mcoot/wordbattles/internal/storage/memory"
	"github.com/mcoot/wordbattles/internal/testutil"
)

const (
	waitFor = time.Second
	pollInt = 5 * time.Millisecond
)

type EngineSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	racks   *stubRacks
	rec     *recorder
	dict    *dictionary.Service
	logger  *slog.Logger
	engines []*Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(testutil.FixedTime())
	s.racks = newStubRacks("catdogs", "reading", "eatsnow")
	s.rec = newRecorder()
	s.dict = dictionary.New(memory.New(), testutil.NopLogger())
	s.Require().NoError(s.dict.LoadWords([]string{"cat", "dog", "cats", "dogs", "god", "ab", "reading"}))
	s.logger = testutil.NopLogger()
	s.engines = nil
}

func (s *EngineSuite) TearDownTest() {
	for _, e := range s.engines {
		e.Close()
	}
}

func (s *EngineSuite) newEngine(opts model.GameOptions) *Engine {
	opts = opts.WithDefaults()
	e := NewEngine(EngineConfig{
		GameID:   "GAME1",
		PlayerID: "player-1",
		Options:  opts,
	}, EngineDeps{
		Racks:       s.racks,
		Validator:   scoring.New(letters.English(), s.dict, opts.MinLength),
		Recorder:    s.rec,
		Leaderboard: s.rec,
		Clock:       s.clock,
		Logger:      s.logger,
	})
	s.engines = append(s.engines, e)
	return e
}

func (s *EngineSuite) started(opts model.GameOptions) *Engine {
	e := s.newEngine(opts)
	_, err := e.Start()
	s.Require().NoError(err)
	return e
}

func (s *EngineSuite) fire() {
	ticker := s.clock.LastTicker()
	s.Require().NotNil(ticker)
	s.Require().True(ticker.Fire(), "tick was not received")
}

// Creation

func (s *EngineSuite) TestNewEngineIsIdleWithRack() {
	e := s.newEngine(model.GameOptions{})
	snap := e.Snapshot()

	s.Equal(model.SessionIdle, snap.Status)
	s.Equal("catdogs", snap.Rack.String())
	s.Equal(model.DefaultDurationSeconds, snap.TimeLeftSeconds)
	s.Equal(0, snap.Score)
	s.Empty(snap.AcceptedWords)
	s.Nil(snap.Opponent)
	s.NotEmpty(snap.ID)
	s.Equal(model.PlayerID("player-1"), snap.PlayerID)
	s.False(e.timerRunning())
}

func (s *EngineSuite) TestOpponentPresentOnlyWhenEnabled() {
	e := s.started(model.GameOptions{AIEnabled: lo.ToPtr(true)})
	snap := e.Snapshot()
	s.Require().NotNil(snap.Opponent)
	s.True(snap.Opponent.Enabled)

	e.Submit("cat")
	_, err := e.End()
	s.Require().NoError(err)

	snap = e.Snapshot()
	s.Equal(0, snap.Opponent.Score)
	s.Empty(snap.Opponent.Words)

	s.Eventually(func() bool { return s.rec.recordCount() == 1 }, waitFor, pollInt)
	sum := s.rec.lastSummary()
	s.Require().NotNil(sum.OpponentScore)
	s.Equal(0, *sum.OpponentScore)
}

// Submit

func (s *EngineSuite) TestSubmitWhileIdleIsRejected() {
	e := s.newEngine(model.GameOptions{})

	out, snap := e.Submit("cat")

	s.False(out.Accepted)
	s.Equal(model.RejectNotRunning, out.Reason)
	s.Equal("Game is not running", snap.Message)
	s.Equal(model.SessionIdle, snap.Status)
	s.Equal(0, snap.Score)
	s.Empty(snap.AcceptedWords)
}

func (s *EngineSuite) TestScenarioCatDogs() {
	e := s.started(model.GameOptions{})

	out, snap := e.Submit("cat")
	s.True(out.Accepted)
	s.Equal(5, out.Points)
	s.Equal(5, snap.Score)
	s.Equal("+5 for CAT", snap.Message)

	out, snap = e.Submit("CAT")
	s.False(out.Accepted)
	s.Equal(model.RejectAlreadyUsed, out.Reason)
	s.Equal("Word already used", snap.Message)
	s.Equal(5, snap.Score)

	out, snap = e.Submit("cats")
	s.True(out.Accepted)
	s.Equal(11, snap.Score)

	s.Require().Len(snap.AcceptedWords, 2)
	s.Equal("cats", snap.AcceptedWords[0].Text)
	s.Equal("cat", snap.AcceptedWords[1].Text)
	s.True(testutil.FixedTime().Equal(snap.AcceptedWords[0].AcceptedAt))
}

func (s *EngineSuite) TestCatsRejectedWithoutS() {
	s.racks = newStubRacks("catdogx")
	e := s.started(model.GameOptions{})

	out, snap := e.Submit("cats")
	s.Equal(model.RejectNotFormable, out.Reason)
	s.Equal("Word can't be made from your letters", snap.Message)
	s.Equal(0, snap.Score)
}

func (s *EngineSuite) TestTooShortReportedBeforeDictionary() {
	e := s.started(model.GameOptions{})

	out, _ := e.Submit("ab")
	s.Equal(model.RejectTooShort, out.Reason)

	out, _ = e.Submit("zz")
	s.Equal(model.RejectTooShort, out.Reason)
}

func (s *EngineSuite) TestNotInDictionary() {
	e := s.started(model.GameOptions{})

	out, snap := e.Submit("cog")
	s.Equal(model.RejectNotInDictionary, out.Reason)
	s.Equal("Not a valid word", snap.Message)
}

func (s *EngineSuite) TestAcceptedWordsWereFormable() {
	e := s.started(model.GameOptions{})
	counts := e.Snapshot().Rack.Counts()

	for _, w := range []string{"cat", "dog", "god", "dogs", "cats", "cog", "goat"} {
		out, _ := e.Submit(w)
		if out.Accepted {
			s.True(scoring.CanForm(out.Word, counts), out.Word)
		}
	}
}

// Pending input

func (s *EngineSuite) TestInputEditing() {
	e := s.newEngine(model.GameOptions{})

	_, _ = e.AddLetter('c')
	_, _ = e.AddLetter('A')
	snap, err := e.AddLetter('t')
	s.Require().NoError(err)
	s.Equal("cat", snap.PendingInput)

	_, err = e.AddLetter('1')
	s.ErrorIs(err, model.ErrInvalidLetter)

	snap, _ = e.Backspace()
	s.Equal("ca", snap.PendingInput)

	snap, _ = e.ClearInput()
	s.Equal("", snap.PendingInput)

	snap, err = e.Backspace()
	s.Require().NoError(err)
	s.Equal("", snap.PendingInput)
}

func (s *EngineSuite) TestSubmitPendingClearsOnAccept() {
	e := s.started(model.GameOptions{})
	for _, r := range "dog" {
		_, _ = e.AddLetter(r)
	}

	out, snap := e.SubmitPending()
	s.True(out.Accepted)
	s.Equal("", snap.PendingInput)
	s.Equal(5, snap.Score)
}

func (s *EngineSuite) TestRejectedSubmitKeepsPendingInput() {
	e := s.started(model.GameOptions{})
	for _, r := range "cog" {
		_, _ = e.AddLetter(r)
	}

	out, snap := e.SubmitPending()
	s.False(out.Accepted)
	s.Equal("cog", snap.PendingInput)
}

// Start

func (s *EngineSuite) TestStartArmsTimer() {
	e := s.newEngine(model.GameOptions{DurationSeconds: 30})

	snap, err := e.Start()
	s.Require().NoError(err)
	s.Equal(model.SessionRunning, snap.Status)
	s.Equal(30, snap.TimeLeftSeconds)
	s.True(testutil.FixedTime().Equal(snap.StartedAt))
	s.True(e.timerRunning())
	s.Equal(time.Second, s.clock.LastTicker().Interval)
}

func (s *EngineSuite) TestStartWhileRunningIsRejected() {
	e := s.started(model.GameOptions{})
	_, _ = e.Submit("cat")

	snap, err := e.Start()
	s.ErrorIs(err, model.ErrSessionAlreadyRunning)
	s.Equal("Game is already running", snap.Message)
	s.Equal(5, snap.Score)
	s.Len(s.clock.Tickers(), 1)
}

func (s *EngineSuite) TestStartAfterEndDealsNewSession() {
	e := s.started(model.GameOptions{})
	_, _ = e.Submit("cat")
	first, _ := e.End()
	oldTicker := s.clock.LastTicker()

	snap, err := e.Start()
	s.Require().NoError(err)

	s.NotEqual(first.ID, snap.ID)
	s.Equal(model.SessionRunning, snap.Status)
	s.Equal(0, snap.Score)
	s.Empty(snap.AcceptedWords)
	s.Equal("reading", snap.Rack.String())
	s.True(oldTicker.Stopped())
	s.False(oldTicker.Fire())

	s.Eventually(func() bool { return s.rec.recordCount() == 1 }, waitFor, pollInt)
}

// Tick and timer

func (s *EngineSuite) TestTickWhileIdleIsRejected() {
	e := s.newEngine(model.GameOptions{})

	snap, err := e.Tick()
	s.ErrorIs(err, model.ErrSessionNotRunning)
	s.Equal(model.DefaultDurationSeconds, snap.TimeLeftSeconds)
}

func (s *EngineSuite) TestFiveTicksEndSessionOnce() {
	e := s.started(model.GameOptions{DurationSeconds: 5})

	for i := 0; i < 4; i++ {
		snap, err := e.Tick()
		s.Require().NoError(err)
		s.Equal(model.SessionRunning, snap.Status)
		s.Equal(4-i, snap.TimeLeftSeconds)
	}

	snap, err := e.Tick()
	s.Require().NoError(err)
	s.Equal(model.SessionEnded, snap.Status)
	s.Equal(0, snap.TimeLeftSeconds)
	s.Equal(model.EndReasonTimeout, snap.EndReason)
	s.Equal("Time's up!", snap.Message)
	s.False(e.timerRunning())

	_, err = e.Tick()
	s.ErrorIs(err, model.ErrSessionNotRunning)

	e.Close()
	s.Equal(1, s.rec.recordCount())
	s.Equal(1, s.rec.leaderboardCount())
}

func (s *EngineSuite) TestTimerDrivesCountdown() {
	e := s.started(model.GameOptions{DurationSeconds: 5})
	ticker := s.clock.LastTicker()

	for i := 1; i <= 5; i++ {
		s.fire()
		want := 5 - i
		s.Eventually(func() bool { return e.Snapshot().TimeLeftSeconds == want }, waitFor, pollInt)
	}

	s.Eventually(func() bool { return e.Snapshot().Status == model.SessionEnded }, waitFor, pollInt)
	s.True(ticker.Stopped())
	s.False(ticker.Fire())

	s.Eventually(func() bool { return s.rec.recordCount() == 1 }, waitFor, pollInt)
	s.Equal(model.EndReasonTimeout, s.rec.lastSummary().EndReason)
	s.True(testutil.FixedTime().Add(5 * time.Second).Equal(s.rec.lastSummary().EndedAt))
}

func (s *EngineSuite) TestStaleTimerTickIsIgnored() {
	e := s.started(model.GameOptions{DurationSeconds: 10})
	staleGen := e.currentGeneration()
	_, _ = e.End()

	_, err := e.PlayAgain()
	s.Require().NoError(err)
	s.NotEqual(staleGen, e.currentGeneration())

	e.onTimerTick(staleGen)
	s.Equal(10, e.Snapshot().TimeLeftSeconds)

	e.onTimerTick(e.currentGeneration())
	s.Equal(9, e.Snapshot().TimeLeftSeconds)
}

// Shuffle

func (s *EngineSuite) TestShufflePreservesScoreAndWords() {
	e := s.started(model.GameOptions{})
	_, _ = e.Submit("cat")
	before := e.Snapshot()

	snap, err := e.Shuffle()
	s.Require().NoError(err)

	s.NotEqual(before.Rack.String(), snap.Rack.String())
	s.Equal(before.Score, snap.Score)
	s.Equal(before.AcceptedWords, snap.AcceptedWords)
	s.Equal(model.SessionRunning, snap.Status)
}

func (s *EngineSuite) TestShuffleWhileIdleIsRejected() {
	e := s.newEngine(model.GameOptions{})

	snap, err := e.Shuffle()
	s.ErrorIs(err, model.ErrSessionNotRunning)
	s.Equal("catdogs", snap.Rack.String())
}

// End

func (s *EngineSuite) TestEndTwicePersistsOnce() {
	e := s.started(model.GameOptions{})
	_, _ = e.Submit("dogs")

	snap, err := e.End()
	s.Require().NoError(err)
	s.Equal(model.SessionEnded, snap.Status)
	s.Equal(model.EndReasonManual, snap.EndReason)

	_, err = e.End()
	s.ErrorIs(err, model.ErrSessionNotRunning)

	e.Close()
	s.Equal(1, s.rec.recordCount())
	s.Equal([]int{6}, s.rec.deltas["player-1"])

	sum := s.rec.lastSummary()
	s.Equal(6, sum.Score)
	s.Equal("catdogs", sum.Rack)
	s.Require().Len(sum.Words, 1)
	s.Equal("dogs", sum.Words[0].Text)
}

func (s *EngineSuite) TestEndWhileIdleIsRejected() {
	e := s.newEngine(model.GameOptions{})

	_, err := e.End()
	s.ErrorIs(err, model.ErrSessionNotRunning)

	e.Close()
	s.Equal(0, s.rec.recordCount())
}

func (s *EngineSuite) TestConcurrentEndsPersistOnce() {
	e := s.started(model.GameOptions{})

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.End(); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	e.Close()

	s.Equal(1, successes)
	s.Equal(1, s.rec.recordCount())
}

func (s *EngineSuite) TestManualEndRacingTimerPersistsOnce() {
	for i := 0; i < 10; i++ {
		s.clock = mocks.NewMockClock(testutil.FixedTime())
		s.rec = newRecorder()
		e := s.started(model.GameOptions{DurationSeconds: 1})
		ticker := s.clock.LastTicker()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			ticker.Fire()
		}()
		go func() {
			defer wg.Done()
			_, _ = e.End()
		}()
		wg.Wait()

		s.Eventually(func() bool { return e.Snapshot().Status == model.SessionEnded }, waitFor, pollInt)
		e.Close()
		s.Equal(1, s.rec.recordCount(), "iteration %d", i)
		s.Equal(1, s.rec.leaderboardCount(), "iteration %d", i)
	}
}

func (s *EngineSuite) TestPersistenceFailureIsSwallowed() {
	logger, logs := testutil.CaptureLogger()
	s.logger = logger
	s.rec.recordErr = errStorageDown
	e := s.started(model.GameOptions{})
	_, _ = e.Submit("cat")

	snap, err := e.End()
	s.Require().NoError(err)
	s.Equal(model.SessionEnded, snap.Status)
	s.Equal(5, snap.Score)

	e.Close()
	s.Equal(1, s.rec.recordCount())
	s.Equal(1, s.rec.leaderboardCount())
	s.Contains(logs.Messages(), "failed to record session")
	s.Contains(logs.Messages(), "failed to update leaderboard")
}

func (s *EngineSuite) TestEndReturnsBeforePersistenceCompletes() {
	s.rec.gate = make(chan struct{})
	e := s.started(model.GameOptions{})

	snap, err := e.End()
	s.Require().NoError(err)
	s.Equal(model.SessionEnded, snap.Status)
	s.Equal(0, s.rec.recordCount())

	closed := make(chan struct{})
	go func() {
		e.Close()
		close(closed)
	}()

	select {
	case <-closed:
		s.Fail("Close returned while persistence was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(s.rec.gate)
	s.Eventually(func() bool {
		select {
		case <-closed:
			return true
		default:
			return false
		}
	}, waitFor, pollInt)
	s.Equal(1, s.rec.recordCount())
}

func (s *EngineSuite) TestWorksWithoutCollaborators() {
	e := NewEngine(EngineConfig{Options: model.DefaultGameOptions()}, EngineDeps{
		Racks:     s.racks,
		Validator: scoring.New(letters.English(), s.dict, 3),
		Clock:     s.clock,
		Logger:    testutil.NopLogger(),
	})
	defer e.Close()

	_, _ = e.Start()
	_, _ = e.Submit("cat")
	snap, err := e.End()
	s.Require().NoError(err)
	s.Equal(5, snap.Score)
}

// PlayAgain

func (s *EngineSuite) TestPlayAgainWhileRunningIsRejected() {
	e := s.started(model.GameOptions{})
	before := e.Snapshot()

	snap, err := e.PlayAgain()
	s.ErrorIs(err, model.ErrSessionAlreadyRunning)
	s.Equal(before.ID, snap.ID)
}

func (s *EngineSuite) TestPlayAgainStartsFreshSession() {
	e := s.started(model.GameOptions{})
	_, _ = e.Submit("cat")
	first, _ := e.End()

	snap, err := e.PlayAgain()
	s.Require().NoError(err)
	s.NotEqual(first.ID, snap.ID)
	s.Equal(model.SessionRunning, snap.Status)
	s.Equal(0, snap.Score)
	s.True(e.timerRunning())
}

// Events

func (s *EngineSuite) TestSubscribeReceivesTransitions() {
	e := s.newEngine(model.GameOptions{})
	events, unsubscribe := e.Subscribe()
	defer unsubscribe()

	_, _ = e.Start()
	_, _ = e.Submit("cat")
	_, _ = e.Submit("xyz")
	_, _ = e.End()

	want := []model.EventType{
		model.EventSessionStarted,
		model.EventWordAccepted,
		model.EventWordRejected,
		model.EventSessionEnded,
	}
	for _, wt := range want {
		select {
		case evt := <-events:
			s.Equal(wt, evt.Type)
			s.Equal(model.GameID("GAME1"), evt.GameID)
			switch wt {
			case model.EventWordAccepted:
				s.Equal(model.WordAcceptedPayload{Word: "cat", Points: 5}, evt.Payload)
				s.Equal(5, evt.Session.Score)
			case model.EventSessionEnded:
				payload, ok := evt.Payload.(model.SessionEndedPayload)
				s.Require().True(ok)
				s.Equal(5, payload.Summary.Score)
				s.Equal(model.SessionEnded, evt.Session.Status)
			}
		case <-time.After(waitFor):
			s.FailNow("missing event", string(wt))
		}
	}
}

func (s *EngineSuite) TestEventSnapshotsAreIndependent() {
	e := s.started(model.GameOptions{})
	events, unsubscribe := e.Subscribe()
	defer unsubscribe()

	_, _ = e.Submit("cat")
	evt := <-events
	evt.Session.AcceptedWords[0].Text = "mutated"

	s.Equal("cat", e.Snapshot().AcceptedWords[0].Text)
}

func (s *EngineSuite) TestUnsubscribeClosesChannel() {
	e := s.newEngine(model.GameOptions{})
	events, unsubscribe := e.Subscribe()

	unsubscribe()
	unsubscribe()

	_, ok := <-events
	s.False(ok)
}

// Close

func (s *EngineSuite) TestCloseStopsTimerAndSubscriptions() {
	e := s.started(model.GameOptions{})
	events, _ := e.Subscribe()
	ticker := s.clock.LastTicker()

	e.Close()
	e.Close()

	s.True(ticker.Stopped())
	s.False(e.timerRunning())
	_, ok := <-events
	s.False(ok)

	_, err := e.Start()
	s.ErrorIs(err, model.ErrEngineClosed)
	out, _ := e.Submit("cat")
	s.Equal(model.RejectNotRunning, out.Reason)
	_, err = e.AddLetter('a')
	s.ErrorIs(err, model.ErrEngineClosed)

	// A session running at teardown is discarded, not recorded
	s.Equal(0, s.rec.recordCount())
}

func (s *EngineSuite) TestSubscribeAfterCloseIsClosed() {
	e := s.newEngine(model.GameOptions{})
	e.Close()

	events, _ := e.Subscribe()
	_, ok := <-events
	s.False(ok)
}
