package factory

import (
	"time"

	"github.com/mcoot/wordbattles/internal/config"
	"github.com/mcoot/wordbattles/internal/dependencies/mocks"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/storage/memory"
	"github.com/mcoot/wordbattles/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App backed by memory storage with mocked clock and
// randomness. Timers only tick when the test fires them.
func NewTestApp() *TestApp {
	cfg := config.Default()
	cfg.Persistence.Delay = time.Millisecond

	store := memory.New()
	mockClock := mocks.NewMockClock(testutil.FixedTime())
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(cfg, store, mockClock, mockRandom, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}

// QueueRack queues random draws so the next rack dealt is exactly word.
// word must carry enough vowels to skip the vowel repair.
func (t *TestApp) QueueRack(word string) {
	total := float64(t.Letters.TotalWeight())
	for _, r := range word {
		target := model.MustParseLetter(r)
		before := 0
		for _, e := range t.Letters.Entries() {
			if e.Letter == target {
				break
			}
			before += e.Weight
		}
		mid := float64(before) + float64(t.Letters.Weight(target))/2
		t.MockRandom.QueueFloat64(mid / total)
	}
}

// FireTick delivers one timer tick to the game's engine. It reports false
// if the game has no running timer.
func (t *TestApp) FireTick() bool {
	ticker := t.MockClock.LastTicker()
	if ticker == nil {
		return false
	}
	return ticker.Fire()
}

// LoadTestDictionary loads a small dictionary built around the rack "catdogs"
func (t *TestApp) LoadTestDictionary() error {
	words := []string{
		"act", "acts", "cat", "cats", "coat", "coats", "cod", "cods", "cog", "cogs",
		"cot", "cots", "dog", "dogs", "dot", "dots", "goat", "goats", "god", "gods",
		"scat", "sod", "stag", "tag", "tags", "taco", "tacos", "toad", "toads",
		"coast", "ascot",
	}
	return t.DictionaryService.LoadWords(words)
}
