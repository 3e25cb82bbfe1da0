package rack

import (
	"log/slog"

	"github.com/mcoot/wordbattles/internal/dependencies/random"
	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/model"
)

// fallbackLetter is dealt if float drift leaves a draw unresolved
var fallbackLetter = model.MustParseLetter('e')

// Service deals racks from a weighted letter table
type Service struct {
	table  *letters.Table
	random random.Random
	logger *slog.Logger
}

// New creates a new rack Service
func New(table *letters.Table, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		table:  table,
		random: rnd,
		logger: logger.With(slog.String("component", "rack")),
	}
}

// BuildRack draws size letters with replacement, each proportional to its
// weight, then repairs the rack until it holds at least two vowels.
func (s *Service) BuildRack(size int) model.Rack {
	if size <= 0 {
		return model.Rack{Letters: []model.Letter{}}
	}

	drawn := make([]model.Letter, size)
	for i := range drawn {
		drawn[i] = s.draw()
	}

	repairs := s.repairVowels(drawn)
	if repairs > 0 {
		s.logger.Debug("rack vowel repair applied",
			slog.Int("overwrites", repairs),
			slog.Int("rack_size", size),
		)
	}

	return model.Rack{Letters: drawn}
}

// draw picks one letter: a uniform value in [0, totalWeight) is reduced by
// each weight in table order until it is no longer positive.
func (s *Service) draw() model.Letter {
	r := s.random.Float64() * float64(s.table.TotalWeight())
	for _, e := range s.table.Entries() {
		r -= float64(e.Weight)
		if r <= 0 {
			return e.Letter
		}
	}
	return fallbackLetter
}

// repairVowels overwrites random positions with random vowels until the
// vowel minimum is met. Overwriting may replace a vowel or a high-value
// letter; that is accepted. Returns the number of overwrites.
func (s *Service) repairVowels(drawn []model.Letter) int {
	need := min(model.MinRackVowels, len(drawn))
	overwrites := 0
	for (model.Rack{Letters: drawn}).VowelCount() < need {
		pos := s.random.Intn(len(drawn))
		drawn[pos] = model.Vowels[s.random.Intn(len(model.Vowels))]
		overwrites++
	}
	return overwrites
}

// ServiceInterface is the rack dealing contract used by the game engine
type ServiceInterface interface {
	BuildRack(size int) model.Rack
}

var _ ServiceInterface = (*Service)(nil)
