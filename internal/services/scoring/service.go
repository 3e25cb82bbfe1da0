package scoring

import (
	"strings"

	"github.com/samber/lo"

	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/model"
)

// Length bonuses. Only the highest applicable tier is awarded.
const (
	LongWordLength   = 7
	LongWordBonus    = 7
	MediumWordLength = 5
	MediumWordBonus  = 3
)

// WordChecker reports whether a normalized word is in the dictionary
type WordChecker interface {
	IsValidWord(word string) bool
}

// Verdict is the result of evaluating a candidate word against a rack
type Verdict struct {
	Word   string // Normalized
	Points int    // Set only when Reason is RejectNone
	Reason model.RejectReason
}

// Accepted reports whether the word passed every check
func (v Verdict) Accepted() bool {
	return v.Reason == model.RejectNone
}

// Service validates and scores words built from a rack
type Service struct {
	table      *letters.Table
	dictionary WordChecker
	minLength  int
}

// New creates a new scoring Service. A non-positive minLength uses the default.
func New(table *letters.Table, dictionary WordChecker, minLength int) *Service {
	if minLength <= 0 {
		minLength = model.DefaultMinWordLength
	}
	return &Service{
		table:      table,
		dictionary: dictionary,
		minLength:  minLength,
	}
}

// Normalize lowercases raw and drops everything outside a-z
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanForm reports whether word uses no letter more often than counts holds
func CanForm(word string, counts model.LetterCounts) bool {
	return counts.Contains(model.CountLetters(word))
}

// Score sums the letter values of a normalized word and adds the length bonus
func (s *Service) Score(word string) int {
	points := lo.SumBy([]rune(word), func(r rune) int {
		l, ok := model.ParseLetter(r)
		if !ok {
			return 0
		}
		return s.table.Points(l)
	})
	return points + lengthBonus(len(word))
}

func lengthBonus(n int) int {
	switch {
	case n >= LongWordLength:
		return LongWordBonus
	case n >= MediumWordLength:
		return MediumWordBonus
	default:
		return 0
	}
}

// Evaluate runs the word checks in order and stops at the first failure:
// length, formable from the rack, in the dictionary, not already used.
// The caller is responsible for checking the session is running.
func (s *Service) Evaluate(raw string, counts model.LetterCounts, used func(word string) bool) Verdict {
	word := Normalize(raw)
	v := Verdict{Word: word}

	switch {
	case len(word) < s.minLength:
		v.Reason = model.RejectTooShort
	case !CanForm(word, counts):
		v.Reason = model.RejectNotFormable
	case !s.dictionary.IsValidWord(word):
		v.Reason = model.RejectNotInDictionary
	case used != nil && used(word):
		v.Reason = model.RejectAlreadyUsed
	default:
		v.Points = s.Score(word)
	}
	return v
}

// ServiceInterface is the validation contract used by the game engine
type ServiceInterface interface {
	Evaluate(raw string, counts model.LetterCounts, used func(word string) bool) Verdict
	Score(word string) int
}

var _ ServiceInterface = (*Service)(nil)
