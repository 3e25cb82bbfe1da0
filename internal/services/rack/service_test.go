package rack

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordbattles/internal/dependencies/mocks"
	"github.com/mcoot/wordbattles/internal/dependencies/random"
	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.service = New(letters.English(), s.random, testutil.NopLogger())
}

// queueLetters queues Float64 values that land in the middle of each
// letter's weight band, so draw() returns exactly those letters
func (s *ServiceSuite) queueLetters(word string) {
	table := letters.English()
	total := float64(table.TotalWeight())
	for _, r := range word {
		target := model.MustParseLetter(r)
		before := 0
		for _, e := range table.Entries() {
			if e.Letter == target {
				break
			}
			before += e.Weight
		}
		mid := float64(before) + float64(table.Weight(target))/2
		s.random.QueueFloat64(mid / total)
	}
}

func (s *ServiceSuite) TestBuildRackDrawsWeightedLetters() {
	s.queueLetters("catdogs")

	rack := s.service.BuildRack(7)

	s.Equal("catdogs", rack.String())
	s.Equal(7, rack.Size())
}

func (s *ServiceSuite) TestBuildRackCountsMatchLetters() {
	s.queueLetters("eelatte")

	rack := s.service.BuildRack(7)
	counts := rack.Counts()

	s.Equal(7, counts.Total())
	s.Equal(3, counts[model.MustParseLetter('e')])
	s.Equal(2, counts[model.MustParseLetter('t')])
}

func (s *ServiceSuite) TestZeroDrawSelectsFirstLetter() {
	s.random.QueueFloat64(0, 0, 0)

	rack := s.service.BuildRack(3)

	s.Equal("aaa", rack.String())
}

func (s *ServiceSuite) TestLastBandSelectsZ() {
	s.random.QueueFloat64(0.9999, 0.5, 0.5)
	// Both draws after z are consonants, so repair positions 1 and 2
	s.random.QueueIntn(1, 0, 2, 1)

	rack := s.service.BuildRack(3)

	s.Equal('z', rack.Letters[0].Rune())
	s.Equal(2, rack.VowelCount())
}

func (s *ServiceSuite) TestUnresolvedDrawFallsBackToE() {
	// A value past the table total never reaches zero
	s.random.QueueFloat64(1.5, 1.5, 1.5)

	rack := s.service.BuildRack(3)

	s.Equal("eee", rack.String())
}

func (s *ServiceSuite) TestVowelRepairOverwritesUntilTwoVowels() {
	s.queueLetters("bcdfghj")
	s.random.QueueIntn(
		0, 1, // position 0 -> e
		0, 2, // position 0 -> i (replaces the e, still one vowel)
		3, 4, // position 3 -> u
	)

	rack := s.service.BuildRack(7)

	s.Equal("icdughj", rack.String())
	s.Equal(2, rack.VowelCount())
}

func (s *ServiceSuite) TestVowelRepairMayReplaceHighValueLetter() {
	s.queueLetters("qzbcdfa")
	s.random.QueueIntn(0, 0) // position 0 (q) -> a

	rack := s.service.BuildRack(7)

	s.Equal("azbcdfa", rack.String())
	s.Equal(0, rack.Counts()[model.MustParseLetter('q')])
}

func (s *ServiceSuite) TestNoRepairWhenVowelsPresent() {
	s.queueLetters("aebcdfg")
	s.random.QueueIntn(6, 4) // would turn g into u if consumed

	rack := s.service.BuildRack(7)

	s.Equal("aebcdfg", rack.String())
}

func (s *ServiceSuite) TestSingleLetterRackNeedsOneVowel() {
	s.queueLetters("k")
	s.random.QueueIntn(0, 3) // -> o

	rack := s.service.BuildRack(1)

	s.Equal("o", rack.String())
}

func (s *ServiceSuite) TestZeroSizeRackIsEmpty() {
	rack := s.service.BuildRack(0)

	s.Equal(0, rack.Size())
}

func TestRandomRacksHoldInvariants(t *testing.T) {
	svc := New(letters.English(), random.New(), testutil.NopLogger())

	for _, size := range []int{2, 5, 7, 12} {
		for i := 0; i < 500; i++ {
			rack := svc.BuildRack(size)
			if rack.Size() != size {
				t.Fatalf("rack size = %d, want %d", rack.Size(), size)
			}
			if rack.Counts().Total() != size {
				t.Fatalf("counts total = %d, want %d", rack.Counts().Total(), size)
			}
			if rack.VowelCount() < model.MinRackVowels {
				t.Fatalf("rack %q has %d vowels", rack.String(), rack.VowelCount())
			}
		}
	}
}
