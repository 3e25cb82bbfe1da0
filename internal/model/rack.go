package model

import "strings"

// DefaultRackSize is the number of letters dealt when no size is configured
const DefaultRackSize = 7

// MinRackVowels is the vowel guarantee applied after a rack is drawn
const MinRackVowels = 2

// Rack is the player's current hand of letters.
// Racks are replaced on shuffle, never edited in place.
type Rack struct {
	Letters []Letter
}

// NewRack builds a rack from the given letters
func NewRack(letters []Letter) Rack {
	cp := make([]Letter, len(letters))
	copy(cp, letters)
	return Rack{Letters: cp}
}

// ParseRack builds a rack from a string such as "catdogs".
// Characters outside a-z/A-Z are skipped.
func ParseRack(s string) Rack {
	letters := make([]Letter, 0, len(s))
	for _, r := range s {
		if l, ok := ParseLetter(r); ok {
			letters = append(letters, l)
		}
	}
	return Rack{Letters: letters}
}

// Size returns the number of letters on the rack
func (r Rack) Size() int {
	return len(r.Letters)
}

// Counts returns the multiset tally of the rack
func (r Rack) Counts() LetterCounts {
	var counts LetterCounts
	for _, l := range r.Letters {
		counts[l]++
	}
	return counts
}

// VowelCount returns how many rack letters are vowels
func (r Rack) VowelCount() int {
	n := 0
	for _, l := range r.Letters {
		if l.IsVowel() {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the rack
func (r Rack) Clone() Rack {
	return NewRack(r.Letters)
}

// String returns the rack letters in order, e.g. "catdogs"
func (r Rack) String() string {
	var sb strings.Builder
	for _, l := range r.Letters {
		sb.WriteRune(l.Rune())
	}
	return sb.String()
}

// Strings returns each rack letter as its own string
func (r Rack) Strings() []string {
	out := make([]string, len(r.Letters))
	for i, l := range r.Letters {
		out[i] = l.String()
	}
	return out
}
