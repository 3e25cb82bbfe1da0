package model

import "strings"

// AlphabetSize is the number of letters in the closed game alphabet
const AlphabetSize = 26

// Letter is one of the 26 lowercase letters a-z, stored as 0..25
type Letter uint8

// Vowels are the letters counted by the rack vowel guarantee
var Vowels = [...]Letter{0, 4, 8, 14, 20} // a e i o u

// ParseLetter converts a rune to a Letter, accepting either case
func ParseLetter(r rune) (Letter, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return Letter(r - 'a'), true
	case r >= 'A' && r <= 'Z':
		return Letter(r - 'A'), true
	default:
		return 0, false
	}
}

// MustParseLetter is ParseLetter for known-good input; it panics otherwise
func MustParseLetter(r rune) Letter {
	l, ok := ParseLetter(r)
	if !ok {
		panic("invalid letter: " + string(r))
	}
	return l
}

// Rune returns the lowercase rune for the letter
func (l Letter) Rune() rune {
	return rune('a' + l)
}

// String returns the letter as a one-character string
func (l Letter) String() string {
	return string(l.Rune())
}

// IsVowel reports whether the letter is a, e, i, o or u
func (l Letter) IsVowel() bool {
	for _, v := range Vowels {
		if l == v {
			return true
		}
	}
	return false
}

// LetterCounts is a multiset tally over the alphabet, indexed by Letter
type LetterCounts [AlphabetSize]int

// CountLetters tallies the letters of a lowercase a-z word.
// Runes outside a-z are ignored.
func CountLetters(word string) LetterCounts {
	var counts LetterCounts
	for _, r := range word {
		if r >= 'a' && r <= 'z' {
			counts[r-'a']++
		}
	}
	return counts
}

// Total returns the number of letters in the multiset
func (c LetterCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Contains reports whether every letter of other fits within c
func (c LetterCounts) Contains(other LetterCounts) bool {
	for i, n := range other {
		if n > c[i] {
			return false
		}
	}
	return true
}

// String renders the multiset as sorted letters, e.g. "acdgost"
func (c LetterCounts) String() string {
	var sb strings.Builder
	for i, n := range c {
		for j := 0; j < n; j++ {
			sb.WriteRune(Letter(i).Rune())
		}
	}
	return sb.String()
}
