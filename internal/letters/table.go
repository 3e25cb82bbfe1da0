// Package letters holds the weighted letter bag and point values used to
// deal racks and score words.
package letters

import "github.com/mcoot/wordbattles/internal/model"

// Entry is one row of the distribution table
type Entry struct {
	Letter model.Letter
	Weight int // relative draw frequency
	Points int // score value
}

// Table is an immutable distribution over the 26 letters, in alphabet order
type Table struct {
	entries     [model.AlphabetSize]Entry
	totalWeight int
}

// NewTable builds a table from per-letter weights and points, both indexed
// by model.Letter
func NewTable(weights, points [model.AlphabetSize]int) *Table {
	t := &Table{}
	for i := range t.entries {
		t.entries[i] = Entry{
			Letter: model.Letter(i),
			Weight: weights[i],
			Points: points[i],
		}
		t.totalWeight += weights[i]
	}
	return t
}

//	a  b  c  d  e   f  g  h  i  j  k  l  m  n  o  p  q   r  s  t  u  v  w  x  y  z
var englishWeights = [model.AlphabetSize]int{
	9, 2, 2, 4, 12, 2, 3, 2, 9, 1, 1, 4, 2, 6, 8, 2, 1, 6, 4, 6, 4, 2, 2, 1, 2, 1,
}

var englishPoints = [model.AlphabetSize]int{
	1, 3, 3, 2, 1, 4, 2, 4, 1, 8, 5, 1, 3, 1, 1, 3, 10, 1, 1, 1, 1, 4, 4, 8, 4, 10,
}

var english = NewTable(englishWeights, englishPoints)

// English returns the shared Scrabble-style English table
func English() *Table {
	return english
}

// Entries returns a copy of the table rows in alphabet order
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries[:])
	return out
}

// Points returns the score value of a letter
func (t *Table) Points(l model.Letter) int {
	return t.entries[l].Points
}

// Weight returns the draw weight of a letter
func (t *Table) Weight(l model.Letter) int {
	return t.entries[l].Weight
}

// TotalWeight is the sum of all draw weights
func (t *Table) TotalWeight() int {
	return t.totalWeight
}
