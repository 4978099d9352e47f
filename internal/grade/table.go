// Package grade holds the static grade table used to convert grade labels
// into grade points and percentage equivalents.
package grade

import (
	"math"
	"strconv"
	"strings"
)

// MaxPoints is the highest grade point value in the table.
const MaxPoints = 4.0

// distanceScale quantises distances in Nearest so that decimal inputs such
// as 3.55 compare equal against 3.4 and 3.7.
const distanceScale = 1e6

// Entry is a single row of the grade table.
type Entry struct {
	Label      string  `json:"label"`      // lookup key, e.g. "3.7"
	Points     float64 `json:"points"`     // grade points, 0.0 - 4.0
	Percentage float64 `json:"percentage"` // percentage equivalent
	Letter     string  `json:"letter"`     // letter grade, e.g. "A"
}

// entries is ordered by descending points. Iteration order matters for
// Nearest, where the first entry wins a tie.
var entries = []Entry{
	{Label: "4.0", Points: 4.0, Percentage: 96, Letter: "A+"},
	{Label: "3.7", Points: 3.7, Percentage: 92, Letter: "A"},
	{Label: "3.4", Points: 3.4, Percentage: 88, Letter: "A-"},
	{Label: "3.2", Points: 3.2, Percentage: 84, Letter: "B+"},
	{Label: "3.0", Points: 3.0, Percentage: 80, Letter: "B"},
	{Label: "2.8", Points: 2.8, Percentage: 76, Letter: "B-"},
	{Label: "2.6", Points: 2.6, Percentage: 72, Letter: "C+"},
	{Label: "2.4", Points: 2.4, Percentage: 68, Letter: "C"},
	{Label: "2.2", Points: 2.2, Percentage: 64, Letter: "C-"},
	{Label: "2.0", Points: 2.0, Percentage: 60, Letter: "D+"},
	{Label: "1.5", Points: 1.5, Percentage: 55, Letter: "D"},
	{Label: "1.0", Points: 1.0, Percentage: 50, Letter: "D-"},
	{Label: "0.0", Points: 0.0, Percentage: 0, Letter: "F"},
}

var (
	byLabel  = make(map[string]int, len(entries))
	byLetter = make(map[string]int, len(entries))
)

func init() {
	for i, e := range entries {
		byLabel[e.Label] = i
		byLetter[strings.ToUpper(e.Letter)] = i
	}
}

// Entries returns a copy of the table in iteration order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the entry for an exact label. Unknown labels report false.
func Lookup(label string) (Entry, bool) {
	i, ok := byLabel[label]
	if !ok {
		return Entry{}, false
	}
	return entries[i], true
}

// Points returns the grade points for label, or 0 when the label is unknown.
func Points(label string) float64 {
	e, ok := Lookup(label)
	if !ok {
		return 0
	}
	return e.Points
}

// Parse normalises user input into a table entry. It accepts a label
// ("3.7"), a letter ("A", "b+") or any numeric spelling of an entry's
// points ("4", "0", "3.70").
func Parse(input string) (Entry, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Entry{}, false
	}
	if e, ok := Lookup(s); ok {
		return e, true
	}
	if i, ok := byLetter[strings.ToUpper(s)]; ok {
		return entries[i], true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Entry{}, false
	}
	for _, e := range entries {
		if math.Abs(e.Points-v) < 1/distanceScale {
			return e, true
		}
	}
	return Entry{}, false
}

// Nearest returns the entry whose points are closest to gpa. Exact ties
// resolve to the entry met first in iteration order, which is the higher
// grade.
func Nearest(gpa float64) Entry {
	best := entries[len(entries)-1]
	bestDist := math.Inf(1)
	if math.IsNaN(gpa) {
		return best
	}
	for _, e := range entries {
		d := math.Round(math.Abs(e.Points-gpa) * distanceScale)
		if d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}
