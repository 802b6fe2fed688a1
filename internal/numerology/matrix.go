package numerology

import (
	"fmt"
	"sort"
	"strings"
)

// Counts holds how often each digit 1..9 occurs in a date. Index 0 is unused.
type Counts [10]int

// CountDigits builds the digit-frequency matrix for date. Zeros are ignored.
func CountDigits(date string) Counts {
	var c Counts
	for _, r := range date {
		if r >= '1' && r <= '9' {
			c[r-'0']++
		}
	}
	return c
}

// Map returns the counts keyed by digit, the shape persisted in order
// metadata and sent to the model.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, 9)
	for d := 1; d <= 9; d++ {
		m[fmt.Sprint(d)] = c[d]
	}
	return m
}

// Line is one of the eight classic matrix lines.
type Line struct {
	Key    string
	Label  string
	Digits [3]int
}

// Lines lists rows, then columns, then diagonals.
var Lines = []Line{
	{Key: "row_147", Label: "1–4–7 (характер)", Digits: [3]int{1, 4, 7}},
	{Key: "row_258", Label: "2–5–8 (энергия)", Digits: [3]int{2, 5, 8}},
	{Key: "row_369", Label: "3–6–9 (талант)", Digits: [3]int{3, 6, 9}},
	{Key: "col_123", Label: "1–2–3 (ум/цель)", Digits: [3]int{1, 2, 3}},
	{Key: "col_456", Label: "4–5–6 (ответств.)", Digits: [3]int{4, 5, 6}},
	{Key: "col_789", Label: "7–8–9 (удача/дух.)", Digits: [3]int{7, 8, 9}},
	{Key: "diag_159", Label: "1–5–9 (предназнач.)", Digits: [3]int{1, 5, 9}},
	{Key: "diag_357", Label: "3–5–7 (самодисп.)", Digits: [3]int{3, 5, 7}},
}

// Total sums the counts of the line's three digits.
func (l Line) Total(c Counts) int {
	return c[l.Digits[0]] + c[l.Digits[1]] + c[l.Digits[2]]
}

// LineTotals returns every line total keyed by line key.
func LineTotals(c Counts) map[string]int {
	out := make(map[string]int, len(Lines))
	for _, l := range Lines {
		out[l.Key] = l.Total(c)
	}
	return out
}

// Band classifies a line total.
type Band int

const (
	BandEmpty Band = iota
	BandThin
	BandBalanced
	BandExpressed
	BandSaturated
)

var bandTags = [...]string{
	BandEmpty:     "пусто → зона для роста",
	BandThin:      "тонкая линия → гибкий потенциал",
	BandBalanced:  "сбалансировано → стабильная опора",
	BandExpressed: "выражено → заметная сила",
	BandSaturated: "перенасыщено → важно направлять экологично",
}

// Classify maps a total to its saturation band; 4 and above is saturated.
func Classify(total int) Band {
	switch {
	case total <= 0:
		return BandEmpty
	case total >= 4:
		return BandSaturated
	default:
		return Band(total)
	}
}

// Tag is the human-readable saturation phrase.
func (b Band) Tag() string {
	if b < BandEmpty || b > BandSaturated {
		return ""
	}
	return bandTags[b]
}

func (b Band) String() string {
	switch b {
	case BandEmpty:
		return "empty"
	case BandThin:
		return "thin"
	case BandBalanced:
		return "balanced"
	case BandExpressed:
		return "expressed"
	case BandSaturated:
		return "saturated"
	}
	return fmt.Sprintf("band(%d)", int(b))
}

// Missing returns the digits with a zero count in ascending order.
func Missing(c Counts) []int {
	out := []int{}
	for d := 1; d <= 9; d++ {
		if c[d] == 0 {
			out = append(out, d)
		}
	}
	return out
}

// Dominant returns digits with count >= 3, by descending count and then by
// ascending digit.
func Dominant(c Counts) []int {
	out := []int{}
	for d := 1; d <= 9; d++ {
		if c[d] >= 3 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return c[out[i]] > c[out[j]]
	})
	return out
}

// Extended is the missing/dominant summary attached to a report request.
type Extended struct {
	Missing  []int `json:"missing"`
	Dominant []int `json:"dominant"`
}

// Extend computes the missing and dominant digit sets.
func Extend(c Counts) Extended {
	return Extended{Missing: Missing(c), Dominant: Dominant(c)}
}

// Tier collapses a digit count into the interpretation tier 0..4.
func Tier(count int) int {
	switch {
	case count <= 0:
		return 0
	case count >= 4:
		return 4
	default:
		return count
	}
}

// DigitMeaning returns the interpretation of digit d at the given count.
func DigitMeaning(d, count int) string {
	if d < 1 || d > 9 {
		return ""
	}
	return digitMeanings[d][Tier(count)]
}

// Grid renders the 3x3 matrix (1-4-7 / 2-5-8 / 3-6-9). A cell repeats its
// digit count times, or shows "—" when the digit is absent.
func Grid(c Counts) string {
	cell := func(d int) string {
		if c[d] == 0 {
			return "—"
		}
		return strings.Repeat(fmt.Sprint(d), c[d])
	}
	rows := [3][3]int{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}
	out := make([]string, 0, 3)
	for _, r := range rows {
		out = append(out, fmt.Sprintf("%-7s | %-7s | %-7s", cell(r[0]), cell(r[1]), cell(r[2])))
	}
	return strings.Join(out, "\n")
}

// LinesSummary renders one bullet per line: label, total and band tag.
func LinesSummary(c Counts) string {
	parts := make([]string, 0, len(Lines))
	for _, l := range Lines {
		t := l.Total(c)
		parts = append(parts, fmt.Sprintf("• %s: %d — %s", l.Label, t, Classify(t).Tag()))
	}
	return strings.Join(parts, "\n")
}

// DigitsSummary renders the per-digit interpretation block.
func DigitsSummary(c Counts) string {
	parts := make([]string, 0, 9)
	for d := 1; d <= 9; d++ {
		parts = append(parts, fmt.Sprintf("%d: %d — %s", d, c[d], DigitMeaning(d, c[d])))
	}
	return strings.Join(parts, "\n")
}
