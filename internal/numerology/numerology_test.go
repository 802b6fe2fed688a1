package numerology

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifePath(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"21.09.1999", 4},
		{"01.01.2007", 11},
		{"03.09.1900", 22},
		{"07.03.1995", 7},
		{"10.10.2010", 5},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, LifePath(tt.date))
		})
	}
}

func TestLifePath_permutationInvariant(t *testing.T) {
	a := LifePath("21.09.1999")
	b := LifePath("99.91.1290")
	c := LifePath("12.90.9919")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestLifePath_rangeOverCalendar(t *testing.T) {
	allowed := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true, 11: true, 22: true}
	d := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	for ; d.Before(end); d = d.AddDate(0, 0, 1) {
		s := d.Format("02.01.2006")
		if got := LifePath(s); !allowed[got] {
			t.Fatalf("LifePath(%q) = %d, outside allowed set", s, got)
		}
	}
}

func TestCountDigits(t *testing.T) {
	c := CountDigits("21.09.1999")
	assert.Equal(t, 2, c[1])
	assert.Equal(t, 1, c[2])
	assert.Equal(t, 4, c[9])
	for _, d := range []int{3, 4, 5, 6, 7, 8} {
		assert.Zero(t, c[d], "digit %d", d)
	}
	assert.Equal(t, map[string]int{"1": 2, "2": 1, "3": 0, "4": 0, "5": 0, "6": 0, "7": 0, "8": 0, "9": 4}, c.Map())
}

func TestLineTotals(t *testing.T) {
	got := LineTotals(CountDigits("21.09.1999"))
	want := map[string]int{
		"row_147": 2, "row_258": 1, "row_369": 4,
		"col_123": 3, "col_456": 0, "col_789": 4,
		"diag_159": 6, "diag_357": 0,
	}
	assert.Equal(t, want, got)
}

func TestLineTotals_rowsAndColumnsCoverEveryDigit(t *testing.T) {
	for _, date := range []string{"21.09.1999", "01.01.2007", "31.12.1987", "00.00.0000"} {
		c := CountDigits(date)
		lt := LineTotals(c)
		nonZero := 0
		for d := 1; d <= 9; d++ {
			nonZero += c[d]
		}
		rows := lt["row_147"] + lt["row_258"] + lt["row_369"]
		cols := lt["col_123"] + lt["col_456"] + lt["col_789"]
		assert.Equal(t, nonZero, rows, date)
		assert.Equal(t, nonZero, cols, date)
	}
}

func TestMissingAndDominantDisjoint(t *testing.T) {
	for _, date := range []string{"21.09.1999", "11.11.1333", "33.33.1111", "00.00.0000"} {
		c := CountDigits(date)
		missing := map[int]bool{}
		for _, d := range Missing(c) {
			missing[d] = true
		}
		for _, d := range Dominant(c) {
			assert.False(t, missing[d], "%s: digit %d both missing and dominant", date, d)
		}
	}
}

func TestDominantOrdering(t *testing.T) {
	assert.Equal(t, []int{1, 3}, Dominant(CountDigits("11.11.1333")))
	assert.Equal(t, []int{1, 3}, Dominant(CountDigits("33.33.1111")))
	assert.Equal(t, []int{3, 1}, Dominant(CountDigits("33.33.3111")))
	assert.Equal(t, []int{9}, Dominant(CountDigits("21.09.1999")))
}

func TestAllZeroMatrix(t *testing.T) {
	c := CountDigits("00.00.0000")
	for key, total := range LineTotals(c) {
		assert.Zero(t, total, key)
		assert.Equal(t, BandEmpty, Classify(total))
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, Missing(c))
	assert.Empty(t, Dominant(c))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BandEmpty, Classify(0))
	assert.Equal(t, BandThin, Classify(1))
	assert.Equal(t, BandBalanced, Classify(2))
	assert.Equal(t, BandExpressed, Classify(3))
	assert.Equal(t, BandSaturated, Classify(4))
	assert.Equal(t, BandSaturated, Classify(9))
	assert.Equal(t, "пусто → зона для роста", BandEmpty.Tag())
	assert.Equal(t, "saturated", BandSaturated.String())
}

func TestTierAndDigitMeaning(t *testing.T) {
	assert.Equal(t, 0, Tier(0))
	assert.Equal(t, 3, Tier(3))
	assert.Equal(t, 4, Tier(7))
	assert.Equal(t, "очень мощная воля; следи за тактом и гибкостью", DigitMeaning(1, 6))
	assert.Empty(t, DigitMeaning(0, 1))
}

func TestGrid(t *testing.T) {
	rows := strings.Split(Grid(CountDigits("21.09.1999")), "\n")
	require.Len(t, rows, 3)
	assert.True(t, strings.HasPrefix(rows[0], "11      | —"), rows[0])
	assert.True(t, strings.HasPrefix(rows[1], "2       | —"), rows[1])
	assert.True(t, strings.HasSuffix(rows[2], "| 9999   "), rows[2])
}

func TestLinesSummary(t *testing.T) {
	s := LinesSummary(CountDigits("21.09.1999"))
	lines := strings.Split(s, "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "• 1–4–7 (характер): 2 — сбалансировано → стабильная опора", lines[0])
	assert.Contains(t, lines[6], "6 — перенасыщено")
}

func TestMeaning(t *testing.T) {
	assert.Equal(t, "Мастер-число интуиции и вдохновения.", Meaning(11))
	assert.Equal(t, "Личный путь и опыт через число судьбы.", Meaning(0))
	assert.True(t, IsMaster(22))
	assert.False(t, IsMaster(9))
}
