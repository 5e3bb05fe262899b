package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesGroupsRowsByY(t *testing.T) {
	page := Page{
		Number: 1,
		Glyphs: []Glyph{
			// Second visual row, emitted first in the content stream.
			{S: "15/01/24", X: 50, Y: 680, W: 40},
			// First visual row, split across two Y values within tolerance.
			{S: "SALDO", X: 50, Y: 700, W: 30},
			{S: "ANTERIOR", X: 120, Y: 699.2, W: 45},
			{S: "1.500,00", X: 400, Y: 700, W: 40},
		},
	}

	lines := Lines(page)
	require.Len(t, lines, 2)
	assert.Equal(t, "SALDO ANTERIOR 1.500,00", lines[0])
	assert.Equal(t, "15/01/24", lines[1])
}

func TestLinesSeparatesRowsBeyondTolerance(t *testing.T) {
	page := Page{
		Glyphs: []Glyph{
			{S: "A", X: 10, Y: 700, W: 5},
			{S: "B", X: 10, Y: 698.4, W: 5}, // 1.6 below: new row
			{S: "C", X: 30, Y: 697.1, W: 5}, // 1.3 below B: same row as B
		},
	}

	lines := Lines(page)
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0])
	assert.Equal(t, "B C", lines[1])
}

func TestLinesOrdersGlyphsByX(t *testing.T) {
	page := Page{
		Glyphs: []Glyph{
			{S: "333,41", X: 400, Y: 500, W: 35},
			{S: "15/01/24", X: 40, Y: 500, W: 42},
			{S: "PAGO VISA", X: 120, Y: 500, W: 60},
		},
	}

	lines := Lines(page)
	require.Len(t, lines, 1)
	assert.Equal(t, "15/01/24 PAGO VISA 333,41", lines[0])
}

func TestJoinRowSyntheticSpace(t *testing.T) {
	tests := []struct {
		name string
		row  []Glyph
		want string
	}{
		{
			// gap 0.4 against a threshold of 27.5: fragments stay joined
			"touching glyphs stay joined",
			[]Glyph{{S: "1.528.895,1", X: 100, Y: 0, W: 55}, {S: "1", X: 155.4, Y: 0, W: 5}},
			"1.528.895,11",
		},
		{
			"wide gap inserts a space",
			[]Glyph{{S: "CONCEPTO", X: 100, Y: 0, W: 50}, {S: "99,00", X: 300, Y: 0, W: 30}},
			"CONCEPTO 99,00",
		},
		{
			"small gap does not",
			[]Glyph{{S: "PA", X: 100, Y: 0, W: 12}, {S: "GO", X: 113, Y: 0, W: 12}},
			"PAGO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinRow(tt.row))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", collapseSpaces("a  b   c"))
	assert.Equal(t, "a b", collapseSpaces("  a  b  "))
	assert.Equal(t, "unchanged line", collapseSpaces("unchanged line"))
}

func TestFallbackLines(t *testing.T) {
	page := Page{PlainText: "SALDO ANTERIOR  1.500,00\r\n\r\n15/01/24 PAGO   VISA\n"}
	lines := Lines(page)
	require.Len(t, lines, 2)
	assert.Equal(t, "SALDO ANTERIOR 1.500,00", lines[0])
	assert.Equal(t, "15/01/24 PAGO VISA", lines[1])

	assert.Nil(t, Lines(Page{PlainText: "   \n  "}))
}

func TestDocumentAndSplitPages(t *testing.T) {
	pages := []Page{
		{Number: 1, Glyphs: []Glyph{{S: "first page", X: 0, Y: 100, W: 10}}},
		{Number: 2, Glyphs: []Glyph{{S: "second page", X: 0, Y: 100, W: 10}}},
		{Number: 3, PlainText: "third page"},
	}

	doc := Document(pages)
	split := SplitPages(doc)
	require.Len(t, split, 3)
	assert.Equal(t, "first page", split[0])
	assert.Equal(t, "second page", split[1])
	assert.Equal(t, "third page", split[2])

	// Filtering pages and rejoining keeps the marker structure intact.
	rejoined := JoinPages(split[1:])
	assert.Equal(t, []string{"second page", "third page"}, SplitPages(rejoined))
}
