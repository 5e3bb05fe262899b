// Package extraction rebuilds plain text from the positioned glyphs of a
// statement PDF. Banks print tabular layouts where reading order is not the
// content-stream order, so rows are reassembled geometrically before any
// parsing happens.
package extraction

import (
	"sort"
	"strings"
)

const (
	// PageMarker separates pages in a reconstructed document. It is emitted
	// on its own line so parsers can treat it like any other line.
	PageMarker = "\f"

	// rowTolerance is the vertical distance (in PDF text-space units) within
	// which two glyphs are considered part of the same visual row.
	rowTolerance = 1.5
)

// Glyph is a positioned text fragment from a PDF content stream.
type Glyph struct {
	S string
	X float64
	Y float64
	W float64
}

// Page holds the raw extraction output for a single PDF page. Glyphs is
// empty when positioned extraction failed; PlainText then carries whatever
// the fallback extractor produced.
type Page struct {
	Number    int
	Glyphs    []Glyph
	PlainText string
}

// Lines reconstructs the visual rows of a page, top to bottom. Glyphs are
// clustered by Y, ordered by X within a row, and joined with a synthetic
// space wherever the horizontal gap exceeds half the wider neighbour glyph.
func Lines(p Page) []string {
	if len(p.Glyphs) == 0 {
		return fallbackLines(p.PlainText)
	}

	glyphs := make([]Glyph, len(p.Glyphs))
	copy(glyphs, p.Glyphs)

	// PDF user space grows upward: larger Y means higher on the page.
	sort.SliceStable(glyphs, func(i, j int) bool {
		if glyphs[i].Y != glyphs[j].Y {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var rows [][]Glyph
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if len(rows) == 0 || rows[len(rows)-1][0].Y-g.Y > rowTolerance {
			rows = append(rows, []Glyph{g})
			continue
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], g)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		if line := joinRow(row); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// joinRow concatenates a row's glyphs left to right, inserting a space when
// the gap between two glyphs is wide enough to be a column break.
func joinRow(row []Glyph) string {
	var b strings.Builder
	for i, g := range row {
		if i > 0 {
			prev := row[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wider(prev.W, g.W)/2 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return strings.TrimSpace(collapseSpaces(b.String()))
}

func wider(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// collapseSpaces reduces runs of two or more spaces to a single space.
// Glyph strings occasionally carry their own trailing spaces on top of the
// synthetic ones.
func collapseSpaces(s string) string {
	if !strings.Contains(s, "  ") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// fallbackLines splits plain-text extractor output into trimmed lines.
func fallbackLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(collapseSpaces(l))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Document joins reconstructed pages into a single text with a PageMarker
// line between consecutive pages and a newline after every row.
func Document(pages []Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageMarker)
			b.WriteByte('\n')
		}
		for _, line := range Lines(p) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// SplitPages divides a reconstructed document back into per-page texts.
// It is the inverse of Document up to blank-line trimming.
func SplitPages(doc string) []string {
	if doc == "" {
		return nil
	}
	parts := strings.Split(doc, PageMarker)
	pages := make([]string, len(parts))
	for i, p := range parts {
		pages[i] = strings.Trim(p, "\n")
	}
	return pages
}

// JoinPages reassembles page texts produced by SplitPages into a document.
func JoinPages(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageMarker)
			b.WriteByte('\n')
		}
		if p != "" {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
