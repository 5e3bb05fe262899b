package extraction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls positioned text out of statement PDFs page by page.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a PDF extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractFile opens a PDF on disk and extracts every page.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()
	return e.extract(ctx, r)
}

// Extract reads a PDF from an in-memory or seekable source.
func (e *Extractor) Extract(ctx context.Context, ra io.ReaderAt, size int64) ([]Page, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return e.extract(ctx, r)
}

func (e *Extractor) extract(ctx context.Context, r *pdf.Reader) ([]Page, error) {
	total := r.NumPage()
	pages := make([]Page, 0, total)

	for num := 1; num <= total; num++ {
		// Cancellation is honored between pages, never mid-page.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(num)
		if p.V.IsNull() {
			e.logger.Warn("skipping null pdf page", "page", num)
			continue
		}

		page := Page{Number: num}
		glyphs, err := pageGlyphs(p)
		if err != nil || len(glyphs) == 0 {
			if err != nil {
				e.logger.Warn("positioned extraction failed, using plain text",
					"page", num, "error", err)
			}
			page.PlainText = pagePlainText(p)
		} else {
			page.Glyphs = glyphs
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// pageGlyphs reads the positioned text of one page. Malformed content
// streams make the decoder panic, so the recover here converts that into a
// per-page error and the caller falls back to plain text.
func pageGlyphs(p pdf.Page) (glyphs []Glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			glyphs = nil
			err = fmt.Errorf("content stream: %v", r)
		}
	}()

	content := p.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		glyphs = append(glyphs, Glyph{S: t.S, X: t.X, Y: t.Y, W: t.W})
	}
	return glyphs, nil
}

func pagePlainText(p pdf.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	t, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}
