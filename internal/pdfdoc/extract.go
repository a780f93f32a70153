package pdfdoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mfcarvalho/examina/internal/textclean"
)

// Letter-size fallback when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Extractor reads PDF files into Documents. Single-page and single-image
// failures are logged and skipped; only a document that yields nothing at
// all is an error.
type Extractor struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Extractor {
	return &Extractor{log: log.With("component", "pdfdoc")}
}

// Extract parses the PDF at path, returning cleaned per-page text and all
// embedded images.
func (e *Extractor) Extract(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	pageCount, countErr := api.PageCount(bytes.NewReader(data), nil)
	if countErr != nil {
		e.log.Warn("pdfcpu page count failed", "path", path, "error", countErr)
	}

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		if countErr != nil {
			return nil, fmt.Errorf("unreadable pdf %s: %w", path, openErr)
		}
		e.log.Warn("text layer unreadable, pages will be empty", "path", path, "error", openErr)
	} else {
		defer f.Close()
	}

	doc := &Document{Path: path}
	if openErr == nil {
		doc.Pages = e.extractPages(r)
	}
	if len(doc.Pages) == 0 && pageCount > 0 {
		// No text layer. Keep empty pages so page numbering and the
		// OCR fallback still line up with the embedded images.
		for i := 1; i <= pageCount; i++ {
			doc.Pages = append(doc.Pages, Page{Number: i, Width: defaultPageWidth, Height: defaultPageHeight})
		}
	}
	doc.PageCount = len(doc.Pages)
	if doc.PageCount == 0 {
		return nil, fmt.Errorf("unreadable pdf %s: no pages extracted", path)
	}

	doc.Images = e.extractImages(data)
	if openErr == nil && len(doc.Images) > 0 {
		e.assignPlacements(doc, e.scanPlacements(r, doc.Pages))
	}

	e.log.Info("pdf extracted",
		"path", path,
		"pages", doc.PageCount,
		"images", len(doc.Images),
		"text_bytes", len(doc.FullText()))

	return doc, nil
}

func (e *Extractor) extractPages(r *pdf.Reader) []Page {
	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Number: i, Width: defaultPageWidth, Height: defaultPageHeight})
			continue
		}
		w, h := pageSize(p)
		text := e.pageText(p, i)
		pages = append(pages, Page{Number: i, Text: text, Width: w, Height: h})
	}
	return pages
}

// pageText extracts and cleans the plain text of one page. The parser can
// panic on malformed content streams, so failures degrade to empty text.
func (e *Extractor) pageText(p pdf.Page, num int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn("page text extraction panicked", "page", num, "panic", rec)
			text = ""
		}
	}()

	raw, err := p.GetPlainText(nil)
	if err != nil {
		e.log.Warn("page text extraction failed", "page", num, "error", err)
		return ""
	}
	return textclean.Clean(raw)
}

// pageSize reads the page MediaBox, falling back to US Letter when the
// entry is missing or malformed.
func pageSize(p pdf.Page) (w, h float64) {
	box := p.V.Key("MediaBox")
	if box.IsNull() || box.Kind() != pdf.Array || box.Len() != 4 {
		return defaultPageWidth, defaultPageHeight
	}

	coords := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v := box.Index(i)
		switch v.Kind() {
		case pdf.Integer:
			coords[i] = float64(v.Int64())
		case pdf.Real:
			coords[i] = v.Float64()
		default:
			return defaultPageWidth, defaultPageHeight
		}
	}

	w = coords[2] - coords[0]
	h = coords[3] - coords[1]
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}
