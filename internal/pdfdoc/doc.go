// Package pdfdoc extracts page text and embedded images from PDF exam files.
package pdfdoc

import "strings"

// PageSeparator joins page texts when building the document-wide text.
// Offset helpers assume this exact separator.
const PageSeparator = "\n\n"

// Rect is a bounding box in page coordinates with a top-left origin: Y
// grows downward, so Y0 is the top edge and Y1 the bottom edge. Content
// stream placements are converted from PDF user space on the way in.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Page holds the extracted text and dimensions of a single PDF page.
type Page struct {
	Number int // 1-based
	Text   string
	Width  float64
	Height float64
}

// EmbeddedImage is a raster image pulled out of a PDF content stream,
// normalized to an encoded format (jpg, jp2 or png).
type EmbeddedImage struct {
	Page   int // 1-based
	Index  int // position within the page, 0-based
	Data   []byte
	Format string
	Width  int
	Height int
	// BBox is the image's first rendered placement on its page, recovered
	// from the page content stream. Nil when the document gives no
	// placement or the stream could not be scanned.
	BBox *Rect
}

// Document is the result of extracting a PDF.
type Document struct {
	Path      string
	PageCount int
	Pages     []Page
	Images    []EmbeddedImage
}

// FullText returns all page texts joined by PageSeparator. Question
// offsets produced by the segmentation strategies index into this string.
func (d *Document) FullText() string {
	texts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, PageSeparator)
}

// GlobalOffset returns the offset of the first character of page
// pageIdx (0-based slice index) within the joined document text.
func GlobalOffset(pages []Page, pageIdx int) int {
	off := 0
	for i := 0; i < pageIdx && i < len(pages); i++ {
		off += len(pages[i].Text) + len(PageSeparator)
	}
	return off
}

// PageForOffset maps an offset in the joined document text back to a
// 1-based page number. Offsets inside a separator belong to the page
// before it; out-of-range offsets clamp to the last page.
func PageForOffset(pages []Page, off int) int {
	if len(pages) == 0 {
		return 0
	}
	pos := 0
	for i, p := range pages {
		end := pos + len(p.Text) + len(PageSeparator)
		if off < end {
			return i + 1
		}
		pos = end
	}
	return len(pages)
}
