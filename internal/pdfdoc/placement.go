package pdfdoc

import (
	"github.com/ledongthuc/pdf"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix struct{ a, b, c, d, e, f float64 }

var identity = matrix{a: 1, d: 1}

// mult returns m composed with n, applying m first.
func (m matrix) mult(n matrix) matrix {
	return matrix{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

// placement records where an image XObject is first drawn on a page.
type placement struct {
	name   string
	width  int // pixel dimensions from the XObject dictionary
	height int
	rect   Rect
}

// pagePlacements walks one page's content streams and returns the first
// placement of every top-level image XObject, in drawing order. Images
// drawn from inside Form XObjects are not seen. Malformed streams,
// including inline image data the tokenizer cannot skip, end the scan
// with whatever was collected so far.
func (e *Extractor) pagePlacements(p pdf.Page, pageHeight float64) (placements []placement) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Debug("content stream scan aborted", "panic", rec)
		}
	}()

	xobjs := p.V.Key("Resources").Key("XObject")
	if xobjs.Kind() != pdf.Dict {
		return nil
	}

	seen := make(map[string]bool)
	ctm := identity
	var saved []matrix

	walk := func(stk *pdf.Stack, op string) {
		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if n := len(saved); n > 0 {
				ctm = saved[n-1]
				saved = saved[:n-1]
			}
		case "cm":
			if stk.Len() < 6 {
				return
			}
			var v [6]float64
			for i := 5; i >= 0; i-- {
				v[i] = stk.Pop().Float64()
			}
			ctm = matrix{a: v[0], b: v[1], c: v[2], d: v[3], e: v[4], f: v[5]}.mult(ctm)
		case "Do":
			if stk.Len() < 1 {
				return
			}
			name := stk.Pop().Name()
			if name == "" || seen[name] {
				return
			}
			xo := xobjs.Key(name)
			if xo.Key("Subtype").Name() != "Image" {
				return
			}
			seen[name] = true
			placements = append(placements, placement{
				name:   name,
				width:  int(xo.Key("Width").Int64()),
				height: int(xo.Key("Height").Int64()),
				rect:   unitRect(ctm, pageHeight),
			})
		}
	}

	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		pdf.Interpret(contents, walk)
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			if part := contents.Index(i); part.Kind() == pdf.Stream {
				pdf.Interpret(part, walk)
			}
		}
	}
	return placements
}

// unitRect maps the unit square through the CTM and converts the result
// from PDF bottom-left user space to the top-left origin Rect uses.
func unitRect(m matrix, pageHeight float64) Rect {
	x00, y00 := m.apply(0, 0)
	x10, y10 := m.apply(1, 0)
	x01, y01 := m.apply(0, 1)
	x11, y11 := m.apply(1, 1)

	minX := min(x00, x10, x01, x11)
	maxX := max(x00, x10, x01, x11)
	minY := min(y00, y10, y01, y11)
	maxY := max(y00, y10, y01, y11)

	return Rect{
		X0: minX,
		Y0: pageHeight - maxY,
		X1: maxX,
		Y1: pageHeight - minY,
	}
}

// scanPlacements collects image placements for every page, keyed by
// 1-based page number.
func (e *Extractor) scanPlacements(r *pdf.Reader, pages []Page) map[int][]placement {
	byPage := make(map[int][]placement)
	for i := 1; i <= r.NumPage() && i <= len(pages); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if pls := e.pagePlacements(p, pages[i-1].Height); len(pls) > 0 {
			byPage[i] = pls
		}
	}
	return byPage
}

// assignPlacements attaches recovered placements to the extracted images.
// The raster extractor does not report which XObject an image came from,
// so placements match by page and pixel dimensions, consumed in drawing
// order. Images without a matching placement keep a nil BBox.
func (e *Extractor) assignPlacements(doc *Document, byPage map[int][]placement) {
	if len(doc.Images) == 0 {
		return
	}
	if len(byPage) == 0 {
		e.log.Info("no image placements recovered, position filtering unavailable", "path", doc.Path)
		return
	}

	type dimKey struct{ page, w, h int }
	rects := make(map[dimKey][]Rect)
	for page, pls := range byPage {
		for _, pl := range pls {
			k := dimKey{page, pl.width, pl.height}
			rects[k] = append(rects[k], pl.rect)
		}
	}

	placed := 0
	for i := range doc.Images {
		img := &doc.Images[i]
		k := dimKey{img.Page, img.Width, img.Height}
		queue := rects[k]
		if len(queue) == 0 {
			continue
		}
		rect := queue[0]
		rects[k] = queue[1:]
		img.BBox = &rect
		placed++
	}
	e.log.Debug("image placements assigned", "placed", placed, "images", len(doc.Images))
}
