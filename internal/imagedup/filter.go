// Package imagedup filters extracted exam images: icons, header/footer
// decorations and duplicates are discarded before persistence. All state
// is per job; concurrent jobs never share hash sets.
package imagedup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"log/slog"
	"math/bits"

	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"golang.org/x/image/draw"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
)

// Config holds the filter thresholds.
type Config struct {
	MinDimension        int     // below this on either axis the image is an icon
	SimilarityThreshold float64 // percent; at or above, a near duplicate
	HeaderBand          float64 // normalized Y below this is a header
	FooterBand          float64 // normalized Y above this is a footer
}

// DefaultConfig matches the documented pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MinDimension:        50,
		SimilarityThreshold: 95.0,
		HeaderBand:          0.15,
		FooterBand:          0.85,
	}
}

// Verdict classifies one image's fate.
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictTooSmall
	VerdictHeaderFooter
	VerdictExactDuplicate
	VerdictNearDuplicate
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictTooSmall:
		return "too_small"
	case VerdictHeaderFooter:
		return "header_footer"
	case VerdictExactDuplicate:
		return "exact_duplicate"
	case VerdictNearDuplicate:
		return "near_duplicate"
	default:
		return "unknown"
	}
}

// AcceptedImage is an image that passed every filter, with the hashes it
// carries forward to persistence.
type AcceptedImage struct {
	Image          pdfdoc.EmbeddedImage
	ContentHash    string // sha256 hex of the raw bytes
	PerceptualHash string // 16-hex pHash; empty when the image could not be decoded
}

// Filter holds one job's deduplication state.
type Filter struct {
	cfg Config
	log *slog.Logger

	seenContent map[string]bool
	accepted    []uint64 // pHashes of accepted images
}

func NewFilter(cfg Config, log *slog.Logger) *Filter {
	return &Filter{
		cfg:         cfg,
		log:         log.With("component", "imagedup"),
		seenContent: make(map[string]bool),
	}
}

// Check runs the filters in order, short-circuiting on the first match.
// pageHeight is the height of the image's page, used to normalize bbox
// coordinates; images without a bbox skip the header/footer check.
func (f *Filter) Check(img pdfdoc.EmbeddedImage, pageHeight float64) (*AcceptedImage, Verdict) {
	if img.Width < f.cfg.MinDimension || img.Height < f.cfg.MinDimension {
		return nil, VerdictTooSmall
	}

	if img.BBox != nil && pageHeight > 0 {
		// Top-left origin: small Y is the top of the page.
		if img.BBox.Y1/pageHeight < f.cfg.HeaderBand {
			return nil, VerdictHeaderFooter
		}
		if img.BBox.Y0/pageHeight > f.cfg.FooterBand {
			return nil, VerdictHeaderFooter
		}
	}

	sum := sha256.Sum256(img.Data)
	contentHash := hex.EncodeToString(sum[:])
	if f.seenContent[contentHash] {
		return nil, VerdictExactDuplicate
	}
	f.seenContent[contentHash] = true

	phash, err := perceptualHash(img.Data)
	if err != nil {
		// Content hash still protects against exact duplicates; accept
		// without a perceptual hash rather than dropping the image.
		f.log.Debug("image not decodable for perceptual hashing",
			"page", img.Page, "index", img.Index, "format", img.Format, "error", err)
		return &AcceptedImage{Image: img, ContentHash: contentHash}, VerdictAccepted
	}

	for _, prev := range f.accepted {
		if similarityPercent(phash, prev) >= f.cfg.SimilarityThreshold {
			return nil, VerdictNearDuplicate
		}
	}
	f.accepted = append(f.accepted, phash)

	return &AcceptedImage{
		Image:          img,
		ContentHash:    contentHash,
		PerceptualHash: fmt.Sprintf("%016x", phash),
	}, VerdictAccepted
}

// similarityPercent converts the Hamming distance between two 64-bit
// perceptual hashes to a 0-100 similarity score.
func similarityPercent(a, b uint64) float64 {
	dist := bits.OnesCount64(a ^ b)
	return (1.0 - float64(dist)/64.0) * 100.0
}

// perceptualHash decodes the image and computes its 64-bit pHash. Large
// images are downscaled first; the hash is resolution-tolerant and the
// DCT over a smaller image is much cheaper.
func perceptualHash(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	img = downscale(img, 512)

	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, err
	}
	return h.GetHash(), nil
}

// downscale resizes img so its longest side is at most max pixels.
func downscale(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	if w >= h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
