package imagedup

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"testing"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// gradientImage builds a deterministic non-uniform test image.
func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 255 / (w + h)),
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func embedded(data []byte, w, h int) pdfdoc.EmbeddedImage {
	return pdfdoc.EmbeddedImage{Page: 1, Data: data, Width: w, Height: h}
}

func TestFilterTooSmall(t *testing.T) {
	f := NewFilter(DefaultConfig(), testLogger())
	img := embedded(encodePNG(t, gradientImage(20, 20)), 20, 20)

	if _, verdict := f.Check(img, 792); verdict != VerdictTooSmall {
		t.Errorf("verdict = %v, want too_small", verdict)
	}
}

func TestFilterHeaderFooter(t *testing.T) {
	tests := []struct {
		name string
		bbox *pdfdoc.Rect
		want Verdict
	}{
		{
			name: "entirely within top 10% is a header",
			bbox: &pdfdoc.Rect{X0: 0, Y0: 0, X1: 200, Y1: 100},
			want: VerdictHeaderFooter,
		},
		{
			name: "centered at 50% is kept",
			bbox: &pdfdoc.Rect{X0: 0, Y0: 450, X1: 200, Y1: 550},
			want: VerdictAccepted,
		},
		{
			name: "entirely within bottom band is a footer",
			bbox: &pdfdoc.Rect{X0: 0, Y0: 900, X1: 200, Y1: 990},
			want: VerdictHeaderFooter,
		},
		{
			name: "nil bbox skips the position check",
			bbox: nil,
			want: VerdictAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(DefaultConfig(), testLogger())
			img := embedded(encodePNG(t, gradientImage(100, 100)), 100, 100)
			img.BBox = tt.bbox

			if _, verdict := f.Check(img, 1000); verdict != tt.want {
				t.Errorf("verdict = %v, want %v", verdict, tt.want)
			}
		})
	}
}

func TestFilterExactDuplicate(t *testing.T) {
	f := NewFilter(DefaultConfig(), testLogger())
	data := encodePNG(t, gradientImage(100, 100))

	accepted, verdict := f.Check(embedded(data, 100, 100), 792)
	if verdict != VerdictAccepted {
		t.Fatalf("first image verdict = %v, want accepted", verdict)
	}
	if accepted.ContentHash == "" {
		t.Error("accepted image must carry a content hash")
	}

	if _, verdict := f.Check(embedded(data, 100, 100), 792); verdict != VerdictExactDuplicate {
		t.Errorf("second identical image verdict = %v, want exact_duplicate", verdict)
	}
}

func TestFilterNearDuplicate(t *testing.T) {
	// Same pixels through different encoders: distinct bytes, so the
	// content hash misses, but the perceptual hashes are nearly equal.
	f := NewFilter(DefaultConfig(), testLogger())
	src := gradientImage(128, 128)

	accepted, verdict := f.Check(embedded(encodePNG(t, src), 128, 128), 792)
	if verdict != VerdictAccepted {
		t.Fatalf("first image verdict = %v, want accepted", verdict)
	}
	if accepted.PerceptualHash == "" {
		t.Error("accepted image must carry a perceptual hash")
	}

	if _, verdict := f.Check(embedded(encodeJPEG(t, src), 128, 128), 792); verdict != VerdictNearDuplicate {
		t.Errorf("re-encoded image verdict = %v, want near_duplicate", verdict)
	}
}

func TestFilterStateIsPerJob(t *testing.T) {
	data := encodePNG(t, gradientImage(100, 100))

	f1 := NewFilter(DefaultConfig(), testLogger())
	f2 := NewFilter(DefaultConfig(), testLogger())

	if _, verdict := f1.Check(embedded(data, 100, 100), 792); verdict != VerdictAccepted {
		t.Fatalf("job 1 verdict = %v", verdict)
	}
	if _, verdict := f2.Check(embedded(data, 100, 100), 792); verdict != VerdictAccepted {
		t.Errorf("job 2 must not see job 1's hashes, verdict = %v", verdict)
	}
}

func TestSimilarityPercentThreshold(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want float64
	}{
		{"identical", 0xABCD, 0xABCD, 100.0},
		{"three bits apart", 0, 0b111, 95.3125},
		{"four bits apart", 0, 0b1111, 93.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := similarityPercent(tt.a, tt.b); got != tt.want {
				t.Errorf("similarityPercent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityThresholdBoundary(t *testing.T) {
	cfg := DefaultConfig()

	// 95.3% similar: discard. 93.75%: keep both.
	if similarityPercent(0, 0b111) < cfg.SimilarityThreshold {
		t.Error("three-bit distance should be at or above the default threshold")
	}
	if similarityPercent(0, 0b1111) >= cfg.SimilarityThreshold {
		t.Error("four-bit distance should be below the default threshold")
	}
}
