// Package ocr recovers text from image-heavy exam pages by running each
// embedded image through an OCR provider and folding the results back
// into the page texts.
package ocr

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/avast/retry-go/v4"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
	"github.com/mfcarvalho/examina/internal/providers"
	"github.com/mfcarvalho/examina/internal/textclean"
)

// Marker prefixes OCR-derived text appended to a page, so downstream
// consumers can tell it apart from the PDF text layer.
const Marker = "\n\n[OCR]\n"

// Fallback runs per-image OCR with the provider's own rate limit and
// retry budget. Every failure is degraded-continue: a failed image simply
// contributes no text.
type Fallback struct {
	provider providers.OCRProvider
	limiter  *providers.RateLimiter
	log      *slog.Logger
}

func NewFallback(provider providers.OCRProvider, log *slog.Logger) *Fallback {
	return &Fallback{
		provider: provider,
		limiter:  providers.NewRateLimiter(provider.RequestsPerSecond()),
		log:      log.With("component", "ocr", "provider", provider.Name()),
	}
}

// Run OCRs every image and returns recognized text grouped by page
// number. Pages where no image yielded text are absent from the map.
func (f *Fallback) Run(ctx context.Context, images []pdfdoc.EmbeddedImage) map[int]string {
	byPage := make(map[int][]string)

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			f.log.Warn("ocr aborted", "error", err)
			break
		}

		text, err := f.recognize(ctx, img)
		if err != nil {
			f.log.Warn("ocr failed for image, skipping",
				"page", img.Page, "index", img.Index, "error", err)
			continue
		}
		text = textclean.Clean(text)
		if text == "" {
			continue
		}
		byPage[img.Page] = append(byPage[img.Page], text)
	}

	out := make(map[int]string, len(byPage))
	for page, texts := range byPage {
		out[page] = strings.Join(texts, "\n")
	}
	return out
}

func (f *Fallback) recognize(ctx context.Context, img pdfdoc.EmbeddedImage) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
			result, err := f.provider.ProcessImage(ctx, img.Data, img.Page)
			if err != nil {
				return err
			}
			text = result.Text
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.provider.MaxRetries())),
		retry.Delay(f.provider.RetryDelayBase()),
	)
	return text, err
}

// MergeIntoPages appends each page's OCR text to its extracted text,
// behind the marker. Pages are returned as a new slice; offsets computed
// after the merge see the combined text.
func MergeIntoPages(pages []pdfdoc.Page, ocrByPage map[int]string) []pdfdoc.Page {
	if len(ocrByPage) == 0 {
		return pages
	}

	out := make([]pdfdoc.Page, len(pages))
	copy(out, pages)
	for i := range out {
		if text, ok := ocrByPage[out[i].Number]; ok && text != "" {
			out[i].Text += Marker + text
		}
	}
	return out
}

// Pages returns the sorted page numbers present in an OCR result, for
// stage-log reporting.
func Pages(ocrByPage map[int]string) []int {
	pages := make([]int, 0, len(ocrByPage))
	for p := range ocrByPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
