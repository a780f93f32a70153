// Package pipeline sequences the nine document-analysis stages for one job:
// extraction, OCR fallback, the three segmentation strategies, merge,
// validation, question persistence, image filtering, image mapping and image
// persistence. Each stage persists status, a bounded stage log and a
// monotonically non-decreasing progress value.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/mfcarvalho/examina/internal/analyze"
	"github.com/mfcarvalho/examina/internal/imagedup"
	"github.com/mfcarvalho/examina/internal/ocr"
	"github.com/mfcarvalho/examina/internal/pdfdoc"
	"github.com/mfcarvalho/examina/internal/segment"
	"github.com/mfcarvalho/examina/internal/store"
	"github.com/mfcarvalho/examina/internal/textclean"
)

// Store is the subset of persistence operations the pipeline writes through.
// *store.Store satisfies it.
type Store interface {
	UpdateJobStatus(ctx context.Context, id, status string, stageLog *string, progress *int) error
	CreateQuestion(ctx context.Context, jobID string, number, order int, rawText string) (*store.Question, error)
	QuestionByNumber(ctx context.Context, jobID string, number int) (*store.Question, error)
	CreateImage(ctx context.Context, img *store.Image) (*store.Image, error)
}

// Extractor produces a document from a PDF path.
type Extractor interface {
	Extract(path string) (*pdfdoc.Document, error)
}

// OCR recovers text from embedded images, keyed by 1-based page number.
type OCR interface {
	Run(ctx context.Context, images []pdfdoc.EmbeddedImage) map[int]string
}

// Config assembles a Runner's collaborators. OCR may be nil when no OCR
// provider is configured.
type Config struct {
	Store     Store
	Files     *store.FileStore
	Extractor Extractor
	Segmenter *segment.Segmenter
	Analyzer  *analyze.Analyzer
	OCR       OCR
	Dedup     imagedup.Config
	Logger    *slog.Logger
}

// Runner executes the full pipeline for one job at a time. A Runner is
// stateless across runs; per-job state lives in the run itself.
type Runner struct {
	store     Store
	files     *store.FileStore
	extractor Extractor
	segmenter *segment.Segmenter
	analyzer  *analyze.Analyzer
	ocr       OCR
	dedup     imagedup.Config
	log       *slog.Logger
}

func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dedup := cfg.Dedup
	if dedup == (imagedup.Config{}) {
		dedup = imagedup.DefaultConfig()
	}
	return &Runner{
		store:     cfg.Store,
		files:     cfg.Files,
		extractor: cfg.Extractor,
		segmenter: cfg.Segmenter,
		analyzer:  cfg.Analyzer,
		ocr:       cfg.OCR,
		dedup:     dedup,
		log:       logger.With("component", "pipeline"),
	}
}

// Run processes one job. The temporary source file is removed in every
// outcome. Context cancellation is honored between stages and between loop
// iterations; a cancelled run persists status=cancelled with progress reset
// to 0, a failed run persists status=error the same way, and the error is
// returned to the worker pool either way.
func (r *Runner) Run(ctx context.Context, jobID, srcPath string) (err error) {
	rs := &runState{
		jobID:    jobID,
		log:      r.log.With("job_id", jobID),
		store:    r.store,
		stageLog: newStageLog(),
		// Terminal writes must land even after the task context is cancelled.
		dbCtx: context.WithoutCancel(ctx),
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
			rs.fail(err, debug.Stack())
		}
		if rmErr := os.Remove(srcPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			rs.log.Warn("removing source file", "path", srcPath, "error", rmErr)
		}
	}()

	if err := r.process(ctx, rs, srcPath); err != nil {
		if errors.Is(err, context.Canceled) {
			rs.cancelled()
		} else {
			rs.fail(err, debug.Stack())
		}
		return err
	}
	return nil
}

func (r *Runner) process(ctx context.Context, rs *runState, srcPath string) error {
	if err := checkpoint(ctx); err != nil {
		return err
	}

	// Stage: extraction.
	rs.set(store.StatusExtracting, "Starting processing", spanExtract.lo)

	doc, err := r.extractor.Extract(srcPath)
	if err != nil {
		return fmt.Errorf("extracting document: %w", err)
	}
	rs.add(fmt.Sprintf("Extracted %d pages, %d embedded images", doc.PageCount, len(doc.Images)), 15)

	if r.ocr != nil && len(doc.Images) > 0 {
		rs.add(fmt.Sprintf("Running OCR over %d embedded images", len(doc.Images)), 18)
		ocrByPage := r.ocr.Run(ctx, doc.Images)
		doc.Pages = ocr.MergeIntoPages(doc.Pages, ocrByPage)
		if len(ocrByPage) > 0 {
			rs.add(fmt.Sprintf("OCR recovered text on pages %v", ocr.Pages(ocrByPage)), spanExtract.hi)
		} else {
			rs.add("OCR recovered no additional text", spanExtract.hi)
		}
	} else {
		rs.add("OCR fallback skipped", spanExtract.hi)
	}
	if err := checkpoint(ctx); err != nil {
		return err
	}

	// Stage: segmentation, three strategies then merge.
	rs.set(store.StatusAnalyzing, "Extracting questions", spanSegment.lo)

	regexCands := segment.Regex(doc.Pages)
	rs.add(fmt.Sprintf("Pattern strategy: %d candidates", len(regexCands)), 35)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	groupCands := r.segmenter.ByPageGroups(ctx, doc.Pages)
	rs.add(fmt.Sprintf("Page-group strategy: %d candidates", len(groupCands)), 42)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	fullText := doc.FullText()
	fullCands := r.segmenter.FullText(ctx, fullText)
	rs.add(fmt.Sprintf("Full-text strategy: %d candidates", len(fullCands)), 48)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	merged := segment.Merge(regexCands, groupCands, fullCands)
	rs.add(fmt.Sprintf("%d unique questions after merge", len(merged)), 52)

	validated := merged
	if len(merged) > 0 {
		rs.add("Validating questions", 55)
		validated = r.analyzer.ValidateQuestions(ctx, merged, fullText)
		rs.add(fmt.Sprintf("Validation kept %d questions", len(validated)), spanSegment.hi)
	} else {
		rs.add("No questions found by any strategy", spanSegment.hi)
	}

	// Stage: question persistence. Order stays dense 1..N in ascending
	// number order; a skipped or failed question leaves no gap.
	rs.add(fmt.Sprintf("Saving %d questions", len(validated)), spanQuestions.lo)
	created := 0
	for i, cand := range validated {
		if err := checkpoint(ctx); err != nil {
			return err
		}
		text := textclean.CleanAndValidate(cand.Text)
		if text == "" {
			rs.add(fmt.Sprintf("Skipping question %d: no usable text after cleanup", cand.Number),
				spanQuestions.at(i+1, len(validated)))
			continue
		}
		if _, err := r.store.CreateQuestion(ctx, rs.jobID, cand.Number, created+1, text); err != nil {
			rs.add(fmt.Sprintf("Saving question %d failed: %v", cand.Number, err),
				spanQuestions.at(i+1, len(validated)))
			continue
		}
		created++
	}
	rs.add(fmt.Sprintf("%d questions saved", created), spanQuestions.hi)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	// Stage: image filtering.
	rs.set(store.StatusFilteringImages,
		fmt.Sprintf("Filtering duplicate images (%d total)", len(doc.Images)), spanFilter.lo)

	filter := imagedup.NewFilter(r.dedup, rs.log)
	var accepted []*imagedup.AcceptedImage
	for _, img := range doc.Images {
		if err := checkpoint(ctx); err != nil {
			return err
		}
		acc, verdict := filter.Check(img, pageHeight(doc.Pages, img.Page))
		if verdict != imagedup.VerdictAccepted {
			rs.log.Debug("image discarded", "page", img.Page, "index", img.Index, "reason", verdict.String())
			continue
		}
		accepted = append(accepted, acc)
	}
	rs.add(fmt.Sprintf("%d unique images after filtering (%d removed)",
		len(accepted), len(doc.Images)-len(accepted)), spanFilter.hi)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	// Stage: image mapping.
	rs.set(store.StatusMappingImages, "Mapping images to questions", spanMap.lo)

	refs := make([]analyze.ImageRef, len(accepted))
	for i, acc := range accepted {
		refs[i] = analyze.ImageRef{Index: i, Page: acc.Image.Page}
		if acc.Image.BBox != nil {
			y := acc.Image.BBox.Y0
			refs[i].BBoxY = &y
		}
	}
	assoc := r.analyzer.AssociateImages(ctx, validated, refs, doc.Pages)
	rs.add(fmt.Sprintf("%d images mapped to questions", len(assoc)), spanMap.hi)
	if err := checkpoint(ctx); err != nil {
		return err
	}

	// Stage: image persistence.
	rs.set(store.StatusSavingImages, fmt.Sprintf("Saving %d images", len(accepted)), spanImages.lo)

	saved := 0
	for i, acc := range accepted {
		if err := checkpoint(ctx); err != nil {
			return err
		}

		var questionID *int64
		if num, ok := assoc[i]; ok {
			if q, qerr := r.store.QuestionByNumber(ctx, rs.jobID, num); qerr == nil {
				questionID = &q.ID
			}
		}

		relPath := fmt.Sprintf("%s/page%d_%d.%s", rs.jobID, acc.Image.Page, i, acc.Image.Format)
		url, err := r.files.Save(acc.Image.Data, relPath)
		if err != nil {
			rs.add(fmt.Sprintf("Saving image %d/%d failed: %v", i+1, len(accepted), err),
				spanImages.at(i+1, len(accepted)))
			continue
		}

		img := &store.Image{
			JobID:          rs.jobID,
			QuestionID:     questionID,
			Path:           url,
			Page:           acc.Image.Page,
			BBox:           acc.Image.BBox,
			ContentHash:    acc.ContentHash,
			PerceptualHash: acc.PerceptualHash,
		}
		if _, err := r.store.CreateImage(ctx, img); err != nil {
			rs.add(fmt.Sprintf("Recording image %d/%d failed: %v", i+1, len(accepted), err),
				spanImages.at(i+1, len(accepted)))
			continue
		}
		saved++
		rs.progressTo(spanImages.at(i+1, len(accepted)))
	}
	rs.add(fmt.Sprintf("%d images saved", saved), spanImages.hi)

	// Stage: done.
	rs.set(store.StatusDone,
		fmt.Sprintf("Processing complete: %d questions, %d images", created, saved), 100)
	return nil
}

// checkpoint surfaces cooperative cancellation between stages and between
// loop iterations.
func checkpoint(ctx context.Context) error {
	return ctx.Err()
}

func pageHeight(pages []pdfdoc.Page, pageNum int) float64 {
	for _, p := range pages {
		if p.Number == pageNum {
			return p.Height
		}
	}
	return 0
}

// runState carries one run's persisted status, progress and stage log.
type runState struct {
	jobID    string
	log      *slog.Logger
	store    Store
	stageLog *stageLog
	dbCtx    context.Context

	status   string
	progress int
}

// set transitions the job to a new status and logs a line.
func (rs *runState) set(status, line string, progress int) {
	rs.status = status
	rs.add(line, progress)
}

// add appends a stage-log line and persists it with the clamped progress.
func (rs *runState) add(line string, progress int) {
	rs.stageLog.add(line)
	rs.persist(progress)
	rs.log.Info(line, "status", rs.status, "progress", rs.progress)
}

// progressTo advances progress without adding a log line.
func (rs *runState) progressTo(progress int) {
	rs.persist(progress)
}

func (rs *runState) persist(progress int) {
	if progress < rs.progress {
		progress = rs.progress
	}
	rs.progress = progress
	window := rs.stageLog.window(logWindow)
	if err := rs.store.UpdateJobStatus(rs.dbCtx, rs.jobID, rs.status, &window, &progress); err != nil {
		rs.log.Warn("persisting job status", "error", err)
	}
}

func (rs *runState) fail(err error, stack []byte) {
	rs.stageLog.add("Processing failed: " + err.Error())
	if len(stack) > 0 {
		rs.stageLog.add(string(stack))
	}
	window := rs.stageLog.window(errorLogWindow)
	zero := 0
	if uerr := rs.store.UpdateJobStatus(rs.dbCtx, rs.jobID, store.StatusError, &window, &zero); uerr != nil {
		rs.log.Error("persisting error status", "error", uerr)
	}
	rs.log.Error("processing failed", "error", err)
}

func (rs *runState) cancelled() {
	rs.stageLog.add("Processing cancelled")
	window := rs.stageLog.window(logWindow)
	zero := 0
	if uerr := rs.store.UpdateJobStatus(rs.dbCtx, rs.jobID, store.StatusCancelled, &window, &zero); uerr != nil {
		rs.log.Error("persisting cancelled status", "error", uerr)
	}
	rs.log.Info("processing cancelled")
}
