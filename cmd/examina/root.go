package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfcarvalho/examina/internal/analyze"
	"github.com/mfcarvalho/examina/internal/config"
	"github.com/mfcarvalho/examina/internal/home"
	"github.com/mfcarvalho/examina/internal/jobs"
	"github.com/mfcarvalho/examina/internal/ocr"
	"github.com/mfcarvalho/examina/internal/pdfdoc"
	"github.com/mfcarvalho/examina/internal/pipeline"
	"github.com/mfcarvalho/examina/internal/providers"
	"github.com/mfcarvalho/examina/internal/segment"
	"github.com/mfcarvalho/examina/internal/store"
	"github.com/mfcarvalho/examina/internal/svcctx"
	"github.com/mfcarvalho/examina/version"
)

var (
	cfgFile string
	homeDir string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "examina",
	Short: "Exam PDF analysis pipeline",
	Long: `Examina ingests scanned or typeset exam PDFs and converts them into
structured question records with associated images.

The pipeline includes:
  - Per-page text extraction with OCR fallback for embedded images
  - Multi-strategy question segmentation (patterns and AI) with merge
  - AI validation of the extracted question set
  - Image deduplication, header/footer filtering and question association`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.examina/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "examina home directory (default: ~/.examina)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// buildServices assembles the full service graph for a command run.
// The caller closes the returned store.
func buildServices() (*svcctx.Services, error) {
	logger := newLogger()

	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := cm.Get()

	st, err := store.Open(h.DatabasePath(), logger)
	if err != nil {
		return nil, err
	}
	files := store.NewFileStore(h.ImagesPath(), cfg.Storage.BaseURL)

	chat := providers.NewOpenAIChatClient(providers.OpenAIConfig{
		APIKey: config.ResolveEnvVars(cfg.Providers.LLM.APIKey),
		Model:  cfg.Providers.LLM.Model,
	})

	var ocrFallback pipeline.OCR
	if cfg.Providers.OCR.Enabled {
		ocrClient := providers.NewMistralOCRClient(providers.MistralOCRConfig{
			APIKey:    config.ResolveEnvVars(cfg.Providers.OCR.APIKey),
			Model:     cfg.Providers.OCR.Model,
			RateLimit: cfg.Providers.OCR.RateLimit,
		})
		ocrFallback = ocr.NewFallback(ocrClient, logger)
	}

	runner := pipeline.NewRunner(pipeline.Config{
		Store:     st,
		Files:     files,
		Extractor: pdfdoc.New(logger),
		Segmenter: segment.NewSegmenter(chat, logger),
		Analyzer:  analyze.New(chat, logger),
		OCR:       ocrFallback,
		Dedup:     cfg.DedupConfig(),
		Logger:    logger,
	})

	pool := jobs.NewPool(jobs.PoolConfig{
		Logger:      logger,
		WorkerCount: cfg.Pool.Workers,
		QueueSize:   cfg.Pool.QueueSize,
		Run:         runner.Run,
	})

	return &svcctx.Services{
		Store:      st,
		Files:      files,
		JobManager: jobs.NewManager(st, pool, logger),
		Pool:       pool,
		Runner:     runner,
		Config:     cm,
		Logger:     logger,
		Home:       h,
	}, nil
}
