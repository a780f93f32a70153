// Package svcctx provides service context for dependency injection via
// context. Commands assemble a Services once and pass it down; components
// extract what they need via the individual extractors.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/mfcarvalho/examina/internal/config"
	"github.com/mfcarvalho/examina/internal/home"
	"github.com/mfcarvalho/examina/internal/jobs"
	"github.com/mfcarvalho/examina/internal/pipeline"
	"github.com/mfcarvalho/examina/internal/store"
)

// Services holds the core services that flow through context.
type Services struct {
	Store      *store.Store
	Files      *store.FileStore
	JobManager *jobs.Manager
	Pool       *jobs.Pool
	Runner     *pipeline.Runner
	Config     *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the persistence store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// JobManagerFrom extracts the job manager from context.
func JobManagerFrom(ctx context.Context) *jobs.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobManager
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}
