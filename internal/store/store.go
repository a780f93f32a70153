// Package store persists jobs, questions and images in an embedded
// sqlite database, and writes accepted image files to disk.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Job statuses. Transitions are forward-only on success; error and
// cancelled are terminal.
const (
	StatusQueued          = "queued"
	StatusExtracting      = "extracting"
	StatusAnalyzing       = "analyzing"
	StatusFilteringImages = "filtering_images"
	StatusMappingImages   = "mapping_images"
	StatusSavingImages    = "saving_images"
	StatusDone            = "done"
	StatusError           = "error"
	StatusCancelled       = "cancelled"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	stage_log  TEXT NOT NULL DEFAULT '',
	progress   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id         TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	number         INTEGER NOT NULL,
	ord            INTEGER NOT NULL,
	raw_text       TEXT NOT NULL,
	formatted_text TEXT,
	formatted      INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL,
	UNIQUE (job_id, number)
);

CREATE TABLE IF NOT EXISTS images (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id          TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	question_id     INTEGER REFERENCES questions(id),
	path            TEXT NOT NULL,
	page            INTEGER NOT NULL,
	bbox_x0         REAL,
	bbox_y0         REAL,
	bbox_x1         REAL,
	bbox_y1         REAL,
	content_hash    TEXT,
	perceptual_hash TEXT,
	created_at      DATETIME NOT NULL,
	CHECK (question_id IS NULL OR question_id > 0)
);

CREATE INDEX IF NOT EXISTS idx_questions_job ON questions (job_id, ord);
CREATE INDEX IF NOT EXISTS idx_images_job ON images (job_id);
CREATE INDEX IF NOT EXISTS idx_images_question ON images (question_id);
`

// Store wraps the sqlite database. Every status/log/progress update is a
// single independent write; no transaction spans pipeline stages.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and bootstraps the
// schema.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite handles one writer at a time; serializing in the pool
	// avoids SQLITE_BUSY under concurrent jobs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return &Store{db: db, log: log.With("component", "store")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
