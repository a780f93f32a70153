package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the examina home directory.
	DefaultDirName = ".examina"

	// UploadsDirName is the subdirectory for uploaded source PDFs.
	UploadsDirName = "uploads"

	// ImagesDirName is the subdirectory for extracted question images.
	ImagesDirName = "images"

	// DatabaseFileName is the sqlite database file name.
	DatabaseFileName = "examina.db"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the examina home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.examina).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// UploadsPath returns the path to the uploads directory.
func (d *Dir) UploadsPath() string {
	return filepath.Join(d.path, UploadsDirName)
}

// ImagesPath returns the path to the images directory.
func (d *Dir) ImagesPath() string {
	return filepath.Join(d.path, ImagesDirName)
}

// DatabasePath returns the path to the sqlite database file.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// UploadPath returns the path for a job's uploaded source file.
func (d *Dir) UploadPath(jobID, filename string) string {
	return filepath.Join(d.UploadsPath(), jobID+"_"+filepath.Base(filename))
}

// JobImagesPath returns the images directory for a single job.
func (d *Dir) JobImagesPath(jobID string) string {
	return filepath.Join(d.ImagesPath(), "job_"+jobID)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.UploadsPath(), d.ImagesPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}
