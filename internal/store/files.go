package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes accepted image files under a root directory and hands
// back addressable URLs built from a base URL.
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates a file store rooted at root. baseURL prefixes the
// returned URLs (e.g. "http://localhost:8000/images").
func NewFileStore(root, baseURL string) *FileStore {
	return &FileStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Save writes data at relPath under the root, creating parent directories
// as needed, and returns the addressable URL.
func (f *FileStore) Save(data []byte, relPath string) (string, error) {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	if relPath == "." || strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("invalid relative path %q", relPath)
	}

	dst := filepath.Join(f.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return f.baseURL + "/" + relPath, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (f *FileStore) Remove(relPath string) error {
	err := os.Remove(filepath.Join(f.root, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
