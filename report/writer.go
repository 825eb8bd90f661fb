package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer stores rendered reports in a directory.
type Writer struct {
	Dir string
}

// NewWriter creates dir if needed. An empty dir means the working directory.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory %q: %w", dir, err)
	}
	return &Writer{Dir: dir}, nil
}

// FileName is the report name for a category.
func FileName(category string) string {
	return "books-" + category + ".html"
}

// Write replaces the category's report and returns its path.
func (w *Writer) Write(category string, data []byte) (string, error) {
	if category == "" {
		return "", fmt.Errorf("report category cannot be empty")
	}
	path := filepath.Join(w.Dir, filepath.Base(FileName(category)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
