// Package store persists normalized items, one record per call.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrStorageUnavailable wraps every failure to persist a record.
var ErrStorageUnavailable = errors.New("store: unavailable")

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func validCategory(category string) error {
	if category == "" || category == "." || category == ".." || strings.ContainsAny(category, `/\`) {
		return fmt.Errorf("invalid category key %q", category)
	}
	return nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

func ensureParent(filename string) error {
	return ensureDir(filepath.Dir(filename))
}
