// Package scratch provides per-operation temporary directories and the file
// helpers used to move documents through them. Every download and every
// transformation runs inside its own directory, removed by the returned
// cleanup regardless of how the operation ends.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath = errors.New("scratch: invalid path")
	ErrWriteFailed = errors.New("scratch: write failed")
)

const defaultFilePerm os.FileMode = 0o600

// Dir creates a private temporary directory for one operation. Cleanup
// removes the directory and its contents; callers defer it on every path.
func Dir(pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("scratch dir %q: %w", pattern, err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	return dir, cleanup, nil
}

// WriteStream writes r to path through a temp file in the same directory,
// syncing and renaming so a failed write never leaves a partial file behind.
func WriteStream(path string, r io.Reader) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(normalized)
	tmp, err := os.CreateTemp(parentDir, filepath.Base(normalized)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	defer cleanup()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := os.Rename(tmpPath, normalized); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	return nil
}

// CopyFile copies src to dst with WriteStream semantics.
func CopyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrWriteFailed, src, err)
	}
	defer func() { _ = in.Close() }()
	return WriteStream(dst, in)
}

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}
