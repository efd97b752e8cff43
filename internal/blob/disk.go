package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskSink writes objects below a fixed base directory.
type DiskSink struct {
	base string
}

// NewDiskSink creates dir if needed and anchors the sink there.
func NewDiskSink(dir string) (*DiskSink, error) {
	base, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob dir %s: %w", base, err)
	}
	return &DiskSink{base: base}, nil
}

// Dir returns the absolute base directory.
func (s *DiskSink) Dir() string { return s.base }

// Path resolves key against the base directory, rejecting escapes.
func (s *DiskSink) Path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.base, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(s.base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

// Put writes to a temp file and renames it into place, so readers never see
// a half-written object and repeated uploads converge on the last one.
func (s *DiskSink) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	full, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}
