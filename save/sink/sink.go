// Package sink writes encoded images to their destination: the local file
// system or an S3-compatible bucket.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores encoded images at resolved output paths.
type Sink interface {
	// Exists reports whether something is already stored at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Write stores data at path, creating any missing parent directories.
	Write(ctx context.Context, path, contentType string, data []byte) error
	// Location returns a printable location for path.
	Location(path string) string
}

// LocalSink writes files to the local file system.
type LocalSink struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// NewLocalSink returns a LocalSink with 0755 directories and 0644 files.
func NewLocalSink() *LocalSink {
	return &LocalSink{DirPerm: 0755, FilePerm: 0644}
}

func (s *LocalSink) Exists(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write writes data to a temporary file next to path and renames it into
// place, so a failed write never leaves a truncated image behind.
func (s *LocalSink) Write(ctx context.Context, path, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.DirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, s.FilePerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func (s *LocalSink) Location(path string) string {
	return path
}
