package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/getmockd/kbase/pkg/entity"
)

// DefaultSnapshotPath is the fixed location of the automatic snapshot.
const DefaultSnapshotPath = "/tmp/kbase.tmpdb"

// WriteSnapshot writes the collections to path, replacing any previous
// content. The document is written to a temporary file in the same directory
// and renamed into place. A missing or unwritable directory is an error.
func WriteSnapshot(path string, c entity.Collections) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot reads a document written by WriteSnapshot. It returns
// ErrNotFound if path does not exist or is a directory, and ErrMalformed if the content cannot be
// parsed into the four collections.
func ReadSnapshot(path string) (entity.Collections, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return entity.Collections{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entity.Collections{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return entity.Collections{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	c, err := Decode(data)
	if err != nil {
		return entity.Collections{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return c, nil
}

// FileBackend keeps the automatic snapshot in a single YAML file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend. An empty path selects
// DefaultSnapshotPath.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultSnapshotPath
	}
	return &FileBackend{path: path}
}

// Path returns the snapshot file path.
func (b *FileBackend) Path() string { return b.path }

// Write replaces the snapshot file.
func (b *FileBackend) Write(_ context.Context, c entity.Collections) error {
	return WriteSnapshot(b.path, c)
}

// Read loads the snapshot file.
func (b *FileBackend) Read(_ context.Context) (entity.Collections, error) {
	return ReadSnapshot(b.path)
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) String() string { return "file:" + b.path }
