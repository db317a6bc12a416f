package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBaseline stores each collection as <dir>/<name>.json. This is the
// snapshot bundled with a deployment.
type FileBaseline struct {
	dir string
}

// NewFileBaseline creates a file baseline rooted at dir.
func NewFileBaseline(dir string) *FileBaseline {
	return &FileBaseline{dir: dir}
}

func (b *FileBaseline) path(name string) string {
	return filepath.Join(b.dir, filepath.Base(name)+".json")
}

// ReadCollection returns the raw document, or ErrNotFound.
func (b *FileBaseline) ReadCollection(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read baseline %s: %w", name, err)
	}
	return data, nil
}

// WriteCollection replaces the document atomically (temp file + rename).
func (b *FileBaseline) WriteCollection(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	tmp, err := os.CreateTemp(b.dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write baseline %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close baseline %s: %w", name, err)
	}
	if err := os.Rename(tmpName, b.path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename baseline %s: %w", name, err)
	}
	return nil
}
