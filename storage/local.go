package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Local stores blobs on disk under an injected root directory, one
// subdirectory per namespace
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root, %w", err)
	}

	return &Local{root: root}, nil
}

func (l *Local) Write(_ context.Context, namespace, originalName string, r io.Reader) (*WriteResult, error) {
	name, err := newStoredName(originalName)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(l.root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create namespace directory, %w", err)
	}

	dst := filepath.Join(dir, name)

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob file, %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(dst)
		return nil, fmt.Errorf("failed to write blob, %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("failed to flush blob, %w", err)
	}

	return &WriteResult{
		StoredName: name,
		Path:       path.Join(namespace, name),
		Size:       n,
	}, nil
}

func (l *Local) Open(_ context.Context, relPath string) (io.ReadCloser, int64, error) {
	f, err := os.Open(filepath.Join(l.root, filepath.FromSlash(relPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}

		return nil, 0, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return f, stat.Size(), nil
}

func (l *Local) Delete(_ context.Context, relPath string) error {
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
