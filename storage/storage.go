// Package storage holds the blob store implementations uploads are
// written to. The ledger in the database stays the source of truth,
// everything here only moves bytes
package storage

import (
	"context"
	"errors"
	"io"
	"path"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
)

// ErrNotFound is returned when a relative path doesn't resolve to a blob
var ErrNotFound = errors.New("blob not found")

type WriteResult struct {
	// Generated name of the blob inside its namespace
	StoredName string

	// Relative path locating the blob inside the store,
	// {namespace}/{storedName} with forward slashes
	Path string

	// Bytes written
	Size int64
}

type Store interface {
	// Write stores the content of r under a freshly generated name
	// inside namespace, creating the namespace if needed
	Write(ctx context.Context, namespace, originalName string, r io.Reader) (*WriteResult, error)

	// Open returns a reader over the blob at relPath together with its
	// size, or ErrNotFound
	Open(ctx context.Context, relPath string) (io.ReadCloser, int64, error)

	// Delete removes the blob at relPath. A missing blob is not an
	// error so deletes can be retried safely
	Delete(ctx context.Context, relPath string) error
}

// New builds the store selected by storage.type
func New() (Store, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		s, err := NewS3()
		if err != nil {
			return nil, err
		}

		return s, nil
	default:
		l, err := NewLocal(viper.GetString("storage.root"))
		if err != nil {
			return nil, err
		}

		return l, nil
	}
}

const nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newStoredName generates a collision-resistant blob name, keeping the
// extension of the original file so served content keeps its type
func newStoredName(originalName string) (string, error) {
	token, err := gonanoid.Generate(nameAlphabet, 21)
	if err != nil {
		return "", err
	}

	return token + path.Ext(originalName), nil
}

// NamespaceFor derives a filesystem-safe directory name from an email.
// Distinct emails can sanitize to the same namespace, which is why
// ownership checks always run against the ledger and never against
// directory layout
func NamespaceFor(email string) string {
	out := []byte(email)

	for i := 0; i < len(out); i++ {
		c := out[i]

		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			out[i] = '_'
		}
	}

	return string(out)
}
