// Package objectstore keeps content-addressed blobs on the file system.
package objectstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
)

// ErrInvalidName is returned for namespaces or hashes that would escape the
// store.
var ErrInvalidName = errors.New("objectstore: invalid name")

// A Store keeps blobs grouped by namespace.
type Store interface {
	// TryRead returns the blob stored under the hash, if any.
	TryRead(ns, hash string) ([]byte, bool, error)

	// Write stores a blob under the hash.
	Write(ns, hash string, data []byte) error

	// Put stores a blob under its own hash and returns the hash.
	Put(ns string, data []byte) (string, error)
}

// FileSystem stores each blob as a file named by its hash inside a directory
// per namespace.
type FileSystem struct {
	Base string
}

// NewFileSystem creates a store rooted at base.
func NewFileSystem(base string) *FileSystem {
	return &FileSystem{Base: base}
}

// Hash returns the name of a blob: the base58 encoding of its SHA-256.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return base58.Encode(sum[:])
}

func (s *FileSystem) path(ns, hash string) (string, error) {
	if ns == "" || strings.ContainsAny(ns, `/\`) || ns == "." || ns == ".." {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidName, ns)
	}

	hash = strings.ReplaceAll(hash, "/", "_")
	if hash == "" || strings.Contains(hash, `\`) || hash == "." ||
		hash == ".." {
		return "", fmt.Errorf("%w: hash %q", ErrInvalidName, hash)
	}

	return filepath.Join(s.Base, ns, hash), nil
}

// TryRead returns the blob stored under the hash, if any.
func (s *FileSystem) TryRead(ns, hash string) ([]byte, bool, error) {
	p, err := s.path(ns, hash)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

// Write stores a blob under the hash, replacing any previous content.
func (s *FileSystem) Write(ns, hash string, data []byte) error {
	p, err := s.path(ns, hash)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), p)
}

// Put stores a blob under its own hash and returns the hash.
func (s *FileSystem) Put(ns string, data []byte) (string, error) {
	hash := Hash(data)

	if err := s.Write(ns, hash, data); err != nil {
		return "", err
	}

	return hash, nil
}

// List returns the hashes stored in a namespace.
func (s *FileSystem) List(ns string) ([]string, error) {
	p, err := s.path(ns, "x")
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var hashes []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}

		hashes = append(hashes, e.Name())
	}

	return hashes, nil
}
