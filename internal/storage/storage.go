// Package storage abstracts the blob store holding uploaded media files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Backend names for explicit startup selection.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
)

// Store is the blob storage collaborator. Implementations must make Delete
// idempotent: removing a path that does not exist is not an error.
type Store interface {
	Save(path string, data []byte) error
	Delete(path string) error
	Exists(path string) (bool, error)
	Read(path string) ([]byte, error)
}

// aferoStore implements Store on top of an afero filesystem rooted at baseDir.
type aferoStore struct {
	fs      afero.Fs
	baseDir string
}

// NewLocal returns a Store backed by the OS filesystem under baseDir.
func NewLocal(baseDir string) Store {
	return &aferoStore{fs: afero.NewOsFs(), baseDir: baseDir}
}

// NewMemory returns a Store backed by an in-memory filesystem. It also serves
// as the test double for upload paths.
func NewMemory() Store {
	return &aferoStore{fs: afero.NewMemMapFs(), baseDir: "/"}
}

// New selects a backend once at startup from explicit configuration.
func New(backend, baseDir string) (Store, error) {
	switch backend {
	case BackendLocal, "":
		return NewLocal(baseDir), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func (s *aferoStore) abs(path string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(path))
}

func (s *aferoStore) Save(path string, data []byte) error {
	full := s.abs(path)
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, full, data, 0o644)
}

func (s *aferoStore) Delete(path string) error {
	err := s.fs.Remove(s.abs(path))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *aferoStore) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, s.abs(path))
}

func (s *aferoStore) Read(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.abs(path))
}
