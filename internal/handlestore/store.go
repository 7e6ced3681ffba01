package handlestore

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Permission is the read-access state of a directory handle.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

// DirectoryHandle is a reference to a user-granted directory.
type DirectoryHandle struct {
	Path    string    `json:"path"`
	SavedAt time.Time `json:"saved_at"`

	// Permission is probed at load/open time, never persisted.
	Permission Permission `json:"-"`
}

// Store persists a single remembered directory across sessions.
type Store struct {
	path string
	log  *logrus.Logger
}

// New returns a Store backed by a single JSON file at the given path.
func New(path string, log *logrus.Logger) *Store {
	return &Store{path: path, log: log}
}

// Save persists the handle, replacing any previously remembered directory.
func (s *Store) Save(handle *DirectoryHandle) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(handle)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load returns the remembered directory with a fresh permission probe, or nil
// when nothing usable is stored. Storage errors degrade to nil: a corrupt or
// unreadable record behaves exactly like an absent one.
func (s *Store) Load() *DirectoryHandle {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithField("store", s.path).Debugf("Failed to read remembered directory: %v", err)
		}
		return nil
	}

	var handle DirectoryHandle
	if err := json.Unmarshal(data, &handle); err != nil {
		s.log.WithField("store", s.path).Debugf("Corrupt remembered directory record: %v", err)
		return nil
	}
	if handle.Path == "" {
		return nil
	}

	handle.Permission = Probe(handle.Path)
	if handle.Permission != PermissionGranted {
		s.log.WithField("directory", handle.Path).Debug("Remembered directory is no longer readable")
		return nil
	}
	return &handle
}

// Clear removes the remembered directory record.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Probe checks read access to a directory. Permission is external mutable
// state, so callers must probe before every operation that touches the
// directory rather than caching a past grant.
func Probe(dir string) Permission {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return PermissionDenied
	}

	f, err := os.Open(dir)
	if err != nil {
		return PermissionDenied
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return PermissionDenied
	}
	return PermissionGranted
}
