package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileEntry describes an image file found during a directory scan.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"-"`
}

// EnumerationError indicates that listing a directory failed.
type EnumerationError struct {
	Dir string
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to list directory %s: %v", e.Dir, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// Scanner enumerates image files in a directory.
type Scanner struct {
	extensions map[string]struct{}
	log        *logrus.Logger
}

// New returns a Scanner that matches the given extensions (case-insensitive,
// leading dot optional).
func New(extensions []string, log *logrus.Logger) *Scanner {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[ext] = struct{}{}
	}
	return &Scanner{extensions: extSet, log: log}
}

// Scan returns the direct children of dir that are regular files with a
// matching extension, in host enumeration order. On enumeration failure it
// returns an empty list and an EnumerationError.
func (s *Scanner) Scan(dir string) ([]FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.WithField("directory", dir).Warnf("Directory enumeration failed: %v", err)
		return nil, &EnumerationError{Dir: dir, Err: err}
	}

	var files []FileEntry
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := s.extensions[ext]; !ok {
			continue
		}
		files = append(files, FileEntry{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}

	s.log.WithFields(logrus.Fields{
		"directory": dir,
		"files":     len(files),
	}).Debug("Directory scan complete")

	return files, nil
}
