package scanner_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"pixpress/internal/scanner"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644))
}

func names(entries []scanner.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestScan_FiltersToImageExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.png")
	writeFile(t, dir, "b.txt")
	writeFile(t, dir, "C.JPG")
	writeFile(t, dir, "photo.webp")
	writeFile(t, dir, "anim.gif")
	writeFile(t, dir, "noext")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	sc := scanner.New([]string{".jpg", ".jpeg", ".png", ".webp", ".gif"}, quietLogger())
	entries, err := sc.Scan(dir)
	require.NoError(t, err)

	// Membership only; enumeration order is the host's business.
	assert.ElementsMatch(t, []string{"a.png", "C.JPG", "photo.webp", "anim.gif"}, names(entries))
}

func TestScan_NormalizesExtensionSpec(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.jpeg")

	// Extensions without a leading dot and in upper case still match.
	sc := scanner.New([]string{"JPEG"}, quietLogger())
	entries, err := sc.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.jpeg"}, names(entries))
}

func TestScan_NonRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	writeFile(t, sub, "deep.png")
	writeFile(t, dir, "top.png")

	sc := scanner.New([]string{".png"}, quietLogger())
	entries, err := sc.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"top.png"}, names(entries))
}

func TestScan_EnumerationError(t *testing.T) {
	sc := scanner.New([]string{".png"}, quietLogger())
	entries, err := sc.Scan(filepath.Join(t.TempDir(), "missing"))

	assert.Empty(t, entries)
	var enumErr *scanner.EnumerationError
	require.ErrorAs(t, err, &enumErr)
}

func TestScan_EmptyDirectory(t *testing.T) {
	sc := scanner.New([]string{".png"}, quietLogger())
	entries, err := sc.Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
