package handlestore_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pixpress/internal/handlestore"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	store := handlestore.New(filepath.Join(t.TempDir(), "slot", "last.json"), quietLogger())

	require.NoError(t, store.Save(&handlestore.DirectoryHandle{Path: dir, SavedAt: time.Now()}))

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, dir, loaded.Path)
	assert.Equal(t, handlestore.PermissionGranted, loaded.Permission)
}

func TestLoad_NothingStored(t *testing.T) {
	store := handlestore.New(filepath.Join(t.TempDir(), "last.json"), quietLogger())
	assert.Nil(t, store.Load())
}

func TestLoad_CorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store := handlestore.New(path, quietLogger())
	assert.Nil(t, store.Load())
}

func TestLoad_DirectoryGone(t *testing.T) {
	gone := filepath.Join(t.TempDir(), "vanished")
	require.NoError(t, os.Mkdir(gone, 0755))

	store := handlestore.New(filepath.Join(t.TempDir(), "last.json"), quietLogger())
	require.NoError(t, store.Save(&handlestore.DirectoryHandle{Path: gone, SavedAt: time.Now()}))

	require.NoError(t, os.Remove(gone))

	// Permission is re-probed on load; a vanished directory degrades to nil.
	assert.Nil(t, store.Load())
}

func TestClear(t *testing.T) {
	store := handlestore.New(filepath.Join(t.TempDir(), "last.json"), quietLogger())
	require.NoError(t, store.Save(&handlestore.DirectoryHandle{Path: t.TempDir(), SavedAt: time.Now()}))

	require.NoError(t, store.Clear())
	assert.Nil(t, store.Load())

	// Clearing an already-empty slot is fine.
	require.NoError(t, store.Clear())
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, handlestore.PermissionGranted, handlestore.Probe(dir))
	assert.Equal(t, handlestore.PermissionDenied, handlestore.Probe(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.Equal(t, handlestore.PermissionDenied, handlestore.Probe(file))
}
