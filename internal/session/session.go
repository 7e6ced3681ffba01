package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pixpress/internal/compressor"
	"pixpress/internal/handlestore"
	"pixpress/internal/scanner"
	"pixpress/internal/statistics"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle phase of the current file selection.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateCompressing State = "compressing"
	StateReady       State = "ready"
	StateError       State = "error"
)

var (
	// ErrPermissionDenied is returned when directory read access is refused.
	ErrPermissionDenied = errors.New("directory read permission denied")
	// ErrNoSelection is returned when an operation needs a selected file.
	ErrNoSelection = errors.New("no file selected")
	// ErrNoCompressed is returned when no compressed rendition is available.
	ErrNoCompressed = errors.New("no compressed rendition available")
	// ErrUnknownFile is returned when a selection names a file outside the scan.
	ErrUnknownFile = errors.New("file not present in the current directory")
)

// Rendition is a transient in-memory image buffer owned by the selection.
type Rendition struct {
	Data      []byte
	SizeBytes int64
	Width     int
	Height    int
}

// Release drops the buffer so superseded renditions do not pile up while the
// user browses many files in sequence.
func (r *Rendition) Release() {
	if r != nil {
		r.Data = nil
	}
}

// SelectedFile is the single live selection, fully replaced on reselection.
type SelectedFile struct {
	Name       string
	Path       string
	Original   *Rendition
	Compressed *Rendition
}

// Controller owns all session state and orchestrates directory selection,
// scanning and recompression. All state is reachable from this one struct
// and mutated only under its mutex.
type Controller struct {
	log      *logrus.Logger
	engine   compressor.Engine
	scanner  *scanner.Scanner
	store    *handlestore.Store
	stats    *statistics.Statistics
	debounce time.Duration

	mu         sync.Mutex
	notifyMu   sync.Mutex
	dir        *handlestore.DirectoryHandle
	files      []scanner.FileEntry
	selected   *SelectedFile
	params     compressor.Params
	state      State
	status     string
	generation uint64
	cancel     context.CancelFunc
	pending    *time.Timer

	onChange func(Snapshot)
}

// NewController returns a Controller in the idle state.
func NewController(
	engine compressor.Engine,
	sc *scanner.Scanner,
	store *handlestore.Store,
	stats *statistics.Statistics,
	params compressor.Params,
	debounce time.Duration,
	log *logrus.Logger,
) *Controller {
	return &Controller{
		log:      log,
		engine:   engine,
		scanner:  sc,
		store:    store,
		stats:    stats,
		debounce: debounce,
		params:   params,
		state:    StateIdle,
	}
}

// SetOnChange registers a callback invoked with a fresh snapshot after every
// state change. Invocations are serialized and arrive in state order; the
// callback runs outside the controller lock.
func (c *Controller) SetOnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// OpenDirectory selects a new working directory. An empty path means the
// picker was dismissed and is a silent no-op. A failed permission probe
// leaves all prior state untouched.
func (c *Controller) OpenDirectory(path string) error {
	if strings.TrimSpace(path) == "" {
		c.log.Debug("Directory selection cancelled")
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	c.mu.Lock()
	if handlestore.Probe(abs) != handlestore.PermissionGranted {
		c.status = fmt.Sprintf("Access denied: %s", abs)
		c.notifyAndUnlock()
		return ErrPermissionDenied
	}

	handle := &handlestore.DirectoryHandle{
		Path:       abs,
		SavedAt:    time.Now(),
		Permission: handlestore.PermissionGranted,
	}
	if err := c.store.Save(handle); err != nil {
		// Persistence is best-effort; the session works without it.
		c.log.Warnf("Failed to remember directory: %v", err)
	}

	c.adoptDirectoryLocked(handle, fmt.Sprintf("Opened %s", abs))
	c.notifyAndUnlock()
	return nil
}

// RestoreDirectory re-opens the remembered directory if it is still readable.
// Anything short of a usable handle is a silent no-op.
func (c *Controller) RestoreDirectory() {
	handle := c.store.Load()
	if handle == nil {
		return
	}

	c.mu.Lock()
	c.adoptDirectoryLocked(handle, fmt.Sprintf("Restored last directory: %s", handle.Path))
	c.notifyAndUnlock()
}

// adoptDirectoryLocked installs a granted directory handle: scans it, clears
// the previous selection and invalidates any in-flight compression.
func (c *Controller) adoptDirectoryLocked(handle *handlestore.DirectoryHandle, status string) {
	c.invalidateLocked()
	c.releaseSelectionLocked()

	c.dir = handle
	c.state = StateIdle
	c.status = status

	files, err := c.scanner.Scan(handle.Path)
	if err != nil {
		c.files = nil
		c.status = fmt.Sprintf("Error listing %s: %v", handle.Path, err)
		c.stats.AddError(handle.Path, "scan", err.Error())
	} else {
		c.files = files
		c.stats.IncrementDirectoriesScanned()
		c.stats.AddFilesListed(int64(len(files)))
	}
}

// SelectFile loads a file from the current directory and starts compressing
// it with the current parameters.
func (c *Controller) SelectFile(name string) error {
	c.mu.Lock()
	var entry *scanner.FileEntry
	for i := range c.files {
		if c.files[i].Name == name {
			entry = &c.files[i]
			break
		}
	}
	if entry == nil {
		c.mu.Unlock()
		return ErrUnknownFile
	}

	c.invalidateLocked()
	c.releaseSelectionLocked()
	c.state = StateLoading
	c.status = fmt.Sprintf("Loading %s", name)

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		c.state = StateError
		c.status = fmt.Sprintf("Error reading %s: %v", name, err)
		c.stats.AddError(name, "read", err.Error())
		c.notifyAndUnlock()
		return err
	}

	c.selected = &SelectedFile{
		Name: entry.Name,
		Path: entry.Path,
		Original: &Rendition{
			Data:      data,
			SizeBytes: int64(len(data)),
		},
	}
	c.stats.IncrementFilesSelected()

	c.startCompressionLocked()
	c.notifyAndUnlock()
	return nil
}

// SetParameters updates the compression parameters and schedules a debounced
// recompression of the current selection only.
func (c *Controller) SetParameters(params compressor.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.params = params
	if c.selected == nil || c.selected.Original == nil {
		c.notifyAndUnlock()
		return nil
	}

	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}

	if c.debounce <= 0 {
		c.startCompressionLocked()
		c.notifyAndUnlock()
		return nil
	}

	c.pending = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		if c.selected == nil || c.selected.Original == nil {
			c.mu.Unlock()
			return
		}
		c.startCompressionLocked()
		c.notifyAndUnlock()
	})
	c.mu.Unlock()
	return nil
}

// startCompressionLocked supersedes any in-flight job and launches a new one
// tagged with the next generation.
func (c *Controller) startCompressionLocked() {
	c.invalidateLocked()
	gen := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.state = StateCompressing
	c.status = fmt.Sprintf("Compressing %s", c.selected.Name)

	name := c.selected.Name
	src := c.selected.Original.Data
	params := c.params
	go c.runCompression(ctx, gen, name, src, params)
}

// runCompression executes one engine call and applies the result only if its
// generation is still current.
func (c *Controller) runCompression(ctx context.Context, gen uint64, name string, src []byte, params compressor.Params) {
	result, err := c.engine.Compress(ctx, src, params)

	c.mu.Lock()
	if gen != c.generation {
		// A newer selection or parameter set owns the session now.
		c.log.WithField("file", name).Debug("Discarding superseded compression result")
		c.stats.IncrementResultsDiscarded()
		c.mu.Unlock()
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		// The original stays viewable; only the compressed pane is withheld.
		c.selected.Compressed.Release()
		c.selected.Compressed = nil
		c.state = StateError
		c.status = fmt.Sprintf("Compression error for %s: %v", name, err)
		c.stats.IncrementCompressionsFailed()
		c.stats.AddError(name, "compress", err.Error())
		c.notifyAndUnlock()
		return
	}

	c.selected.Compressed.Release()
	c.selected.Compressed = &Rendition{
		Data:      result.Data,
		SizeBytes: int64(len(result.Data)),
		Width:     result.Width,
		Height:    result.Height,
	}
	c.state = StateReady
	c.status = fmt.Sprintf("Compression success: %s -> %s",
		statistics.FormatBytes(c.selected.Original.SizeBytes),
		statistics.FormatBytes(c.selected.Compressed.SizeBytes))
	c.stats.IncrementCompressionsDone()
	c.stats.AddBytesIn(int64(len(src)))
	c.stats.AddBytesOut(c.selected.Compressed.SizeBytes)

	c.notifyAndUnlock()
}

// invalidateLocked bumps the generation and cancels the in-flight job, if any.
func (c *Controller) invalidateLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// releaseSelectionLocked drops the current selection and its renditions.
func (c *Controller) releaseSelectionLocked() {
	if c.selected == nil {
		return
	}
	c.selected.Original.Release()
	c.selected.Compressed.Release()
	c.selected = nil
}

// OriginalBytes returns the selected file's raw bytes and name.
func (c *Controller) OriginalBytes() (string, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil || c.selected.Original == nil || c.selected.Original.Data == nil {
		return "", nil, ErrNoSelection
	}
	return c.selected.Name, c.selected.Original.Data, nil
}

// CompressedBytes returns the compressed rendition's bytes and its format.
func (c *Controller) CompressedBytes() ([]byte, compressor.Format, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil, "", ErrNoSelection
	}
	if c.selected.Compressed == nil || c.selected.Compressed.Data == nil {
		return nil, "", ErrNoCompressed
	}
	return c.selected.Compressed.Data, c.params.Format, nil
}

// DownloadOriginal returns the original bytes under the original filename.
func (c *Controller) DownloadOriginal() (string, []byte, error) {
	return c.OriginalBytes()
}

// DownloadCompressed returns the compressed bytes under the derived filename.
func (c *Controller) DownloadCompressed() (string, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return "", nil, ErrNoSelection
	}
	if c.selected.Compressed == nil || c.selected.Compressed.Data == nil {
		return "", nil, ErrNoCompressed
	}
	return DownloadName(c.selected.Name, c.params), c.selected.Compressed.Data, nil
}

// SelectedPath returns the on-disk path of the selected file.
func (c *Controller) SelectedPath() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return "", ErrNoSelection
	}
	return c.selected.Path, nil
}

// Params returns the current compression parameters.
func (c *Controller) Params() compressor.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Close cancels any in-flight work and releases the selection.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	c.releaseSelectionLocked()
	c.state = StateIdle
}

// notifyAndUnlock snapshots the state, releases c.mu and delivers the
// snapshot to the onChange callback. The delivery mutex is acquired while
// c.mu is still held, so snapshots always reach the callback in the order
// the states were produced and no two invocations overlap.
func (c *Controller) notifyAndUnlock() {
	snap := c.snapshotLocked()
	fn := c.onChange
	c.notifyMu.Lock()
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
	c.notifyMu.Unlock()
}

// DownloadName derives the download filename for a compressed rendition:
// <basename>_compressed_<quality*100>q.<format extension>.
func DownloadName(original string, params compressor.Params) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	return fmt.Sprintf("%s_compressed_%dq.%s",
		base, int(math.Round(params.Quality*100)), params.Format.Extension())
}
