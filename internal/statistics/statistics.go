package statistics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains counters for a pixpress session.
type Statistics struct {
	DirectoriesScanned int64
	FilesListed        int64
	FilesSelected      int64
	CompressionsDone   int64
	CompressionsFailed int64
	ResultsDiscarded   int64
	BytesIn            int64
	BytesOut           int64

	StartTime time.Time

	Errors []OpError

	mutex sync.RWMutex
}

// OpError represents an error that occurred during an operation.
type OpError struct {
	File      string
	Operation string
	Error     string
	Timestamp time.Time
}

// New returns a new Statistics instance.
func New() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		Errors:    make([]OpError, 0),
	}
}

// IncrementDirectoriesScanned increases the count of scanned directories by 1.
func (s *Statistics) IncrementDirectoriesScanned() {
	atomic.AddInt64(&s.DirectoriesScanned, 1)
}

// AddFilesListed adds to the count of files surfaced to the file list.
func (s *Statistics) AddFilesListed(n int64) {
	atomic.AddInt64(&s.FilesListed, n)
}

// IncrementFilesSelected increases the count of file selections by 1.
func (s *Statistics) IncrementFilesSelected() {
	atomic.AddInt64(&s.FilesSelected, 1)
}

// IncrementCompressionsDone increases the count of completed compressions by 1.
func (s *Statistics) IncrementCompressionsDone() {
	atomic.AddInt64(&s.CompressionsDone, 1)
}

// IncrementCompressionsFailed increases the count of failed compressions by 1.
func (s *Statistics) IncrementCompressionsFailed() {
	atomic.AddInt64(&s.CompressionsFailed, 1)
}

// IncrementResultsDiscarded increases the count of stale results dropped by 1.
func (s *Statistics) IncrementResultsDiscarded() {
	atomic.AddInt64(&s.ResultsDiscarded, 1)
}

// AddBytesIn adds to the total of source bytes fed into the engine.
func (s *Statistics) AddBytesIn(n int64) {
	atomic.AddInt64(&s.BytesIn, n)
}

// AddBytesOut adds to the total of compressed bytes produced by the engine.
func (s *Statistics) AddBytesOut(n int64) {
	atomic.AddInt64(&s.BytesOut, n)
}

// AddError records an error that occurred during an operation.
func (s *Statistics) AddError(file, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, OpError{
		File:      file,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// GetErrorCount returns the number of recorded errors.
func (s *Statistics) GetErrorCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.Errors)
}

// SavedPercent returns the overall size reduction achieved this session.
func (s *Statistics) SavedPercent() float64 {
	in := atomic.LoadInt64(&s.BytesIn)
	out := atomic.LoadInt64(&s.BytesOut)
	if in <= 0 {
		return 0
	}
	return float64(in-out) * 100 / float64(in)
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	return fmt.Sprintf(`Session Statistics:

Directories Scanned: %d
Files Listed: %d
Files Selected: %d
Compressions Done: %d
Compressions Failed: %d
Stale Results Discarded: %d
Bytes In: %s
Bytes Out: %s
Saved: %.1f%%
Session Duration: %v
Errors: %d`,
		atomic.LoadInt64(&s.DirectoriesScanned),
		atomic.LoadInt64(&s.FilesListed),
		atomic.LoadInt64(&s.FilesSelected),
		atomic.LoadInt64(&s.CompressionsDone),
		atomic.LoadInt64(&s.CompressionsFailed),
		atomic.LoadInt64(&s.ResultsDiscarded),
		FormatBytes(atomic.LoadInt64(&s.BytesIn)),
		FormatBytes(atomic.LoadInt64(&s.BytesOut)),
		s.SavedPercent(),
		time.Since(s.StartTime).Round(time.Second),
		s.GetErrorCount())
}

// GetErrorSummary returns a summary of errors that occurred during the session.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during this session"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.File,
			err.Error)
	}
	return result
}

// FormatBytes returns a human-readable string for a byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
