package statistics_test

import (
	"testing"

	"pixpress/internal/statistics"

	"github.com/stretchr/testify/assert"
)

func TestCountersAndSummary(t *testing.T) {
	stats := statistics.New()
	stats.IncrementDirectoriesScanned()
	stats.AddFilesListed(12)
	stats.IncrementFilesSelected()
	stats.IncrementCompressionsDone()
	stats.IncrementCompressionsFailed()
	stats.IncrementResultsDiscarded()
	stats.AddBytesIn(1000)
	stats.AddBytesOut(250)
	stats.AddError("a.png", "compress", "boom")

	assert.Equal(t, int64(1), stats.DirectoriesScanned)
	assert.Equal(t, int64(12), stats.FilesListed)
	assert.Equal(t, 1, stats.GetErrorCount())
	assert.InDelta(t, 75.0, stats.SavedPercent(), 0.001)

	summary := stats.GetSummary()
	assert.Contains(t, summary, "Files Listed: 12")
	assert.Contains(t, summary, "Compressions Done: 1")
	assert.Contains(t, summary, "Saved: 75.0%")
}

func TestSavedPercent_NoInput(t *testing.T) {
	stats := statistics.New()
	assert.Zero(t, stats.SavedPercent())
}

func TestErrorSummary(t *testing.T) {
	stats := statistics.New()
	assert.Contains(t, stats.GetErrorSummary(), "No errors")

	stats.AddError("x.jpg", "decode", "corrupt header")
	summary := stats.GetErrorSummary()
	assert.Contains(t, summary, "x.jpg")
	assert.Contains(t, summary, "corrupt header")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", statistics.FormatBytes(512))
	assert.Equal(t, "1.0 KB", statistics.FormatBytes(1024))
	assert.Equal(t, "1.5 MB", statistics.FormatBytes(1536*1024))
}
