package session

import (
	"pixpress/internal/compressor"
	"pixpress/internal/scanner"
)

// Snapshot is an immutable view of the session state, safe to serialize and
// hand to the presentation layer.
type Snapshot struct {
	State     State               `json:"state"`
	Status    string              `json:"status"`
	Directory string              `json:"directory,omitempty"`
	Files     []scanner.FileEntry `json:"files"`
	Selected  *SelectedInfo       `json:"selected,omitempty"`
	Params    compressor.Params   `json:"params"`
}

// SelectedInfo describes the live selection without exposing pixel buffers.
type SelectedInfo struct {
	Name           string `json:"name"`
	OriginalSize   int64  `json:"original_size"`
	HasCompressed  bool   `json:"has_compressed"`
	CompressedSize int64  `json:"compressed_size,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	DownloadName   string `json:"download_name,omitempty"`
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:  c.state,
		Status: c.status,
		Params: c.params,
	}
	if c.dir != nil {
		snap.Directory = c.dir.Path
	}
	// Copy so callers never alias the live list.
	snap.Files = make([]scanner.FileEntry, len(c.files))
	copy(snap.Files, c.files)

	if c.selected != nil {
		info := &SelectedInfo{
			Name:         c.selected.Name,
			OriginalSize: c.selected.Original.SizeBytes,
		}
		if c.selected.Compressed != nil && c.selected.Compressed.Data != nil {
			info.HasCompressed = true
			info.CompressedSize = c.selected.Compressed.SizeBytes
			info.Width = c.selected.Compressed.Width
			info.Height = c.selected.Compressed.Height
			info.DownloadName = DownloadName(c.selected.Name, c.params)
		}
		snap.Selected = info
	}
	return snap
}
