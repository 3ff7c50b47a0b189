package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// SnapshotFormatVersion is written into every export.
const SnapshotFormatVersion = "1.0"

// Snapshot is a point-in-time copy of a Store.
type Snapshot struct {
	Capacity int
	Queue    []string // admission order, oldest first
	Entries  []SnapshotEntry
}

// SnapshotEntry is one key's stored values.
type SnapshotEntry struct {
	Key         string `json:"key"`
	Source      string `json:"source,omitempty"`
	Translation string `json:"translation,omitempty"`
	Analysis    string `json:"analysis,omitempty"`
}

// ExportFormat is the JSON structure written by Exporter.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Capacity   int               `json:"capacity"`
	Queue      []string          `json:"queue"`
	Entries    []SnapshotEntry   `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Snapshotter is implemented by caches that can be exported.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Exporter writes cache contents as JSON for inspection.
// There is no importer: the store never outlives its process.
type Exporter struct {
	cache Snapshotter
	now   func() time.Time
}

// NewExporter creates a new cache exporter.
func NewExporter(cache Snapshotter) *Exporter {
	return &Exporter{cache: cache, now: time.Now}
}

// Export writes the cache contents to w. Entries are sorted by key.
func (e *Exporter) Export(w io.Writer, metadata map[string]string) error {
	snap := e.cache.Snapshot()

	entries := snap.Entries
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	export := ExportFormat{
		Version:    SnapshotFormatVersion,
		ExportedAt: e.now().UTC().Format(time.RFC3339),
		Capacity:   snap.Capacity,
		Queue:      snap.Queue,
		Entries:    entries,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}
