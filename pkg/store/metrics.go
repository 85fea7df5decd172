package store

import (
	"io/fs"
	"path/filepath"
)

// Health is a compact view of storage health surfaced through /healthz and
// the telemetry gauges.
type Health struct {
	DiskUsageBytes    uint64 `json:"disk_usage_bytes"`
	WALBytes          uint64 `json:"wal_bytes"`
	L0Files           int64  `json:"l0_files"`
	L0Bytes           int64  `json:"l0_bytes"`
	CompactionBacklog uint64 `json:"compaction_backlog"`
}

// Metrics returns best-effort storage health. With the DB closed it falls
// back to the on-disk size of the store directory.
func Metrics() Health {
	var h Health
	if db == nil {
		h.DiskUsageBytes = dirSize(dbPath)
		return h
	}
	m := db.Metrics()
	h.DiskUsageBytes = m.DiskSpaceUsage()
	h.WALBytes = m.WAL.Size
	h.L0Files = m.Levels[0].NumFiles
	h.L0Bytes = int64(m.Levels[0].Size)
	h.CompactionBacklog = m.Compact.EstimatedDebt
	return h
}

func dirSize(path string) uint64 {
	if path == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
