package stats

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks run statistics using lock-free atomic counters, plus a
// small mutex-guarded per-owner tally used for the end-of-run breakdown.
type Collector struct {
	entriesScanned atomic.Int64
	filesMoved     atomic.Int64
	filesSkipped   atomic.Int64
	filesFailed    atomic.Int64
	scanErrors     atomic.Int64
	bytesMoved     atomic.Int64
	startTime      time.Time

	mu     sync.Mutex
	owners map[uint32]*OwnerTally
}

// OwnerTally is one owner's share of the run.
type OwnerTally struct {
	UID    uint32
	Moved  int64
	Failed int64
	Bytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddEntriesScanned(n int64) { c.entriesScanned.Add(n) }
func (c *Collector) AddFilesMoved(n int64)     { c.filesMoved.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)   { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesFailed(n int64)    { c.filesFailed.Add(n) }
func (c *Collector) AddScanErrors(n int64)     { c.scanErrors.Add(n) }
func (c *Collector) AddBytesMoved(n int64)     { c.bytesMoved.Add(n) }

// OwnerMoved credits one relocated file of the given size to an owner.
func (c *Collector) OwnerMoved(uid uint32, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.ownerLocked(uid)
	t.Moved++
	t.Bytes += bytes
}

// OwnerFailed charges one failed candidate to an owner.
func (c *Collector) OwnerFailed(uid uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ownerLocked(uid).Failed++
}

func (c *Collector) ownerLocked(uid uint32) *OwnerTally {
	if c.owners == nil {
		c.owners = make(map[uint32]*OwnerTally)
	}
	t, ok := c.owners[uid]
	if !ok {
		t = &OwnerTally{UID: uid}
		c.owners[uid] = t
	}
	return t
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	EntriesScanned int64
	FilesMoved     int64
	FilesSkipped   int64
	FilesFailed    int64
	ScanErrors     int64
	BytesMoved     int64
	Owners         []OwnerTally // sorted by UID
	Elapsed        time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		EntriesScanned: c.entriesScanned.Load(),
		FilesMoved:     c.filesMoved.Load(),
		FilesSkipped:   c.filesSkipped.Load(),
		FilesFailed:    c.filesFailed.Load(),
		ScanErrors:     c.scanErrors.Load(),
		BytesMoved:     c.bytesMoved.Load(),
		Elapsed:        c.Elapsed(),
	}

	c.mu.Lock()
	for _, t := range c.owners {
		s.Owners = append(s.Owners, *t)
	}
	c.mu.Unlock()
	sort.Slice(s.Owners, func(i, j int) bool { return s.Owners[i].UID < s.Owners[j].UID })
	return s
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d moved=%d skipped=%d failed=%d scan_errors=%d bytes=%d",
		s.EntriesScanned, s.FilesMoved, s.FilesSkipped, s.FilesFailed,
		s.ScanErrors, s.BytesMoved,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
