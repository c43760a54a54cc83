package engine

import "time"

// Candidate is a file selected for relocation: stale, not excluded, and
// waiting to be assigned a destination slot. Produced by the Walker and
// consumed exactly once by a pool worker.
type Candidate struct {
	Path       string // absolute path under the scan root
	UID        uint32
	Size       int64
	AccTime    time.Time
	ModTime    time.Time
	ChangeTime time.Time
}
