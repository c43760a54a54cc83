package engine

import "time"

// AgePolicy decides staleness from a cutoff instant and the set of
// timestamp kinds still enabled. A file is stale when every enabled
// timestamp is strictly older than the cutoff; with no kinds enabled
// every file is stale.
type AgePolicy struct {
	Cutoff time.Time
	Atime  bool
	Mtime  bool
	Ctime  bool
}

// NewAgePolicy builds a policy selecting files whose enabled timestamps
// are all more than olderDays days in the past, counted back from now.
func NewAgePolicy(now time.Time, olderDays int, atime, mtime, ctime bool) AgePolicy {
	return AgePolicy{
		Cutoff: now.Add(-time.Duration(olderDays) * 24 * time.Hour),
		Atime:  atime,
		Mtime:  mtime,
		Ctime:  ctime,
	}
}

// Stale reports whether a file with the given timestamps should be
// relocated. A timestamp equal to the cutoff counts as recent.
func (p AgePolicy) Stale(atime, mtime, ctime time.Time) bool {
	if p.Atime && !atime.Before(p.Cutoff) {
		return false
	}
	if p.Mtime && !mtime.Before(p.Cutoff) {
		return false
	}
	if p.Ctime && !ctime.Before(p.Cutoff) {
		return false
	}
	return true
}
