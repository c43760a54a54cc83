//go:build darwin

package engine

import (
	"syscall"
	"time"
)

// statTimes returns the access, modification, and change times from a
// syscall.Stat_t.
func statTimes(stat *syscall.Stat_t) (atime, mtime, ctime time.Time) {
	return time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec),
		time.Unix(stat.Mtimespec.Sec, stat.Mtimespec.Nsec),
		time.Unix(stat.Ctimespec.Sec, stat.Ctimespec.Nsec)
}

// devFromStat returns the device number from a syscall.Stat_t.
func devFromStat(stat *syscall.Stat_t) uint64 {
	return uint64(stat.Dev) //nolint:gosec // G115: dev_t is int32 on darwin, always non-negative
}
