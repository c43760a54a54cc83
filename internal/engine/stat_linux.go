//go:build linux

package engine

import (
	"syscall"
	"time"
)

// statTimes returns the access, modification, and change times from a
// syscall.Stat_t.
func statTimes(stat *syscall.Stat_t) (atime, mtime, ctime time.Time) {
	return time.Unix(stat.Atim.Sec, stat.Atim.Nsec),
		time.Unix(stat.Mtim.Sec, stat.Mtim.Nsec),
		time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}

// devFromStat returns the device number from a syscall.Stat_t.
func devFromStat(stat *syscall.Stat_t) uint64 {
	return stat.Dev
}
