package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanError Type = iota + 1
	FileMoved
	FileWouldMove
	FileSkipped
	FileFailed
	OwnerFailed
)

var typeNames = [...]string{
	ScanError:     "ScanError",
	FileMoved:     "FileMoved",
	FileWouldMove: "FileWouldMove",
	FileSkipped:   "FileSkipped",
	FileFailed:    "FileFailed",
	OwnerFailed:   "OwnerFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type       Type
	Timestamp  time.Time
	Path       string // absolute original path
	Dest       string // destination slot path (FileMoved, FileWouldMove)
	UID        uint32
	Size       int64
	AccTime    time.Time
	ModTime    time.Time
	ChangeTime time.Time
	Reason     string // FileSkipped only
	Error      error
	WorkerID   int
}
