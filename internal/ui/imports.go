package ui

import "github.com/voglhofer/icebox/internal/event"

// Event is re-exported so presenters and their callers share one type.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanError     = event.ScanError
	FileMoved     = event.FileMoved
	FileWouldMove = event.FileWouldMove
	FileSkipped   = event.FileSkipped
	FileFailed    = event.FileFailed
	OwnerFailed   = event.OwnerFailed
)
