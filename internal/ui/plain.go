package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/voglhofer/icebox/internal/shellquote"
	"github.com/voglhofer/icebox/internal/stats"
)

// plainHeader labels the columns of the relocation feed. Timestamps are
// minute resolution, the UID column is right-aligned to six digits, and
// paths are shell-escaped so the output can be pasted back into a shell.
const plainHeader = "atime             ctime             mtime             UID     Path"

// plainPresenter prints one line per relocated (or would-be relocated)
// file to stdout, and diagnostics plus periodic progress to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	verbose bool

	wroteHeader bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case FileMoved, FileWouldMove:
		if !p.wroteHeader {
			fmt.Fprintln(p.w, plainHeader)
			p.wroteHeader = true
		}
		fmt.Fprintf(p.w, "%s, %s, %s, %6d, %s\n",
			FormatTimestamp(ev.AccTime),
			FormatTimestamp(ev.ChangeTime),
			FormatTimestamp(ev.ModTime),
			ev.UID,
			shellquote.Escape(ev.Path),
		)
	case FileFailed:
		fmt.Fprintf(p.errW, "error: %s: %s\n", ev.Path, errMessage(ev.Error))
	case ScanError:
		fmt.Fprintf(p.errW, "scan error: %s: %s\n", ev.Path, errMessage(ev.Error))
	case OwnerFailed:
		fmt.Fprintf(p.errW, "owner %d unavailable: %s\n", ev.UID, errMessage(ev.Error))
	case FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.errW, "skip %s (%s)\n", ev.Path, ev.Reason)
		}
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: scanned %s  moved %s (%s)  skipped %s\n",
		FormatCount(snap.EntriesScanned),
		FormatCount(snap.FilesMoved),
		FormatBytes(snap.BytesMoved),
		FormatCount(snap.FilesSkipped),
	)
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}

func errMessage(err error) string {
	if err == nil {
		return "error"
	}
	return err.Error()
}
