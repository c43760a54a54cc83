package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/voglhofer/icebox/internal/stats"
)

// feedPresenter prints a styled line per event when stdout is a terminal.
// Rows cover relocations; diagnostics go to errW in the same palette.
type feedPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	root    string
	verbose bool
}

func (p *feedPresenter) Run(events <-chan Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	return nil
}

func (p *feedPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case FileMoved:
		p.printRow(styleIconMoved.Render("✓"), ev)
	case FileWouldMove:
		p.printRow(styleIconPlanned.Render("→"), ev)
	case FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "  %s  %s  %s\n",
				styleIconSkipped.Render("–"),
				p.styledPath(ev.Path),
				styleReason.Render(ev.Reason),
			)
		}
	case FileFailed:
		fmt.Fprintf(p.errW, "  %s  %s  %s\n",
			styleIconFailed.Render("✗"),
			styleErrorPath.Render(StripRoot(p.root, ev.Path)),
			styleError.Render(errMessage(ev.Error)),
		)
	case ScanError:
		fmt.Fprintf(p.errW, "  %s  %s  %s\n",
			styleScanWarning.Render("!"),
			p.styledPath(ev.Path),
			styleScanWarning.Render(errMessage(ev.Error)),
		)
	case OwnerFailed:
		fmt.Fprintf(p.errW, "  %s  %s\n",
			styleIconFailed.Render("✗"),
			styleError.Render(fmt.Sprintf("owner %d unavailable: %s", ev.UID, errMessage(ev.Error))),
		)
	}
}

func (p *feedPresenter) printRow(icon string, ev Event) {
	fmt.Fprintf(p.w, "  %s  %s  %s  %s  %s\n",
		icon,
		p.styledPath(ev.Path),
		styleFileSize.Render(fmt.Sprintf("%10s", FormatBytes(ev.Size))),
		styleOwner.Render(fmt.Sprintf("uid %d", ev.UID)),
		styleFileTime.Render(FormatTimestamp(ev.ModTime)),
	)
}

func (p *feedPresenter) styledPath(path string) string {
	path = StripRoot(p.root, path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return styleFilePath.Render(base)
	}
	return styleFileDir.Render(dir+"/") + styleFilePath.Render(base)
}

// Summary closes the feed with a divider and an emphasized summary line.
func (p *feedPresenter) Summary() string {
	return styleDivider.Render(strings.Repeat("─", 64)) + "\n" +
		styleHeader.Render(completionSummary(p.stats.Snapshot()))
}
