package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/voglhofer/icebox/internal/event"
	"github.com/voglhofer/icebox/internal/exclude"
	"github.com/voglhofer/icebox/internal/stats"
)

// WalkerConfig controls traversal behavior.
type WalkerConfig struct {
	Root    string           // canonical absolute scan root
	Matcher *exclude.Matcher // nil excludes nothing
	Policy  AgePolicy
	Skip    map[string]struct{} // absolute paths never considered
	Queue   int                 // candidate channel capacity
	Stats   *stats.Collector
	Events  chan<- event.Event // optional
}

// Walker traverses the scan root in a single goroutine and emits
// relocation candidates: regular files and symlinks that survive the
// exclude rules and the age policy. Excluded directories are pruned
// without being opened. Symlinks are never followed; the link itself is
// the candidate.
//
// Per-entry failures are reported as ScanError events and counted, then
// traversal continues with the next entry.
type Walker struct {
	cfg WalkerConfig
	out chan Candidate
}

// NewWalker creates a walker with the given config.
func NewWalker(cfg WalkerConfig) *Walker {
	if cfg.Queue <= 0 {
		cfg.Queue = 64
	}
	return &Walker{
		cfg: cfg,
		out: make(chan Candidate, cfg.Queue),
	}
}

// Walk starts traversal in a background goroutine and returns the
// candidate channel. The channel closes when traversal finishes or the
// context is cancelled. Walk must be called at most once.
func (w *Walker) Walk(ctx context.Context) <-chan Candidate {
	go func() {
		defer close(w.out)
		w.walkDir(ctx, w.cfg.Root, "")
	}()
	return w.out
}

// walkDir processes one directory. rel is its root-relative path, "" for
// the root itself.
func (w *Walker) walkDir(ctx context.Context, dir, rel string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.scanError(ctx, dir, fmt.Errorf("readdir: %w", err))
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		path := filepath.Join(dir, entry.Name())
		if _, skip := w.cfg.Skip[path]; skip {
			continue
		}

		entryRel := entry.Name()
		if rel != "" {
			entryRel = rel + "/" + entry.Name()
		}
		w.cfg.Stats.AddEntriesScanned(1)

		if entry.IsDir() {
			// Pruned directories are never opened, so rules negated
			// beneath them cannot re-include anything.
			if w.cfg.Matcher.Excluded(entryRel, true) {
				continue
			}
			w.walkDir(ctx, path, entryRel)
			continue
		}

		w.processFile(ctx, path, entryRel, entry)
	}
}

func (w *Walker) processFile(ctx context.Context, path, rel string, entry os.DirEntry) {
	if w.cfg.Matcher.Excluded(rel, false) {
		w.skip(ctx, path, "excluded")
		return
	}

	info, err := entry.Info()
	if err != nil {
		w.scanError(ctx, path, fmt.Errorf("lstat: %w", err))
		return
	}

	// Regular files and symlinks qualify; sockets, fifos, and devices
	// stay where they are.
	mode := info.Mode()
	if !mode.IsRegular() && mode&os.ModeSymlink == 0 {
		w.skip(ctx, path, "special file")
		return
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		w.scanError(ctx, path, fmt.Errorf("unsupported stat type"))
		return
	}

	atime, mtime, ctime := statTimes(stat)
	if !w.cfg.Policy.Stale(atime, mtime, ctime) {
		w.skip(ctx, path, "newer than cutoff")
		return
	}

	c := Candidate{
		Path:       path,
		UID:        stat.Uid,
		Size:       info.Size(),
		AccTime:    atime,
		ModTime:    mtime,
		ChangeTime: ctime,
	}
	select {
	case w.out <- c:
	case <-ctx.Done():
	}
}

func (w *Walker) skip(ctx context.Context, path, reason string) {
	w.cfg.Stats.AddFilesSkipped(1)
	w.emit(ctx, event.Event{
		Type:      event.FileSkipped,
		Timestamp: time.Now(),
		Path:      path,
		Reason:    reason,
	})
}

func (w *Walker) scanError(ctx context.Context, path string, err error) {
	w.cfg.Stats.AddScanErrors(1)
	w.emit(ctx, event.Event{
		Type:      event.ScanError,
		Timestamp: time.Now(),
		Path:      path,
		Error:     err,
	})
}

func (w *Walker) emit(ctx context.Context, ev event.Event) {
	if w.cfg.Events == nil {
		return
	}
	select {
	case w.cfg.Events <- ev:
	case <-ctx.Done():
	}
}
