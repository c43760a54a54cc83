package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/voglhofer/icebox/internal/backup"
	"github.com/voglhofer/icebox/internal/event"
	"github.com/voglhofer/icebox/internal/stats"
	"golang.org/x/time/rate"
)

// MoveError reports a failed relocation of a single candidate. One bad
// file never aborts the run; the error is counted and the workers move on.
type MoveError struct {
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s: %v", e.Path, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// WorkerConfig controls relocation workers.
type WorkerConfig struct {
	NumWorkers int
	DryRun     bool
	Registry   *backup.Registry
	Limiter    *rate.Limiter // nil means unlimited
	Stats      *stats.Collector
	Events     chan<- event.Event // optional
}

// WorkerPool relocates candidates into per-owner backup directories.
// Each candidate is reserved a slot, renamed into it, and recorded in the
// owner's manifest, in that order.
type WorkerPool struct {
	cfg WorkerConfig
}

// NewWorkerPool creates a pool with the given config.
func NewWorkerPool(cfg WorkerConfig) *WorkerPool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	return &WorkerPool{cfg: cfg}
}

// Run starts workers that consume candidates. It blocks until the channel
// is drained or the context is cancelled. Per-candidate errors are sent
// to errs without blocking.
func (wp *WorkerPool) Run(ctx context.Context, candidates <-chan Candidate, errs chan<- error) {
	var wg sync.WaitGroup
	for id := 0; id < wp.cfg.NumWorkers; id++ {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range candidates {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := wp.process(ctx, id, c); err != nil {
					select {
					case errs <- err:
					default:
					}
				}
			}
		}()
	}
	wg.Wait()
}

// Close removes any temp files left behind by interrupted manifest writes.
func (wp *WorkerPool) Close() {
	backup.CleanupTmpFiles()
}

func (wp *WorkerPool) process(ctx context.Context, id int, c Candidate) error {
	if wp.cfg.Limiter != nil && !wp.cfg.DryRun {
		if err := wp.cfg.Limiter.Wait(ctx); err != nil {
			// Cancelled mid-run: not a per-file failure.
			return nil
		}
	}

	alloc := wp.cfg.Registry.Owner(c.UID)
	slot, err := alloc.Reserve()
	if err != nil {
		wp.fail(ctx, id, c, err)
		if alloc.FirstFailureNotice() {
			wp.emit(ctx, event.Event{
				Type:      event.OwnerFailed,
				Timestamp: time.Now(),
				UID:       c.UID,
				Error:     err,
			})
		}
		return &MoveError{Path: c.Path, Err: err}
	}
	dest := alloc.SlotPath(slot)

	if wp.cfg.DryRun {
		wp.moved(ctx, id, c, dest, event.FileWouldMove)
		return nil
	}

	if err := os.Rename(c.Path, dest); err != nil {
		wp.fail(ctx, id, c, err)
		return &MoveError{Path: c.Path, Err: err}
	}

	if err := alloc.Record(slot, c.Path); err != nil {
		// The file sits in its slot; only the manifest line is at risk,
		// and Record keeps retrying it on later writes.
		wp.fail(ctx, id, c, err)
		return &MoveError{Path: c.Path, Err: err}
	}

	wp.moved(ctx, id, c, dest, event.FileMoved)
	return nil
}

func (wp *WorkerPool) moved(ctx context.Context, id int, c Candidate, dest string, typ event.Type) {
	wp.cfg.Stats.AddFilesMoved(1)
	wp.cfg.Stats.AddBytesMoved(c.Size)
	wp.cfg.Stats.OwnerMoved(c.UID, c.Size)
	wp.emit(ctx, event.Event{
		Type:       typ,
		Timestamp:  time.Now(),
		Path:       c.Path,
		Dest:       dest,
		UID:        c.UID,
		Size:       c.Size,
		AccTime:    c.AccTime,
		ModTime:    c.ModTime,
		ChangeTime: c.ChangeTime,
		WorkerID:   id,
	})
}

func (wp *WorkerPool) fail(ctx context.Context, id int, c Candidate, err error) {
	wp.cfg.Stats.AddFilesFailed(1)
	wp.cfg.Stats.OwnerFailed(c.UID)
	wp.emit(ctx, event.Event{
		Type:      event.FileFailed,
		Timestamp: time.Now(),
		Path:      c.Path,
		UID:       c.UID,
		Size:      c.Size,
		Error:     err,
		WorkerID:  id,
	})
}

func (wp *WorkerPool) emit(ctx context.Context, ev event.Event) {
	if wp.cfg.Events == nil {
		return
	}
	select {
	case wp.cfg.Events <- ev:
	case <-ctx.Done():
	}
}
