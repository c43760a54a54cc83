// Package backup owns the destination side of a run: per-owner slot
// allocation under <dest>/<uid>/ and the map.json manifest that maps each
// slot number back to the shell-escaped original path.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/voglhofer/icebox/internal/shellquote"
)

// Slot identifies one destination file as (owner, sequence number).
type Slot struct {
	UID uint32
	Seq uint64
}

// InitError reports that an owner's backup directory could not be prepared.
// Every candidate belonging to that owner fails; other owners are unaffected.
type InitError struct {
	UID uint32
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("backup dir for uid %d: %v", e.UID, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Registry hands out one Allocator per owner. Safe for concurrent use; all
// workers asking for the same uid share a single allocator.
type Registry struct {
	root   string
	dryRun bool

	mu     sync.Mutex
	owners map[uint32]*Allocator
}

// NewRegistry creates a registry rooted at the destination directory.
// In dry-run mode allocators never touch the filesystem beyond read-only
// counter seeding.
func NewRegistry(root string, dryRun bool) *Registry {
	return &Registry{
		root:   root,
		dryRun: dryRun,
		owners: make(map[uint32]*Allocator),
	}
}

// Owner returns the allocator for uid, creating it on first request.
func (r *Registry) Owner(uid uint32) *Allocator {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.owners[uid]
	if !ok {
		a = &Allocator{
			uid:    uid,
			dir:    filepath.Join(r.root, strconv.FormatUint(uint64(uid), 10)),
			dryRun: r.dryRun,
		}
		r.owners[uid] = a
	}
	return a
}

// Close closes every owner allocator, retrying any manifest write that
// failed earlier in the run.
func (r *Registry) Close() error {
	r.mu.Lock()
	owners := make([]*Allocator, 0, len(r.owners))
	for _, a := range r.owners {
		owners = append(owners, a)
	}
	r.mu.Unlock()

	var errs []error
	for _, a := range owners {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Allocator manages one owner's backup directory: the monotonic sequence
// counter and the manifest. Reserve and Record are serialized per owner;
// distinct owners proceed in parallel.
type Allocator struct {
	uid    uint32
	dir    string
	dryRun bool

	initOnce sync.Once
	initErr  error
	noticed  atomic.Bool

	mu      sync.Mutex
	next    uint64
	entries map[string]string
	dirty   bool // last manifest write failed; retry on Close
}

// Dir returns the owner's backup directory path.
func (a *Allocator) Dir() string { return a.dir }

// init prepares the owner directory on first use: create it 0700, hand it
// to the owner, seed the sequence counter from existing numeric entries,
// and load any manifest left by earlier runs. Failures stick: every later
// Reserve or Record returns the same InitError.
func (a *Allocator) init() {
	a.entries = make(map[string]string)

	if !a.dryRun {
		if err := os.MkdirAll(a.dir, 0o700); err != nil {
			a.initErr = &InitError{UID: a.uid, Err: err}
			return
		}
		// Owners retrieve their own files, so the directory is theirs.
		// Only effective when running as root.
		_ = syscall.Lchown(a.dir, int(a.uid), -1)
	}

	next, err := seedCounter(a.dir)
	if err != nil {
		a.initErr = &InitError{UID: a.uid, Err: err}
		return
	}
	a.next = next

	if !a.dryRun {
		if err := a.loadManifest(); err != nil {
			a.initErr = &InitError{UID: a.uid, Err: err}
		}
	}
}

// seedCounter scans dir for numerically-named entries and returns max+1,
// so a second run against the same destination appends instead of
// colliding. A missing directory seeds at zero.
func seedCounter(dir string) (uint64, error) {
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var next uint64
	for _, ent := range ents {
		n, err := strconv.ParseUint(ent.Name(), 10, 64)
		if err != nil {
			continue // map.json, temp files, anything non-numeric
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}

// Reserve returns the next unused slot for this owner. Slots are never
// reused within a run, even when the move they were reserved for fails.
func (a *Allocator) Reserve() (Slot, error) {
	a.initOnce.Do(a.init)
	if a.initErr != nil {
		return Slot{}, a.initErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	s := Slot{UID: a.uid, Seq: a.next}
	a.next++
	return s, nil
}

// SlotPath returns the destination path for a slot.
func (a *Allocator) SlotPath(s Slot) string {
	return filepath.Join(a.dir, strconv.FormatUint(s.Seq, 10))
}

// Record stores the manifest entry for a completed move and rewrites
// map.json durably. On write failure the entry stays in memory and is
// retried by the next Record or by Close, so a moved file loses its
// manifest line only if every later write also fails.
func (a *Allocator) Record(s Slot, originalPath string) error {
	a.initOnce.Do(a.init)
	if a.initErr != nil {
		return a.initErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[strconv.FormatUint(s.Seq, 10)] = shellquote.Escape(originalPath)
	if err := a.writeManifestLocked(); err != nil {
		a.dirty = true
		return fmt.Errorf("manifest for uid %d: %w", a.uid, err)
	}
	a.dirty = false
	return nil
}

// FirstFailureNotice reports true exactly once per allocator, for callers
// that want to surface an owner-wide failure a single time.
func (a *Allocator) FirstFailureNotice() bool {
	return a.noticed.CompareAndSwap(false, true)
}

// Close retries a pending manifest write, if any.
func (a *Allocator) Close() error {
	if a.dryRun {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.dirty {
		return nil
	}
	if err := a.writeManifestLocked(); err != nil {
		return fmt.Errorf("manifest for uid %d: %w", a.uid, err)
	}
	a.dirty = false
	return nil
}
