package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/voglhofer/icebox/internal/backup"
	"github.com/voglhofer/icebox/internal/event"
	"github.com/voglhofer/icebox/internal/exclude"
	"github.com/voglhofer/icebox/internal/filelock"
	"github.com/voglhofer/icebox/internal/stats"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// LockName is the lock file guarding a destination against concurrent runs.
const LockName = ".icebox.lock"

// Config describes a housekeeping run.
type Config struct {
	Root        string // directory to scan
	Dest        string // destination root for relocated files
	Workers     int
	OlderDays   int
	CheckAtime  bool
	CheckMtime  bool
	CheckCtime  bool
	ExcludeFile string
	DryRun      bool
	RateLimit   float64 // moves per second, 0 means unlimited

	// Events, when non-nil, receives progress events during the run.
	// Run never closes it; the caller does, after Run returns.
	Events chan<- event.Event

	// Stats, when non-nil, is the collector counters are written to,
	// shared with whatever presents the run. Run creates its own otherwise.
	Stats *stats.Collector
}

// Result is the outcome of a run.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// ConfigError marks a configuration the run cannot start with, as opposed
// to per-file failures encountered along the way.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// Run executes a housekeeping run, blocking until the scan completes and
// every candidate has been handled. Validation failures surface as
// ConfigError (or exclude.ParseError) before anything is touched.
func Run(ctx context.Context, cfg Config) Result {
	if cfg.OlderDays < 0 {
		return Result{Err: configErrorf("older days must be zero or positive, got %d", cfg.OlderDays)}
	}
	if cfg.RateLimit < 0 {
		return Result{Err: configErrorf("rate limit must be zero or positive, got %g", cfg.RateLimit)}
	}
	root, err := canonicalDir("scan root", cfg.Root)
	if err != nil {
		return Result{Err: err}
	}
	dest, err := canonicalDir("destination", cfg.Dest)
	if err != nil {
		return Result{Err: err}
	}
	if dest == root {
		return Result{Err: configErrorf("destination %s is the scan root", dest)}
	}
	if err := sameFilesystem(root, dest); err != nil {
		return Result{Err: err}
	}
	if !cfg.DryRun {
		if err := unix.Access(dest, unix.W_OK); err != nil {
			return Result{Err: configErrorf("destination %s not writable: %w", dest, err)}
		}
	}

	// The destination subtree and the lock file are invisible to the
	// walker even when they live under the scan root.
	skip := map[string]struct{}{
		dest:                          {},
		filepath.Join(dest, LockName): {},
	}

	var matcher *exclude.Matcher
	if cfg.ExcludeFile != "" {
		path, err := canonicalFile("exclude file", cfg.ExcludeFile)
		if err != nil {
			return Result{Err: err}
		}
		skip[path] = struct{}{}
		m, err := exclude.ParseFile(path)
		if err != nil {
			var perr *exclude.ParseError
			if errors.As(err, &perr) {
				return Result{Err: err}
			}
			return Result{Err: &ConfigError{Err: err}}
		}
		matcher = m
	}

	if !cfg.DryRun {
		lock, err := filelock.Acquire(filepath.Join(dest, LockName))
		if err != nil {
			return Result{Err: &ConfigError{Err: err}}
		}
		defer func() { _ = lock.Release() }()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	registry := backup.NewRegistry(dest, cfg.DryRun)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = NewMoveLimiter(cfg.RateLimit)
	}

	walker := NewWalker(WalkerConfig{
		Root:    root,
		Matcher: matcher,
		Policy:  NewAgePolicy(time.Now(), cfg.OlderDays, cfg.CheckAtime, cfg.CheckMtime, cfg.CheckCtime),
		Skip:    skip,
		Queue:   workers * 4,
		Stats:   collector,
		Events:  cfg.Events,
	})

	pool := NewWorkerPool(WorkerConfig{
		NumWorkers: workers,
		DryRun:     cfg.DryRun,
		Registry:   registry,
		Limiter:    limiter,
		Stats:      collector,
		Events:     cfg.Events,
	})
	defer pool.Close()

	candidates := walker.Walk(ctx)
	allErrs := make(chan error, 64)

	// Blocks until the walk finishes and all candidates are processed.
	pool.Run(ctx, candidates, allErrs)
	close(allErrs)

	var runErr error
	var errCount int
	for err := range allErrs {
		errCount++
		if runErr == nil {
			runErr = err
		}
	}
	if errCount > 1 {
		runErr = fmt.Errorf("%w (and %d more errors)", runErr, errCount-1)
	}

	if err := registry.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	return Result{
		Stats: collector.Snapshot(),
		Err:   runErr,
	}
}

// canonicalDir resolves path to an absolute, symlink-free directory that
// must already exist.
func canonicalDir(role, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", configErrorf("%s %s: %w", role, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", configErrorf("%s %s: %w", role, path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", configErrorf("%s %s: %w", role, path, err)
	}
	if !info.IsDir() {
		return "", configErrorf("%s %s is not a directory", role, path)
	}
	return resolved, nil
}

// canonicalFile resolves path to an absolute, symlink-free file.
func canonicalFile(role, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", configErrorf("%s %s: %w", role, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", configErrorf("%s %s: %w", role, path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", configErrorf("%s %s: %w", role, path, err)
	}
	if info.IsDir() {
		return "", configErrorf("%s %s is a directory", role, path)
	}
	return resolved, nil
}

// sameFilesystem verifies root and dest share a device, so every
// relocation is a rename and never degrades into copy and delete.
func sameFilesystem(root, dest string) error {
	rootDev, err := deviceOf(root)
	if err != nil {
		return err
	}
	destDev, err := deviceOf(dest)
	if err != nil {
		return err
	}
	if rootDev != destDev {
		return configErrorf("scan root %s and destination %s are on different filesystems", root, dest)
	}
	return nil
}

func deviceOf(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, configErrorf("stat %s: %w", path, err)
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, configErrorf("unsupported stat type for %s", path)
	}
	return devFromStat(stat), nil
}
