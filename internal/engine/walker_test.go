package engine_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voglhofer/icebox/internal/engine"
	"github.com/voglhofer/icebox/internal/event"
	"github.com/voglhofer/icebox/internal/exclude"
	"github.com/voglhofer/icebox/internal/stats"
)

// runWalk drains the walker and returns all candidates.
func runWalk(cfg engine.WalkerConfig) []engine.Candidate {
	w := engine.NewWalker(cfg)
	var got []engine.Candidate
	for c := range w.Walk(context.Background()) {
		got = append(got, c)
	}
	return got
}

// relPaths maps candidates to sorted root-relative paths.
func relPaths(t *testing.T, root string, cands []engine.Candidate) []string {
	t.Helper()
	var rels []string
	for _, c := range cands {
		rel, err := filepath.Rel(root, c.Path)
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return rels
}

func agedPolicy() engine.AgePolicy {
	// atime+mtime only: test files cannot have their ctime aged.
	return engine.NewAgePolicy(time.Now(), 1, true, true, false)
}

func TestWalkEmitsStaleFiles(t *testing.T) {
	root := t.TempDir()
	createAgedTree(t, root)

	collector := &stats.Collector{}
	got := runWalk(engine.WalkerConfig{
		Root:   root,
		Policy: agedPolicy(),
		Stats:  collector,
	})

	assert.Equal(t, []string{
		"cache/blob.dat",
		"old1.txt",
		"sub/deep/leaf.txt",
	}, relPaths(t, root, got))

	// old1.txt, cache, blob.dat, sub, deep, leaf.txt, fresh.txt, link.txt
	snap := collector.Snapshot()
	assert.Equal(t, int64(8), snap.EntriesScanned)
	assert.Equal(t, int64(2), snap.FilesSkipped)
	assert.Zero(t, snap.ScanErrors)
}

func TestWalkCandidateMetadata(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data.bin")
	writeFile(t, path, "twelve bytes")
	makeOld(t, path, 72*time.Hour)

	got := runWalk(engine.WalkerConfig{
		Root:   root,
		Policy: agedPolicy(),
		Stats:  &stats.Collector{},
	})
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, path, c.Path)
	assert.Equal(t, testUID(), c.UID)
	assert.Equal(t, int64(len("twelve bytes")), c.Size)
	assert.True(t, c.AccTime.Before(time.Now().Add(-71*time.Hour)))
	assert.True(t, c.ModTime.Before(time.Now().Add(-71*time.Hour)))
	assert.False(t, c.ChangeTime.IsZero())
}

func TestWalkSymlinksAreCandidatesNotFollowed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "target", "real.txt"), "real")
	require.NoError(t, os.Symlink("target", filepath.Join(root, "dirlink")))
	require.NoError(t, os.Symlink("nowhere", filepath.Join(root, "dangling")))

	// No timestamp checks: everything qualifies.
	got := runWalk(engine.WalkerConfig{
		Root:   root,
		Policy: engine.AgePolicy{},
		Stats:  &stats.Collector{},
	})

	// dirlink and dangling are candidates themselves; the walk never
	// descends through dirlink, so real.txt appears exactly once.
	assert.Equal(t, []string{
		"dangling",
		"dirlink",
		"target/real.txt",
	}, relPaths(t, root, got))
}

func TestWalkPrunesExcludedDirs(t *testing.T) {
	root := t.TempDir()
	createAgedTree(t, root)

	matcher, err := exclude.Compile([]string{"cache/"})
	require.NoError(t, err)

	got := runWalk(engine.WalkerConfig{
		Root:    root,
		Matcher: matcher,
		Policy:  agedPolicy(),
		Stats:   &stats.Collector{},
	})

	assert.Equal(t, []string{"old1.txt", "sub/deep/leaf.txt"}, relPaths(t, root, got))
}

func TestWalkNegationUnderPrunedDirNeverFires(t *testing.T) {
	root := t.TempDir()
	createAgedTree(t, root)

	matcher, err := exclude.Compile([]string{"cache/", "!cache/blob.dat"})
	require.NoError(t, err)

	got := runWalk(engine.WalkerConfig{
		Root:    root,
		Matcher: matcher,
		Policy:  agedPolicy(),
		Stats:   &stats.Collector{},
	})

	// cache/ is pruned before the negation could re-include its contents.
	assert.Equal(t, []string{"old1.txt", "sub/deep/leaf.txt"}, relPaths(t, root, got))
}

func TestWalkExcludedFilesEmitSkipEvents(t *testing.T) {
	root := t.TempDir()
	createAgedTree(t, root)

	matcher, err := exclude.Compile([]string{"*.dat"})
	require.NoError(t, err)

	events, getEvents := collectEvents(t)
	collector := &stats.Collector{}
	got := runWalk(engine.WalkerConfig{
		Root:    root,
		Matcher: matcher,
		Policy:  agedPolicy(),
		Stats:   collector,
		Events:  events,
	})

	assert.Equal(t, []string{"old1.txt", "sub/deep/leaf.txt"}, relPaths(t, root, got))

	skips := eventsOfType(getEvents(), event.FileSkipped)
	reasons := make(map[string]string)
	for _, ev := range skips {
		rel, err := filepath.Rel(root, ev.Path)
		require.NoError(t, err)
		reasons[filepath.ToSlash(rel)] = ev.Reason
	}
	assert.Equal(t, "excluded", reasons["cache/blob.dat"])
	assert.Equal(t, "newer than cutoff", reasons["fresh.txt"])
	assert.Equal(t, int64(3), collector.Snapshot().FilesSkipped)
}

func TestWalkSkipSet(t *testing.T) {
	root := t.TempDir()
	createAgedTree(t, root)

	got := runWalk(engine.WalkerConfig{
		Root:   root,
		Policy: agedPolicy(),
		Skip: map[string]struct{}{
			filepath.Join(root, "cache"):    {},
			filepath.Join(root, "old1.txt"): {},
		},
		Stats: &stats.Collector{},
	})

	assert.Equal(t, []string{"sub/deep/leaf.txt"}, relPaths(t, root, got))
}

func TestWalkSpecialFilesSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, syscall.Mkfifo(filepath.Join(root, "pipe"), 0o644))

	events, getEvents := collectEvents(t)
	collector := &stats.Collector{}
	got := runWalk(engine.WalkerConfig{
		Root:   root,
		Policy: engine.AgePolicy{},
		Stats:  collector,
		Events: events,
	})

	assert.Empty(t, got)
	assert.Equal(t, int64(1), collector.Snapshot().FilesSkipped)

	skips := eventsOfType(getEvents(), event.FileSkipped)
	require.Len(t, skips, 1)
	assert.Equal(t, "special file", skips[0].Reason)
}

func TestWalkUnreadableRootReportsScanError(t *testing.T) {
	events, getEvents := collectEvents(t)
	collector := &stats.Collector{}
	got := runWalk(engine.WalkerConfig{
		Root:   filepath.Join(t.TempDir(), "vanished"),
		Policy: engine.AgePolicy{},
		Stats:  collector,
		Events: events,
	})

	assert.Empty(t, got)
	assert.Equal(t, int64(1), collector.Snapshot().ScanErrors)

	errs := eventsOfType(getEvents(), event.ScanError)
	require.Len(t, errs, 1)
	assert.Error(t, errs[0].Error)
}

func TestWalkContextCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%02d.txt", i)), "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := engine.NewWalker(engine.WalkerConfig{
		Root:   root,
		Policy: engine.AgePolicy{},
		Stats:  &stats.Collector{},
	})

	var got []engine.Candidate
	for c := range w.Walk(ctx) {
		got = append(got, c)
	}
	assert.Empty(t, got)
}
