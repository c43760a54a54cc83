package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voglhofer/icebox/internal/backup"
	"github.com/voglhofer/icebox/internal/engine"
	"github.com/voglhofer/icebox/internal/event"
	"github.com/voglhofer/icebox/internal/shellquote"
	"github.com/voglhofer/icebox/internal/stats"
)

// runPool feeds the given candidates through a worker pool and returns
// the errors it reported.
func runPool(t *testing.T, cfg engine.WorkerConfig, cands ...engine.Candidate) []error {
	t.Helper()

	ch := make(chan engine.Candidate, len(cands))
	for _, c := range cands {
		ch <- c
	}
	close(ch)

	errs := make(chan error, len(cands)+1)
	pool := engine.NewWorkerPool(cfg)
	pool.Run(context.Background(), ch, errs)
	close(errs)

	var got []error
	for err := range errs {
		got = append(got, err)
	}
	return got
}

func TestWorkerMovesCandidates(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "src")
	dest := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(dest, 0o755))

	pathA := filepath.Join(root, "a.txt")
	pathB := filepath.Join(root, "b.txt")
	writeFile(t, pathA, "alpha")
	writeFile(t, pathB, "bravo")

	registry := backup.NewRegistry(dest, false)
	collector := &stats.Collector{}
	events, getEvents := collectEvents(t)

	errs := runPool(t, engine.WorkerConfig{
		NumWorkers: 2,
		Registry:   registry,
		Stats:      collector,
		Events:     events,
	},
		engine.Candidate{Path: pathA, UID: testUID(), Size: 5},
		engine.Candidate{Path: pathB, UID: testUID(), Size: 5},
	)
	require.Empty(t, errs)
	require.NoError(t, registry.Close())

	assert.NoFileExists(t, pathA)
	assert.NoFileExists(t, pathB)

	ownerDir := filepath.Join(dest, uidString())
	contents := map[string]bool{}
	for _, seq := range []string{"0", "1"} {
		data, err := os.ReadFile(filepath.Join(ownerDir, seq))
		require.NoError(t, err)
		contents[string(data)] = true
	}
	assert.True(t, contents["alpha"])
	assert.True(t, contents["bravo"])

	manifest := readManifest(t, filepath.Join(ownerDir, "map.json"))
	assert.Len(t, manifest, 2)

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.FilesMoved)
	assert.Equal(t, int64(10), snap.BytesMoved)
	assert.Zero(t, snap.FilesFailed)
	require.Len(t, snap.Owners, 1)
	assert.Equal(t, int64(2), snap.Owners[0].Moved)

	moves := eventsOfType(getEvents(), event.FileMoved)
	require.Len(t, moves, 2)
	for _, ev := range moves {
		assert.Equal(t, ownerDir, filepath.Dir(ev.Dest))
		assert.Equal(t, testUID(), ev.UID)
	}
}

func TestWorkerDryRunTouchesNothing(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "src")
	dest := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(dest, 0o755))

	path := filepath.Join(root, "keep.txt")
	writeFile(t, path, "stays put")

	registry := backup.NewRegistry(dest, true)
	collector := &stats.Collector{}
	events, getEvents := collectEvents(t)

	errs := runPool(t, engine.WorkerConfig{
		NumWorkers: 1,
		DryRun:     true,
		Registry:   registry,
		Stats:      collector,
		Events:     events,
	}, engine.Candidate{Path: path, UID: testUID(), Size: 9})
	require.Empty(t, errs)
	require.NoError(t, registry.Close())

	assert.FileExists(t, path)
	assert.NoDirExists(t, filepath.Join(dest, uidString()))

	would := eventsOfType(getEvents(), event.FileWouldMove)
	require.Len(t, would, 1)
	assert.Equal(t, filepath.Join(dest, uidString(), "0"), would[0].Dest)
	assert.Equal(t, int64(1), collector.Snapshot().FilesMoved)
}

func TestWorkerFailedMoveLeavesOthersAlone(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "src")
	dest := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(dest, 0o755))

	good := filepath.Join(root, "good.txt")
	writeFile(t, good, "fine")
	gone := filepath.Join(root, "gone.txt") // never created

	registry := backup.NewRegistry(dest, false)
	collector := &stats.Collector{}
	events, getEvents := collectEvents(t)

	errs := runPool(t, engine.WorkerConfig{
		NumWorkers: 1,
		Registry:   registry,
		Stats:      collector,
		Events:     events,
	},
		engine.Candidate{Path: gone, UID: testUID(), Size: 1},
		engine.Candidate{Path: good, UID: testUID(), Size: 4},
	)
	require.NoError(t, registry.Close())

	require.Len(t, errs, 1)
	var moveErr *engine.MoveError
	require.ErrorAs(t, errs[0], &moveErr)
	assert.Equal(t, gone, moveErr.Path)

	// The failed candidate burned its slot; the survivor keeps its own.
	manifest := readManifest(t, filepath.Join(dest, uidString(), "map.json"))
	require.Len(t, manifest, 1)
	for _, escaped := range manifest {
		assert.Equal(t, shellquote.Escape(good), escaped)
	}

	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.FilesMoved)
	assert.Equal(t, int64(1), snap.FilesFailed)

	fails := eventsOfType(getEvents(), event.FileFailed)
	require.Len(t, fails, 1)
	assert.Equal(t, gone, fails[0].Path)
}

func TestWorkerOwnerInitFailure(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "src")
	dest := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(dest, 0o755))

	// Block the owner directory with a regular file.
	writeFile(t, filepath.Join(dest, uidString()), "in the way")

	pathA := filepath.Join(root, "a.txt")
	pathB := filepath.Join(root, "b.txt")
	writeFile(t, pathA, "a")
	writeFile(t, pathB, "b")

	registry := backup.NewRegistry(dest, false)
	collector := &stats.Collector{}
	events, getEvents := collectEvents(t)

	errs := runPool(t, engine.WorkerConfig{
		NumWorkers: 2,
		Registry:   registry,
		Stats:      collector,
		Events:     events,
	},
		engine.Candidate{Path: pathA, UID: testUID(), Size: 1},
		engine.Candidate{Path: pathB, UID: testUID(), Size: 1},
	)
	require.NoError(t, registry.Close())

	require.Len(t, errs, 2)
	var initErr *backup.InitError
	require.ErrorAs(t, errs[0], &initErr)
	assert.Equal(t, testUID(), initErr.UID)

	// Both files stay where they were.
	assert.FileExists(t, pathA)
	assert.FileExists(t, pathB)
	assert.Equal(t, int64(2), collector.Snapshot().FilesFailed)

	// The owner-wide failure surfaces exactly once.
	assert.Len(t, eventsOfType(getEvents(), event.OwnerFailed), 1)
	assert.Len(t, eventsOfType(getEvents(), event.FileFailed), 2)
}

func TestMoveErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &engine.MoveError{Path: "/x", Err: inner}

	assert.Equal(t, "move /x: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
