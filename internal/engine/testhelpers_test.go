package engine_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voglhofer/icebox/internal/event"
)

// testUID is the uid every file created by the test suite belongs to.
func testUID() uint32 {
	return uint32(os.Getuid()) //nolint:gosec // G115: test uid
}

// uidString is the owner directory name tests expect under the destination.
func uidString() string {
	return strconv.Itoa(os.Getuid())
}

// writeFile creates path (and parent directories) with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// makeOld pushes a file's atime and mtime the given duration into the
// past. ctime cannot be set from userspace, so tests that age files run
// with the ctime check disabled.
func makeOld(t *testing.T, path string, age time.Duration) {
	t.Helper()
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
}

// createAgedTree populates root with a standard tree for walk tests:
//
//	old1.txt           (stale)
//	cache/blob.dat     (stale)
//	sub/deep/leaf.txt  (stale)
//	fresh.txt          (recent)
//	link.txt           → old1.txt (symlink, recent)
//
// Stale files have atime and mtime pushed 72 hours back.
func createAgedTree(t *testing.T, root string) {
	t.Helper()

	stale := []string{
		"old1.txt",
		filepath.Join("cache", "blob.dat"),
		filepath.Join("sub", "deep", "leaf.txt"),
	}
	for _, rel := range stale {
		path := filepath.Join(root, rel)
		writeFile(t, path, "content of "+rel)
		makeOld(t, path, 72*time.Hour)
	}

	writeFile(t, filepath.Join(root, "fresh.txt"), "fresh content")
	require.NoError(t, os.Symlink("old1.txt", filepath.Join(root, "link.txt")))
}

// readManifest parses a map.json file into seq → escaped-path entries.
func readManifest(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := make(map[string]string)
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

// drainEvents creates a buffered event channel, spawns a goroutine to drain
// it, and registers cleanup. Returns the channel for use in engine.Config.
func drainEvents(t *testing.T) chan<- event.Event {
	t.Helper()
	ch := make(chan event.Event, 1024)
	done := make(chan struct{})
	go func() {
		defer close(done)
		//nolint:revive // empty-block: intentionally draining event channel
		for range ch {
		}
	}()
	t.Cleanup(func() {
		close(ch)
		<-done
	})
	return ch
}

// collectEvents creates a buffered event channel that records all events.
// Returns the channel for engine.Config and a function to retrieve collected
// events. The getter closes the channel and waits for the drain goroutine,
// so it is safe to read the slice. It may be called at most once. If the
// getter is never called, t.Cleanup closes the channel on test exit.
func collectEvents(t *testing.T) (chan<- event.Event, func() []event.Event) {
	t.Helper()
	ch := make(chan event.Event, 4096)
	var collected []event.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			collected = append(collected, ev)
		}
	}()
	var once sync.Once
	drain := func() {
		once.Do(func() { close(ch) })
		<-done
	}
	t.Cleanup(drain)
	return ch, func() []event.Event {
		drain()
		return collected
	}
}

// eventsOfType filters events down to one type, preserving order.
func eventsOfType(evs []event.Event, typ event.Type) []event.Event {
	var out []event.Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// findTmpFiles returns any .icebox-tmp files found under root.
func findTmpFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(d.Name(), ".icebox-tmp") {
			found = append(found, path)
		}
		return nil
	})
	require.NoError(t, err)
	return found
}
