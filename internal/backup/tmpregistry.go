package backup

import (
	"os"
	"sync"
)

// pendingTmps tracks manifest temp files between creation and rename, so
// an interrupted run's leftovers can be swept before exit.
var pendingTmps = struct {
	sync.Mutex
	paths map[string]struct{}
}{paths: make(map[string]struct{})}

// RegisterTmp records a manifest temp file that has been created but not
// yet renamed into place.
func RegisterTmp(path string) {
	pendingTmps.Lock()
	defer pendingTmps.Unlock()
	pendingTmps.paths[path] = struct{}{}
}

// DeregisterTmp drops a temp file from tracking once it has been renamed
// into place or removed.
func DeregisterTmp(path string) {
	pendingTmps.Lock()
	defer pendingTmps.Unlock()
	delete(pendingTmps.paths, path)
}

// CleanupTmpFiles removes every still-tracked temp file. Called when the
// run winds down; a write still in flight re-registers on its next attempt.
func CleanupTmpFiles() {
	pendingTmps.Lock()
	paths := make([]string, 0, len(pendingTmps.paths))
	for p := range pendingTmps.paths {
		paths = append(paths, p)
	}
	pendingTmps.paths = make(map[string]struct{})
	pendingTmps.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
