package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
)

// manifestName is the per-owner recovery index: sequence number -> escaped
// original path.
const manifestName = "map.json"

func (a *Allocator) manifestPath() string {
	return filepath.Join(a.dir, manifestName)
}

// loadManifest reads an existing map.json into memory so entries from
// earlier runs survive this run's rewrites. A manifest that exists but
// cannot be parsed fails the owner rather than risk clobbering it.
func (a *Allocator) loadManifest() error {
	data, err := os.ReadFile(a.manifestPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", manifestName, err)
	}
	if err := json.Unmarshal(data, &a.entries); err != nil {
		return fmt.Errorf("parse %s: %w", manifestName, err)
	}
	return nil
}

// writeManifestLocked rewrites map.json from the in-memory entries.
// Callers hold a.mu.
func (a *Allocator) writeManifestLocked() error {
	data, err := json.Marshal(a.entries)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomicWrite(a.manifestPath(), data, a.uid)
}

// atomicWrite replaces path with data via a same-directory temp file that
// is synced before rename, so a crash can never leave a torn file.
func atomicWrite(path string, data []byte, uid uint32) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.icebox-tmp", base, uuid.New().String()[:8]))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create temp %s: %w", tmpPath, err)
	}
	RegisterTmp(tmpPath)
	discard := func() {
		_ = os.Remove(tmpPath)
		DeregisterTmp(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		discard()
		return fmt.Errorf("write temp %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		discard()
		return fmt.Errorf("sync temp %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		discard()
		return fmt.Errorf("close temp %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		discard()
		return fmt.Errorf("chmod temp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		discard()
		return fmt.Errorf("rename temp %s: %w", tmpPath, err)
	}
	DeregisterTmp(tmpPath)

	// The manifest belongs to the owner, like the directory around it.
	_ = syscall.Lchown(path, int(uid), -1)
	return nil
}
