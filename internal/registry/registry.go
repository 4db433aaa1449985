// Package registry is the per-node filesystem registry: a mapping from
// filesystem name to its descriptor and live handle, persisted to a
// single snapshot file under an exclusive lock (spec.md §4.E, §5, §6).
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/jkachika/galileo/internal/localstore"
	"github.com/jkachika/galileo/internal/model"
)

// entry pairs a descriptor with its live local-filesystem handle. The
// registry itself is single-writer — spec.md §5 places all mutation on
// the event loop — so no per-entry locking is needed here; the
// Registry's RWMutex still guards every map access, since SnapshotNow
// is called from Shutdown rather than on the loop.
type entry struct {
	descriptor model.FilesystemDescriptor
	handle     *localstore.LocalFilesystem
}

// Registry owns every named filesystem on one node.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	dataDir  string
	snapshot string
	log      *logrus.Entry
}

// New constructs an empty registry rooted at dataDir, with its
// descriptor snapshot at snapshotPath.
func New(dataDir, snapshotPath string, log *logrus.Entry) *Registry {
	return &Registry{
		entries:  map[string]*entry{},
		dataDir:  dataDir,
		snapshot: snapshotPath,
		log:      log,
	}
}

// Load restores the registry from its snapshot file at startup. A
// missing snapshot is not an error — a fresh node starts with an empty
// registry.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.snapshot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return model.NewIOError("reading filesystem descriptor snapshot", err)
	}

	var descriptors map[string]model.FilesystemDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return model.NewSerializationError("parsing filesystem descriptor snapshot", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, desc := range descriptors {
		r.entries[name] = &entry{
			descriptor: desc,
			handle:     localstore.New(desc),
		}
	}
	return nil
}

// Create installs name with descriptor if absent. Idempotent: if
// already present, the call is a no-op (spec.md §4.E).
func (r *Registry) Create(descriptor model.FilesystemDescriptor) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.entries[descriptor.Name]; exists {
		r.mu.Unlock()
		return nil
	}
	r.entries[descriptor.Name] = &entry{
		descriptor: descriptor,
		handle:     localstore.New(descriptor),
	}
	r.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(r.dataDir, descriptor.Name), 0o755); err != nil {
		return model.NewFilesystemError("creating filesystem directory", err)
	}

	r.snapshotBestEffort()
	return nil
}

// Delete shuts down name's handle, recursively removes its on-disk
// directory, and erases it from the map (spec.md §4.E).
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	e, exists := r.entries[name]
	if !exists {
		r.mu.Unlock()
		return model.NewNotFoundError("unknown filesystem " + name)
	}
	delete(r.entries, name)
	r.mu.Unlock()

	e.handle.Close()

	if err := os.RemoveAll(filepath.Join(r.dataDir, name)); err != nil {
		return model.NewFilesystemError("removing filesystem directory", err)
	}

	r.snapshotBestEffort()
	return nil
}

// Get returns the descriptor and handle for name.
func (r *Registry) Get(name string) (model.FilesystemDescriptor, *localstore.LocalFilesystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return model.FilesystemDescriptor{}, nil, false
	}
	return e.descriptor, e.handle, true
}

// Names returns every registered filesystem's name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// SnapshotNow forces an immediate best-effort snapshot, used on
// graceful shutdown (spec.md §7).
func (r *Registry) SnapshotNow() {
	r.snapshotBestEffort()
}

// snapshotBestEffort writes the full descriptor map to r.snapshot under
// an exclusive file lock, so a concurrently starting node sees either
// the whole old file or the whole new one (spec.md §5). Failure is
// logged, not returned — the in-memory state remains authoritative
// until the next successful snapshot (spec.md §4.E).
func (r *Registry) snapshotBestEffort() {
	r.mu.RLock()
	snapshotData := make(map[string]model.FilesystemDescriptor, len(r.entries))
	for name, e := range r.entries {
		snapshotData[name] = e.descriptor
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(snapshotData, "", "  ")
	if err != nil {
		r.log.WithError(err).Warn("failed to marshal filesystem descriptor snapshot")
		return
	}

	lockPath := r.snapshot + ".lock"
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		r.log.WithError(err).Warn("failed to acquire filesystem descriptor snapshot lock")
		return
	}
	defer fl.Unlock()

	tmp := r.snapshot + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		r.log.WithError(err).Warn("failed to write filesystem descriptor snapshot")
		return
	}
	if err := os.Rename(tmp, r.snapshot); err != nil {
		r.log.WithError(err).Warn("failed to install filesystem descriptor snapshot")
	}
}
