package cast

import (
	"sort"
	"sync"
)

// Change classifies a fresh snapshot against the registry.
type Change int

const (
	// ChangeUnchanged means the stored snapshot is identical.
	ChangeUnchanged Change = iota

	// ChangeNew means the device id has never been seen.
	ChangeNew

	// ChangeChanged means at least one field differs from the stored snapshot.
	ChangeChanged
)

func (c Change) String() string {
	switch c {
	case ChangeNew:
		return "new"
	case ChangeChanged:
		return "changed"
	default:
		return "unchanged"
	}
}

// Registry maps device id to the last published snapshot.
//
// Entries are created on first sight and replaced on change. They are
// never removed: a device that drops out of the listing keeps its last
// snapshot and its command routes.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Snapshot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Snapshot)}
}

// Detect classifies snap against the stored snapshot with the same id.
// It does not modify the registry.
func (r *Registry) Detect(snap Snapshot) Change {
	r.mu.RLock()
	prev, ok := r.devices[snap.ID]
	r.mu.RUnlock()

	switch {
	case !ok:
		return ChangeNew
	case prev == snap:
		return ChangeUnchanged
	default:
		return ChangeChanged
	}
}

// Put stores snap, replacing any previous snapshot for the id.
func (r *Registry) Put(snap Snapshot) {
	r.mu.Lock()
	r.devices[snap.ID] = snap
	r.mu.Unlock()
}

// Get returns the stored snapshot for id.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.devices[id]
	return snap, ok
}

// Has reports whether id has been seen.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// IDs returns every known device id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// List returns every stored snapshot, sorted by id.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	list := make([]Snapshot, 0, len(r.devices))
	for _, snap := range r.devices {
		list = append(list, snap)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
