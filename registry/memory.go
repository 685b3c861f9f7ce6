package registry

import (
	"sort"
	"sync"
)

// MemStore implements MetadataStore entirely in memory. It is intended
// mainly for testing, the same way store.Memory stands in for a real blob
// store.
type MemStore struct {
	m    sync.RWMutex
	info map[string]*PackageInfo // keyed by package id
}

var _ MetadataStore = &MemStore{}

// NewMemStore returns a new, empty in-memory metadata store.
func NewMemStore() *MemStore {
	return &MemStore{info: make(map[string]*PackageInfo)}
}

// Exists reports whether id has been published.
func (ms *MemStore) Exists(id string) (bool, error) {
	ms.m.RLock()
	_, ok := ms.info[id]
	ms.m.RUnlock()
	return ok, nil
}

// Insert stores the three logical rows for one package. The map write is
// atomic, which also gives us the id uniqueness a SQL store would enforce
// with a unique index.
func (ms *MemStore) Insert(p Package, jsProgram string, origin Origin) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	if _, ok := ms.info[p.ID]; ok {
		return NewError(KindConflict, "package %s already exists", p.ID)
	}
	ms.info[p.ID] = &PackageInfo{Package: p, JSProgram: jsProgram, Origin: origin}
	return nil
}

// Lookup returns the stored info for id, or nil.
func (ms *MemStore) Lookup(id string) (*PackageInfo, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	info, ok := ms.info[id]
	if !ok {
		return nil, nil
	}
	result := *info // copy so callers cannot mutate the store
	return &result, nil
}

// Search evaluates the filters against every stored package and pages the
// sorted result.
func (ms *MemStore) Search(filters []Filter, offset, limit int) ([]Package, error) {
	ms.m.RLock()
	var matched []Package
	for _, info := range ms.info {
		if matchFilters(filters, info.Package) {
			matched = append(matched, info.Package)
		}
	}
	ms.m.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.ID < b.ID
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// matchFilters is the reference predicate semantics: AND within a filter,
// OR across filters, empty filter list matches all.
func matchFilters(filters []Filter, p Package) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Name != "" && f.Name != p.Name {
			continue
		}
		if f.ID != "" && f.ID != p.ID {
			continue
		}
		if f.Version != nil && !f.Version.Match(p.Version) {
			continue
		}
		return true
	}
	return false
}

// Reset drops everything.
func (ms *MemStore) Reset() error {
	ms.m.Lock()
	ms.info = make(map[string]*PackageInfo)
	ms.m.Unlock()
	return nil
}

// Close is a no-op for the memory store.
func (ms *MemStore) Close() error { return nil }
