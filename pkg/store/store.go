// Package store holds the four knowledge-base collections in memory.
//
// Save and Delete never fail. Save reports dangling location references as
// warnings but stores the records regardless; what to do with the warnings
// (log, count, return to the caller) is up to the caller. Every value handed
// in or out of the store is a deep copy.
package store

import (
	"sync"

	"github.com/getmockd/kbase/pkg/entity"
)

// Store is the in-memory knowledge base.
type Store struct {
	mu   sync.RWMutex
	data entity.Collections
}

// New creates an empty store.
func New() *Store {
	return &Store{data: entity.NewCollections()}
}

// Save inserts or replaces every record in the batch by name.
//
// Locations are applied first, so viewpoints and objects may refer to a
// location saved in the same batch without producing a warning.
func (s *Store) Save(batch entity.Batch) []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range batch.Locations {
		s.data.Locations[l.Name] = l.Clone()
	}

	warnings := ValidateReferences(batch, s.hasLocationLocked)

	for _, v := range batch.Viewpoints {
		s.data.Viewpoints[v.Name] = v.Clone()
	}
	for _, o := range batch.Objects {
		s.data.Objects[o.Name] = o.Clone()
	}
	for _, p := range batch.Persons {
		s.data.Persons[p.Name] = p.Clone()
	}
	return warnings
}

// Delete removes every named record in the batch. Names that are not present
// are ignored. Only record names are read. It returns the number of records
// actually removed.
func (s *Store) Delete(batch entity.Batch) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, l := range batch.Locations {
		removed += deleteKey(s.data.Locations, l.Name)
	}
	for _, v := range batch.Viewpoints {
		removed += deleteKey(s.data.Viewpoints, v.Name)
	}
	for _, o := range batch.Objects {
		removed += deleteKey(s.data.Objects, o.Name)
	}
	for _, p := range batch.Persons {
		removed += deleteKey(s.data.Persons, p.Name)
	}
	return removed
}

func deleteKey[V any](m map[string]V, name string) int {
	if _, ok := m[name]; !ok {
		return 0
	}
	delete(m, name)
	return 1
}

// Snapshot returns a copy of the full state as flat sequences sorted by name.
// Callers must not depend on the ordering.
func (s *Store) Snapshot() entity.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.State()
}

// Collections returns a copy of the name-keyed collections.
func (s *Store) Collections() entity.Collections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// LoadFrom replaces all four collections. It is meant for startup only.
func (s *Store) LoadFrom(c entity.Collections) {
	cp := c.Clone()
	s.mu.Lock()
	s.data = cp
	s.mu.Unlock()
}

// Counts returns the number of records in each collection.
func (s *Store) Counts() map[entity.Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Counts()
}

// Has reports whether a record of the given kind and name is stored.
func (s *Store) Has(kind entity.Kind, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case entity.KindLocation:
		_, ok := s.data.Locations[name]
		return ok
	case entity.KindViewpoint:
		_, ok := s.data.Viewpoints[name]
		return ok
	case entity.KindObject:
		_, ok := s.data.Objects[name]
		return ok
	case entity.KindPerson:
		_, ok := s.data.Persons[name]
		return ok
	default:
		return false
	}
}

func (s *Store) hasLocationLocked(name string) bool {
	_, ok := s.data.Locations[name]
	return ok
}
