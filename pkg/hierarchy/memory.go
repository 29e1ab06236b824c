package hierarchy

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by fixtures and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	units map[int64]*OrgUnit
}

// NewMemoryStore creates an empty in-memory hierarchy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{units: make(map[int64]*OrgUnit)}
}

// Add inserts a unit, filling in the denormalized grandparent and
// great-grandparent references from the already-stored parent. Parents must
// therefore be added before their children, mirroring how the administrative
// tooling builds the tree top-down.
func (s *MemoryStore) Add(unit OrgUnit) *OrgUnit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unit.ParentID != nil {
		if parent, ok := s.units[*unit.ParentID]; ok {
			unit.GrandparentID = parent.ParentID
			unit.GreatGrandparentID = parent.GrandparentID
		}
	}
	stored := unit
	s.units[unit.ID] = &stored
	return &stored
}

// Get returns the unit with the given id, or ErrUnitNotFound.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*OrgUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return nil, ErrUnitNotFound
	}
	copied := *unit
	return &copied, nil
}

// Children returns the direct children of the given unit, ordered by name.
func (s *MemoryStore) Children(ctx context.Context, id int64) ([]*OrgUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var children []*OrgUnit
	for _, unit := range s.units {
		if unit.ParentID != nil && *unit.ParentID == id {
			copied := *unit
			children = append(children, &copied)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}
