package hierarchy

import (
	"context"
	"errors"
	"fmt"
)

// FindAncestorAtLevel walks the parent chain upward from unit and returns the
// first ancestor whose level matches target, including unit itself. It
// returns nil when the chain reaches a root without a match.
//
// The walk is bounded by MaxWalkDepth: a self-referencing parent or a chain
// deeper than the taxonomy allows returns ErrMalformedHierarchy instead of
// looping.
func FindAncestorAtLevel(ctx context.Context, store Store, unit *OrgUnit, target Level) (*OrgUnit, error) {
	current := unit
	for depth := 0; current != nil; depth++ {
		if depth > MaxWalkDepth {
			return nil, fmt.Errorf("%w: walk from unit %d exceeded depth %d", ErrMalformedHierarchy, unit.ID, MaxWalkDepth)
		}
		if current.Level == target {
			return current, nil
		}
		if current.ParentID == nil {
			return nil, nil
		}
		if *current.ParentID == current.ID {
			return nil, fmt.Errorf("%w: unit %d is its own parent", ErrMalformedHierarchy, current.ID)
		}

		parent, err := store.Get(ctx, *current.ParentID)
		if errors.Is(err, ErrUnitNotFound) {
			// Dangling parent reference terminates the walk like a root.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		current = parent
	}
	return nil, nil
}
