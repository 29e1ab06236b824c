package hierarchy

import (
	"errors"
	"fmt"
	"strconv"
)

// Level represents the rank of an organizational unit within the scouting
// hierarchy. Lower numbers sit higher in the tree.
type Level int

const (
	LevelAssociation Level = 2 // top-level association
	LevelBund        Level = 3 // federation
	LevelRing        Level = 4 // region
	LevelStamm       Level = 5 // troop, the typical registration unit
	LevelGruppe      Level = 6 // leaf group under a troop
)

func (l Level) String() string {
	switch l {
	case LevelAssociation:
		return "association"
	case LevelBund:
		return "bund"
	case LevelRing:
		return "ring"
	case LevelStamm:
		return "stamm"
	case LevelGruppe:
		return "gruppe"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l is one of the known taxonomy levels.
func (l Level) Valid() bool {
	return l >= LevelAssociation && l <= LevelGruppe
}

// MaxWalkDepth bounds upward ancestor walks. The taxonomy is four levels deep
// below the association, so any chain longer than this indicates corrupted
// parent references.
const MaxWalkDepth = 20

// AncestorDepth is the fixed number of denormalized ancestor references kept
// on each unit (parent, grandparent, great-grandparent). Descendant filtering
// is a union of equality checks over these columns, never a recursive query.
const AncestorDepth = 3

var (
	// ErrUnitNotFound indicates a referenced org unit does not exist.
	// Filter-building callers treat it as an empty scope.
	ErrUnitNotFound = errors.New("hierarchy: org unit not found")

	// ErrMalformedHierarchy indicates the parent chain self-references or
	// exceeds MaxWalkDepth. It signals a data-integrity bug upstream.
	ErrMalformedHierarchy = errors.New("hierarchy: malformed parent chain")
)

// OrgUnit is a node in the organizational tree. ParentID is nil at the root.
// GrandparentID and GreatGrandparentID are denormalized copies of the next
// two links in the parent chain, maintained whenever a unit is created or
// re-parented.
type OrgUnit struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Level              Level  `json:"level"`
	ParentID           *int64 `json:"parent_id,omitempty"`
	GrandparentID      *int64 `json:"grandparent_id,omitempty"`
	GreatGrandparentID *int64 `json:"great_grandparent_id,omitempty"`

	// ExternalGroupID links the unit to its group in the identity directory,
	// when one exists.
	ExternalGroupID string `json:"external_group_id,omitempty"`
}

// AncestorIDs returns the denormalized ancestor references in order of
// increasing distance, skipping nil links.
func (u *OrgUnit) AncestorIDs() []int64 {
	ids := make([]int64, 0, AncestorDepth)
	for _, ref := range []*int64{u.ParentID, u.GrandparentID, u.GreatGrandparentID} {
		if ref != nil {
			ids = append(ids, *ref)
		}
	}
	return ids
}

// NormalizeUnitID converts the loosely-typed unit references that arrive at
// the API boundary (numeric ids, decimal strings, or objects carrying an
// "id" field) into a canonical id. It is called once at the boundary; the
// core only ever sees int64 ids.
func NormalizeUnitID(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("hierarchy: non-integral unit id %v", v)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("hierarchy: invalid unit id %q: %w", v, err)
		}
		return id, nil
	case map[string]any:
		inner, ok := v["id"]
		if !ok {
			return 0, fmt.Errorf("hierarchy: unit reference object missing id field")
		}
		return NormalizeUnitID(inner)
	case nil:
		return 0, fmt.Errorf("hierarchy: nil unit id")
	default:
		return 0, fmt.Errorf("hierarchy: unsupported unit id type %T", raw)
	}
}
