package scope

import (
	"context"
	"errors"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/hierarchy"
	"github.com/scouttools/basecamp/pkg/observability"
	"github.com/scouttools/basecamp/pkg/permissions"
)

// Filter derives the visibility predicate a list query must apply before it
// reaches the store. One derivation serves every nested entity type
// (registrations, participants, cash records, attribute values) because all
// of them filter through the registration's org unit.
type Filter struct {
	resolver *permissions.Resolver
	units    hierarchy.Store
	logger   *observability.Logger
}

// NewFilter creates a scope filter.
func NewFilter(resolver *permissions.Resolver, units hierarchy.Store, logger *observability.Logger) *Filter {
	return &Filter{
		resolver: resolver,
		units:    units,
		logger:   logger,
	}
}

// RegistrationScope resolves the caller's visibility over the event's
// registrations:
//
//   - any event role grants blanket visibility (no narrowing),
//   - otherwise a leadership role narrows to the caller's federation or
//     region sub-tree,
//   - otherwise nothing is visible. Callers without leadership should have
//     been denied by the permission gate before reaching a list query; the
//     empty predicate is the defensive backstop.
func (f *Filter) RegistrationScope(ctx context.Context, user *auth.User, event *events.Event, token string) (hierarchy.Predicate, error) {
	role, err := f.resolver.ResolveEventRole(ctx, user, event, token, false)
	if err != nil {
		return hierarchy.None(), err
	}
	if role != permissions.RoleNone {
		return hierarchy.All(), nil
	}

	leadership, err := f.resolver.ResolveLeadershipRole(ctx, user, event, token)
	if err != nil {
		return hierarchy.None(), err
	}
	if leadership == permissions.LeadershipNone {
		return hierarchy.None(), nil
	}

	boundary, err := f.boundaryUnit(ctx, user, leadership)
	if err != nil {
		return hierarchy.None(), err
	}
	if boundary == nil {
		// A leader whose home unit has no ancestor at the boundary level
		// cannot be scoped; they see nothing rather than everything.
		return hierarchy.None(), nil
	}
	return hierarchy.Descendants(boundary.ID), nil
}

// boundaryUnit walks from the user's home unit to the ancestor that bounds
// their leadership scope: the federation for a bund leader, the region for a
// ring leader.
func (f *Filter) boundaryUnit(ctx context.Context, user *auth.User, leadership permissions.LeadershipRole) (*hierarchy.OrgUnit, error) {
	if user.ScoutOrganisationID == nil {
		return nil, nil
	}

	home, err := f.units.Get(ctx, *user.ScoutOrganisationID)
	if errors.Is(err, hierarchy.ErrUnitNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	level := hierarchy.LevelRing
	if leadership == permissions.BundLeader {
		level = hierarchy.LevelBund
	}

	boundary, err := hierarchy.FindAncestorAtLevel(ctx, f.units, home, level)
	if errors.Is(err, hierarchy.ErrMalformedHierarchy) {
		if f.logger != nil {
			f.logger.WithError(err).WithField("unit", home.ID).Error("malformed hierarchy during scope resolution; denying access")
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return boundary, nil
}

// QueryFilters carries the explicit unit filters a caller passes as query
// parameters. Each list narrows to units under any of the given ids; the
// lists compose with each other and with leadership scoping.
type QueryFilters struct {
	Stamm []int64
	Ring  []int64
	Bund  []int64
}

// Narrow applies the explicit query-parameter filters on top of an already
// resolved base predicate.
func Narrow(base hierarchy.Predicate, q QueryFilters) hierarchy.Predicate {
	preds := []hierarchy.Predicate{base}
	if len(q.Stamm) > 0 {
		preds = append(preds, hierarchy.DescendantsOfAny(q.Stamm...))
	}
	if len(q.Ring) > 0 {
		preds = append(preds, hierarchy.DescendantsOfAny(q.Ring...))
	}
	if len(q.Bund) > 0 {
		preds = append(preds, hierarchy.DescendantsOfAny(q.Bund...))
	}
	return hierarchy.And(preds...)
}
