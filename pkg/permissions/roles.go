package permissions

import (
	"context"
	"errors"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/observability"
)

// EventRole is a user's authority over one specific event. Roles are
// computed per request and never persisted.
type EventRole int

const (
	RoleNone EventRole = iota
	RoleView
	RoleAdmin
)

func (r EventRole) String() string {
	switch r {
	case RoleView:
		return "view"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// LeadershipRole is a cross-cutting authority derived from the well-known
// federation/region leadership groups, independent of any one event's admin
// or view groups.
type LeadershipRole int

const (
	LeadershipNone LeadershipRole = iota
	RingLeader
	BundLeader
)

func (r LeadershipRole) String() string {
	switch r {
	case RingLeader:
		return "ring_leader"
	case BundLeader:
		return "bund_leader"
	default:
		return "none"
	}
}

// Resolver computes event and leadership roles from directory group
// membership, the event's authority wiring, and the explicit
// responsible-person override list.
type Resolver struct {
	groups    identity.GroupResolver
	directory identity.Directory
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewResolver creates a role resolver. All collaborators are injected so
// tests can substitute fakes.
func NewResolver(groups identity.GroupResolver, directory identity.Directory, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		groups:    groups,
		directory: directory,
		logger:    logger,
		metrics:   metrics,
	}
}

// ResolveEventRole computes the user's role for the event. There are exactly
// three paths to RoleAdmin: superuser, membership in the event's admin
// group, and presence on the responsible-person list, checked in that order.
// With adminOnly set, view-group membership is ignored entirely; call sites
// gating mutations use it so mere view membership never satisfies them.
func (r *Resolver) ResolveEventRole(ctx context.Context, user *auth.User, event *events.Event, token string, adminOnly bool) (EventRole, error) {
	if user.IsSuperuser {
		return r.resolved(RoleAdmin), nil
	}

	set, err := r.groups.GroupsOf(ctx, token, user.ExternalID)
	if err != nil {
		return RoleNone, err
	}

	role := RoleNone
	if !adminOnly && set.Contains(event.ViewGroupID) {
		// A floor, not a ceiling: keep checking for an admin grant.
		role = RoleView
	}
	if set.Contains(event.AdminGroupID) {
		return r.resolved(RoleAdmin), nil
	}
	if event.IsResponsible(user.ID) {
		return r.resolved(RoleAdmin), nil
	}
	return r.resolved(role), nil
}

// ResolveLeadershipRole computes the user's sub-tree leadership authority
// for the event. It is only meaningful when the event enables the subgroup
// view pathway; otherwise it is LeadershipNone.
//
// A federation-wide invite (tag DPV) is answered by membership in the
// well-known Bundesfuehrungen group, a DPBM invite by Ringfuehrungen. An
// absent well-known group soft-fails to LeadershipNone; a directory outage
// is a hard error.
func (r *Resolver) ResolveLeadershipRole(ctx context.Context, user *auth.User, event *events.Event, token string) (LeadershipRole, error) {
	if event == nil || !event.ViewAllowSubgroup {
		return LeadershipNone, nil
	}

	switch {
	case event.HasInvitedTag(identity.TagDPV):
		return r.leadershipVia(ctx, user, token, identity.GroupBundesfuehrungen, BundLeader)
	case event.HasInvitedTag(identity.TagDPBM):
		return r.leadershipVia(ctx, user, token, identity.GroupRingfuehrungen, RingLeader)
	default:
		return LeadershipNone, nil
	}
}

func (r *Resolver) leadershipVia(ctx context.Context, user *auth.User, token, groupName string, role LeadershipRole) (LeadershipRole, error) {
	group, err := r.directory.GroupByName(ctx, groupName)
	if errors.Is(err, identity.ErrGroupNotFound) {
		if r.logger != nil {
			r.logger.WithField("group", groupName).Warn("well-known leadership group absent; resolving to no leadership role")
		}
		if r.metrics != nil {
			r.metrics.LeadershipSoftFailsTotal.Inc()
		}
		return LeadershipNone, nil
	}
	if err != nil {
		return LeadershipNone, err
	}

	set, err := r.groups.GroupsOf(ctx, token, user.ExternalID)
	if err != nil {
		return LeadershipNone, err
	}
	if set.Contains(group.ID) {
		return role, nil
	}
	return LeadershipNone, nil
}

func (r *Resolver) resolved(role EventRole) EventRole {
	if r.metrics != nil {
		r.metrics.RoleResolutionsTotal.WithLabelValues(role.String()).Inc()
	}
	return role
}
