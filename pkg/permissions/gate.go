package permissions

import (
	"context"

	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/registrations"
)

// Gate holds the per-endpoint authorization checks. Every check fails
// closed: an identity lookup error yields (false, err), never an allow.
type Gate struct {
	resolver *Resolver
}

// NewGate creates a permission gate on top of a role resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// CanEditEvent reports whether the user may mutate the event. A nil event
// means a creation, which is always permitted; the creator becomes the sole
// initial admin via the responsible-person list.
func (g *Gate) CanEditEvent(ctx context.Context, user *auth.User, event *events.Event, token string) (bool, error) {
	if event == nil {
		return g.observe("edit_event", true), nil
	}
	if user.IsSuperuser {
		return g.observe("edit_event", true), nil
	}

	role, err := g.resolver.ResolveEventRole(ctx, user, event, token, true)
	if err != nil {
		return g.observe("edit_event", false), err
	}
	return g.observe("edit_event", role == RoleAdmin), nil
}

// CanViewEvent reports whether the user may read the event.
func (g *Gate) CanViewEvent(ctx context.Context, user *auth.User, event *events.Event, token string) (bool, error) {
	if event == nil {
		return g.observe("view_event", true), nil
	}
	if user.IsSuperuser {
		return g.observe("view_event", true), nil
	}

	role, err := g.resolver.ResolveEventRole(ctx, user, event, token, false)
	if err != nil {
		return g.observe("view_event", false), err
	}
	return g.observe("view_event", role != RoleNone), nil
}

// CanEditRegistration reports whether the user may mutate the registration.
// A nil registration means a creation. Registration-level responsible
// persons may edit on their own authority; otherwise authority delegates to
// event-level admin.
func (g *Gate) CanEditRegistration(ctx context.Context, user *auth.User, reg *registrations.Registration, event *events.Event, token string) (bool, error) {
	if reg == nil {
		return g.observe("edit_registration", true), nil
	}
	if user.IsSuperuser {
		return g.observe("edit_registration", true), nil
	}
	if reg.IsResponsible(user.ID) {
		return g.observe("edit_registration", true), nil
	}

	allowed, err := g.CanEditEvent(ctx, user, event, token)
	if err != nil {
		return g.observe("edit_registration", false), err
	}
	return g.observe("edit_registration", allowed), nil
}

// CanViewWithLeadership reports whether the user may read the event's
// summary and statistics endpoints: regular view authority or any sub-tree
// leadership role suffices.
func (g *Gate) CanViewWithLeadership(ctx context.Context, user *auth.User, event *events.Event, token string) (bool, error) {
	allowed, err := g.CanViewEvent(ctx, user, event, token)
	if err != nil {
		return g.observe("view_with_leadership", false), err
	}
	if allowed {
		return g.observe("view_with_leadership", true), nil
	}

	leadership, err := g.resolver.ResolveLeadershipRole(ctx, user, event, token)
	if err != nil {
		return g.observe("view_with_leadership", false), err
	}
	return g.observe("view_with_leadership", leadership != LeadershipNone), nil
}

func (g *Gate) observe(gate string, allowed bool) bool {
	if g.resolver.metrics != nil {
		g.resolver.metrics.ObservePermissionCheck(gate, allowed)
	}
	return allowed
}
