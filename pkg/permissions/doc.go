// Package permissions is the authorization core: it resolves a user's
// per-event role and cross-cutting leadership role, and exposes the gates
// the request layer calls before any read or mutation.
//
// # Roles
//
// EventRole (none/view/admin) fuses three authority sources, in priority
// order: the superuser flag, membership in the event's directory groups, and
// the explicit responsible-person override list. Those are the only three
// paths to admin.
//
// LeadershipRole (none/ring_leader/bund_leader) comes from the well-known
// Bundesfuehrungen and Ringfuehrungen directory groups, selected by the
// event's invite tags. It grants read access across an entire organizational
// sub-tree without any event-specific grant; the scope package turns it into
// a query boundary.
//
// # Failure semantics
//
// Every gate fails closed. identity.ErrNotAuthorized propagates as an error
// alongside a false decision; an absent well-known leadership group
// soft-fails to no leadership role and is only logged.
package permissions
