package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthorized indicates the identity provider rejected the caller's
	// token or a lookup failed hard (e.g. the directory is unreachable).
	// Permission gates treat it as an unconditional deny.
	ErrNotAuthorized = errors.New("identity: not authorized")

	// ErrGroupNotFound indicates a named group does not exist in the
	// directory. Leadership resolution treats this as a soft failure.
	ErrGroupNotFound = errors.New("identity: group not found")
)

// Well-known directory group names used for leadership resolution, and the
// invite tags that select them.
const (
	GroupBundesfuehrungen = "Bundesfuehrungen"
	GroupRingfuehrungen   = "Ringfuehrungen"

	TagDPV  = "DPV"
	TagDPBM = "DPBM"
)

// Group is a directory group as the identity provider reports it.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// GroupSet is the flat set of group ids a user transitively belongs to.
type GroupSet map[string]struct{}

// NewGroupSet builds a set from the given ids.
func NewGroupSet(ids ...string) GroupSet {
	set := make(GroupSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether the set includes the given group id.
func (s GroupSet) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}

// Claims are the profile claims extracted from a verified access token.
type Claims struct {
	Subject  string
	Username string
	Email    string
	Name     string
}

// TokenVerifier validates a raw bearer token against the identity provider
// and returns its profile claims. Rejected tokens fail with
// ErrNotAuthorized.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

// GroupResolver reports the groups a user belongs to, as provided
// transitively by the identity directory. Implementations fail with
// ErrNotAuthorized when the token is rejected or the lookup errors.
type GroupResolver interface {
	GroupsOf(ctx context.Context, token string, userID string) (GroupSet, error)
}

// Directory looks up well-known groups by name. GroupByName returns
// ErrGroupNotFound for an absent group; any other error means the directory
// itself failed.
type Directory interface {
	GroupByName(ctx context.Context, name string) (*Group, error)
}
