package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/registrations"
)

func TestCanEditEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("creation is always permitted", func(t *testing.T) {
		gate := NewGate(newTestResolver(identity.NewFakeResolver(), identity.NewFakeDirectory()))

		allowed, err := gate.CanEditEvent(ctx, testUser(1, "u1"), nil, testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("superuser may edit anything", func(t *testing.T) {
		gate := NewGate(newTestResolver(identity.NewFakeResolver(), identity.NewFakeDirectory()))
		user := testUser(1, "su")
		user.IsSuperuser = true

		allowed, err := gate.CanEditEvent(ctx, user, testEvent(), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("view membership is not enough to edit", func(t *testing.T) {
		groups := identity.NewFakeResolver()
		groups.Groups["u1"] = []string{"g-view"}
		gate := NewGate(newTestResolver(groups, identity.NewFakeDirectory()))

		allowed, err := gate.CanEditEvent(ctx, testUser(1, "u1"), testEvent(), testToken)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("admin membership may edit", func(t *testing.T) {
		groups := identity.NewFakeResolver()
		groups.Groups["u1"] = []string{"g-admin"}
		gate := NewGate(newTestResolver(groups, identity.NewFakeDirectory()))

		allowed, err := gate.CanEditEvent(ctx, testUser(1, "u1"), testEvent(), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestCanViewEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("outsider is denied", func(t *testing.T) {
		// Not in any event group, not responsible, not superuser, subgroup
		// view disabled.
		groups := identity.NewFakeResolver()
		groups.Groups["u1"] = []string{"unrelated"}
		resolver := newTestResolver(groups, identity.NewFakeDirectory())
		gate := NewGate(resolver)

		event := testEvent()
		event.ViewAllowSubgroup = false

		role, err := resolver.ResolveEventRole(ctx, testUser(1, "u1"), event, testToken, false)
		require.NoError(t, err)
		assert.Equal(t, RoleNone, role)

		allowed, err := gate.CanViewEvent(ctx, testUser(1, "u1"), event, testToken)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("view membership may view", func(t *testing.T) {
		groups := identity.NewFakeResolver()
		groups.Groups["u1"] = []string{"g-view"}
		gate := NewGate(newTestResolver(groups, identity.NewFakeDirectory()))

		allowed, err := gate.CanViewEvent(ctx, testUser(1, "u1"), testEvent(), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestCanEditRegistration(t *testing.T) {
	ctx := context.Background()
	reg := &registrations.Registration{ID: 9, EventID: 1, ResponsiblePersons: []int64{5}}

	t.Run("creation is always permitted", func(t *testing.T) {
		gate := NewGate(newTestResolver(identity.NewFakeResolver(), identity.NewFakeDirectory()))

		allowed, err := gate.CanEditRegistration(ctx, testUser(1, "u1"), nil, testEvent(), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("registration responsible person may edit", func(t *testing.T) {
		groups := identity.NewFakeResolver()
		gate := NewGate(newTestResolver(groups, identity.NewFakeDirectory()))

		allowed, err := gate.CanEditRegistration(ctx, testUser(5, "u5"), reg, testEvent(), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Zero(t, groups.Calls["u5"], "own authority needs no directory call")
	})

	t.Run("event admin may edit any registration", func(t *testing.T) {
		groups := identity.NewFakeResolver()
		groups.Groups["u1"] = []string{"g-admin"}
		gate := NewGate(newTestResolver(groups, identity.NewFakeDirectory()))

		allowed, err := gate.CanEditRegistration(ctx, testUser(1, "u1"), reg, testEvent(), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("unrelated user is denied", func(t *testing.T) {
		gate := NewGate(newTestResolver(identity.NewFakeResolver(), identity.NewFakeDirectory()))

		allowed, err := gate.CanEditRegistration(ctx, testUser(2, "u2"), reg, testEvent(), testToken)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestCanViewWithLeadership(t *testing.T) {
	ctx := context.Background()

	t.Run("leadership alone grants summary access", func(t *testing.T) {
		groups := identity.NewFakeResolver()
		groups.Groups["u1"] = []string{"id-rf"}
		dir := identity.NewFakeDirectory()
		dir.AddGroup(&identity.Group{ID: "id-rf", Name: identity.GroupRingfuehrungen})
		gate := NewGate(newTestResolver(groups, dir))

		allowed, err := gate.CanViewWithLeadership(ctx, testUser(1, "u1"), leadershipEvent(identity.TagDPBM), testToken)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("no view and no leadership is denied", func(t *testing.T) {
		gate := NewGate(newTestResolver(identity.NewFakeResolver(), identity.NewFakeDirectory()))

		allowed, err := gate.CanViewWithLeadership(ctx, testUser(1, "u1"), leadershipEvent(identity.TagDPBM), testToken)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestGatesFailClosed(t *testing.T) {
	// Any identity failure must yield a deny, never an allow.
	ctx := context.Background()
	groups := identity.NewFakeResolver()
	groups.Err = identity.ErrNotAuthorized
	gate := NewGate(newTestResolver(groups, identity.NewFakeDirectory()))

	user := testUser(1, "u1")
	event := leadershipEvent(identity.TagDPV)
	reg := &registrations.Registration{ID: 9, EventID: 1}

	allowed, err := gate.CanEditEvent(ctx, user, event, testToken)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)
	assert.False(t, allowed)

	allowed, err = gate.CanViewEvent(ctx, user, event, testToken)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)
	assert.False(t, allowed)

	allowed, err = gate.CanEditRegistration(ctx, user, reg, event, testToken)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)
	assert.False(t, allowed)

	allowed, err = gate.CanViewWithLeadership(ctx, user, event, testToken)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)
	assert.False(t, allowed)
}
