package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestGroup(t *testing.T, members ...string) *Group {
	t.Helper()
	g, err := NewGroup("g1", &CreateGroupRequest{Name: "Trip", HostID: "u1", Members: members}, time.Now())
	require.NoError(t, err)
	return g
}

func TestNewGroup_AppendsHostOnce(t *testing.T) {
	g := newTestGroup(t, "u2")
	require.Equal(t, []string{"u2", "u1"}, g.Members)
	require.True(t, g.IsPrivate)

	g = newTestGroup(t, "u1", "u2", "u2", "")
	require.Equal(t, []string{"u1", "u2"}, g.Members)
}

func TestNewGroup_RejectsMissingFields(t *testing.T) {
	_, err := NewGroup("g1", &CreateGroupRequest{Name: "  ", HostID: "u1"}, time.Now())
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewGroup("g1", &CreateGroupRequest{Name: "Trip"}, time.Now())
	require.ErrorIs(t, err, ErrValidation)
}

func TestGroup_AddMember(t *testing.T) {
	g := newTestGroup(t, "u2")

	require.ErrorIs(t, g.AddMember("u2", "u3", time.Now()), ErrForbidden)
	require.ErrorIs(t, g.AddMember("u1", "u2", time.Now()), ErrValidation)
	require.NoError(t, g.AddMember("u1", "u3", time.Now()))

	require.True(t, g.IsMember("u3"))
	require.True(t, g.IsMember(g.HostID))
}

func TestGroup_RemoveMember(t *testing.T) {
	t.Run("host cannot be removed", func(t *testing.T) {
		g := newTestGroup(t, "u2")
		require.ErrorIs(t, g.RemoveMember("u1", "u1", time.Now()), ErrValidation)
		require.ErrorIs(t, g.RemoveMember("u2", "u1", time.Now()), ErrForbidden)
		require.True(t, g.IsMember("u1"))
	})

	t.Run("member removes self", func(t *testing.T) {
		g := newTestGroup(t, "u2", "u3")
		require.NoError(t, g.RemoveMember("u2", "u2", time.Now()))
		require.Equal(t, []string{"u3", "u1"}, g.Members)
	})

	t.Run("member cannot remove another member", func(t *testing.T) {
		g := newTestGroup(t, "u2", "u3")
		require.ErrorIs(t, g.RemoveMember("u2", "u3", time.Now()), ErrForbidden)
	})

	t.Run("host removes member", func(t *testing.T) {
		g := newTestGroup(t, "u2", "u3")
		require.NoError(t, g.RemoveMember("u1", "u3", time.Now()))
		require.False(t, g.IsMember("u3"))
		require.True(t, g.IsMember("u1"))
	})
}

func TestGroup_Apply(t *testing.T) {
	t.Run("members replacement keeps host", func(t *testing.T) {
		g := newTestGroup(t, "u2")
		require.NoError(t, g.Apply("u1", &UpdateGroupRequest{Members: []string{"u4"}}, time.Now()))
		require.Equal(t, []string{"u4", "u1"}, g.Members)
	})

	t.Run("members replacement is host only", func(t *testing.T) {
		g := newTestGroup(t, "u2")
		err := g.Apply("u2", &UpdateGroupRequest{Members: []string{"u2"}}, time.Now())
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("member renames", func(t *testing.T) {
		g := newTestGroup(t, "u2")
		desc := "summer"
		require.NoError(t, g.Apply("u2", &UpdateGroupRequest{Name: "Trip 2", Description: &desc}, time.Now()))
		require.Equal(t, "Trip 2", g.Name)
		require.Equal(t, "summer", g.Description)
	})

	t.Run("outsider rejected", func(t *testing.T) {
		g := newTestGroup(t, "u2")
		require.ErrorIs(t, g.Apply("u9", &UpdateGroupRequest{Name: "x"}, time.Now()), ErrForbidden)
	})
}

func TestGroup_CanDelete(t *testing.T) {
	g := newTestGroup(t, "u2")
	require.NoError(t, g.CanDelete("u1"))
	require.ErrorIs(t, g.CanDelete("u2"), ErrForbidden)
}
