package state

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/store"
)

func TestCreateTeam(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), team.ID)
	assert.Equal(t, "Red", team.Name)
	assert.Equal(t, "Red Team", team.DisplayName)
	assert.Empty(t, team.Members)

	second, err := m.Teams.CreateTeam(ctx, "Blue", "Blue Team", 0x0000FF)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestCreateTeamDuplicateName(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	_, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)

	// Case-insensitive collision.
	_, err = m.Teams.CreateTeam(ctx, "red", "Other Red", 0xAA0000)
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Len(t, m.Teams.ListTeams(), 1)
}

func TestCreateTeamPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, flaky := newFlakyManager()

	flaky.failInsert = true
	_, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.Error(t, err)
	assert.Empty(t, m.Teams.ListTeams())

	// The failed attempt must not burn the identifier.
	flaky.failInsert = false
	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), team.ID)
}

func TestGetTeamByName(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	created, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)

	found, err := m.Teams.GetTeamByName("RED")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = m.Teams.GetTeamByName("Green")
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestListTeamsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	require.NoError(t, m.Teams.AddParticipantToTeam(ctx, uuid.New(), "", team.ID))

	listed := m.Teams.ListTeams()
	require.Len(t, listed, 1)
	listed[0].Name = "mutated"
	listed[0].Members[0] = uuid.Nil

	fresh, err := m.Teams.GetTeam(team.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red", fresh.Name)
	assert.NotEqual(t, uuid.Nil, fresh.Members[0])
}

func TestUpdateTeam(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)

	team.Name = "Crimson"
	team.DisplayName = "Crimson Crew"
	team.Color = 0xAA0000
	require.NoError(t, m.Teams.UpdateTeam(ctx, team))

	got, err := m.Teams.GetTeam(team.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crimson", got.Name)
	assert.Equal(t, "Crimson Crew", got.DisplayName)
}

func TestUpdateTeamRejectsNameCollision(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	_, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	blue, err := m.Teams.CreateTeam(ctx, "Blue", "Blue Team", 0x0000FF)
	require.NoError(t, err)

	blue.Name = "RED"
	require.ErrorIs(t, m.Teams.UpdateTeam(ctx, blue), ErrDuplicateName)
}

func TestMembershipMove(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	p := uuid.New()

	t1, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	t2, err := m.Teams.CreateTeam(ctx, "Blue", "Blue Team", 0x0000FF)
	require.NoError(t, err)

	require.NoError(t, m.Teams.AddParticipantToTeam(ctx, p, "Alice", t1.ID))
	require.NoError(t, m.Teams.AddParticipantToTeam(ctx, p, "", t2.ID))

	current, err := m.Teams.ParticipantTeam(p)
	require.NoError(t, err)
	assert.Equal(t, t2.ID, current.ID)

	old, err := m.Teams.GetTeam(t1.ID)
	require.NoError(t, err)
	assert.False(t, old.HasMember(p))

	now, err := m.Teams.GetTeam(t2.ID)
	require.NoError(t, err)
	assert.True(t, now.HasMember(p))
}

func TestAddParticipantUnknownTeam(t *testing.T) {
	m := newTestManager()
	err := m.Teams.AddParticipantToTeam(context.Background(), uuid.New(), "", 42)
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestRemoveParticipant(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	p := uuid.New()

	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	require.NoError(t, m.Teams.AddParticipantToTeam(ctx, p, "", team.ID))

	require.NoError(t, m.Teams.RemoveParticipantFromTeam(ctx, p))

	_, err = m.Teams.ParticipantTeam(p)
	require.ErrorIs(t, err, ErrNotMember)

	got, err := m.Teams.GetTeam(team.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Members)

	require.ErrorIs(t, m.Teams.RemoveParticipantFromTeam(ctx, p), ErrNotMember)
}

func TestRemoveParticipantPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, flaky := newFlakyManager()
	p := uuid.New()

	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	require.NoError(t, m.Teams.AddParticipantToTeam(ctx, p, "", team.ID))

	flaky.failUpdate = true
	require.Error(t, m.Teams.RemoveParticipantFromTeam(ctx, p))

	// Membership unchanged on failure.
	current, err := m.Teams.ParticipantTeam(p)
	require.NoError(t, err)
	assert.Equal(t, team.ID, current.ID)
}

func TestDeleteTeamPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, flaky := newFlakyManager()

	team, err := m.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)

	flaky.failDeleteOne = true
	require.Error(t, m.Teams.DeleteTeam(ctx, team.ID))

	_, err = m.Teams.GetTeam(team.ID)
	require.NoError(t, err)
}

func TestLoadRebuildsDirectory(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	p := uuid.New()

	first := New(backing, logging.NewNop())
	team, err := first.Teams.CreateTeam(ctx, "Red", "Red Team", 0xFF0000)
	require.NoError(t, err)
	require.NoError(t, first.Teams.AddParticipantToTeam(ctx, p, "Alice", team.ID))

	// A fresh process over the same store sees the same state.
	second := New(backing, logging.NewNop())
	require.NoError(t, second.Load(ctx))

	got, err := second.Teams.GetTeam(team.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red", got.Name)
	assert.True(t, got.HasMember(p))

	current, err := second.Teams.ParticipantTeam(p)
	require.NoError(t, err)
	assert.Equal(t, team.ID, current.ID)

	// Identifier counter resumes past the loaded ids.
	next, err := second.Teams.CreateTeam(ctx, "Blue", "Blue Team", 0x0000FF)
	require.NoError(t, err)
	assert.Equal(t, team.ID+1, next.ID)
}
