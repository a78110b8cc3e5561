package state

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/store"
)

func TestAddTeamPoints(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	assert.Equal(t, int64(0), m.Points.TeamPoints(1))
	assert.Equal(t, int64(5), m.Points.AddTeamPoints(ctx, 1, 5))
	assert.Equal(t, int64(12), m.Points.AddTeamPoints(ctx, 1, 7))
	assert.Equal(t, int64(12), m.Points.TeamPoints(1))
}

func TestRemoveTeamPointsGoesNegative(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	m.Points.AddTeamPoints(ctx, 1, 3)
	assert.Equal(t, int64(-2), m.Points.RemoveTeamPoints(ctx, 1, 5))
	assert.Equal(t, int64(-2), m.Points.TeamPoints(1))
}

func TestSetTeamPoints(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	m.Points.AddTeamPoints(ctx, 1, 50)
	require.NoError(t, m.Points.SetTeamPoints(ctx, 1, 10))
	assert.Equal(t, int64(10), m.Points.TeamPoints(1))
}

func TestTeamBalancesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	m.Points.AddTeamPoints(ctx, 1, 5)
	balances := m.Points.TeamBalances()
	balances[1] = 999

	assert.Equal(t, int64(5), m.Points.TeamPoints(1))
}

func TestAddTeamPointsPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, flaky := newFlakyManager()

	m.Points.AddTeamPoints(ctx, 1, 5)

	flaky.failUpdate = true
	// The old balance comes back and the cache is untouched.
	assert.Equal(t, int64(5), m.Points.AddTeamPoints(ctx, 1, 3))
	assert.Equal(t, int64(5), m.Points.TeamPoints(1))

	flaky.failUpdate = false
	assert.Equal(t, int64(8), m.Points.AddTeamPoints(ctx, 1, 3))
}

func TestSetTeamPointsPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, flaky := newFlakyManager()

	m.Points.AddTeamPoints(ctx, 1, 5)

	flaky.failUpdate = true
	require.Error(t, m.Points.SetTeamPoints(ctx, 1, 100))
	assert.Equal(t, int64(5), m.Points.TeamPoints(1))
}

func TestResetTeamPoints(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	p := uuid.New()

	m.Points.AddTeamPoints(ctx, 1, 5)
	m.Points.AddTeamPoints(ctx, 2, 7)
	m.Points.AddParticipantPoints(ctx, p, 9)

	require.NoError(t, m.Points.ResetTeamPoints(ctx))

	assert.Empty(t, m.Points.TeamBalances())
	// The participant scope is untouched.
	assert.Equal(t, int64(9), m.Points.ParticipantPoints(p))
}

func TestResetTeamPointsPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m, flaky := newFlakyManager()

	m.Points.AddTeamPoints(ctx, 1, 5)

	flaky.failDeleteMany = true
	require.Error(t, m.Points.ResetTeamPoints(ctx))
	assert.Equal(t, int64(5), m.Points.TeamPoints(1))
}

func TestParticipantPoints(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	p := uuid.New()

	assert.Equal(t, int64(0), m.Points.ParticipantPoints(p))
	assert.Equal(t, int64(4), m.Points.AddParticipantPoints(ctx, p, 4))
	assert.Equal(t, int64(1), m.Points.RemoveParticipantPoints(ctx, p, 3))
	require.NoError(t, m.Points.SetParticipantPoints(ctx, p, 20))
	assert.Equal(t, int64(20), m.Points.ParticipantPoints(p))
}

func TestAddParticipantPointsCreatesIdentity(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	m := New(backing, logging.NewNop())
	p := uuid.New()

	m.Points.AddParticipantPoints(ctx, p, 4)

	rec, err := backing.FindOne(ctx, store.Participants, store.Filter{store.FieldParticipantID: p.String()})
	require.NoError(t, err)
	assert.Equal(t, p.String(), store.String(rec, store.FieldName))
	assert.Nil(t, rec[store.FieldTeamID])
}

func TestResetParticipantPoints(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	p := uuid.New()

	m.Points.AddTeamPoints(ctx, 1, 5)
	m.Points.AddParticipantPoints(ctx, p, 9)

	require.NoError(t, m.Points.ResetParticipantPoints(ctx))

	assert.Empty(t, m.Points.ParticipantBalances())
	assert.Equal(t, int64(5), m.Points.TeamPoints(1))
}

func TestConcurrentTeamPointAdds(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			m.Points.AddTeamPoints(ctx, 1, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers), m.Points.TeamPoints(1))
}

func TestLedgerLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	p := uuid.New()

	first := New(backing, logging.NewNop())
	first.Points.AddTeamPoints(ctx, 1, 15)
	first.Points.AddTeamPoints(ctx, 2, -3)
	first.Points.AddParticipantPoints(ctx, p, 8)

	second := New(backing, logging.NewNop())
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, int64(15), second.Points.TeamPoints(1))
	assert.Equal(t, int64(-3), second.Points.TeamPoints(2))
	assert.Equal(t, int64(8), second.Points.ParticipantPoints(p))
}
