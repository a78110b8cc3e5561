package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertOne(ctx, Teams, Record{FieldID: int64(1), FieldName: "Red"}))
	require.NoError(t, s.InsertOne(ctx, Teams, Record{FieldID: int64(2), FieldName: "Blue"}))

	rec, err := s.FindOne(ctx, Teams, Filter{FieldID: int64(2)})
	require.NoError(t, err)
	assert.Equal(t, "Blue", rec[FieldName])

	require.NoError(t, s.UpdateOne(ctx, Teams, Filter{FieldID: int64(2)}, Record{FieldName: "Azure"}))
	rec, err = s.FindOne(ctx, Teams, Filter{FieldID: int64(2)})
	require.NoError(t, err)
	assert.Equal(t, "Azure", rec[FieldName])

	require.NoError(t, s.DeleteOne(ctx, Teams, Filter{FieldID: int64(1)}))
	recs, err := s.Find(ctx, Teams, Filter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = s.FindOne(ctx, Teams, Filter{FieldID: int64(1)})
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestMemoryStoreExistsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertOne(ctx, Points, Record{FieldTeamID: int64(1), FieldBalance: int64(10)}))
	require.NoError(t, s.InsertOne(ctx, Points, Record{FieldParticipantID: "p-1", FieldBalance: int64(4)}))
	// Present but null does not count as existing.
	require.NoError(t, s.InsertOne(ctx, Points, Record{FieldTeamID: nil, FieldParticipantID: "p-2", FieldBalance: int64(6)}))

	teamRecs, err := s.Find(ctx, Points, Filter{FieldTeamID: Exists})
	require.NoError(t, err)
	assert.Len(t, teamRecs, 1)

	participantRecs, err := s.Find(ctx, Points, Filter{FieldParticipantID: Exists})
	require.NoError(t, err)
	assert.Len(t, participantRecs, 2)
}

func TestMemoryStoreDeleteMany(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertOne(ctx, Points, Record{FieldTeamID: int64(1), FieldBalance: int64(10)}))
	require.NoError(t, s.InsertOne(ctx, Points, Record{FieldTeamID: int64(2), FieldBalance: int64(20)}))
	require.NoError(t, s.InsertOne(ctx, Points, Record{FieldParticipantID: "p-1", FieldBalance: int64(4)}))

	require.NoError(t, s.DeleteMany(ctx, Points, Filter{FieldTeamID: Exists}))

	recs, err := s.Find(ctx, Points, Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p-1", recs[0][FieldParticipantID])
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := Record{FieldID: int64(1), FieldName: "Red"}
	require.NoError(t, s.InsertOne(ctx, Teams, original))

	// Mutating the inserted record must not reach the store.
	original[FieldName] = "mutated"
	rec, err := s.FindOne(ctx, Teams, Filter{FieldID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Red", rec[FieldName])

	// Mutating a read record must not reach the store either.
	rec[FieldName] = "mutated"
	again, err := s.FindOne(ctx, Teams, Filter{FieldID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Red", again[FieldName])
}

func TestMemoryStoreUpdateDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpdateOne(ctx, Teams, Filter{FieldID: int64(9)}, Record{FieldName: "x"}))
	require.NoError(t, s.DeleteOne(ctx, Teams, Filter{FieldID: int64(9)}))
	require.NoError(t, s.DeleteMany(ctx, Teams, Filter{FieldID: int64(9)}))
}

func TestMatchesNumericCoercion(t *testing.T) {
	// JSON decoding hands back float64, MySQL int32/int64; the same filter
	// must match all of them.
	for _, stored := range []any{int64(7), int(7), int32(7), float64(7)} {
		rec := Record{FieldTeamID: stored}
		assert.True(t, Matches(rec, Filter{FieldTeamID: int64(7)}), "stored as %T", stored)
		assert.False(t, Matches(rec, Filter{FieldTeamID: int64(8)}), "stored as %T", stored)
	}
}
