package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/store"
)

// Ledger owns the two independent point balances: team-scoped and
// participant-scoped. Unknown keys read as 0; balances may go negative.
//
// Additive writes are deliberately quiet about persistence failures: the
// failure is logged, the cache keeps the old balance, and the old balance is
// returned. A dropped score bump must not take down live play.
type Ledger struct {
	store store.Store
	log   *logging.Logger

	tmu        sync.RWMutex
	teamPoints map[int64]int64

	pmu               sync.RWMutex
	participantPoints map[uuid.UUID]int64
}

func NewLedger(s store.Store, log *logging.Logger) *Ledger {
	return &Ledger{
		store:             s,
		log:               log,
		teamPoints:        make(map[int64]int64),
		participantPoints: make(map[uuid.UUID]int64),
	}
}

// Load replaces both balance maps with a full read of the points collection.
func (l *Ledger) Load(ctx context.Context) error {
	teamRecs, err := l.store.Find(ctx, store.Points, store.Filter{store.FieldTeamID: store.Exists})
	if err != nil {
		return fmt.Errorf("loading team balances: %w", err)
	}
	participantRecs, err := l.store.Find(ctx, store.Points, store.Filter{store.FieldParticipantID: store.Exists})
	if err != nil {
		return fmt.Errorf("loading participant balances: %w", err)
	}

	l.tmu.Lock()
	l.teamPoints = make(map[int64]int64, len(teamRecs))
	for _, rec := range teamRecs {
		l.teamPoints[store.Int64(rec, store.FieldTeamID)] = store.Int64(rec, store.FieldBalance)
	}
	l.tmu.Unlock()

	l.pmu.Lock()
	l.participantPoints = make(map[uuid.UUID]int64, len(participantRecs))
	for _, rec := range participantRecs {
		pid, err := uuid.Parse(store.String(rec, store.FieldParticipantID))
		if err != nil {
			l.log.Warnw("skipping points record with bad participant id",
				"participant_id", store.String(rec, store.FieldParticipantID))
			continue
		}
		l.participantPoints[pid] = store.Int64(rec, store.FieldBalance)
	}
	l.pmu.Unlock()

	l.log.Infow("point ledger loaded", "team_balances", len(teamRecs), "participant_balances", len(participantRecs))
	return nil
}

// upsertBalance writes the balance record for one key, inserting on first
// write. The find-then-branch makes this a single logical upsert from the
// caller's point of view; callers hold the scope lock, so no other mutator
// can interleave.
func (l *Ledger) upsertBalance(ctx context.Context, keyField string, key any, balance int64) error {
	filter := store.Filter{keyField: key}
	now := time.Now().UTC()

	_, err := l.store.FindOne(ctx, store.Points, filter)
	if errors.Is(err, store.ErrNoRecord) {
		return l.store.InsertOne(ctx, store.Points, store.Record{
			keyField:               key,
			store.FieldBalance:     balance,
			store.FieldLastUpdated: now,
		})
	}
	if err != nil {
		return err
	}
	return l.store.UpdateOne(ctx, store.Points, filter, store.Record{
		store.FieldBalance:     balance,
		store.FieldLastUpdated: now,
	})
}

// AddTeamPoints adds delta to the team's balance and returns the new total.
// On persistence failure the balance is unchanged and the old total is
// returned.
func (l *Ledger) AddTeamPoints(ctx context.Context, teamID int64, delta int64) int64 {
	l.tmu.Lock()
	defer l.tmu.Unlock()

	current := l.teamPoints[teamID]
	next := current + delta

	if err := l.upsertBalance(ctx, store.FieldTeamID, teamID, next); err != nil {
		l.log.Errorw("persisting team balance failed",
			"operation", "add_team_points", "team_id", teamID, "delta", delta, "error", err)
		return current
	}

	l.teamPoints[teamID] = next
	return next
}

// RemoveTeamPoints is AddTeamPoints with a negated delta. No floor at zero.
func (l *Ledger) RemoveTeamPoints(ctx context.Context, teamID int64, delta int64) int64 {
	return l.AddTeamPoints(ctx, teamID, -delta)
}

// SetTeamPoints overwrites the team's balance.
func (l *Ledger) SetTeamPoints(ctx context.Context, teamID int64, balance int64) error {
	l.tmu.Lock()
	defer l.tmu.Unlock()

	if err := l.upsertBalance(ctx, store.FieldTeamID, teamID, balance); err != nil {
		l.log.Errorw("persisting team balance failed",
			"operation", "set_team_points", "team_id", teamID, "error", err)
		return fmt.Errorf("persisting balance for team %d: %w", teamID, err)
	}

	l.teamPoints[teamID] = balance
	return nil
}

// TeamPoints reads the team's balance from memory; unknown teams read as 0.
func (l *Ledger) TeamPoints(teamID int64) int64 {
	l.tmu.RLock()
	defer l.tmu.RUnlock()
	return l.teamPoints[teamID]
}

// TeamBalances returns a copy of all team balances.
func (l *Ledger) TeamBalances() map[int64]int64 {
	l.tmu.RLock()
	defer l.tmu.RUnlock()

	out := make(map[int64]int64, len(l.teamPoints))
	for k, v := range l.teamPoints {
		out[k] = v
	}
	return out
}

// ResetTeamPoints deletes every team-scoped balance record in one bulk
// operation and clears the cache on success. Participant balances are not
// touched.
func (l *Ledger) ResetTeamPoints(ctx context.Context) error {
	l.tmu.Lock()
	defer l.tmu.Unlock()

	if err := l.store.DeleteMany(ctx, store.Points, store.Filter{store.FieldTeamID: store.Exists}); err != nil {
		l.log.Errorw("resetting team balances failed", "operation", "reset_team_points", "error", err)
		return fmt.Errorf("resetting team balances: %w", err)
	}

	l.teamPoints = make(map[int64]int64)
	return nil
}

// AddParticipantPoints adds delta to the participant's balance and returns
// the new total, creating the participant identity on first contact. On
// persistence failure the balance is unchanged and the old total is
// returned.
func (l *Ledger) AddParticipantPoints(ctx context.Context, pid uuid.UUID, delta int64) int64 {
	l.pmu.Lock()
	defer l.pmu.Unlock()

	current := l.participantPoints[pid]
	next := current + delta

	l.ensureParticipant(ctx, pid)

	if err := l.upsertBalance(ctx, store.FieldParticipantID, pid.String(), next); err != nil {
		l.log.Errorw("persisting participant balance failed",
			"operation", "add_participant_points", "participant_id", pid.String(), "delta", delta, "error", err)
		return current
	}

	l.participantPoints[pid] = next
	return next
}

// RemoveParticipantPoints is AddParticipantPoints with a negated delta.
func (l *Ledger) RemoveParticipantPoints(ctx context.Context, pid uuid.UUID, delta int64) int64 {
	return l.AddParticipantPoints(ctx, pid, -delta)
}

// SetParticipantPoints overwrites the participant's balance, creating the
// participant identity on first contact.
func (l *Ledger) SetParticipantPoints(ctx context.Context, pid uuid.UUID, balance int64) error {
	l.pmu.Lock()
	defer l.pmu.Unlock()

	l.ensureParticipant(ctx, pid)

	if err := l.upsertBalance(ctx, store.FieldParticipantID, pid.String(), balance); err != nil {
		l.log.Errorw("persisting participant balance failed",
			"operation", "set_participant_points", "participant_id", pid.String(), "error", err)
		return fmt.Errorf("persisting balance for participant %s: %w", pid, err)
	}

	l.participantPoints[pid] = balance
	return nil
}

// ParticipantPoints reads the participant's balance from memory; unknown
// participants read as 0.
func (l *Ledger) ParticipantPoints(pid uuid.UUID) int64 {
	l.pmu.RLock()
	defer l.pmu.RUnlock()
	return l.participantPoints[pid]
}

// ParticipantBalances returns a copy of all participant balances.
func (l *Ledger) ParticipantBalances() map[uuid.UUID]int64 {
	l.pmu.RLock()
	defer l.pmu.RUnlock()

	out := make(map[uuid.UUID]int64, len(l.participantPoints))
	for k, v := range l.participantPoints {
		out[k] = v
	}
	return out
}

// ResetParticipantPoints deletes every participant-scoped balance record and
// clears the cache on success. Team balances are not touched.
func (l *Ledger) ResetParticipantPoints(ctx context.Context) error {
	l.pmu.Lock()
	defer l.pmu.Unlock()

	if err := l.store.DeleteMany(ctx, store.Points, store.Filter{store.FieldParticipantID: store.Exists}); err != nil {
		l.log.Errorw("resetting participant balances failed", "operation", "reset_participant_points", "error", err)
		return fmt.Errorf("resetting participant balances: %w", err)
	}

	l.participantPoints = make(map[uuid.UUID]int64)
	return nil
}

// ensureParticipant creates a minimal identity record if the participant has
// never been observed. Points can arrive before the team directory has seen
// the participant, so this lives in the write path rather than as a caller
// precondition. Failures are logged only; the balance write decides the
// outcome of the operation.
func (l *Ledger) ensureParticipant(ctx context.Context, pid uuid.UUID) {
	filter := store.Filter{store.FieldParticipantID: pid.String()}
	_, err := l.store.FindOne(ctx, store.Participants, filter)
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrNoRecord) {
		l.log.Errorw("looking up participant identity failed", "participant_id", pid.String(), "error", err)
		return
	}

	err = l.store.InsertOne(ctx, store.Participants, store.Record{
		store.FieldParticipantID: pid.String(),
		store.FieldName:          pid.String(),
		store.FieldTeamID:        nil,
	})
	if err != nil {
		l.log.Errorw("creating participant identity failed", "participant_id", pid.String(), "error", err)
	}
}
