// Package state holds the authoritative in-memory scoring state and its
// write-through synchronization with the persistent store.
//
// Every mutation follows the same order: persist first, update the cache only
// after the store confirmed the write. The cache can therefore lag the store
// after a failure, but never run ahead of it.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/models"
	"battlescore-backend/internal/store"
)

// Directory owns the set of teams and the participant -> team membership
// index. The index and each team's member list are two views of the same
// relation and are always mutated together under the directory lock.
type Directory struct {
	store store.Store
	log   *logging.Logger

	mu         sync.RWMutex
	teams      map[int64]*models.Team
	memberTeam map[uuid.UUID]int64
	nextID     int64
}

func NewDirectory(s store.Store, log *logging.Logger) *Directory {
	return &Directory{
		store:      s,
		log:        log,
		teams:      make(map[int64]*models.Team),
		memberTeam: make(map[uuid.UUID]int64),
		nextID:     1,
	}
}

// Load replaces the in-memory state with a full read of the teams and
// memberships from the store. Membership records pointing at teams that no
// longer exist are ignored, which reconciles any half-applied cascade from a
// previous run.
func (d *Directory) Load(ctx context.Context) error {
	teamRecs, err := d.store.Find(ctx, store.Teams, store.Filter{})
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}
	memberRecs, err := d.store.Find(ctx, store.Participants, store.Filter{store.FieldTeamID: store.Exists})
	if err != nil {
		return fmt.Errorf("loading memberships: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.teams = make(map[int64]*models.Team, len(teamRecs))
	d.memberTeam = make(map[uuid.UUID]int64)
	d.nextID = 1

	for _, rec := range teamRecs {
		team := &models.Team{
			ID:          store.Int64(rec, store.FieldID),
			Name:        store.String(rec, store.FieldName),
			DisplayName: store.String(rec, store.FieldDisplayName),
			Color:       models.Color(store.Int64(rec, store.FieldColor)),
			Members:     []uuid.UUID{},
			CreatedAt:   store.Time(rec, store.FieldCreatedAt),
		}
		d.teams[team.ID] = team
		if team.ID >= d.nextID {
			d.nextID = team.ID + 1
		}
	}

	for _, rec := range memberRecs {
		pid, err := uuid.Parse(store.String(rec, store.FieldParticipantID))
		if err != nil {
			d.log.Warnw("skipping membership record with bad participant id",
				"participant_id", store.String(rec, store.FieldParticipantID))
			continue
		}
		teamID := store.Int64(rec, store.FieldTeamID)
		team, ok := d.teams[teamID]
		if !ok {
			continue
		}
		team.AddMember(pid)
		d.memberTeam[pid] = teamID
	}

	d.log.Infow("team directory loaded", "teams", len(d.teams), "members", len(d.memberTeam))
	return nil
}

// CreateTeam persists and caches a new team. Names are unique among live
// teams, compared case-insensitively. Identifiers are assigned from an
// in-memory counter seeded at load time and are never reused.
func (d *Directory) CreateTeam(ctx context.Context, name, displayName string, color models.Color) (*models.Team, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.teams {
		if strings.EqualFold(t.Name, name) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}

	team := &models.Team{
		ID:          d.nextID,
		Name:        name,
		DisplayName: displayName,
		Color:       color,
		Members:     []uuid.UUID{},
		CreatedAt:   time.Now().UTC(),
	}

	rec := store.Record{
		store.FieldID:          team.ID,
		store.FieldName:        team.Name,
		store.FieldDisplayName: team.DisplayName,
		store.FieldColor:       int64(team.Color),
		store.FieldCreatedAt:   team.CreatedAt,
	}
	if err := d.store.InsertOne(ctx, store.Teams, rec); err != nil {
		d.log.Errorw("persisting team failed", "operation", "create_team", "name", name, "error", err)
		return nil, fmt.Errorf("persisting team %q: %w", name, err)
	}

	d.nextID++
	d.teams[team.ID] = team
	return team.Clone(), nil
}

// GetTeam returns a copy of the team with the given id.
func (d *Directory) GetTeam(id int64) (*models.Team, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	team, ok := d.teams[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
	}
	return team.Clone(), nil
}

// GetTeamByName looks a team up by name, case-insensitively. Team counts are
// tens at most, so a linear scan is fine.
func (d *Directory) GetTeamByName(name string) (*models.Team, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, team := range d.teams {
		if strings.EqualFold(team.Name, name) {
			return team.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", ErrTeamNotFound, name)
}

// ListTeams returns copies of all teams ordered by id.
func (d *Directory) ListTeams() []*models.Team {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*models.Team, 0, len(d.teams))
	for _, team := range d.teams {
		result = append(result, team.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// UpdateTeam persists new name/display name/color for the team and replaces
// the cached entity on success. The roster is managed by the membership
// operations and is left untouched.
func (d *Directory) UpdateTeam(ctx context.Context, team *models.Team) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.teams[team.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTeamNotFound, team.ID)
	}
	for id, t := range d.teams {
		if id != team.ID && strings.EqualFold(t.Name, team.Name) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, team.Name)
		}
	}

	set := store.Record{
		store.FieldName:        team.Name,
		store.FieldDisplayName: team.DisplayName,
		store.FieldColor:       int64(team.Color),
	}
	if err := d.store.UpdateOne(ctx, store.Teams, store.Filter{store.FieldID: team.ID}, set); err != nil {
		d.log.Errorw("persisting team update failed", "operation", "update_team", "team_id", team.ID, "error", err)
		return fmt.Errorf("persisting team %d: %w", team.ID, err)
	}

	current.Name = team.Name
	current.DisplayName = team.DisplayName
	current.Color = team.Color
	return nil
}

// DeleteTeam removes the team record, then unassigns every member.
//
// The team deletion itself is all-or-nothing: if the store rejects it, no
// in-memory state changes. The member cascade is best-effort; a failed
// unassignment is logged and skipped, and the next Load reconciles it.
func (d *Directory) DeleteTeam(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	team, ok := d.teams[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
	}

	if err := d.store.DeleteOne(ctx, store.Teams, store.Filter{store.FieldID: id}); err != nil {
		d.log.Errorw("persisting team deletion failed", "operation", "delete_team", "team_id", id, "error", err)
		return fmt.Errorf("deleting team %d: %w", id, err)
	}

	for _, pid := range team.Members {
		err := d.store.UpdateOne(ctx, store.Participants,
			store.Filter{store.FieldParticipantID: pid.String()},
			store.Record{store.FieldTeamID: nil})
		if err != nil {
			d.log.Errorw("unassigning member during team deletion failed",
				"operation", "delete_team", "team_id", id, "participant_id", pid.String(), "error", err)
		}
		delete(d.memberTeam, pid)
	}

	delete(d.teams, id)
	return nil
}

// AddParticipantToTeam assigns the participant to the team, moving them off
// their current team first if needed. displayName, when non-empty, is cached
// into the participant record for presentation.
func (d *Directory) AddParticipantToTeam(ctx context.Context, pid uuid.UUID, displayName string, teamID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	team, ok := d.teams[teamID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTeamNotFound, teamID)
	}

	if current, ok := d.memberTeam[pid]; ok {
		if current == teamID {
			return nil
		}
		if err := d.unassignLocked(ctx, pid, current); err != nil {
			return err
		}
	}

	if err := d.upsertMembershipLocked(ctx, pid, displayName, teamID); err != nil {
		d.log.Errorw("persisting membership failed",
			"operation", "add_participant", "participant_id", pid.String(), "team_id", teamID, "error", err)
		return fmt.Errorf("persisting membership of %s: %w", pid, err)
	}

	team.AddMember(pid)
	d.memberTeam[pid] = teamID
	return nil
}

// RemoveParticipantFromTeam unassigns the participant from whatever team
// they are on.
func (d *Directory) RemoveParticipantFromTeam(ctx context.Context, pid uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	teamID, ok := d.memberTeam[pid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMember, pid)
	}
	return d.unassignLocked(ctx, pid, teamID)
}

// ParticipantTeam returns a copy of the participant's current team.
func (d *Directory) ParticipantTeam(pid uuid.UUID) (*models.Team, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	teamID, ok := d.memberTeam[pid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, pid)
	}
	return d.teams[teamID].Clone(), nil
}

// unassignLocked persists the membership removal, then removes the
// participant from both sides of the index. Caller holds d.mu.
func (d *Directory) unassignLocked(ctx context.Context, pid uuid.UUID, teamID int64) error {
	err := d.store.UpdateOne(ctx, store.Participants,
		store.Filter{store.FieldParticipantID: pid.String()},
		store.Record{store.FieldTeamID: nil})
	if err != nil {
		d.log.Errorw("persisting unassignment failed",
			"operation", "remove_participant", "participant_id", pid.String(), "team_id", teamID, "error", err)
		return fmt.Errorf("persisting unassignment of %s: %w", pid, err)
	}

	if team, ok := d.teams[teamID]; ok {
		team.RemoveMember(pid)
	}
	delete(d.memberTeam, pid)
	return nil
}

// upsertMembershipLocked writes the membership record, creating the
// participant identity if it has never been seen. Caller holds d.mu.
func (d *Directory) upsertMembershipLocked(ctx context.Context, pid uuid.UUID, displayName string, teamID int64) error {
	filter := store.Filter{store.FieldParticipantID: pid.String()}

	_, err := d.store.FindOne(ctx, store.Participants, filter)
	if errors.Is(err, store.ErrNoRecord) {
		name := displayName
		if name == "" {
			name = pid.String()
		}
		return d.store.InsertOne(ctx, store.Participants, store.Record{
			store.FieldParticipantID: pid.String(),
			store.FieldName:          name,
			store.FieldTeamID:        teamID,
		})
	}
	if err != nil {
		return err
	}

	set := store.Record{store.FieldTeamID: teamID}
	if displayName != "" {
		set[store.FieldName] = displayName
	}
	return d.store.UpdateOne(ctx, store.Participants, filter, set)
}
