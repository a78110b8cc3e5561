package state

import (
	"context"

	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/store"
)

// Manager is the single handle to the scoring state: the team directory and
// the point ledger over one shared store. One Manager is constructed at
// startup, passed to whoever needs it, and closed at shutdown.
type Manager struct {
	Teams  *Directory
	Points *Ledger

	store store.Store
	log   *logging.Logger
}

func New(s store.Store, log *logging.Logger) *Manager {
	return &Manager{
		Teams:  NewDirectory(s, log),
		Points: NewLedger(s, log),
		store:  s,
		log:    log,
	}
}

// Load performs the cold-cache fill from the store. Reads are served from
// memory from here on.
func (m *Manager) Load(ctx context.Context) error {
	if err := m.Teams.Load(ctx); err != nil {
		return err
	}
	return m.Points.Load(ctx)
}

// DeleteTeam removes the team and unassigns its members. Participant point
// balances are deliberately left alone: accumulated points outlive team
// affiliation.
func (m *Manager) DeleteTeam(ctx context.Context, id int64) error {
	return m.Teams.DeleteTeam(ctx, id)
}

// Close releases the underlying store.
func (m *Manager) Close(ctx context.Context) error {
	return m.store.Close(ctx)
}
