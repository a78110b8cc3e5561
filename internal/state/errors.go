package state

import "errors"

var (
	// ErrDuplicateName is returned when a team creation or rename collides
	// with an existing team name (case-insensitive).
	ErrDuplicateName = errors.New("team name already in use")

	// ErrTeamNotFound is returned for operations on unknown team ids.
	ErrTeamNotFound = errors.New("team not found")

	// ErrNotMember is returned when a participant has no current team.
	ErrNotMember = errors.New("participant is not on a team")
)
