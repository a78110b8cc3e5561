package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Color is a 24-bit RGB team color. It marshals as "#RRGGBB".
type Color uint32

func (c Color) Hex() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

// ParseColor accepts "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid color %q: want RRGGBB", s)
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "%06x", &v); err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Team is a named group competing for points. Members holds the current
// roster; the membership index in the state layer is its inverse.
type Team struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	Color       Color       `json:"color"`
	Members     []uuid.UUID `json:"members"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Clone returns a deep copy so callers can hand teams out of the cache
// without exposing internal state.
func (t *Team) Clone() *Team {
	copied := *t
	copied.Members = make([]uuid.UUID, len(t.Members))
	copy(copied.Members, t.Members)
	return &copied
}

// HasMember reports whether the participant is on the team's roster.
func (t *Team) HasMember(p uuid.UUID) bool {
	for _, m := range t.Members {
		if m == p {
			return true
		}
	}
	return false
}

// AddMember appends the participant if not already present.
func (t *Team) AddMember(p uuid.UUID) {
	if !t.HasMember(p) {
		t.Members = append(t.Members, p)
	}
}

// RemoveMember deletes the participant from the roster if present.
func (t *Team) RemoveMember(p uuid.UUID) {
	for i, m := range t.Members {
		if m == p {
			t.Members = append(t.Members[:i:i], t.Members[i+1:]...)
			return
		}
	}
}
