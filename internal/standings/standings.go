// Package standings builds read-only scoreboard projections from state
// snapshots. It never mutates anything; presentation layers poll it.
package standings

import (
	"sort"

	"github.com/google/uuid"

	"battlescore-backend/internal/models"
)

type TeamStanding struct {
	Rank        int          `json:"rank"`
	TeamID      int64        `json:"teamId"`
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	Color       models.Color `json:"color"`
	Points      int64        `json:"points"`
}

type ParticipantStanding struct {
	Rank          int       `json:"rank"`
	ParticipantID uuid.UUID `json:"participantId"`
	Points        int64     `json:"points"`
}

// Teams ranks the given teams by balance, highest first. Teams without a
// recorded balance rank with 0 points. Ties share a rank.
func Teams(teams []*models.Team, balances map[int64]int64) []TeamStanding {
	result := make([]TeamStanding, 0, len(teams))
	for _, t := range teams {
		result = append(result, TeamStanding{
			TeamID:      t.ID,
			Name:        t.Name,
			DisplayName: t.DisplayName,
			Color:       t.Color,
			Points:      balances[t.ID],
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Points != result[j].Points {
			return result[i].Points > result[j].Points
		}
		return result[i].TeamID < result[j].TeamID
	})
	assignTeamRanks(result)
	return result
}

func assignTeamRanks(s []TeamStanding) {
	for i := range s {
		if i > 0 && s[i].Points == s[i-1].Points {
			s[i].Rank = s[i-1].Rank
			continue
		}
		s[i].Rank = i + 1
	}
}

// Participants ranks participant balances, highest first. Ties share a rank.
func Participants(balances map[uuid.UUID]int64) []ParticipantStanding {
	result := make([]ParticipantStanding, 0, len(balances))
	for pid, points := range balances {
		result = append(result, ParticipantStanding{ParticipantID: pid, Points: points})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Points != result[j].Points {
			return result[i].Points > result[j].Points
		}
		return result[i].ParticipantID.String() < result[j].ParticipantID.String()
	})
	for i := range result {
		if i > 0 && result[i].Points == result[i-1].Points {
			result[i].Rank = result[i-1].Rank
			continue
		}
		result[i].Rank = i + 1
	}
	return result
}
