// Package handlers exposes the scoring state over a JSON HTTP API: the
// command surface used by external integrations during live play, and the
// read-only snapshot surface used by scoreboards and overlays.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"battlescore-backend/internal/models"
	"battlescore-backend/internal/standings"
	"battlescore-backend/internal/state"
)

type Handler struct {
	manager *state.Manager
}

func New(m *state.Manager) *Handler {
	return &Handler{manager: m}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/teams", h.ListTeams)
	mux.HandleFunc("POST /api/teams", h.CreateTeam)
	mux.HandleFunc("GET /api/teams/{id}", h.GetTeam)
	mux.HandleFunc("PATCH /api/teams/{id}", h.UpdateTeam)
	mux.HandleFunc("DELETE /api/teams/{id}", h.DeleteTeam)

	mux.HandleFunc("PUT /api/teams/{id}/members/{pid}", h.AddMember)
	mux.HandleFunc("GET /api/participants/{pid}/team", h.GetParticipantTeam)
	mux.HandleFunc("DELETE /api/participants/{pid}/team", h.RemoveMember)

	mux.HandleFunc("GET /api/teams/{id}/points", h.GetTeamPoints)
	mux.HandleFunc("POST /api/teams/{id}/points", h.AddTeamPoints)
	mux.HandleFunc("PUT /api/teams/{id}/points", h.SetTeamPoints)
	mux.HandleFunc("GET /api/participants/{pid}/points", h.GetParticipantPoints)
	mux.HandleFunc("POST /api/participants/{pid}/points", h.AddParticipantPoints)
	mux.HandleFunc("PUT /api/participants/{pid}/points", h.SetParticipantPoints)

	mux.HandleFunc("GET /api/points/teams", h.AllTeamBalances)
	mux.HandleFunc("GET /api/points/participants", h.AllParticipantBalances)
	mux.HandleFunc("DELETE /api/points/teams", h.ResetTeamPoints)
	mux.HandleFunc("DELETE /api/points/participants", h.ResetParticipantPoints)

	mux.HandleFunc("GET /api/standings", h.GetStandings)
}

func (h *Handler) teamID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return 0, false
	}
	return id, true
}

func (h *Handler) participantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pid, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid participant id")
		return uuid.Nil, false
	}
	return pid, true
}

func (h *Handler) ListTeams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Teams.ListTeams())
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Name
	}

	var color models.Color
	if req.Color != "" {
		parsed, err := models.ParseColor(req.Color)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		color = parsed
	}

	team, err := h.manager.Teams.CreateTeam(r.Context(), req.Name, req.DisplayName, color)
	if err != nil {
		writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}
	team, err := h.manager.Teams.GetTeam(id)
	if err != nil {
		writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Color       *string `json:"color,omitempty"`
}

func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}

	var req UpdateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	team, err := h.manager.Teams.GetTeam(id)
	if err != nil {
		writeStateError(w, err)
		return
	}

	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.DisplayName != nil {
		team.DisplayName = *req.DisplayName
	}
	if req.Color != nil {
		color, err := models.ParseColor(*req.Color)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		team.Color = color
	}

	if err := h.manager.Teams.UpdateTeam(r.Context(), team); err != nil {
		writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}
	if err := h.manager.DeleteTeam(r.Context(), id); err != nil {
		writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AddMemberRequest struct {
	DisplayName string `json:"displayName,omitempty"`
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}
	pid, ok := h.participantID(w, r)
	if !ok {
		return
	}

	// Body is optional; only used to cache a display name.
	var req AddMemberRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.manager.Teams.AddParticipantToTeam(r.Context(), pid, req.DisplayName, id); err != nil {
		writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.participantID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Teams.RemoveParticipantFromTeam(r.Context(), pid); err != nil {
		writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetParticipantTeam(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.participantID(w, r)
	if !ok {
		return
	}
	team, err := h.manager.Teams.ParticipantTeam(pid)
	if err != nil {
		writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type AddPointsRequest struct {
	Delta int64 `json:"delta"`
}

type SetPointsRequest struct {
	Balance int64 `json:"balance"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

func (h *Handler) GetTeamPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: h.manager.Points.TeamPoints(id)})
}

func (h *Handler) AddTeamPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}
	if _, err := h.manager.Teams.GetTeam(id); err != nil {
		writeStateError(w, err)
		return
	}

	var req AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance := h.manager.Points.AddTeamPoints(r.Context(), id, req.Delta)
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}

func (h *Handler) SetTeamPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := h.teamID(w, r)
	if !ok {
		return
	}
	if _, err := h.manager.Teams.GetTeam(id); err != nil {
		writeStateError(w, err)
		return
	}

	var req SetPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.Points.SetTeamPoints(r.Context(), id, req.Balance); err != nil {
		writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: req.Balance})
}

func (h *Handler) GetParticipantPoints(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.participantID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: h.manager.Points.ParticipantPoints(pid)})
}

func (h *Handler) AddParticipantPoints(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.participantID(w, r)
	if !ok {
		return
	}

	var req AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance := h.manager.Points.AddParticipantPoints(r.Context(), pid, req.Delta)
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}

func (h *Handler) SetParticipantPoints(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.participantID(w, r)
	if !ok {
		return
	}

	var req SetPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.Points.SetParticipantPoints(r.Context(), pid, req.Balance); err != nil {
		writeStateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: req.Balance})
}

func (h *Handler) AllTeamBalances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Points.TeamBalances())
}

func (h *Handler) AllParticipantBalances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Points.ParticipantBalances())
}

func (h *Handler) ResetTeamPoints(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Points.ResetTeamPoints(r.Context()); err != nil {
		writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ResetParticipantPoints(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Points.ResetParticipantPoints(r.Context()); err != nil {
		writeStateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type StandingsResponse struct {
	Teams        []standings.TeamStanding        `json:"teams"`
	Participants []standings.ParticipantStanding `json:"participants"`
}

func (h *Handler) GetStandings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StandingsResponse{
		Teams:        standings.Teams(h.manager.Teams.ListTeams(), h.manager.Points.TeamBalances()),
		Participants: standings.Participants(h.manager.Points.ParticipantBalances()),
	})
}

func writeStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrDuplicateName):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, state.ErrTeamNotFound), errors.Is(err, state.ErrNotMember):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
