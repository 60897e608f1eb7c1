package api

import (
	"net/http"
)

// LeaguesHandler handles league requests.
type LeaguesHandler struct {
	deps Dependencies
}

type createLeagueRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// HandleCreate handles POST /leagues.
func (h *LeaguesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createLeagueRequest
	if err := decode(w, r, "api.create_league", &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.deps.CreateLeague(r.Context(), principalFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// HandleJoin handles POST /leagues/{league_id}/join.
func (h *LeaguesHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.JoinLeague(r.Context(), principalFrom(r.Context()), r.PathValue("league_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleList handles GET /leagues.
func (h *LeaguesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.deps.ListLeagues(r.Context(), principalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leagues": leagues})
}
