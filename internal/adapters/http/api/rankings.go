package api

import (
	"net/http"
)

// RankingsHandler handles ranking, schema and reconcile requests.
type RankingsHandler struct {
	deps Dependencies
}

// HandleRankings handles GET /events/{event_id}/rankings.
func (h *RankingsHandler) HandleRankings(w http.ResponseWriter, r *http.Request) {
	params := queryParams(r)
	ranked, err := h.deps.Rankings(r.Context(), principalFrom(r.Context()),
		r.PathValue("event_id"), params["age_group"], params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// HandleExplain handles GET /events/{event_id}/rankings/explain.
func (h *RankingsHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	params := queryParams(r)
	exp, err := h.deps.Explain(r.Context(), principalFrom(r.Context()),
		r.PathValue("event_id"), params["player_id"], params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// HandleSchema handles GET /schema?event_id=..&template=..
func (h *RankingsHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	schema, err := h.deps.Schema(r.Context(), q.Get("event_id"), q.Get("template"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// HandleReconcile handles POST /events/{event_id}/reconcile.
func (h *RankingsHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.TriggerReconcile(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": n})
}
