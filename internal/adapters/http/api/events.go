package api

import (
	"net/http"

	service "github.com/okian/combine/internal/app"
)

// EventsHandler handles event requests.
type EventsHandler struct {
	deps Dependencies
}

// HandleCreate handles POST /events.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.EventInput
	if err := decode(w, r, "api.create_event", &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.deps.CreateEvent(r.Context(), principalFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleGet handles GET /events/{event_id}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.deps.GetEvent(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleList handles GET /leagues/{league_id}/events.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.ListEvents(r.Context(), principalFrom(r.Context()), r.PathValue("league_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// HandleUpdate handles PATCH /events/{event_id}.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.EventPatch
	if err := decode(w, r, "api.update_event", &patch); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.deps.UpdateEvent(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleDelete handles DELETE /events/{event_id}.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.DeleteEvent(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":     true,
		"evaluations": report.Evaluations,
		"summaries":   report.Summaries,
		"evaluators":  report.Evaluators,
		"players":     report.Players,
	})
}
