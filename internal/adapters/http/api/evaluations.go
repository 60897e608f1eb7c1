package api

import (
	"net/http"

	"github.com/okian/combine/internal/domain/validation"
)

// EvaluationsHandler handles evaluation and summary requests.
type EvaluationsHandler struct {
	deps Dependencies
}

// HandleSubmit handles POST /events/{event_id}/evaluations.
func (h *EvaluationsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var in validation.EvaluationInput
	if err := decodeBody(w, r, "api.submit_evaluation", &in); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.deps.SubmitEvaluation(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// HandleList handles GET /events/{event_id}/players/{player_id}/evaluations.
func (h *EvaluationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	evals, err := h.deps.ListEvaluations(r.Context(), principalFrom(r.Context()),
		r.PathValue("event_id"), r.PathValue("player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluations": evals})
}

// HandleSummaries handles GET /events/{event_id}/players/{player_id}/summaries.
func (h *EvaluationsHandler) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := h.deps.ListSummaries(r.Context(), principalFrom(r.Context()),
		r.PathValue("event_id"), r.PathValue("player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": sums})
}

// HandleEvaluators handles GET /events/{event_id}/evaluators.
func (h *EvaluationsHandler) HandleEvaluators(w http.ResponseWriter, r *http.Request) {
	roster, err := h.deps.ListEvaluators(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluators": roster})
}
