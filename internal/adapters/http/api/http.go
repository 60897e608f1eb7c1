// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/combine/internal/adapters/repository"
	service "github.com/okian/combine/internal/app"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/types"
	"github.com/okian/combine/internal/domain/validation"
	"github.com/okian/combine/pkg/logger"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultHealthTimeout  = 3 * time.Second
	maxJSONBytes          = 1 << 20
)

// Dependencies required by HTTP handlers. *service.Service implements it.
type Dependencies interface {
	Ping(ctx context.Context) error
	GetStats() map[string]any

	CreateLeague(ctx context.Context, p model.Principal, name string) (*model.League, error)
	JoinLeague(ctx context.Context, p model.Principal, leagueID string) (*model.Membership, error)
	ListLeagues(ctx context.Context, p model.Principal) ([]model.League, error)

	CreateEvent(ctx context.Context, p model.Principal, in service.EventInput) (*model.Event, error)
	GetEvent(ctx context.Context, p model.Principal, eventID string) (*model.Event, error)
	ListEvents(ctx context.Context, p model.Principal, leagueID string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, p model.Principal, eventID string, patch service.EventPatch) (*model.Event, error)
	DeleteEvent(ctx context.Context, p model.Principal, eventID string) (repository.DeleteReport, error)

	CreatePlayer(ctx context.Context, p model.Principal, eventID string, fields map[string]string) (*model.Player, error)
	UpdatePlayer(ctx context.Context, p model.Principal, eventID, playerID string, fields map[string]string) (*model.Player, error)
	GetPlayer(ctx context.Context, p model.Principal, eventID, playerID string) (*model.Player, error)
	ListPlayers(ctx context.Context, p model.Principal, eventID, ageGroup string) ([]model.Player, error)
	UploadPlayers(ctx context.Context, p model.Principal, eventID string, in service.UploadInput) (*types.UploadResult, error)

	SubmitEvaluation(ctx context.Context, p model.Principal, eventID string, in validation.EvaluationInput) (*service.Submission, error)
	ListEvaluations(ctx context.Context, p model.Principal, eventID, playerID string) ([]model.Evaluation, error)
	ListSummaries(ctx context.Context, p model.Principal, eventID, playerID string) ([]model.Summary, error)
	ListEvaluators(ctx context.Context, p model.Principal, eventID string) ([]model.Evaluator, error)

	Rankings(ctx context.Context, p model.Principal, eventID, ageGroup string, params map[string]string) ([]types.RankedPlayer, error)
	Explain(ctx context.Context, p model.Principal, eventID, playerID string, params map[string]string) (*types.Explanation, error)
	Schema(ctx context.Context, eventID, templateName string) (*types.Schema, error)
	TriggerReconcile(ctx context.Context, p model.Principal, eventID string) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	maxUploadBytes int64
	healthTimeout  time.Duration
	limiter        *limiter
	logger         logger.Logger

	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	leaguesHandler    *LeaguesHandler
	eventsHandler     *EventsHandler
	playersHandler    *PlayersHandler
	evaluationHandler *EvaluationsHandler
	rankingsHandler   *RankingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		maxUploadBytes: defaultMaxUploadBytes,
		healthTimeout:  defaultHealthTimeout,
		limiter:        newLimiter(20, 40),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps, s.healthTimeout)
	s.statsHandler = NewStatsHandler(deps)
	s.leaguesHandler = &LeaguesHandler{deps: deps}
	s.eventsHandler = &EventsHandler{deps: deps}
	s.playersHandler = &PlayersHandler{deps: deps, maxUploadBytes: s.maxUploadBytes}
	s.evaluationHandler = &EvaluationsHandler{deps: deps}
	s.rankingsHandler = &RankingsHandler{deps: deps}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	open := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, s.chain(endpoint, false, h))
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, s.chain(endpoint, true, h))
	}

	open("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	open("GET /stats", "stats", s.statsHandler.HandleStats)
	open("GET /schema", "schema", s.rankingsHandler.HandleSchema)

	route("GET /leagues", "leagues", s.leaguesHandler.HandleList)
	route("POST /leagues", "leagues", s.leaguesHandler.HandleCreate)
	route("POST /leagues/{league_id}/join", "league_join", s.leaguesHandler.HandleJoin)
	route("GET /leagues/{league_id}/events", "league_events", s.eventsHandler.HandleList)

	route("POST /events", "events", s.eventsHandler.HandleCreate)
	route("GET /events/{event_id}", "event", s.eventsHandler.HandleGet)
	route("PATCH /events/{event_id}", "event", s.eventsHandler.HandleUpdate)
	route("DELETE /events/{event_id}", "event", s.eventsHandler.HandleDelete)
	route("GET /events/{event_id}/evaluators", "evaluators", s.evaluationHandler.HandleEvaluators)

	route("POST /events/{event_id}/players", "players", s.playersHandler.HandleCreate)
	route("GET /events/{event_id}/players", "players", s.playersHandler.HandleList)
	route("POST /events/{event_id}/players/upload", "players_upload", s.playersHandler.HandleUpload)
	route("GET /events/{event_id}/players/{player_id}", "player", s.playersHandler.HandleGet)
	route("PATCH /events/{event_id}/players/{player_id}", "player", s.playersHandler.HandleUpdate)

	route("POST /events/{event_id}/evaluations", "evaluations", s.evaluationHandler.HandleSubmit)
	route("GET /events/{event_id}/players/{player_id}/evaluations", "player_evaluations", s.evaluationHandler.HandleList)
	route("GET /events/{event_id}/players/{player_id}/summaries", "player_summaries", s.evaluationHandler.HandleSummaries)

	route("GET /events/{event_id}/rankings", "rankings", s.rankingsHandler.HandleRankings)
	route("GET /events/{event_id}/rankings/explain", "rankings_explain", s.rankingsHandler.HandleExplain)
	route("POST /events/{event_id}/reconcile", "reconcile", s.rankingsHandler.HandleReconcile)
}

type errorResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Errors  []types.RowError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	resp := errorResponse{Code: apperr.Code(err), Message: apperr.Message(err)}
	var fe *validation.FieldErrors
	if errors.As(err, &fe) {
		resp.Message = "validation failed"
		resp.Errors = fe.Errors
	}
	if status == http.StatusGatewayTimeout {
		w.Header().Set("Retry-After", "1")
	}
	if status >= http.StatusInternalServerError {
		logger.Get().Error(r.Context(), "request failed", logger.Error(err))
		if status == http.StatusInternalServerError {
			resp.Message = http.StatusText(status)
		}
	}
	writeJSON(w, status, resp)
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody reads a JSON body of at most maxJSONBytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := decodeLimited(r, op, v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Wrap(apperr.ErrTooLarge, op, err)
		}
		return err
	}
	return nil
}

// decode is decodeBody followed by struct tag validation.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	if err := decodeBody(w, r, op, v); err != nil {
		return err
	}
	if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
		return nil
	}
	if err := requestValidator.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Wrap(apperr.ErrValidation, op, err)
		}
		fe := &validation.FieldErrors{Op: op}
		for _, e := range verrs {
			fe.Errors = append(fe.Errors, types.RowError{
				Field:   e.Field(),
				Message: fieldMessage(e),
			})
		}
		return fe
	}
	return nil
}

// decodeLimited decodes a JSON body already bounded by the caller. Size
// errors are returned unwrapped.
func decodeLimited(r *http.Request, op string, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return apperr.Wrap(apperr.ErrValidation, op, fmt.Errorf("%w: %v", ErrBadRequest, err))
	}
	return nil
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	default:
		return e.Field() + " is invalid"
	}
}

// queryParams flattens the first value of every query parameter.
func queryParams(r *http.Request) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
