package service

import (
	"context"
	"strings"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/validation"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// Submission is the result of an evaluation write.
type Submission struct {
	Evaluation model.Evaluation `json:"evaluation"`
	// Summary is nil when the recompute failed; a later write reconciles it.
	Summary *model.Summary `json:"summary"`
}

// SubmitEvaluation records one measurement and recomputes the summary of
// its (player, drill).
func (s *Service) SubmitEvaluation(ctx context.Context, p model.Principal, eventID string, in validation.EvaluationInput) (*Submission, error) {
	const op = "service.submit_evaluation"
	if err := requireEvaluator(op, p); err != nil {
		return nil, err
	}
	e, tpl, err := s.eventTemplate(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	in.PlayerID = strings.TrimSpace(in.PlayerID)
	d, err := validation.ValidateEvaluation(in, tpl, e.DisabledDrills)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPlayer(ctx, eventID, in.PlayerID); err != nil {
		return nil, err
	}

	ev := model.Evaluation{
		ID:            s.newID(),
		EventID:       eventID,
		PlayerID:      in.PlayerID,
		DrillType:     d.Key,
		Value:         *in.Value,
		Unit:          d.Unit,
		EvaluatorID:   p.UserID,
		EvaluatorName: s.evaluatorName(ctx, p),
		EvaluatorRole: p.Role,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     s.now(),
	}
	if err := s.repo.AddEvaluation(ctx, &ev); err != nil {
		return nil, err
	}
	metrics.RecordEvaluationSubmitted(d.Key)
	s.upsertEvaluator(ctx, eventID, p)

	summary := s.aggregator.Recompute(ctx, eventID, ev.PlayerID, ev.DrillType)
	s.logger.Debug(ctx, "evaluation recorded",
		logger.String("event_id", eventID),
		logger.String("player_id", ev.PlayerID),
		logger.String("drill", ev.DrillType),
		logger.Bool("summarized", summary != nil))
	return &Submission{Evaluation: ev, Summary: summary}, nil
}

// ListEvaluations returns every evaluation of a player.
func (s *Service) ListEvaluations(ctx context.Context, p model.Principal, eventID, playerID string) ([]model.Evaluation, error) {
	if err := requireUser("service.list_evaluations", p); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPlayer(ctx, eventID, playerID); err != nil {
		return nil, err
	}
	return s.repo.ListPlayerEvaluations(ctx, eventID, playerID)
}

// ListSummaries returns the drill summaries of a player.
func (s *Service) ListSummaries(ctx context.Context, p model.Principal, eventID, playerID string) ([]model.Summary, error) {
	if err := requireUser("service.list_summaries", p); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPlayer(ctx, eventID, playerID); err != nil {
		return nil, err
	}
	return s.repo.ListSummaries(ctx, eventID, playerID)
}

// GetSummary returns the summary of one (player, drill).
func (s *Service) GetSummary(ctx context.Context, p model.Principal, eventID, playerID, drill string) (*model.Summary, error) {
	const op = "service.get_summary"
	if err := requireUser(op, p); err != nil {
		return nil, err
	}
	if _, tpl, err := s.eventTemplate(ctx, op, eventID); err != nil {
		return nil, err
	} else if !tpl.Has(drill) {
		return nil, apperr.Validation(op, "unknown drill_type %q", drill)
	}
	return s.repo.GetSummary(ctx, eventID, playerID, drill)
}

// ListEvaluators returns the evaluator roster of an event.
func (s *Service) ListEvaluators(ctx context.Context, p model.Principal, eventID string) ([]model.Evaluator, error) {
	if err := requireUser("service.list_evaluators", p); err != nil {
		return nil, err
	}
	return s.repo.ListEvaluators(ctx, eventID)
}

// evaluatorName prefers the principal's name, then the stored profile.
func (s *Service) evaluatorName(ctx context.Context, p model.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	profile, err := s.profiles.Get(ctx, p.UserID)
	if err != nil {
		return ""
	}
	return profile.Name
}

// upsertEvaluator keeps the event's evaluator roster current. Failures
// are logged only.
func (s *Service) upsertEvaluator(ctx context.Context, eventID string, p model.Principal) {
	err := s.repo.UpsertEvaluator(ctx, &model.Evaluator{
		ID:         p.UserID,
		EventID:    eventID,
		Name:       s.evaluatorName(ctx, p),
		Email:      p.Email,
		Role:       p.Role,
		LastSeenAt: s.now(),
	})
	if err != nil {
		s.logger.Warn(ctx, "evaluator roster write failed",
			logger.String("event_id", eventID),
			logger.String("user_id", p.UserID),
			logger.Error(err))
	}
}
