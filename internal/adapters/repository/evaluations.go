package repository

import (
	"context"
	"fmt"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
)

// AddEvaluation appends one evaluation. Evaluations are never updated.
func (r *Repository) AddEvaluation(ctx context.Context, e *model.Evaluation) error {
	return r.set(ctx, "add evaluation", docstore.Join(colEvents, e.EventID, colEvaluations, e.ID), e)
}

// AddEvaluations writes evaluations in chunks and returns how many were committed.
func (r *Repository) AddEvaluations(ctx context.Context, eventID string, evals []model.Evaluation) (int, error) {
	const op = "add evaluations"
	written := 0
	for start := 0; start < len(evals); start += r.batchLimit {
		end := min(start+r.batchLimit, len(evals))
		b := r.store.Batch()
		for _, e := range evals[start:end] {
			doc, err := docstore.Encode(e)
			if err != nil {
				return written, apperr.Wrap(apperr.ErrInternal, op, err)
			}
			b.Set(docstore.Join(colEvents, eventID, colEvaluations, e.ID), doc)
		}
		if err := b.Commit(ctx); err != nil {
			return written, fmt.Errorf("%s: %w", op, err)
		}
		written = end
	}
	return written, nil
}

// ListEvaluations returns the evaluations of one (player, drill).
func (r *Repository) ListEvaluations(ctx context.Context, eventID, playerID, drill string) ([]model.Evaluation, error) {
	docs, err := r.store.Query(ctx, eventCol(eventID, colEvaluations),
		docstore.Eq("player_id", playerID), docstore.Eq("drill_type", drill))
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return decodeAll[model.Evaluation]("list evaluations", docs)
}

// ListPlayerEvaluations returns every evaluation of one player.
func (r *Repository) ListPlayerEvaluations(ctx context.Context, eventID, playerID string) ([]model.Evaluation, error) {
	docs, err := r.store.Query(ctx, eventCol(eventID, colEvaluations), docstore.Eq("player_id", playerID))
	if err != nil {
		return nil, fmt.Errorf("list player evaluations: %w", err)
	}
	return decodeAll[model.Evaluation]("list player evaluations", docs)
}

// ListEventEvaluations returns every evaluation of an event.
func (r *Repository) ListEventEvaluations(ctx context.Context, eventID string) ([]model.Evaluation, error) {
	docs, err := r.store.List(ctx, eventCol(eventID, colEvaluations))
	if err != nil {
		return nil, fmt.Errorf("list event evaluations: %w", err)
	}
	return decodeAll[model.Evaluation]("list event evaluations", docs)
}

// PutSummary replaces the summary of (player, drill).
func (r *Repository) PutSummary(ctx context.Context, s model.Summary) error {
	if s.ID == "" {
		s.ID = model.SummaryID(s.PlayerID, s.DrillType)
	}
	return r.set(ctx, "put summary", docstore.Join(colEvents, s.EventID, colSummaries, s.ID), s)
}

// GetSummary returns the summary of (player, drill).
func (r *Repository) GetSummary(ctx context.Context, eventID, playerID, drill string) (*model.Summary, error) {
	var s model.Summary
	id := model.SummaryID(playerID, drill)
	if err := r.get(ctx, "get summary", docstore.Join(colEvents, eventID, colSummaries, id), &s, "summary "+id); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSummaries returns the summaries of one player.
func (r *Repository) ListSummaries(ctx context.Context, eventID, playerID string) ([]model.Summary, error) {
	docs, err := r.store.Query(ctx, eventCol(eventID, colSummaries), docstore.Eq("player_id", playerID))
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return decodeAll[model.Summary]("list summaries", docs)
}

// UpsertEvaluator records an evaluator on the event roster.
func (r *Repository) UpsertEvaluator(ctx context.Context, ev *model.Evaluator) error {
	doc, err := docstore.Encode(ev)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, "upsert evaluator", err)
	}
	if err := r.store.Merge(ctx, docstore.Join(colEvents, ev.EventID, colEvaluators, ev.ID), doc); err != nil {
		return fmt.Errorf("upsert evaluator: %w", err)
	}
	return nil
}

// ListEvaluators returns the event's evaluator roster.
func (r *Repository) ListEvaluators(ctx context.Context, eventID string) ([]model.Evaluator, error) {
	docs, err := r.store.List(ctx, eventCol(eventID, colEvaluators))
	if err != nil {
		return nil, fmt.Errorf("list evaluators: %w", err)
	}
	return decodeAll[model.Evaluator]("list evaluators", docs)
}
