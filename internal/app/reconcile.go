package service

import (
	"context"

	"github.com/okian/combine/internal/adapters/mq/queue"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// TriggerReconcile lets an organizer rebuild every summary of an event.
func (s *Service) TriggerReconcile(ctx context.Context, p model.Principal, eventID string) (int, error) {
	const op = "service.trigger_reconcile"
	if err := requireOrganizer(op, p); err != nil {
		return 0, err
	}
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := s.requireMember(ctx, op, e.LeagueID, p); err != nil {
		return 0, err
	}
	return s.ReconcileEvent(ctx, eventID)
}

// ReconcileEvent schedules one recompute per distinct (player, drill) with
// evaluations and returns how many were scheduled. Without running workers
// the recomputes happen inline.
func (s *Service) ReconcileEvent(ctx context.Context, eventID string) (int, error) {
	evals, err := s.repo.ListEventEvaluations(ctx, eventID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(evals))
	for _, ev := range evals {
		job := queue.Job{EventID: eventID, PlayerID: ev.PlayerID, Drill: ev.DrillType}
		if _, dup := seen[job.Key()]; dup {
			continue
		}
		seen[job.Key()] = struct{}{}
		s.refresh(ctx, job)
	}
	s.logger.Info(ctx, "event reconcile scheduled",
		logger.String("event_id", eventID),
		logger.Int("jobs", len(seen)))
	return len(seen), nil
}

// refresh hands a recompute to the worker pool, or runs it inline when
// the pool is not running or the queue refuses the job.
func (s *Service) refresh(ctx context.Context, job queue.Job) {
	s.mu.RLock()
	q := s.reconcileQueue
	running := s.started
	s.mu.RUnlock()

	if running && q != nil {
		err := q.Enqueue(ctx, job)
		if err == nil {
			metrics.UpdateReconcileQueueSize(q.Len())
			return
		}
		s.logger.Warn(ctx, "reconcile enqueue failed, recomputing inline",
			logger.String("job", job.Key()), logger.Error(err))
	}
	s.aggregator.Recompute(ctx, job.EventID, job.PlayerID, job.Drill)
}

// sweep reconciles every event with live entry active.
func (s *Service) sweep(ctx context.Context) {
	events, err := s.repo.ListLiveEvents(ctx)
	if err != nil {
		s.logger.Warn(ctx, "reconcile sweep failed", logger.Error(err))
		metrics.RecordErrorByComponent("reconcile", "list_live_events")
		return
	}
	for _, e := range events {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.ReconcileEvent(ctx, e.ID); err != nil {
			s.logger.Warn(ctx, "event reconcile failed",
				logger.String("event_id", e.ID), logger.Error(err))
		}
	}
}
