package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// Store is the persistence the aggregator needs.
type Store interface {
	ListEvaluations(ctx context.Context, eventID, playerID, drill string) ([]model.Evaluation, error)
	PutSummary(ctx context.Context, s model.Summary) error
	SetPlayerScore(ctx context.Context, eventID, playerID, drill string, score float64) error
	// MarkEventLive sets live_entry_active and reports whether it changed.
	MarkEventLive(ctx context.Context, eventID string) (bool, error)
}

// Aggregator owns DrillSummary documents and the player snapshot fields.
type Aggregator struct {
	store Store
	log   logger.Logger
	now   func() time.Time

	// live caches events already marked live by this process.
	live sync.Map
	// locks serialises recomputes of one (event, player, drill); entries
	// are dropped once no recompute holds or waits on them.
	locksMu sync.Mutex
	locks   map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// New creates an Aggregator.
func New(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		locks: make(map[string]*keyLock),
		log:   logger.Nop(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute rebuilds the summary of (event, player, drill) after an
// evaluation write and returns it, or nil on failure. Failures are logged
// and counted, never returned: the evaluation is already durable and a
// later write reconciles.
func (a *Aggregator) Recompute(ctx context.Context, eventID, playerID, drill string) *model.Summary {
	s, err := a.RecomputeStrict(ctx, eventID, playerID, drill)
	if err != nil {
		a.log.Warn(ctx, "summary recompute failed",
			logger.String("event_id", eventID),
			logger.String("player_id", playerID),
			logger.String("drill", drill),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("aggregator", "recompute")
		return nil
	}
	return s
}

// RecomputeStrict is Recompute returning the written summary or the error.
func (a *Aggregator) RecomputeStrict(ctx context.Context, eventID, playerID, drill string) (*model.Summary, error) {
	const op = "aggregate.recompute"
	start := time.Now()

	ctx, span := otel.Tracer("combine/aggregate").Start(ctx, "Aggregator.Recompute")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("player_id", playerID),
		attribute.String("drill", drill),
	)

	summary, err := a.recompute(ctx, eventID, playerID, drill)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordAggregation("failed", elapsed)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	span.SetAttributes(attribute.Int("count", summary.Count))
	metrics.RecordAggregation("ok", elapsed)
	return summary, nil
}

func (a *Aggregator) recompute(ctx context.Context, eventID, playerID, drill string) (*model.Summary, error) {
	unlock := a.lock(eventID + "/" + model.SummaryID(playerID, drill))
	defer unlock()

	evals, err := a.store.ListEvaluations(ctx, eventID, playerID, drill)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	if len(evals) == 0 {
		return nil, ErrNoEvaluations
	}
	// The flag follows the first stored evaluation even when the summary
	// write below fails.
	if err := a.markLive(ctx, eventID); err != nil {
		a.log.Warn(ctx, "mark event live failed", logger.String("event_id", eventID), logger.Error(err))
		metrics.RecordErrorByComponent("aggregator", "mark_live")
	}

	values := make([]float64, len(evals))
	evaluators := make([]string, len(evals))
	for i, e := range evals {
		values[i] = e.Value
		evaluators[i] = e.EvaluatorID
	}
	st := Summarize(values)

	summary := model.Summary{
		ID:           model.SummaryID(playerID, drill),
		EventID:      eventID,
		PlayerID:     playerID,
		DrillType:    drill,
		Count:        st.Count,
		Average:      st.Average,
		Median:       st.Median,
		Variance:     st.Variance,
		FinalScore:   st.FinalScore,
		Values:       values,
		EvaluatorIDs: evaluators,
		LastUpdated:  a.now(),
	}
	if err := a.store.PutSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("put summary: %w", err)
	}
	if err := a.store.SetPlayerScore(ctx, eventID, playerID, drill, summary.FinalScore); err != nil {
		return nil, fmt.Errorf("set player score: %w", err)
	}
	a.log.Debug(ctx, "summary updated",
		logger.String("event_id", eventID),
		logger.String("player_id", playerID),
		logger.String("drill", drill),
		logger.Int("count", summary.Count),
		logger.Float64("final_score", summary.FinalScore),
	)
	return &summary, nil
}

func (a *Aggregator) markLive(ctx context.Context, eventID string) error {
	if _, ok := a.live.Load(eventID); ok {
		return nil
	}
	changed, err := a.store.MarkEventLive(ctx, eventID)
	if err != nil {
		return err
	}
	a.live.Store(eventID, struct{}{})
	if changed {
		a.log.Info(ctx, "live entry active", logger.String("event_id", eventID))
	}
	return nil
}

// Forget drops the cached state of a deleted event.
func (a *Aggregator) Forget(eventID string) {
	a.live.Delete(eventID)
}

func (a *Aggregator) lock(key string) (unlock func()) {
	a.locksMu.Lock()
	l, ok := a.locks[key]
	if !ok {
		l = &keyLock{}
		a.locks[key] = l
	}
	l.refs++
	a.locksMu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		a.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(a.locks, key)
		}
		a.locksMu.Unlock()
	}
}

// Pending returns how many (event, player, drill) locks are held or awaited.
func (a *Aggregator) Pending() int {
	a.locksMu.Lock()
	defer a.locksMu.Unlock()
	return len(a.locks)
}
