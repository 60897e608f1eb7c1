package scoring

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/combine/internal/domain/agegroup"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/types"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// Store is the read side the ranker needs. Missing entities are reported
// with errors matching apperr.ErrNotFound.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	GetPlayer(ctx context.Context, eventID, playerID string) (*model.Player, error)
	ListPlayersByAgeGroup(ctx context.Context, eventID, ageGroup string) ([]model.Player, error)
}

// Ranker orders players of an age group by composite score.
type Ranker struct {
	store    Store
	catalog  *drills.Catalog
	defaults Weights
	log      logger.Logger
}

// NewRanker creates a Ranker.
func NewRanker(store Store, opts ...Option) *Ranker {
	r := &Ranker{
		store:   store,
		catalog: drills.Builtin(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultWeights returns the weights used when a caller supplies none.
func (r *Ranker) DefaultWeights(tpl *drills.Template) Weights {
	if r.defaults != nil && r.defaults.Validate(tpl) == nil {
		return r.defaults.Clone()
	}
	return Weights(tpl.DefaultWeights())
}

type scope struct {
	event   *model.Event
	tpl     *drills.Template
	weights Weights
	age     string
}

func (r *Ranker) resolve(ctx context.Context, op, eventID, ageGroup string, w Weights) (*scope, error) {
	age, err := agegroup.Canonicalize(ageGroup)
	if err != nil {
		return nil, apperr.Validation(op, "age_group %q is not a valid age group", ageGroup)
	}
	if age == "" {
		return nil, apperr.Validation(op, "age_group is required")
	}
	event, err := r.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tpl, err := r.catalog.Template(event.DrillTemplate)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, op, err)
	}
	if w == nil {
		w = r.DefaultWeights(tpl)
	} else if err := w.Validate(tpl); err != nil {
		return nil, err
	}
	return &scope{event: event, tpl: tpl, weights: w, age: age}, nil
}

// Rank returns the players of ageGroup in eventID sorted by composite score
// descending with 1-based ranks. A nil w selects the default weights.
// Equal scores keep the store's order.
func (r *Ranker) Rank(ctx context.Context, eventID, ageGroup string, w Weights) ([]types.RankedPlayer, error) {
	const op = "scoring.rank"
	start := time.Now()

	ctx, span := otel.Tracer("combine/scoring").Start(ctx, "Ranker.Rank")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID), attribute.String("age_group", ageGroup))

	sc, err := r.resolve(ctx, op, eventID, ageGroup, w)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	players, err := r.store.ListPlayersByAgeGroup(ctx, eventID, sc.age)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ranked := make([]types.RankedPlayer, 0, len(players))
	for _, p := range players {
		ranked = append(ranked, types.RankedPlayer{
			PlayerID:       p.ID,
			Name:           p.Name,
			Number:         p.Number,
			AgeGroup:       p.AgeGroup,
			CompositeScore: Composite(p.Scores, sc.weights, sc.tpl),
			Scores:         snapshot(p.Scores),
		})
	}
	slices.SortStableFunc(ranked, func(a, b types.RankedPlayer) int {
		switch {
		case a.CompositeScore > b.CompositeScore:
			return -1
		case a.CompositeScore < b.CompositeScore:
			return 1
		}
		return 0
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	span.SetAttributes(attribute.Int("players", len(ranked)))
	metrics.RecordRanking(float64(time.Since(start).Microseconds()) / 1000)
	r.log.Debug(ctx, "ranking computed",
		logger.String("event_id", eventID),
		logger.String("age_group", sc.age),
		logger.Int("players", len(ranked)),
		logger.String("weights", sc.weights.String()),
	)
	return ranked, nil
}

// Explain returns the per-drill breakdown of one player's composite score
// and the player's rank in its age group.
func (r *Ranker) Explain(ctx context.Context, eventID, playerID string, w Weights) (*types.Explanation, error) {
	const op = "scoring.explain"

	player, err := r.store.GetPlayer(ctx, eventID, playerID)
	if err != nil {
		return nil, err
	}
	if player.AgeGroup == "" {
		return nil, apperr.Validation(op, "player %s has no age group", playerID)
	}
	sc, err := r.resolve(ctx, op, eventID, player.AgeGroup, w)
	if err != nil {
		return nil, err
	}
	ranked, err := r.Rank(ctx, eventID, sc.age, sc.weights)
	if err != nil {
		return nil, err
	}

	exp := &types.Explanation{
		PlayerID:       player.ID,
		AgeGroup:       sc.age,
		CompositeScore: Composite(player.Scores, sc.weights, sc.tpl),
		Contributions:  Contributions(player.Scores, sc.weights, sc.tpl),
	}
	for _, rp := range ranked {
		if rp.PlayerID == player.ID {
			exp.Rank = rp.Rank
			break
		}
	}
	return exp, nil
}

func snapshot(scores map[string]float64) map[string]float64 {
	if scores == nil {
		return map[string]float64{}
	}
	return maps.Clone(scores)
}
