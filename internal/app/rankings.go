package service

import (
	"context"
	"slices"

	"github.com/okian/combine/internal/domain/agegroup"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/scoring"
	"github.com/okian/combine/internal/domain/types"
)

// Rankings orders the players of one age group by composite score.
// params may carry weight_<drill> overrides.
func (s *Service) Rankings(ctx context.Context, p model.Principal, eventID, ageGroup string, params map[string]string) ([]types.RankedPlayer, error) {
	const op = "service.rankings"
	if err := requireUser(op, p); err != nil {
		return nil, err
	}
	_, tpl, err := s.eventTemplate(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	w, err := scoring.ParseWeights(params, tpl)
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(ctx, eventID, ageGroup, w)
}

// Explain breaks down the composite score of one player.
func (s *Service) Explain(ctx context.Context, p model.Principal, eventID, playerID string, params map[string]string) (*types.Explanation, error) {
	const op = "service.explain"
	if err := requireUser(op, p); err != nil {
		return nil, err
	}
	if playerID == "" {
		return nil, apperr.Validation(op, "player_id is required")
	}
	_, tpl, err := s.eventTemplate(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	w, err := scoring.ParseWeights(params, tpl)
	if err != nil {
		return nil, err
	}
	return s.ranker.Explain(ctx, eventID, playerID, w)
}

// Schema describes the drills, default weights and age groups. With an
// event id it reflects that event's template and disabled drills.
func (s *Service) Schema(ctx context.Context, eventID, templateName string) (*types.Schema, error) {
	const op = "service.schema"
	var (
		tpl      *drills.Template
		disabled []string
		err      error
	)
	if eventID != "" {
		var e *model.Event
		if e, tpl, err = s.eventTemplate(ctx, op, eventID); err != nil {
			return nil, err
		}
		disabled = e.DisabledDrills
	} else {
		if templateName == "" {
			templateName = s.defaultTemplate
		}
		if tpl, err = s.template(op, templateName); err != nil {
			return nil, err
		}
	}

	out := &types.Schema{
		Template:       tpl.Name,
		Sport:          tpl.Sport,
		DefaultWeights: s.ranker.DefaultWeights(tpl),
		AgeGroupRanges: slices.Clone(agegroup.Ranges),
	}
	for _, d := range tpl.Drills {
		out.Drills = append(out.Drills, types.DrillSchema{
			Key:            d.Key,
			Label:          d.Label,
			Unit:           d.Unit,
			Min:            d.Min,
			Max:            d.Max,
			Direction:      string(d.Direction),
			InversionBound: d.InversionBound,
			DefaultWeight:  d.DefaultWeight,
			Enabled:        !slices.Contains(disabled, d.Key),
		})
	}
	return out, nil
}

// Templates lists the drill template names.
func (s *Service) Templates() []string {
	return s.catalog.Names()
}
