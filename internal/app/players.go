package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/okian/combine/internal/domain/agegroup"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/validation"
	"github.com/okian/combine/pkg/logger"
)

// CreatePlayer validates and writes one roster entry. Drill values given
// with the player are recorded as evaluations by the caller.
func (s *Service) CreatePlayer(ctx context.Context, p model.Principal, eventID string, fields map[string]string) (*model.Player, error) {
	const op = "service.create_player"
	if err := requireOrganizer(op, p); err != nil {
		return nil, err
	}
	e, tpl, err := s.eventTemplate(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	rec, err := s.validator.ValidatePlayer(ctx, eventID, tpl, fields, "")
	if err != nil {
		return nil, err
	}
	if rec.IDSource == validation.IDExplicit {
		if _, err := s.repo.GetPlayer(ctx, eventID, rec.Player.ID); err == nil {
			return nil, apperr.New(apperr.ErrConflict, op, "player id %s already exists", rec.Player.ID)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	player := rec.Player
	now := s.now()
	player.EventID = eventID
	player.CreatedAt, player.UpdatedAt = now, now
	if err := s.repo.CreatePlayer(ctx, &player); err != nil {
		return nil, err
	}

	if len(rec.Drills) > 0 {
		if err := s.recordDrills(ctx, e, p, []validation.PlayerRecord{rec}); err != nil {
			return nil, err
		}
		if fresh, err := s.repo.GetPlayer(ctx, eventID, player.ID); err == nil {
			player = *fresh
		}
	}
	s.logger.Info(ctx, "player created",
		logger.String("event_id", eventID),
		logger.String("player_id", player.ID),
		logger.String("id_source", rec.IDSource))
	return &player, nil
}

// UpdatePlayer applies an organizer edit. Only roster fields change: the
// id and the score snapshot are kept.
func (s *Service) UpdatePlayer(ctx context.Context, p model.Principal, eventID, playerID string, fields map[string]string) (*model.Player, error) {
	const op = "service.update_player"
	if err := requireOrganizer(op, p); err != nil {
		return nil, err
	}
	_, tpl, err := s.eventTemplate(ctx, op, eventID)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetPlayer(ctx, eventID, playerID)
	if err != nil {
		return nil, err
	}

	merged := playerFields(current)
	for k, v := range fields {
		canon, ok := validation.NormalizeHeader(k, tpl)
		if !ok {
			continue
		}
		if tpl.Has(canon) {
			return nil, apperr.Wrap(apperr.ErrValidation, op, ErrDrillField)
		}
		switch canon {
		case validation.ColID, validation.ColDeterministicID:
			continue
		case validation.ColFullName:
			delete(merged, validation.ColFirstName)
			delete(merged, validation.ColLastName)
		}
		merged[canon] = v
	}

	rec, err := s.validator.ValidatePlayer(ctx, eventID, tpl, merged, playerID)
	if err != nil {
		return nil, err
	}
	updated := rec.Player
	updated.ID = current.ID
	updated.EventID = eventID
	updated.Scores = current.Scores
	updated.CreatedAt = current.CreatedAt
	if err := s.repo.UpdatePlayer(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetPlayer returns one player with its score snapshot.
func (s *Service) GetPlayer(ctx context.Context, p model.Principal, eventID, playerID string) (*model.Player, error) {
	if err := requireUser("service.get_player", p); err != nil {
		return nil, err
	}
	return s.repo.GetPlayer(ctx, eventID, playerID)
}

// ListPlayers returns the roster, optionally narrowed to one age group.
func (s *Service) ListPlayers(ctx context.Context, p model.Principal, eventID, ageGroup string) ([]model.Player, error) {
	const op = "service.list_players"
	if err := requireUser(op, p); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if ageGroup == "" {
		return s.repo.ListPlayers(ctx, eventID)
	}
	canon, err := agegroup.Canonicalize(ageGroup)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, op, err)
	}
	return s.repo.ListPlayersByAgeGroup(ctx, eventID, canon)
}

func playerFields(pl *model.Player) map[string]string {
	f := map[string]string{
		validation.ColFirstName:  pl.FirstName,
		validation.ColLastName:   pl.LastName,
		validation.ColAgeGroup:   pl.AgeGroup,
		validation.ColExternalID: pl.ExternalID,
		validation.ColTeamName:   pl.TeamName,
		validation.ColPosition:   pl.Position,
		validation.ColNotes:      pl.Notes,
	}
	if pl.Number != nil {
		f[validation.ColJerseyNumber] = strconv.Itoa(*pl.Number)
	}
	return f
}
