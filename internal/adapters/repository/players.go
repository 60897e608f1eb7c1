package repository

import (
	"context"
	"fmt"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
)

func playerPath(eventID, playerID string) string {
	return docstore.Join(colEvents, eventID, colPlayers, playerID)
}

// CreatePlayer writes one player document.
func (r *Repository) CreatePlayer(ctx context.Context, p *model.Player) error {
	return r.set(ctx, "create player", playerPath(p.EventID, p.ID), p)
}

// CreatePlayers writes players in batches of at most the batch limit and
// returns how many were committed. Players carrying an id that already
// exists are overwritten except for their score snapshot.
func (r *Repository) CreatePlayers(ctx context.Context, eventID string, players []model.Player) (int, error) {
	const op = "create players"
	written := 0
	for start := 0; start < len(players); start += r.batchLimit {
		end := min(start+r.batchLimit, len(players))
		b := r.store.Batch()
		for i := start; i < end; i++ {
			p := players[i]
			p.EventID = eventID
			p.Scores = nil
			doc, err := docstore.Encode(p)
			if err != nil {
				return written, apperr.Wrap(apperr.ErrInternal, op, err)
			}
			b.Merge(playerPath(eventID, p.ID), doc)
		}
		if err := b.Commit(ctx); err != nil {
			return written, fmt.Errorf("%s: %w", op, err)
		}
		written = end
	}
	return written, nil
}

// GetPlayer returns one player.
func (r *Repository) GetPlayer(ctx context.Context, eventID, playerID string) (*model.Player, error) {
	var p model.Player
	if err := r.get(ctx, "get player", playerPath(eventID, playerID), &p, "player "+playerID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlayers returns the event roster ordered by id.
func (r *Repository) ListPlayers(ctx context.Context, eventID string) ([]model.Player, error) {
	docs, err := r.store.List(ctx, eventCol(eventID, colPlayers))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return decodeAll[model.Player]("list players", docs)
}

// ListPlayersByAgeGroup returns players whose canonical age group equals ageGroup.
func (r *Repository) ListPlayersByAgeGroup(ctx context.Context, eventID, ageGroup string) ([]model.Player, error) {
	docs, err := r.store.Query(ctx, eventCol(eventID, colPlayers), docstore.Eq("age_group", ageGroup))
	if err != nil {
		return nil, fmt.Errorf("list players by age group: %w", err)
	}
	return decodeAll[model.Player]("list players by age group", docs)
}

// UpdatePlayer writes the editable roster fields. The score snapshot is
// never touched.
func (r *Repository) UpdatePlayer(ctx context.Context, p *model.Player) error {
	const op = "update player"
	p.UpdatedAt = r.now()
	fields := docstore.Doc{
		"first_name":  p.FirstName,
		"last_name":   p.LastName,
		"name":        p.Name,
		"age_group":   p.AgeGroup,
		"position":    p.Position,
		"team_name":   p.TeamName,
		"notes":       p.Notes,
		"external_id": p.ExternalID,
		"updated_at":  p.UpdatedAt,
	}
	if p.Number != nil {
		fields["number"] = *p.Number
	} else {
		fields["number"] = docstore.DeleteField
	}
	if err := r.store.Merge(ctx, playerPath(p.EventID, p.ID), fields); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetPlayerScore writes scores.<drill> on the player snapshot.
func (r *Repository) SetPlayerScore(ctx context.Context, eventID, playerID, drill string, score float64) error {
	err := r.store.Merge(ctx, playerPath(eventID, playerID), docstore.Doc{
		"scores." + drill: score,
		"updated_at":      r.now(),
	})
	if err != nil {
		return fmt.Errorf("set player score: %w", err)
	}
	return nil
}
