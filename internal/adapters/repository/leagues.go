package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
)

// userLeague is the users/{user}/leagues/{league} index entry.
type userLeague struct {
	LeagueID string `json:"league_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// GetUser returns the profile at users/{id}.
func (r *Repository) GetUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	var u model.UserProfile
	if err := r.get(ctx, "get user", docstore.Join(colUsers, userID), &u, "user "+userID); err != nil {
		return nil, err
	}
	return &u, nil
}

// PutUser replaces a profile.
func (r *Repository) PutUser(ctx context.Context, u *model.UserProfile) error {
	return r.set(ctx, "put user", docstore.Join(colUsers, u.ID), u)
}

// CreateLeague writes the league and the owner's membership together.
func (r *Repository) CreateLeague(ctx context.Context, l *model.League, ownerRole string) error {
	const op = "create league"
	leagueDoc, err := docstore.Encode(l)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	m := model.Membership{LeagueID: l.ID, UserID: l.CreatedBy, Role: ownerRole, JoinedAt: l.CreatedAt}
	memberDoc, err := docstore.Encode(m)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	indexDoc, err := docstore.Encode(userLeague{LeagueID: l.ID, Name: l.Name, Role: ownerRole})
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	b := r.store.Batch()
	b.Set(docstore.Join(colLeagues, l.ID), leagueDoc)
	b.Set(docstore.Join(colLeagues, l.ID, colMembers, l.CreatedBy), memberDoc)
	b.Set(docstore.Join(colUsers, l.CreatedBy, colLeagues, l.ID), indexDoc)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetLeague returns leagues/{id}.
func (r *Repository) GetLeague(ctx context.Context, leagueID string) (*model.League, error) {
	var l model.League
	if err := r.get(ctx, "get league", docstore.Join(colLeagues, leagueID), &l, "league "+leagueID); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetMembership returns the membership of userID in leagueID.
func (r *Repository) GetMembership(ctx context.Context, leagueID, userID string) (*model.Membership, error) {
	var m model.Membership
	path := docstore.Join(colLeagues, leagueID, colMembers, userID)
	if err := r.get(ctx, "get membership", path, &m, "membership"); err != nil {
		return nil, err
	}
	return &m, nil
}

// JoinLeague writes the membership and the user's league index entry
// together. Joining twice returns ErrAlreadyMember wrapped as a conflict.
func (r *Repository) JoinLeague(ctx context.Context, leagueID, userID, role string) (*model.Membership, error) {
	const op = "join league"
	l, err := r.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if _, err := r.GetMembership(ctx, leagueID, userID); err == nil {
		return nil, apperr.Wrap(apperr.ErrConflict, op, ErrAlreadyMember)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	m := &model.Membership{LeagueID: leagueID, UserID: userID, Role: role, JoinedAt: r.now()}
	memberDoc, err := docstore.Encode(m)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, op, err)
	}
	indexDoc, err := docstore.Encode(userLeague{LeagueID: leagueID, Name: l.Name, Role: role})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, op, err)
	}
	b := r.store.Batch()
	b.Set(docstore.Join(colLeagues, leagueID, colMembers, userID), memberDoc)
	b.Set(docstore.Join(colUsers, userID, colLeagues, leagueID), indexDoc)
	if err := b.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// ListLeaguesForUser resolves the user's league index against leagues/.
// Index entries whose league is gone are skipped.
func (r *Repository) ListLeaguesForUser(ctx context.Context, userID string) ([]model.League, error) {
	const op = "list leagues"
	docs, err := r.store.List(ctx, docstore.Join(colUsers, userID, colLeagues))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refs, err := decodeAll[userLeague](op, docs)
	if err != nil {
		return nil, err
	}
	out := make([]model.League, 0, len(refs))
	for _, ref := range refs {
		l, err := r.GetLeague(ctx, ref.LeagueID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}
