package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
)

// CreateLeague creates a league owned by the caller.
func (s *Service) CreateLeague(ctx context.Context, p model.Principal, name string) (*model.League, error) {
	const op = "service.create_league"
	if err := requireOrganizer(op, p); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, apperr.Validation(op, "name must be 1 to 100 characters")
	}
	s.ensureProfile(ctx, p)

	l := &model.League{
		ID:        s.newID(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedBy: p.UserID,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateLeague(ctx, l, p.Role); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "league created",
		logger.String("league_id", l.ID),
		logger.String("user_id", p.UserID))
	return l, nil
}

// JoinLeague adds the caller to a league with their current role.
func (s *Service) JoinLeague(ctx context.Context, p model.Principal, leagueID string) (*model.Membership, error) {
	const op = "service.join_league"
	if err := requireUser(op, p); err != nil {
		return nil, err
	}
	if !p.EmailVerified {
		return nil, apperr.Forbidden(op, "email address is not verified")
	}
	if _, err := s.repo.GetLeague(ctx, leagueID); err != nil {
		return nil, err
	}
	s.ensureProfile(ctx, p)
	role := p.Role
	if role == "" {
		role = model.RoleViewer
	}
	return s.repo.JoinLeague(ctx, leagueID, p.UserID, role)
}

// ListLeagues returns the leagues the caller belongs to.
func (s *Service) ListLeagues(ctx context.Context, p model.Principal) ([]model.League, error) {
	if err := requireUser("service.list_leagues", p); err != nil {
		return nil, err
	}
	return s.repo.ListLeaguesForUser(ctx, p.UserID)
}

// requireMember checks that the caller belongs to leagueID.
func (s *Service) requireMember(ctx context.Context, op, leagueID string, p model.Principal) error {
	_, err := s.repo.GetMembership(ctx, leagueID, p.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrForbidden, op, ErrNotMember)
	}
	return err
}

// ensureProfile writes users/{uid} the first time a principal is seen.
func (s *Service) ensureProfile(ctx context.Context, p model.Principal) {
	_, err := s.profiles.Get(ctx, p.UserID)
	if err == nil {
		return
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn(ctx, "profile lookup failed", logger.String("user_id", p.UserID), logger.Error(err))
		return
	}
	profile := &model.UserProfile{
		ID:            p.UserID,
		Email:         p.Email,
		Name:          p.Name,
		Role:          p.Role,
		EmailVerified: p.EmailVerified,
		CreatedAt:     s.now(),
	}
	if err := s.repo.PutUser(ctx, profile); err != nil {
		s.logger.Warn(ctx, "profile write failed", logger.String("user_id", p.UserID), logger.Error(err))
		return
	}
	s.profiles.Invalidate(p.UserID)
}
