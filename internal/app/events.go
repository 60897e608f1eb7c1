package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/okian/combine/internal/adapters/repository"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
)

const eventDateLayout = "2006-01-02"

// EventInput is the body of an event creation.
type EventInput struct {
	LeagueID       string   `json:"league_id" validate:"required"`
	Name           string   `json:"name" validate:"required,max=120"`
	Date           string   `json:"date,omitempty"`
	Location       string   `json:"location,omitempty" validate:"omitempty,max=200"`
	DrillTemplate  string   `json:"drill_template,omitempty"`
	DisabledDrills []string `json:"disabled_drills,omitempty"`
}

// EventPatch carries optional event changes. Nil fields are left alone.
type EventPatch struct {
	Name           *string   `json:"name,omitempty"`
	Date           *string   `json:"date,omitempty"`
	Location       *string   `json:"location,omitempty"`
	DrillTemplate  *string   `json:"drill_template,omitempty"`
	DisabledDrills *[]string `json:"disabled_drills,omitempty"`
}

// CreateEvent creates an event inside a league the caller belongs to.
func (s *Service) CreateEvent(ctx context.Context, p model.Principal, in EventInput) (*model.Event, error) {
	const op = "service.create_event"
	if err := requireOrganizer(op, p); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation(op, "name is required")
	}
	if _, err := s.repo.GetLeague(ctx, in.LeagueID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, op, in.LeagueID, p); err != nil {
		return nil, err
	}
	if in.DrillTemplate == "" {
		in.DrillTemplate = s.defaultTemplate
	}
	tpl, err := s.template(op, in.DrillTemplate)
	if err != nil {
		return nil, err
	}
	if err := checkDate(op, in.Date); err != nil {
		return nil, err
	}
	disabled, err := checkDisabled(op, tpl, in.DisabledDrills)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &model.Event{
		ID:             s.newID(),
		LeagueID:       in.LeagueID,
		Name:           in.Name,
		Slug:           slug.Make(in.Name),
		Date:           in.Date,
		Location:       strings.TrimSpace(in.Location),
		DrillTemplate:  tpl.Name,
		DisabledDrills: disabled,
		CreatedBy:      p.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "event created",
		logger.String("event_id", e.ID),
		logger.String("league_id", e.LeagueID),
		logger.String("template", e.DrillTemplate))
	return e, nil
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, p model.Principal, eventID string) (*model.Event, error) {
	if err := requireUser("service.get_event", p); err != nil {
		return nil, err
	}
	return s.repo.GetEvent(ctx, eventID)
}

// ListEvents returns the events of a league.
func (s *Service) ListEvents(ctx context.Context, p model.Principal, leagueID string) ([]model.Event, error) {
	if err := requireUser("service.list_events", p); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetLeague(ctx, leagueID); err != nil {
		return nil, err
	}
	return s.repo.ListEventsByLeague(ctx, leagueID)
}

// UpdateEvent applies patch. The drill template cannot change once live
// entry has started.
func (s *Service) UpdateEvent(ctx context.Context, p model.Principal, eventID string, patch EventPatch) (*model.Event, error) {
	const op = "service.update_event"
	if err := requireOrganizer(op, p); err != nil {
		return nil, err
	}
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, op, e.LeagueID, p); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation(op, "name cannot be empty")
		}
		e.Name, e.Slug = name, slug.Make(name)
	}
	if patch.Date != nil {
		if err := checkDate(op, *patch.Date); err != nil {
			return nil, err
		}
		e.Date = *patch.Date
	}
	if patch.Location != nil {
		e.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.DrillTemplate != nil && *patch.DrillTemplate != e.DrillTemplate {
		if e.LiveEntryActive {
			return nil, apperr.Wrap(apperr.ErrConflict, op, ErrLiveTemplate)
		}
		tpl, err := s.template(op, *patch.DrillTemplate)
		if err != nil {
			return nil, err
		}
		e.DrillTemplate = tpl.Name
	}
	tpl, err := s.template(op, e.DrillTemplate)
	if err != nil {
		return nil, err
	}
	if patch.DisabledDrills != nil {
		e.DisabledDrills = *patch.DisabledDrills
	}
	if e.DisabledDrills, err = checkDisabled(op, tpl, e.DisabledDrills); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent removes an event and everything under it.
func (s *Service) DeleteEvent(ctx context.Context, p model.Principal, eventID string) (repository.DeleteReport, error) {
	const op = "service.delete_event"
	if err := requireOrganizer(op, p); err != nil {
		return repository.DeleteReport{}, err
	}
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return repository.DeleteReport{}, err
	}
	if err := s.requireMember(ctx, op, e.LeagueID, p); err != nil {
		return repository.DeleteReport{}, err
	}
	report, err := s.repo.DeleteEvent(ctx, eventID)
	if err != nil {
		return report, err
	}
	s.aggregator.Forget(eventID)
	return report, nil
}

// eventTemplate loads an event and its drill template.
func (s *Service) eventTemplate(ctx context.Context, op, eventID string) (*model.Event, *drills.Template, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	tpl, err := s.template(op, e.DrillTemplate)
	if err != nil {
		return nil, nil, err
	}
	return e, tpl, nil
}

func (s *Service) template(op, name string) (*drills.Template, error) {
	tpl, err := s.catalog.Template(name)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, op, err)
	}
	return tpl, nil
}

func checkDate(op, date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(eventDateLayout, date); err != nil {
		return apperr.Validation(op, "date must be YYYY-MM-DD")
	}
	return nil
}

func checkDisabled(op string, tpl *drills.Template, disabled []string) ([]string, error) {
	out := make([]string, 0, len(disabled))
	for _, key := range disabled {
		key = strings.TrimSpace(key)
		if !tpl.Has(key) {
			return nil, apperr.Validation(op, "unknown drill %q in disabled_drills", key)
		}
		if !slices.Contains(out, key) {
			out = append(out, key)
		}
	}
	if len(out) == len(tpl.Drills) {
		return nil, apperr.Validation(op, "at least one drill must stay enabled")
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
