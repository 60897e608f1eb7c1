package repository

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
)

// DeleteReport counts the documents removed by DeleteEvent.
type DeleteReport struct {
	Evaluations int `json:"evaluations"`
	Summaries   int `json:"summaries"`
	Evaluators  int `json:"evaluators"`
	Players     int `json:"players"`
}

// Total is the number of subcollection documents removed.
func (d DeleteReport) Total() int {
	return d.Evaluations + d.Summaries + d.Evaluators + d.Players
}

func leagueEventPath(leagueID, eventID string) string {
	return docstore.Join(colLeagues, leagueID, colEvents, eventID)
}

func eventRefDoc(e *model.Event) (docstore.Doc, error) {
	return docstore.Encode(model.EventRef{EventID: e.ID, LeagueID: e.LeagueID, Name: e.Name, Date: e.Date})
}

// CreateEvent writes events/{id} and the league index entry in one batch.
func (r *Repository) CreateEvent(ctx context.Context, e *model.Event) error {
	const op = "create event"
	doc, err := docstore.Encode(e)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	ref, err := eventRefDoc(e)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	b := r.store.Batch()
	b.Set(eventPath(e.ID), doc)
	b.Set(leagueEventPath(e.LeagueID, e.ID), ref)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetEvent returns events/{id}.
func (r *Repository) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	var e model.Event
	if err := r.get(ctx, "get event", eventPath(eventID), &e, "event "+eventID); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEvent replaces the event and refreshes its league index entry.
func (r *Repository) UpdateEvent(ctx context.Context, e *model.Event) error {
	const op = "update event"
	e.UpdatedAt = r.now()
	doc, err := docstore.Encode(e)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	ref, err := eventRefDoc(e)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	b := r.store.Batch()
	b.Set(eventPath(e.ID), doc)
	b.Set(leagueEventPath(e.LeagueID, e.ID), ref)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListEventsByLeague reads the league index and returns the authoritative
// event documents. Index entries without an event are skipped.
func (r *Repository) ListEventsByLeague(ctx context.Context, leagueID string) ([]model.Event, error) {
	const op = "list events"
	docs, err := r.store.List(ctx, docstore.Join(colLeagues, leagueID, colEvents))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refs, err := decodeAll[model.EventRef](op, docs)
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(refs))
	for _, ref := range refs {
		e, err := r.GetEvent(ctx, ref.EventID)
		if errors.Is(err, apperr.ErrNotFound) {
			r.log.Warn(ctx, "league index points at missing event",
				logger.String("league_id", leagueID), logger.String("event_id", ref.EventID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// ListEvents returns every event.
func (r *Repository) ListEvents(ctx context.Context) ([]model.Event, error) {
	docs, err := r.store.List(ctx, colEvents)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return decodeAll[model.Event]("list events", docs)
}

// ListLiveEvents returns events with live entry active.
func (r *Repository) ListLiveEvents(ctx context.Context) ([]model.Event, error) {
	docs, err := r.store.Query(ctx, colEvents, docstore.Eq("live_entry_active", true))
	if err != nil {
		return nil, fmt.Errorf("list live events: %w", err)
	}
	return decodeAll[model.Event]("list live events", docs)
}

// MarkEventLive sets live_entry_active and reports whether it changed.
func (r *Repository) MarkEventLive(ctx context.Context, eventID string) (bool, error) {
	e, err := r.GetEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if e.LiveEntryActive {
		return false, nil
	}
	err = r.store.Merge(ctx, eventPath(eventID), docstore.Doc{
		"live_entry_active": true,
		"updated_at":        r.now(),
	})
	if err != nil {
		return false, fmt.Errorf("mark event live: %w", err)
	}
	return true, nil
}

// DeleteEvent removes the event, its subcollections and its league index
// entry. Subcollections are enumerated concurrently and deleted in chunks
// of at most the batch limit; the event document goes last so a failed
// cascade can be retried.
func (r *Repository) DeleteEvent(ctx context.Context, eventID string) (DeleteReport, error) {
	const op = "delete event"
	var report DeleteReport
	e, err := r.GetEvent(ctx, eventID)
	if err != nil {
		return report, err
	}

	cols := []string{colEvaluations, colSummaries, colEvaluators, colPlayers}
	paths := make([][]string, len(cols))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range cols {
		g.Go(func() error {
			collection := eventCol(eventID, col)
			docs, err := r.store.List(gctx, collection)
			if err != nil {
				return fmt.Errorf("enumerate %s: %w", col, err)
			}
			ids := make([]string, 0, len(docs))
			for _, d := range docs {
				if id, ok := d["id"].(string); ok && id != "" {
					ids = append(ids, docstore.Join(collection, id))
				}
			}
			paths[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}

	counts := []*int{&report.Evaluations, &report.Summaries, &report.Evaluators, &report.Players}
	for i, ps := range paths {
		n, err := r.commitChunks(ctx, ps, func(b docstore.Batch, p string) { b.Delete(p) })
		*counts[i] = n
		if err != nil {
			return report, fmt.Errorf("%s: %s: %w", op, cols[i], err)
		}
	}

	b := r.store.Batch()
	b.Delete(eventPath(eventID))
	b.Delete(leagueEventPath(e.LeagueID, eventID))
	if err := b.Commit(ctx); err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}
	r.log.Info(ctx, "event deleted",
		logger.String("event_id", eventID),
		logger.Int("documents", report.Total()))
	return report, nil
}
