// Package repository maps the combine entities onto document store paths.
//
// Layout:
//
//	users/{user}                      profile
//	users/{user}/leagues/{league}     league membership index
//	leagues/{league}                  league
//	leagues/{league}/members/{user}   membership
//	leagues/{league}/events/{event}   event index entry
//	events/{event}                    event (authoritative)
//	events/{event}/players/{player}
//	events/{event}/drill_evaluations/{evaluation}
//	events/{event}/aggregated_drill_results/{player}_{drill}
//	events/{event}/evaluators/{user}
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/pkg/logger"
)

// Collection names.
const (
	colUsers       = "users"
	colLeagues     = "leagues"
	colMembers     = "members"
	colEvents      = "events"
	colPlayers     = "players"
	colEvaluations = "drill_evaluations"
	colSummaries   = "aggregated_drill_results"
	colEvaluators  = "evaluators"
)

// Repository is the typed access layer over a docstore.Store.
type Repository struct {
	store      docstore.Store
	batchLimit int
	log        logger.Logger
	now        func() time.Time
}

// New creates a Repository.
func New(store docstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store:      store,
		batchLimit: DefaultBatchLimit,
		log:        logger.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.batchLimit > docstore.MaxBatchSize {
		r.batchLimit = docstore.MaxBatchSize
	}
	return r
}

// Ping checks the store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Now returns the repository clock.
func (r *Repository) Now() time.Time { return r.now() }

func eventPath(eventID string) string { return docstore.Join(colEvents, eventID) }

func eventCol(eventID, col string) string { return docstore.Join(colEvents, eventID, col) }

func (r *Repository) get(ctx context.Context, op, path string, v any, what string) error {
	doc, err := r.store.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFound(op, "%s not found", what)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := docstore.Decode(doc, v); err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	return nil
}

func (r *Repository) set(ctx context.Context, op, path string, v any) error {
	doc, err := docstore.Encode(v)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, op, err)
	}
	if err := r.store.Set(ctx, path, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// decodeAll decodes docs into a slice of T.
func decodeAll[T any](op string, docs []docstore.Doc) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := docstore.Decode(d, &v); err != nil {
			return nil, apperr.Wrap(apperr.ErrInternal, op, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// commitChunks runs paths through fn in batches of at most batchLimit
// writes. Chunks already committed stay committed when a later one fails.
func (r *Repository) commitChunks(ctx context.Context, paths []string, fn func(b docstore.Batch, path string)) (int, error) {
	done := 0
	for start := 0; start < len(paths); start += r.batchLimit {
		end := min(start+r.batchLimit, len(paths))
		b := r.store.Batch()
		for _, p := range paths[start:end] {
			fn(b, p)
		}
		if err := b.Commit(ctx); err != nil {
			return done, err
		}
		done = end
	}
	return done, nil
}
