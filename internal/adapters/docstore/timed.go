package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/pkg/metrics"
)

// Timeouts bounds each class of store call.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Bulk  time.Duration
}

// DefaultTimeouts are used for zero fields.
var DefaultTimeouts = Timeouts{
	Read:  3 * time.Second,
	Write: 5 * time.Second,
	Bulk:  15 * time.Second,
}

// TimedStore decorates a Store with per-call deadlines, metrics and spans.
// A call that runs past its deadline fails with apperr.ErrTimeout.
type TimedStore struct {
	next     Store
	timeouts Timeouts
	tracer   trace.Tracer
}

// Timed wraps next.
func Timed(next Store, t Timeouts) *TimedStore {
	if t.Read <= 0 {
		t.Read = DefaultTimeouts.Read
	}
	if t.Write <= 0 {
		t.Write = DefaultTimeouts.Write
	}
	if t.Bulk <= 0 {
		t.Bulk = DefaultTimeouts.Bulk
	}
	return &TimedStore{next: next, timeouts: t, tracer: otel.Tracer("combine/docstore")}
}

// Unwrap returns the decorated store.
func (s *TimedStore) Unwrap() Store { return s.next }

func (s *TimedStore) call(ctx context.Context, op, path string, budget time.Duration, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "docstore."+op, trace.WithAttributes(
		attribute.String("docstore.path", path),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.RecordStoreOp(op, float64(time.Since(start).Microseconds())/1000)

	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.RecordStoreTimeout(op)
			return apperr.Wrap(apperr.ErrTimeout, "docstore."+op,
				fmt.Errorf("%s exceeded %s: %w", path, budget, err))
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	metrics.RecordStoreError(op)
	return err
}

// Get implements Store.
func (s *TimedStore) Get(ctx context.Context, path string) (Doc, error) {
	var doc Doc
	err := s.call(ctx, "get", path, s.timeouts.Read, func(ctx context.Context) error {
		var err error
		doc, err = s.next.Get(ctx, path)
		return err
	})
	return doc, err
}

// Set implements Store.
func (s *TimedStore) Set(ctx context.Context, path string, doc Doc) error {
	return s.call(ctx, "set", path, s.timeouts.Write, func(ctx context.Context) error {
		return s.next.Set(ctx, path, doc)
	})
}

// Merge implements Store.
func (s *TimedStore) Merge(ctx context.Context, path string, fields Doc) error {
	return s.call(ctx, "merge", path, s.timeouts.Write, func(ctx context.Context) error {
		return s.next.Merge(ctx, path, fields)
	})
}

// Delete implements Store.
func (s *TimedStore) Delete(ctx context.Context, path string) error {
	return s.call(ctx, "delete", path, s.timeouts.Write, func(ctx context.Context) error {
		return s.next.Delete(ctx, path)
	})
}

// List implements Store.
func (s *TimedStore) List(ctx context.Context, collection string) ([]Doc, error) {
	var docs []Doc
	err := s.call(ctx, "list", collection, s.timeouts.Read, func(ctx context.Context) error {
		var err error
		docs, err = s.next.List(ctx, collection)
		return err
	})
	return docs, err
}

// Query implements Store.
func (s *TimedStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Doc, error) {
	var docs []Doc
	err := s.call(ctx, "query", collection, s.timeouts.Read, func(ctx context.Context) error {
		var err error
		docs, err = s.next.Query(ctx, collection, filters...)
		return err
	})
	return docs, err
}

// Batch implements Store. Commits run under the bulk budget.
func (s *TimedStore) Batch() Batch {
	inner := s.next.Batch()
	return &timedBatch{Batch: inner, store: s}
}

// Ping implements Store.
func (s *TimedStore) Ping(ctx context.Context) error {
	return s.call(ctx, "ping", "", s.timeouts.Read, s.next.Ping)
}

// Close implements Store.
func (s *TimedStore) Close() error { return s.next.Close() }

type timedBatch struct {
	Batch
	store *TimedStore
}

func (b *timedBatch) Commit(ctx context.Context) error {
	return b.store.call(ctx, "commit", fmt.Sprintf("batch(%d)", b.Len()), b.store.timeouts.Bulk, b.Batch.Commit)
}
