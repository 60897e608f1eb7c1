package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/adapters/docstore/docstoretest"
	"github.com/okian/combine/internal/domain/apperr"
)

func TestMemoryStore(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		return docstore.NewMemoryStore()
	})
}

func TestTimedMemoryStore(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		return docstore.Timed(docstore.NewMemoryStore(), docstore.Timeouts{})
	})
}

func TestTimedStoreTimeout(t *testing.T) {
	slow := docstore.NewMemoryStore(docstore.WithLatency(200 * time.Millisecond))
	s := docstore.Timed(slow, docstore.Timeouts{Read: 20 * time.Millisecond, Write: 20 * time.Millisecond, Bulk: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := s.Get(ctx, "events/e1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTimeout))
	assert.Equal(t, 504, apperr.HTTPStatus(err))

	b := s.Batch()
	b.Set("events/e1", docstore.Doc{"x": 1})
	assert.True(t, errors.Is(b.Commit(ctx), apperr.ErrTimeout))
}

func TestTimedStoreCallerCancel(t *testing.T) {
	slow := docstore.NewMemoryStore(docstore.WithLatency(200 * time.Millisecond))
	s := docstore.Timed(slow, docstore.Timeouts{Read: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "events/e1")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, apperr.ErrTimeout))
}

func TestTimedStoreNotFoundPassesThrough(t *testing.T) {
	s := docstore.Timed(docstore.NewMemoryStore(), docstore.Timeouts{})
	_, err := s.Get(context.Background(), "events/none")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestApplyMerge(t *testing.T) {
	doc := docstore.ApplyMerge(nil, docstore.Doc{"a.b.c": 1, "x": "y"})
	a := doc["a"].(map[string]any)
	b := a["b"].(map[string]any)
	assert.Equal(t, 1, b["c"])
	assert.Equal(t, "y", doc["x"])

	docstore.ApplyMerge(doc, docstore.Doc{"missing.path": docstore.DeleteField})
	assert.NotContains(t, doc, "missing")
}

func TestPaths(t *testing.T) {
	col, id, err := docstore.SplitDoc("events/e1/players/p1")
	require.NoError(t, err)
	assert.Equal(t, "events/e1/players", col)
	assert.Equal(t, "p1", id)

	_, _, err = docstore.SplitDoc("events//p1/x")
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
	assert.NoError(t, docstore.CheckCollection("events/e1/players"))
	assert.Equal(t, "events/e1", docstore.Join("events", "e1"))
}

func TestEncodeDecode(t *testing.T) {
	type sample struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	doc, err := docstore.Encode(sample{Name: "a", Score: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, doc["score"])

	var out sample
	require.NoError(t, docstore.Decode(doc, &out))
	assert.Equal(t, "a", out.Name)
}
