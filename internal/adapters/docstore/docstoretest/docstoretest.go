// Package docstoretest holds the behaviour every docstore backend must
// share, run by each backend's tests.
package docstoretest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/combine/internal/adapters/docstore"
)

// Run exercises a fresh store from newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "events/none")
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/e1", docstore.Doc{"name": "Spring", "count": 3}))
		doc, err := s.Get(ctx, "events/e1")
		require.NoError(t, err)
		assert.Equal(t, "Spring", doc["name"])
		assert.Equal(t, float64(3), doc["count"])
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/e1", docstore.Doc{"a": 1, "b": 2}))
		require.NoError(t, s.Set(ctx, "events/e1", docstore.Doc{"a": 5}))
		doc, err := s.Get(ctx, "events/e1")
		require.NoError(t, err)
		assert.NotContains(t, doc, "b")
	})

	t.Run("merge nested fields", func(t *testing.T) {
		s := newStore(t)
		path := "events/e1/players/p1"
		require.NoError(t, s.Set(ctx, path, docstore.Doc{"name": "Ana", "scores": map[string]any{"agility": 50}}))
		require.NoError(t, s.Merge(ctx, path, docstore.Doc{"scores.catching": 80.5}))
		require.NoError(t, s.Merge(ctx, path, docstore.Doc{"scores.agility": docstore.DeleteField}))
		doc, err := s.Get(ctx, path)
		require.NoError(t, err)
		scores, ok := doc["scores"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 80.5, scores["catching"])
		assert.NotContains(t, scores, "agility")
		assert.Equal(t, "Ana", doc["name"])
	})

	t.Run("merge creates", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Merge(ctx, "users/u1", docstore.Doc{"role": "coach"}))
		doc, err := s.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, "coach", doc["role"])
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/e1", docstore.Doc{"x": 1}))
		require.NoError(t, s.Delete(ctx, "events/e1"))
		require.NoError(t, s.Delete(ctx, "events/e1"))
		_, err := s.Get(ctx, "events/e1")
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("list and query in id order", func(t *testing.T) {
		s := newStore(t)
		col := "events/e1/players"
		for i, age := range []string{"U12", "U10", "U12"} {
			require.NoError(t, s.Set(ctx, fmt.Sprintf("%s/p%d", col, 3-i), docstore.Doc{"id": fmt.Sprintf("p%d", 3-i), "age_group": age}))
		}
		require.NoError(t, s.Set(ctx, "events/e2/players/p9", docstore.Doc{"age_group": "U12"}))

		all, err := s.List(ctx, col)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "p1", all[0]["id"])

		u12, err := s.Query(ctx, col, docstore.Eq("age_group", "U12"))
		require.NoError(t, err)
		require.Len(t, u12, 2)
		assert.Equal(t, "p1", u12[0]["id"])
		assert.Equal(t, "p3", u12[1]["id"])

		none, err := s.Query(ctx, "events/e3/players")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("query on booleans", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "events/a", docstore.Doc{"live_entry_active": true}))
		require.NoError(t, s.Set(ctx, "events/b", docstore.Doc{"live_entry_active": false}))
		live, err := s.Query(ctx, "events", docstore.Eq("live_entry_active", true))
		require.NoError(t, err)
		assert.Len(t, live, 1)
	})

	t.Run("batch commits together", func(t *testing.T) {
		s := newStore(t)
		b := s.Batch()
		b.Set("leagues/l1", docstore.Doc{"name": "North"})
		b.Set("leagues/l1/members/u1", docstore.Doc{"role": "organizer"})
		b.Merge("leagues/l1", docstore.Doc{"slug": "north"})
		require.Equal(t, 3, b.Len())
		require.NoError(t, b.Commit(ctx))

		doc, err := s.Get(ctx, "leagues/l1")
		require.NoError(t, err)
		assert.Equal(t, "north", doc["slug"])
		assert.Equal(t, "North", doc["name"])
		_, err = s.Get(ctx, "leagues/l1/members/u1")
		require.NoError(t, err)
	})

	t.Run("invalid batch leaves no trace", func(t *testing.T) {
		s := newStore(t)
		b := s.Batch()
		b.Set("leagues/l1", docstore.Doc{"name": "North"})
		b.Set("leagues", docstore.Doc{"bad": true})
		err := b.Commit(ctx)
		require.ErrorIs(t, err, docstore.ErrInvalidPath)
		_, err = s.Get(ctx, "leagues/l1")
		require.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("oversized batch is refused", func(t *testing.T) {
		s := newStore(t)
		b := s.Batch()
		for i := 0; i <= docstore.MaxBatchSize; i++ {
			b.Delete(fmt.Sprintf("events/e%d", i))
		}
		err := b.Commit(ctx)
		require.True(t, errors.Is(err, docstore.ErrBatchTooLarge))
	})

	t.Run("invalid paths", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "events")
		require.ErrorIs(t, err, docstore.ErrInvalidPath)
		_, err = s.List(ctx, "events/e1")
		require.ErrorIs(t, err, docstore.ErrInvalidPath)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
