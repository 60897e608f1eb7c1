package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/adapters/docstore/docstoretest"
	"github.com/okian/combine/internal/adapters/docstore/pgstore"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("COMBINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COMBINE_TEST_POSTGRES_DSN not set")
	}
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		s, err := pgstore.Open(dsn)
		require.NoError(t, err)
		require.NoError(t, s.Truncate(context.Background()))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
