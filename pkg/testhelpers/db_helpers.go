package testhelpers

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"launchpad/pkg/db"
	"launchpad/pkg/docstore"
)

var uniqueCounter int64

func nextSuffix() int64 {
	return atomic.AddInt64(&uniqueCounter, 1)
}

// NewPostgresStore connects to DATABASE_URL_FOR_TEST, applies the embedded
// schema and empties the documents table before and after the test. Skips
// when the variable is unset.
func NewPostgresStore(t *testing.T) docstore.Store {
	t.Helper()
	if err := godotenv.Load(); err != nil {
		t.Log("No .env file found, using environment variables")
	}
	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping integration tests")
	}

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.ApplySchema(ctx, pool, ""))

	truncate := func() {
		_, err := pool.Exec(context.Background(), "TRUNCATE documents")
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		pool.Close()
	})
	return docstore.NewPostgresStore(pool, zaptest.NewLogger(t))
}

// CreateTestUser writes a minimal startup profile and returns its id.
func CreateTestUser(t *testing.T, store docstore.Store) string {
	t.Helper()

	id := uuid.NewString()
	email := fmt.Sprintf("test-user-%d@example.com", nextSuffix())
	err := store.SetDoc(context.Background(), "users", id, map[string]any{
		"email":   email,
		"accType": "startup",
	})
	require.NoError(t, err)
	return id
}
