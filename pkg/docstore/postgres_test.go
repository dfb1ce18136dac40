package docstore

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping postgres store tests")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../db/schema.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	runStoreSuite(t, NewPostgresStore(pool, zaptest.NewLogger(t)))
}

func TestBuildQuery(t *testing.T) {
	sql, args, err := buildQuery(Query{
		Collection: "users",
		Where:      []Filter{{Field: "accType", Value: "mentor"}},
		OrderBy:    "revenue",
		Desc:       true,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Equal(t, "SELECT id, data FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY data->$3 DESC, id DESC LIMIT $4", sql)
	require.Equal(t, []any{"users", `{"accType":"mentor"}`, "revenue", 5}, args)

	_, _, err = buildQuery(Query{})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	require.Nil(t, classify(nil))
	require.ErrorIs(t, classify(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}), ErrRemoteUnavailable)

	plain := errors.New("syntax error")
	err := classify(plain)
	require.ErrorIs(t, err, plain)
	require.NotErrorIs(t, err, ErrRemoteUnavailable)

	wrapped := classify(ErrNotFound)
	require.Equal(t, ErrNotFound, wrapped)
}
