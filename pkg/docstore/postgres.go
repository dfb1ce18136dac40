package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NotifyChannel is the LISTEN channel the documents trigger publishes the
// changed collection name on. See pkg/db/schema.sql.
const NotifyChannel = "docstore_changes"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps every collection in the single documents table.
type PostgresStore struct {
	pgOps
	pool   *pgxpool.Pool
	hub    *changeHub
	logger *zap.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PostgresStore{pgOps: pgOps{q: pool}, pool: pool, logger: logger}
	s.hub = newChangeHub(s.listen, logger)
	return s
}

// listen takes one connection out of the pool for the change hub. It is
// closed by the hub, never returned.
func (s *PostgresStore) listen(ctx context.Context) (notificationConn, error) {
	if s.pool == nil {
		return nil, errors.New("db pool is nil")
	}
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if _, err := pooled.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		pooled.Release()
		return nil, classify(err)
	}
	return pooled.Hijack(), nil
}

// UpdateDoc reads and rewrites the body under a row lock, so it always runs
// in its own transaction.
func (s *PostgresStore) UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) error {
	return s.RunInTx(ctx, func(tx Tx) error {
		return tx.UpdateDoc(ctx, collection, id, patch)
	})
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if s.pool == nil {
		return errors.New("db pool is nil")
	}
	var fnErr error
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		fnErr = fn(pgOps{q: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return classify(err)
}

func (s *PostgresStore) ListCollection(ctx context.Context, collection string) ([]Document, error) {
	return s.Query(ctx, Query{Collection: collection})
}

func (s *PostgresStore) QueryRange(ctx context.Context, collection, field, lo, hi string) ([]Document, error) {
	const querySQL = `
		SELECT id, data
		FROM documents
		WHERE collection = $1
		  AND (data->>$2) COLLATE "C" >= $3
		  AND (data->>$2) COLLATE "C" <= $4
		ORDER BY (data->>$2) COLLATE "C", id
	`
	rows, err := s.pool.Query(ctx, querySQL, collection, field, lo, hi)
	if err != nil {
		return nil, classify(err)
	}
	return collectDocuments(collection, rows)
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Document, error) {
	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	return collectDocuments(q.Collection, rows)
}

// Subscribe re-runs q after every change to q.Collection. All subscriptions
// of the store share a single LISTEN connection; the re-queries go through
// the pool.
func (s *PostgresStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if _, _, err := buildQuery(q); err != nil {
		return nil, err
	}
	w, err := s.hub.join(ctx, q.Collection)
	if err != nil {
		return nil, err
	}

	sub := newSubscription(ctx)
	go func() {
		var streamErr error
		defer func() {
			s.hub.leave(w)
			sub.finish(streamErr)
		}()

		for {
			docs, err := s.Query(sub.ctx, q)
			if err != nil {
				if sub.ctx.Err() == nil {
					streamErr = err
				}
				return
			}
			sub.publish(docs)

			select {
			case <-sub.ctx.Done():
				return
			case err := <-w.lost:
				s.logger.Warn("subscription ended", zap.String("collection", q.Collection), zap.Error(err))
				streamErr = err
				return
			case <-w.wake:
			}
		}
	}()
	return sub, nil
}

// pgOps implements Tx against either the pool or an open transaction.
type pgOps struct {
	q querier
}

func (o pgOps) GetDoc(ctx context.Context, collection, id string) (Document, error) {
	return o.getDoc(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id)
}

func (o pgOps) GetDocForUpdate(ctx context.Context, collection, id string) (Document, error) {
	return o.getDoc(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id)
}

func (o pgOps) getDoc(ctx context.Context, sql, collection, id string) (Document, error) {
	row := o.q.QueryRow(ctx, sql, collection, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, classify(err)
	}
	return decodeRow(collection, id, raw)
}

func (o pgOps) SetDoc(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := encodeBody(data)
	if err != nil {
		return err
	}
	const upsertSQL = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := o.q.Exec(ctx, upsertSQL, collection, id, raw); err != nil {
		return classify(err)
	}
	return nil
}

func (o pgOps) UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) error {
	row := o.q.QueryRow(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return classify(err)
	}
	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	merged, err := applyPatch(current, patch)
	if err != nil {
		return err
	}
	body, err := encodeBody(merged)
	if err != nil {
		return err
	}
	if _, err := o.q.Exec(ctx, `UPDATE documents SET data = $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`, collection, id, body); err != nil {
		return classify(err)
	}
	return nil
}

func (o pgOps) CreateDoc(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := encodeBody(data)
	if err != nil {
		return err
	}
	const insertSQL = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (collection, id) DO NOTHING
	`
	cmd, err := o.q.Exec(ctx, insertSQL, collection, id, raw)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return nil
}

func (o pgOps) DeleteDoc(ctx context.Context, collection, id string) error {
	cmd, err := o.q.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (o pgOps) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	const updateSQL = `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3::text], to_jsonb(COALESCE((data->>$3)::numeric, 0) + $4), true),
		    updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`
	cmd, err := o.q.Exec(ctx, updateSQL, collection, id, field, delta)
	if err != nil {
		return classify(err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func buildQuery(q Query) (string, []any, error) {
	if q.Collection == "" {
		return "", nil, errors.New("query collection is required")
	}
	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString("SELECT id, data FROM documents WHERE collection = $1")

	if len(q.Where) > 0 {
		contains := make(map[string]any, len(q.Where))
		for _, f := range q.Where {
			if f.Field == "" {
				return "", nil, errors.New("filter field is required")
			}
			contains[f.Field] = f.Value
		}
		raw, err := json.Marshal(contains)
		if err != nil {
			return "", nil, fmt.Errorf("encode filters: %w", err)
		}
		args = append(args, string(raw))
		fmt.Fprintf(&sb, " AND data @> $%d::jsonb", len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY data->$%d %s, id %s", len(args), dir, dir)
	} else {
		sb.WriteString(" ORDER BY id")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args, nil
}

func collectDocuments(collection string, rows pgx.Rows) ([]Document, error) {
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify(err)
		}
		d, err := decodeRow(collection, id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

func decodeRow(collection, id string, raw []byte) (Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return Document{Collection: collection, ID: id, Data: data}, nil
}

func encodeBody(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return string(raw), nil
}

// classify marks transport-level failures as ErrRemoteUnavailable and
// leaves everything else wrapped as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrRemoteUnavailable) {
		return err
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("docstore: %w", err)
}
