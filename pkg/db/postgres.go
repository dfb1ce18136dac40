package db

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"launchpad/pkg/config"
)

//go:embed schema.sql
var embeddedSchema string

// Connect opens the pool, pings it and, unless disabled, applies the schema.
func Connect(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)
	poolCfg.MaxConnIdleTime = cfg.DBMaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	logger.Info("connected to PostgreSQL", zap.Int32("max_conns", poolCfg.MaxConns))

	if cfg.ApplySchema {
		schemaCtx, cancelSchema := context.WithTimeout(ctx, 30*time.Second)
		defer cancelSchema()
		if err := ApplySchema(schemaCtx, pool, cfg.SchemaPath); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("schema applied", zap.String("path", schemaSource(cfg.SchemaPath)))
	}

	return pool, nil
}

// ApplySchema executes the SQL schema against the pool. An empty path uses
// the schema compiled into the binary.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql := embeddedSchema
	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read schema file: %w", err)
		}
		sql = string(bytes)
	}

	sql = strings.TrimSpace(sql)
	if sql == "" {
		return fmt.Errorf("schema is empty: %s", schemaSource(path))
	}

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func schemaSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
