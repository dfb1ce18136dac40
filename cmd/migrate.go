package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/pkg/db"
)

var migrateSchemaPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver != "postgres" {
			return fmt.Errorf("migrate requires STORE_DRIVER=postgres, got %q", cfg.StoreDriver)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		// Connect would apply the schema itself; migrate does it explicitly.
		c := cfg
		c.ApplySchema = false
		pool, err := db.Connect(ctx, c, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.ApplySchema(ctx, pool, migrateSchemaPath); err != nil {
			return err
		}
		logger.Info("schema applied", zap.String("schema", migrateSchemaPath))
		return nil
	},
}
