package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/pkg/config"
	"launchpad/pkg/logging"
)

// @title           Launchpad API
// @version         1.0
// @description     Startup and investor networking: directories, feed, group chat and direct messages.

// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "launchpad",
	Short:         "Launchpad API server and maintenance tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = logging.New(cfg.Env)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	importSeriesCmd.Flags().StringVar(&importProfile, "profile", "", "Profile id to import into (required)")
	importSeriesCmd.Flags().StringVar(&importField, "field", "", "Series name, e.g. T (required)")
	importSeriesCmd.Flags().StringVar(&importFile, "file", "", "CSV file, - for stdin (required)")
	_ = importSeriesCmd.MarkFlagRequired("profile")
	_ = importSeriesCmd.MarkFlagRequired("field")
	_ = importSeriesCmd.MarkFlagRequired("file")

	migrateCmd.Flags().StringVar(&migrateSchemaPath, "schema", "", "Schema file (default: embedded schema)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importSeriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
