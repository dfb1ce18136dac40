package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/pkg/profiles"
)

var (
	importProfile string
	importField   string
	importFile    string
)

var importSeriesCmd = &cobra.Command{
	Use:   "import-series",
	Short: "Import a revenue CSV into a startup profile series",
	Long: `Reads a CSV whose first row is a header and whose second column holds
numbers, and stores the numbers as the named series on the profile.
Rows that do not parse are skipped.`,
	RunE: runImportSeries,
}

func runImportSeries(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if importFile != "-" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		in = f
	}

	b, err := openBackends(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	svc := profiles.NewProfileService(profiles.NewProfileRepository(b.store), b.objects, logger)
	series, err := svc.ImportSeriesFor(cmd.Context(), importProfile, importField, in)
	if err != nil {
		return err
	}
	logger.Info("series imported",
		zap.String("profile_id", importProfile),
		zap.String("field", importField),
		zap.Int("points", len(series)))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d values into %s\n", len(series), importField)
	return nil
}
