package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgermerge/internal/date"
	"ledgermerge/internal/parsers"
	"ledgermerge/internal/sample"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// Flags for the sample command
var (
	sampleDir    string
	sampleStart  string
	sampleConfig = sample.DefaultConfig()
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a current ledger and an overlapping import snapshot",
	Long: `Sample writes two files generated from one random account history:
current.csv, a current ledger covering the start of the history, and
import.csv, an import snapshot covering its end in the bank's layout and
encoding. Merging import.csv into current.csv restores the whole history.

The same seed always produces the same files.

Examples:
  ledgermerge sample --dir ./demo
  ledgermerge sample --dir ./demo --days 365 --current-days 300 --import-days 90 --count 800
  ledgermerge merge --import ./demo/import.csv --current ./demo/current.csv`,

	PreRunE: validateSampleFlags,
	RunE:    runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVarP(&sampleDir, "dir", "d", ".", "directory receiving current.csv and import.csv")
	sampleCmd.Flags().StringVar(&sampleStart, "start", sampleConfig.Start.String(), "first day of the history (YYYY-MM-DD)")
	sampleCmd.Flags().Uint64Var(&sampleConfig.Seed, "seed", sampleConfig.Seed, "random seed")
	sampleCmd.Flags().IntVar(&sampleConfig.Days, "days", sampleConfig.Days, "length of the history in days")
	sampleCmd.Flags().IntVar(&sampleConfig.CurrentDays, "current-days", sampleConfig.CurrentDays, "days known to the current ledger")
	sampleCmd.Flags().IntVar(&sampleConfig.ImportDays, "import-days", sampleConfig.ImportDays, "days covered by the import snapshot")
	sampleCmd.Flags().IntVar(&sampleConfig.Count, "count", sampleConfig.Count, "number of transactions")
	sampleCmd.Flags().Float64Var(&sampleConfig.MinAmount, "min-amount", sampleConfig.MinAmount, "smallest transaction amount")
	sampleCmd.Flags().Float64Var(&sampleConfig.MaxAmount, "max-amount", sampleConfig.MaxAmount, "largest transaction amount")
	sampleCmd.Flags().Float64Var(&sampleConfig.DebitRatio, "debit-ratio", sampleConfig.DebitRatio, "share of expenses among transactions")
}

func validateSampleFlags(cmd *cobra.Command, args []string) error {
	start, err := date.Parse(sampleStart)
	if err != nil {
		return errors.ValidationError(errors.CodeInvalidDate, "start", sampleStart, err).
			WithSuggestion("use YYYY-MM-DD")
	}
	sampleConfig.Start = start

	if err := sampleConfig.Validate(); err != nil {
		return errors.ValidationError(errors.CodeOutOfRange, "sample", fmt.Sprintf("%+v", sampleConfig), err).
			WithSuggestion("current and import days must cover the whole history, with the current ledger ending first")
	}

	info, err := os.Stat(sampleDir)
	if err != nil {
		return errors.FileError(errors.CodeFileNotFound, sampleDir, err)
	}
	if !info.IsDir() {
		return errors.FileError(errors.CodeInvalidFormat, sampleDir, fmt.Errorf("not a directory"))
	}
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	sess, err := newSession(viper.GetViper())
	if err != nil {
		return err
	}

	parseConfig, err := sess.settings.ParseConfig()
	if err != nil {
		return err
	}
	parser, err := parsers.NewLedgerParser(parseConfig)
	if err != nil {
		return err
	}

	dataset, err := sample.Generate(sampleConfig)
	if err != nil {
		return errors.ValidationError(errors.CodeOutOfRange, "sample", "", err)
	}

	currentPath := filepath.Join(sampleDir, "current.csv")
	importPath := filepath.Join(sampleDir, "import.csv")
	if err := parser.SaveCurrent(currentPath, dataset.Current, false); err != nil {
		return err
	}
	if err := parser.SaveImport(importPath, dataset.Import); err != nil {
		return err
	}

	sess.logger.WithFields(logger.Fields{
		"seed":         sampleConfig.Seed,
		"transactions": dataset.History.Len(),
		"current":      currentPath,
		"import":       importPath,
	}).Info("Sample written")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%d transactions, snapshot %s)\n", currentPath, dataset.Current.Len(), dataset.Current.SnapshotAt())
	fmt.Fprintf(out, "Wrote %s (%d transactions, snapshot %s)\n", importPath, dataset.Import.Len(), dataset.Import.SnapshotAt())
	fmt.Fprintf(out, "Final balance after merge: %s\n", parser.Codec().FormatAmount(dataset.History.FinalBalance()))
	return nil
}
