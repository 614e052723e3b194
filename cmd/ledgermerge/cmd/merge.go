package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgermerge/internal/reconciler"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// Flags for the merge command
var (
	importFile  string
	currentFile string
	mergeOutput string
	mergeFormat string
	noBackup    bool
	dryRun      bool
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a bank export snapshot into the current ledger",
	Long: `Merge folds a bank export snapshot into the current ledger.

Transactions already in the current ledger keep their categories. Rows the
export shows again are refreshed, rows it shows for the first time are
appended, and the snapshot date moves forward to the export's. The merged
ledger replaces the current file, whose previous content is kept as a .bak
copy unless --no-backup is set.

This command requires:
- An import snapshot exported by the bank (XLSX or CSV)
- The current ledger file (XLSX or CSV)

Examples:
  # Basic merge, the current file is updated in place
  ledgermerge merge --import export.xlsx --current ledger.csv

  # Write the merged ledger elsewhere
  ledgermerge merge --import export.xlsx --current ledger.csv --output merged.csv

  # Preview a merge as JSON without writing anything
  ledgermerge merge --import export.csv --current ledger.csv --dry-run --format json

  # Reproduce ledgers produced by earlier tooling
  ledgermerge merge --import export.csv --current ledger.csv --matching existence`,

	PreRunE: validateMergeFlags,
	RunE:    runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	// Required flags
	mergeCmd.Flags().StringVarP(&importFile, "import", "i", "", "path to the bank export snapshot (required)")
	mergeCmd.Flags().StringVarP(&currentFile, "current", "c", "", "path to the current ledger file (required)")

	// Output flags
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "merged ledger path (default: the current file)")
	mergeCmd.Flags().StringVarP(&mergeFormat, "format", "f", "", "summary format: markdown, json, csv")
	mergeCmd.Flags().BoolVar(&noBackup, "no-backup", false, "do not keep a .bak copy of the current file")
	mergeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge and print the summary without writing")

	// Matching configuration flags
	mergeCmd.Flags().String("matching", "pairwise", "identity matching mode: pairwise, existence")

	// Mark required flags
	mergeCmd.MarkFlagRequired("import")
	mergeCmd.MarkFlagRequired("current")

	// Bind flags to viper
	viper.BindPFlag("matching", mergeCmd.Flags().Lookup("matching"))
}

func validateMergeFlags(cmd *cobra.Command, args []string) error {
	if importFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "import", "", nil)
	}
	if currentFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "current", "", nil)
	}

	if err := validateFileExists(importFile); err != nil {
		return err
	}
	if err := validateFileExists(currentFile); err != nil {
		return err
	}

	if mergeOutput != "" {
		if err := validateOutputDir(mergeOutput); err != nil {
			return err
		}
	}
	return nil
}

// validateFileExists checks that path is a readable regular file
func validateFileExists(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if os.IsPermission(err) {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeInvalidFormat, path, nil).
			WithSuggestion("expected a file, got a directory")
	}

	// Check if file is readable
	file, err := os.Open(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	file.Close()

	return nil
}

// validateOutputDir checks that the directory of path exists
func validateOutputDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, dir, err).
			WithSuggestion("create the output directory first")
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runMerge(cmd *cobra.Command, args []string) error {
	sess, err := newSession(viper.GetViper())
	if err != nil {
		return err
	}
	if noBackup {
		sess.settings.Backup = false
	}

	service, err := sess.service()
	if err != nil {
		return err
	}
	generator, err := sess.reportGenerator(mergeFormat)
	if err != nil {
		return err
	}

	sess.logger.WithFields(logger.Fields{
		"import":  importFile,
		"current": currentFile,
		"dry_run": dryRun,
	}).Info("Starting merge")

	summary, err := service.Merge(commandContext(cmd), &reconciler.MergeRequest{
		ImportFile:  importFile,
		CurrentFile: currentFile,
		OutputFile:  mergeOutput,
		DryRun:      dryRun,
		RunID:       sess.runID,
	})

	// Failures are recorded too, so metrics are written either way
	if metricsErr := sess.writeMetrics(); metricsErr != nil {
		if err == nil {
			err = metricsErr
		} else {
			sess.logger.WithError(metricsErr).Warn("Failed to write metrics")
		}
	}
	if err != nil {
		return err
	}

	return generator.GenerateReportSafely(summary, cmd.OutOrStdout())
}
