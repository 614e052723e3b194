package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgermerge/internal/date"
	"ledgermerge/internal/reconciler"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// Flags for the report command
var (
	reportCurrent string
	reportOutput  string
	reportFormat  string
	fromDate      string
	toDate        string
	terms         bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Derive balance and category series from the current ledger",
	Long: `Report builds the synthesis of the current ledger: the balance with its
trend, gains and losses, their cumulated values and the repartition of
spending and income per category and sub-category.

The whole ledger is used unless --from and --to restrict it. With --terms one
more synthesis is built per accounting term (calendar month).

Examples:
  # Synthesis of the whole ledger rendered in the terminal
  ledgermerge report --current ledger.csv

  # One synthesis per month as JSON
  ledgermerge report --current ledger.csv --terms --format json --output report.json

  # Weekly points over a quarter with a 7 point smoothed balance
  ledgermerge report --current ledger.csv --from 2023-01-01 --to 2023-03-31 \
    --step 7 --smooth 7 --format csv`,

	PreRunE: validateReportFlags,
	RunE:    runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Required flags
	reportCmd.Flags().StringVarP(&reportCurrent, "current", "c", "", "path to the current ledger file (required)")

	// Output flags
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "output format: markdown, json, csv")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file path (default: stdout)")

	// Date filtering flags
	reportCmd.Flags().StringVar(&fromDate, "from", "", "report start date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&toDate, "to", "", "report end date (YYYY-MM-DD)")
	reportCmd.Flags().BoolVar(&terms, "terms", false, "add one synthesis per accounting term")

	// Synthesis configuration flags
	reportCmd.Flags().Int("smooth", 0, "smoothing period of the balance, in points (0 or 1 disables)")
	reportCmd.Flags().Int("step", 1, "days between two points of the date axis")

	// Mark required flags
	reportCmd.MarkFlagRequired("current")

	// Bind flags to viper
	viper.BindPFlag("synthesis.smoothing", reportCmd.Flags().Lookup("smooth"))
	viper.BindPFlag("synthesis.step", reportCmd.Flags().Lookup("step"))
}

func validateReportFlags(cmd *cobra.Command, args []string) error {
	if reportCurrent == "" {
		return errors.ValidationError(errors.CodeMissingField, "current", "", nil)
	}
	if err := validateFileExists(reportCurrent); err != nil {
		return err
	}

	if (fromDate == "") != (toDate == "") {
		return errors.ValidationError(errors.CodeMissingField, "from/to", fromDate+toDate, nil).
			WithSuggestion("give both --from and --to, or neither for the whole ledger")
	}
	if _, err := parseReportRange(); err != nil {
		return err
	}

	if reportOutput != "" {
		if err := validateOutputDir(reportOutput); err != nil {
			return err
		}
	}
	return nil
}

// parseReportRange returns the range given by --from and --to, or nil
func parseReportRange() (*date.Range, error) {
	if fromDate == "" && toDate == "" {
		return nil, nil
	}

	from, err := date.Parse(fromDate)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidDate, "from", fromDate, err).
			WithSuggestion("use YYYY-MM-DD")
	}
	to, err := date.Parse(toDate)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidDate, "to", toDate, err).
			WithSuggestion("use YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, errors.ValidationError(errors.CodeOutOfRange, "to", toDate, nil).
			WithSuggestion("the end date cannot be before the start date")
	}
	return &date.Range{From: from, To: to}, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	sess, err := newSession(viper.GetViper())
	if err != nil {
		return err
	}

	service, err := sess.service()
	if err != nil {
		return err
	}
	generator, err := sess.reportGenerator(reportFormat)
	if err != nil {
		return err
	}

	window, err := parseReportRange()
	if err != nil {
		return err
	}

	sess.logger.WithFields(logger.Fields{
		"current": reportCurrent,
		"terms":   terms,
	}).Info("Starting report")

	report, err := service.Report(commandContext(cmd), &reconciler.ReportRequest{
		CurrentFile: reportCurrent,
		Range:       window,
		Terms:       terms,
		RunID:       sess.runID,
	})
	if err != nil {
		return err
	}

	if reportOutput != "" {
		return generator.WriteFile(reportOutput, report)
	}
	return generator.GenerateReportSafely(report, cmd.OutOrStdout())
}
