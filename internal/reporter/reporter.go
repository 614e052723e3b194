// Package reporter renders merge summaries and ledger syntheses.
//
// Supported output formats:
//   - Markdown: tables for a terminal, rendered with glamour or left raw
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per axis point, ready for a spreadsheet or a plotter
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	if err != nil {
//		return err
//	}
//	err = generator.WriteMergeSummary(summary, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"ledgermerge/internal/reconciler"
	"ledgermerge/internal/synthesis"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseFormat parses an output format name
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		f = FormatMarkdown
	}
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format '%s': must be markdown, json or csv", s)
	}
	return f, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Currency is the ISO 4217 code used to display amounts.
	Currency string `json:"currency"`

	// Render runs markdown through glamour; raw markdown is written otherwise.
	Render bool `json:"render"`
	// Style is a glamour standard style name, or "auto".
	Style    string `json:"style"`
	WordWrap int    `json:"word_wrap"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatMarkdown,
		Currency:     money.EUR,
		Render:       true,
		Style:        "auto",
		WordWrap:     100,
		CSVDelimiter: ',',
		CSVHeaders:   true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("unknown currency code: %s", c.Currency)
	}

	if c.Render && c.WordWrap < 20 {
		return fmt.Errorf("word wrap must be at least 20 characters, got %d", c.WordWrap)
	}

	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' {
		return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
	}

	return nil
}

// ReportGenerator generates reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// Config returns the generator configuration
func (rg *ReportGenerator) Config() *ReportConfig {
	return rg.config
}

// WriteMergeSummary writes a merge summary in the configured format
func (rg *ReportGenerator) WriteMergeSummary(summary *reconciler.MergeSummary, writer io.Writer) error {
	if summary == nil {
		return fmt.Errorf("merge summary cannot be nil")
	}

	switch rg.config.Format {
	case FormatMarkdown:
		return rg.writeMarkdown(writer, mergeSummaryTemplate, summary)
	case FormatJSON:
		return writeJSON(writer, summary)
	case FormatCSV:
		return rg.writeMergeSummaryCSV(summary, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// WriteReport writes the syntheses of a ledger in the configured format
func (rg *ReportGenerator) WriteReport(report *reconciler.Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatMarkdown:
		return rg.writeMarkdown(writer, reportTemplate, report)
	case FormatJSON:
		return writeJSON(writer, report)
	case FormatCSV:
		return rg.writeReportCSV(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func writeJSON(writer io.Writer, v interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (rg *ReportGenerator) newCSVWriter(writer io.Writer) *csv.Writer {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	return csvWriter
}

// writeMergeSummaryCSV writes one field per row
func (rg *ReportGenerator) writeMergeSummaryCSV(summary *reconciler.MergeSummary, writer io.Writer) error {
	csvWriter := rg.newCSVWriter(writer)

	var records [][]string
	if rg.config.CSVHeaders {
		records = append(records, []string{"Field", "Value"})
	}
	records = append(records,
		[]string{"run_id", summary.RunID},
		[]string{"import_file", summary.ImportFile},
		[]string{"current_file", summary.CurrentFile},
		[]string{"output_file", summary.OutputFile},
		[]string{"mode", summary.Mode.String()},
		[]string{"base_snapshot", summary.BaseSnapshot.String()},
		[]string{"incoming_snapshot", summary.IncomingSnapshot.String()},
		[]string{"retained", fmt.Sprint(summary.Retained)},
		[]string{"updated", fmt.Sprint(summary.Updated)},
		[]string{"new", fmt.Sprint(summary.New)},
		[]string{"dropped", fmt.Sprint(summary.Dropped)},
		[]string{"transactions", fmt.Sprint(summary.Transactions)},
		[]string{"initial_balance", summary.InitialBalance.String()},
		[]string{"final_balance", summary.FinalBalance.String()},
		[]string{"imported_balance", summary.ImportedBalance.String()},
		[]string{"written", fmt.Sprint(summary.Written)},
	)

	if err := csvWriter.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write merge summary records: %w", err)
	}
	return nil
}

// ReportCSVHeader names the columns of the report CSV output
var ReportCSVHeader = []string{
	"Range",
	"Date",
	"Balance",
	"Trend",
	"Smoothed",
	"Gain",
	"Loss",
	"Cumulated_Gain",
	"Cumulated_Loss",
	"PnL",
}

// writeReportCSV writes the cash flow of every synthesis, one row per axis point
func (rg *ReportGenerator) writeReportCSV(report *reconciler.Report, writer io.Writer) error {
	csvWriter := rg.newCSVWriter(writer)
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(ReportCSVHeader); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, s := range report.Syntheses {
		if err := writeCashFlowRows(csvWriter, s); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func writeCashFlowRows(csvWriter *csv.Writer, s *synthesis.Synthesis) error {
	cf := s.CashFlow
	name := s.Range.Identifier()
	for i, d := range s.Axis {
		smoothed := ""
		if cf.SmoothedBalance != nil {
			smoothed = cf.SmoothedBalance[i].StringFixed(2)
		}
		record := []string{
			name,
			d.String(),
			cf.Balance[i].String(),
			cf.BalanceTrend[i].StringFixed(2),
			smoothed,
			cf.Gain[i].String(),
			cf.Loss[i].String(),
			cf.CumulatedGain[i].String(),
			cf.CumulatedLoss[i].String(),
			cf.CumulatedPnL[i].String(),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write cash flow record: %w", err)
		}
	}
	return nil
}

// FormatMoney displays amount in the given currency, rounded to the
// currency's minor unit.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String()
	}
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), cur.Code).Display()
}
