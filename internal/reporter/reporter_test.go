package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/matcher"
	"ledgermerge/internal/models"
	"ledgermerge/internal/reconciler"
	"ledgermerge/internal/synthesis"
	"ledgermerge/pkg/errors"
)

func createTestSummary() *reconciler.MergeSummary {
	return &reconciler.MergeSummary{
		RunID:            "run-1",
		ImportFile:       "import.xlsx",
		CurrentFile:      "current.csv",
		OutputFile:       "current.csv",
		BackupFile:       "current.csv.bak",
		Written:          true,
		Mode:             matcher.Pairwise,
		BaseSnapshot:     date.New(2023, 1, 10),
		IncomingSnapshot: date.New(2023, 1, 12),
		Retained:         1,
		New:              1,
		Dropped:          1,
		Transactions:     2,
		InitialBalance:   decimal.NewFromInt(100),
		FinalBalance:     decimal.NewFromInt(100),
		ImportedBalance:  decimal.NewFromInt(80),
		ProcessedAt:      time.Date(2023, 1, 12, 9, 0, 0, 0, time.UTC),
	}
}

func createTestReport(t *testing.T) *reconciler.Report {
	t.Helper()
	l := ledger.New(decimal.NewFromInt(100), date.New(2023, 1, 10), []models.Transaction{
		models.NewTransaction(date.New(2023, 1, 2), "food", "groceries", "shop", decimal.NewFromInt(-20)),
		models.NewTransaction(date.New(2023, 1, 3), "income", "salary", "pay", decimal.NewFromInt(50)),
		models.NewTransaction(date.New(2023, 1, 5), "food", "restaurant", "dinner", decimal.NewFromInt(-10)),
	})

	s, err := synthesis.Build(l, date.LinearRange(date.New(2023, 1, 1), date.New(2023, 1, 5)), synthesis.DefaultOptions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return &reconciler.Report{
		Source:         "current.csv",
		SnapshotAt:     l.SnapshotAt(),
		InitialBalance: l.InitialBalance(),
		FinalBalance:   l.FinalBalance(),
		Transactions:   l.Len(),
		Syntheses:      []*synthesis.Synthesis{s},
	}
}

func rawConfig(format OutputFormat) *ReportConfig {
	config := DefaultReportConfig()
	config.Format = format
	config.Currency = money.USD
	config.Render = false
	return config
}

// outline parses markdown and returns its headings and table count
func outline(t *testing.T, source string) ([]string, int) {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader([]byte(source)))

	var headings []string
	tables := 0
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Heading:
			headings = append(headings, string(n.Text([]byte(source))))
		case *extast.Table:
			tables++
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("failed to walk markdown: %v", err)
	}
	return headings, tables
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ReportConfig)
		expectError bool
	}{
		{"default config", func(*ReportConfig) {}, false},
		{"invalid format", func(c *ReportConfig) { c.Format = "pdf" }, true},
		{"unknown currency", func(c *ReportConfig) { c.Currency = "ZZZ" }, true},
		{"word wrap too small", func(c *ReportConfig) { c.WordWrap = 10 }, true},
		{"small wrap without rendering", func(c *ReportConfig) { c.WordWrap = 10; c.Render = false }, false},
		{"quote delimiter", func(c *ReportConfig) { c.CSVDelimiter = '"' }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultReportConfig()
			tt.mutate(config)

			generator, err := NewReportGenerator(config)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if generator.Config() != config {
				t.Error("expected generator to keep the configuration")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"markdown", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{" csv ", FormatCSV, false},
		{"console", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"-50.5", money.EUR, money.New(-5050, money.EUR).Display()},
		{"1234.56", money.USD, money.New(123456, money.USD).Display()},
		{"1.005", money.USD, money.New(101, money.USD).Display()},
		{"12", money.JPY, money.New(12, money.JPY).Display()},
		{"7.5", "ZZZ", "7.5"},
	}

	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency); got != tt.want {
			t.Errorf("FormatMoney(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestWriteMergeSummary_Markdown(t *testing.T) {
	generator, err := NewReportGenerator(rawConfig(FormatMarkdown))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.WriteMergeSummary(createTestSummary(), &buf); err != nil {
		t.Fatalf("WriteMergeSummary() error = %v", err)
	}
	out := buf.String()

	headings, tables := outline(t, out)
	if !reflect.DeepEqual(headings, []string{"Merge summary"}) {
		t.Errorf("unexpected headings %v", headings)
	}
	if tables != 2 {
		t.Errorf("expected 2 tables, got %d", tables)
	}

	for _, want := range []string{
		"| Dropped | 1 |",
		"| Final | " + money.New(10000, money.USD).Display() + " |",
		"**Drift**",
		"1 import rows dated inside the current ledger",
		"`current.csv.bak`",
		"pairwise matching",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	summary := createTestSummary()
	summary.Written = false
	summary.BackupFile = ""
	summary.ImportedBalance = summary.FinalBalance
	buf.Reset()
	if err := generator.WriteMergeSummary(summary, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Dry run") || strings.Contains(buf.String(), "Drift") {
		t.Errorf("unexpected dry-run output:\n%s", buf.String())
	}
}

func TestWriteReport_Markdown(t *testing.T) {
	generator, err := NewReportGenerator(rawConfig(FormatMarkdown))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.WriteReport(createTestReport(t), &buf); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	out := buf.String()

	headings, tables := outline(t, out)
	want := []string{
		"Ledger synthesis",
		"2023-01-01 to 2023-01-05",
		"Cash flow",
		"Categories",
		"food",
		"income",
	}
	if !reflect.DeepEqual(headings, want) {
		t.Errorf("headings = %v, want %v", headings, want)
	}
	if tables != 4 {
		t.Errorf("expected 4 tables, got %d", tables)
	}
	if !strings.Contains(out, "| groceries | loss | "+money.New(2000, money.USD).Display()+" | 66.7% |") {
		t.Errorf("expected groceries share in:\n%s", out)
	}
}

func TestWriteReport_Rendered(t *testing.T) {
	config := rawConfig(FormatMarkdown)
	config.Render = true
	config.Style = "notty"
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.WriteMergeSummary(createTestSummary(), &buf); err != nil {
		t.Fatalf("WriteMergeSummary() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Merge summary") {
		t.Errorf("expected rendered heading, got:\n%s", buf.String())
	}
}

func TestWriteMergeSummary_JSON(t *testing.T) {
	generator, err := NewReportGenerator(rawConfig(FormatJSON))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.WriteMergeSummary(createTestSummary(), &buf); err != nil {
		t.Fatalf("WriteMergeSummary() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded["mode"] != "pairwise" {
		t.Errorf("expected mode by name, got %v", decoded["mode"])
	}
	if decoded["retained"] != float64(1) {
		t.Errorf("expected retained 1, got %v", decoded["retained"])
	}
	if decoded["incoming_snapshot"] != "2023-01-12" {
		t.Errorf("expected ISO snapshot date, got %v", decoded["incoming_snapshot"])
	}
	if decoded["final_balance"] != "100" {
		t.Errorf("expected decimal string balance, got %v", decoded["final_balance"])
	}
}

func TestWriteReport_CSV(t *testing.T) {
	generator, err := NewReportGenerator(rawConfig(FormatCSV))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.WriteReport(createTestReport(t), &buf); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("expected header and 5 rows, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], ReportCSVHeader) {
		t.Errorf("unexpected header %v", records[0])
	}
	want := []string{"2023-01-01_2023-01-05", "2023-01-03", "130", "112.00", "", "50", "0", "50", "20", "30"}
	if !reflect.DeepEqual(records[3], want) {
		t.Errorf("row = %v, want %v", records[3], want)
	}
}

func TestWriteMergeSummary_CSV(t *testing.T) {
	config := rawConfig(FormatCSV)
	config.CSVDelimiter = ';'
	config.CSVHeaders = false
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.WriteMergeSummary(createTestSummary(), &buf); err != nil {
		t.Fatalf("WriteMergeSummary() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "run_id;run-1\n") {
		t.Errorf("unexpected CSV output:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "dropped;1\n") {
		t.Errorf("expected dropped count in:\n%s", buf.String())
	}
}

func TestSafeReportGenerator(t *testing.T) {
	generator, err := NewSafeReportGenerator(rawConfig(FormatJSON), nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReportSafely(nil, &buf); !errors.HasCode(err, errors.CodeMissingField) {
		t.Errorf("expected missing_field for nil result, got %v", err)
	}
	if err := generator.GenerateReportSafely("summary", &buf); !errors.HasCode(err, errors.CodeInvalidData) {
		t.Errorf("expected invalid_data for unsupported result, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output on error, got %q", buf.String())
	}

	path := filepath.Join(t.TempDir(), "summary.json")
	if err := generator.WriteFile(path, createTestSummary()); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil || !json.Valid(content) {
		t.Errorf("expected JSON file, got %q, %v", content, err)
	}

	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "pdf"}, nil); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}
}

func TestSafeReportGenerator_Fallback(t *testing.T) {
	config := rawConfig(FormatMarkdown)
	config.Render = true
	config.Style = "no-such-style"
	generator, err := NewSafeReportGenerator(config, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReportSafely(createTestSummary(), &buf); err != nil {
		t.Fatalf("GenerateReportSafely() error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "> Report generated as raw markdown") {
		t.Errorf("expected fallback notice, got:\n%s", out)
	}
	if !strings.Contains(out, "# Merge summary") {
		t.Errorf("expected raw markdown, got:\n%s", out)
	}
}
