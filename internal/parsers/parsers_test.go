package parsers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/models"
	"ledgermerge/pkg/errors"
)

func newTestParser(t *testing.T) *LedgerParser {
	t.Helper()
	parser, err := NewLedgerParser(DefaultParseConfig())
	if err != nil {
		t.Fatalf("NewLedgerParser() error = %v", err)
	}
	return parser
}

func importRows() [][]string {
	return [][]string{
		{"Compte courant", "Solde au 12/01/2023", "80"},
		{},
		{"Date", "Categorie", "Sous categorie", "Libelle", "Montant"},
		{"11-01-2023", "", "", "pay", "50"},
		{"05-01-2023", "food", "groceries", "shop", "-20"},
	}
}

func TestParseImport(t *testing.T) {
	parser := newTestParser(t)

	l, stats, err := parser.ParseImport(importRows(), "import.xlsx")
	if err != nil {
		t.Fatalf("ParseImport() error = %v", err)
	}

	if l.SnapshotAt() != date.New(2023, 1, 12) {
		t.Errorf("SnapshotAt() = %s", l.SnapshotAt())
	}
	if !l.InitialBalance().Equal(decimal.NewFromInt(50)) {
		t.Errorf("InitialBalance() = %s, want 50", l.InitialBalance())
	}
	txs := l.Transactions()
	if len(txs) != 2 || txs[0].Label != "shop" || txs[1].Label != "pay" {
		t.Errorf("expected chronological order, got %v", txs)
	}
	if txs[0].Category != "food" || txs[0].SubCategory != "groceries" {
		t.Errorf("unexpected categories %+v", txs[0])
	}
	if stats.RecordsParsed != 2 {
		t.Errorf("RecordsParsed = %d", stats.RecordsParsed)
	}
}

func TestParseImport_Errors(t *testing.T) {
	parser := newTestParser(t)

	tests := []struct {
		name string
		rows [][]string
		code errors.ErrorCode
	}{
		{"empty", nil, errors.CodeInvalidFormat},
		{"missing prefix", [][]string{{"", "12/01/2023", "80"}}, errors.CodeInvalidFormat},
		{"bad snapshot", [][]string{{"", "Solde au 2023-01-12", "80"}}, errors.CodeInvalidData},
		{"missing balance", [][]string{{"", "Solde au 12/01/2023"}}, errors.CodeMissingColumn},
		{"bad balance", [][]string{{"", "Solde au 12/01/2023", "eighty"}}, errors.CodeInvalidData},
		{"bad amount", [][]string{{"", "Solde au 12/01/2023", "80"}, {}, {}, {"11-01-2023", "", "", "pay", "x"}}, errors.CodeInvalidData},
		{"short row", [][]string{{"", "Solde au 12/01/2023", "80"}, {}, {}, {"11-01-2023", "", ""}}, errors.CodeMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, err := parser.ParseImport(tt.rows, "import.csv")
			if l != nil {
				t.Error("expected no ledger on error")
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func currentRows() [][]string {
	return [][]string{
		{"Order", "Date", "Category", "Sub-category", "Label", "Amount", "", "10/01/2023"},
		{"0", "04-01-2023", "", "", "initial", "100"},
		{"1", "05-01-2023", "home", "", "rent", "-50,5"},
		{},
	}
}

func TestParseCurrent(t *testing.T) {
	parser := newTestParser(t)

	l, stats, err := parser.ParseCurrent(currentRows(), "current.csv")
	if err != nil {
		t.Fatalf("ParseCurrent() error = %v", err)
	}
	if l.SnapshotAt() != date.New(2023, 1, 10) {
		t.Errorf("SnapshotAt() = %s", l.SnapshotAt())
	}
	if !l.InitialBalance().Equal(decimal.NewFromInt(100)) {
		t.Errorf("InitialBalance() = %s", l.InitialBalance())
	}
	txs := l.Transactions()
	if len(txs) != 1 || !txs[0].Amount.Equal(decimal.RequireFromString("-50.5")) {
		t.Errorf("unexpected transactions %v", txs)
	}
	if stats.RecordsSkipped != 1 {
		t.Errorf("RecordsSkipped = %d, want 1", stats.RecordsSkipped)
	}
}

func TestParseCurrent_Initial(t *testing.T) {
	parser := newTestParser(t)

	missing := [][]string{
		{"Order", "Date", "Category", "Sub-category", "Label", "Amount", "", "10/01/2023"},
		{"1", "05-01-2023", "", "", "rent", "-50"},
	}
	if _, _, err := parser.ParseCurrent(missing, "current.csv"); !errors.HasCode(err, errors.CodeMissingInitial) {
		t.Errorf("expected missing_initial, got %v", err)
	}

	duplicate := append(currentRows(), []string{"2", "06-01-2023", "", "", "initial", "3"})
	_, _, err := parser.ParseCurrent(duplicate, "current.csv")
	if !errors.HasCode(err, errors.CodeDuplicateInitial) {
		t.Fatalf("expected duplicate_initial, got %v", err)
	}
	ledgerErr, _ := errors.AsLedgerError(err)
	if ledgerErr.Context["line"] != 5 {
		t.Errorf("expected line 5, got %v", ledgerErr.Context["line"])
	}

	noSnapshot := [][]string{{"Order", "Date"}}
	if _, _, err := parser.ParseCurrent(noSnapshot, "current.csv"); !errors.HasCode(err, errors.CodeMissingColumn) {
		t.Errorf("expected missing_column, got %v", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	parser := newTestParser(t)

	original := ledger.New(decimal.RequireFromString("1234.56"), date.New(2023, 2, 1), []models.Transaction{
		models.NewTransaction(date.New(2023, 1, 3), "home", "rent", "rent", decimal.RequireFromString("-650")),
		models.NewTransaction(date.New(2023, 1, 3), "food", "", "bakery", decimal.RequireFromString("-2.35")),
		models.NewTransaction(date.New(2023, 1, 28), "income", "salary", "pay", decimal.RequireFromString("2100.10")),
	})

	rows := original.ExportRows(parser.Codec())
	parsed, _, err := parser.ParseCurrent(rows, "export")
	if err != nil {
		t.Fatalf("ParseCurrent() error = %v", err)
	}

	if !parsed.InitialBalance().Equal(original.InitialBalance()) {
		t.Errorf("InitialBalance() = %s, want %s", parsed.InitialBalance(), original.InitialBalance())
	}
	if parsed.SnapshotAt() != original.SnapshotAt() {
		t.Errorf("SnapshotAt() = %s, want %s", parsed.SnapshotAt(), original.SnapshotAt())
	}
	got, want := parsed.Transactions(), original.Transactions()
	if len(got) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].IsSame(want[i]) || got[i].Category != want[i].Category || got[i].SubCategory != want[i].SubCategory {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSaveAndLoadCurrent(t *testing.T) {
	parser := newTestParser(t)
	path := filepath.Join(t.TempDir(), "current.csv")

	if err := os.WriteFile(path, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	l := ledger.New(decimal.NewFromInt(100), date.New(2023, 1, 12), []models.Transaction{
		models.NewTransaction(date.New(2023, 1, 5), "", "", "rent", decimal.NewFromInt(-50)),
	})
	if err := parser.SaveCurrent(path, l, true); err != nil {
		t.Fatalf("SaveCurrent() error = %v", err)
	}

	backup, err := os.ReadFile(path + BackupSuffix)
	if err != nil || string(backup) != "previous" {
		t.Errorf("expected backup with previous content, got %q, %v", backup, err)
	}

	loaded, _, err := parser.LoadCurrent(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadCurrent() error = %v", err)
	}
	if loaded.Len() != 1 || !loaded.FinalBalance().Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected ledger after reload: %v", loaded.Transactions())
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".current.csv.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestReadCSV_Windows1252(t *testing.T) {
	parser := newTestParser(t)
	path := filepath.Join(t.TempDir(), "import.csv")

	// "Caf\xe9" is "Café" in Windows-1252 and invalid UTF-8.
	content := []byte(";Solde au 12/01/2023;80\nCompte\nDate;Categorie;Sous categorie;Libelle;Montant\n11-01-2023;Loisirs;;Caf\xe9;-3,5\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	l, _, err := parser.LoadImport(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadImport() error = %v", err)
	}
	if got := l.Transactions()[0].Label; got != "Café" {
		t.Errorf("Label = %q, want Café", got)
	}

	if _, err := parser.ReadCSV(path, EncodingUTF8); !errors.HasCode(err, errors.CodeEncodingError) {
		t.Errorf("expected encoding_error reading as UTF-8, got %v", err)
	}
}

func TestSaveAndLoadImport(t *testing.T) {
	parser := newTestParser(t)
	path := filepath.Join(t.TempDir(), "import.csv")

	l := ledger.New(decimal.NewFromInt(30), date.New(2023, 1, 12), []models.Transaction{
		models.NewTransaction(date.New(2023, 1, 5), "Loisirs", "", "Café", decimal.RequireFromString("-3.5")),
		models.NewTransaction(date.New(2023, 1, 11), "", "", "pay", decimal.NewFromInt(50)),
	})

	rows := parser.ImportRows(l)
	if rows[0][1] != "Solde au 12/01/2023" || rows[0][2] != "76,5" {
		t.Errorf("unexpected balance row %v", rows[0])
	}
	if rows[3][3] != "pay" {
		t.Errorf("expected newest transaction first, got %v", rows[3])
	}

	if err := parser.SaveImport(path, l); err != nil {
		t.Fatalf("SaveImport() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "Caf\xe9") {
		t.Errorf("expected Windows-1252 content, got %q", raw)
	}

	loaded, _, err := parser.LoadImport(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadImport() error = %v", err)
	}
	if !loaded.InitialBalance().Equal(l.InitialBalance()) || loaded.Len() != 2 {
		t.Errorf("round trip mismatch: initial %s, %d transactions", loaded.InitialBalance(), loaded.Len())
	}
	if got := loaded.Transactions()[0].Label; got != "Café" {
		t.Errorf("Label = %q, want Café", got)
	}
}

func TestReadCSV_ReaderOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte("a;  b\nCaf\xe9;c\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config := DefaultParseConfig()
	config.ValidateEncoding = false
	config.TrimLeadingSpace = true
	parser, err := NewLedgerParser(config)
	if err != nil {
		t.Fatalf("NewLedgerParser() error = %v", err)
	}

	rows, err := parser.ReadCSV(path, EncodingUTF8)
	if err != nil {
		t.Fatalf("expected invalid UTF-8 to be read without validation, got %v", err)
	}
	if len(rows) != 2 || rows[0][1] != "b" {
		t.Errorf("expected leading spaces trimmed, got %q", rows)
	}
}

func TestReadXLSX(t *testing.T) {
	parser := newTestParser(t)
	path := filepath.Join(t.TempDir(), "import.xlsx")

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	for i, row := range importRows() {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := book.SetSheetRow(sheet, axis, &cells); err != nil {
			t.Fatal(err)
		}
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	book.Close()

	l, _, err := parser.LoadImport(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadImport() error = %v", err)
	}
	if l.Len() != 2 || !l.InitialBalance().Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected ledger: initial %s, %d transactions", l.InitialBalance(), l.Len())
	}
}

func TestReadRecords_Errors(t *testing.T) {
	parser := newTestParser(t)
	ctx := context.Background()

	if _, err := parser.ReadRecords(ctx, filepath.Join(t.TempDir(), "missing.csv"), EncodingUTF8); !errors.HasCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file_not_found, got %v", err)
	}
	if _, err := parser.ReadRecords(ctx, filepath.Join(t.TempDir(), "missing.xlsx"), EncodingUTF8); !errors.HasCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file_not_found for workbook, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := parser.ReadRecords(cancelled, "any.csv", EncodingUTF8); !errors.HasCode(err, errors.CodeCancelled) {
		t.Errorf("expected cancelled, got %v", err)
	}
}

func TestParseConfig_Validate(t *testing.T) {
	config := DefaultParseConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	bad := config.Clone()
	bad.Delimiter = '"'
	if err := bad.Validate(); err == nil {
		t.Error("expected error for quote delimiter")
	}

	bad = config.Clone()
	bad.Import.HeaderRows = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero header rows")
	}

	if _, err := NewLedgerParser(bad); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}

	if enc, err := ParseEncoding("cp1252"); err != nil || enc != EncodingWindows1252 {
		t.Errorf("ParseEncoding(cp1252) = %s, %v", enc, err)
	}
}
