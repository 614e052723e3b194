package parsers

import (
	"context"
	"fmt"
	"strings"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/models"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// LedgerParser builds ledgers from import snapshots and current ledger files
type LedgerParser struct {
	*BaseParser
}

// NewLedgerParser creates a new LedgerParser with the given configuration
func NewLedgerParser(config *ParseConfig) (*LedgerParser, error) {
	if config == nil {
		config = DefaultParseConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", err.Error(), err)
	}

	return &LedgerParser{BaseParser: NewBaseParser(config)}, nil
}

// Codec returns the codec used to read and write cells
func (lp *LedgerParser) Codec() Codec {
	return lp.config.Codec
}

// LoadImport reads and parses an import snapshot file
func (lp *LedgerParser) LoadImport(ctx context.Context, filePath string) (*ledger.Ledger, *ParseStats, error) {
	rows, err := lp.ReadRecords(ctx, filePath, lp.config.Import.Encoding)
	if err != nil {
		return nil, nil, err
	}
	return lp.ParseImport(rows, filePath)
}

// LoadCurrent reads and parses a current ledger file
func (lp *LedgerParser) LoadCurrent(ctx context.Context, filePath string) (*ledger.Ledger, *ParseStats, error) {
	rows, err := lp.ReadRecords(ctx, filePath, lp.config.Encoding)
	if err != nil {
		return nil, nil, err
	}
	return lp.ParseCurrent(rows, filePath)
}

// ParseImport builds a ledger from an import record set. The first row holds
// the snapshot date after the balance prefix and the final balance; the
// transaction rows are listed newest first. The opening balance is the final
// balance minus every movement.
func (lp *LedgerParser) ParseImport(rows [][]string, source string) (*ledger.Ledger, *ParseStats, error) {
	layout := lp.config.Import
	codec := lp.config.Codec
	stats := &ParseStats{TotalLines: len(rows)}

	if len(rows) == 0 {
		return nil, stats, errors.ParseError(errors.CodeInvalidFormat, source, 1, "balance", "", fmt.Errorf("file is empty"))
	}

	snapshotCell, err := cell(rows[0], 1, "snapshot", source, 1)
	if err != nil {
		return nil, stats, err
	}
	if !strings.HasPrefix(snapshotCell, strings.TrimSpace(layout.BalancePrefix)) {
		return nil, stats, errors.ParseError(errors.CodeInvalidFormat, source, 1, "snapshot", snapshotCell,
			fmt.Errorf("expected prefix '%s'", layout.BalancePrefix))
	}
	snapshotAt, err := codec.ParseSnapshotDate(strings.TrimPrefix(snapshotCell, strings.TrimSpace(layout.BalancePrefix)))
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeInvalidData, source, 1, "snapshot", snapshotCell, err)
	}

	balanceCell, err := cell(rows[0], 2, "balance", source, 1)
	if err != nil {
		return nil, stats, err
	}
	finalBalance, err := codec.ParseAmount(balanceCell)
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeInvalidData, source, 1, "balance", balanceCell, err)
	}

	rp := newImportRowParser(codec, source)
	var transactions []models.Transaction
	for i := layout.HeaderRows; i < len(rows); i++ {
		if lp.config.SkipEmptyRows && isEmptyRecord(rows[i]) {
			stats.RecordsSkipped++
			continue
		}
		t, err := rp.parse(rows[i], i+1)
		if err != nil {
			return nil, stats, err
		}
		transactions = append(transactions, t)
		stats.RecordsParsed++
	}

	for i, j := 0, len(transactions)-1; i < j; i, j = i+1, j-1 {
		transactions[i], transactions[j] = transactions[j], transactions[i]
	}

	initialBalance := finalBalance.Sub(models.Sum(transactions))
	l := ledger.New(initialBalance, snapshotAt, transactions)

	lp.logger.WithFields(logger.Fields{
		"source":          source,
		"snapshot_at":     snapshotAt.String(),
		"final_balance":   finalBalance.String(),
		"initial_balance": initialBalance.String(),
		"transactions":    l.Len(),
	}).Info("Parsed import snapshot")
	return l, stats, nil
}

// ParseCurrent builds a ledger from a current ledger record set. The header
// row holds the snapshot date; exactly one row must be labelled "initial"
// and carries the opening balance.
func (lp *LedgerParser) ParseCurrent(rows [][]string, source string) (*ledger.Ledger, *ParseStats, error) {
	codec := lp.config.Codec
	stats := &ParseStats{TotalLines: len(rows)}

	if len(rows) == 0 {
		return nil, stats, errors.ParseError(errors.CodeInvalidFormat, source, 1, "header", "", fmt.Errorf("file is empty"))
	}

	snapshotCell, err := cell(rows[0], currentSnapshotColumn, "snapshot", source, 1)
	if err != nil {
		return nil, stats, err
	}
	snapshotAt, err := codec.ParseSnapshotDate(snapshotCell)
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeInvalidData, source, 1, "snapshot", snapshotCell, err)
	}

	rp := newCurrentRowParser(codec, source)
	var transactions []models.Transaction
	var initial *models.Transaction
	for i := 1; i < len(rows); i++ {
		if lp.config.SkipEmptyRows && isEmptyRecord(rows[i]) {
			stats.RecordsSkipped++
			continue
		}
		t, err := rp.parse(rows[i], i+1)
		if err != nil {
			return nil, stats, err
		}
		stats.RecordsParsed++

		if t.IsInitial() {
			if initial != nil {
				return nil, stats, errors.ParseError(errors.CodeDuplicateInitial, source, i+1, "label", t.Label, nil)
			}
			initial = &t
			continue
		}
		transactions = append(transactions, t)
	}

	if initial == nil {
		return nil, stats, errors.ParseError(errors.CodeMissingInitial, source, len(rows), "label", models.InitialLabel, nil)
	}

	l := ledger.New(initial.Amount, snapshotAt, transactions)

	lp.logger.WithFields(logger.Fields{
		"source":          source,
		"snapshot_at":     snapshotAt.String(),
		"initial_balance": initial.Amount.String(),
		"transactions":    l.Len(),
	}).Info("Parsed current ledger")
	return l, stats, nil
}

// SaveCurrent writes l in the current ledger format.
func (lp *LedgerParser) SaveCurrent(filePath string, l *ledger.Ledger, backup bool) error {
	return WriteCSV(filePath, l.ExportRows(lp.config.Codec), WriteOptions{
		Delimiter: lp.config.Delimiter,
		Encoding:  lp.config.Encoding,
		Backup:    backup,
	})
}

// ImportRows returns l as an import record set: the balance row, filler
// header rows and the transactions newest first.
func (lp *LedgerParser) ImportRows(l *ledger.Ledger) [][]string {
	codec := lp.config.Codec
	headerRows := lp.config.Import.HeaderRows

	rows := make([][]string, 0, headerRows+l.Len())
	rows = append(rows, []string{"", lp.SnapshotDate(l.SnapshotAt()), codec.FormatAmount(l.FinalBalance())})
	for i := 1; i < headerRows; i++ {
		if i == headerRows-1 {
			rows = append(rows, []string{"Date", "Category", "Sub-category", "Label", "Amount"})
			continue
		}
		rows = append(rows, []string{"", "", ""})
	}

	txs := l.Transactions()
	for i := len(txs) - 1; i >= 0; i-- {
		t := txs[i]
		rows = append(rows, []string{codec.FormatDate(t.OccurredAt), t.Category, t.SubCategory, t.Label, codec.FormatAmount(t.Amount)})
	}
	return rows
}

// SaveImport writes l in the import snapshot format, in the import encoding.
func (lp *LedgerParser) SaveImport(filePath string, l *ledger.Ledger) error {
	return WriteCSV(filePath, lp.ImportRows(l), WriteOptions{
		Delimiter: lp.config.Delimiter,
		Encoding:  lp.config.Import.Encoding,
	})
}

// SnapshotDate is the cell text expected at the head of an import snapshot
func (lp *LedgerParser) SnapshotDate(d date.Date) string {
	return lp.config.Import.BalancePrefix + lp.config.Codec.FormatSnapshotDate(d)
}
