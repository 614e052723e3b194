// Package ledger holds an account snapshot: an opening balance, the date the
// data was captured and a chronological list of transactions. Ledgers are
// immutable; Merge returns a new one.
package ledger

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/models"
	"ledgermerge/internal/series"
)

// Ledger is an immutable, chronologically ordered account snapshot.
type Ledger struct {
	initialBalance decimal.Decimal
	snapshotAt     date.Date
	transactions   []models.Transaction
}

// New returns a ledger holding a copy of transactions, stable-sorted by date
// so that same-day rows keep their economic order.
func New(initialBalance decimal.Decimal, snapshotAt date.Date, transactions []models.Transaction) *Ledger {
	txs := make([]models.Transaction, len(transactions))
	copy(txs, transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OccurredAt.Before(txs[j].OccurredAt)
	})

	return &Ledger{
		initialBalance: initialBalance,
		snapshotAt:     snapshotAt,
		transactions:   txs,
	}
}

// InitialBalance returns the balance strictly before the first transaction.
func (l *Ledger) InitialBalance() decimal.Decimal { return l.initialBalance }

// SnapshotAt returns the date the ledger data was captured.
func (l *Ledger) SnapshotAt() date.Date { return l.snapshotAt }

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// Transactions returns a copy of the transactions in ledger order.
func (l *Ledger) Transactions() []models.Transaction {
	txs := make([]models.Transaction, len(l.transactions))
	copy(txs, l.transactions)
	return txs
}

// StartedAt returns the date of the first transaction, or the snapshot date
// when the ledger is empty.
func (l *Ledger) StartedAt() date.Date {
	if len(l.transactions) == 0 {
		return l.snapshotAt
	}
	return l.transactions[0].OccurredAt
}

// EndedAt returns the date of the last transaction, or the snapshot date
// when the ledger is empty.
func (l *Ledger) EndedAt() date.Date {
	if len(l.transactions) == 0 {
		return l.snapshotAt
	}
	return l.transactions[len(l.transactions)-1].OccurredAt
}

// FinalBalance returns the balance after the last transaction.
func (l *Ledger) FinalBalance() decimal.Decimal {
	return l.initialBalance.Add(models.Sum(l.transactions))
}

// Window returns a ledger restricted to transactions within r. The opening
// balance is carried up to the first kept day.
func (l *Ledger) Window(r date.Range) *Ledger {
	initial := l.initialBalance
	var kept []models.Transaction
	for _, t := range l.transactions {
		switch {
		case t.OccurredAt.Before(r.From):
			initial = initial.Add(t.Amount)
		case !t.OccurredAt.After(r.To):
			kept = append(kept, t)
		}
	}
	return New(initial, l.snapshotAt, kept)
}

func (l *Ledger) occurredAt() []date.Date {
	days := make([]date.Date, len(l.transactions))
	for i, t := range l.transactions {
		days[i] = t.OccurredAt
	}
	return days
}

// Balance returns the running balance after each transaction, grouped by day.
func (l *Ledger) Balance() series.Observations {
	balances := make([]decimal.Decimal, len(l.transactions))
	running := l.initialBalance
	for i, t := range l.transactions {
		running = running.Add(t.Amount)
		balances[i] = running
	}
	return series.GroupBy(l.occurredAt(), balances)
}

// Gain returns the credited part of each transaction, grouped by day.
func (l *Ledger) Gain() series.Observations {
	gains := make([]decimal.Decimal, len(l.transactions))
	for i, t := range l.transactions {
		gains[i] = t.Gain()
	}
	return series.GroupBy(l.occurredAt(), gains)
}

// Loss returns the debited magnitude of each transaction, grouped by day.
func (l *Ledger) Loss() series.Observations {
	losses := make([]decimal.Decimal, len(l.transactions))
	for i, t := range l.transactions {
		losses[i] = t.Loss()
	}
	return series.GroupBy(l.occurredAt(), losses)
}

// ByCategory returns signed amounts grouped by category then day. Categories
// are ordered by first appearance.
func (l *Ledger) ByCategory() []series.Breakdown {
	var result []series.Breakdown
	positions := make(map[string]int)
	for _, t := range l.transactions {
		i, ok := positions[t.Category]
		if !ok {
			i = len(result)
			positions[t.Category] = i
			result = append(result, series.Breakdown{Name: t.Category, Data: series.Observations{}})
		}
		result[i].Data[t.OccurredAt] = append(result[i].Data[t.OccurredAt], t.Amount)
	}
	return result
}

// BySubCategory returns signed amounts grouped by category, sub-category and
// day. Both levels are ordered by first appearance.
func (l *Ledger) BySubCategory() []series.CategoryBreakdown {
	var result []series.CategoryBreakdown
	categories := make(map[string]int)
	subCategories := make(map[[2]string]int)
	for _, t := range l.transactions {
		ci, ok := categories[t.Category]
		if !ok {
			ci = len(result)
			categories[t.Category] = ci
			result = append(result, series.CategoryBreakdown{Category: t.Category})
		}

		key := [2]string{t.Category, t.SubCategory}
		si, ok := subCategories[key]
		if !ok {
			si = len(result[ci].SubCategories)
			subCategories[key] = si
			result[ci].SubCategories = append(result[ci].SubCategories,
				series.Breakdown{Name: t.SubCategory, Data: series.Observations{}})
		}
		sub := result[ci].SubCategories[si]
		sub.Data[t.OccurredAt] = append(sub.Data[t.OccurredAt], t.Amount)
	}
	return result
}

// RowFormatter renders dates and amounts for the persisted row format.
type RowFormatter interface {
	FormatDate(d date.Date) string
	FormatSnapshotDate(d date.Date) string
	FormatAmount(amount decimal.Decimal) string
}

// ExportHeader is the leading cells of the persisted header row; the
// snapshot date follows.
var ExportHeader = []string{"Order", "Date", "Category", "Sub-category", "Label", "Amount", ""}

// ExportRows returns the persisted row format: a header carrying the
// snapshot date, a synthetic "initial" row numbered 0 dated one day before
// StartedAt, then one row per transaction numbered from 1.
func (l *Ledger) ExportRows(f RowFormatter) [][]string {
	rows := make([][]string, 0, len(l.transactions)+2)

	header := make([]string, 0, len(ExportHeader)+1)
	header = append(header, ExportHeader...)
	rows = append(rows, append(header, f.FormatSnapshotDate(l.snapshotAt)))

	initial := models.NewInitial(l.StartedAt().Add(-1), l.initialBalance)
	rows = append(rows, exportRow(0, initial, f))
	for i, t := range l.transactions {
		rows = append(rows, exportRow(i+1, t, f))
	}
	return rows
}

func exportRow(order int, t models.Transaction, f RowFormatter) []string {
	return []string{
		strconv.Itoa(order),
		f.FormatDate(t.OccurredAt),
		t.Category,
		t.SubCategory,
		t.Label,
		f.FormatAmount(t.Amount),
	}
}
