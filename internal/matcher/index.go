package matcher

import (
	"ledgermerge/internal/date"
	"ledgermerge/internal/models"
)

// identityKey buckets transactions by the comparable part of their identity.
// Amounts are compared with decimal.Equal inside a bucket, since "-20" and
// "-20.00" are the same amount but not the same string.
type identityKey struct {
	on    date.Date
	label string
}

func keyOf(tx models.Transaction) identityKey {
	return identityKey{on: tx.OccurredAt, label: tx.Label}
}

// TransactionIndex provides efficient identity lookups over a ledger
type TransactionIndex struct {
	// Identity maps (date, label) to positions in AllTransactions, in ledger order
	Identity map[identityKey][]int

	// AllTransactions holds all indexed transactions
	AllTransactions []models.Transaction
}

// NewTransactionIndex creates a new transaction index from a slice of transactions
func NewTransactionIndex(transactions []models.Transaction) *TransactionIndex {
	index := &TransactionIndex{
		Identity:        make(map[identityKey][]int),
		AllTransactions: transactions,
	}

	for i, tx := range transactions {
		key := keyOf(tx)
		index.Identity[key] = append(index.Identity[key], i)
	}
	return index
}

// GetSame returns the positions of every indexed transaction that is the same
// event as tx, in ledger order.
func (ti *TransactionIndex) GetSame(tx models.Transaction) []int {
	var result []int
	for _, i := range ti.Identity[keyOf(tx)] {
		if ti.AllTransactions[i].IsSame(tx) {
			result = append(result, i)
		}
	}
	return result
}

// Contains reports whether some indexed transaction is the same event as tx.
func (ti *TransactionIndex) Contains(tx models.Transaction) bool {
	for _, i := range ti.Identity[keyOf(tx)] {
		if ti.AllTransactions[i].IsSame(tx) {
			return true
		}
	}
	return false
}

// GetIndexStats returns statistics about the transaction index
func (ti *TransactionIndex) GetIndexStats() IndexStats {
	return IndexStats{
		TotalTransactions: len(ti.AllTransactions),
		UniqueIdentities:  len(ti.Identity),
	}
}

// IndexStats provides statistics about index usage. UniqueIdentities counts
// the distinct (date, label) buckets.
type IndexStats struct {
	TotalTransactions int
	UniqueIdentities  int
}
