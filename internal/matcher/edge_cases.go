package matcher

import (
	"fmt"

	"ledgermerge/internal/models"
)

// Side names the ledger a duplicate group was found in
type Side string

const (
	SideBase     Side = "base"
	SideIncoming Side = "incoming"
)

// DuplicateGroup represents identical rows within a single ledger. The
// identity rule cannot tell them apart, so how they pair with the other
// ledger depends on the matching mode.
type DuplicateGroup struct {
	Side      Side
	Positions []int
	Sample    models.Transaction
	Reason    string
}

// DetectDuplicates identifies groups of rows that are the same event within
// one ledger. Groups are returned in order of their first row.
func DetectDuplicates(side Side, transactions []models.Transaction) []DuplicateGroup {
	index := NewTransactionIndex(transactions)
	processed := make([]bool, len(transactions))

	var groups []DuplicateGroup
	for i, tx := range transactions {
		if processed[i] {
			continue
		}
		same := index.GetSame(tx)
		for _, j := range same {
			processed[j] = true
		}
		if len(same) > 1 {
			groups = append(groups, DuplicateGroup{
				Side:      side,
				Positions: same,
				Sample:    tx,
				Reason:    fmt.Sprintf("%d identical rows on %s labelled %q for %s", len(same), tx.OccurredAt, tx.Label, tx.Amount),
			})
		}
	}
	return groups
}
