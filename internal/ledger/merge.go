package ledger

import (
	"ledgermerge/internal/matcher"
	"ledgermerge/internal/models"
	"ledgermerge/pkg/errors"
)

// MergeResult holds the merged ledger and the partitions it was built from.
type MergeResult struct {
	Ledger *Ledger

	// Retained are base rows with no identity match in incoming
	Retained []models.Transaction
	// Updated are incoming rows that matched a base row and replace it
	Updated []models.Transaction
	// New are unmatched incoming rows dated after the base ledger's last day
	New []models.Transaction
	// Dropped are unmatched incoming rows dated on or before the base
	// ledger's last day; they are treated as out-of-window noise
	Dropped []models.Transaction

	Match *matcher.MatchResult
}

type mergeOptions struct {
	matching *matcher.MatchingConfig
}

// MergeOption configures Merge.
type MergeOption func(*mergeOptions)

// WithMatchingConfig sets the identity matching configuration.
func WithMatchingConfig(config *matcher.MatchingConfig) MergeOption {
	return func(o *mergeOptions) {
		if config != nil {
			o.matching = config
		}
	}
}

// WithMode sets the identity matching mode.
func WithMode(mode matcher.Mode) MergeOption {
	return func(o *mergeOptions) {
		o.matching = o.matching.Clone()
		o.matching.Mode = mode
	}
}

// Merge combines base with a newer incoming snapshot. The result keeps
// base's opening balance and takes incoming's snapshot date. Its
// transactions are the retained, updated and new partitions concatenated,
// then stable-sorted by date: days come out in chronological order and
// within a day rows keep the retained, updated, new order.
//
// Merging an older snapshot into a newer one fails with an ordering
// violation.
func Merge(base, incoming *Ledger, opts ...MergeOption) (*MergeResult, error) {
	if incoming.snapshotAt.Before(base.snapshotAt) {
		return nil, errors.ReconciliationError(errors.CodeOrderingViolation, "merge", nil).
			WithContext("base_snapshot", base.snapshotAt.String()).
			WithContext("incoming_snapshot", incoming.snapshotAt.String())
	}

	options := mergeOptions{matching: matcher.DefaultMatchingConfig()}
	for _, opt := range opts {
		opt(&options)
	}

	match := matcher.NewMatchingEngine(options.matching).Match(base.transactions, incoming.transactions)
	result := &MergeResult{Match: match}

	for i, t := range base.transactions {
		if !match.BaseMatched[i] {
			result.Retained = append(result.Retained, t)
		}
	}

	lastKnown := base.EndedAt()
	for j, t := range incoming.transactions {
		switch {
		case match.IncomingMatched[j]:
			result.Updated = append(result.Updated, t)
		case t.OccurredAt.After(lastKnown):
			result.New = append(result.New, t)
		default:
			result.Dropped = append(result.Dropped, t)
		}
	}

	merged := make([]models.Transaction, 0, len(result.Retained)+len(result.Updated)+len(result.New))
	merged = append(merged, result.Retained...)
	merged = append(merged, result.Updated...)
	merged = append(merged, result.New...)

	result.Ledger = New(base.initialBalance, incoming.snapshotAt, merged)
	return result, nil
}
