package reconciler

import (
	"context"
	"time"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/parsers"
	"ledgermerge/internal/synthesis"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// Merge reads both files, merges the import snapshot into the current ledger
// and writes the result. Nothing is written when any step fails.
func (s *Service) Merge(ctx context.Context, request *MergeRequest) (summary *MergeSummary, err error) {
	startTime := time.Now()
	defer func() {
		if err != nil {
			s.recorder.ObserveFailure(errorCode(err))
		}
	}()

	if err := request.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "merge_request", request.ImportFile, err).
			WithSuggestion("Provide both --import and --current file paths")
	}

	log := s.logger.WithFields(logger.Fields{
		"run_id":       request.RunID,
		"import_file":  request.ImportFile,
		"current_file": request.CurrentFile,
	})
	op := logger.NewOperationLogger("merge", log)

	op.Step("load_import")
	incoming, importStats, err := s.parser.LoadImport(ctx, request.ImportFile)
	if err != nil {
		op.Error(err, "Failed to load import snapshot")
		return nil, err
	}
	if err := checkContext(ctx, "merge"); err != nil {
		return nil, err
	}

	op.Step("load_current")
	base, currentStats, err := s.parser.LoadCurrent(ctx, request.CurrentFile)
	if err != nil {
		op.Error(err, "Failed to load current ledger")
		return nil, err
	}
	if err := checkContext(ctx, "merge"); err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"import_stats":  importStats.String(),
		"current_stats": currentStats.String(),
	}).Debug("Loaded both ledgers")

	matching := s.config.Matching
	if request.Matching != nil {
		matching = request.Matching
	}

	op.Step("merge")
	result, err := ledger.Merge(base, incoming, ledger.WithMatchingConfig(matching))
	if err != nil {
		op.Error(err, "Failed to merge ledgers")
		return nil, err
	}

	match := result.Match.Summary
	log.WithFields(logger.Fields{
		"mode":                match.Mode.String(),
		"matched_base":        match.MatchedBase,
		"unmatched_incoming":  match.UnmatchedIncoming,
		"base_identities":     match.BaseIdentities,
		"incoming_identities": match.IncomingIdentities,
	}).Debug("Matched import rows against the current ledger")

	if len(result.Dropped) > 0 {
		log.WithFields(logger.Fields{
			"dropped":  len(result.Dropped),
			"ended_at": base.EndedAt().String(),
		}).Warn("Ignored import rows dated inside the current ledger without a match")
	}
	if groups := result.Match.Duplicates; len(groups) > 0 {
		log.WithField("groups", len(groups)).Info("Identical rows found inside a ledger")
	}

	summary = newMergeSummary(request, base, incoming, result)
	summary.Duplicates = len(result.Match.Duplicates)

	if !request.DryRun {
		if err := checkContext(ctx, "merge"); err != nil {
			return nil, err
		}

		op.Step("save")
		backup := s.config.Backup && summary.OutputFile == request.CurrentFile
		if err := s.parser.SaveCurrent(summary.OutputFile, result.Ledger, backup); err != nil {
			op.Error(err, "Failed to write merged ledger")
			return nil, err
		}
		summary.Written = true
		if backup {
			summary.BackupFile = summary.OutputFile + parsers.BackupSuffix
		}
	}

	summary.Duration = time.Since(startTime)
	if !summary.BalanceDrift().IsZero() {
		log.WithFields(logger.Fields{
			"final_balance":    summary.FinalBalance.String(),
			"imported_balance": summary.ImportedBalance.String(),
		}).Warn("Merged balance differs from the balance stated by the import")
	}

	s.recorder.ObserveMerge(summary.Partitions(), summary.FinalBalance, summary.Duration)
	op.WithField("retained", summary.Retained).
		WithField("updated", summary.Updated).
		WithField("new", summary.New).
		Success("Merged import snapshot")
	return summary, nil
}

func newMergeSummary(request *MergeRequest, base, incoming *ledger.Ledger, result *ledger.MergeResult) *MergeSummary {
	merged := result.Ledger
	return &MergeSummary{
		RunID:            request.RunID,
		ImportFile:       request.ImportFile,
		CurrentFile:      request.CurrentFile,
		OutputFile:       request.output(),
		Mode:             result.Match.Summary.Mode,
		BaseSnapshot:     base.SnapshotAt(),
		IncomingSnapshot: incoming.SnapshotAt(),
		StartedAt:        merged.StartedAt(),
		EndedAt:          merged.EndedAt(),
		Retained:         len(result.Retained),
		Updated:          len(result.Updated),
		New:              len(result.New),
		Dropped:          len(result.Dropped),
		Transactions:     merged.Len(),
		InitialBalance:   merged.InitialBalance(),
		FinalBalance:     merged.FinalBalance(),
		ImportedBalance:  incoming.FinalBalance(),
		ProcessedAt:      time.Now(),
	}
}

// Report reads the current ledger and builds its syntheses
func (s *Service) Report(ctx context.Context, request *ReportRequest) (*Report, error) {
	if err := request.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidData, "report_request", request.CurrentFile, err)
	}

	log := s.logger.WithFields(logger.Fields{
		"run_id":       request.RunID,
		"current_file": request.CurrentFile,
	})

	l, _, err := s.parser.LoadCurrent(ctx, request.CurrentFile)
	if err != nil {
		return nil, err
	}

	opts := s.config.Synthesis
	if request.Options != nil {
		opts = *request.Options
	}

	ranges := reportRanges(l, request, opts)
	tracker := logger.NewProgressTracker("report", len(ranges), log)

	syntheses := make([]*synthesis.Synthesis, 0, len(ranges))
	for _, r := range ranges {
		if err := checkContext(ctx, "report"); err != nil {
			return nil, err
		}
		syn, err := synthesis.ForRange(l, r, opts)
		if err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategorySeries, errors.CodeProcessingError, "failed to build synthesis").
				WithContext("range", r.Identifier())
		}
		syntheses = append(syntheses, syn)
		tracker.Advance(r.Identifier())
	}
	tracker.Complete()

	return &Report{
		RunID:          request.RunID,
		Source:         request.CurrentFile,
		SnapshotAt:     l.SnapshotAt(),
		InitialBalance: l.InitialBalance(),
		FinalBalance:   l.FinalBalance(),
		Transactions:   l.Len(),
		Syntheses:      syntheses,
		GeneratedAt:    time.Now(),
	}, nil
}

// reportRanges returns the requested range, or the whole ledger, followed by
// the accounting terms inside it when requested.
func reportRanges(l *ledger.Ledger, request *ReportRequest, opts synthesis.Options) []date.Range {
	whole := date.Range{From: l.StartedAt(), To: l.EndedAt()}
	source := l
	if request.Range != nil {
		whole = *request.Range
		source = l.Window(whole)
	}

	if !request.Terms {
		return []date.Range{whole}
	}
	ranges := synthesis.Ranges(source, opts)
	ranges[0] = whole
	return ranges
}

func checkContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return errors.InternalError(errors.CodeCancelled, operation, err)
	}
	return nil
}

func errorCode(err error) errors.ErrorCode {
	if ledgerErr, ok := errors.AsLedgerError(err); ok {
		return ledgerErr.Code
	}
	return errors.CodeUnexpectedError
}
