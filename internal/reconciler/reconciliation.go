// Package reconciler runs the merge and report workflows end to end.
//
// A merge reads an import snapshot exported by the bank and the current
// ledger file, merges them, and writes the merged ledger back (keeping a
// backup of the previous file). A report reads the current ledger and builds
// one synthesis for its whole range and one per accounting term.
//
// Example usage:
//
//	service, err := reconciler.NewService(reconciler.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	summary, err := service.Merge(ctx, &reconciler.MergeRequest{
//		ImportFile:  "export.xlsx",
//		CurrentFile: "ledger.csv",
//	})
package reconciler

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/matcher"
	"ledgermerge/internal/metrics"
	"ledgermerge/internal/parsers"
	"ledgermerge/internal/synthesis"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// Config holds configuration options for the service
type Config struct {
	Parse     *parsers.ParseConfig
	Matching  *matcher.MatchingConfig
	Synthesis synthesis.Options

	// Backup keeps the previous current file next to it before it is
	// overwritten.
	Backup bool
}

// DefaultConfig returns a default configuration for the service
func DefaultConfig() *Config {
	return &Config{
		Parse:     parsers.DefaultParseConfig(),
		Matching:  matcher.DefaultMatchingConfig(),
		Synthesis: synthesis.DefaultOptions(),
		Backup:    true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Parse == nil {
		return fmt.Errorf("parse configuration is required")
	}
	if err := c.Parse.Validate(); err != nil {
		return fmt.Errorf("invalid parse configuration: %w", err)
	}
	if c.Matching == nil {
		return fmt.Errorf("matching configuration is required")
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("invalid matching configuration: %w", err)
	}
	if c.Synthesis.StepDays < 1 {
		return fmt.Errorf("synthesis step must be at least one day, got %d", c.Synthesis.StepDays)
	}
	if c.Synthesis.Smoothing < 0 {
		return fmt.Errorf("smoothing period cannot be negative, got %d", c.Synthesis.Smoothing)
	}
	return nil
}

// MergeRequest represents a request to merge an import snapshot into the
// current ledger
type MergeRequest struct {
	ImportFile  string
	CurrentFile string
	// OutputFile defaults to CurrentFile. A backup is only taken when the
	// current file itself is overwritten.
	OutputFile string
	// Matching overrides the service matching configuration.
	Matching *matcher.MatchingConfig
	// DryRun merges without writing anything.
	DryRun bool
	RunID  string
}

// Validate validates the merge request
func (r *MergeRequest) Validate() error {
	if strings.TrimSpace(r.ImportFile) == "" {
		return fmt.Errorf("import file path is required")
	}
	if strings.TrimSpace(r.CurrentFile) == "" {
		return fmt.Errorf("current file path is required")
	}
	if filepath.Clean(r.ImportFile) == filepath.Clean(r.output()) {
		return fmt.Errorf("output file must differ from the import file")
	}
	if r.Matching != nil {
		if err := r.Matching.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *MergeRequest) output() string {
	if r.OutputFile != "" {
		return r.OutputFile
	}
	return r.CurrentFile
}

// MergeSummary reports what a merge did
type MergeSummary struct {
	RunID       string `json:"run_id,omitempty"`
	ImportFile  string `json:"import_file"`
	CurrentFile string `json:"current_file"`
	OutputFile  string `json:"output_file"`
	BackupFile  string `json:"backup_file,omitempty"`
	Written     bool   `json:"written"`

	Mode matcher.Mode `json:"mode"`

	BaseSnapshot     date.Date `json:"base_snapshot"`
	IncomingSnapshot date.Date `json:"incoming_snapshot"`
	StartedAt        date.Date `json:"started_at"`
	EndedAt          date.Date `json:"ended_at"`

	Retained     int `json:"retained"`
	Updated      int `json:"updated"`
	New          int `json:"new"`
	Dropped      int `json:"dropped"`
	Transactions int `json:"transactions"`
	Duplicates   int `json:"duplicates"`

	InitialBalance decimal.Decimal `json:"initial_balance"`
	FinalBalance   decimal.Decimal `json:"final_balance"`
	// ImportedBalance is the final balance stated by the import snapshot.
	ImportedBalance decimal.Decimal `json:"imported_balance"`

	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration"`
}

// BalanceDrift is the difference between the merged final balance and the
// balance stated by the bank. It is zero when both ledgers agree.
func (s *MergeSummary) BalanceDrift() decimal.Decimal {
	return s.FinalBalance.Sub(s.ImportedBalance)
}

// Partitions returns the partition sizes keyed by metric label
func (s *MergeSummary) Partitions() map[string]int {
	return map[string]int{
		metrics.PartitionRetained: s.Retained,
		metrics.PartitionUpdated:  s.Updated,
		metrics.PartitionNew:      s.New,
		metrics.PartitionDropped:  s.Dropped,
	}
}

// ReportRequest represents a request to build the syntheses of a ledger
type ReportRequest struct {
	CurrentFile string
	// Range restricts the report; the whole ledger is used when nil.
	Range *date.Range
	// Terms adds one synthesis per accounting term after the whole range.
	Terms bool
	// Options overrides the service synthesis options.
	Options *synthesis.Options
	RunID   string
}

// Validate validates the report request
func (r *ReportRequest) Validate() error {
	if strings.TrimSpace(r.CurrentFile) == "" {
		return fmt.Errorf("current file path is required")
	}
	if r.Range != nil && r.Range.To.Before(r.Range.From) {
		return fmt.Errorf("report range ends on %s before it starts on %s", r.Range.To, r.Range.From)
	}
	if r.Options != nil && r.Options.StepDays < 1 {
		return fmt.Errorf("synthesis step must be at least one day, got %d", r.Options.StepDays)
	}
	return nil
}

// Report is the set of syntheses built for a ledger
type Report struct {
	RunID          string                 `json:"run_id,omitempty"`
	Source         string                 `json:"source"`
	SnapshotAt     date.Date              `json:"snapshot_at"`
	InitialBalance decimal.Decimal        `json:"initial_balance"`
	FinalBalance   decimal.Decimal        `json:"final_balance"`
	Transactions   int                    `json:"transactions"`
	Syntheses      []*synthesis.Synthesis `json:"syntheses"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Service runs merges and reports
type Service struct {
	parser   *parsers.LedgerParser
	config   *Config
	recorder metrics.Recorder
	logger   logger.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRecorder sets the metrics recorder
func WithRecorder(recorder metrics.Recorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log.WithComponent("reconciler")
		}
	}
}

// NewService creates a new service
func NewService(config *Config, opts ...ServiceOption) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}

	parser, err := parsers.NewLedgerParser(config.Parse)
	if err != nil {
		return nil, err
	}

	s := &Service{
		parser:   parser,
		config:   config,
		recorder: metrics.NopRecorder{},
		logger:   logger.GetGlobalLogger().WithComponent("reconciler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetConfiguration returns the current configuration
func (s *Service) GetConfiguration() *Config {
	return s.config
}

// Parser returns the parser used to read and write ledgers
func (s *Service) Parser() *parsers.LedgerParser {
	return s.parser
}
