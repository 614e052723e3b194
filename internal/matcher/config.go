// Package matcher provides the identity matching used when reconciling two
// ledgers.
//
// Two transactions are the same economic event when they share date, label
// and amount; category and sub-category are ignored. The engine pairs rows of
// a base ledger with rows of an incoming ledger under one of two modes:
//   - Pairwise: multiset matching, each incoming row consumes at most one base
//     row and each base row is consumed at most once
//   - Existence: a row is matched as soon as any row on the other side is the
//     same event, so several identical rows can all match a single one
//
// Example usage:
//
//	engine := matcher.NewMatchingEngine(matcher.DefaultMatchingConfig())
//	result := engine.Match(base.Transactions(), incoming.Transactions())
//	for i, ok := range result.IncomingMatched { ... }
package matcher

import (
	"fmt"
	"strings"
)

// Mode defines how identical rows are paired between the two ledgers.
type Mode int

const (
	// Pairwise pairs identical rows one to one, in ledger order. Two genuine
	// same-day duplicates in the base need two copies in the incoming ledger
	// to both be matched.
	Pairwise Mode = iota

	// Existence matches a row if any row on the other side is the same event.
	Existence
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case Pairwise:
		return "pairwise"
	case Existence:
		return "existence"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseMode parses a matching mode name
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pairwise", "multiset":
		return Pairwise, nil
	case "existence", "any":
		return Existence, nil
	default:
		return Pairwise, fmt.Errorf("invalid matching mode '%s': must be pairwise or existence", s)
	}
}

// MatchingConfig holds configuration parameters for identity matching.
type MatchingConfig struct {
	// Mode selects pairwise or existence matching
	Mode Mode `json:"mode"`

	// DetectDuplicates reports groups of identical rows within one ledger
	DetectDuplicates bool `json:"detect_duplicates"`
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Mode:             Pairwise,
		DetectDuplicates: true,
	}
}

// LegacyMatchingConfig returns the existence-based configuration that
// reproduces ledgers produced by earlier tooling.
func LegacyMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Mode:             Existence,
		DetectDuplicates: true,
	}
}

// Validate validates the matching configuration
func (mc *MatchingConfig) Validate() error {
	switch mc.Mode {
	case Pairwise, Existence:
		return nil
	default:
		return fmt.Errorf("invalid matching mode: %d", mc.Mode)
	}
}

// Clone creates a copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	clone := *mc
	return &clone
}

// String returns a string representation of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Mode: %s, DetectDuplicates: %t}", mc.Mode, mc.DetectDuplicates)
}
