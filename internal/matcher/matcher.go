package matcher

import (
	"ledgermerge/internal/models"
)

// MatchingEngine pairs base and incoming transactions by identity
type MatchingEngine struct {
	Config *MatchingConfig
}

// Pair links a base row to the incoming row that matched it
type Pair struct {
	BaseIndex     int
	IncomingIndex int
}

// MatchResult represents the result of matching two transaction lists
type MatchResult struct {
	// BaseMatched[i] is true when base row i has a match in incoming
	BaseMatched []bool
	// IncomingMatched[j] is true when incoming row j has a match in base
	IncomingMatched []bool
	// Pairs lists one-to-one pairings; in existence mode a row may appear in several pairs
	Pairs []Pair
	// Duplicates lists groups of identical rows found inside either ledger
	Duplicates []DuplicateGroup
	Summary    MatchSummary
}

// MatchSummary provides aggregate statistics about a match
type MatchSummary struct {
	Mode               Mode
	TotalBase          int
	TotalIncoming      int
	MatchedBase        int
	MatchedIncoming    int
	UnmatchedBase      int
	UnmatchedIncoming  int
	BaseDuplicates     int
	IncomingDuplicates int
	BaseIdentities     int
	IncomingIdentities int
}

// NewMatchingEngine creates a new matching engine with the specified configuration
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &MatchingEngine{
		Config: config,
	}
}

// Match determines, for every base and incoming row, whether it has an
// identity match on the other side.
func (me *MatchingEngine) Match(base, incoming []models.Transaction) *MatchResult {
	result := &MatchResult{
		BaseMatched:     make([]bool, len(base)),
		IncomingMatched: make([]bool, len(incoming)),
	}

	baseIndex := NewTransactionIndex(base)
	incomingIndex := NewTransactionIndex(incoming)

	switch me.Config.Mode {
	case Existence:
		for j, tx := range incoming {
			same := baseIndex.GetSame(tx)
			for _, i := range same {
				result.Pairs = append(result.Pairs, Pair{BaseIndex: i, IncomingIndex: j})
			}
			result.IncomingMatched[j] = len(same) > 0
		}
		for i, tx := range base {
			result.BaseMatched[i] = incomingIndex.Contains(tx)
		}
	default:
		for j, tx := range incoming {
			for _, i := range baseIndex.GetSame(tx) {
				if result.BaseMatched[i] {
					continue
				}
				result.BaseMatched[i] = true
				result.IncomingMatched[j] = true
				result.Pairs = append(result.Pairs, Pair{BaseIndex: i, IncomingIndex: j})
				break
			}
		}
	}

	if me.Config.DetectDuplicates {
		baseGroups := DetectDuplicates(SideBase, base)
		incomingGroups := DetectDuplicates(SideIncoming, incoming)
		result.Duplicates = append(baseGroups, incomingGroups...)
		result.Summary.BaseDuplicates = len(baseGroups)
		result.Summary.IncomingDuplicates = len(incomingGroups)
	}

	result.Summary.Mode = me.Config.Mode
	result.Summary.TotalBase = len(base)
	result.Summary.TotalIncoming = len(incoming)
	result.Summary.MatchedBase = countTrue(result.BaseMatched)
	result.Summary.MatchedIncoming = countTrue(result.IncomingMatched)
	result.Summary.UnmatchedBase = len(base) - result.Summary.MatchedBase
	result.Summary.UnmatchedIncoming = len(incoming) - result.Summary.MatchedIncoming
	result.Summary.BaseIdentities = baseIndex.GetIndexStats().UniqueIdentities
	result.Summary.IncomingIdentities = incomingIndex.GetIndexStats().UniqueIdentities

	return result
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
