// Package synthesis prepares the series a report renders for a ledger: the
// cash flow over a date axis and the repartition of amounts by category and
// sub-category. Charts themselves are drawn outside of this module.
package synthesis

import (
	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/series"
	"ledgermerge/pkg/errors"
)

// Options controls how syntheses are built
type Options struct {
	// Smoothing is the moving-average period applied to the balance; values
	// of 1 or less disable smoothing.
	Smoothing int `json:"smoothing"`
	// StepDays is the spacing of the date axis.
	StepDays int `json:"step_days"`
	// ApproxTerms selects the legacy 31-day accounting term walk.
	ApproxTerms bool `json:"approx_terms"`
}

// DefaultOptions returns a daily axis without smoothing
func DefaultOptions() Options {
	return Options{StepDays: 1}
}

// Synthesis is every series of one report page set
type Synthesis struct {
	Range         date.Range     `json:"range"`
	Axis          []date.Date    `json:"axis"`
	CashFlow      *CashFlow      `json:"cash_flow"`
	Categories    *Repartition   `json:"categories"`
	SubCategories []*Repartition `json:"sub_categories"`
}

// Title names the synthesis after its range
func (s *Synthesis) Title() string {
	return s.Range.From.String() + " to " + s.Range.To.String()
}

// Axis returns the date axis covering r with the configured step
func (o Options) Axis(r date.Range) []date.Date {
	return date.LinearRangeStep(r.From, r.To, o.StepDays)
}

// Build computes the synthesis of l over axis
func Build(l *ledger.Ledger, axis []date.Date, opts Options) (*Synthesis, error) {
	if len(axis) == 0 {
		return nil, errors.SeriesError(errors.CodeEmptySeries, "synthesis", nil).
			WithContext("snapshot_at", l.SnapshotAt().String())
	}

	cashFlow, err := NewCashFlow(l, axis, opts.Smoothing)
	if err != nil {
		return nil, err
	}

	categories, err := NewRepartition("Categories", l.ByCategory(), axis)
	if err != nil {
		return nil, err
	}

	breakdowns := l.BySubCategory()
	subCategories := make([]*Repartition, 0, len(breakdowns))
	for _, b := range breakdowns {
		r, err := NewRepartition(b.Category, b.SubCategories, axis)
		if err != nil {
			return nil, err
		}
		subCategories = append(subCategories, r)
	}

	return &Synthesis{
		Range:         date.Range{From: axis[0], To: axis[len(axis)-1]},
		Axis:          axis,
		CashFlow:      cashFlow,
		Categories:    categories,
		SubCategories: subCategories,
	}, nil
}

// Ranges returns the whole range of l followed by one range per pair of
// consecutive accounting term dates.
func Ranges(l *ledger.Ledger, opts Options) []date.Range {
	start, end := l.StartedAt(), l.EndedAt()

	var terms []date.Date
	if opts.ApproxTerms {
		terms = date.AccountingTermsApprox(start, end)
	} else {
		terms = date.AccountingTerms(start, end)
	}

	return append([]date.Range{{From: start, To: end}}, date.Terms(terms)...)
}

// ForRange builds the synthesis of l restricted to r. Earlier transactions
// only contribute to the opening balance. A stepped axis may end after r.To;
// the window then extends to its last point.
func ForRange(l *ledger.Ledger, r date.Range, opts Options) (*Synthesis, error) {
	axis := opts.Axis(r)
	if len(axis) > 0 {
		r.To = date.Max(r.To, axis[len(axis)-1])
	}
	return Build(l.Window(r), axis, opts)
}

// Terms builds the synthesis of every range returned by Ranges
func Terms(l *ledger.Ledger, opts Options) ([]*Synthesis, error) {
	ranges := Ranges(l, opts)
	result := make([]*Synthesis, 0, len(ranges))
	for _, r := range ranges {
		s, err := ForRange(l, r, opts)
		if err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategorySeries, errors.CodeProcessingError, "failed to build synthesis").
				WithContext("range", r.Identifier())
		}
		result = append(result, s)
	}
	return result, nil
}

// Final returns the last value of data, the figure shown next to a curve.
func Final(data []decimal.Decimal) decimal.Decimal {
	return series.Last(data)
}
