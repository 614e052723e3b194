package synthesis

import (
	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/series"
)

// CategorySeries is the cumulated amount of one category over an axis
type CategorySeries struct {
	Name      string            `json:"name"`
	Cumulated []decimal.Decimal `json:"cumulated"`
	Total     decimal.Decimal   `json:"total"`
}

// Slice is one category's share of a pie or bar view
type Slice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Share decimal.Decimal `json:"share"`
}

// Repartition splits categories into those that ever ran positive and those
// that never did. Negative series are inverted so both groups stack upwards.
type Repartition struct {
	Title    string           `json:"title"`
	Positive []CategorySeries `json:"positive"`
	Negative []CategorySeries `json:"negative"`
}

// NewRepartition cumulates the aggregate of every breakdown on axis
func NewRepartition(title string, breakdowns []series.Breakdown, axis []date.Date) (*Repartition, error) {
	r := &Repartition{Title: title}
	for _, b := range breakdowns {
		aggregated, err := series.Aggregate(axis, b.Data)
		if err != nil {
			return nil, err
		}
		cumulated, err := series.Cumulate(aggregated)
		if err != nil {
			return nil, err
		}

		if series.Max(cumulated).IsPositive() {
			r.Positive = append(r.Positive, CategorySeries{
				Name:      b.Name,
				Cumulated: cumulated,
				Total:     series.Last(cumulated),
			})
			continue
		}
		inverted := series.Invert(cumulated)
		r.Negative = append(r.Negative, CategorySeries{
			Name:      b.Name,
			Cumulated: inverted,
			Total:     series.Last(inverted),
		})
	}
	return r, nil
}

// Slices returns the shares shown in a pie view: spending categories when
// they add up to something, income categories otherwise.
func (r *Repartition) Slices() []Slice {
	if slices := shares(r.Negative); slices != nil {
		return slices
	}
	return shares(r.Positive)
}

// Bars returns the totals shown in a bar view: spending categories when there
// are any, income categories otherwise.
func (r *Repartition) Bars() []Slice {
	group := r.Negative
	if len(group) == 0 {
		group = r.Positive
	}
	bars := make([]Slice, len(group))
	for i, c := range group {
		bars[i] = Slice{Name: c.Name, Value: c.Total}
	}
	return bars
}

func shares(group []CategorySeries) []Slice {
	total := decimal.Zero
	for _, c := range group {
		total = total.Add(c.Total)
	}
	if !total.IsPositive() {
		return nil
	}

	slices := make([]Slice, len(group))
	for i, c := range group {
		slices[i] = Slice{Name: c.Name, Value: c.Total, Share: c.Total.Div(total)}
	}
	return slices
}
