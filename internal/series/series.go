// Package series turns sparse, irregularly dated observations into dense
// sequences aligned on an explicit ascending date axis.
//
// Every function is pure: inputs are never modified and the returned slices
// are freshly allocated. Stock quantities such as a balance are sampled with
// Sample; flow quantities such as gains and losses are bucketed with
// Aggregate so that each observation is counted exactly once over the axis.
package series

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/pkg/errors"
)

// Observations maps a day to the values observed on it, in ledger order.
type Observations map[date.Date][]decimal.Decimal

// Breakdown is a named set of observations, such as one category.
type Breakdown struct {
	Name string
	Data Observations
}

// CategoryBreakdown groups the sub-category breakdowns of one category.
type CategoryBreakdown struct {
	Category      string
	SubCategories []Breakdown
}

// GroupBy groups values by key, preserving per-key insertion order. Extra
// keys or values beyond the shorter slice are ignored.
func GroupBy[K comparable, V any](keys []K, values []V) map[K][]V {
	grouped := make(map[K][]V)
	n := min(len(keys), len(values))
	for i := 0; i < n; i++ {
		grouped[keys[i]] = append(grouped[keys[i]], values[i])
	}
	return grouped
}

// sortedDays returns the observation days in ascending order.
func (o Observations) sortedDays() []date.Date {
	days := make([]date.Date, 0, len(o))
	for d := range o {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Total returns the sum of every observed value.
func (o Observations) Total() decimal.Decimal {
	total := decimal.Zero
	for _, values := range o {
		total = total.Add(sum(values))
	}
	return total
}

func checkAxis(operation string, axis []date.Date) error {
	if len(axis) == 0 {
		return errors.SeriesError(errors.CodeEmptySeries, operation, nil)
	}
	for i := 1; i < len(axis); i++ {
		if !axis[i].After(axis[i-1]) {
			return errors.SeriesError(errors.CodeUnsortedAxis, operation, nil).
				WithContext("index", i).
				WithContext("date", axis[i].String())
		}
	}
	return nil
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Sample performs last-observation-carried-forward sampling of data on axis.
// Each point takes the last value observed on the latest day at or before
// it; points before any observation are zero.
func Sample(axis []date.Date, data Observations) ([]decimal.Decimal, error) {
	if err := checkAxis("sample", axis); err != nil {
		return nil, err
	}

	days := data.sortedDays()
	result := make([]decimal.Decimal, len(axis))
	last := decimal.Zero
	next := 0
	for i, d := range axis {
		for next < len(days) && !days[next].After(d) {
			if values := data[days[next]]; len(values) > 0 {
				last = values[len(values)-1]
			}
			next++
		}
		result[i] = last
	}
	return result, nil
}

// Aggregate sums data into buckets aligned on axis. The first bucket holds
// every value dated on or before axis[0]; bucket i holds the values dated in
// (axis[i-1], axis[i]]. Values after the last axis date are not counted.
func Aggregate(axis []date.Date, data Observations) ([]decimal.Decimal, error) {
	if err := checkAxis("aggregate", axis); err != nil {
		return nil, err
	}

	days := data.sortedDays()
	result := make([]decimal.Decimal, len(axis))
	next := 0
	for i, d := range axis {
		bucket := decimal.Zero
		for next < len(days) && !days[next].After(d) {
			bucket = bucket.Add(sum(data[days[next]]))
			next++
		}
		result[i] = bucket
	}
	return result, nil
}

// Cumulate returns the running prefix sum of data. It requires at least one value.
func Cumulate(data []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(data) == 0 {
		return nil, errors.SeriesError(errors.CodeEmptySeries, "cumulate", nil)
	}

	result := make([]decimal.Decimal, len(data))
	result[0] = data[0]
	for i := 1; i < len(data); i++ {
		result[i] = result[i-1].Add(data[i])
	}
	return result, nil
}

// Smooth computes a centered moving average of width period. A margin of
// round(period/2) points at both ends is left at zero. A period of 1 or less
// returns a copy of data.
func Smooth(period int, data []decimal.Decimal) []decimal.Decimal {
	result := make([]decimal.Decimal, len(data))
	if period <= 1 {
		copy(result, data)
		return result
	}

	margin := int(math.Round(float64(period) / 2))
	width := decimal.NewFromInt(int64(period))
	for i := margin; i < len(data)-margin; i++ {
		start := i - period/2
		result[i] = sum(data[start : start+period]).Div(width)
	}
	return result
}

// Invert negates every value of data.
func Invert(data []decimal.Decimal) []decimal.Decimal {
	result := make([]decimal.Decimal, len(data))
	for i, v := range data {
		result[i] = v.Neg()
	}
	return result
}

// Sub returns a[i] - b[i] for every index.
func Sub(a, b []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(a) != len(b) {
		return nil, errors.SeriesError(errors.CodeLengthMismatch, "sub", nil).
			WithContext("left", len(a)).
			WithContext("right", len(b))
	}
	result := make([]decimal.Decimal, len(a))
	for i := range a {
		result[i] = a[i].Sub(b[i])
	}
	return result, nil
}

// Trend returns the least-squares linear fit of data evaluated at every
// index, assuming evenly spaced points.
func Trend(data []decimal.Decimal) []decimal.Decimal {
	n := len(data)
	result := make([]decimal.Decimal, n)
	if n <= 1 {
		copy(result, data)
		return result
	}

	var sx, sy, sxy, sxx decimal.Decimal
	for i, y := range data {
		x := decimal.NewFromInt(int64(i))
		sx = sx.Add(x)
		sy = sy.Add(y)
		sxy = sxy.Add(x.Mul(y))
		sxx = sxx.Add(x.Mul(x))
	}

	count := decimal.NewFromInt(int64(n))
	slope := count.Mul(sxy).Sub(sx.Mul(sy)).Div(count.Mul(sxx).Sub(sx.Mul(sx)))
	intercept := sy.Sub(slope.Mul(sx)).Div(count)
	for i := range result {
		result[i] = intercept.Add(slope.Mul(decimal.NewFromInt(int64(i))))
	}
	return result
}

// Max returns the largest value of data, or zero when data is empty.
func Max(data []decimal.Decimal) decimal.Decimal {
	if len(data) == 0 {
		return decimal.Zero
	}
	return decimal.Max(data[0], data[1:]...)
}

// Last returns the final value of data, or zero when data is empty.
func Last(data []decimal.Decimal) decimal.Decimal {
	if len(data) == 0 {
		return decimal.Zero
	}
	return data[len(data)-1]
}
