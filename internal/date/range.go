package date

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// Contains returns true if date is included in the range (boundaries included).
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Days returns every day of the range.
func (r Range) Days() []Date { return LinearRange(r.From, r.To) }

// Identifier returns a stable name for the range, usable in file names.
func (r Range) Identifier() string { return r.From.String() + "_" + r.To.String() }

// LinearRange returns every calendar day from start to end inclusive. It is
// empty when end is before start.
func LinearRange(start, end Date) []Date {
	return LinearRangeStep(start, end, 1)
}

// LinearRangeStep returns the dates start, start+days, ... up to the first
// point on or after end: ceil((end-start)/days)+1 points. The last point may
// overshoot end when the span is not a multiple of days.
func LinearRangeStep(start, end Date, days int) []Date {
	if days < 1 {
		days = 1
	}
	span := start.DaysUntil(end)
	if span < 0 {
		return nil
	}
	n := (span+days-1)/days + 1
	dates := make([]Date, n)
	for i := range dates {
		dates[i] = start.Add(i * days)
	}
	return dates
}

// AccountingTerms returns the first day of every month touched by
// [start, end], in order. It walks calendar months exactly.
func AccountingTerms(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	last := end.StartOfMonth()
	var dates []Date
	for d := start.StartOfMonth(); !d.After(last); d = d.AddMonths(1) {
		dates = append(dates, d)
	}
	return dates
}

// AccountingTermsApprox reproduces the fixed-delta month walk: from the first
// day of start's month it steps 31 days at a time, snapping each step to day
// 1, for ceil(days/30)+1 steps. Near long spans it may repeat or overshoot a
// month; use AccountingTerms unless output must match older reports.
func AccountingTermsApprox(start, end Date) []Date {
	termStart := start.StartOfMonth()
	span := termStart.DaysUntil(end)
	if span < 0 {
		return nil
	}
	n := (span+29)/30 + 1
	dates := make([]Date, n)
	for i := range dates {
		dates[i] = termStart.Add(31 * i).StartOfMonth()
	}
	return dates
}

// Terms splits consecutive accounting term dates into ranges
// [terms[i], terms[i+1]].
func Terms(terms []Date) []Range {
	if len(terms) < 2 {
		return nil
	}
	ranges := make([]Range, 0, len(terms)-1)
	for i := 1; i < len(terms); i++ {
		ranges = append(ranges, Range{From: terms[i-1], To: terms[i]})
	}
	return ranges
}
