package synthesis

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/models"
	"ledgermerge/pkg/errors"
)

func d(day int) date.Date { return date.New(2023, 1, day) }

func decimals(values ...int64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(values))
	for i, v := range values {
		result[i] = decimal.NewFromInt(v)
	}
	return result
}

func assertSeries(t *testing.T, name string, got, want []decimal.Decimal) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d points, got %d (%v)", name, len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("%s[%d] = %s, want %s", name, i, got[i], want[i])
		}
	}
}

func testLedger() *ledger.Ledger {
	return ledger.New(decimal.NewFromInt(100), d(10), []models.Transaction{
		models.NewTransaction(d(2), "food", "groceries", "shop", decimal.NewFromInt(-20)),
		models.NewTransaction(d(3), "income", "salary", "pay", decimal.NewFromInt(50)),
		models.NewTransaction(d(5), "food", "restaurant", "dinner", decimal.NewFromInt(-10)),
	})
}

func TestNewCashFlow(t *testing.T) {
	axis := date.LinearRange(d(1), d(5))

	cf, err := NewCashFlow(testLedger(), axis, 0)
	if err != nil {
		t.Fatalf("NewCashFlow() error = %v", err)
	}

	assertSeries(t, "balance", cf.Balance, decimals(100, 80, 130, 130, 120))
	assertSeries(t, "gain", cf.Gain, decimals(0, 0, 50, 0, 0))
	assertSeries(t, "loss", cf.Loss, decimals(0, 20, 0, 0, 10))
	assertSeries(t, "cumulated gain", cf.CumulatedGain, decimals(0, 0, 50, 50, 50))
	assertSeries(t, "cumulated loss", cf.CumulatedLoss, decimals(0, 20, 20, 20, 30))
	assertSeries(t, "cumulated pnl", cf.CumulatedPnL, decimals(0, -20, 30, 30, 20))
	assertSeries(t, "trend", cf.BalanceTrend, decimals(94, 103, 112, 121, 130))

	if cf.SmoothedBalance != nil {
		t.Error("expected no smoothed balance without smoothing")
	}
}

func TestNewCashFlow_Smoothing(t *testing.T) {
	axis := date.LinearRange(d(1), d(5))

	cf, err := NewCashFlow(testLedger(), axis, 3)
	if err != nil {
		t.Fatalf("NewCashFlow() error = %v", err)
	}

	want := []decimal.Decimal{
		decimal.Zero,
		decimal.Zero,
		decimal.NewFromInt(340).Div(decimal.NewFromInt(3)),
		decimal.Zero,
		decimal.Zero,
	}
	assertSeries(t, "smoothed", cf.SmoothedBalance, want)
}

func TestNewRepartition(t *testing.T) {
	axis := date.LinearRange(d(1), d(5))
	l := testLedger()

	r, err := NewRepartition("Categories", l.ByCategory(), axis)
	if err != nil {
		t.Fatalf("NewRepartition() error = %v", err)
	}

	if len(r.Positive) != 1 || r.Positive[0].Name != "income" {
		t.Fatalf("expected income to be positive, got %+v", r.Positive)
	}
	assertSeries(t, "income", r.Positive[0].Cumulated, decimals(0, 0, 50, 50, 50))

	if len(r.Negative) != 1 || r.Negative[0].Name != "food" {
		t.Fatalf("expected food to be negative, got %+v", r.Negative)
	}
	assertSeries(t, "food", r.Negative[0].Cumulated, decimals(0, 20, 20, 20, 30))
	if !r.Negative[0].Total.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected food total 30, got %s", r.Negative[0].Total)
	}

	slices := r.Slices()
	if len(slices) != 1 || slices[0].Name != "food" || !slices[0].Share.Equal(decimal.NewFromInt(1)) {
		t.Errorf("unexpected slices %+v", slices)
	}
	bars := r.Bars()
	if len(bars) != 1 || !bars[0].Value.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected bars %+v", bars)
	}
}

func TestRepartition_Shares(t *testing.T) {
	r := &Repartition{
		Positive: []CategorySeries{{Name: "salary", Total: decimal.NewFromInt(50)}},
		Negative: []CategorySeries{
			{Name: "groceries", Total: decimal.NewFromInt(20)},
			{Name: "restaurant", Total: decimal.NewFromInt(10)},
		},
	}

	slices := r.Slices()
	if len(slices) != 2 {
		t.Fatalf("expected 2 slices, got %d", len(slices))
	}
	want := decimal.NewFromInt(20).Div(decimal.NewFromInt(30))
	if !slices[0].Share.Equal(want) {
		t.Errorf("expected share %s, got %s", want, slices[0].Share)
	}

	onlyIncome := &Repartition{Positive: r.Positive, Negative: []CategorySeries{{Name: "refund", Total: decimal.Zero}}}
	slices = onlyIncome.Slices()
	if len(slices) != 1 || slices[0].Name != "salary" {
		t.Errorf("expected income slices when spending adds up to zero, got %+v", slices)
	}
	if bars := onlyIncome.Bars(); len(bars) != 1 || bars[0].Name != "refund" {
		t.Errorf("expected spending bars whenever present, got %+v", bars)
	}
}

func TestBuild(t *testing.T) {
	axis := date.LinearRange(d(1), d(5))

	s, err := Build(testLedger(), axis, DefaultOptions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if s.Range != (date.Range{From: d(1), To: d(5)}) {
		t.Errorf("unexpected range %v", s.Range)
	}
	if s.Title() != "2023-01-01 to 2023-01-05" {
		t.Errorf("unexpected title %q", s.Title())
	}
	if len(s.SubCategories) != 2 || s.SubCategories[0].Title != "food" {
		t.Fatalf("expected food then income sub-categories, got %d", len(s.SubCategories))
	}
	food := s.SubCategories[0]
	if len(food.Negative) != 2 || food.Negative[0].Name != "groceries" || food.Negative[1].Name != "restaurant" {
		t.Errorf("unexpected food sub-categories %+v", food.Negative)
	}

	if _, err := Build(testLedger(), nil, DefaultOptions()); !errors.HasCode(err, errors.CodeEmptySeries) {
		t.Errorf("expected empty_series for empty axis, got %v", err)
	}
}

func TestForRange(t *testing.T) {
	s, err := ForRange(testLedger(), date.Range{From: d(4), To: d(5)}, DefaultOptions())
	if err != nil {
		t.Fatalf("ForRange() error = %v", err)
	}

	assertSeries(t, "balance", s.CashFlow.Balance, decimals(130, 120))
	assertSeries(t, "loss", s.CashFlow.Loss, decimals(0, 10))
	assertSeries(t, "gain", s.CashFlow.Gain, decimals(0, 0))
}

func TestForRange_SteppedAxisPastRangeEnd(t *testing.T) {
	l := ledger.New(decimal.NewFromInt(100), d(20), []models.Transaction{
		models.NewTransaction(d(1), "income", "", "a", decimal.NewFromInt(10)),
		models.NewTransaction(d(12), "income", "", "b", decimal.NewFromInt(30)),
	})
	opts := DefaultOptions()
	opts.StepDays = 7

	s, err := ForRange(l, date.Range{From: d(1), To: d(10)}, opts)
	if err != nil {
		t.Fatalf("ForRange() error = %v", err)
	}

	if len(s.Axis) != 3 || s.Axis[2] != d(15) {
		t.Fatalf("unexpected axis %v", s.Axis)
	}
	assertSeries(t, "balance", s.CashFlow.Balance, decimals(110, 110, 140))
	assertSeries(t, "gain", s.CashFlow.Gain, decimals(10, 0, 30))
}

func TestRangesAndTerms(t *testing.T) {
	l := ledger.New(decimal.Zero, date.New(2023, 3, 12), []models.Transaction{
		models.NewTransaction(date.New(2023, 1, 15), "", "", "a", decimal.NewFromInt(10)),
		models.NewTransaction(date.New(2023, 2, 10), "", "", "b", decimal.NewFromInt(-5)),
		models.NewTransaction(date.New(2023, 3, 10), "", "", "c", decimal.NewFromInt(7)),
	})

	ranges := Ranges(l, DefaultOptions())
	want := []date.Range{
		{From: date.New(2023, 1, 15), To: date.New(2023, 3, 10)},
		{From: date.New(2023, 1, 1), To: date.New(2023, 2, 1)},
		{From: date.New(2023, 2, 1), To: date.New(2023, 3, 1)},
	}
	if len(ranges) != len(want) {
		t.Fatalf("expected %d ranges, got %v", len(want), ranges)
	}
	for i := range want {
		if ranges[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, ranges[i], want[i])
		}
	}

	syntheses, err := Terms(l, DefaultOptions())
	if err != nil {
		t.Fatalf("Terms() error = %v", err)
	}
	if len(syntheses) != 3 {
		t.Fatalf("expected 3 syntheses, got %d", len(syntheses))
	}
	if got := Final(syntheses[0].CashFlow.Balance); !got.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected final balance 12, got %s", got)
	}
	if len(syntheses[1].Axis) != 32 {
		t.Errorf("expected 32 days in January term, got %d", len(syntheses[1].Axis))
	}
}

func TestTerms_EmptyLedger(t *testing.T) {
	l := ledger.New(decimal.NewFromInt(100), d(10), nil)

	syntheses, err := Terms(l, DefaultOptions())
	if err != nil {
		t.Fatalf("Terms() error = %v", err)
	}
	if len(syntheses) != 1 {
		t.Fatalf("expected only the whole range, got %d", len(syntheses))
	}
	assertSeries(t, "balance", syntheses[0].CashFlow.Balance, decimals(100))
	if syntheses[0].Categories.Slices() != nil {
		t.Error("expected no slices for an empty ledger")
	}
}
