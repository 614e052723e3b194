// Package sample generates synthetic account histories and splits them into
// a current ledger and an overlapping import snapshot, the way two
// successive bank exports of the same account would look.
package sample

import (
	"fmt"
	"sort"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/models"
)

// Config controls the generated history
type Config struct {
	Seed  uint64
	Start date.Date
	// Days is the length of the whole history
	Days int
	// CurrentDays is the part of the history known to the current ledger,
	// counted from Start
	CurrentDays int
	// ImportDays is the part covered by the import snapshot, counted back
	// from the last day
	ImportDays     int
	Count          int
	MinAmount      float64
	MaxAmount      float64
	InitialBalance decimal.Decimal
	// DebitRatio is the share of transactions that are expenses
	DebitRatio float64
}

// DefaultConfig returns a quarter of history where the import snapshot
// overlaps the last month of the current ledger
func DefaultConfig() Config {
	return Config{
		Seed:           1,
		Start:          date.New(2023, 1, 1),
		Days:           90,
		CurrentDays:    60,
		ImportDays:     60,
		Count:          120,
		MinAmount:      2,
		MaxAmount:      400,
		InitialBalance: decimal.NewFromInt(1500),
		DebitRatio:     0.8,
	}
}

// Validate checks that the configuration describes two overlapping exports
func (c Config) Validate() error {
	if c.Start.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if c.Days < 2 {
		return fmt.Errorf("days must be at least 2, got %d", c.Days)
	}
	if c.CurrentDays < 1 || c.CurrentDays >= c.Days {
		return fmt.Errorf("current days must be between 1 and %d, got %d", c.Days-1, c.CurrentDays)
	}
	if c.ImportDays < 1 || c.ImportDays > c.Days {
		return fmt.Errorf("import days must be between 1 and %d, got %d", c.Days, c.ImportDays)
	}
	if c.CurrentDays+c.ImportDays < c.Days {
		return fmt.Errorf("current and import days leave a gap of %d days", c.Days-c.CurrentDays-c.ImportDays)
	}
	if c.Count < 0 {
		return fmt.Errorf("count cannot be negative, got %d", c.Count)
	}
	if c.MinAmount <= 0 || c.MaxAmount < c.MinAmount {
		return fmt.Errorf("invalid amount range [%v, %v]", c.MinAmount, c.MaxAmount)
	}
	if c.DebitRatio < 0 || c.DebitRatio > 1 {
		return fmt.Errorf("debit ratio must be between 0 and 1, got %v", c.DebitRatio)
	}
	return nil
}

// End is the last day of the history
func (c Config) End() date.Date {
	return c.Start.Add(c.Days - 1)
}

// Dataset holds a generated history and the two exports taken from it
type Dataset struct {
	History *ledger.Ledger
	Current *ledger.Ledger
	Import  *ledger.Ledger
}

var expenses = map[string][]string{
	"Alimentation": {"Supermarché", "Restaurant", "Boulangerie"},
	"Logement":     {"Loyer", "Electricité", "Assurance"},
	"Transport":    {"Carburant", "Train", "Parking"},
	"Loisirs":      {"Cinéma", "Sport", "Voyage"},
	"Santé":        {"Pharmacie", "Médecin"},
}

var incomes = map[string][]string{
	"Revenus": {"Salaire", "Remboursement", "Intérêts"},
}

// Generate builds a history from cfg. The same configuration always yields
// the same dataset.
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	faker := gofakeit.New(cfg.Seed)
	transactions := make([]models.Transaction, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		transactions = append(transactions, generateTransaction(faker, cfg))
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].OccurredAt.Before(transactions[j].OccurredAt)
	})

	end := cfg.End()
	history := ledger.New(cfg.InitialBalance, end, transactions)

	currentEnd := cfg.Start.Add(cfg.CurrentDays - 1)
	current := history.Window(date.Range{From: cfg.Start, To: currentEnd})
	current = ledger.New(current.InitialBalance(), currentEnd, current.Transactions())

	importStart := end.Add(1 - cfg.ImportDays)
	imported := history.Window(date.Range{From: importStart, To: end})

	return &Dataset{
		History: history,
		Current: current,
		Import:  imported,
	}, nil
}

func generateTransaction(faker *gofakeit.Faker, cfg Config) models.Transaction {
	occurredAt := cfg.Start.Add(faker.IntRange(0, cfg.Days-1))
	amount := decimal.NewFromFloat(faker.Price(cfg.MinAmount, cfg.MaxAmount)).Round(2)

	catalog, label := incomes, faker.Company()
	if faker.Float64Range(0, 1) < cfg.DebitRatio {
		catalog = expenses
		amount = amount.Neg()
	}

	category := faker.RandomString(sortedKeys(catalog))
	subCategory := faker.RandomString(catalog[category])
	return models.NewTransaction(occurredAt, category, subCategory, label, amount)
}

// sortedKeys keeps draws reproducible despite map iteration order
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
