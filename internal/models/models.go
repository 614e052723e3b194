package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
)

// InitialLabel is the label of the synthetic opening-balance row.
const InitialLabel = "initial"

// Transaction represents a single dated, categorized, signed monetary movement.
// Positive amounts are credits (gains), negative amounts are debits (losses).
type Transaction struct {
	OccurredAt  date.Date       `json:"occurredAt"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory"`
	Label       string          `json:"label"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewTransaction creates a new Transaction value
func NewTransaction(occurredAt date.Date, category, subCategory, label string, amount decimal.Decimal) Transaction {
	return Transaction{
		OccurredAt:  occurredAt,
		Category:    category,
		SubCategory: subCategory,
		Label:       label,
		Amount:      amount,
	}
}

// NewInitial creates the synthetic opening-balance transaction
func NewInitial(occurredAt date.Date, amount decimal.Decimal) Transaction {
	return Transaction{
		OccurredAt: occurredAt,
		Label:      InitialLabel,
		Amount:     amount,
	}
}

// IsInitial returns true if the transaction is the synthetic opening-balance row
func (t Transaction) IsInitial() bool {
	return t.Label == InitialLabel
}

// IsSame reports whether t and other are the same economic event: same date,
// same label and numerically equal amount. Category and sub-category are
// ignored, so a recategorized row still matches.
func (t Transaction) IsSame(other Transaction) bool {
	return t.OccurredAt == other.OccurredAt &&
		t.Label == other.Label &&
		t.Amount.Equal(other.Amount)
}

// Validate performs basic validation on the Transaction
func (t Transaction) Validate() error {
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	return nil
}

// Gain returns the credited part of the amount, or zero for a debit
func (t Transaction) Gain() decimal.Decimal {
	return decimal.Max(t.Amount, decimal.Zero)
}

// Loss returns the debited magnitude of the amount, or zero for a credit
func (t Transaction) Loss() decimal.Decimal {
	return decimal.Max(t.Amount.Neg(), decimal.Zero)
}

// IsDebit returns true if the transaction decreases the balance
func (t Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// IsCredit returns true if the transaction increases the balance
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// String returns a string representation of the Transaction
func (t Transaction) String() string {
	return fmt.Sprintf("Transaction{Date: %s, Category: %q, SubCategory: %q, Label: %q, Amount: %s}",
		t.OccurredAt, t.Category, t.SubCategory, t.Label, t.Amount.String())
}

// MarshalJSON writes the amount as a string so no precision is lost
func (t Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Alias
	}{
		Amount: t.Amount.String(),
		Alias:  Alias(t),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Transaction
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Amount string `json:"amount"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	t.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	return nil
}

// Sum returns the total amount of the given transactions
func Sum(transactions []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		total = total.Add(t.Amount)
	}
	return total
}
