package parsers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
)

// Codec converts between locale-formatted cells and canonical dates and
// amounts. Dates are day-month-year.
type Codec struct {
	// DateDelimiter separates day, month and year in transaction rows
	DateDelimiter string `json:"date_delimiter" mapstructure:"date_delimiter"`
	// SnapshotDelimiter separates day, month and year in snapshot dates
	SnapshotDelimiter string `json:"snapshot_delimiter" mapstructure:"snapshot_delimiter"`
	// DecimalSeparator is written between units and cents
	DecimalSeparator string `json:"decimal_separator" mapstructure:"decimal_separator"`
}

// DefaultCodec returns the codec used by the persisted ledger format:
// 05-01-2023 for rows, 10/01/2023 for the snapshot and a decimal comma.
func DefaultCodec() Codec {
	return Codec{
		DateDelimiter:     "-",
		SnapshotDelimiter: "/",
		DecimalSeparator:  ",",
	}
}

// Validate checks that the codec delimiters are usable
func (c Codec) Validate() error {
	if c.DateDelimiter == "" || c.SnapshotDelimiter == "" {
		return fmt.Errorf("date delimiters cannot be empty")
	}
	if c.DecimalSeparator != "," && c.DecimalSeparator != "." {
		return fmt.Errorf("decimal separator must be ',' or '.', got '%s'", c.DecimalSeparator)
	}
	return nil
}

func parseDayMonthYear(s, delimiter string) (date.Date, error) {
	parts := strings.Split(strings.TrimSpace(s), delimiter)
	if len(parts) != 3 {
		return date.Date{}, fmt.Errorf("invalid date '%s': expected dd%smm%syyyy", s, delimiter, delimiter)
	}

	var values [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return date.Date{}, fmt.Errorf("invalid date '%s': %w", s, err)
		}
		values[i] = v
	}

	d := date.New(values[2], time.Month(values[1]), values[0])
	if d.Day() != values[0] || int(d.Month()) != values[1] || d.Year() != values[2] {
		return date.Date{}, fmt.Errorf("invalid date '%s': day or month out of range", s)
	}
	return d, nil
}

func formatDayMonthYear(d date.Date, delimiter string) string {
	return fmt.Sprintf("%02d%s%02d%s%04d", d.Day(), delimiter, int(d.Month()), delimiter, d.Year())
}

// ParseDate parses a transaction row date such as 05-01-2023
func (c Codec) ParseDate(s string) (date.Date, error) {
	return parseDayMonthYear(s, c.DateDelimiter)
}

// FormatDate formats a transaction row date
func (c Codec) FormatDate(d date.Date) string {
	return formatDayMonthYear(d, c.DateDelimiter)
}

// ParseSnapshotDate parses a snapshot date such as 10/01/2023
func (c Codec) ParseSnapshotDate(s string) (date.Date, error) {
	return parseDayMonthYear(s, c.SnapshotDelimiter)
}

// FormatSnapshotDate formats a snapshot date
func (c Codec) FormatSnapshotDate(d date.Date) string {
	return formatDayMonthYear(d, c.SnapshotDelimiter)
}

// ParseAmount parses a decimal amount. Spaces used as thousand separators
// are ignored. With a decimal comma, a value holding a comma has its dots
// treated as thousand separators; a value without a comma is read with a
// decimal point, as spreadsheets export numeric cells.
func (c Codec) ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("amount cannot be empty")
	}

	if c.DecimalSeparator == "," && strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if c.DecimalSeparator == "." {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': %w", s, err)
	}
	return amount, nil
}

// FormatAmount formats an amount with the codec's decimal separator
func (c Codec) FormatAmount(amount decimal.Decimal) string {
	s := amount.String()
	if c.DecimalSeparator != "." {
		s = strings.Replace(s, ".", c.DecimalSeparator, 1)
	}
	return s
}
