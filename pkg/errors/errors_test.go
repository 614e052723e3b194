package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestLedgerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "series error",
			category:   CategorySeries,
			code:       CodeEmptySeries,
			message:    "empty",
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *LedgerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestLedgerErrorWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "test error").
		WithContext("file", "/path/to/file").
		WithContext("line", 42).
		WithSuggestion("check file path")

	if err.Context["file"] != "/path/to/file" {
		t.Errorf("expected file context '/path/to/file', got %v", err.Context["file"])
	}
	if err.Context["line"] != 42 {
		t.Errorf("expected line context 42, got %v", err.Context["line"])
	}

	expected := "test error (suggestion: check file path)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/current.csv", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/test/current.csv" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeInvalidData, "import.csv", 10, "amount", "12,3,4", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["line"] != 10 {
			t.Errorf("expected line context, got %v", err.Context["line"])
		}
		if err.Context["column"] != "amount" {
			t.Errorf("expected column context, got %v", err.Context["column"])
		}
	})

	t.Run("ReconciliationError", func(t *testing.T) {
		err := ReconciliationError(CodeOrderingViolation, "merge", nil)

		if err.Category != CategoryReconciliation {
			t.Errorf("expected reconciliation category, got %s", err.Category)
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
	})

	t.Run("SeriesError", func(t *testing.T) {
		err := SeriesError(CodeEmptySeries, "cumulate", nil)

		if err.Context["operation"] != "cumulate" {
			t.Errorf("expected operation context, got %v", err.Context["operation"])
		}
	})
}

func TestHasCode(t *testing.T) {
	base := ReconciliationError(CodeOrderingViolation, "merge", nil)
	wrapped := fmt.Errorf("merge failed: %w", base)

	if !HasCode(wrapped, CodeOrderingViolation) {
		t.Error("expected wrapped error to carry ordering_violation")
	}
	if HasCode(wrapped, CodeEmptySeries) {
		t.Error("expected wrapped error not to carry empty_series")
	}
	if HasCode(errors.New("plain"), CodeOrderingViolation) {
		t.Error("expected plain error not to carry a code")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*LedgerError{
		New(CategoryFile, CodeFileNotFound, "error 1"),
		New(CategoryParse, CodeInvalidFormat, "error 2"),
		New(CategoryParse, CodeInvalidData, "error 3"),
		New(CategoryConfiguration, CodeInvalidConfig, "error 4"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 4 {
		t.Errorf("expected total 4, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("expected 2 parse errors, got %d", summary.ByCategory[CategoryParse])
	}
	if !summary.HasCode(CodeInvalidConfig) {
		t.Error("expected to have invalid_config code")
	}
	if summary.GetExitCode() != 4 {
		t.Errorf("expected exit code 4, got %d", summary.GetExitCode())
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got '%s'", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
}

func TestAsLedgerError(t *testing.T) {
	ledgerErr := New(CategoryFile, CodeFileNotFound, "test")

	if extracted, ok := AsLedgerError(fmt.Errorf("ctx: %w", ledgerErr)); !ok || extracted != ledgerErr {
		t.Error("expected AsLedgerError to extract LedgerError")
	}
	if _, ok := AsLedgerError(errors.New("generic error")); ok {
		t.Error("expected AsLedgerError to return false for generic error")
	}
	if _, ok := AsLedgerError(nil); ok {
		t.Error("expected AsLedgerError to return false for nil")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	ledgerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if got := WrapIfNeeded(ledgerErr, CategoryParse, CodeInvalidFormat, "wrapped"); got != ledgerErr {
		t.Error("expected WrapIfNeeded to return original LedgerError")
	}

	got := WrapIfNeeded(genericErr, CategoryParse, CodeInvalidFormat, "wrapped")
	if got.Cause != genericErr || got.Category != CategoryParse {
		t.Error("expected WrapIfNeeded to wrap generic error")
	}

	if WrapIfNeeded(nil, CategoryParse, CodeInvalidFormat, "wrapped") != nil {
		t.Error("expected WrapIfNeeded to return nil for nil input")
	}
}
