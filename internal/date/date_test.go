package date

import (
	"testing"
	"time"
)

// TestTime asserts that time() is canonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
	if d1 != d2 {
		t.Errorf("same day must compare equal")
	}
}

func TestNewNormalizes(t *testing.T) {
	got := New(2023, time.January, 32)
	if want := New(2023, time.February, 1); got != want {
		t.Errorf("New(2023, 1, 32) = %v, want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2023-01-05", New(2023, 1, 5), false},
		{"2023-1-5", New(2023, 1, 5), false},
		{"05-01-2023", Date{}, true},
		{"", Date{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDaysUntil(t *testing.T) {
	a := New(2024, 2, 27)
	b := New(2024, 3, 2)
	if got := a.DaysUntil(b); got != 4 {
		t.Errorf("DaysUntil() = %d, want 4 (leap year)", got)
	}
	if got := b.DaysUntil(a); got != -4 {
		t.Errorf("DaysUntil() = %d, want -4", got)
	}
}

func TestMax(t *testing.T) {
	a := New(2023, 1, 10)
	b := New(2023, 1, 15)
	if got := Max(a, b); got != b {
		t.Errorf("Max(a, b) = %s, want %s", got, b)
	}
	if got := Max(b, a); got != b {
		t.Errorf("Max(b, a) = %s, want %s", got, b)
	}
}

func TestJSON(t *testing.T) {
	d := New(2023, 1, 12)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2023-01-12"` {
		t.Errorf("MarshalJSON() = %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Errorf("UnmarshalJSON() = %v, want %v", back, d)
	}
}
