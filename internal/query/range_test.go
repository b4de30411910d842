package query

import (
	"errors"
	"testing"
	"time"

	"photocat/internal/catalog"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2022-09-03", want: time.Date(2022, 9, 3, 0, 0, 0, 0, time.UTC)},
		{in: "2022-09-03T10:11:12", want: time.Date(2022, 9, 3, 10, 11, 12, 0, time.UTC)},
		{in: "2022-09-03 10:11:12", want: time.Date(2022, 9, 3, 10, 11, 12, 0, time.UTC)},
		{in: "2022-09-03T10:11:12+02:00", want: time.Date(2022, 9, 3, 8, 11, 12, 0, time.UTC)},
		{in: "03/09/2022", wantErr: true},
		{in: "2022-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, catalog.ErrConfig) {
					t.Errorf("ParseDate() error = %v, want ErrConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2022-09-01", "")
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if !r.To.IsZero() {
		t.Errorf("To = %v, want zero", r.To)
	}
	r, err = ParseRange("", "2022-10-01")
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if !r.From.IsZero() {
		t.Errorf("From = %v, want zero until resolved", r.From)
	}
	if _, err := ParseRange("", "yesterday"); !errors.Is(err, catalog.ErrConfig) {
		t.Errorf("ParseRange() error = %v, want ErrConfig", err)
	}
}

func TestRange_Contains(t *testing.T) {
	from := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		r    Range
		t    time.Time
		want bool
	}{
		{"from bound is included", Range{From: from, To: to}, from, true},
		{"to bound is excluded", Range{From: from, To: to}, to, false},
		{"just before to", Range{From: from, To: to}, to.Add(-time.Nanosecond), true},
		{"before from", Range{From: from, To: to}, from.Add(-time.Nanosecond), false},
		{"unbounded below", Range{To: to}, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"unbounded above", Range{From: from}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"inverted range matches nothing", Range{From: to, To: from}, from, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestRange_Resolve(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := (Range{}).Resolve(now); !got.To.Equal(now) {
		t.Errorf("Resolve().To = %v, want now", got.To)
	}
	to := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := (Range{To: to}).Resolve(now); !got.To.Equal(to) {
		t.Errorf("Resolve() replaced an explicit To")
	}

	got := (Range{}).Resolve(now)
	if !got.From.Equal(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Resolve().From = %v, want the Unix epoch", got.From)
	}
	if got.Contains(time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Error("resolved default range contains a time before the epoch")
	}
	from := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := (Range{From: from}).Resolve(now); !got.From.Equal(from) {
		t.Errorf("Resolve() replaced an explicit From")
	}
}
