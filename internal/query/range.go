package query

import (
	"strings"
	"time"

	"photocat/internal/catalog"
)

// DateLayouts are the accepted layouts for -d/-D arguments.
var DateLayouts = []string{
	time.DateOnly,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.RFC3339Nano,
}

// Epoch is the lower bound of a range given without -d.
var Epoch = time.Unix(0, 0).UTC()

// Range is a half-open interval [From, To) on DateTaken. A zero From
// means Epoch; a zero To means "now". Both defaults are applied by
// Resolve, so a zero bound still tells an omitted flag apart.
type Range struct {
	From time.Time
	To   time.Time
}

// Resolve returns r with a zero From replaced by Epoch and a zero To
// replaced by now.
func (r Range) Resolve(now time.Time) Range {
	if r.From.IsZero() {
		r.From = Epoch
	}
	if r.To.IsZero() {
		r.To = now
	}
	return r
}

// Contains reports whether t lies in [From, To). A zero bound is open;
// call Resolve first to apply the defaults.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// ParseDate parses a CLI date argument. Values without a zone are UTC.
// An empty string returns the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, catalog.Configf("invalid date %q: use YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS or RFC 3339", s)
}

// ParseRange parses the -d and -D arguments. A range whose From is not
// before its To is valid and matches nothing.
func ParseRange(from, to string) (Range, error) {
	var (
		r   Range
		err error
	)
	if r.From, err = ParseDate(from); err != nil {
		return Range{}, err
	}
	if r.To, err = ParseDate(to); err != nil {
		return Range{}, err
	}
	return r, nil
}
