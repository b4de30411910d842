// Package query answers show and summarize requests over the catalog by
// streaming the manifest, joining each record with its sidecar and
// filtering on the normalized capture date.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"photocat/internal/catalog"
	"photocat/internal/heatmap"
	"photocat/internal/normalize"
)

// NoValue is the group label for rows without a value for a counted field.
const NoValue = "(none)"

// Query selects the rows of a show or summarize request.
type Query struct {
	Range      Range
	ContentIDs []string
	URL        string
	Filename   string
	Limit      int // zero means no limit
}

func (q Query) filter() catalog.ManifestFilter {
	return catalog.ManifestFilter{
		ContentIDs:       q.ContentIDs,
		URLContains:      q.URL,
		FilenameContains: q.Filename,
	}
}

// Engine runs read-only queries. It never writes to the sidecar store or
// the manifest.
type Engine struct {
	manifest catalog.Manifest
	sidecars catalog.SidecarStore
	norm     *normalize.Normalizer
	clock    catalog.Clock
	columns  []string
}

// NewEngine creates an Engine. columns, when non-empty, fixes the metadata
// columns of show instead of discovering them from the sidecars.
func NewEngine(manifest catalog.Manifest, sidecars catalog.SidecarStore, norm *normalize.Normalizer, clock catalog.Clock, columns []string) *Engine {
	return &Engine{
		manifest: manifest,
		sidecars: sidecars,
		norm:     norm,
		clock:    clock,
		columns:  columns,
	}
}

var errLimit = errors.New("limit reached")

// Show calls fn for every row in q, ordered by content id then filename.
// Each sidecar is read once per content id and only the current row is
// held in memory.
func (e *Engine) Show(ctx context.Context, q Query, fn func(*normalize.DerivedRow) error) error {
	r := q.Range.Resolve(e.clock.Now())

	var (
		currentID string
		current   catalog.Document
		emitted   int
	)
	err := e.manifest.Each(ctx, q.filter(), func(rec *catalog.FileRecord) error {
		if rec.ContentID != currentID {
			doc, _, err := e.sidecars.Read(ctx, rec.ContentID)
			if err != nil {
				return fmt.Errorf("%w: reading sidecar %s: %w", catalog.ErrStorage, rec.ContentID, err)
			}
			currentID, current = rec.ContentID, doc
		}

		row := e.norm.Derive(rec, current)
		if !r.Contains(row.DateTaken) {
			return nil
		}
		if err := fn(row); err != nil {
			return err
		}
		emitted++
		if q.Limit > 0 && emitted >= q.Limit {
			return errLimit
		}
		return nil
	})
	if errors.Is(err, errLimit) {
		return nil
	}
	return err
}

// Columns returns the metadata columns of show: the configured columns,
// or the sorted union of sidecar keys, followed by the derived fields.
func (e *Engine) Columns(ctx context.Context) ([]string, error) {
	var cols []string
	if len(e.columns) > 0 {
		cols = slices.Clone(e.columns)
	} else {
		seen := make(map[string]bool)
		err := e.sidecars.ReadAll(ctx, func(_ string, doc catalog.Document) error {
			for k := range doc {
				seen[k] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scanning sidecars: %w", catalog.ErrStorage, err)
		}
		for k := range seen {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}

	for _, derived := range []string{normalize.FieldDateTaken, normalize.FieldLensInferred} {
		if !slices.Contains(cols, derived) {
			cols = append(cols, derived)
		}
	}
	return cols, nil
}

// MonthsPerRow is how many heatmap months a wrapped calendar puts side
// by side.
const MonthsPerRow = 8

// SummaryOptions selects what Summarize reports besides the totals.
type SummaryOptions struct {
	// Counts holds one entry per count directive: a field name, or
	// several joined with "+" to count value combinations.
	Counts   []string
	Calendar bool // force the heatmap alongside counts
	Wrap     bool // lay months out MonthsPerRow to a row
}

// ShowCalendar reports whether the heatmap is drawn: always when no
// counts are requested.
func (o SummaryOptions) ShowCalendar() bool {
	return o.Calendar || len(o.Counts) == 0
}

// ParseSummaryOptions parses a comma-separated list of directives:
// "count:<field>", "count:<field>+<field>...", "calendar" and "wrap".
func ParseSummaryOptions(spec string) (SummaryOptions, error) {
	var opts SummaryOptions
	for _, directive := range strings.Split(spec, ",") {
		directive = strings.TrimSpace(directive)
		switch {
		case directive == "":
		case directive == "calendar":
			opts.Calendar = true
		case directive == "wrap":
			opts.Wrap = true
		case strings.HasPrefix(directive, "count:"):
			fields := strings.Split(strings.TrimPrefix(directive, "count:"), "+")
			for i, f := range fields {
				fields[i] = strings.TrimSpace(f)
				if fields[i] == "" {
					return SummaryOptions{}, catalog.Configf("summary option %q: missing field", directive)
				}
			}
			count := strings.Join(fields, "+")
			if !slices.Contains(opts.Counts, count) {
				opts.Counts = append(opts.Counts, count)
			}
		default:
			return SummaryOptions{}, catalog.Configf("unknown summary option %q", directive)
		}
	}
	return opts, nil
}

// ValueCount is one group of a count. Parts holds the value of each
// field when several fields are counted together; Value joins them.
type ValueCount struct {
	Value string
	Parts []string
	Count int
}

// FieldCount holds the groups of one count directive, ordered by count
// descending then value ascending. Fields is set when the directive
// counts more than one field.
type FieldCount struct {
	Field  string
	Fields []string
	Values []ValueCount
}

// SummaryResult is the outcome of Summarize.
type SummaryResult struct {
	Total      int
	NoExifDate int
	Days       map[heatmap.Day]int
	Counts     []FieldCount

	// Calendar span: the query bounds, or the first and last day with
	// data on an unbounded side. HasSpan is false when there is nothing
	// to draw: no rows and no lower bound, or an inverted range.
	From, To     heatmap.Day
	HasSpan      bool
	ShowCalendar bool
	MonthsPerRow int // zero stacks the months
}

// keySep joins the values of a multi-field count inside Summarize.
const keySep = "\x00"

// Summarize counts the rows of q in a single pass.
func (e *Engine) Summarize(ctx context.Context, q Query, opts SummaryOptions) (*SummaryResult, error) {
	res := &SummaryResult{
		Days:         make(map[heatmap.Day]int),
		ShowCalendar: opts.ShowCalendar(),
	}
	if opts.Wrap {
		res.MonthsPerRow = MonthsPerRow
	}
	fields := make([][]string, len(opts.Counts))
	groups := make([]map[string]int, len(opts.Counts))
	for i, count := range opts.Counts {
		fields[i] = strings.Split(count, "+")
		groups[i] = make(map[string]int)
	}

	r := q.Range.Resolve(e.clock.Now())
	var first, last time.Time
	err := e.Show(ctx, q, func(row *normalize.DerivedRow) error {
		res.Total++
		if row.NoExifDate {
			res.NoExifDate++
		}
		res.Days[heatmap.DayOf(row.DateTaken)]++
		if first.IsZero() || row.DateTaken.Before(first) {
			first = row.DateTaken
		}
		if last.IsZero() || row.DateTaken.After(last) {
			last = row.DateTaken
		}

		for i, fs := range fields {
			parts := make([]string, len(fs))
			for j, field := range fs {
				parts[j] = NoValue
				if row.Has(field) {
					parts[j] = row.Field(field)
				}
			}
			groups[i][strings.Join(parts, keySep)]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, count := range opts.Counts {
		fc := FieldCount{Field: count, Values: sortedCounts(groups[i], len(fields[i]) > 1)}
		if len(fields[i]) > 1 {
			fc.Fields = fields[i]
		}
		res.Counts = append(res.Counts, fc)
	}

	if res.Total > 0 {
		res.From, res.To, res.HasSpan = heatmap.DayOf(first), heatmap.DayOf(last), true
	}
	if !q.Range.From.IsZero() {
		res.From, res.HasSpan = heatmap.DayOf(r.From), true
		if !q.Range.To.IsZero() || res.Total == 0 {
			res.To = heatmap.DayOf(r.To.Add(-time.Nanosecond))
		}
		if !r.From.Before(r.To) {
			res.HasSpan = false
		}
	} else if res.Total > 0 && !q.Range.To.IsZero() {
		res.To = heatmap.DayOf(r.To.Add(-time.Nanosecond))
	}
	return res, nil
}

func sortedCounts(group map[string]int, multi bool) []ValueCount {
	values := make([]ValueCount, 0, len(group))
	for key, n := range group {
		vc := ValueCount{Value: key, Count: n}
		if multi {
			vc.Parts = strings.Split(key, keySep)
			vc.Value = strings.Join(vc.Parts, " / ")
		}
		values = append(values, vc)
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	return values
}
