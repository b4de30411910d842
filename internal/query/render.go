package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"photocat/internal/heatmap"
	"photocat/internal/normalize"
)

// RecordColumns are the manifest columns that start every show row.
var RecordColumns = []string{"url", "filename", "content_id", "created_at", "modified_at"}

// CSVWriter writes show rows as CSV.
type CSVWriter struct {
	w       *csv.Writer
	columns []string
}

// NewCSVWriter creates a CSVWriter emitting the record columns followed
// by the metadata columns.
func NewCSVWriter(w io.Writer, columns []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), columns: columns}
}

// WriteHeader writes the header line.
func (c *CSVWriter) WriteHeader() error {
	header := append(append([]string{}, RecordColumns...), c.columns...)
	return c.w.Write(header)
}

// Write writes one row. Timestamps are RFC 3339 in UTC.
func (c *CSVWriter) Write(row *normalize.DerivedRow) error {
	rec := row.Record
	line := make([]string, 0, len(RecordColumns)+len(c.columns))
	line = append(line,
		rec.URL,
		rec.Filename,
		rec.ContentID,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.ModifiedAt.UTC().Format(time.RFC3339),
	)
	for _, col := range c.columns {
		line = append(line, row.Field(col))
	}
	return c.w.Write(line)
}

// Flush writes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteSummary renders res as text: the total line, then the heatmap
// and count tables, then the EXIF date tally. An empty result prints the
// total line and, when the query was bounded, an empty calendar of its
// span.
func WriteSummary(w io.Writer, res *SummaryResult, r *lipgloss.Renderer) error {
	if _, err := fmt.Fprintf(w, "#total:%d\n", res.Total); err != nil {
		return err
	}

	if res.ShowCalendar && res.HasSpan {
		cal := heatmap.NewRenderer(r).RenderWrapped(res.Days, res.From, res.To, res.MonthsPerRow)
		if _, err := io.WriteString(w, cal); err != nil {
			return err
		}
	}
	if res.Total == 0 {
		return nil
	}

	border := r.NewStyle().Faint(true)
	for _, fc := range res.Counts {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(border)
		switch len(fc.Fields) {
		case 0:
			t.Headers(fc.Field, "count").Rows(countRows(fc.Values)...)
		case 2:
			headers, rows := crossTab(fc)
			t.Headers(headers...).Rows(rows...)
		default:
			t.Headers(strings.Join(fc.Fields, " / "), "count").Rows(countRows(fc.Values)...)
		}
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "#no-exif-date:%d\n", res.NoExifDate); err != nil {
		return err
	}
	if res.NoExifDate > 0 {
		_, err := fmt.Fprintf(w, "Some dates did not come from EXIF - exif:%d file:%d\n", res.Total-res.NoExifDate, res.NoExifDate)
		return err
	}
	return nil
}

func countRows(values []ValueCount) [][]string {
	rows := make([][]string, 0, len(values))
	for _, vc := range values {
		rows = append(rows, []string{vc.Value, strconv.Itoa(vc.Count)})
	}
	return rows
}

// crossTab lays a two-field count out as a grid: one row per value of the
// first field, one column per value of the second.
func crossTab(fc FieldCount) (headers []string, rows [][]string) {
	cells := make(map[[2]string]int, len(fc.Values))
	var rowKeys, colKeys []string
	for _, vc := range fc.Values {
		cells[[2]string{vc.Parts[0], vc.Parts[1]}] = vc.Count
		if !slices.Contains(rowKeys, vc.Parts[0]) {
			rowKeys = append(rowKeys, vc.Parts[0])
		}
		if !slices.Contains(colKeys, vc.Parts[1]) {
			colKeys = append(colKeys, vc.Parts[1])
		}
	}
	slices.Sort(rowKeys)
	slices.Sort(colKeys)

	headers = append([]string{fmt.Sprintf("↓%s  %s →", fc.Fields[0], fc.Fields[1])}, colKeys...)
	for _, rk := range rowKeys {
		row := []string{rk}
		for _, ck := range colKeys {
			row = append(row, strconv.Itoa(cells[[2]string{rk, ck}]))
		}
		rows = append(rows, row)
	}
	return headers, rows
}
