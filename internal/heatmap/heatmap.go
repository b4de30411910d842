// Package heatmap draws per-day counts as a calendar grid, one block per
// month with a row per weekday and a column per week.
package heatmap

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Ramp holds the cell characters from empty to full.
var Ramp = []string{"·", "░", "▒", "▓", "█"}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Ramp colors, matching the index in Ramp.
var rampColors = []lipgloss.Color{"240", "22", "28", "34", "46"}

// Day is a calendar date without a time of day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in UTC.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than o.
func (d Day) Before(o Day) bool {
	return d.Time().Before(o.Time())
}

func (d Day) String() string {
	return d.Time().Format(time.DateOnly)
}

// Styles holds the lipgloss styles used by a Renderer.
type Styles struct {
	Header  lipgloss.Style
	Weekday lipgloss.Style
	Cells   []lipgloss.Style
}

// NewStyles builds the heatmap styles for r. Colors degrade to plain text
// when r's output is not a terminal.
func NewStyles(r *lipgloss.Renderer) Styles {
	s := Styles{
		Header:  r.NewStyle().Bold(true),
		Weekday: r.NewStyle().Faint(true).Italic(true),
	}
	for _, c := range rampColors {
		s.Cells = append(s.Cells, r.NewStyle().Foreground(c))
	}
	return s
}

// Renderer draws heatmaps with a fixed set of styles.
type Renderer struct {
	styles Styles
}

// NewRenderer creates a Renderer for lipgloss renderer r.
func NewRenderer(r *lipgloss.Renderer) *Renderer {
	return &Renderer{styles: NewStyles(r)}
}

// Render draws counts for every month from from through to using the
// default lipgloss renderer.
func Render(counts map[Day]int, from, to Day) string {
	return NewRenderer(lipgloss.DefaultRenderer()).Render(counts, from, to)
}

// Render draws one block per calendar month intersecting [from, to], in
// chronological order. Intensity is bucketed into quartiles of each
// month's maximum. Positions outside a month are blank.
func (r *Renderer) Render(counts map[Day]int, from, to Day) string {
	return strings.Join(r.months(counts, from, to), "\n")
}

// RenderWrapped draws the blocks of Render side by side, perRow months to
// a row. A perRow below 2 stacks them like Render.
func (r *Renderer) RenderWrapped(counts map[Day]int, from, to Day, perRow int) string {
	blocks := r.months(counts, from, to)
	if perRow < 2 {
		return strings.Join(blocks, "\n")
	}

	var rows []string
	for len(blocks) > 0 {
		n := min(perRow, len(blocks))
		cells := make([]string, 0, 2*n)
		for i, b := range blocks[:n] {
			if i > 0 {
				cells = append(cells, gap)
			}
			cells = append(cells, strings.TrimSuffix(b, "\n"))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...)+"\n")
		blocks = blocks[n:]
	}
	return strings.Join(rows, "\n")
}

// gap separates months on a wrapped row.
const gap = "  "

func (r *Renderer) months(counts map[Day]int, from, to Day) []string {
	if to.Before(from) {
		from, to = to, from
	}

	var blocks []string
	month := time.Date(from.Year, from.Month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year, to.Month, 1, 0, 0, 0, 0, time.UTC)
	for !month.After(last) {
		blocks = append(blocks, r.renderMonth(counts, month))
		month = month.AddDate(0, 1, 0)
	}
	return blocks
}

func (r *Renderer) renderMonth(counts map[Day]int, first time.Time) string {
	days := first.AddDate(0, 1, -1).Day()
	offset := int(first.Weekday())
	weeks := (offset + days + 6) / 7

	peak := 0
	for d := 1; d <= days; d++ {
		peak = max(peak, counts[Day{first.Year(), first.Month(), d}])
	}

	var b strings.Builder
	b.WriteString(r.styles.Header.Render(fmt.Sprintf("%s %d", first.Month(), first.Year())))
	b.WriteByte('\n')
	for wd := range 7 {
		b.WriteString(r.styles.Weekday.Render(weekdays[wd]))
		for week := range weeks {
			b.WriteByte(' ')
			day := week*7 + wd - offset + 1
			if day < 1 || day > days {
				b.WriteByte(' ')
				continue
			}
			level := Level(counts[Day{first.Year(), first.Month(), day}], peak)
			b.WriteString(r.styles.Cells[level].Render(Ramp[level]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Level returns the Ramp index for count given the month maximum: 0 for
// no photos, then one level per quartile of peak.
func Level(count, peak int) int {
	if count <= 0 || peak <= 0 {
		return 0
	}
	return min(max((4*count+peak-1)/peak, 1), 4)
}
