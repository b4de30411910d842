package heatmap

import (
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
)

// plain renders without ANSI styling.
func plain() *Renderer {
	return NewRenderer(lipgloss.NewRenderer(io.Discard))
}

func TestRender_emptyMonth(t *testing.T) {
	sep := Day{2022, time.September, 1}
	got := plain().Render(nil, sep, Day{2022, time.September, 30})

	want := strings.Join([]string{
		"September 2022",
		"Sun   · · · ·",
		"Mon   · · · ·",
		"Tue   · · · ·",
		"Wed   · · · ·",
		"Thu · · · · ·",
		"Fri · · · · ·",
		"Sat · · · ·  ",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_intensity(t *testing.T) {
	counts := map[Day]int{
		{2022, time.September, 1}: 8, // Thu, week 0
		{2022, time.September, 2}: 1, // Fri, week 0
		{2022, time.September, 8}: 4, // Thu, week 1
		{2022, time.September, 9}: 6, // Fri, week 1
	}
	got := plain().Render(counts, Day{2022, time.September, 1}, Day{2022, time.September, 30})
	lines := strings.Split(got, "\n")

	if lines[5] != "Thu █ ▒ · · ·" {
		t.Errorf("Thu row = %q", lines[5])
	}
	if lines[6] != "Fri ░ ▓ · · ·" {
		t.Errorf("Fri row = %q", lines[6])
	}
}

func TestRender_monthsInOrder(t *testing.T) {
	counts := map[Day]int{{2023, time.January, 15}: 3}
	got := plain().Render(counts, Day{2022, time.November, 20}, Day{2023, time.January, 2})

	var headers []string
	for _, line := range strings.Split(got, "\n") {
		if line == "" || slices.Contains(weekdays, line[:3]) {
			continue
		}
		headers = append(headers, line)
	}
	want := []string{"November 2022", "December 2022", "January 2023"}
	if diff := cmp.Diff(want, headers); diff != "" {
		t.Errorf("month headers mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got, "█") {
		t.Error("January block missing the only populated day")
	}
}

func TestRender_swappedBounds(t *testing.T) {
	r := plain()
	a := r.Render(nil, Day{2022, time.March, 1}, Day{2022, time.April, 1})
	b := r.Render(nil, Day{2022, time.April, 1}, Day{2022, time.March, 1})
	if a != b {
		t.Error("Render() depends on bound order")
	}
}

func TestRenderWrapped(t *testing.T) {
	r := plain()
	from, to := Day{2022, time.November, 1}, Day{2023, time.January, 31}

	if got, want := r.RenderWrapped(nil, from, to, 1), r.Render(nil, from, to); got != want {
		t.Errorf("RenderWrapped(perRow=1) differs from Render:\n%s\nwant\n%s", got, want)
	}

	got := r.RenderWrapped(nil, from, to, 2)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	// Two rows of 8 lines (header and weekdays) with a blank line between.
	if len(lines) != 17 {
		t.Fatalf("RenderWrapped() has %d lines, want 17:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "November 2022") || !strings.Contains(lines[0], "December 2022") {
		t.Errorf("first row header = %q, want November and December side by side", lines[0])
	}
	if lines[8] != "" {
		t.Errorf("rows not separated by a blank line: %q", lines[8])
	}
	if !strings.HasPrefix(lines[9], "January 2023") {
		t.Errorf("second row header = %q, want January 2023", lines[9])
	}
	for _, line := range lines[1:8] {
		if strings.Count(line, "Sun")+strings.Count(line, "Mon")+strings.Count(line, "Tue")+
			strings.Count(line, "Wed")+strings.Count(line, "Thu")+strings.Count(line, "Fri")+strings.Count(line, "Sat") != 2 {
			t.Errorf("weekday row %q does not hold two months", line)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		count, peak, want int
	}{
		{0, 10, 0},
		{1, 0, 0},
		{1, 10, 1},
		{2, 8, 1},
		{3, 8, 2},
		{4, 8, 2},
		{5, 8, 3},
		{6, 8, 3},
		{7, 8, 4},
		{8, 8, 4},
		{1, 1, 4},
	}
	for _, tt := range tests {
		if got := Level(tt.count, tt.peak); got != tt.want {
			t.Errorf("Level(%d, %d) = %d, want %d", tt.count, tt.peak, got, tt.want)
		}
	}
}

func TestDay(t *testing.T) {
	ts := time.Date(2022, 9, 3, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	d := DayOf(ts)
	if d != (Day{2022, time.September, 4}) {
		t.Errorf("DayOf() = %v, want 2022-09-04 (UTC)", d)
	}
	if d.String() != "2022-09-04" {
		t.Errorf("String() = %q", d.String())
	}
	if !(Day{2022, time.September, 3}).Before(d) || d.Before(d) {
		t.Error("Before() wrong")
	}
}
