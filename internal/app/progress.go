package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// clearLine moves to the start of the line and erases it.
const clearLine = "\r\x1b[2K"

// ProgressBar draws index progress on one terminal line. It is also an
// io.Writer: log lines written through it are printed above the bar,
// which is then redrawn.
type ProgressBar struct {
	mu          sync.Mutex
	w           io.Writer
	bar         progress.Model
	done, total int
	drawn       bool
}

// NewProgressBar creates a bar of width cells drawing on w.
func NewProgressBar(w io.Writer, width int) *ProgressBar {
	return &ProgressBar{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(width)),
	}
}

// Update redraws the bar for done of total files.
func (p *ProgressBar) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done, p.total = done, total
	p.draw()
}

func (p *ProgressBar) draw() {
	if p.total <= 0 {
		return
	}
	fmt.Fprintf(p.w, "%s%s %d/%d", clearLine, p.bar.ViewAs(float64(p.done)/float64(p.total)), p.done, p.total)
	p.drawn = true
}

func (p *ProgressBar) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		io.WriteString(p.w, clearLine)
	}
	n, err := p.w.Write(b)
	if p.drawn {
		p.draw()
	}
	return n, err
}

// Finish ends the bar's line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		io.WriteString(p.w, "\n")
		p.drawn = false
	}
}
