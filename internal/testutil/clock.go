package testutil

import (
	"fmt"
	"sync"
	"time"

	"photocat/internal/catalog"
)

// StubClock returns a settable time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to t in UTC.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t.UTC()}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC, well after
// the capture dates used by the fixtures.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential run ids: "run-1", "run-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("run-%d", g.counter)
}

var (
	_ catalog.Clock       = (*StubClock)(nil)
	_ catalog.IDGenerator = (*StubIDGenerator)(nil)
)
