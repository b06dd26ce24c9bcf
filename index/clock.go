package index

import "time"

// Clock is the hookable notion of "now" the source spec's design notes call
// for (§9 "Global mutable state": "the original ... consults SystemTime.
// UtcNow as a hookable clock. Inject both: a log sink and a clock"). Tests
// substitute a fixed clock to make LastIndexTime/LastQueryTime assertions
// deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// SystemClock is the default Clock backed by the real wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

// FixedClock is a Clock that never advances unless explicitly told to,
// useful in tests that assert monotonicity without racing real time.
type FixedClock struct {
	t time.Time
}

// NewFixedClock creates a FixedClock starting at t.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{t: t} }

func (c *FixedClock) Now() time.Time { return c.t }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
