// Package schedule validates the 5-field cron expressions used by CI
// schedule triggers.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the shortest schedule interval the hosting platform honors.
// Anything more frequent gets silently coalesced, so we flag it.
const MinInterval = 5 * time.Minute

// Spec is a validated cron expression.
type Spec struct {
	Expression string
	schedule   cron.Schedule
}

// Parse validates a standard 5-field cron expression (minute hour dom month
// dow).
func Parse(expression string) (Spec, error) {
	sched, err := cron.ParseStandard(expression)
	if err != nil {
		return Spec{}, fmt.Errorf("schedule: parse %q: %w", expression, err)
	}
	return Spec{Expression: expression, schedule: sched}, nil
}

// Next returns the next firing time after from.
func (s Spec) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Upcoming returns the next n firing times after from.
func (s Spec) Upcoming(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	times := make([]time.Time, 0, n)
	at := from
	for i := 0; i < n; i++ {
		at = s.schedule.Next(at)
		if at.IsZero() {
			break
		}
		times = append(times, at)
	}
	return times
}

// TooFrequent reports whether consecutive firings can come closer together
// than MinInterval. It samples a window of upcoming firings rather than
// proving the bound, which is enough to catch "* * * * *" style mistakes.
func (s Spec) TooFrequent() bool {
	const samples = 8
	times := s.Upcoming(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), samples)
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) < MinInterval {
			return true
		}
	}
	return false
}
