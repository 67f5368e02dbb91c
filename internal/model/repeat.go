package model

import "time"

// Repeat is how a task's due time advances once its reminder has been
// delivered.
type Repeat string

const (
	RepeatNone     Repeat = ""
	RepeatDaily    Repeat = "daily"
	RepeatWeekdays Repeat = "weekdays"
	RepeatWeekly   Repeat = "weekly"
	RepeatMonthly  Repeat = "monthly"
)

func (r Repeat) IsValid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekdays, RepeatWeekly, RepeatMonthly:
		return true
	default:
		return false
	}
}

// Next returns the first occurrence of the series anchored at due that is
// strictly after now. The wall clock of due is kept across DST changes.
// Zero time means the series does not repeat.
func (r Repeat) Next(due, now time.Time) time.Time {
	if r == RepeatNone || !r.IsValid() || due.IsZero() {
		return time.Time{}
	}
	next := due
	for i := 0; !next.After(now); i++ {
		next = r.step(due, i+1)
	}
	return next
}

// step returns the n-th occurrence after anchor.
func (r Repeat) step(anchor time.Time, n int) time.Time {
	switch r {
	case RepeatDaily:
		return anchor.AddDate(0, 0, n)
	case RepeatWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case RepeatMonthly:
		return addMonthsClamped(anchor, n)
	case RepeatWeekdays:
		probe := anchor
		for left := n; left > 0; {
			probe = probe.AddDate(0, 0, 1)
			if isWeekday(probe.Weekday()) {
				left--
			}
		}
		return probe
	default:
		return time.Time{}
	}
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}

// addMonthsClamped moves anchor n months ahead, clamping the day to the end
// of a shorter month (Jan 31 + 1 month = Feb 28).
func addMonthsClamped(anchor time.Time, n int) time.Time {
	y, m, d := anchor.Date()
	first := time.Date(y, m, 1, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
