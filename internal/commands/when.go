package commands

import (
	"fmt"
	"strings"
	"time"
)

type WhenMode string

const (
	WhenNone WhenMode = ""
	// WhenIn is relative to now: "in 10m".
	WhenIn WhenMode = "in"
	// WhenAt is a clock time or a local date and time: "at 18:30",
	// "at 2026-05-01T09:00".
	WhenAt  WhenMode = "at"
	WhenOff WhenMode = "off"
)

const (
	clockLayout    = "15:04"
	dateTimeLayout = "2006-01-02T15:04"
)

type When struct {
	Mode  WhenMode
	After time.Duration
	Clock string
}

func ParseWhen(mode, value string) (When, error) {
	value = strings.TrimSpace(value)
	switch WhenMode(strings.ToLower(mode)) {
	case WhenIn:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return When{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid duration: %s", value)}
		}
		return When{Mode: WhenIn, After: d}, nil
	case WhenAt:
		if _, err := time.Parse(clockLayout, value); err == nil {
			return When{Mode: WhenAt, Clock: value}, nil
		}
		if _, err := time.Parse(dateTimeLayout, value); err == nil {
			return When{Mode: WhenAt, Clock: value}, nil
		}
		return When{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid time: %s (want HH:MM or YYYY-MM-DDTHH:MM)", value)}
	default:
		return When{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown time mode: %s", mode)}
	}
}

// Resolve returns the instant w names relative to now. A bare clock time
// that has already passed today means tomorrow. Zero means no reminder.
func (w When) Resolve(now time.Time) time.Time {
	switch w.Mode {
	case WhenIn:
		return now.Add(w.After)
	case WhenAt:
		loc := now.Location()
		if t, err := time.ParseInLocation(dateTimeLayout, w.Clock, loc); err == nil {
			return t
		}
		clock, err := time.ParseInLocation(clockLayout, w.Clock, loc)
		if err != nil {
			return time.Time{}
		}
		y, m, d := now.Date()
		at := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at
	default:
		return time.Time{}
	}
}

func (w When) String() string {
	switch w.Mode {
	case WhenIn:
		return "in " + w.After.String()
	case WhenAt:
		return "at " + w.Clock
	case WhenOff:
		return "off"
	default:
		return ""
	}
}
