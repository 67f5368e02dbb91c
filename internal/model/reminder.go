package model

import (
	"fmt"
	"strings"
)

// Payload travels with an armed timer. It is enough to rebuild a
// notification when the store is unreachable, but never enough to decide
// whether one should be shown.
type Payload struct {
	TaskID      int64
	AlarmID     int64
	Title       string
	Description string

	// DueAt is the due time the timer was armed for. A burst of fires for
	// one arming shares it; a re-arm for a new time does not.
	DueAt int64
}

func (p Payload) String() string {
	return fmt.Sprintf("task=%d alarm=%d", p.TaskID, p.AlarmID)
}

// Text is the notification body: "title: description", or just the title.
func (p Payload) Text() string {
	title := strings.TrimSpace(p.Title)
	desc := strings.TrimSpace(p.Description)
	switch {
	case title == "" && desc == "":
		return "You have a reminder"
	case desc == "":
		return title
	case title == "":
		return desc
	default:
		return title + ": " + desc
	}
}

type ReminderState string

const (
	ReminderUnscheduled ReminderState = "unscheduled"
	ReminderScheduled   ReminderState = "scheduled"
	ReminderFired       ReminderState = "fired"
	ReminderSuppressed  ReminderState = "suppressed"
	ReminderDelivered   ReminderState = "delivered"
	ReminderDismissed   ReminderState = "dismissed"
	ReminderSnoozed     ReminderState = "snoozed"
	ReminderCompleted   ReminderState = "completed"
)

var reminderTransitions = map[ReminderState][]ReminderState{
	ReminderUnscheduled: {ReminderScheduled},
	ReminderScheduled:   {ReminderFired, ReminderScheduled, ReminderUnscheduled, ReminderCompleted},
	ReminderFired:       {ReminderSuppressed, ReminderDelivered},
	ReminderDelivered:   {ReminderDismissed, ReminderSnoozed, ReminderCompleted, ReminderDelivered},
	// A persistent reminder comes back after a dismiss.
	ReminderDismissed: {ReminderDelivered},
	ReminderSnoozed:   {ReminderScheduled},
}

func (s ReminderState) CanTransition(to ReminderState) bool {
	for _, next := range reminderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition exists.
func (s ReminderState) Terminal() bool {
	return len(reminderTransitions[s]) == 0
}
