package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidRepeat   = errors.New("model: invalid task repeat")
)

type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is the store's view of a to-do item. DueAt and DeletedAt are epoch
// milliseconds; zero means unset.
type Task struct {
	ID          int64
	AlarmID     int64
	Title       string
	Description string
	Priority    Priority
	Repeat      Repeat
	DueAt       int64
	// AnchorAt is the occurrence a snoozed reminder was pushed from; repeats
	// advance from it. Zero when not snoozed.
	AnchorAt    int64
	// NotifiedDue is the last due time whose reminder was delivered.
	NotifiedDue int64
	IsCompleted bool
	IsDeleted   bool
	DeletedAt   int64
	CreatedAt   time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if t.DueAt < 0 {
		return errors.New("model: task due_at must not be negative")
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if !t.Repeat.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRepeat, t.Repeat)
	}
	if t.IsDeleted && t.DeletedAt <= 0 {
		return errors.New("model: deleted_at is required when task is deleted")
	}
	if !t.IsDeleted && t.DeletedAt != 0 {
		return errors.New("model: deleted_at must be zero when task is not deleted")
	}
	if t.Repeat != RepeatNone && t.DueAt == 0 {
		return errors.New("model: repeating task requires due_at")
	}
	return nil
}

// HasReminder reports whether a reminder was requested and a key is held.
func (t Task) HasReminder() bool {
	return t.DueAt > 0 && t.AlarmID != 0
}

// Active reports whether the task may still produce notifications.
func (t Task) Active() bool {
	return !t.IsCompleted && !t.IsDeleted
}

func (t Task) Due() time.Time {
	if t.DueAt <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.DueAt)
}

// Anchor is the occurrence repeats are computed from.
func (t Task) Anchor() time.Time {
	if t.AnchorAt > 0 {
		return time.UnixMilli(t.AnchorAt)
	}
	return t.Due()
}

// Delivered reports whether the reminder for the current due time has
// already been shown.
func (t Task) Delivered() bool {
	return t.DueAt > 0 && t.NotifiedDue == t.DueAt
}

func (t Task) Payload() Payload {
	return Payload{
		TaskID:      t.ID,
		AlarmID:     t.AlarmID,
		Title:       t.Title,
		Description: t.Description,
		DueAt:       t.DueAt,
	}
}

func Millis(at time.Time) int64 {
	if at.IsZero() {
		return 0
	}
	return at.UnixMilli()
}
