// Package notify turns fired reminders into user-visible notifications and
// carries the user's responses back as actions.
package notify

import (
	"github.com/sandeepkv93/reminderd/internal/model"
)

type ActionKind string

const (
	ActionOpen     ActionKind = "open"
	ActionSnooze   ActionKind = "snooze"
	ActionDismiss  ActionKind = "dismiss"
	ActionComplete ActionKind = "complete"
)

func (k ActionKind) IsValid() bool {
	switch k {
	case ActionOpen, ActionSnooze, ActionDismiss, ActionComplete:
		return true
	default:
		return false
	}
}

// Action is a user response to a notification. Payload identifies the
// reminder it came from.
type Action struct {
	Kind    ActionKind
	Label   string
	Payload model.Payload
}

type Notification struct {
	// Key is the task id; posting under a live key replaces it.
	Key     int64
	Channel Channel
	Header  string
	Title   string
	Body    string
	// Ongoing notifications cannot be swiped away.
	Ongoing    bool
	AutoCancel bool
	AlertOnce  bool
	Actions    []Action
	Payload    model.Payload
}

// Action returns the action of the given kind, if the notification offers it.
func (n Notification) Action(kind ActionKind) (Action, bool) {
	for _, a := range n.Actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}

// Facility displays notifications.
type Facility interface {
	Post(key int64, n Notification) error
	Cancel(key int64) error
	PermissionGranted() bool
}
