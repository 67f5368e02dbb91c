package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandeepkv93/reminderd/internal/model"
)

const (
	Header       = "Reminder"
	fallbackBody = "You have a reminder"
)

type Preferences interface {
	PersistentReminders() bool
}

type Presenter struct {
	facility Facility
	prefs    Preferences
	channel  Channel
}

func NewPresenter(facility Facility, prefs Preferences) *Presenter {
	return &Presenter{facility: facility, prefs: prefs, channel: DefaultChannel()}
}

// Present posts the reminder for p, keyed by its task id. Without
// notification permission it does nothing.
func (p *Presenter) Present(ctx context.Context, payload model.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.facility.PermissionGranted() {
		return nil
	}
	n := p.Build(payload)
	if err := p.facility.Post(n.Key, n); err != nil {
		return fmt.Errorf("notify: post task %d: %w", payload.TaskID, err)
	}
	return nil
}

// Withdraw removes the notification for taskID if one is showing.
func (p *Presenter) Withdraw(taskID int64) error {
	if err := p.facility.Cancel(taskID); err != nil {
		return fmt.Errorf("notify: cancel task %d: %w", taskID, err)
	}
	return nil
}

func (p *Presenter) Build(payload model.Payload) Notification {
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = fallbackBody
	}
	n := Notification{
		Key:     payload.TaskID,
		Channel: p.channel,
		Header:  Header,
		Title:   title,
		Body:    payload.Text(),
		Payload: payload,
		Actions: []Action{{Kind: ActionOpen, Label: "Open", Payload: payload}},
	}
	if p.prefs != nil && p.prefs.PersistentReminders() {
		n.Ongoing = true
		n.Actions = append(n.Actions,
			Action{Kind: ActionSnooze, Label: "Snooze", Payload: payload},
			Action{Kind: ActionDismiss, Label: "Dismiss", Payload: payload},
		)
		return n
	}
	n.AutoCancel = true
	n.AlertOnce = true
	return n
}
