// Package alarmkey hands out the scheduling keys reminders are armed under.
package alarmkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/reminderd/internal/model"
)

var ErrNilTask = errors.New("alarmkey: nil task")

type KeyStore interface {
	NextAlarmKey(ctx context.Context) (int64, error)
}

type Allocator struct {
	keys KeyStore
}

func New(keys KeyStore) *Allocator {
	return &Allocator{keys: keys}
}

// Ensure gives task an alarm key the first time it needs one. A task that
// already holds a key keeps it for life, and a task without a due time is
// left alone. It reports whether a key was allocated.
func (a *Allocator) Ensure(ctx context.Context, task *model.Task) (bool, error) {
	if task == nil {
		return false, ErrNilTask
	}
	if task.AlarmID != 0 || task.DueAt <= 0 {
		return false, nil
	}
	key, err := a.keys.NextAlarmKey(ctx)
	if err != nil {
		return false, fmt.Errorf("alarmkey: allocate: %w", err)
	}
	if key == 0 {
		return false, errors.New("alarmkey: store returned zero key")
	}
	task.AlarmID = key
	return true, nil
}
