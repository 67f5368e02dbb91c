package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	tasks   map[int64]model.Task
	getErr  error
	listErr error
}

func newMemStore(tasks ...model.Task) *memStore {
	s := &memStore{tasks: make(map[int64]model.Task)}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *memStore) GetTask(_ context.Context, id int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return model.Task{}, s.getErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *memStore) ListDueUncompleted(_ context.Context, _ time.Time) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) UpdateCompletion(_ context.Context, id int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.IsCompleted = completed
	s.tasks[id] = t
	return nil
}

func (s *memStore) UpdateDueAt(_ context.Context, id int64, dueAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.DueAt = dueAt
	t.AnchorAt = 0
	s.tasks[id] = t
	return nil
}

func (s *memStore) ListUndelivered(_ context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.DueAt > 0 && !t.Delivered() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) SnoozeUntil(_ context.Context, id int64, until int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	if t.AnchorAt == 0 {
		t.AnchorAt = t.DueAt
	}
	t.DueAt = until
	s.tasks[id] = t
	return nil
}

func (s *memStore) MarkNotified(_ context.Context, id int64, dueAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if ok && t.DueAt == dueAt {
		t.NotifiedDue = dueAt
		s.tasks[id] = t
	}
	return nil
}

func (s *memStore) get(id int64) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []model.Task
	cancelled []int64
	failFor   map[int64]error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{failFor: map[int64]error{}}
}

func (f *fakeScheduler) Schedule(_ context.Context, task model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[task.ID]; ok {
		return err
	}
	f.scheduled = append(f.scheduled, task)
	return nil
}

func (f *fakeScheduler) Cancel(task model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.AlarmID != 0 {
		f.cancelled = append(f.cancelled, task.AlarmID)
	}
	return nil
}

func (f *fakeScheduler) scheduledTasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.scheduled...)
}

func (f *fakeScheduler) cancelledKeys() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cancelled...)
}

type fakePrefs struct {
	mu         sync.Mutex
	persistent bool
	snooze     time.Duration
}

func (p *fakePrefs) PersistentReminders() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistent
}

func (p *fakePrefs) SnoozeDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snooze
}

func (p *fakePrefs) RemindersEnabled() bool { return true }

type recordingReporter struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingReporter) Report(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingReporter) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1]
}

type panickingPresenter struct{}

func (panickingPresenter) Present(context.Context, model.Payload) error { panic("renderer exploded") }
func (panickingPresenter) Withdraw(int64) error                         { return nil }
