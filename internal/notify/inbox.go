package notify

import (
	"sort"
	"sync"
)

// Inbox is an in-memory facility holding the notifications currently
// showing. Listeners are told about every change.
type Inbox struct {
	mu        sync.Mutex
	granted   bool
	live      map[int64]Notification
	seq       uint64
	order     map[int64]uint64
	listeners []func()
}

func NewInbox() *Inbox {
	return &Inbox{granted: true, live: make(map[int64]Notification), order: make(map[int64]uint64)}
}

func (b *Inbox) Post(key int64, n Notification) error {
	b.mu.Lock()
	b.seq++
	b.live[key] = n
	b.order[key] = b.seq
	b.mu.Unlock()
	b.changed()
	return nil
}

func (b *Inbox) Cancel(key int64) error {
	b.mu.Lock()
	_, ok := b.live[key]
	delete(b.live, key)
	delete(b.order, key)
	b.mu.Unlock()
	if ok {
		b.changed()
	}
	return nil
}

func (b *Inbox) PermissionGranted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.granted
}

func (b *Inbox) SetPermission(granted bool) {
	b.mu.Lock()
	b.granted = granted
	b.mu.Unlock()
}

func (b *Inbox) Get(key int64) (Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.live[key]
	return n, ok
}

// List returns live notifications, most recently posted first.
func (b *Inbox) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, 0, len(b.live))
	for _, n := range b.live {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return b.order[out[i].Key] > b.order[out[j].Key]
	})
	return out
}

func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// OnChange registers fn to run after every post or cancel.
func (b *Inbox) OnChange(fn func()) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

func (b *Inbox) changed() {
	b.mu.Lock()
	listeners := append([]func(){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
