// Package alarm is an in-process stand-in for an operating system alarm
// service: keyed single-shot timers that deliver their payload on a channel
// when due.
package alarm

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/reminderd/internal/model"
)

var (
	ErrInvalidTriggerTime = errors.New("alarm: invalid trigger time")
	ErrInvalidKey         = errors.New("alarm: invalid key")
	ErrPrivilegeDenied    = errors.New("alarm: exact timing privilege not granted")
	ErrResourceExhausted  = errors.New("alarm: too many pending alarms")
	ErrStopped            = errors.New("alarm: engine stopped")
)

type Method string

const (
	MethodExact      Method = "exact"
	MethodAlarmClock Method = "alarm-clock"
	MethodInexact    Method = "inexact"
	MethodPlain      Method = "plain"
)

// Fire is what the engine emits when an alarm comes due.
type Fire struct {
	Key     int64
	Payload model.Payload
	Method  Method
	At      time.Time
	FiredAt time.Time
}

type Options struct {
	// Buffer is the capacity of the fire channel.
	Buffer int
	// InexactWindow batches inexact alarms onto window boundaries.
	InexactWindow time.Duration
	// MaxPending caps live alarms; zero means unlimited.
	MaxPending     int
	ExactPrivilege bool
}

type entry struct {
	key     int64
	at      time.Time
	payload model.Payload
	method  Method
	index   int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	return h[i].at.Before(h[j].at)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[0 : n-1]
	return e
}

type Engine struct {
	mu      sync.Mutex
	queue   entryHeap
	byKey   map[int64]*entry
	exact   bool
	opts    Options
	out     chan Fire
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(opts Options) *Engine {
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}
	return &Engine{
		queue:  make(entryHeap, 0),
		byKey:  make(map[int64]*entry),
		exact:  opts.ExactPrivilege,
		opts:   opts,
		out:    make(chan Fire, opts.Buffer),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Fire {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) HasExactPrivilege() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exact
}

// SetExactPrivilege models the user granting or revoking exact timing.
func (e *Engine) SetExactPrivilege(granted bool) {
	e.mu.Lock()
	e.exact = granted
	e.mu.Unlock()
}

func (e *Engine) ArmExact(key int64, at time.Time, p model.Payload) error {
	return e.arm(key, at, p, MethodExact)
}

// ArmAlarmClock is an exact alarm the user can see as an upcoming alarm.
func (e *Engine) ArmAlarmClock(key int64, at time.Time, p model.Payload) error {
	return e.arm(key, at, p, MethodAlarmClock)
}

// ArmInexact may deliver up to InexactWindow late.
func (e *Engine) ArmInexact(key int64, at time.Time, p model.Payload) error {
	return e.arm(key, coalesce(at, e.opts.InexactWindow), p, MethodInexact)
}

func (e *Engine) ArmPlain(key int64, at time.Time, p model.Payload) error {
	return e.arm(key, at, p, MethodPlain)
}

// Cancel drops the alarm under key. Cancelling an unknown key is a no-op.
func (e *Engine) Cancel(key int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	existing, ok := e.byKey[key]
	if !ok {
		return nil
	}
	heap.Remove(&e.queue, existing.index)
	delete(e.byKey, key)
	e.signalWakeup()
	return nil
}

// Pending reports the alarm currently armed under key.
func (e *Engine) Pending(key int64) (Fire, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	existing, ok := e.byKey[key]
	if !ok {
		return Fire{}, false
	}
	return Fire{Key: key, Payload: existing.payload, Method: existing.method, At: existing.at}, true
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Dropped counts fires that came due but were still undelivered when the
// engine stopped. A slow consumer delays fires; it never loses them.
func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) arm(key int64, at time.Time, p model.Payload, method Method) error {
	if key == 0 {
		return ErrInvalidKey
	}
	if at.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	if (method == MethodExact || method == MethodAlarmClock) && !e.exact {
		return ErrPrivilegeDenied
	}

	// Arming an existing key replaces it, like re-registering the same
	// pending intent.
	if existing, ok := e.byKey[key]; ok {
		existing.at = at
		existing.payload = p
		existing.method = method
		heap.Fix(&e.queue, existing.index)
		e.signalWakeup()
		return nil
	}
	if e.opts.MaxPending > 0 && len(e.queue) >= e.opts.MaxPending {
		return ErrResourceExhausted
	}
	item := &entry{key: key, at: at, payload: p, method: method}
	heap.Push(&e.queue, item)
	e.byKey[key] = item
	e.signalWakeup()
	return nil
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			now := time.Now()
			due := e.popDue(now)
			for i, f := range due {
				f.FiredAt = now
				select {
				case e.out <- f:
				case <-e.stopCh:
					atomic.AddUint64(&e.dropped, uint64(len(due)-i))
					return
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return time.Time{}, false
	}
	return e.queue[0].at, true
}

func (e *Engine) popDue(now time.Time) []Fire {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Fire, 0)
	for len(e.queue) > 0 {
		next := e.queue[0]
		if next.at.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*entry)
		delete(e.byKey, item.key)
		out = append(out, Fire{Key: item.key, Payload: item.payload, Method: item.method, At: item.at})
	}
	return out
}

// coalesce rounds at up to the next window boundary so nearby inexact
// alarms share one wake-up.
func coalesce(at time.Time, window time.Duration) time.Time {
	if window <= 0 || at.IsZero() {
		return at
	}
	rounded := at.Truncate(window)
	if rounded.Before(at) {
		rounded = rounded.Add(window)
	}
	return rounded
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
