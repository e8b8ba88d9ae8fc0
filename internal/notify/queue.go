package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// DefaultAutoClose is applied to notifications that do not set AutoClose.
const DefaultAutoClose = 5 * time.Second

// EventKind tells a Listener what happened to a notification.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
)

// Event is delivered to listeners after the queue changes.
type Event struct {
	Kind         EventKind
	Notification domain.Notification
}

// Listener observes queue changes. Listeners run synchronously on the
// goroutine that changed the queue, after the queue lock is released.
type Listener func(Event)

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) QueueOption {
	return func(q *Queue) { q.sched = s }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// WithDefaultAutoClose changes the default expiry.
func WithDefaultAutoClose(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.defaultAutoClose = d
		}
	}
}

// WithMaxLen bounds the queue; the oldest entries are dropped first. Zero
// leaves the queue unbounded.
func WithMaxLen(n int) QueueOption {
	return func(q *Queue) { q.maxLen = n }
}

// Queue holds ephemeral notifications in insertion order and expires them
// through a Scheduler.
type Queue struct {
	mu               sync.Mutex
	items            []domain.Notification
	timers           map[string]Timer
	listeners        []Listener
	sched            Scheduler
	now              func() time.Time
	defaultAutoClose time.Duration
	maxLen           int
	logger           *slog.Logger
}

// NewQueue creates an empty queue.
func NewQueue(logger *slog.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		timers:           make(map[string]Timer),
		sched:            RealScheduler{},
		now:              time.Now,
		defaultAutoClose: DefaultAutoClose,
		logger:           logger.With(slog.String("component", "notify_queue")),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Subscribe registers l for every subsequent change.
func (q *Queue) Subscribe(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, l)
}

// Add assigns an id and timestamp to n, applies the auto-close policy,
// stores it, and returns the stored copy.
func (q *Queue) Add(n domain.Notification) domain.Notification {
	n.ID = uuid.NewString()
	if n.Type == "" {
		n.Type = domain.NotifyDefault
	}

	q.mu.Lock()
	n.Timestamp = q.now().UTC()
	if n.Sticky {
		n.AutoClose = 0
	} else if n.AutoClose <= 0 {
		n.AutoClose = q.defaultAutoClose
	}
	q.items = append(q.items, n)
	if !n.Sticky {
		id := n.ID
		q.timers[id] = q.sched.AfterFunc(n.AutoClose, func() { q.expire(id) })
	}

	events := []Event{{Kind: EventAdded, Notification: n}}
	for q.maxLen > 0 && len(q.items) > q.maxLen {
		oldest := q.items[0]
		q.removeLocked(oldest.ID)
		events = append(events, Event{Kind: EventRemoved, Notification: oldest})
	}
	listeners := q.listeners
	q.mu.Unlock()

	q.logger.Debug("notification added",
		slog.String("id", n.ID),
		slog.String("type", string(n.Type)),
		slog.String("title", n.Title),
	)
	emit(listeners, events)
	return n
}

// Dismiss removes id immediately and reports whether it was present.
// Dismissing an absent id is a no-op.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	n, ok := q.removeLocked(id)
	listeners := q.listeners
	q.mu.Unlock()

	if ok {
		emit(listeners, []Event{{Kind: EventRemoved, Notification: n}})
	}
	return ok
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	n, ok := q.removeLocked(id)
	listeners := q.listeners
	q.mu.Unlock()

	if ok {
		q.logger.Debug("notification expired", slog.String("id", id))
		emit(listeners, []Event{{Kind: EventRemoved, Notification: n}})
	}
}

func (q *Queue) removeLocked(id string) (domain.Notification, bool) {
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return n, true
		}
	}
	return domain.Notification{}, false
}

// Get returns the notification with id.
func (q *Queue) Get(id string) (domain.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range q.items {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Notification{}, false
}

// List returns the queued notifications in insertion order.
func (q *Queue) List() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Len is the number of queued notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops every pending expiry timer.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
}

func emit(listeners []Listener, events []Event) {
	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
}
