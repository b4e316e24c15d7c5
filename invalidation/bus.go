package invalidation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/embld/contentcore/observe"
)

// ErrNilHandler is returned by Subscribe for a nil handler.
var ErrNilHandler = errors.New("invalidation: handler is nil")

// Event announces that values tagged with Tag are stale.
type Event struct {
	Tag       string
	EmittedAt time.Time
}

// Handler consumes an Event. Handlers run on the publisher's goroutine and
// must not publish.
type Handler func(ctx context.Context, ev Event)

// Publisher is the producer side of a Bus.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Synchrony: Publish returns only after all current handlers have run.
//   - Ordering: publishes of the same tag are delivered in call order.
type Publisher interface {
	Publish(ctx context.Context, tag string)
	PublishAll(ctx context.Context, tags ...string)
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock replaces time.Now for Event.EmittedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger for handler panics.
func WithLogger(l observe.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bus is an in-process, synchronous Publisher with no persistence or replay.
// A handler subscribed after a publish never sees that event.
type Bus struct {
	now    func() time.Time
	logger observe.Logger

	// dispatch serializes publishes so same-tag events apply in call order.
	dispatch sync.Mutex

	mu       sync.RWMutex
	handlers []*subscription
	nextID   uint64
}

type subscription struct {
	id uint64
	h  Handler
}

// NewBus creates a Bus with no subscribers.
func NewBus(opts ...Option) *Bus {
	b := &Bus{now: time.Now, logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h and returns a function that removes it. The returned
// function is idempotent.
func (b *Bus) Subscribe(h Handler) (unsubscribe func(), err error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, h: h}
	b.handlers = append(b.handlers, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}, nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.handlers {
		if sub.id == id {
			// Copy so a publish iterating the old slice is unaffected.
			next := make([]*subscription, 0, len(b.handlers)-1)
			next = append(next, b.handlers[:i]...)
			b.handlers = append(next, b.handlers[i+1:]...)
			return
		}
	}
}

// Publish delivers an Event for tag to every current handler and returns
// after all of them have run. Empty tags are ignored.
func (b *Bus) Publish(ctx context.Context, tag string) {
	if tag == "" {
		return
	}

	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	ev := Event{Tag: tag, EmittedAt: b.now()}
	for _, sub := range handlers {
		b.deliver(ctx, sub, ev)
	}
}

// PublishAll publishes each distinct tag in order.
func (b *Bus) PublishAll(ctx context.Context, tags ...string) {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		b.Publish(ctx, tag)
	}
}

// Len returns the number of subscribed handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// deliver runs one handler. A panicking handler is logged and does not stop
// delivery to the others.
func (b *Bus) deliver(ctx context.Context, sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "invalidation handler panicked",
				observe.F("tag", ev.Tag),
				observe.F("subscriber", sub.id),
				observe.F("panic", r),
			)
		}
	}()
	sub.h(ctx, ev)
}

var _ Publisher = (*Bus)(nil)
