// Package eventbus carries state transition notifications from the
// connection manager to anyone observing it (the monitor, tests, the CLI).
package eventbus

import (
	"sync"

	"github.com/cskr/pubsub/v2"
)

// EventID represents a unique event ID.
type EventID byte

// The different types of event IDs.
const (
	EventNone EventID = iota // The zero value for this type.
	EventError
	EventTransition
)

var eventNames = map[EventID]string{
	EventNone:       "",
	EventError:      "error_event",
	EventTransition: "transition_event",
}

// String returns the name of the event ID.
func (e EventID) String() string {
	return eventNames[e]
}

// Value returns the event ID.
func (e EventID) Value() uint {
	return uint(e)
}

// EventPublisher represents an interface that provides an event publisher.
type EventPublisher interface {
	// Publish publishes an event to the event stream.
	Publish(id EventID, data any)
}

// EventSubscriber represents an interface that provides an event subscriber.
type EventSubscriber interface {
	// Subscribe subscribes to an event from the event stream.
	Subscribe(id EventID) Subscription
}

// EventHandler represents an interface that provides an event publisher and subscriber.
type EventHandler interface {
	EventPublisher
	EventSubscriber
}

// Bus is an event handler backed by a buffered publish/subscribe hub.
// Publishing never blocks: slow subscribers miss events instead.
type Bus struct {
	ps *pubsub.PubSub[uint, any]

	once sync.Once
}

// NilBus represents a disabled event handler.
type NilBus struct{}

// Subscription represents an active subscription to an event stream.
type Subscription struct {
	C chan any

	active bool
	unsub  func()
}

// New returns a new event bus, where each subscriber may buffer
// up to capacity events.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 10
	}

	return &Bus{ps: pubsub.New[uint, any](capacity)}
}

// Publish publishes an event to the event stream.
func (b *Bus) Publish(id EventID, data any) {
	b.ps.TryPub(data, id.Value())
}

// Subscribe subscribes to an event from the event stream.
func (b *Bus) Subscribe(id EventID) Subscription {
	ch := b.ps.Sub(id.Value())

	return Subscription{
		C:      ch,
		active: true,
		unsub: func() {
			go b.ps.Unsub(ch, id.Value())
		},
	}
}

// Close shuts the bus down, closing every subscription channel.
func (b *Bus) Close() {
	b.once.Do(b.ps.Shutdown)
}

// Publish does not do anything.
func (NilBus) Publish(EventID, any) {}

// Subscribe returns an inactive subscription with a closed channel.
func (NilBus) Subscribe(EventID) Subscription {
	ch := make(chan any)
	close(ch)

	return Subscription{C: ch}
}

// Unsubscribe unsubscribes from the attached subscription.
func (s Subscription) Unsubscribe() {
	if s.unsub != nil {
		s.unsub()
	}
}

// IsActive returns if the subscriber can actually receive events.
func (s Subscription) IsActive() bool {
	return s.active
}
