package notify

import (
	"sync"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

type Kind string

const (
	EntityAdded   Kind = "entityAdded"
	EntityUpdated Kind = "entityUpdated"
	EntityDeleted Kind = "entityDeleted"
	AccessGranted Kind = "accessGranted"
	AccessDenied  Kind = "accessDenied"
)

// Entity names carried in Event.Entity.
const (
	EntityOrganization = "organization"
	EntityDepartment   = "department"
	EntityCard         = "card"
	EntityBiometric    = "biometric"
	EntityDevice       = "device"
	EntityAccessLog    = "access_log"
)

// Event is the envelope pushed to observers.
type Event struct {
	Type    Kind      `json:"type"`
	Entity  string    `json:"entity,omitempty"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Publisher is the narrow interface services depend on.
type Publisher interface {
	Publish(ev Event)
}

const DefaultBuffer = 64

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewBus(buffer int, m *metrics.Metrics) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:    make(map[uint64]*Subscription),
		buffer:  buffer,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type Subscription struct {
	id   uint64
	bus  *Bus
	ch   chan Event
	once sync.Once
}

// C delivers events until Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close unregisters the subscription and closes its channel. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		close(s.ch)
		s.bus.mu.Unlock()
		s.bus.metrics.AddSubscribers(-1)
	})
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b, ch: make(chan Event, b.buffer)}
	b.subs[sub.id] = sub
	b.metrics.AddSubscribers(1)
	return sub
}

func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = b.now()
	}

	// Send under the read lock so Close cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.metrics.IncDropped()
		}
	}
}

// Len reports the number of attached subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}
