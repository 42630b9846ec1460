package events

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscriptionsLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kidgate_subscriptions_live",
		Help: "Live subscriptions by filter kind.",
	}, []string{"kind"})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kidgate_events_dropped_total",
		Help: "Events dropped on full subscriber buffers; repaired by the sync backstop.",
	})
)

// Subscription is a scoped handle onto the stream: acquire, consume Events(),
// Close() deterministically on teardown. No replay: a reconnecting client
// starts from a fresh snapshot, not from a log.
type Subscription struct {
	filter Filter
	ch     chan Event

	broker *Broker
	id     uint64
	once   sync.Once
}

// Events yields matching events until Close. The channel is closed by Close
// or by broker shutdown, never by the publisher side racing a send.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Filter returns the subscription's scope.
func (s *Subscription) Filter() Filter { return s.filter }

// Close releases the slot immediately. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s.id)
		close(s.ch)
	})
}

// Broker is the in-process fan-out hub. Publishing never blocks: a slow
// subscriber's buffer overflows and the event is counted and dropped.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool

	logger *slog.Logger
}

func NewBroker(buffer int, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a live subscription. Establishing it never blocks
// delivery to existing subscribers beyond the registry lock.
func (b *Broker) Subscribe(filter Filter) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{
		filter: filter,
		ch:     make(chan Event, b.buffer),
		broker: b,
		id:     b.nextID,
	}
	b.nextID++
	if b.closed {
		// Late subscriber on a shut-down broker gets a dead channel.
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	subscriptionsLive.WithLabelValues(string(filter.Kind)).Inc()
	return sub
}

// Publish delivers to every matching live subscription, best effort.
func (b *Broker) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			eventsDropped.Inc()
			b.logger.Warn("subscriber buffer full, event dropped",
				"filter", string(sub.filter.Kind),
				"check_in_id", event.CheckInID.String(),
			)
		}
	}
}

// Close tears down every subscription. Publish afterwards is a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		subscriptionsLive.WithLabelValues(string(sub.filter.Kind)).Dec()
	}
}
