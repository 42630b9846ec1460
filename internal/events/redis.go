package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying check-in events across
// instances. Redis pub/sub has exactly the subscription semantics this needs:
// fire-and-forget to current listeners, no retained log.
const Channel = "kidgate:events"

const publishTimeout = 2 * time.Second

// Publisher is what the write path publishes into. Implementations must never
// block or fail the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// The local broker satisfies Publisher for single-instance deployments.
type brokerPublisher struct {
	broker *Broker
}

func NewBrokerPublisher(broker *Broker) Publisher {
	return &brokerPublisher{broker: broker}
}

func (p *brokerPublisher) Publish(_ context.Context, event Event) {
	p.broker.Publish(event)
}

// wireEvent is the cross-instance envelope. Origin identifies the publishing
// instance so each bridge can drop its own messages: local subscribers were
// already delivered to directly.
type wireEvent struct {
	Origin string `json:"origin"`
	Event
}

// RedisPublisher delivers to the local broker synchronously and pushes the
// event through Redis in the background so the other instances' brokers see
// it. The write path never waits on Redis; a publish failure is logged and the
// remote instances converge through their snapshot backstop.
type RedisPublisher struct {
	client *redis.Client
	local  *Broker
	origin string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, local *Broker, origin string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, local: local, origin: origin, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	p.local.Publish(event)

	payload, err := json.Marshal(wireEvent{Origin: p.origin, Event: event})
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event", "error", err.Error())
		return
	}

	// Detached context: the originating request may already be done, and a
	// hung Redis must not stall the caller at all.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	go func() {
		defer cancel()
		if err := p.client.Publish(pubCtx, Channel, payload).Err(); err != nil {
			p.logger.Error("redis publish failed, remote instances rely on their snapshot backstop",
				"error", err.Error(),
			)
		}
	}()
}

// Bridge feeds Redis-published events into the local broker, skipping this
// instance's own messages. Run blocks until the context is cancelled.
type Bridge struct {
	client *redis.Client
	broker *Broker
	origin string
	logger *slog.Logger
}

func NewBridge(client *redis.Client, broker *Broker, origin string, logger *slog.Logger) *Bridge {
	return &Bridge{client: client, broker: broker, origin: origin, logger: logger}
}

func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(msg.Payload)
		}
	}
}

// deliver decodes one wire payload into the local broker.
func (b *Bridge) deliver(payload string) {
	var wire wireEvent
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		b.logger.Warn("malformed event on redis channel", "error", err.Error())
		return
	}
	if wire.Origin == b.origin {
		return
	}
	b.broker.Publish(wire.Event)
}
