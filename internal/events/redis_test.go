package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidgate/pkg/domain"
)

func TestRedisPublisher_LocalDeliveryNeverWaitsOnRedis(t *testing.T) {
	broker := NewBroker(4, testLogger())
	defer broker.Close()
	sub := broker.Subscribe(Filter{Kind: FilterAll})

	// A dial timeout far above the assertion budget: if the caller's
	// goroutine ever touched Redis, the test would blow past the deadline.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Second})
	defer client.Close()
	pub := NewRedisPublisher(client, broker, "instance-a", testLogger())

	event := testEvent("alert", domain.AdultID(domain.NewCheckInID()))
	start := time.Now()
	pub.Publish(context.Background(), event)
	assert.Less(t, time.Since(start), time.Second, "publish must return without a Redis round trip")

	select {
	case got := <-sub.Events():
		assert.Equal(t, event.CheckInID, got.CheckInID)
		assert.Equal(t, "alert", got.Status)
	case <-time.After(time.Second):
		t.Fatal("event never reached the local broker")
	}
}

func TestBridge_DropsOwnMessages(t *testing.T) {
	broker := NewBroker(4, testLogger())
	defer broker.Close()
	sub := broker.Subscribe(Filter{Kind: FilterAll})

	bridge := NewBridge(nil, broker, "instance-a", testLogger())

	own, err := json.Marshal(wireEvent{
		Origin: "instance-a",
		Event:  testEvent("alert", domain.AdultID(domain.NewCheckInID())),
	})
	require.NoError(t, err)
	bridge.deliver(string(own))
	assert.Empty(t, sub.Events(), "an instance's own messages come back from redis and must be dropped")

	remote := testEvent("alert", domain.AdultID(domain.NewCheckInID()))
	foreign, err := json.Marshal(wireEvent{Origin: "instance-b", Event: remote})
	require.NoError(t, err)
	bridge.deliver(string(foreign))

	select {
	case got := <-sub.Events():
		assert.Equal(t, remote.CheckInID, got.CheckInID)
	case <-time.After(time.Second):
		t.Fatal("remote event never reached the local broker")
	}
}

func TestBridge_IgnoresMalformedPayload(t *testing.T) {
	broker := NewBroker(4, testLogger())
	defer broker.Close()
	sub := broker.Subscribe(Filter{Kind: FilterAll})

	bridge := NewBridge(nil, broker, "instance-a", testLogger())
	bridge.deliver("{not json")

	assert.Empty(t, sub.Events())
}
