package events

import (
	"testing"
)

func TestPublishInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.Subscribe(TopicZoneEntered, func(Topic, Payload) { order = append(order, "first") })
	bus.Subscribe(TopicZoneEntered, func(Topic, Payload) { order = append(order, "second") })
	bus.Subscribe(TopicMetaChanged, func(Topic, Payload) { order = append(order, "other") })

	bus.Publish(TopicZoneEntered, Payload{"zone": "hall"})
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

func TestWildcardSubscription(t *testing.T) {
	bus := NewBus()
	var topics []Topic
	bus.Subscribe("", func(topic Topic, _ Payload) { topics = append(topics, topic) })

	bus.Publish(TopicExitBlocked, nil)
	bus.Publish(TopicCacheInvalidated, nil)
	if len(topics) != 2 || topics[0] != TopicExitBlocked || topics[1] != TopicCacheInvalidated {
		t.Fatalf("topics = %v", topics)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0
	id := bus.Subscribe(TopicZoneEntered, func(Topic, Payload) { calls++ })

	bus.Publish(TopicZoneEntered, nil)
	bus.Unsubscribe(id)
	bus.Publish(TopicZoneEntered, nil)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	bus := NewBus()
	delivered := false
	bus.Subscribe(TopicZoneEntered, func(Topic, Payload) { panic("listener bug") })
	bus.Subscribe(TopicZoneEntered, func(Topic, Payload) { delivered = true })

	bus.Publish(TopicZoneEntered, nil)
	if !delivered {
		t.Fatal("panic in an earlier listener blocked delivery")
	}
	if bus.Stats().Panics != 1 {
		t.Fatalf("panics = %d, want 1", bus.Stats().Panics)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	bus := NewBus()
	var id int
	calls := 0
	id = bus.Subscribe(TopicZoneEntered, func(Topic, Payload) {
		calls++
		bus.Unsubscribe(id)
	})

	// The snapshot makes self-unsubscription during dispatch safe.
	bus.Publish(TopicZoneEntered, nil)
	bus.Publish(TopicZoneEntered, nil)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if bus.Stats().Subscribers != 0 {
		t.Fatalf("subscribers = %d, want 0", bus.Stats().Subscribers)
	}
}
