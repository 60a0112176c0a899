// Package events implements the in-process event bus for world changes.
// Delivery is synchronous and best-effort: listeners run in registration
// order over a snapshot of the listener list, and a panicking listener is
// caught and logged without disturbing other listeners or the publisher.
package events

import (
	"sync"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
)

// Topic identifies an event stream.
type Topic string

// Topics published by the engine.
const (
	TopicExitBlocked           Topic = "zone_graph.exit_blocked"
	TopicExitUnblocked         Topic = "zone_graph.exit_unblocked"
	TopicExitCreated           Topic = "zone_graph.exit_created"
	TopicExitDestroyed         Topic = "zone_graph.exit_destroyed"
	TopicExitConditionsChanged Topic = "zone_graph.exit_conditions_changed"
	TopicEntityDiscovered      Topic = "entity.discovered"
	TopicZoneEntered           Topic = "zone.entered"
	TopicZoneEntitiesDiscovered Topic = "zone.entities_discovered"
	TopicMetaChanged           Topic = "meta.changed"
	TopicCacheInvalidated      Topic = "cache.invalidated"
)

// Payload is the event payload map (from_zone, to_zone, cause, ...).
type Payload map[string]interface{}

// Listener receives published events.
type Listener func(topic Topic, payload Payload)

type subscriber struct {
	id    int
	topic Topic
	fn    Listener
}

// Bus is a synchronous in-process pub/sub bus.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID int

	// Stats
	published uint64
	panics    uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener for a topic and returns a subscription id.
// The empty topic subscribes to everything.
func (b *Bus) Subscribe(topic Topic, fn Listener) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, topic: topic, fn: fn})
	return b.nextID
}

// Unsubscribe removes a subscription by id.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all matching listeners in registration order.
// Listeners run over a snapshot of the list, so subscribing or
// unsubscribing during dispatch cannot disrupt delivery.
func (b *Bus) Publish(topic Topic, payload Payload) {
	b.mu.RLock()
	snapshot := make([]subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.RUnlock()

	b.mu.Lock()
	b.published++
	b.mu.Unlock()

	logging.Events("publish %s payload_keys=%d listeners=%d", topic, len(payload), len(snapshot))

	for _, s := range snapshot {
		if s.topic != "" && s.topic != topic {
			continue
		}
		b.dispatch(s, topic, payload)
	}
}

// dispatch invokes a single listener, isolating panics.
func (b *Bus) dispatch(s subscriber, topic Topic, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			b.panics++
			b.mu.Unlock()
			logging.EventsWarn("listener %d panicked on %s: %v", s.id, topic, r)
		}
	}()
	s.fn(topic, payload)
}

// Stats reports bus counters.
type Stats struct {
	Subscribers int
	Published   uint64
	Panics      uint64
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{Subscribers: len(b.subs), Published: b.published, Panics: b.panics}
}
