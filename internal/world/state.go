package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jacoblum22/AID-D-sub000/internal/events"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
)

// ErrZoneNotFound is returned for lookups of unknown zone ids.
var ErrZoneNotFound = errors.New("zone not found")

// ErrEntityNotFound is returned for lookups of unknown entity ids.
var ErrEntityNotFound = errors.New("entity not found")

type cacheKey struct {
	pov      string // "" means GM pov
	entityID string
}

// GameState owns all mutable world state for one game. The engine is
// single-threaded cooperative per world: one turn runs to completion before
// the next utterance is accepted, so no locking happens here.
type GameState struct {
	Entities      map[string]*Entity `json:"entities"`
	Zones         map[string]*Zone   `json:"zones"`
	Clocks        map[string]*Clock  `json:"clocks"`
	Scene         *Scene             `json:"scene"`
	CurrentActor  string             `json:"current_actor,omitempty"`
	PendingAction string             `json:"pending_action,omitempty"`
	TurnFlags     map[string]interface{} `json:"turn_flags,omitempty"`

	bus            *events.Bus
	redactionCache map[cacheKey]map[string]interface{}
}

// NewGameState creates an empty world with its own event bus.
func NewGameState() *GameState {
	return &GameState{
		Entities:       make(map[string]*Entity),
		Zones:          make(map[string]*Zone),
		Clocks:         make(map[string]*Clock),
		Scene:          NewScene("scene", nil),
		TurnFlags:      make(map[string]interface{}),
		bus:            events.NewBus(),
		redactionCache: make(map[cacheKey]map[string]interface{}),
	}
}

// Bus returns the world's event bus.
func (g *GameState) Bus() *events.Bus {
	if g.bus == nil {
		g.bus = events.NewBus()
	}
	return g.bus
}

// Entity looks up an entity by id.
func (g *GameState) Entity(id string) (*Entity, bool) {
	e, ok := g.Entities[id]
	return e, ok
}

// Zone looks up a zone by id.
func (g *GameState) Zone(id string) (*Zone, bool) {
	z, ok := g.Zones[id]
	return z, ok
}

// Clock looks up a clock by id.
func (g *GameState) Clock(id string) (*Clock, bool) {
	c, ok := g.Clocks[id]
	return c, ok
}

// AddEntity inserts an entity.
func (g *GameState) AddEntity(e *Entity) {
	g.Entities[e.ID] = e
}

// AddZone inserts a zone.
func (g *GameState) AddZone(z *Zone) {
	g.Zones[z.ID] = z
}

// AddClock inserts a clock.
func (g *GameState) AddClock(c *Clock) {
	g.Clocks[c.ID] = c
}

// ReplaceEntity swaps in a modified copy of an entity. All effect handlers
// mutate via copy-replace, never in place.
func (g *GameState) ReplaceEntity(e *Entity) {
	g.Entities[e.ID] = e
	g.InvalidateEntityCache(e.ID)
}

// EntitiesInZone returns the ids of entities whose current zone matches,
// in sorted order for determinism.
func (g *GameState) EntitiesInZone(zoneID string) []string {
	var out []string
	for id, e := range g.Entities {
		if e.CurrentZone == zoneID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// TouchMeta records a meta change: timestamps, the meta.changed event, and
// redaction cache invalidation for the owning object.
func (g *GameState) TouchMeta(objectID string, m *Meta) {
	m.Touch()
	g.InvalidateEntityCache(objectID)
	g.Bus().Publish(events.TopicMetaChanged, events.Payload{"object_id": objectID})
}

// CachedView consults the redaction cache. Only the player role caches.
func (g *GameState) CachedView(povID, entityID string) (map[string]interface{}, bool) {
	v, ok := g.redactionCache[cacheKey{pov: povID, entityID: entityID}]
	return v, ok
}

// StoreView records a redacted view in the cache.
func (g *GameState) StoreView(povID, entityID string, view map[string]interface{}) {
	if g.redactionCache == nil {
		g.redactionCache = make(map[cacheKey]map[string]interface{})
	}
	g.redactionCache[cacheKey{pov: povID, entityID: entityID}] = view
}

// InvalidateEntityCache drops every cache entry for the given entity,
// regardless of pov, and publishes cache.invalidated.
func (g *GameState) InvalidateEntityCache(entityID string) {
	dropped := 0
	for k := range g.redactionCache {
		if k.entityID == entityID {
			delete(g.redactionCache, k)
			dropped++
		}
	}
	if dropped > 0 {
		logging.Visibility("cache invalidated entity=%s entries=%d", entityID, dropped)
		g.Bus().Publish(events.TopicCacheInvalidated, events.Payload{"entity_id": entityID, "entries": dropped})
	}
}

// InvalidateAllCache clears the whole redaction cache. Acceptable at coarse
// boundaries such as turn end.
func (g *GameState) InvalidateAllCache() {
	if len(g.redactionCache) == 0 {
		return
	}
	n := len(g.redactionCache)
	g.redactionCache = make(map[cacheKey]map[string]interface{})
	g.Bus().Publish(events.TopicCacheInvalidated, events.Payload{"entity_id": "", "entries": n})
}

// EffectiveActor resolves an explicit actor id, falling back to the world's
// current actor, then to the scene's turn order.
func (g *GameState) EffectiveActor(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if g.CurrentActor != "" {
		return g.CurrentActor
	}
	if g.Scene != nil {
		return g.Scene.CurrentActor()
	}
	return ""
}

// Validate runs the whole-world invariant checks and returns every
// violation found.
func (g *GameState) Validate() []error {
	var errs []error
	for id, e := range g.Entities {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
		if e.CurrentZone != "" {
			if _, ok := g.Zones[e.CurrentZone]; !ok {
				errs = append(errs, fmt.Errorf("entity %s: current_zone %q not in zone map", id, e.CurrentZone))
			}
		}
	}
	for id, z := range g.Zones {
		if err := z.Validate(); err != nil {
			errs = append(errs, err)
		}
		for _, x := range z.Exits {
			if _, ok := g.Zones[x.To]; !ok {
				errs = append(errs, fmt.Errorf("zone %s: exit target %q not in zone map", id, x.To))
			}
		}
	}
	for _, c := range g.Clocks {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if g.Scene != nil {
		if err := g.Scene.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Clone deep-copies the world state. The clone gets its own bus and an
// empty redaction cache.
func (g *GameState) Clone() *GameState {
	c := NewGameState()
	for id, e := range g.Entities {
		c.Entities[id] = e.Clone()
	}
	for id, z := range g.Zones {
		c.Zones[id] = z.Clone()
	}
	for id, cl := range g.Clocks {
		c.Clocks[id] = cl.Clone()
	}
	if g.Scene != nil {
		c.Scene = g.Scene.Clone()
	}
	c.CurrentActor = g.CurrentActor
	c.PendingAction = g.PendingAction
	c.TurnFlags = deepCopyMap(g.TurnFlags)
	if c.TurnFlags == nil {
		c.TurnFlags = make(map[string]interface{})
	}
	return c
}
