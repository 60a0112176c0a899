package effect

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/events"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
	"github.com/jacoblum22/AID-D-sub000/internal/zonegraph"
)

func (e *Engine) registerBuiltins() {
	e.RegisterHandler(world.EffectHP, applyHP, validateLivingTarget)
	e.RegisterHandler(world.EffectGuard, applyGuard, validateLivingTarget)
	e.RegisterHandler(world.EffectPosition, applyPosition, validatePosition)
	e.RegisterHandler(world.EffectMark, applyMark, validateLivingTarget)
	e.RegisterHandler(world.EffectInventory, applyInventory, validateInventory)
	e.RegisterHandler(world.EffectClock, applyClock, validateClock)
	e.RegisterHandler(world.EffectTag, applyTag, validateTag)
	e.RegisterHandler(world.EffectResource, applyResource, validateResource)
	e.RegisterHandler(world.EffectNoise, applyNoise, validateNoise)
	e.RegisterHandler(world.EffectMeta, applyMetaEffect, nil)
}

// ---- validators ----

func validateLivingTarget(w *world.GameState, eff world.Effect) error {
	if eff.Target == "" {
		return fmt.Errorf("%s effect missing target", eff.Type)
	}
	target, ok := w.Entity(eff.Target)
	if !ok {
		return fmt.Errorf("%s effect: %w: %s", eff.Type, world.ErrEntityNotFound, eff.Target)
	}
	if !target.IsLiving() {
		return fmt.Errorf("%s effect: target %s is not living", eff.Type, eff.Target)
	}
	if eff.Type == world.EffectHP || eff.Type == world.EffectGuard {
		if eff.Delta == nil {
			return fmt.Errorf("%s effect: missing delta", eff.Type)
		}
	}
	if eff.Type == world.EffectMark && eff.Add == nil && eff.Remove == nil {
		return fmt.Errorf("mark effect: needs add or remove")
	}
	return nil
}

func validatePosition(w *world.GameState, eff world.Effect) error {
	if eff.Target == "" || eff.To == "" {
		return fmt.Errorf("position effect: needs target and to")
	}
	if _, ok := w.Entity(eff.Target); !ok {
		return fmt.Errorf("position effect: %w: %s", world.ErrEntityNotFound, eff.Target)
	}
	if _, ok := w.Zone(eff.To); !ok {
		return fmt.Errorf("position effect: %w: %s", world.ErrZoneNotFound, eff.To)
	}
	return nil
}

func validateInventory(w *world.GameState, eff world.Effect) error {
	if eff.Target == "" || eff.ID == "" || eff.Delta == nil {
		return fmt.Errorf("inventory effect: needs target, id, and delta")
	}
	if _, ok := w.Entity(eff.Target); !ok {
		return fmt.Errorf("inventory effect: %w: %s", world.ErrEntityNotFound, eff.Target)
	}
	return nil
}

func validateClock(w *world.GameState, eff world.Effect) error {
	if eff.ID == "" {
		return fmt.Errorf("clock effect: missing id")
	}
	if eff.Delta == nil {
		return fmt.Errorf("clock effect: missing delta")
	}
	return nil
}

func validateTag(w *world.GameState, eff world.Effect) error {
	if eff.Target == "" {
		return fmt.Errorf("tag effect: missing target")
	}
	if eff.Target != "scene" {
		if _, ok := w.Entity(eff.Target); !ok {
			return fmt.Errorf("tag effect: %w: %s", world.ErrEntityNotFound, eff.Target)
		}
	}
	if eff.Add == nil && eff.Remove == nil {
		return fmt.Errorf("tag effect: needs add or remove")
	}
	return nil
}

func validateResource(w *world.GameState, eff world.Effect) error {
	if eff.Target == "" || eff.ID == "" || eff.Delta == nil {
		return fmt.Errorf("resource effect: needs target, id, and delta")
	}
	if _, ok := w.Entity(eff.Target); !ok {
		return fmt.Errorf("resource effect: %w: %s", world.ErrEntityNotFound, eff.Target)
	}
	return nil
}

var noiseIntensities = map[string]bool{
	"quiet": true, "normal": true, "loud": true, "very_loud": true,
}

func validateNoise(w *world.GameState, eff world.Effect) error {
	if eff.Zone == "" {
		return fmt.Errorf("noise effect: missing zone")
	}
	if _, ok := w.Zone(eff.Zone); !ok {
		return fmt.Errorf("noise effect: %w: %s", world.ErrZoneNotFound, eff.Zone)
	}
	if !noiseIntensities[eff.Intensity] {
		return fmt.Errorf("noise effect: bad intensity %q", eff.Intensity)
	}
	return nil
}

// ---- handlers ----

func applyHP(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	target, _ := w.Entity(eff.Target)
	delta, rolled, err := dice.ResolveDelta(r, eff.Delta)
	if err != nil {
		return world.LogEntry{}, err
	}

	before := target.HP.Current
	next := target.Clone()
	next.HP.Current += delta
	if next.HP.Current > next.HP.Max {
		next.HP.Current = next.HP.Max
	}
	if next.HP.Current < 0 {
		next.HP.Current = 0
	}
	w.ReplaceEntity(next)

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Before:      map[string]interface{}{"hp": before},
		After:       map[string]interface{}{"hp": next.HP.Current},
		Rolled:      rolled,
		Summary:     fmt.Sprintf("%s.hp: %d -> %d", eff.Target, before, next.HP.Current),
		ImpactLevel: abs(next.HP.Current - before),
		Timestamp:   time.Now().UTC(),
	}, nil
}

func applyGuard(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	target, _ := w.Entity(eff.Target)
	delta, rolled, err := dice.ResolveDelta(r, eff.Delta)
	if err != nil {
		return world.LogEntry{}, err
	}

	before := target.Guard
	next := target.Clone()
	next.Guard += delta
	if next.Guard < 0 {
		next.Guard = 0
	}
	w.ReplaceEntity(next)

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Before:      map[string]interface{}{"guard": before},
		After:       map[string]interface{}{"guard": next.Guard},
		Rolled:      rolled,
		Summary:     fmt.Sprintf("%s.guard: %d -> %d", eff.Target, before, next.Guard),
		ImpactLevel: abs(next.Guard - before),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// applyPosition moves the entity and maintains the derived visibility
// state: the mover and the occupants of the destination become mutually
// known and mutually visible, newly adjacent zones are revealed, and
// zone.entered plus entity.discovered events fire.
func applyPosition(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	target, _ := w.Entity(eff.Target)
	from := target.CurrentZone
	if eff.From != "" {
		from = eff.From
	}

	next := target.Clone()
	next.CurrentZone = eff.To
	w.ReplaceEntity(next)

	// Mutual discovery with the destination's living occupants: two
	// atomic updates per pair, each touching meta and invalidating the
	// observer's cache entries.
	var discovered []string
	for _, id := range w.EntitiesInZone(eff.To) {
		if id == eff.Target {
			continue
		}
		other, ok := w.Entity(id)
		if !ok || !other.IsLiving() {
			continue
		}

		mover, _ := w.Entity(eff.Target)
		moverNext := mover.Clone()
		moverNext.VisibleActors = addUnique(moverNext.VisibleActors, id)
		if moverNext.Meta.AddKnownBy(id) {
			w.TouchMeta(moverNext.ID, moverNext.Meta)
		}
		w.ReplaceEntity(moverNext)

		otherNext := other.Clone()
		otherNext.VisibleActors = addUnique(otherNext.VisibleActors, eff.Target)
		if otherNext.Meta.AddKnownBy(eff.Target) {
			w.TouchMeta(otherNext.ID, otherNext.Meta)
		}
		w.ReplaceEntity(otherNext)

		discovered = append(discovered, id)
		w.Bus().Publish(events.TopicEntityDiscovered, events.Payload{
			"observer": eff.Target,
			"entity":   id,
			"zone":     eff.To,
		})
	}
	sort.Strings(discovered)

	zonegraph.RevealAdjacentZones(w, eff.Target, eff.To)
	if z, ok := w.Zone(eff.To); ok {
		if z.DiscoveredBy == nil {
			z.DiscoveredBy = make(map[string]bool)
		}
		z.DiscoveredBy[eff.Target] = true
	}
	w.Bus().Publish(events.TopicZoneEntered, events.Payload{
		"entity": eff.Target,
		"from":   from,
		"to":     eff.To,
	})
	logging.Engine("position %s: %s -> %s (%d discovered)", eff.Target, from, eff.To, len(discovered))

	return world.LogEntry{
		OK:     true,
		Status: world.LogApplied,
		Target: eff.Target,
		Before: map[string]interface{}{"zone": from},
		After:  map[string]interface{}{"zone": eff.To, "discovered": discovered},
		Summary: fmt.Sprintf("%s.zone: %s -> %s", eff.Target, from, eff.To),
		ImpactLevel: 1,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func applyMark(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	target, _ := w.Entity(eff.Target)
	next := target.Clone()
	// Entities decoded from a save arrive with a nil mark map.
	if next.Marks == nil {
		next.Marks = make(map[string]world.Mark)
	}

	round := 1
	if w.Scene != nil {
		round = w.Scene.Round
	}

	var summary string
	switch {
	case eff.Add != nil:
		tag, ok := eff.Add.(string)
		if !ok || tag == "" {
			return world.LogEntry{}, fmt.Errorf("mark add must be a tag string, got %T", eff.Add)
		}
		source := eff.Source
		if source == "" {
			source = actor
		}
		key := world.MarkKey(source, tag)
		next.Marks[key] = world.Mark{
			Tag:         tag,
			Source:      source,
			Value:       eff.Value,
			Consumes:    eff.Consumes,
			CreatedTurn: round,
		}
		summary = fmt.Sprintf("%s.marks: +%s", eff.Target, tag)
	case eff.Remove != nil:
		tag, ok := eff.Remove.(string)
		if !ok || tag == "" {
			return world.LogEntry{}, fmt.Errorf("mark remove must be a tag string, got %T", eff.Remove)
		}
		removed := false
		for key, m := range next.Marks {
			if m.Tag == tag || key == tag {
				delete(next.Marks, key)
				removed = true
			}
		}
		if !removed {
			// Removing an absent mark is a quiet no-op.
			summary = fmt.Sprintf("%s.marks: -%s (absent)", eff.Target, tag)
		} else {
			summary = fmt.Sprintf("%s.marks: -%s", eff.Target, tag)
		}
	}
	w.ReplaceEntity(next)

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Before:      map[string]interface{}{"marks": len(target.Marks)},
		After:       map[string]interface{}{"marks": len(next.Marks)},
		Summary:     summary,
		ImpactLevel: 1,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func applyInventory(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	target, _ := w.Entity(eff.Target)
	delta, _, err := dice.ResolveDelta(r, eff.Delta)
	if err != nil {
		return world.LogEntry{}, err
	}

	before := target.CountItem(eff.ID)
	next := target.Clone()
	if delta > 0 {
		for i := 0; i < delta; i++ {
			next.Inventory = append(next.Inventory, eff.ID)
		}
	} else if delta < 0 {
		remove := -delta
		if before < remove {
			return world.LogEntry{}, fmt.Errorf("inventory: %s has %d of %s, cannot remove %d", eff.Target, before, eff.ID, remove)
		}
		kept := next.Inventory[:0]
		for _, item := range next.Inventory {
			if item == eff.ID && remove > 0 {
				remove--
				continue
			}
			kept = append(kept, item)
		}
		next.Inventory = kept
	}
	w.ReplaceEntity(next)
	after := next.CountItem(eff.ID)

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Before:      map[string]interface{}{"count": before},
		After:       map[string]interface{}{"count": after},
		Summary:     fmt.Sprintf("%s.inventory[%s]: %d -> %d", eff.Target, eff.ID, before, after),
		ImpactLevel: abs(after - before),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// applyClock advances (autovivifying with bounds [0,10]) and clamps.
func applyClock(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	delta, rolled, err := dice.ResolveDelta(r, eff.Delta)
	if err != nil {
		return world.LogEntry{}, err
	}

	round := 1
	if w.Scene != nil {
		round = w.Scene.Round
	}

	c, ok := w.Clock(eff.ID)
	if !ok {
		c = world.NewClock(eff.ID, eff.ID, 0, 10)
		c.CreatedRound = round
		w.AddClock(c)
		logging.Engine("autovivified clock %s [0,10]", eff.ID)
	}
	before := c.Value
	c.Advance(delta, round, actor)

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.ID,
		Before:      map[string]interface{}{"value": before},
		After:       map[string]interface{}{"value": c.Value, "filled": c.IsFilled()},
		Rolled:      rolled,
		Summary:     fmt.Sprintf("clock.%s: %d -> %d", eff.ID, before, c.Value),
		ImpactLevel: abs(c.Value - before),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// applyTag merges or removes tags on the scene or an entity. Scene tag
// values coerce to strings.
func applyTag(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	var added, removed []string

	if eff.Target == "scene" {
		if w.Scene == nil {
			return world.LogEntry{}, fmt.Errorf("tag effect: no scene")
		}
		for k, v := range tagAdditions(eff.Add) {
			w.Scene.Tags[k] = coerceString(v)
			added = append(added, k)
		}
		for _, k := range tagRemovals(eff.Remove) {
			delete(w.Scene.Tags, k)
			removed = append(removed, k)
		}
	} else {
		target, _ := w.Entity(eff.Target)
		next := target.Clone()
		if next.Tags == nil {
			next.Tags = make(map[string]interface{})
		}
		for k, v := range tagAdditions(eff.Add) {
			next.Tags[k] = v
			added = append(added, k)
		}
		for _, k := range tagRemovals(eff.Remove) {
			delete(next.Tags, k)
			removed = append(removed, k)
		}
		w.ReplaceEntity(next)
	}
	sort.Strings(added)
	sort.Strings(removed)

	summary := fmt.Sprintf("%s.tags:", eff.Target)
	for _, k := range added {
		summary += " +" + k
	}
	for _, k := range removed {
		summary += " -" + k
	}

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Before:      map[string]interface{}{},
		After:       map[string]interface{}{"added": added, "removed": removed},
		Summary:     summary,
		ImpactLevel: 1,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// tagAdditions normalizes Add: a bare string becomes {s: true}.
func tagAdditions(add interface{}) map[string]interface{} {
	switch v := add.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return map[string]interface{}{v: true}
	case map[string]interface{}:
		return v
	}
	return nil
}

// tagRemovals normalizes Remove: string or list of strings.
func tagRemovals(remove interface{}) []string {
	switch v := remove.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// applyResource stores a numeric resource under the compat tag key
// "resource_{id}".
func applyResource(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	target, _ := w.Entity(eff.Target)
	delta, rolled, err := dice.ResolveDelta(r, eff.Delta)
	if err != nil {
		return world.LogEntry{}, err
	}

	key := "resource_" + eff.ID
	before := 0
	if v, ok := target.Tags[key]; ok {
		switch t := v.(type) {
		case int:
			before = t
		case float64:
			before = int(t)
		}
	}
	next := target.Clone()
	if next.Tags == nil {
		next.Tags = make(map[string]interface{})
	}
	next.Tags[key] = before + delta
	w.ReplaceEntity(next)

	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Before:      map[string]interface{}{key: before},
		After:       map[string]interface{}{key: before + delta},
		Rolled:      rolled,
		Summary:     fmt.Sprintf("%s.%s: %d -> %d", eff.Target, key, before, before+delta),
		ImpactLevel: abs(delta),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// applyNoise is validate-only: the atom records ambience for narration but
// mutates nothing.
func applyNoise(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Zone,
		Before:      map[string]interface{}{},
		After:       map[string]interface{}{"intensity": eff.Intensity},
		Summary:     fmt.Sprintf("noise in %s: %s", eff.Zone, eff.Intensity),
		ImpactLevel: 1,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// applyMetaEffect is a logged placeholder.
func applyMetaEffect(w *world.GameState, eff world.Effect, actor string, r *dice.Roller) (world.LogEntry, error) {
	return world.LogEntry{
		OK:          true,
		Status:      world.LogApplied,
		Target:      eff.Target,
		Summary:     "meta effect noted",
		ImpactLevel: 1,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func addUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
