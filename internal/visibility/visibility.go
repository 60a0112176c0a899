// Package visibility implements point-of-view checks and redaction: the
// projections of world objects that each role (gm, narrator, player) is
// allowed to see. Redacted views keep a stable key set per entity type so
// downstream consumers never branch on missing keys.
package visibility

import (
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Role selects the redaction policy.
type Role string

const (
	RoleGM       Role = "gm"
	RoleNarrator Role = "narrator"
	RolePlayer   Role = "player"
)

// CanPlayerSee decides whether the pov actor currently perceives the
// entity. An empty pov is the GM and sees everything. gm_only entities are
// never visible; hidden entities require membership in known_by; otherwise
// visibility is co-location. Public items the pov already knows about stay
// visible from anywhere.
func CanPlayerSee(w *world.GameState, povID string, e *world.Entity) bool {
	if povID == "" {
		return true
	}
	if e.Meta == nil {
		return false
	}
	switch e.Meta.Visibility {
	case world.VisibilityGMOnly:
		return false
	case world.VisibilityHidden:
		return e.Meta.Knows(povID)
	}
	if e.Type == world.EntityItem && e.Meta.Knows(povID) {
		return true
	}
	pov, ok := w.Entity(povID)
	if !ok {
		return false
	}
	return pov.CurrentZone != "" && pov.CurrentZone == e.CurrentZone
}

// RedactEntity projects an entity for the given pov and role. Player views
// are served from and stored into the world's redaction cache.
func RedactEntity(w *world.GameState, povID string, e *world.Entity, role Role) map[string]interface{} {
	if role == RoleGM {
		return e.Dump()
	}

	if role == RoleNarrator {
		// The narrator keys off the entity's own visibility state, not a
		// point of view: hidden and gm_only entities keep identity and
		// location but lose sensitive fields.
		if e.Meta != nil && e.Meta.Visibility != world.VisibilityPublic {
			return narratorShell(e)
		}
		view := e.Dump()
		if meta, ok := view["meta"].(map[string]interface{}); ok {
			meta["notes"] = nil
		}
		return view
	}

	if povID == "" {
		return e.Dump()
	}
	if cached, ok := w.CachedView(povID, e.ID); ok {
		return cached
	}

	var view map[string]interface{}
	visible := CanPlayerSee(w, povID, e)
	if visible {
		view = e.Dump()
		if meta, ok := view["meta"].(map[string]interface{}); ok {
			meta["notes"] = nil
		}
	} else {
		view = playerShell(e)
	}

	w.StoreView(povID, e.ID, view)
	logging.Visibility("cached view pov=%s entity=%s visible=%t", povID, e.ID, visible)
	return view
}

// playerShell is the reduced view of an entity the pov cannot see. The key
// set matches the full dump for the entity's type, with null sentinels.
func playerShell(e *world.Entity) map[string]interface{} {
	out := map[string]interface{}{
		"id":           e.ID,
		"type":         string(e.Type),
		"is_visible":   false,
		"name":         "Unknown",
		"current_zone": nil,
		"tags":         map[string]interface{}{},
		"meta": map[string]interface{}{
			"visibility":      string(world.VisibilityHidden),
			"gm_only":         false,
			"known_by":        []string{},
			"created_at":      nil,
			"last_changed_at": nil,
			"notes":           nil,
		},
	}
	switch e.Type {
	case world.EntityPC, world.EntityNPC:
		out["stats"] = map[string]interface{}{
			"strength": nil, "dexterity": nil, "constitution": nil,
			"intelligence": nil, "wisdom": nil, "charisma": nil,
		}
		out["hp"] = map[string]interface{}{"current": nil, "max": nil}
		out["inventory"] = []string{}
		out["visible_actors"] = []string{}
		out["has_weapon"] = nil
		out["has_talked_this_turn"] = nil
		out["conditions"] = map[string]interface{}{}
		out["guard"] = nil
		out["guard_duration"] = nil
		out["style_bonus"] = nil
		out["marks"] = map[string]interface{}{}
	case world.EntityObject:
		out["description"] = nil
		out["interactable"] = nil
		out["locked"] = nil
	case world.EntityItem:
		out["description"] = nil
		out["weight"] = nil
		out["value"] = nil
	}
	return out
}

// narratorShell keeps identity and location visible while numeric fields
// collapse to -1 sentinels and collections empty. Marks reduce to a count
// so narration can gesture at them without leaking their content.
func narratorShell(e *world.Entity) map[string]interface{} {
	meta := map[string]interface{}{
		"visibility": "hidden",
		"gm_only":    false,
		"known_by":   []string{},
		"notes":      nil,
	}
	if e.Meta != nil {
		meta["visibility"] = string(e.Meta.Visibility)
		meta["gm_only"] = e.Meta.GMOnly
		full := e.Meta.Dump()
		meta["created_at"] = full["created_at"]
		meta["last_changed_at"] = full["last_changed_at"]
	}
	out := map[string]interface{}{
		"id":           e.ID,
		"type":         string(e.Type),
		"is_visible":   false,
		"name":         e.Name,
		"current_zone": e.CurrentZone,
		"tags":         deepCopy(e.Tags),
		"meta":         meta,
	}
	if out["tags"] == nil {
		out["tags"] = map[string]interface{}{}
	}
	switch e.Type {
	case world.EntityPC, world.EntityNPC:
		out["stats"] = map[string]interface{}{
			"strength": -1, "dexterity": -1, "constitution": -1,
			"intelligence": -1, "wisdom": -1, "charisma": -1,
		}
		out["hp"] = map[string]interface{}{"current": -1, "max": -1}
		out["inventory"] = []string{}
		out["visible_actors"] = []string{}
		out["has_weapon"] = false
		out["has_talked_this_turn"] = false
		out["conditions"] = map[string]interface{}{}
		out["guard"] = -1
		out["guard_duration"] = -1
		out["style_bonus"] = -1
		out["marks"] = map[string]interface{}{"hidden_mark_count": len(e.Marks)}
	case world.EntityObject:
		out["description"] = nil
		out["interactable"] = e.Interactable
		out["locked"] = e.Locked
	case world.EntityItem:
		out["description"] = nil
		out["weight"] = -1
		out["value"] = -1
	}
	return out
}

// RedactZone projects a zone for the pov. GM sees everything. gm_only
// zones reduce to a shell for everyone else; otherwise the dump carries an
// entities array filtered through CanPlayerSee.
func RedactZone(w *world.GameState, povID string, z *world.Zone, role Role) map[string]interface{} {
	full := z.Dump()
	if role == RoleGM || povID == "" {
		full["entities"] = w.EntitiesInZone(z.ID)
		return full
	}
	if z.Meta != nil && z.Meta.GMOnly {
		return map[string]interface{}{
			"id":          z.ID,
			"name":        "Unknown",
			"description": nil,
			"exits":       []map[string]interface{}{},
			"tags":        []string{},
			"entities":    []string{},
			"meta": map[string]interface{}{
				"visibility": string(world.VisibilityGMOnly),
				"gm_only":    true,
				"notes":      nil,
			},
		}
	}
	var visible []string
	for _, id := range w.EntitiesInZone(z.ID) {
		e, ok := w.Entity(id)
		if !ok {
			continue
		}
		if CanPlayerSee(w, povID, e) {
			visible = append(visible, id)
		}
	}
	if visible == nil {
		visible = []string{}
	}
	full["entities"] = visible
	if meta, ok := full["meta"].(map[string]interface{}); ok {
		meta["notes"] = nil
	}
	return full
}

// RedactClock projects a clock. Hidden clocks require pov membership in
// known_by; gm_only clocks are GM-only. Invisible clocks return nil, and
// callers substitute a placeholder where a stable shape is needed.
func RedactClock(povID string, c *world.Clock, role Role) map[string]interface{} {
	if role == RoleGM || povID == "" {
		return c.Dump()
	}
	if c.Meta != nil {
		switch c.Meta.Visibility {
		case world.VisibilityGMOnly:
			return nil
		case world.VisibilityHidden:
			if !c.Meta.Knows(povID) {
				return nil
			}
		}
	}
	out := c.Dump()
	if meta, ok := out["meta"].(map[string]interface{}); ok {
		meta["notes"] = nil
	}
	return out
}

// RedactExit masks an exit for an actor. Actors standing in the source
// zone see the full record. Actors who have discovered either endpoint see
// the exit with the label dropped and conditions collapsed to a presence
// flag. Everyone else gets nil.
func RedactExit(w *world.GameState, actorID, sourceZoneID string, x *world.Exit) map[string]interface{} {
	if actorID == "" {
		return world.DumpExit(x)
	}
	actor, ok := w.Entity(actorID)
	if ok && actor.CurrentZone == sourceZoneID {
		return world.DumpExit(x)
	}
	discovered := false
	if src, ok := w.Zone(sourceZoneID); ok && src.DiscoveredBy[actorID] {
		discovered = true
	}
	if dst, ok := w.Zone(x.To); ok && dst.DiscoveredBy[actorID] {
		discovered = true
	}
	if !discovered {
		return nil
	}
	out := world.DumpExit(x)
	out["label"] = nil
	if _, has := out["conditions"]; has {
		out["conditions"] = map[string]interface{}{"present": true}
	}
	return out
}

func deepCopy(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
