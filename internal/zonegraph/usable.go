package zonegraph

import (
	"fmt"

	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// IsExitUsable evaluates whether an actor may traverse an exit right now.
// Conditions are checked in a fixed order and the first failure wins:
// blocked, key_required, level_required, tag_required, stat_check.
// stat_check is reserved and always fails with a reason.
func IsExitUsable(x *world.Exit, actor *world.Entity, w *world.GameState) (bool, string) {
	if x == nil {
		return false, "no such exit"
	}
	if x.Blocked {
		return false, "exit is blocked"
	}
	if len(x.Conditions) == 0 {
		return true, ""
	}

	if req, ok := x.Conditions[world.CondKeyRequired]; ok {
		item, _ := req.(string)
		if item == "" || actor == nil || !actor.HasItem(item) {
			return false, fmt.Sprintf("requires key %q", item)
		}
	}

	if req, ok := x.Conditions[world.CondLevelRequired]; ok {
		need, okNum := toFloat(req)
		if !okNum {
			return false, "malformed level_required condition"
		}
		if actorLevel(actor) < need {
			return false, fmt.Sprintf("requires level %d", int(need))
		}
	}

	if req, ok := x.Conditions[world.CondTagRequired]; ok {
		tag, _ := req.(string)
		if tag == "" || actor == nil || !hasTag(actor, tag) {
			return false, fmt.Sprintf("requires tag %q", tag)
		}
	}

	if _, ok := x.Conditions[world.CondStatCheck]; ok {
		return false, "stat_check conditions are not supported yet"
	}

	return true, ""
}

// actorLevel reads an actor's level from the "level" tag, defaulting to 1.
func actorLevel(actor *world.Entity) float64 {
	if actor == nil {
		return 0
	}
	if v, ok := actor.Tags["level"]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return 1
}

// hasTag reports whether the tag exists and is not explicitly false.
func hasTag(actor *world.Entity, tag string) bool {
	v, ok := actor.Tags[tag]
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return true
}

// UsableExits filters a zone's exits down to those the actor can traverse,
// preserving exit order.
func UsableExits(w *world.GameState, zoneID string, actor *world.Entity) []world.Exit {
	z, ok := w.Zone(zoneID)
	if !ok {
		return nil
	}
	var out []world.Exit
	for _, x := range z.Exits {
		if usable, _ := IsExitUsable(&x, actor, w); usable {
			out = append(out, x)
		}
	}
	return out
}
