package zonegraph

import (
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// TerrainModifiers maps a terrain token to a cost multiplier.
type TerrainModifiers map[string]float64

// DefaultTerrainModifiers is the base table. Unknown terrain costs 1.0.
var DefaultTerrainModifiers = TerrainModifiers{
	"stairs": 1.5,
	"mud":    2.0,
	"fire":   3.0,
	"water":  2.0,
	"ice":    1.5,
	"thorns": 2.0,
	"sand":   1.5,
	"rubble": 1.5,
	"swamp":  2.5,
	"lava":   5.0,
}

// Modifier resolves the multiplier for one terrain token. Precedence:
// actor tag "terrain.<token>" (numeric override, e.g. a flying actor sets
// terrain.mud to 1.0), then the supplied table, then
// DefaultTerrainModifiers, then 1.0.
func (m TerrainModifiers) Modifier(actor *world.Entity, terrain string) float64 {
	if terrain == "" {
		return 1.0
	}
	if actor != nil {
		if v, ok := actor.Tags["terrain."+terrain]; ok {
			if f, ok := toFloat(v); ok && f > 0 {
				return f
			}
		}
	}
	if m != nil {
		if f, ok := m[terrain]; ok && f > 0 {
			return f
		}
	}
	if f, ok := DefaultTerrainModifiers[terrain]; ok {
		return f
	}
	return 1.0
}

// EdgeWeight computes the traversal cost of one exit for one actor:
// exit cost times the terrain multiplier, floored at 0.1.
func EdgeWeight(x *world.Exit, actor *world.Entity, mods TerrainModifiers) float64 {
	w := x.EffectiveCost() * mods.Modifier(actor, x.Terrain)
	if w < 0.1 {
		return 0.1
	}
	return w
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
