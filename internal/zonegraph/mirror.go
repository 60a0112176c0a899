package zonegraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// opposites is the canonical direction inversion table.
var opposites = map[world.Direction]world.Direction{
	world.DirNorth:     world.DirSouth,
	world.DirSouth:     world.DirNorth,
	world.DirEast:      world.DirWest,
	world.DirWest:      world.DirEast,
	world.DirUp:        world.DirDown,
	world.DirDown:      world.DirUp,
	world.DirNortheast: world.DirSouthwest,
	world.DirSouthwest: world.DirNortheast,
	world.DirNorthwest: world.DirSoutheast,
	world.DirSoutheast: world.DirNorthwest,
	world.DirIn:        world.DirOut,
	world.DirOut:       world.DirIn,
	world.DirForward:   world.DirBack,
	world.DirBack:      world.DirForward,
}

// OppositeDirection returns the inverse direction, or "" when unknown.
func OppositeDirection(d world.Direction) world.Direction {
	return opposites[d]
}

// directionWords maps direction tokens as they appear in labels to the
// replacement for the mirrored label.
var directionWords = map[string]string{
	"north": "south", "south": "north",
	"east": "west", "west": "east",
	"up": "down", "down": "up",
	"northeast": "southwest", "southwest": "northeast",
	"northwest": "southeast", "southeast": "northwest",
	"in": "out", "out": "in",
	"forward": "back", "back": "forward",
}

// mirrorLabel substitutes direction tokens in a label, preserving simple
// capitalization, e.g. "North stairs" becomes "South stairs".
func mirrorLabel(label string) string {
	if label == "" {
		return ""
	}
	words := strings.Fields(label)
	for i, w := range words {
		lower := strings.ToLower(w)
		rep, ok := directionWords[lower]
		if !ok {
			continue
		}
		if w != lower && len(rep) > 0 {
			rep = strings.ToUpper(rep[:1]) + rep[1:]
		}
		words[i] = rep
	}
	return strings.Join(words, " ")
}

// MirrorProposal describes one missing reciprocal exit.
type MirrorProposal struct {
	FromZone string     `json:"from_zone"`
	Exit     world.Exit `json:"exit"`
}

// MirrorReport is the result of a mirroring sweep.
type MirrorReport struct {
	Proposed []MirrorProposal `json:"proposed"`
	Created  int              `json:"created"`
	Errors   []string         `json:"errors,omitempty"`
}

// EnsureBidirectionalLinks walks every exit and, where the reciprocal is
// missing, proposes an exit on the target zone with the opposite direction,
// mirrored label, and copied cost/terrain/blocked/conditions. With dryRun
// the proposals are only reported. A missing target zone is recorded as a
// missing_target_zone error and the sweep continues.
func EnsureBidirectionalLinks(w *world.GameState, dryRun bool) MirrorReport {
	var report MirrorReport

	ids := make([]string, 0, len(w.Zones))
	for id := range w.Zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		z := w.Zones[id]
		for _, x := range z.Exits {
			target, ok := w.Zone(x.To)
			if !ok {
				report.Errors = append(report.Errors,
					fmt.Sprintf("missing_target_zone: %s -> %s", id, x.To))
				continue
			}
			if _, ok := target.ExitTo(id); ok {
				continue
			}
			mirror := world.Exit{
				To:        id,
				Label:     mirrorLabel(x.Label),
				Direction: OppositeDirection(x.Direction),
				Blocked:   x.Blocked,
				LockID:    x.LockID,
				Cost:      x.Cost,
				Terrain:   x.Terrain,
				Meta:      world.NewMeta(world.VisibilityPublic),
			}
			if len(x.Conditions) > 0 {
				mirror.Conditions = x.Clone().Conditions
			}
			report.Proposed = append(report.Proposed, MirrorProposal{FromZone: x.To, Exit: mirror})
			if !dryRun {
				target.Exits = append(target.Exits, mirror)
				w.TouchMeta(target.ID, target.Meta)
				report.Created++
				logging.Zones("mirrored exit %s -> %s (dir=%s)", x.To, id, mirror.Direction)
			}
		}
	}
	return report
}

// Inconsistency is a reciprocal exit pair whose cost, terrain, or blocked
// state disagree.
type Inconsistency struct {
	ZoneA string `json:"zone_a"`
	ZoneB string `json:"zone_b"`
	Field string `json:"field"`
	A     string `json:"a"`
	B     string `json:"b"`
}

// ValidateBidirectionalConsistency reports every reciprocal pair whose
// cost, terrain, or blocked flags differ. Each pair is reported once,
// from the lexicographically smaller zone.
func ValidateBidirectionalConsistency(w *world.GameState) []Inconsistency {
	var out []Inconsistency
	ids := make([]string, 0, len(w.Zones))
	for id := range w.Zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		z := w.Zones[id]
		for i := range z.Exits {
			x := &z.Exits[i]
			if x.To <= id {
				continue
			}
			target, ok := w.Zone(x.To)
			if !ok {
				continue
			}
			back, ok := target.ExitTo(id)
			if !ok {
				continue
			}
			if x.EffectiveCost() != back.EffectiveCost() {
				out = append(out, Inconsistency{
					ZoneA: id, ZoneB: x.To, Field: "cost",
					A: fmt.Sprintf("%g", x.EffectiveCost()),
					B: fmt.Sprintf("%g", back.EffectiveCost()),
				})
			}
			if x.Terrain != back.Terrain {
				out = append(out, Inconsistency{
					ZoneA: id, ZoneB: x.To, Field: "terrain", A: x.Terrain, B: back.Terrain,
				})
			}
			if x.Blocked != back.Blocked {
				out = append(out, Inconsistency{
					ZoneA: id, ZoneB: x.To, Field: "blocked",
					A: fmt.Sprintf("%t", x.Blocked),
					B: fmt.Sprintf("%t", back.Blocked),
				})
			}
		}
	}
	return out
}

// FixStrategy selects how mismatched pairs are reconciled.
type FixStrategy string

const (
	PreferLowerCost  FixStrategy = "prefer_lower_cost"
	PreferHigherCost FixStrategy = "prefer_higher_cost"
	AverageCost      FixStrategy = "average"
)

// FixBidirectionalInconsistencies equalizes cost, terrain, and blocked
// state across every reciprocal pair. Cost follows the strategy; terrain
// and blocked follow the side whose cost won (under average, the
// lexicographically smaller zone's side). Returns the number of exits
// modified.
func FixBidirectionalInconsistencies(w *world.GameState, strategy FixStrategy) (int, error) {
	switch strategy {
	case PreferLowerCost, PreferHigherCost, AverageCost:
	default:
		return 0, fmt.Errorf("unknown fix strategy %q", strategy)
	}

	fixed := 0
	ids := make([]string, 0, len(w.Zones))
	for id := range w.Zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		z := w.Zones[id]
		for i := range z.Exits {
			x := &z.Exits[i]
			if x.To <= id {
				continue
			}
			target, ok := w.Zone(x.To)
			if !ok {
				continue
			}
			back, ok := target.ExitTo(id)
			if !ok {
				continue
			}
			ca, cb := x.EffectiveCost(), back.EffectiveCost()
			if ca == cb && x.Terrain == back.Terrain && x.Blocked == back.Blocked {
				continue
			}

			winner := x
			switch strategy {
			case PreferLowerCost:
				if cb < ca {
					winner = back
				}
			case PreferHigherCost:
				if cb > ca {
					winner = back
				}
			case AverageCost:
				avg := (ca + cb) / 2
				x.Cost = avg
				back.Cost = avg
			}
			if strategy != AverageCost {
				cost := winner.EffectiveCost()
				x.Cost = cost
				back.Cost = cost
			}
			x.Terrain = winner.Terrain
			back.Terrain = winner.Terrain
			x.Blocked = winner.Blocked
			back.Blocked = winner.Blocked

			w.TouchMeta(z.ID, z.Meta)
			w.TouchMeta(target.ID, target.Meta)
			fixed += 2
		}
	}
	if fixed > 0 {
		logging.Zones("reconciled %d exits (strategy=%s)", fixed, strategy)
	}
	return fixed, nil
}
