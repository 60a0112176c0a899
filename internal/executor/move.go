package executor

import (
	"fmt"

	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
	"github.com/jacoblum22/AID-D-sub000/internal/zonegraph"
)

func (ex *Executor) move(w *world.GameState, args map[string]interface{}, seed int64) tools.ToolResult {
	actorID := tools.StringArg(args, "actor", "")
	to := tools.StringArg(args, "to", "")
	method := tools.StringArg(args, "method", "walk")

	actor, ok := w.Entity(actorID)
	if !ok || !actor.IsAlive() {
		return moveFail(args, fmt.Sprintf("%s cannot move", actorID), "invalid")
	}
	if _, ok := w.Zone(to); !ok {
		return moveFail(args, fmt.Sprintf("there is no %q to go to", to), "invalid")
	}
	if actor.CurrentZone == to {
		return moveFail(args, fmt.Sprintf("%s is already in %s", actor.Name, to), "same_zone")
	}

	exit, cost, reason := resolveExit(w, actor, to, tools.BoolArg(args, "ignore_adjacency", false))
	if reason != "" {
		return moveFail(args, fmt.Sprintf("cannot reach %s: %s", to, reason), reason)
	}

	// A sneaking move into a watchful scene is a check, not a walk. The
	// pipeline treats this envelope as a deferred execution.
	if method == "sneak" && w.Scene != nil && w.Scene.AlertLevel() > 1 {
		res := tools.ToolResult{
			OK:     false,
			ToolID: tools.ToolAskRoll,
			Args: map[string]interface{}{
				"actor":       actorID,
				"action":      "sneak",
				"zone_target": to,
			},
			Facts: map[string]interface{}{
				"deferred": true,
				"reason":   "sneak_check_required",
				"from":     actor.CurrentZone,
				"to":       to,
			},
			NarrationHint: tools.NewHint(fmt.Sprintf("%s will need to sneak carefully toward %s", actor.Name, to), []string{"tense"}, 2),
		}
		return res
	}

	effects := []world.Effect{{
		Type:   world.EffectPosition,
		Target: actorID,
		From:   actor.CurrentZone,
		To:     to,
		Cause:  "move:" + method,
	}}
	switch method {
	case "run":
		effects = append(effects,
			world.Effect{Type: world.EffectTag, Target: "scene", Add: map[string]interface{}{world.SceneTagNoise: "loud"}, Cause: "move:run"},
			world.Effect{Type: world.EffectNoise, Zone: to, Intensity: "loud", Source: actorID, Cause: "move:run"},
		)
		if _, ok := w.Clock("alarm"); ok {
			effects = append(effects, world.Effect{Type: world.EffectClock, ID: "alarm", Delta: 1, Source: actorID, Cause: "move:run"})
		}
	case "sneak":
		effects = append(effects, world.Effect{
			Type: world.EffectTag, Target: actorID, Add: "sneak_intent", Cause: "move:sneak",
		})
	}

	facts := map[string]interface{}{
		"actor":  actorID,
		"from":   actor.CurrentZone,
		"to":     to,
		"method": method,
		"cost":   cost,
	}
	if exit != nil && exit.Terrain != "" {
		facts["terrain"] = exit.Terrain
	}
	return tools.ToolResult{
		OK:            true,
		ToolID:        tools.ToolMove,
		Args:          args,
		Facts:         facts,
		Effects:       effects,
		NarrationHint: tools.NewHint(moveSummary(actor.Name, to, method), moveTone(method), 3),
	}
}

// resolveExit finds the usable exit toward the target. reason is empty on
// success; with ignore_adjacency set the graph is bypassed entirely.
func resolveExit(w *world.GameState, actor *world.Entity, to string, ignoreAdjacency bool) (*world.Exit, float64, string) {
	if ignoreAdjacency {
		return nil, 1.0, ""
	}
	zone, ok := w.Zone(actor.CurrentZone)
	if !ok {
		return nil, 0, "invalid"
	}
	exit, ok := zone.ExitTo(to)
	if !ok {
		return nil, 0, "invalid"
	}
	if usable, reason := zonegraph.IsExitUsable(exit, actor, w); !usable {
		return nil, 0, reason
	}
	return exit, zonegraph.EdgeWeight(exit, actor, nil), ""
}

func moveFail(args map[string]interface{}, msg, reason string) tools.ToolResult {
	res := tools.Fail(tools.ToolMove, msg, args)
	res.Facts["reason"] = reason
	return res
}

func moveSummary(name, to, method string) string {
	switch method {
	case "run":
		return fmt.Sprintf("%s sprints into %s", name, to)
	case "sneak":
		return fmt.Sprintf("%s slips quietly into %s", name, to)
	default:
		return fmt.Sprintf("%s moves to %s", name, to)
	}
}

func moveTone(method string) []string {
	switch method {
	case "run":
		return []string{"urgent"}
	case "sneak":
		return []string{"tense"}
	default:
		return []string{"neutral"}
	}
}
