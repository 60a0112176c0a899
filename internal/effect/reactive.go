package effect

import (
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/cond"
	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// maxReactionDepth caps reactive cascades.
const maxReactionDepth = 3

// Rule reacts to an applied effect. Condition is evaluated in the
// restricted expression language against {before, after, effect}; effect
// templates may use "{target}" for the triggering effect's target.
type Rule struct {
	Name      string
	Type      string // triggering effect type
	Condition string
	Effects   []world.Effect
}

// baselineRules is the static reaction set.
func baselineRules() []Rule {
	return []Rule{
		{
			Name:      "unconscious_at_zero",
			Type:      world.EffectHP,
			Condition: "after.hp.current <= 0",
			Effects: []world.Effect{{
				Type:   world.EffectTag,
				Target: "{target}",
				Add:    "unconscious",
				Cause:  "reaction:unconscious_at_zero",
			}},
		},
		{
			Name:      "bloodied_crossing",
			Type:      world.EffectHP,
			Condition: "after.hp.current <= 3 and before.hp.current > 3",
			Effects: []world.Effect{{
				Type:   world.EffectTag,
				Target: "{target}",
				Add:    "bloodied",
				Cause:  "reaction:bloodied_crossing",
			}},
		},
		{
			Name:      "fear_shakes_guard",
			Type:      world.EffectMark,
			Condition: "effect.add_tag == 'fear'",
			Effects: []world.Effect{{
				Type:   world.EffectGuard,
				Target: "{target}",
				Delta:  -1,
				Cause:  "reaction:fear_shakes_guard",
			}},
		},
		{
			Name:      "confidence_steadies_guard",
			Type:      world.EffectMark,
			Condition: "effect.add_tag == 'confidence'",
			Effects: []world.Effect{{
				Type:   world.EffectGuard,
				Target: "{target}",
				Delta:  1,
				Cause:  "reaction:confidence_steadies_guard",
			}},
		},
	}
}

// react runs the reactive pass: every successful primary log entry is
// matched against the rule set; produced effects are applied and their
// logs re-enter the queue until the depth cap.
func (e *Engine) react(w *world.GameState, primary []world.LogEntry, actor string, r *dice.Roller, round int, seed int64) []world.LogEntry {
	var out []world.LogEntry
	queue := append([]world.LogEntry(nil), primary...)

	for depth := 0; depth < maxReactionDepth && len(queue) > 0; depth++ {
		var next []world.LogEntry
		for _, entry := range queue {
			if !entry.OK || entry.Status != world.LogApplied {
				continue
			}
			for _, rule := range e.rules {
				if rule.Type != entry.EffectType {
					continue
				}
				if !ruleTriggered(rule, entry) {
					continue
				}
				logging.EngineDebug("reaction %s fired for %s", rule.Name, entry.Target)
				for _, tmpl := range rule.Effects {
					eff := instantiate(tmpl, entry.Target)
					if v, ok := e.validators[eff.Type]; ok {
						if err := v(w, eff); err != nil {
							logging.EngineWarn("reaction %s produced invalid effect: %v", rule.Name, err)
							continue
						}
					}
					log, err := e.dispatch(w, eff, actor, r)
					log.Round = round
					log.Seed = seed
					if err != nil {
						logging.EngineWarn("reaction %s effect failed: %v", rule.Name, err)
					}
					out = append(out, log)
					next = append(next, log)
				}
			}
		}
		queue = next
	}
	return out
}

// ruleTriggered evaluates the rule condition against the log entry.
// Errors are treated as false.
func ruleTriggered(rule Rule, entry world.LogEntry) bool {
	if rule.Condition == "" {
		return true
	}
	ctx := cond.Context{
		"before": hpView(entry.Before),
		"after":  hpView(entry.After),
		"effect": map[string]interface{}{
			"type":    entry.EffectType,
			"target":  entry.Target,
			"add_tag": addedMarkTag(entry),
		},
	}
	met, err := cond.Eval(rule.Condition, ctx)
	if err != nil {
		logging.EngineDebug("rule %s condition errored: %v", rule.Name, err)
		return false
	}
	return met
}

// hpView lifts a handler snapshot {"hp": 5} into {hp: {current: 5}} for
// the condition context.
func hpView(snap map[string]interface{}) map[string]interface{} {
	if snap == nil {
		return map[string]interface{}{"hp": map[string]interface{}{"current": float64(-1)}}
	}
	current := -1.0
	if v, ok := snap["hp"]; ok {
		switch t := v.(type) {
		case int:
			current = float64(t)
		case float64:
			current = t
		}
	}
	return map[string]interface{}{"hp": map[string]interface{}{"current": current}}
}

// addedMarkTag extracts the "+tag" from a mark log summary.
func addedMarkTag(entry world.LogEntry) string {
	if entry.EffectType != world.EffectMark {
		return ""
	}
	if i := strings.Index(entry.Summary, ": +"); i >= 0 {
		return strings.TrimSpace(entry.Summary[i+3:])
	}
	return ""
}

// instantiate fills the {target} placeholder of a rule template.
func instantiate(tmpl world.Effect, target string) world.Effect {
	if tmpl.Target == "{target}" {
		tmpl.Target = target
	}
	return tmpl
}
