package executor

import (
	"fmt"
	"sort"

	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/visibility"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func (ex *Executor) attack(w *world.GameState, args map[string]interface{}, seed int64) tools.ToolResult {
	actorID := tools.StringArg(args, "actor", "")
	targetID := tools.StringArg(args, "target", "")

	actor, ok := w.Entity(actorID)
	if !ok || !actor.IsAlive() {
		return tools.Fail(tools.ToolAttack, fmt.Sprintf("%s cannot attack", actorID), args)
	}
	target, ok := w.Entity(targetID)
	if !ok || !target.IsLiving() {
		return ex.clarifyEnvelope(w, tools.Utterance{ActorID: actorID},
			fmt.Sprintf("There is no %q to attack. Who is the target?", targetID),
			"target_resolution")
	}
	if !visibility.CanPlayerSee(w, actorID, target) {
		return tools.Fail(tools.ToolAttack, fmt.Sprintf("%s cannot see %s", actor.Name, target.Name), args)
	}

	// Consuming a mark sharpens the attack: +1 effective style, capped.
	style := effectiveStyle(args)
	var consumedMark *world.Mark
	if tools.BoolArg(args, "consume_mark", true) {
		if m, ok := bestMark(target, actorID); ok {
			consumedMark = &m
			if style < 3 {
				style++
			}
		}
	}

	dc := tools.IntArg(args, "dc_hint", 12) + target.Guard
	roller := dice.NewRoller(seed)
	check := dice.ResolveCheck(roller, style, domainSides(tools.StringArg(args, "domain", "d6")), dc)
	if tools.StringArg(args, "attack_mode", "normal") == "scroll" {
		check = dice.UpgradeFailToPartial(check)
	}

	var effects []world.Effect
	damage := 0
	var damageRolls []int
	if check.Outcome != dice.OutcomeFail {
		expr := tools.StringArg(args, "damage_expr", "1d6")
		raw, rolled, err := dice.RollString(roller, expr)
		if err != nil {
			return tools.Fail(tools.ToolAttack, fmt.Sprintf("bad damage expression %q", expr), args)
		}
		damageRolls = rolled
		if raw < 0 {
			raw = -raw
		}
		damage = raw
		if check.Outcome == dice.OutcomePartial {
			damage = raw / 2
		}
		if check.Outcome == dice.OutcomeCritSuccess {
			bonus := roller.Die(6)
			damageRolls = append(damageRolls, bonus)
			damage += bonus
		}
		if damage > 0 {
			effects = append(effects, world.Effect{
				Type:   world.EffectHP,
				Target: targetID,
				Source: actorID,
				Cause:  "attack:" + tools.StringArg(args, "weapon", "basic_melee"),
				Delta:  -damage,
			})
		}
	}
	if consumedMark != nil {
		effects = append(effects, world.Effect{
			Type:   world.EffectMark,
			Target: targetID,
			Source: consumedMark.Source,
			Cause:  "attack:consume_mark",
			Remove: consumedMark.Tag,
		})
	}

	res := tools.ToolResult{
		OK:     true,
		ToolID: tools.ToolAttack,
		Args:   args,
		Facts: map[string]interface{}{
			"actor":   actorID,
			"target":  targetID,
			"outcome": string(check.Outcome),
			"damage":  damage,
			"dc":      dc,
		},
		Effects:       effects,
		NarrationHint: tools.NewHint(attackSummary(actor.Name, target.Name, check.Outcome, damage), rollTone(check.Outcome), 3),
	}
	if consumedMark != nil {
		res.Facts["consumed_mark"] = consumedMark.Tag
	}
	if len(damageRolls) > 0 {
		res.Facts["damage_rolls"] = damageRolls
	}
	res.NarrationHint["dice"] = check.Dump()
	return res
}

// bestMark picks a consumable mark on the target, preferring one placed by
// the attacker. Iteration over the key-sorted mark map keeps the pick
// deterministic.
func bestMark(target *world.Entity, attackerID string) (world.Mark, bool) {
	keys := make([]string, 0, len(target.Marks))
	for k := range target.Marks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fallback *world.Mark
	for _, k := range keys {
		m := target.Marks[k]
		if !m.Consumes {
			continue
		}
		if m.Source == attackerID {
			return m, true
		}
		if fallback == nil {
			cp := m
			fallback = &cp
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return world.Mark{}, false
}

func attackSummary(actorName, targetName string, band dice.Outcome, damage int) string {
	switch band {
	case dice.OutcomeCritSuccess:
		return fmt.Sprintf("%s lands a devastating hit on %s for %d", actorName, targetName, damage)
	case dice.OutcomeSuccess:
		return fmt.Sprintf("%s strikes %s for %d", actorName, targetName, damage)
	case dice.OutcomePartial:
		return fmt.Sprintf("%s grazes %s for %d", actorName, targetName, damage)
	default:
		return fmt.Sprintf("%s misses %s", actorName, targetName)
	}
}
