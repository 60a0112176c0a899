package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/outcome"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Scene-tag DC adjustments per action. Sneak cares about everything the
// scene broadcasts; persuasion only about how alert the listener is.
var sneakDCAdjust = map[string]map[string]int{
	world.SceneTagAlert:    {"sleepy": -2, "normal": 0, "wary": 2, "alarmed": 4},
	world.SceneTagLighting: {"dim": -1, "normal": 0, "bright": 2},
	world.SceneTagNoise:    {"quiet": 1, "normal": 0, "loud": -2},
	world.SceneTagCover:    {"none": 2, "some": 0, "good": -2},
}

var persuadeDCAdjust = map[string]map[string]int{
	world.SceneTagAlert: {"sleepy": 2, "normal": 0, "wary": 1, "alarmed": 3},
}

// deriveDC starts from the scene base DC and applies the action's
// adjustment tables. Without a scene the dc_hint argument stands.
func deriveDC(w *world.GameState, action string, dcHint int) int {
	if w.Scene == nil {
		return dcHint
	}
	dc := w.Scene.BaseDC
	var tables map[string]map[string]int
	switch action {
	case "sneak":
		tables = sneakDCAdjust
	case "persuade":
		tables = persuadeDCAdjust
	}
	for tag, adjust := range tables {
		if delta, ok := adjust[w.Scene.Tag(tag, "normal")]; ok {
			dc += delta
		}
	}
	return dc
}

// domainSides parses "d6" style domain strings.
func domainSides(domain string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(domain, "d"))
	if err != nil || n < 2 {
		return 6
	}
	return n
}

// effectiveStyle clamps style plus the advantage delta into [0,3].
func effectiveStyle(args map[string]interface{}) int {
	style := tools.IntArg(args, "style", 1) + tools.IntArg(args, "adv_style_delta", 0)
	if style < 0 {
		style = 0
	}
	if style > 3 {
		style = 3
	}
	return style
}

func (ex *Executor) askRoll(w *world.GameState, args map[string]interface{}, seed int64) tools.ToolResult {
	actorID := tools.StringArg(args, "actor", "")
	actor, ok := w.Entity(actorID)
	if !ok || !actor.IsAlive() {
		return tools.Fail(tools.ToolAskRoll, fmt.Sprintf("%s cannot act", actorID), args)
	}

	action := tools.StringArg(args, "action", "custom")
	dc := deriveDC(w, action, tools.IntArg(args, "dc_hint", 12))

	roller := dice.NewRoller(seed)
	check := dice.ResolveCheck(roller, effectiveStyle(args), domainSides(tools.StringArg(args, "domain", "d6")), dc)

	targetID := tools.StringArg(args, "target", "")
	zoneTarget := tools.StringArg(args, "zone_target", "")
	effects := rollEffects(action, check.Outcome, actorID, targetID, zoneTarget)

	res := tools.ToolResult{
		OK:     true,
		ToolID: tools.ToolAskRoll,
		Args:   args,
		Facts: map[string]interface{}{
			"actor":   actorID,
			"action":  action,
			"outcome": string(check.Outcome),
			"dc":      dc,
			"margin":  check.Margin,
		},
		Effects:       effects,
		NarrationHint: tools.NewHint(rollSummary(actor.Name, action, check.Outcome), rollTone(check.Outcome), 3),
	}
	if targetID != "" {
		res.Facts["target"] = targetID
	}
	if zoneTarget != "" {
		res.Facts["zone_target"] = zoneTarget
	}
	res.NarrationHint["dice"] = check.Dump()
	return res
}

// rollEffects maps outcome bands onto effect atoms per action.
func rollEffects(action string, band dice.Outcome, actorID, targetID, zoneTarget string) []world.Effect {
	switch action {
	case "sneak":
		var out []world.Effect
		if zoneTarget != "" && band != dice.OutcomeFail {
			out = append(out, world.Effect{
				Type: world.EffectPosition, Target: actorID, To: zoneTarget, Cause: "ask_roll:sneak",
			})
		}
		switch band {
		case dice.OutcomeCritSuccess:
			out = append(out, world.Effect{Type: world.EffectClock, ID: "scene.alarm", Delta: -1, Source: actorID, Cause: "ask_roll:sneak"})
		case dice.OutcomePartial, dice.OutcomeFail:
			out = append(out, world.Effect{Type: world.EffectClock, ID: "scene.alarm", Delta: 1, Source: actorID, Cause: "ask_roll:sneak"})
		}
		return out
	case "persuade":
		if targetID == "" {
			return nil
		}
		return outcome.SocialEffects("persuade", band, actorID, targetID)
	case "shove":
		if targetID == "" || band == dice.OutcomeFail {
			return nil
		}
		return []world.Effect{{
			Type: world.EffectMark, Target: targetID, Source: actorID,
			Cause: "ask_roll:shove", Add: "off_balance", Value: -1, Consumes: true,
		}}
	case "athletics", "custom":
		if zoneTarget != "" && (band == dice.OutcomeCritSuccess || band == dice.OutcomeSuccess) {
			return []world.Effect{{
				Type: world.EffectPosition, Target: actorID, To: zoneTarget, Cause: "ask_roll:" + action,
			}}
		}
	}
	return nil
}

func rollSummary(name, action string, band dice.Outcome) string {
	switch band {
	case dice.OutcomeCritSuccess:
		return fmt.Sprintf("%s pulls off the %s flawlessly", name, action)
	case dice.OutcomeSuccess:
		return fmt.Sprintf("%s succeeds at the %s", name, action)
	case dice.OutcomePartial:
		return fmt.Sprintf("%s barely manages the %s", name, action)
	default:
		return fmt.Sprintf("%s fails the %s", name, action)
	}
}

func rollTone(band dice.Outcome) []string {
	switch band {
	case dice.OutcomeCritSuccess:
		return []string{"triumphant"}
	case dice.OutcomeSuccess:
		return []string{"confident"}
	case dice.OutcomePartial:
		return []string{"tense"}
	default:
		return []string{"setback"}
	}
}
