// Package outcome holds the data-driven consequence layer: the social
// outcomes table consumed by talk, and the consequence table the resolver
// applies to finished tool results.
package outcome

import (
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// socialEntry describes what one intent does at one outcome band.
type socialEntry struct {
	markAdd    string
	markValue  int
	consumable bool
	guardDelta int
	clockID    string // may contain {target.suffix}
	clockDelta int
}

// socialOutcomes maps intent -> band -> entry. Guard deltas floor at zero
// in the effect engine; clock ids expand the target suffix.
var socialOutcomes = map[string]map[dice.Outcome]socialEntry{
	"persuade": {
		dice.OutcomeCritSuccess: {markAdd: "convinced", markValue: 2, consumable: false, clockID: "trust_{target.suffix}", clockDelta: 2},
		dice.OutcomeSuccess:     {markAdd: "convinced", markValue: 1, clockID: "trust_{target.suffix}", clockDelta: 1},
		dice.OutcomePartial:     {clockID: "trust_{target.suffix}", clockDelta: 1},
		dice.OutcomeFail:        {guardDelta: 1},
	},
	"intimidate": {
		dice.OutcomeCritSuccess: {markAdd: "fear", markValue: -2, consumable: true},
		dice.OutcomeSuccess:     {markAdd: "fear", markValue: -1, consumable: true},
		dice.OutcomePartial:     {guardDelta: -1},
		dice.OutcomeFail:        {markAdd: "defiant", markValue: 1, guardDelta: 1},
	},
	"deceive": {
		dice.OutcomeCritSuccess: {markAdd: "deceived", markValue: 2, consumable: true},
		dice.OutcomeSuccess:     {markAdd: "deceived", markValue: 1, consumable: true},
		dice.OutcomePartial:     {markAdd: "suspicious", markValue: 0},
		dice.OutcomeFail:        {markAdd: "suspicious", markValue: 1, guardDelta: 1},
	},
	"charm": {
		dice.OutcomeCritSuccess: {markAdd: "charmed", markValue: 2, clockID: "trust_{target.suffix}", clockDelta: 2},
		dice.OutcomeSuccess:     {markAdd: "charmed", markValue: 1, clockID: "trust_{target.suffix}", clockDelta: 1},
		dice.OutcomePartial:     {clockID: "trust_{target.suffix}", clockDelta: 1},
		dice.OutcomeFail:        {guardDelta: 1},
	},
	"comfort": {
		dice.OutcomeCritSuccess: {markAdd: "confidence", markValue: 2},
		dice.OutcomeSuccess:     {markAdd: "confidence", markValue: 1},
		dice.OutcomePartial:     {},
		dice.OutcomeFail:        {},
	},
	"request": {
		dice.OutcomeCritSuccess: {markAdd: "obliging", markValue: 1, clockID: "trust_{target.suffix}", clockDelta: 1},
		dice.OutcomeSuccess:     {markAdd: "obliging", markValue: 1},
		dice.OutcomePartial:     {},
		dice.OutcomeFail:        {guardDelta: 1},
	},
	"distract": {
		dice.OutcomeCritSuccess: {markAdd: "distracted", markValue: -2, consumable: true},
		dice.OutcomeSuccess:     {markAdd: "distracted", markValue: -1, consumable: true},
		dice.OutcomePartial:     {markAdd: "distracted", markValue: 0, consumable: true},
		dice.OutcomeFail:        {guardDelta: 1},
	},
}

// targetSuffix is the id's trailing segment: "npc.guard" -> "guard".
func targetSuffix(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}

// SocialEffects resolves the intent/band pair into effect atoms against
// one target. Unknown intents produce nothing.
func SocialEffects(intent string, band dice.Outcome, actorID, targetID string) []world.Effect {
	bands, ok := socialOutcomes[intent]
	if !ok {
		return nil
	}
	entry, ok := bands[band]
	if !ok {
		return nil
	}

	var out []world.Effect
	if entry.markAdd != "" {
		out = append(out, world.Effect{
			Type:     world.EffectMark,
			Target:   targetID,
			Source:   actorID,
			Cause:    "talk:" + intent,
			Add:      entry.markAdd,
			Value:    entry.markValue,
			Consumes: entry.consumable,
		})
	}
	if entry.guardDelta != 0 {
		out = append(out, world.Effect{
			Type:   world.EffectGuard,
			Target: targetID,
			Source: actorID,
			Cause:  "talk:" + intent,
			Delta:  entry.guardDelta,
		})
	}
	if entry.clockID != "" && entry.clockDelta != 0 {
		id := strings.ReplaceAll(entry.clockID, "{target.suffix}", targetSuffix(targetID))
		out = append(out, world.Effect{
			Type:   world.EffectClock,
			ID:     id,
			Source: actorID,
			Cause:  "talk:" + intent,
			Delta:  entry.clockDelta,
		})
	}
	return out
}

// Intents lists the known social intents.
func Intents() []string {
	out := make([]string, 0, len(socialOutcomes))
	for intent := range socialOutcomes {
		out = append(out, intent)
	}
	return out
}
