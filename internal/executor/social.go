package executor

import (
	"fmt"
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/outcome"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/visibility"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func (ex *Executor) talk(w *world.GameState, args map[string]interface{}, seed int64) tools.ToolResult {
	actorID := tools.StringArg(args, "actor", "")
	actor, ok := w.Entity(actorID)
	if !ok || !actor.IsAlive() {
		return tools.Fail(tools.ToolTalk, fmt.Sprintf("%s cannot talk", actorID), args)
	}

	targetIDs := tools.StringListArg(args, "target")
	if len(targetIDs) == 0 {
		return ex.clarifyEnvelope(w, tools.Utterance{ActorID: actorID},
			"Who are you talking to?", "target_resolution")
	}
	var targets []*world.Entity
	for _, id := range targetIDs {
		t, ok := w.Entity(id)
		if !ok || !t.IsAlive() {
			return ex.clarifyEnvelope(w, tools.Utterance{ActorID: actorID},
				fmt.Sprintf("There is nobody called %q here to talk to.", id),
				"target_resolution")
		}
		if !visibility.CanPlayerSee(w, actorID, t) {
			return tools.Fail(tools.ToolTalk, fmt.Sprintf("%s cannot see %s", actor.Name, t.Name), args)
		}
		targets = append(targets, t)
	}

	intent := tools.StringArg(args, "intent", "persuade")

	// One roll covers the whole address. The hardest listener sets the DC.
	dc := deriveDC(w, "persuade", tools.IntArg(args, "dc_hint", 12))
	maxGuard := 0
	for _, t := range targets {
		if t.Guard > maxGuard {
			maxGuard = t.Guard
		}
	}
	dc += maxGuard

	roller := dice.NewRoller(seed)
	check := dice.ResolveCheck(roller, effectiveStyle(args), domainSides(tools.StringArg(args, "domain", "d6")), dc)

	var effects []world.Effect
	var summaries []string
	dispositions := make([]map[string]interface{}, 0, len(targets))
	for _, t := range targets {
		perTarget := outcome.SocialEffects(intent, check.Outcome, actorID, t.ID)
		effects = append(effects, perTarget...)

		guardAfter := t.Guard
		for _, e := range perTarget {
			if e.Type == world.EffectGuard {
				if d, ok := e.Delta.(int); ok {
					guardAfter += d
					if guardAfter < 0 {
						guardAfter = 0
					}
				}
			}
			summaries = append(summaries, fmt.Sprintf("%s: %s", t.ID, e.String()))
		}
		dispositions = append(dispositions, map[string]interface{}{
			"target":       t.ID,
			"guard_before": t.Guard,
			"guard_after":  guardAfter,
		})
	}

	// Talking is once per turn; flip the flag via copy-replace.
	updated := actor.Clone()
	updated.HasTalkedThisTurn = true
	w.ReplaceEntity(updated)

	res := tools.ToolResult{
		OK:     true,
		ToolID: tools.ToolTalk,
		Args:   args,
		Facts: map[string]interface{}{
			"actor":           actorID,
			"targets":         targetIDs,
			"intent":          intent,
			"outcome":         string(check.Outcome),
			"dc":              dc,
			"dispositions":    dispositions,
			"effects_summary": summaries,
		},
		Effects:       effects,
		NarrationHint: tools.NewHint(talkSummary(actor.Name, targets, intent, check.Outcome), rollTone(check.Outcome), 3),
	}
	if topic := tools.StringArg(args, "topic", ""); topic != "" {
		res.Facts["topic"] = topic
	}
	res.NarrationHint["dice"] = check.Dump()
	return res
}

func talkSummary(actorName string, targets []*world.Entity, intent string, band dice.Outcome) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	joined := strings.Join(names, " and ")
	switch band {
	case dice.OutcomeCritSuccess:
		return fmt.Sprintf("%s's attempt to %s %s lands perfectly", actorName, intent, joined)
	case dice.OutcomeSuccess:
		return fmt.Sprintf("%s manages to %s %s", actorName, intent, joined)
	case dice.OutcomePartial:
		return fmt.Sprintf("%s's words half-land on %s", actorName, joined)
	default:
		return fmt.Sprintf("%s fails to %s %s", actorName, intent, joined)
	}
}
