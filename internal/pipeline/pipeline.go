// Package pipeline orchestrates one turn: effective-actor resolution,
// pending-choice capture, planning, step execution with outcome
// enrichment, critical-failure short circuits, and turn/round advance.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/effect"
	"github.com/jacoblum22/AID-D-sub000/internal/executor"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/outcome"
	"github.com/jacoblum22/AID-D-sub000/internal/planner"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Narrator renders prose from a finished tool result. External; optional.
type Narrator interface {
	Narrate(res tools.ToolResult, w *world.GameState) (string, error)
}

// criticalTools abort a compound sequence when they fail.
var criticalTools = map[string]bool{
	tools.ToolMove:   true,
	tools.ToolAttack: true,
}

// Runtime owns the world and the collaborators for one game.
type Runtime struct {
	World    *world.GameState
	Exec     *executor.Executor
	Planner  planner.Planner
	Resolver *outcome.Resolver
	Narrator Narrator
}

// NewRuntime wires a runtime with defaults for any nil collaborator.
func NewRuntime(w *world.GameState, exec *executor.Executor, p planner.Planner) *Runtime {
	if w == nil {
		w = world.NewGameState()
	}
	if exec == nil {
		exec = executor.New(nil, nil, nil)
	}
	if p == nil {
		p = planner.NewKeywordPlanner(exec.Catalog())
	}
	return &Runtime{
		World:    w,
		Exec:     exec,
		Planner:  p,
		Resolver: outcome.NewResolver(),
	}
}

// TurnResult aggregates one turn's step envelopes.
type TurnResult struct {
	Actor      string                 `json:"actor"`
	Steps      []tools.ToolResult     `json:"steps"`
	IsCompound bool                   `json:"is_compound"`
	OK         bool                   `json:"ok"`
	Hint       map[string]interface{} `json:"narration_hint"`
	Narration  string                 `json:"narration,omitempty"`
}

// RunTurn processes one utterance with a derived seed.
func (r *Runtime) RunTurn(utt tools.Utterance) TurnResult {
	return r.RunTurnSeeded(utt, 0)
}

// RunTurnSeeded processes one utterance. A nonzero seed makes the whole
// turn replayable; step k runs with seed+k.
func (r *Runtime) RunTurnSeeded(utt tools.Utterance, seed int64) TurnResult {
	w := r.World
	utt.ActorID = w.EffectiveActor(utt.ActorID)
	r.sweepExpiredChoice()

	var steps []tools.Action
	compound := false
	chosen := false

	if toolID, args, ok := r.Exec.CaptureChoice(w, utt); ok {
		steps = []tools.Action{{Tool: toolID, Args: args}}
		chosen = true
	} else {
		plan, err := r.Planner.Plan(w, utt)
		if err != nil || len(plan.Steps) == 0 {
			if err != nil {
				logging.ToolsWarn("planner failed: %v", err)
			}
			plan = tools.Plan{Steps: []tools.Action{{
				Tool: tools.ToolNarrateOnly,
				Args: map[string]interface{}{"actor": utt.ActorID},
			}}}
		}
		steps = plan.Steps
		compound = plan.IsCompound
	}

	result := TurnResult{Actor: utt.ActorID, IsCompound: compound || len(steps) > 1, OK: true}

	for i, step := range steps {
		stepSeed := seed
		if stepSeed != 0 {
			stepSeed += int64(i)
		}
		var res tools.ToolResult
		if chosen && i == 0 {
			// A consumed option was already validated when offered, so the
			// precondition re-check is skipped.
			res = r.Exec.ExecuteChosen(w, step.Tool, step.Args, utt, stepSeed)
		} else {
			res = r.Exec.Execute(w, step.Tool, step.Args, utt, stepSeed)
		}

		// A deferred envelope redirects the step to another tool with
		// synthesized args (sneaking into a watchful scene becomes a check).
		if !res.OK && res.ToolID != step.Tool && res.Facts["deferred"] == true {
			logging.Tools("step %d deferred from %s to %s", i, step.Tool, res.ToolID)
			res = r.Exec.ExecuteChosen(w, res.ToolID, res.Args, utt, stepSeed)
		}

		res = r.enrich(res, stepSeed)
		result.Steps = append(result.Steps, res)

		if !res.OK {
			result.OK = false
			if criticalTools[step.Tool] {
				logging.Tools("critical step %s failed, aborting sequence", step.Tool)
				break
			}
		}
	}

	r.advanceTurn()
	result.Hint = compositeHint(result.Steps)

	if r.Narrator != nil && len(result.Steps) > 0 {
		prose, err := r.Narrator.Narrate(result.Steps[len(result.Steps)-1], w)
		if err != nil {
			logging.ToolsWarn("narrator failed: %v", err)
		} else {
			result.Narration = prose
		}
	}
	return result
}

// enrich applies the outcome resolver and routes any consequence effects
// it appended, so the next step observes them.
func (r *Runtime) enrich(res tools.ToolResult, seed int64) tools.ToolResult {
	if r.Resolver == nil {
		return res
	}
	before := len(res.Effects)
	res = r.Resolver.Resolve(res, r.World)
	if appended := res.Effects[before:]; len(appended) > 0 && res.OK {
		actor, _ := res.Facts["actor"].(string)
		er := r.Exec.Engine().Apply(r.World, appended, actor, true, effect.ModeBestEffort, seed)
		if res.Facts == nil {
			res.Facts = map[string]interface{}{}
		}
		res.Facts["consequence_effects_applied"] = er.Applied
	}
	return res
}

// sweepExpiredChoice clears a lapsed pending choice at the start of the
// turn so stale options never capture an utterance.
func (r *Runtime) sweepExpiredChoice() {
	s := r.World.Scene
	if s == nil || s.PendingChoice == nil {
		return
	}
	if s.PendingChoice.Expired(s.Round) {
		logging.Tools("pending choice %s expired at round %d", s.PendingChoice.ID, s.Round)
		s.PendingChoice = nil
	}
}

// advanceTurn moves the turn index, rolling the round over at the end of
// the order. Per-turn flags reset here; the redaction cache clears at this
// coarse boundary.
func (r *Runtime) advanceTurn() {
	w := r.World
	s := w.Scene
	if s == nil {
		return
	}

	prevActor := s.CurrentActor()
	if len(s.TurnOrder) > 1 {
		s.TurnIndex = (s.TurnIndex + 1) % len(s.TurnOrder)
		if s.TurnIndex == 0 {
			s.Round++
		}
	} else {
		// Single-player fallback: every turn is a round.
		s.Round++
	}
	s.ChoiceCountThisTurn = 0

	if prev, ok := w.Entity(prevActor); ok && prev.HasTalkedThisTurn {
		updated := prev.Clone()
		updated.HasTalkedThisTurn = false
		w.ReplaceEntity(updated)
	}
	if s.PendingChoice != nil && s.PendingChoice.Expired(s.Round) {
		s.PendingChoice = nil
	}
	w.InvalidateAllCache()
	logging.Engine("turn advanced: round=%d turn_index=%d", s.Round, s.TurnIndex)
}

// compositeHint merges per-step summaries into one narration hint.
func compositeHint(steps []tools.ToolResult) map[string]interface{} {
	if len(steps) == 1 {
		return steps[0].NarrationHint
	}
	var summaries []string
	tones := map[string]bool{}
	for _, s := range steps {
		if summary, ok := s.NarrationHint["summary"].(string); ok && summary != "" {
			summaries = append(summaries, summary)
		}
		if tags, ok := s.NarrationHint["tone_tags"].([]string); ok {
			for _, t := range tags {
				tones[t] = true
			}
		}
	}
	toneTags := make([]string, 0, len(tones))
	for t := range tones {
		toneTags = append(toneTags, t)
	}
	sort.Strings(toneTags)
	hint := tools.NewHint(strings.Join(summaries, "; "), toneTags, 5)
	hint["step_count"] = len(steps)
	return hint
}

// String renders a short human description of the turn.
func (tr TurnResult) String() string {
	ids := make([]string, len(tr.Steps))
	for i, s := range tr.Steps {
		ids[i] = s.ToolID
	}
	return fmt.Sprintf("turn(%s: %s ok=%v)", tr.Actor, strings.Join(ids, ","), tr.OK)
}
