// Package planner turns utterances into action plans: an ordered list of
// tool calls drawn from the catalog. The keyword planner works offline
// from the affordance filter; the Gemini planner asks a model and falls
// back to keywords when the call fails.
package planner

import (
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Planner is the contract the pipeline consumes.
type Planner interface {
	Plan(w *world.GameState, utt tools.Utterance) (tools.Plan, error)
}

// ambiguityWindow is how close the top two candidate confidences must be
// before the keyword planner asks instead of guessing.
const ambiguityWindow = 0.05

// KeywordPlanner plans from the affordance filter alone. Compound
// utterances split on "then" and "and then".
type KeywordPlanner struct {
	catalog *tools.Catalog
}

// NewKeywordPlanner builds a planner over a catalog.
func NewKeywordPlanner(catalog *tools.Catalog) *KeywordPlanner {
	if catalog == nil {
		catalog = tools.DefaultCatalog()
	}
	return &KeywordPlanner{catalog: catalog}
}

// Plan produces one step per utterance segment.
func (p *KeywordPlanner) Plan(w *world.GameState, utt tools.Utterance) (tools.Plan, error) {
	segments := splitSegments(utt.Text)
	plan := tools.Plan{IsCompound: len(segments) > 1}

	for _, segment := range segments {
		step, rationale := p.planSegment(w, tools.Utterance{Text: segment, ActorID: utt.ActorID})
		plan.Steps = append(plan.Steps, step)
		if plan.Rationale == "" {
			plan.Rationale = rationale
		}
	}
	logging.Tools("keyword plan: %d steps for %q", len(plan.Steps), utt.Text)
	return plan, nil
}

// planSegment picks the strongest candidate, asking for clarification when
// the top two are effectively tied.
func (p *KeywordPlanner) planSegment(w *world.GameState, utt tools.Utterance) (tools.Action, string) {
	cands := p.catalog.Candidates(w, utt)

	var real []tools.Candidate
	for _, c := range cands {
		if d, ok := p.catalog.Get(c.ID); ok && !d.EscapeHatch {
			real = append(real, c)
		}
	}

	if len(real) == 0 {
		return tools.Action{
			Tool: tools.ToolNarrateOnly,
			Args: map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)},
		}, "no applicable tool"
	}

	if len(real) >= 2 && real[0].Confidence-real[1].Confidence < ambiguityWindow {
		return clarifyAction(w, utt, real[0], real[1]), "ambiguous between " + real[0].ID + " and " + real[1].ID
	}

	args := map[string]interface{}{}
	for k, v := range real[0].ArgsHint {
		args[k] = v
	}
	return tools.Action{Tool: real[0].ID, Args: args}, "matched " + real[0].ID
}

func clarifyAction(w *world.GameState, utt tools.Utterance, a, b tools.Candidate) tools.Action {
	options := []map[string]interface{}{
		{"id": a.ID, "label": a.Description, "tool_id": a.ID, "args_patch": a.ArgsHint},
		{"id": b.ID, "label": b.Description, "tool_id": b.ID, "args_patch": b.ArgsHint},
	}
	return tools.Action{
		Tool: tools.ToolAskClarifying,
		Args: map[string]interface{}{
			"actor":    w.EffectiveActor(utt.ActorID),
			"question": "I can read that more than one way. Which do you mean?",
			"options":  options,
			"reason":   "ambiguous_intent",
		},
	}
}

// splitSegments breaks a compound utterance into sequential intents.
func splitSegments(text string) []string {
	lower := strings.ToLower(text)
	for _, sep := range []string{" and then ", ", then ", " then "} {
		if i := strings.Index(lower, sep); i >= 0 {
			head := strings.TrimSpace(text[:i])
			tail := strings.TrimSpace(text[i+len(sep):])
			if head != "" && tail != "" {
				return append([]string{head}, splitSegments(tail)...)
			}
		}
	}
	return []string{strings.TrimSpace(text)}
}
