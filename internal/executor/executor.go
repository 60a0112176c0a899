// Package executor is the validator/executor: the sole callable that
// mutates the world per utterance. It validates and sanitizes tool args,
// re-checks preconditions, runs the per-tool handlers, and routes produced
// effects through the effect engine.
package executor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jacoblum22/AID-D-sub000/internal/effect"
	"github.com/jacoblum22/AID-D-sub000/internal/items"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Executor wires the catalog, the effect engine, and the item registry.
type Executor struct {
	catalog *tools.Catalog
	engine  *effect.Engine
	items   *items.Registry
}

// New builds an executor. Nil collaborators get defaults.
func New(catalog *tools.Catalog, engine *effect.Engine, registry *items.Registry) *Executor {
	if catalog == nil {
		catalog = tools.DefaultCatalog()
	}
	if engine == nil {
		engine = effect.NewEngine()
	}
	if registry == nil {
		registry = items.NewRegistry()
	}
	return &Executor{catalog: catalog, engine: engine, items: registry}
}

// Catalog exposes the tool catalog for planners.
func (ex *Executor) Catalog() *tools.Catalog { return ex.catalog }

// Engine exposes the effect engine for the pipeline.
func (ex *Executor) Engine() *effect.Engine { return ex.engine }

// CaptureChoice matches an utterance against the scene's pending choice.
// Exact option id matches first, then label-word fuzzy matching. A match
// consumes the choice and returns the option's tool with args_patch merged
// over the tool's suggested args. Expired choices are cleared silently.
func (ex *Executor) CaptureChoice(w *world.GameState, utt tools.Utterance) (string, map[string]interface{}, bool) {
	if w.Scene == nil || w.Scene.PendingChoice == nil {
		return "", nil, false
	}
	pc := w.Scene.PendingChoice
	if pc.Expired(w.Scene.Round) {
		logging.Tools("pending choice %s expired, clearing", pc.ID)
		w.Scene.PendingChoice = nil
		return "", nil, false
	}

	opt, ok := matchOption(pc.Options, utt.Text)
	if !ok {
		return "", nil, false
	}

	w.Scene.PendingChoice = nil
	logging.Tools("pending choice %s consumed: option %s -> %s", pc.ID, opt.ID, opt.ToolID)

	args := map[string]interface{}{}
	if d, ok := ex.catalog.Get(opt.ToolID); ok && d.SuggestArgs != nil {
		for k, v := range d.SuggestArgs(w, utt) {
			args[k] = v
		}
	}
	for k, v := range opt.ArgsPatch {
		args[k] = v
	}
	if pc.Actor != "" {
		if _, has := args["actor"]; !has {
			args["actor"] = pc.Actor
		}
	}
	return opt.ToolID, args, true
}

// matchOption tries exact id equality, then checks whether any word of an
// option's label appears in the utterance.
func matchOption(options []world.ChoiceOption, text string) (world.ChoiceOption, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	for _, opt := range options {
		if strings.EqualFold(opt.ID, trimmed) {
			return opt, true
		}
	}
	uttWords := wordSet(trimmed)
	for _, opt := range options {
		for word := range wordSet(strings.ToLower(opt.Label)) {
			if uttWords[word] {
				return opt, true
			}
		}
	}
	return world.ChoiceOption{}, false
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) > 2 {
			out[w] = true
		}
	}
	return out
}

// Execute runs one tool call end to end: lookup, schema validation,
// sanitization, precondition re-check, handler, effect routing. A zero
// seed is derived from the clock modulo 10000 so replays can pin it.
func (ex *Executor) Execute(w *world.GameState, toolID string, rawArgs map[string]interface{}, utt tools.Utterance, seed int64) tools.ToolResult {
	return ex.run(w, toolID, rawArgs, utt, seed, true)
}

// ExecuteChosen runs a tool whose applicability was already established:
// a consumed pending-choice option, a deferred execution, or an item
// delegation. The utterance no longer matches the tool's precondition in
// those paths, so only the precondition re-check is skipped.
func (ex *Executor) ExecuteChosen(w *world.GameState, toolID string, rawArgs map[string]interface{}, utt tools.Utterance, seed int64) tools.ToolResult {
	return ex.run(w, toolID, rawArgs, utt, seed, false)
}

func (ex *Executor) run(w *world.GameState, toolID string, rawArgs map[string]interface{}, utt tools.Utterance, seed int64, checkPrecondition bool) tools.ToolResult {
	if seed == 0 {
		seed = time.Now().UnixMilli() % 10000
	}
	if rawArgs == nil {
		rawArgs = map[string]interface{}{}
	}

	d, ok := ex.catalog.Get(toolID)
	if !ok {
		return ex.clarifyEnvelope(w, utt,
			fmt.Sprintf("I don't know how to %q. What did you mean?", toolID),
			"unknown_tool")
	}

	if err := tools.ValidateArgs(d, rawArgs); err != nil {
		return ex.clarifyEnvelope(w, utt,
			fmt.Sprintf("I didn't follow that: %v. Can you rephrase?", err),
			"schema_validation")
	}
	args := tools.SanitizeArgs(d, rawArgs)

	if checkPrecondition && d.Precondition != nil && !d.Precondition(w, utt) {
		return tools.Fail(toolID, fmt.Sprintf("%s is not possible right now", toolID), args)
	}

	logging.Tools("executing %s actor=%s seed=%d", toolID, tools.StringArg(args, "actor", ""), seed)
	res := ex.dispatch(w, toolID, args, utt, seed)

	// Route effects so subsequent steps observe the new state. The
	// apply_effects handler already went through the engine itself.
	if res.OK && len(res.Effects) > 0 && toolID != tools.ToolApplyEffects {
		actor := tools.StringArg(args, "actor", w.EffectiveActor(utt.ActorID))
		er := ex.engine.Apply(w, res.Effects, actor, true, effect.ModeStrict, seed)
		res.Facts["effects_applied"] = er.Applied
		res.Facts["diff_summary"] = er.Summary
		if !er.OK {
			res.OK = false
			res.ErrorMessage = er.Summary
		}
	}
	return res
}

func (ex *Executor) dispatch(w *world.GameState, toolID string, args map[string]interface{}, utt tools.Utterance, seed int64) tools.ToolResult {
	switch toolID {
	case tools.ToolAskRoll:
		return ex.askRoll(w, args, seed)
	case tools.ToolMove:
		return ex.move(w, args, seed)
	case tools.ToolAttack:
		return ex.attack(w, args, seed)
	case tools.ToolTalk:
		return ex.talk(w, args, seed)
	case tools.ToolUseItem:
		return ex.useItem(w, args, utt, seed)
	case tools.ToolGetInfo:
		return ex.getInfo(w, args, seed)
	case tools.ToolNarrateOnly:
		return ex.narrateOnly(w, args)
	case tools.ToolApplyEffects:
		return ex.applyEffects(w, args, utt, seed)
	case tools.ToolAskClarifying:
		return ex.askClarifying(w, args, seed)
	}
	return tools.Fail(toolID, "tool has no handler", args)
}

// clarifyEnvelope rewrites a schema or target error into an ask_clarifying
// envelope with a targeted question.
func (ex *Executor) clarifyEnvelope(w *world.GameState, utt tools.Utterance, question, reason string) tools.ToolResult {
	var options []map[string]interface{}
	for _, cand := range ex.catalog.Candidates(w, utt) {
		if cand.Confidence > escapeConfidence {
			options = append(options, map[string]interface{}{
				"id":      cand.ID,
				"label":   cand.Description,
				"tool_id": cand.ID,
			})
		}
		if len(options) == 3 {
			break
		}
	}
	res := tools.Fail(tools.ToolAskClarifying, question, map[string]interface{}{
		"question": question,
		"reason":   reason,
	})
	res.Facts["reason"] = reason
	res.Facts["options"] = options
	return res
}

// escapeConfidence mirrors the affordance filter's floor for escape
// hatches; candidates above it are real suggestions.
const escapeConfidence = 0.3

// applyEffects is the passthrough tool: decode the batch and hand it to
// the engine under the requested transaction mode.
func (ex *Executor) applyEffects(w *world.GameState, args map[string]interface{}, utt tools.Utterance, seed int64) tools.ToolResult {
	raw, ok := args["effects"].([]interface{})
	if !ok {
		return tools.Fail(tools.ToolApplyEffects, "effects must be a list", args)
	}
	effects, err := decodeEffects(raw)
	if err != nil {
		return tools.Fail(tools.ToolApplyEffects, err.Error(), args)
	}

	mode, err := effect.ParseMode(tools.StringArg(args, "transaction_mode", "strict"))
	if err != nil {
		return tools.Fail(tools.ToolApplyEffects, err.Error(), args)
	}
	if s := int64(tools.IntArg(args, "seed", 0)); s != 0 {
		seed = s
	}
	actor := tools.StringArg(args, "actor", w.EffectiveActor(utt.ActorID))
	transactional := tools.BoolArg(args, "transactional", true)

	er := ex.engine.Apply(w, effects, actor, transactional, mode, seed)
	res := tools.ToolResult{
		OK:     er.OK,
		ToolID: tools.ToolApplyEffects,
		Args:   args,
		Facts: map[string]interface{}{
			"applied":      er.Applied,
			"skipped":      er.Skipped,
			"failed":       er.Failed,
			"diff_summary": er.Summary,
		},
		NarrationHint: er.Hint,
	}
	if er.Err != nil {
		res.ErrorMessage = er.Err.Error()
	}
	return res
}

// decodeEffects converts a raw list of maps into typed effects through the
// JSON field names.
func decodeEffects(raw []interface{}) ([]world.Effect, error) {
	effects := make([]world.Effect, 0, len(raw))
	for i, item := range raw {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		var eff world.Effect
		if err := json.Unmarshal(data, &eff); err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		if eff.Type == "" {
			return nil, fmt.Errorf("effect %d: missing type", i)
		}
		effects = append(effects, eff)
	}
	return effects, nil
}
