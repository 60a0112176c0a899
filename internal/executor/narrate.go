package executor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/visibility"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// visibleEntityCap bounds how many co-located entities narrate_only lists.
const visibleEntityCap = 5

// narrateOnly gathers scene color without mechanical consequences.
func (ex *Executor) narrateOnly(w *world.GameState, args map[string]interface{}) tools.ToolResult {
	povID := tools.StringArg(args, "actor", w.EffectiveActor(""))
	topic := tools.StringArg(args, "topic", "look around")

	facts := map[string]interface{}{"pov": povID, "topic": topic}
	actor, ok := w.Entity(povID)
	if ok {
		if zone, ok := w.Zone(actor.CurrentZone); ok {
			facts["zone"] = map[string]interface{}{
				"id":          zone.ID,
				"name":        zone.Name,
				"description": zone.Description,
			}
			facts["visible_entities"] = visibleHere(w, povID, zone.ID)
			facts["salient_features"] = salientFeatures(w, zone.ID)
		}
	}
	if w.Scene != nil {
		facts["sensory"] = map[string]interface{}{
			"lighting": w.Scene.Tag(world.SceneTagLighting, "normal"),
			"noise":    w.Scene.Tag(world.SceneTagNoise, "normal"),
			"alert":    w.Scene.Tag(world.SceneTagAlert, "normal"),
		}
	}

	hint := tools.NewHint(topicSummary(topic), topicTone(topic), 4)
	if camera, target := topicCamera(topic); camera != "" {
		hint["camera"] = camera
		if target != "" {
			facts["focus"] = target
		}
	}
	if sensory, ok := facts["sensory"]; ok {
		hint["sensory"] = sensory
	}

	return tools.ToolResult{
		OK:            true,
		ToolID:        tools.ToolNarrateOnly,
		Args:          args,
		Facts:         facts,
		NarrationHint: hint,
	}
}

// visibleHere lists entities in the zone the pov can see, capped.
func visibleHere(w *world.GameState, povID, zoneID string) []string {
	var out []string
	for _, id := range w.EntitiesInZone(zoneID) {
		if id == povID {
			continue
		}
		e := w.Entities[id]
		if povID != "" && !visibility.CanPlayerSee(w, povID, e) {
			continue
		}
		out = append(out, id)
		if len(out) == visibleEntityCap {
			break
		}
	}
	return out
}

// salientFeatures picks up to three interactable or described objects.
func salientFeatures(w *world.GameState, zoneID string) []string {
	var out []string
	for _, id := range w.EntitiesInZone(zoneID) {
		e := w.Entities[id]
		if e.Type != world.EntityObject && e.Type != world.EntityItem {
			continue
		}
		if e.Description == "" && !e.Interactable {
			continue
		}
		out = append(out, e.Name)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func topicSummary(topic string) string {
	switch {
	case topic == "listen":
		return "the sounds of the scene"
	case topic == "smell":
		return "the smells of the scene"
	case topic == "recap":
		return "a recap of what has happened"
	case topic == "establishing":
		return "an establishing shot of the scene"
	case strings.HasPrefix(topic, "zoom_in:"):
		return "a close look at " + strings.TrimPrefix(topic, "zoom_in:")
	default:
		return "the scene as it stands"
	}
}

func topicTone(topic string) []string {
	switch topic {
	case "recap":
		return []string{"reflective"}
	case "establishing":
		return []string{"atmospheric"}
	default:
		return []string{"descriptive"}
	}
}

func topicCamera(topic string) (camera, target string) {
	switch {
	case strings.HasPrefix(topic, "zoom_in:"):
		return "close", strings.TrimPrefix(topic, "zoom_in:")
	case topic == "establishing":
		return "wide", ""
	}
	return "", ""
}

// askClarifying stores a pending choice for the player's next utterance.
// The fourth clarification in a turn downgrades to narrate_only hesitation.
func (ex *Executor) askClarifying(w *world.GameState, args map[string]interface{}, seed int64) tools.ToolResult {
	question := tools.StringArg(args, "question", "")
	options, err := parseOptions(ex.catalog, args["options"])
	if err != nil {
		return tools.Fail(tools.ToolAskClarifying, err.Error(), args)
	}

	if w.Scene != nil && w.Scene.ChoiceCountThisTurn >= world.MaxChoicesPerTurn {
		logging.Tools("clarification cap reached, downgrading to narrate_only")
		res := ex.narrateOnly(w, map[string]interface{}{
			"actor": tools.StringArg(args, "actor", ""),
			"topic": "look around",
		})
		res.Facts["hesitation"] = true
		res.NarrationHint["summary"] = "a beat of hesitation while everyone waits"
		res.NarrationHint["tone_tags"] = []string{"hesitant"}
		return res
	}

	actorID := tools.StringArg(args, "actor", w.EffectiveActor(""))
	pc := &world.PendingChoice{
		ID:       "pc_" + uuid.NewString()[:6],
		Actor:    actorID,
		Question: question,
		Options:  options,
		Reason:   tools.StringArg(args, "reason", "ambiguous_intent"),
	}
	if w.Scene != nil {
		pc.ExpiresRound = w.Scene.Round + tools.IntArg(args, "expires_in_turns", 1)
		pc.CreatedTurn = w.Scene.TurnIndex
		w.Scene.PendingChoice = pc
		w.Scene.ChoiceCountThisTurn++
	}

	optFacts := make([]map[string]interface{}, 0, len(options))
	for _, o := range options {
		optFacts = append(optFacts, map[string]interface{}{
			"id":      o.ID,
			"label":   o.Label,
			"tool_id": o.ToolID,
		})
	}
	res := tools.ToolResult{
		OK:     true,
		ToolID: tools.ToolAskClarifying,
		Args:   args,
		Facts: map[string]interface{}{
			"choice_id": pc.ID,
			"question":  question,
			"options":   optFacts,
			"reason":    pc.Reason,
		},
		NarrationHint: tools.NewHint(question, []string{"inquisitive"}, 2),
	}
	if note := tools.StringArg(args, "context_note", ""); note != "" {
		res.Facts["context_note"] = note
	}
	return res
}

// parseOptions decodes and validates the option list: at least two, unique
// ids, tool ids drawn from the catalog.
func parseOptions(catalog *tools.Catalog, raw interface{}) ([]world.ChoiceOption, error) {
	list, ok := raw.([]interface{})
	if !ok {
		if typed, isTyped := raw.([]map[string]interface{}); isTyped {
			list = make([]interface{}, len(typed))
			for i, m := range typed {
				list[i] = m
			}
		} else {
			return nil, fmt.Errorf("options must be a list")
		}
	}

	var options []world.ChoiceOption
	seen := make(map[string]bool)
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("option %d: expected a map", i)
		}
		opt := world.ChoiceOption{
			ID:     tools.StringArg(m, "id", ""),
			Label:  tools.StringArg(m, "label", ""),
			ToolID: tools.StringArg(m, "tool_id", ""),
		}
		if patch, ok := m["args_patch"].(map[string]interface{}); ok {
			opt.ArgsPatch = patch
		}
		if opt.ID == "" {
			return nil, fmt.Errorf("option %d: missing id", i)
		}
		if seen[opt.ID] {
			return nil, fmt.Errorf("option id %q duplicated", opt.ID)
		}
		seen[opt.ID] = true
		if _, ok := catalog.Get(opt.ToolID); !ok {
			return nil, fmt.Errorf("option %q: unknown tool %q", opt.ID, opt.ToolID)
		}
		options = append(options, opt)
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("need at least 2 options, got %d", len(options))
	}
	return options, nil
}
