package executor

import (
	"fmt"

	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func (ex *Executor) useItem(w *world.GameState, args map[string]interface{}, utt tools.Utterance, seed int64) tools.ToolResult {
	actorID := tools.StringArg(args, "actor", "")
	itemID := tools.StringArg(args, "item_id", "")
	method := tools.StringArg(args, "method", "consume")
	targetID := tools.StringArg(args, "target", "")

	actor, ok := w.Entity(actorID)
	if !ok || !actor.IsAlive() {
		return tools.Fail(tools.ToolUseItem, fmt.Sprintf("%s cannot use items", actorID), args)
	}
	item, ok := ex.items.Get(itemID)
	if !ok {
		return ex.clarifyEnvelope(w, utt,
			fmt.Sprintf("There is no item called %q. Which item did you mean?", itemID),
			"target_resolution")
	}
	if !actor.HasItem(itemID) {
		return tools.Fail(tools.ToolUseItem, fmt.Sprintf("%s does not carry %s", actor.Name, item.Name), args)
	}
	if !item.AllowsMethod(method) {
		return tools.Fail(tools.ToolUseItem, fmt.Sprintf("%s cannot be used that way (%s)", item.Name, method), args)
	}

	// Dangerous or poisonous items pointed at a pc need an explicit
	// confirmation before anything happens.
	if item.Dangerous || item.Poison {
		if t, ok := w.Entity(targetID); ok && t.Type == world.EntityPC && !tools.BoolArg(args, "confirm", false) {
			res := tools.Fail(tools.ToolAskClarifying,
				fmt.Sprintf("%s is dangerous. Really use it on %s?", item.Name, t.Name), args)
			res.Facts["reason"] = "confirmation_required"
			res.Facts["options"] = []map[string]interface{}{
				{"id": "yes", "label": "Yes, use it", "tool_id": tools.ToolUseItem, "args_patch": map[string]interface{}{"confirm": true}},
				{"id": "no", "label": "No, hold off", "tool_id": tools.ToolNarrateOnly},
			}
			return res
		}
	}

	consumesCopy := method == "consume" || method == "read"

	// Delegating items run another tool and only add the inventory cost.
	if item.Delegation != nil {
		delegated := map[string]interface{}{"actor": actorID}
		if targetID != "" {
			delegated["target"] = targetID
		}
		for k, v := range item.Delegation.ArgsOverride {
			delegated[k] = v
		}
		res := ex.ExecuteChosen(w, item.Delegation.Tool, delegated, utt, seed)
		res.Facts["via_item"] = itemID
		if summary, ok := res.NarrationHint["summary"].(string); ok {
			res.NarrationHint["summary"] = fmt.Sprintf("Using the %s, %s", item.Name, summary)
		}
		// The delegated call already applied its own effects; only the
		// inventory cost remains for this envelope.
		res.Effects = nil
		if res.OK && consumesCopy {
			res.Effects = []world.Effect{inventoryCost(actorID, itemID)}
		}
		return res
	}

	effects := item.ResolveEffects(actorID, targetID)
	for i := range effects {
		// Item templates cannot know where they will be used; noise lands
		// in the user's zone unless the template pins one.
		if effects[i].Type == world.EffectNoise && effects[i].Zone == "" {
			effects[i].Zone = actor.CurrentZone
		}
	}
	if consumesCopy {
		effects = append(effects, inventoryCost(actorID, itemID))
	}

	res := tools.ToolResult{
		OK:     true,
		ToolID: tools.ToolUseItem,
		Args:   args,
		Facts: map[string]interface{}{
			"actor":   actorID,
			"item_id": itemID,
			"method":  method,
		},
		Effects:       effects,
		NarrationHint: tools.NewHint(useSummary(actor.Name, item.Name, method), []string{"neutral"}, 3),
	}
	if targetID != "" {
		res.Facts["target"] = targetID
	}
	return res
}

func inventoryCost(actorID, itemID string) world.Effect {
	return world.Effect{
		Type:   world.EffectInventory,
		Target: actorID,
		ID:     itemID,
		Delta:  -1,
		Cause:  "item:" + itemID,
	}
}

func useSummary(actorName, itemName, method string) string {
	switch method {
	case "consume":
		return fmt.Sprintf("%s consumes the %s", actorName, itemName)
	case "read":
		return fmt.Sprintf("%s reads the %s", actorName, itemName)
	case "equip":
		return fmt.Sprintf("%s equips the %s", actorName, itemName)
	default:
		return fmt.Sprintf("%s activates the %s", actorName, itemName)
	}
}
