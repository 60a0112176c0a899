package executor

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/visibility"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// getInfo is the read-only query tool. Facts come out with sorted keys and
// list fields, sliced by limit/offset, filtered by fields, and stamped with
// a _metadata block. Visibility is enforced against the requesting actor's
// pov; an empty actor is the GM.
func (ex *Executor) getInfo(w *world.GameState, args map[string]interface{}, seed int64) tools.ToolResult {
	povID := tools.StringArg(args, "actor", "")
	topic := tools.StringArg(args, "topic", "status")
	role := visibility.RolePlayer
	if povID == "" {
		role = visibility.RoleGM
	}

	var facts map[string]interface{}
	switch topic {
	case "status":
		facts = ex.infoStatus(w, povID, role, tools.StringArg(args, "target", povID))
	case "inventory":
		facts = infoInventory(w, povID, role, tools.StringArg(args, "target", povID))
	case "zone":
		facts = infoZone(w, povID, role)
	case "scene":
		facts = infoScene(w, role)
	case "effects":
		facts = infoEffects(w, povID, role)
	case "clocks":
		facts = infoClocks(w, povID, role)
	case "relationships":
		facts = infoRelationships(w, povID, role)
	case "rules":
		facts = infoRules()
	default:
		return tools.Fail(tools.ToolGetInfo, fmt.Sprintf("unknown topic %q", topic), args)
	}
	if facts == nil {
		return tools.Fail(tools.ToolGetInfo, "nothing visible to report", args)
	}

	applyWindow(facts, tools.IntArg(args, "limit", 0), tools.IntArg(args, "offset", 0))
	if fields := tools.StringListArg(args, "fields"); len(fields) > 0 {
		facts = selectFields(facts, fields)
	}
	if tools.BoolArg(args, "use_refs", false) {
		facts = toRefs(facts)
	}

	facts["_metadata"] = metadataBlock(w, seed)

	return tools.ToolResult{
		OK:            true,
		ToolID:        tools.ToolGetInfo,
		Args:          args,
		Facts:         facts,
		NarrationHint: tools.NewHint(fmt.Sprintf("information about %s", topic), []string{"informative"}, 2),
	}
}

func (ex *Executor) infoStatus(w *world.GameState, povID string, role visibility.Role, targetID string) map[string]interface{} {
	target, ok := w.Entity(targetID)
	if !ok {
		return nil
	}
	view := visibility.RedactEntity(w, povID, target, role)
	if view == nil {
		return nil
	}
	return map[string]interface{}{"entity": view}
}

// infoInventory lists a living entity's items. Players only get it for
// themselves or for entities they can currently see.
func infoInventory(w *world.GameState, povID string, role visibility.Role, targetID string) map[string]interface{} {
	target, ok := w.Entity(targetID)
	if !ok || !target.IsLiving() {
		return nil
	}
	if role != visibility.RoleGM && targetID != povID && !visibility.CanPlayerSee(w, povID, target) {
		return nil
	}
	inv := append([]string{}, target.Inventory...)
	sort.Strings(inv)
	return map[string]interface{}{
		"target":    targetID,
		"inventory": inv,
		"count":     len(inv),
	}
}

func infoZone(w *world.GameState, povID string, role visibility.Role) map[string]interface{} {
	actorID := povID
	if actorID == "" {
		actorID = w.EffectiveActor("")
	}
	actor, ok := w.Entity(actorID)
	if !ok {
		return nil
	}
	zone, ok := w.Zone(actor.CurrentZone)
	if !ok {
		return nil
	}
	view := visibility.RedactZone(w, povID, zone, role)

	var exits []map[string]interface{}
	for i := range zone.Exits {
		if xv := visibility.RedactExit(w, povID, zone.ID, &zone.Exits[i]); xv != nil {
			exits = append(exits, xv)
		}
	}
	view["visible_exits"] = exits
	return map[string]interface{}{"zone": view}
}

func infoScene(w *world.GameState, role visibility.Role) map[string]interface{} {
	if w.Scene == nil {
		return nil
	}
	dump := w.Scene.Dump()
	if role != visibility.RoleGM {
		// Players never see the audit internals or queued surprises.
		delete(dump, "pending_choice")
		delete(dump, "last_diff_summary")
	}
	return map[string]interface{}{"scene": dump}
}

// infoEffects returns the scene effect log. Players only see entries whose
// target they can currently perceive; the aggregate diff summary stays GM
// only because it names every target.
func infoEffects(w *world.GameState, povID string, role visibility.Role) map[string]interface{} {
	if w.Scene == nil {
		return nil
	}
	var entries []map[string]interface{}
	for _, l := range w.Scene.EffectLog {
		if role != visibility.RoleGM && !logTargetVisible(w, povID, l.Target) {
			continue
		}
		entries = append(entries, map[string]interface{}{
			"round":   l.Round,
			"type":    l.EffectType,
			"target":  l.Target,
			"ok":      l.OK,
			"summary": l.Summary,
		})
	}
	out := map[string]interface{}{"effect_log": entries}
	if role == visibility.RoleGM {
		out["diff_summary"] = w.Scene.LastDiffSummary
	}
	return out
}

// logTargetVisible applies the per-kind visibility rule to a log entry's
// target: entities through CanPlayerSee, clocks through their redaction,
// zones through discovery. Scene-level entries are ambient and pass.
func logTargetVisible(w *world.GameState, povID, target string) bool {
	if target == "" || target == "scene" {
		return true
	}
	if e, ok := w.Entity(target); ok {
		return visibility.CanPlayerSee(w, povID, e)
	}
	if c, ok := w.Clock(target); ok {
		return visibility.RedactClock(povID, c, visibility.RolePlayer) != nil
	}
	if z, ok := w.Zone(target); ok {
		if pov, ok := w.Entity(povID); ok && pov.CurrentZone == z.ID {
			return true
		}
		return z.DiscoveredBy[povID]
	}
	return false
}

// infoClocks replaces hidden clocks with counting placeholders so their
// number leaks but nothing else does.
func infoClocks(w *world.GameState, povID string, role visibility.Role) map[string]interface{} {
	ids := make([]string, 0, len(w.Clocks))
	for id := range w.Clocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var clocks []map[string]interface{}
	hidden := 0
	for _, id := range ids {
		view := visibility.RedactClock(povID, w.Clocks[id], role)
		if view == nil {
			hidden++
			clocks = append(clocks, map[string]interface{}{
				"id": fmt.Sprintf("[hidden_clock_%d]", hidden),
			})
			continue
		}
		clocks = append(clocks, view)
	}
	return map[string]interface{}{
		"clocks":       clocks,
		"hidden_count": hidden,
	}
}

func infoRelationships(w *world.GameState, povID string, role visibility.Role) map[string]interface{} {
	ids := make([]string, 0, len(w.Entities))
	for id := range w.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var relations []map[string]interface{}
	for _, id := range ids {
		e := w.Entities[id]
		if !e.IsLiving() || len(e.Marks) == 0 {
			continue
		}
		if role != visibility.RoleGM && !visibility.CanPlayerSee(w, povID, e) {
			continue
		}
		keys := make([]string, 0, len(e.Marks))
		for k := range e.Marks {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := e.Marks[k]
			relations = append(relations, map[string]interface{}{
				"holder": id,
				"source": m.Source,
				"tag":    m.Tag,
				"value":  m.Value,
			})
		}
	}
	return map[string]interface{}{"relationships": relations}
}

func infoRules() map[string]interface{} {
	return map[string]interface{}{
		"outcome_bands": map[string]interface{}{
			"crit_success": "natural 20 or margin >= 5",
			"success":      "margin >= 0",
			"partial":      "margin >= -3",
			"fail":         "margin < -3",
		},
		"roll":   "d20 + style dice vs DC",
		"style":  "0 to 3 extra domain dice",
		"domain": []string{"d4", "d6", "d8", "d10"},
	}
}

// applyWindow slices every list-valued fact by offset and limit.
func applyWindow(facts map[string]interface{}, limit, offset int) {
	if limit <= 0 && offset <= 0 {
		return
	}
	for k, v := range facts {
		list, ok := v.([]map[string]interface{})
		if !ok {
			if sl, isStr := v.([]string); isStr {
				facts[k] = windowStrings(sl, limit, offset)
			}
			continue
		}
		if offset > len(list) {
			offset = len(list)
		}
		list = list[offset:]
		if limit > 0 && limit < len(list) {
			list = list[:limit]
		}
		facts[k] = list
	}
}

func windowStrings(list []string, limit, offset int) []string {
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// selectFields keeps only the named top-level fact keys, plus _metadata.
func selectFields(facts map[string]interface{}, fields []string) map[string]interface{} {
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	out := make(map[string]interface{})
	for k, v := range facts {
		if keep[k] || strings.HasPrefix(k, "_") {
			out[k] = v
		}
	}
	return out
}

// toRefs splits facts into {facts, refs}: detail maps keyed by an "id"
// field move into refs, replaced by id lists.
func toRefs(facts map[string]interface{}) map[string]interface{} {
	refs := make(map[string]interface{})
	slim := make(map[string]interface{})
	for k, v := range facts {
		switch t := v.(type) {
		case map[string]interface{}:
			if id, ok := t["id"].(string); ok && id != "" {
				refs[id] = t
				slim[k] = id
			} else {
				slim[k] = v
			}
		case []map[string]interface{}:
			var ids []string
			extracted := true
			for _, item := range t {
				id, ok := item["id"].(string)
				if !ok || id == "" {
					extracted = false
					break
				}
				ids = append(ids, id)
			}
			if extracted {
				for i, item := range t {
					refs[ids[i]] = item
				}
				slim[k] = ids
			} else {
				slim[k] = v
			}
		default:
			slim[k] = v
		}
	}
	return map[string]interface{}{"facts": slim, "refs": refs}
}

// metadataBlock stamps the query: id, time, round/turn, and a snapshot
// fingerprint of (round, turn, entity ids, clock ids).
func metadataBlock(w *world.GameState, seed int64) map[string]interface{} {
	round, turn := 0, 0
	if w.Scene != nil {
		round = w.Scene.Round
		turn = w.Scene.TurnIndex
	}

	entityIDs := make([]string, 0, len(w.Entities))
	for id := range w.Entities {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)
	clockIDs := make([]string, 0, len(w.Clocks))
	for id := range w.Clocks {
		clockIDs = append(clockIDs, id)
	}
	sort.Strings(clockIDs)

	canon := fmt.Sprintf("%d_%d_%s_%s", round, turn, strings.Join(entityIDs, ","), strings.Join(clockIDs, ","))
	sum := md5.Sum([]byte(canon))

	return map[string]interface{}{
		"query_id":    uuid.NewString(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"round":       round,
		"turn":        turn,
		"snapshot_id": fmt.Sprintf("%x", sum)[:8],
		"seed":        seed,
	}
}
