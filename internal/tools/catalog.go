package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Tool ids.
const (
	ToolAskRoll       = "ask_roll"
	ToolMove          = "move"
	ToolAttack        = "attack"
	ToolTalk          = "talk"
	ToolUseItem       = "use_item"
	ToolGetInfo       = "get_info"
	ToolNarrateOnly   = "narrate_only"
	ToolApplyEffects  = "apply_effects"
	ToolAskClarifying = "ask_clarifying"
)

// ArgSpec declares one argument's validation rules.
type ArgSpec struct {
	Type     string        // string, int, float, bool, list, map
	Required bool
	Enum     []string
	Min      *float64
	Max      *float64
	Default  interface{}
}

func num(v float64) *float64 { return &v }

// Descriptor is one static tool record. Precondition and SuggestArgs run
// against the live world; Enrich adjusts an args hint for the affordance
// filter.
type Descriptor struct {
	ID          string
	Description string
	Precondition func(w *world.GameState, utt Utterance) bool
	Args        map[string]ArgSpec
	SuggestArgs func(w *world.GameState, utt Utterance) map[string]interface{}
	Enrich      func(w *world.GameState, utt Utterance, hint map[string]interface{})
	Keywords    []string
	EscapeHatch bool
	Critical    bool // failure aborts a compound plan
}

// Catalog is an ordered tool set. Order matters: candidate ties resolve by
// catalog order.
type Catalog struct {
	order []string
	tools map[string]*Descriptor
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]*Descriptor)}
}

// Register adds a tool, failing on duplicate ids.
func (c *Catalog) Register(d *Descriptor) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("tool descriptor missing id")
	}
	if _, exists := c.tools[d.ID]; exists {
		return fmt.Errorf("tool %q already registered", d.ID)
	}
	c.tools[d.ID] = d
	c.order = append(c.order, d.ID)
	return nil
}

// Get looks a tool up by id.
func (c *Catalog) Get(id string) (*Descriptor, bool) {
	d, ok := c.tools[id]
	return d, ok
}

// IDs returns the tool ids in registration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// actionVerbs are the utterance verbs that make ask_roll applicable.
var actionVerbs = []string{
	"sneak", "hide", "climb", "jump", "swim", "persuade", "convince",
	"shove", "push", "lift", "pick", "vault", "balance", "grab", "leap",
}

// adjacentZoneMentioned reports whether the utterance names a zone
// adjacent to the actor's current zone, by id or display name.
func adjacentZoneMentioned(w *world.GameState, utt Utterance) bool {
	actorID := w.EffectiveActor(utt.ActorID)
	actor, ok := w.Entity(actorID)
	if !ok {
		return false
	}
	zone, ok := w.Zone(actor.CurrentZone)
	if !ok {
		return false
	}
	text := strings.ToLower(utt.Text)
	for _, x := range zone.Exits {
		target, ok := w.Zone(x.To)
		if !ok {
			continue
		}
		if strings.Contains(text, strings.ToLower(target.ID)) ||
			(target.Name != "" && strings.Contains(text, strings.ToLower(target.Name))) {
			return true
		}
	}
	return false
}

// visibleHostile reports whether the actor can currently see any living npc.
func visibleHostile(w *world.GameState, actorID string) bool {
	actor, ok := w.Entity(actorID)
	if !ok {
		return false
	}
	for _, id := range actor.VisibleActors {
		if e, ok := w.Entity(id); ok && e.Type == world.EntityNPC && e.IsAlive() {
			return true
		}
	}
	// Fall back to co-location when visible_actors has not been derived yet.
	for _, id := range w.EntitiesInZone(actor.CurrentZone) {
		if e, ok := w.Entity(id); ok && e.Type == world.EntityNPC && e.IsAlive() {
			return true
		}
	}
	return false
}

// DefaultCatalog wires the nine built-in tools.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, d := range []*Descriptor{
		askRollTool(), moveTool(), attackTool(), talkTool(), useItemTool(),
		getInfoTool(), narrateOnlyTool(), applyEffectsTool(), askClarifyingTool(),
	} {
		if err := c.Register(d); err != nil {
			panic(err) // built-in ids are unique by construction
		}
	}
	return c
}

func styleDomainArgs() map[string]ArgSpec {
	return map[string]ArgSpec{
		"style":           {Type: "int", Min: num(0), Max: num(3), Default: 1},
		"domain":          {Type: "string", Enum: []string{"d4", "d6", "d8", "d10"}, Default: "d6"},
		"dc_hint":         {Type: "int", Min: num(5), Max: num(25), Default: 12},
		"adv_style_delta": {Type: "int", Min: num(-1), Max: num(1), Default: 0},
	}
}

func mergeArgs(base map[string]ArgSpec, extra map[string]ArgSpec) map[string]ArgSpec {
	out := make(map[string]ArgSpec, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func askRollTool() *Descriptor {
	return &Descriptor{
		ID:          ToolAskRoll,
		Description: "Resolve a risky physical or social action with a check",
		Keywords:    actionVerbs,
		Precondition: func(w *world.GameState, utt Utterance) bool {
			if w.PendingAction != "" {
				return true
			}
			text := strings.ToLower(utt.Text)
			for _, v := range actionVerbs {
				if strings.Contains(text, v) {
					return true
				}
			}
			return false
		},
		Args: mergeArgs(styleDomainArgs(), map[string]ArgSpec{
			"actor":       {Type: "string", Required: true},
			"action":      {Type: "string", Required: true, Enum: []string{"sneak", "persuade", "athletics", "shove", "custom"}},
			"target":      {Type: "string"},
			"zone_target": {Type: "string"},
			"context":     {Type: "string"},
		}),
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{
				"actor":  w.EffectiveActor(utt.ActorID),
				"action": detectAction(utt.Text),
			}
			return out
		},
		Enrich: func(w *world.GameState, utt Utterance, hint map[string]interface{}) {
			dc := 12
			if w.Scene != nil {
				dc = w.Scene.BaseDC
				switch w.Scene.Tag(world.SceneTagAlert, "normal") {
				case "sleepy":
					dc -= 3
				case "alarmed":
					dc += 3
				}
			}
			hint["dc_hint"] = dc
		},
	}
}

// detectAction guesses the ask_roll action from the utterance.
func detectAction(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "sneak") || strings.Contains(lower, "hide"):
		return "sneak"
	case strings.Contains(lower, "persuade") || strings.Contains(lower, "convince"):
		return "persuade"
	case strings.Contains(lower, "shove") || strings.Contains(lower, "push"):
		return "shove"
	case strings.Contains(lower, "climb") || strings.Contains(lower, "jump") ||
		strings.Contains(lower, "swim") || strings.Contains(lower, "leap"):
		return "athletics"
	default:
		return "custom"
	}
}

func moveTool() *Descriptor {
	return &Descriptor{
		ID:           ToolMove,
		Description:  "Move the actor to an adjacent zone",
		Keywords:     []string{"go", "move", "walk", "run", "head", "enter", "leave", "sneak"},
		Critical:     true,
		Precondition: adjacentZoneMentioned,
		Args: map[string]ArgSpec{
			"actor":            {Type: "string", Required: true},
			"to":               {Type: "string", Required: true},
			"method":           {Type: "string", Enum: []string{"walk", "run", "sneak"}, Default: "walk"},
			"cost":             {Type: "float"},
			"ignore_adjacency": {Type: "bool", Default: false},
		},
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)}
			if to := mentionedZone(w, utt); to != "" {
				out["to"] = to
			}
			return out
		},
		Enrich: func(w *world.GameState, utt Utterance, hint map[string]interface{}) {
			lower := strings.ToLower(utt.Text)
			switch {
			case strings.Contains(lower, "sneak") || strings.Contains(lower, "quietly"):
				hint["movement_style"] = "sneak"
			case strings.Contains(lower, "run") || strings.Contains(lower, "sprint") || strings.Contains(lower, "dash"):
				hint["movement_style"] = "run"
			default:
				hint["movement_style"] = "walk"
			}
		},
	}
}

// mentionedZone finds the adjacent zone the utterance names.
func mentionedZone(w *world.GameState, utt Utterance) string {
	actor, ok := w.Entity(w.EffectiveActor(utt.ActorID))
	if !ok {
		return ""
	}
	zone, ok := w.Zone(actor.CurrentZone)
	if !ok {
		return ""
	}
	text := strings.ToLower(utt.Text)
	for _, x := range zone.Exits {
		target, ok := w.Zone(x.To)
		if !ok {
			continue
		}
		if strings.Contains(text, strings.ToLower(target.ID)) ||
			(target.Name != "" && strings.Contains(text, strings.ToLower(target.Name))) {
			return target.ID
		}
	}
	return ""
}

func attackTool() *Descriptor {
	return &Descriptor{
		ID:          ToolAttack,
		Description: "Attack a visible target",
		Keywords:    []string{"attack", "hit", "strike", "stab", "shoot", "swing", "slash"},
		Critical:    true,
		Precondition: func(w *world.GameState, utt Utterance) bool {
			actorID := w.EffectiveActor(utt.ActorID)
			actor, ok := w.Entity(actorID)
			if !ok || !actor.HasWeapon {
				return false
			}
			return visibleHostile(w, actorID)
		},
		Args: mergeArgs(styleDomainArgs(), map[string]ArgSpec{
			"actor":        {Type: "string", Required: true},
			"target":       {Type: "string", Required: true},
			"weapon":       {Type: "string", Default: "basic_melee"},
			"damage_expr":  {Type: "string", Default: "1d6"},
			"consume_mark": {Type: "bool", Default: true},
			"attack_mode":  {Type: "string", Enum: []string{"normal", "scroll"}, Default: "normal"},
		}),
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)}
			if t := mentionedEntity(w, utt, world.EntityNPC); t != "" {
				out["target"] = t
			}
			return out
		},
	}
}

// mentionedEntity finds an entity of the given type named in the utterance,
// preferring entities in the actor's zone.
func mentionedEntity(w *world.GameState, utt Utterance, typ world.EntityType) string {
	text := strings.ToLower(utt.Text)
	actor, _ := w.Entity(w.EffectiveActor(utt.ActorID))

	var ids []string
	for id := range w.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	best := ""
	for _, id := range ids {
		e := w.Entities[id]
		if e.Type != typ {
			continue
		}
		if !strings.Contains(text, strings.ToLower(e.Name)) && !strings.Contains(text, strings.ToLower(id)) {
			continue
		}
		if actor != nil && e.CurrentZone == actor.CurrentZone {
			return id
		}
		if best == "" {
			best = id
		}
	}
	return best
}

func talkTool() *Descriptor {
	return &Descriptor{
		ID:          ToolTalk,
		Description: "Speak with one or more nearby characters",
		Keywords:    []string{"talk", "say", "tell", "ask", "persuade", "intimidate", "charm", "comfort", "distract"},
		Precondition: func(w *world.GameState, utt Utterance) bool {
			actor, ok := w.Entity(w.EffectiveActor(utt.ActorID))
			return ok && !actor.HasTalkedThisTurn
		},
		Args: mergeArgs(styleDomainArgs(), map[string]ArgSpec{
			"actor":  {Type: "string", Required: true},
			"target": {Type: "any", Required: true}, // id or list of ids
			"intent": {Type: "string", Enum: []string{"persuade", "intimidate", "deceive", "charm", "comfort", "request", "distract"}, Default: "persuade"},
			"topic":  {Type: "string"},
		}),
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)}
			if t := mentionedEntity(w, utt, world.EntityNPC); t != "" {
				out["target"] = t
			}
			return out
		},
		Enrich: func(w *world.GameState, utt Utterance, hint map[string]interface{}) {
			if msg := extractMessage(utt.Text); msg != "" {
				hint["message"] = msg
			}
		},
	}
}

// extractMessage pulls a quoted string or the tail after a speech verb.
func extractMessage(text string) string {
	if i := strings.Index(text, `"`); i >= 0 {
		if j := strings.Index(text[i+1:], `"`); j >= 0 {
			return text[i+1 : i+1+j]
		}
	}
	lower := strings.ToLower(text)
	for _, verb := range []string{"say ", "tell ", "ask "} {
		if i := strings.Index(lower, verb); i >= 0 {
			return strings.TrimSpace(text[i+len(verb):])
		}
	}
	return ""
}

func useItemTool() *Descriptor {
	return &Descriptor{
		ID:          ToolUseItem,
		Description: "Use an item from the actor's inventory",
		Keywords:    []string{"use", "drink", "eat", "read", "equip", "activate", "apply", "throw"},
		Precondition: func(w *world.GameState, utt Utterance) bool {
			actor, ok := w.Entity(w.EffectiveActor(utt.ActorID))
			return ok && len(actor.Inventory) > 0
		},
		Args: map[string]ArgSpec{
			"actor":   {Type: "string", Required: true},
			"item_id": {Type: "string", Required: true},
			"target":  {Type: "string"},
			"method":  {Type: "string", Enum: []string{"consume", "activate", "equip", "read"}, Default: "consume"},
			"charges": {Type: "int", Min: num(1), Default: 1},
		},
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)}
			actor, ok := w.Entity(w.EffectiveActor(utt.ActorID))
			if !ok {
				return out
			}
			text := strings.ToLower(utt.Text)
			for _, item := range actor.Inventory {
				if strings.Contains(text, strings.ToLower(strings.ReplaceAll(item, "_", " "))) ||
					strings.Contains(text, strings.ToLower(item)) {
					out["item_id"] = item
					break
				}
			}
			return out
		},
	}
}

func getInfoTool() *Descriptor {
	return &Descriptor{
		ID:          ToolGetInfo,
		Description: "Query world state without changing it",
		Keywords:    []string{"check", "status", "inventory", "what", "where", "who", "look at", "inspect"},
		Precondition: func(w *world.GameState, utt Utterance) bool {
			return true
		},
		Args: map[string]ArgSpec{
			"actor":        {Type: "string"},
			"target":       {Type: "string"},
			"topic":        {Type: "string", Required: true, Enum: []string{"status", "inventory", "zone", "scene", "effects", "clocks", "relationships", "rules"}},
			"detail_level": {Type: "string", Enum: []string{"brief", "full"}, Default: "brief"},
			"limit":        {Type: "int", Min: num(1)},
			"offset":       {Type: "int", Min: num(0), Default: 0},
			"fields":       {Type: "list"},
			"use_refs":     {Type: "bool", Default: false},
		},
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)}
			lower := strings.ToLower(utt.Text)
			switch {
			case strings.Contains(lower, "inventory") || strings.Contains(lower, "carrying"):
				out["topic"] = "inventory"
			case strings.Contains(lower, "clock"):
				out["topic"] = "clocks"
			case strings.Contains(lower, "scene") || strings.Contains(lower, "round"):
				out["topic"] = "scene"
			case strings.Contains(lower, "where") || strings.Contains(lower, "zone") || strings.Contains(lower, "room"):
				out["topic"] = "zone"
			default:
				out["topic"] = "status"
			}
			return out
		},
	}
}

func narrateOnlyTool() *Descriptor {
	return &Descriptor{
		ID:          ToolNarrateOnly,
		Description: "Describe the scene without mechanical consequences",
		Keywords:    []string{"look", "listen", "smell", "recap", "describe"},
		EscapeHatch: true,
		Precondition: func(w *world.GameState, utt Utterance) bool {
			return true
		},
		Args: map[string]ArgSpec{
			"actor": {Type: "string"},
			"topic": {Type: "string"},
		},
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			out := map[string]interface{}{"actor": w.EffectiveActor(utt.ActorID)}
			lower := strings.ToLower(utt.Text)
			for _, topic := range []string{"look around", "listen", "smell", "recap"} {
				if strings.Contains(lower, topic) {
					out["topic"] = topic
					break
				}
			}
			return out
		},
	}
}

func applyEffectsTool() *Descriptor {
	return &Descriptor{
		ID:          ToolApplyEffects,
		Description: "Apply a batch of effect atoms to the world",
		Precondition: func(w *world.GameState, utt Utterance) bool {
			return true
		},
		Args: map[string]ArgSpec{
			"effects":          {Type: "list", Required: true},
			"actor":            {Type: "string"},
			"transactional":    {Type: "bool", Default: true},
			"transaction_mode": {Type: "string", Enum: []string{"strict", "partial", "best_effort"}, Default: "strict"},
			"seed":             {Type: "int"},
		},
	}
}

func askClarifyingTool() *Descriptor {
	return &Descriptor{
		ID:          ToolAskClarifying,
		Description: "Ask the player to disambiguate their intent",
		EscapeHatch: true,
		Precondition: func(w *world.GameState, utt Utterance) bool {
			return true
		},
		Args: map[string]ArgSpec{
			"question":         {Type: "string", Required: true},
			"options":          {Type: "list", Required: true},
			"reason":           {Type: "string", Default: "ambiguous_intent"},
			"actor":            {Type: "string"},
			"context_note":     {Type: "string"},
			"expires_in_turns": {Type: "int", Min: num(1), Default: 1},
		},
		Enrich: func(w *world.GameState, utt Utterance, hint map[string]interface{}) {
			actor, ok := w.Entity(w.EffectiveActor(utt.ActorID))
			if !ok {
				return
			}
			if zone, ok := w.Zone(actor.CurrentZone); ok && len(zone.Exits) > 0 {
				hint["question"] = fmt.Sprintf("Do you want to head toward %s, or stay put?", zone.Exits[0].To)
			}
		},
	}
}
