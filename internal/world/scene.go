package world

import "fmt"

// Recognized scene tag keys and their values.
const (
	SceneTagAlert    = "alert"    // sleepy | normal | wary | alarmed
	SceneTagLighting = "lighting" // dim | normal | bright
	SceneTagNoise    = "noise"    // quiet | normal | loud
	SceneTagCover    = "cover"    // none | some | good
)

// MaxChoicesPerTurn caps ask_clarifying per turn; the next call falls back
// to narrate_only.
const MaxChoicesPerTurn = 3

// ChoiceOption is one selectable answer of a pending choice.
type ChoiceOption struct {
	ID        string                 `json:"id"`
	Label     string                 `json:"label"`
	ToolID    string                 `json:"tool_id"`
	ArgsPatch map[string]interface{} `json:"args_patch,omitempty"`
}

// PendingChoice is a short-lived disambiguation contract surfaced to the
// player and consumed on their next utterance.
type PendingChoice struct {
	ID           string         `json:"id"`
	Actor        string         `json:"actor,omitempty"`
	Question     string         `json:"question"`
	Options      []ChoiceOption `json:"options"`
	Reason       string         `json:"reason"`
	ExpiresRound int            `json:"expires_round"`
	CreatedTurn  int            `json:"created_turn"`
}

// Expired reports whether the choice has lapsed at the given round.
func (pc *PendingChoice) Expired(round int) bool {
	return pc.ExpiresRound < round
}

// Scene holds the per-encounter framing state: turn order, round counter,
// difficulty baseline, ambient tags, and the effect audit structures.
type Scene struct {
	ID                  string            `json:"id"`
	TurnOrder           []string          `json:"turn_order"`
	TurnIndex           int               `json:"turn_index"`
	Round               int               `json:"round"`
	BaseDC              int               `json:"base_dc"`
	Tags                map[string]string `json:"tags,omitempty"`
	Objective           string            `json:"objective,omitempty"`
	PendingChoice       *PendingChoice    `json:"pending_choice,omitempty"`
	ChoiceCountThisTurn int               `json:"choice_count_this_turn"`
	EffectLog           []LogEntry        `json:"last_effect_log,omitempty"`
	LastDiffSummary     string            `json:"last_diff_summary,omitempty"`
	PendingEffects      []PendingEffect   `json:"pending_effects,omitempty"`
	Meta                *Meta             `json:"meta"`
}

// NewScene creates a scene at round 1 with default framing.
func NewScene(id string, turnOrder []string) *Scene {
	return &Scene{
		ID:        id,
		TurnOrder: append([]string(nil), turnOrder...),
		Round:     1,
		BaseDC:    12,
		Tags: map[string]string{
			SceneTagAlert:    "normal",
			SceneTagLighting: "normal",
			SceneTagNoise:    "normal",
			SceneTagCover:    "none",
		},
		Meta: NewMeta(VisibilityPublic),
	}
}

// Tag returns a scene tag with a fallback default.
func (s *Scene) Tag(key, def string) string {
	if v, ok := s.Tags[key]; ok && v != "" {
		return v
	}
	return def
}

// CurrentActor returns the actor whose turn it is, if any.
func (s *Scene) CurrentActor() string {
	if len(s.TurnOrder) == 0 {
		return ""
	}
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.TurnOrder) {
		return s.TurnOrder[0]
	}
	return s.TurnOrder[s.TurnIndex]
}

// AlertLevel maps the alert tag to an ordinal: sleepy=0 normal=1 wary=2
// alarmed=3.
func (s *Scene) AlertLevel() int {
	switch s.Tag(SceneTagAlert, "normal") {
	case "sleepy":
		return 0
	case "normal":
		return 1
	case "wary":
		return 2
	case "alarmed":
		return 3
	default:
		return 1
	}
}

// Validate checks scene invariants.
func (s *Scene) Validate() error {
	if s.Round < 1 {
		return fmt.Errorf("scene round %d < 1", s.Round)
	}
	if s.ChoiceCountThisTurn > MaxChoicesPerTurn {
		return fmt.Errorf("scene choice count %d exceeds cap %d", s.ChoiceCountThisTurn, MaxChoicesPerTurn)
	}
	if s.Meta == nil {
		return fmt.Errorf("scene missing meta")
	}
	return s.Meta.Validate()
}

// Clone deep-copies the scene.
func (s *Scene) Clone() *Scene {
	c := *s
	c.TurnOrder = append([]string(nil), s.TurnOrder...)
	c.Tags = make(map[string]string, len(s.Tags))
	for k, v := range s.Tags {
		c.Tags[k] = v
	}
	if s.PendingChoice != nil {
		pc := *s.PendingChoice
		pc.Options = append([]ChoiceOption(nil), s.PendingChoice.Options...)
		c.PendingChoice = &pc
	}
	c.EffectLog = append([]LogEntry(nil), s.EffectLog...)
	c.PendingEffects = append([]PendingEffect(nil), s.PendingEffects...)
	c.Meta = s.Meta.Clone()
	return &c
}

// Dump renders the scene record.
func (s *Scene) Dump() map[string]interface{} {
	tags := make(map[string]interface{}, len(s.Tags))
	for k, v := range s.Tags {
		tags[k] = v
	}
	out := map[string]interface{}{
		"id":                     s.ID,
		"turn_order":             append([]string{}, s.TurnOrder...),
		"turn_index":             s.TurnIndex,
		"round":                  s.Round,
		"base_dc":                s.BaseDC,
		"tags":                   tags,
		"objective":              s.Objective,
		"choice_count_this_turn": s.ChoiceCountThisTurn,
		"last_diff_summary":      s.LastDiffSummary,
		"meta":                   s.Meta.Dump(),
	}
	if s.PendingChoice != nil {
		opts := make([]map[string]interface{}, 0, len(s.PendingChoice.Options))
		for _, o := range s.PendingChoice.Options {
			opts = append(opts, map[string]interface{}{
				"id":         o.ID,
				"label":      o.Label,
				"tool_id":    o.ToolID,
				"args_patch": o.ArgsPatch,
			})
		}
		out["pending_choice"] = map[string]interface{}{
			"id":            s.PendingChoice.ID,
			"actor":         s.PendingChoice.Actor,
			"question":      s.PendingChoice.Question,
			"options":       opts,
			"reason":        s.PendingChoice.Reason,
			"expires_round": s.PendingChoice.ExpiresRound,
			"created_turn":  s.PendingChoice.CreatedTurn,
		}
	}
	return out
}
