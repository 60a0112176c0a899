// Package tools defines the static tool catalog, the argument schemas and
// sanitization rules, and the affordance filter that proposes candidate
// tools for an utterance. Execution lives in the executor package; this
// package only describes what each tool needs and when it applies.
package tools

import (
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Utterance is one player or GM input line with its speaking actor.
type Utterance struct {
	Text    string `json:"text"`
	ActorID string `json:"actor_id,omitempty"`
}

// ToolResult is the envelope every tool execution returns. Args carries
// the sanitized argument map actually used; NarrationHint always contains
// at least summary, tone_tags, and sentences_max.
type ToolResult struct {
	OK            bool                   `json:"ok"`
	ToolID        string                 `json:"tool_id"`
	Args          map[string]interface{} `json:"args"`
	Facts         map[string]interface{} `json:"facts"`
	Effects       []world.Effect         `json:"effects,omitempty"`
	NarrationHint map[string]interface{} `json:"narration_hint"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
}

// NewHint builds the minimal narration hint block.
func NewHint(summary string, toneTags []string, sentencesMax int) map[string]interface{} {
	if toneTags == nil {
		toneTags = []string{}
	}
	if sentencesMax <= 0 {
		sentencesMax = 3
	}
	return map[string]interface{}{
		"summary":       summary,
		"tone_tags":     toneTags,
		"sentences_max": sentencesMax,
	}
}

// Fail builds a failure envelope for a tool.
func Fail(toolID, msg string, args map[string]interface{}) ToolResult {
	if args == nil {
		args = map[string]interface{}{}
	}
	return ToolResult{
		OK:            false,
		ToolID:        toolID,
		Args:          args,
		Facts:         map[string]interface{}{},
		NarrationHint: NewHint(msg, []string{"setback"}, 2),
		ErrorMessage:  msg,
	}
}

// Action is one planned step: a tool id plus its raw arguments.
type Action struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// Plan is the planner's output for one utterance.
type Plan struct {
	Steps      []Action `json:"steps"`
	IsCompound bool     `json:"is_compound"`
	Rationale  string   `json:"rationale,omitempty"`
}
