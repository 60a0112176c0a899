package world

import (
	"fmt"
	"time"
)

// Effect type discriminators.
const (
	EffectHP        = "hp"
	EffectGuard     = "guard"
	EffectPosition  = "position"
	EffectMark      = "mark"
	EffectInventory = "inventory"
	EffectClock     = "clock"
	EffectTag       = "tag"
	EffectResource  = "resource"
	EffectNoise     = "noise"
	EffectMeta      = "meta"
)

// Effect is a typed, minimal, independently dispatchable state mutation.
// Type decides which of the per-type fields are meaningful; unknown types
// are accepted at ingress and skipped gracefully at dispatch.
type Effect struct {
	Type string `json:"type"`

	// Common metadata
	Target      string `json:"target,omitempty"`
	Source      string `json:"source,omitempty"`
	Cause       string `json:"cause,omitempty"`
	Condition   string `json:"condition,omitempty"`
	AfterRounds int    `json:"after_rounds,omitempty"`
	Note        string `json:"note,omitempty"`

	// hp/guard/inventory/clock/resource: int or dice expression string
	Delta interface{} `json:"delta,omitempty"`

	// position
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`

	// mark: Add/Remove are tag strings; tag: Add is string or map,
	// Remove is string or list
	Add      interface{} `json:"add,omitempty"`
	Remove   interface{} `json:"remove,omitempty"`
	Value    int         `json:"value,omitempty"`
	Consumes bool        `json:"consumes,omitempty"`

	// clock/inventory/resource identifier
	ID string `json:"id,omitempty"`

	// noise
	Zone      string `json:"zone,omitempty"`
	Intensity string `json:"intensity,omitempty"`
}

// String gives a compact description for logs.
func (e Effect) String() string {
	switch e.Type {
	case EffectHP, EffectGuard:
		return fmt.Sprintf("%s(%s %v)", e.Type, e.Target, e.Delta)
	case EffectPosition:
		return fmt.Sprintf("position(%s -> %s)", e.Target, e.To)
	case EffectMark:
		if e.Add != nil {
			return fmt.Sprintf("mark(%s +%v)", e.Target, e.Add)
		}
		return fmt.Sprintf("mark(%s -%v)", e.Target, e.Remove)
	case EffectClock:
		return fmt.Sprintf("clock(%s %v)", e.ID, e.Delta)
	case EffectInventory:
		return fmt.Sprintf("inventory(%s %s %v)", e.Target, e.ID, e.Delta)
	case EffectTag:
		return fmt.Sprintf("tag(%s)", e.Target)
	default:
		return e.Type
	}
}

// Log entry statuses.
const (
	LogApplied         = "applied"
	LogScheduled       = "scheduled"
	LogSkipped         = "skipped"
	LogConditionNotMet = "condition_not_met"
	LogFailed          = "failed"
)

// LogEntry records one applied (or skipped) effect in the audit log.
// Entries are append-only and never mutated post-hoc.
type LogEntry struct {
	Round       int                    `json:"round"`
	Actor       string                 `json:"actor,omitempty"`
	Seed        int64                  `json:"seed"`
	EffectType  string                 `json:"effect_type"`
	Target      string                 `json:"target,omitempty"`
	OK          bool                   `json:"ok"`
	Status      string                 `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Before      map[string]interface{} `json:"before,omitempty"`
	After       map[string]interface{} `json:"after,omitempty"`
	Rolled      []int                  `json:"rolled,omitempty"`
	Summary     string                 `json:"summary"`
	ImpactLevel int                    `json:"impact_level"`
	Timestamp   time.Time              `json:"timestamp"`
}

// PendingEffect is a scheduled effect waiting for its trigger round.
// Typed record everywhere; the loader rejects legacy dict forms.
type PendingEffect struct {
	ID           string `json:"id"`
	Effect       Effect `json:"effect"`
	TriggerRound int    `json:"trigger_round"`
	ScheduledAt  int    `json:"scheduled_at"`
	Actor        string `json:"actor,omitempty"`
	Seed         int64  `json:"seed"`
}
