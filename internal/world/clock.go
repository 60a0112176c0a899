package world

import (
	"encoding/json"
	"fmt"
)

// Clock is a bounded progress track (alarm level, ritual progress, ...).
// Value stays within [Minimum, Maximum]; crossing Maximum from below marks
// the clock filled for the turn.
type Clock struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Value             int    `json:"value"`
	Minimum           int    `json:"minimum"`
	Maximum           int    `json:"maximum"`
	Source            string `json:"source,omitempty"`
	CreatedRound      int    `json:"created_round"`
	LastModifiedRound int    `json:"last_modified_round"`
	LastModifiedBy    string `json:"last_modified_by,omitempty"`
	FilledThisTurn    bool   `json:"filled_this_turn"`
	FilledBy          string `json:"filled_by,omitempty"`
	Meta              *Meta  `json:"meta"`
}

// NewClock creates a clock with the given bounds.
func NewClock(id, name string, min, max int) *Clock {
	return &Clock{
		ID:      id,
		Name:    name,
		Value:   min,
		Minimum: min,
		Maximum: max,
		Meta:    NewMeta(VisibilityPublic),
	}
}

// IsFilled reports whether the clock sits at its maximum.
func (c *Clock) IsFilled() bool {
	return c.Value >= c.Maximum
}

// Advance applies a delta with clamping and fill tracking.
// Crossing value >= max from below sets FilledThisTurn and records the
// actor; staying filled does not re-fire; dropping below re-arms it.
func (c *Clock) Advance(delta int, round int, actor string) {
	wasFilled := c.IsFilled()
	c.Value += delta
	if c.Value > c.Maximum {
		c.Value = c.Maximum
	}
	if c.Value < c.Minimum {
		c.Value = c.Minimum
	}
	c.LastModifiedRound = round
	c.LastModifiedBy = actor
	if !wasFilled && c.IsFilled() {
		c.FilledThisTurn = true
		c.FilledBy = actor
	}
	c.Meta.Touch()
}

// Validate checks clock bounds.
func (c *Clock) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clock missing id")
	}
	if c.Minimum > c.Maximum {
		return fmt.Errorf("clock %s: min %d > max %d", c.ID, c.Minimum, c.Maximum)
	}
	if c.Value < c.Minimum || c.Value > c.Maximum {
		return fmt.Errorf("clock %s: value %d out of [%d,%d]", c.ID, c.Value, c.Minimum, c.Maximum)
	}
	if c.Meta == nil {
		return fmt.Errorf("clock %s: missing meta", c.ID)
	}
	return c.Meta.Validate()
}

// Clone deep-copies the clock.
func (c *Clock) Clone() *Clock {
	cp := *c
	cp.Meta = c.Meta.Clone()
	return &cp
}

// Dump renders the full clock record.
func (c *Clock) Dump() map[string]interface{} {
	return map[string]interface{}{
		"id":                 c.ID,
		"name":               c.Name,
		"value":              c.Value,
		"min":                c.Minimum,
		"max":                c.Maximum,
		"source":             c.Source,
		"created_round":      c.CreatedRound,
		"last_modified_round": c.LastModifiedRound,
		"last_modified_by":   c.LastModifiedBy,
		"filled_this_turn":   c.FilledThisTurn,
		"filled_by":          c.FilledBy,
		"meta":               c.Meta.Dump(),
	}
}

// UnmarshalJSON accepts both the typed form and the legacy dict form
// {value, max, min, source, created_turn, last_modified_turn,
// last_modified_by, filled_this_turn, filled_by} used at the clock-map
// edges. Semantics are unchanged; the legacy keys map onto the typed
// fields.
func (c *Clock) UnmarshalJSON(data []byte) error {
	type rawClock struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		Value             *int   `json:"value"`
		Minimum           *int   `json:"minimum"`
		Maximum           *int   `json:"maximum"`
		Min               *int   `json:"min"`
		Max               *int   `json:"max"`
		Source            string `json:"source"`
		CreatedRound      int    `json:"created_round"`
		CreatedTurn       int    `json:"created_turn"`
		LastModifiedRound int    `json:"last_modified_round"`
		LastModifiedTurn  int    `json:"last_modified_turn"`
		LastModifiedBy    string `json:"last_modified_by"`
		FilledThisTurn    bool   `json:"filled_this_turn"`
		FilledBy          string `json:"filled_by"`
		Meta              *Meta  `json:"meta"`
	}
	var raw rawClock
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Name = raw.Name
	if raw.Value != nil {
		c.Value = *raw.Value
	}
	switch {
	case raw.Minimum != nil:
		c.Minimum = *raw.Minimum
	case raw.Min != nil:
		c.Minimum = *raw.Min
	}
	switch {
	case raw.Maximum != nil:
		c.Maximum = *raw.Maximum
	case raw.Max != nil:
		c.Maximum = *raw.Max
	default:
		c.Maximum = 10
	}
	c.Source = raw.Source
	c.CreatedRound = raw.CreatedRound
	if c.CreatedRound == 0 {
		c.CreatedRound = raw.CreatedTurn
	}
	c.LastModifiedRound = raw.LastModifiedRound
	if c.LastModifiedRound == 0 {
		c.LastModifiedRound = raw.LastModifiedTurn
	}
	c.LastModifiedBy = raw.LastModifiedBy
	c.FilledThisTurn = raw.FilledThisTurn
	c.FilledBy = raw.FilledBy
	c.Meta = raw.Meta
	if c.Meta == nil {
		c.Meta = NewMeta(VisibilityPublic)
	}
	return nil
}
