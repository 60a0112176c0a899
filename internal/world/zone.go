package world

import (
	"encoding/json"
	"fmt"
)

// Direction enumerates the exit directions the mirroring table understands.
type Direction string

const (
	DirNorth     Direction = "north"
	DirSouth     Direction = "south"
	DirEast      Direction = "east"
	DirWest      Direction = "west"
	DirUp        Direction = "up"
	DirDown      Direction = "down"
	DirNortheast Direction = "ne"
	DirNorthwest Direction = "nw"
	DirSoutheast Direction = "se"
	DirSouthwest Direction = "sw"
	DirIn        Direction = "in"
	DirOut       Direction = "out"
	DirForward   Direction = "forward"
	DirBack      Direction = "back"
)

// Recognized exit condition keys.
const (
	CondKeyRequired   = "key_required"
	CondLevelRequired = "level_required"
	CondTagRequired   = "tag_required"
	CondStatCheck     = "stat_check"
)

// Exit is a directional edge from one zone to another.
type Exit struct {
	To         string                 `json:"to"`
	Label      string                 `json:"label,omitempty"`
	Direction  Direction              `json:"direction,omitempty"`
	Blocked    bool                   `json:"blocked,omitempty"`
	LockID     string                 `json:"lock_id,omitempty"`
	Conditions map[string]interface{} `json:"conditions,omitempty"`
	Cost       float64                `json:"cost,omitempty"`
	Terrain    string                 `json:"terrain,omitempty"`
	Meta       *Meta                  `json:"meta,omitempty"`
}

// EffectiveCost floors the configured cost at 0.1 as enforced at query time.
func (x *Exit) EffectiveCost() float64 {
	if x.Cost < 0.1 {
		return 0.1
	}
	return x.Cost
}

// Clone deep-copies the exit.
func (x Exit) Clone() Exit {
	c := x
	if x.Conditions != nil {
		c.Conditions = deepCopyMap(x.Conditions)
	}
	c.Meta = x.Meta.Clone()
	return c
}

// Zone is a discrete location node in the zone graph.
type Zone struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Exits        []Exit          `json:"exits"`
	Tags         map[string]bool `json:"tags,omitempty"`
	DiscoveredBy map[string]bool `json:"discovered_by,omitempty"`
	Region       string          `json:"region,omitempty"`
	Meta         *Meta           `json:"meta"`
}

// NewZone creates an empty zone.
func NewZone(id, name string) *Zone {
	return &Zone{
		ID:           id,
		Name:         name,
		Tags:         make(map[string]bool),
		DiscoveredBy: make(map[string]bool),
		Meta:         NewMeta(VisibilityPublic),
	}
}

// AdjacentZones returns the target ids of unblocked exits, in exit order.
// This is the derived legacy field.
func (z *Zone) AdjacentZones() []string {
	var out []string
	for _, x := range z.Exits {
		if !x.Blocked {
			out = append(out, x.To)
		}
	}
	return out
}

// BlockedExits returns the target ids of blocked exits, in exit order.
func (z *Zone) BlockedExits() []string {
	var out []string
	for _, x := range z.Exits {
		if x.Blocked {
			out = append(out, x.To)
		}
	}
	return out
}

// ExitTo returns the first exit leading to the target zone.
func (z *Zone) ExitTo(target string) (*Exit, bool) {
	for i := range z.Exits {
		if z.Exits[i].To == target {
			return &z.Exits[i], true
		}
	}
	return nil, false
}

// Clone deep-copies the zone.
func (z *Zone) Clone() *Zone {
	c := *z
	c.Exits = make([]Exit, len(z.Exits))
	for i, x := range z.Exits {
		c.Exits[i] = x.Clone()
	}
	c.Tags = make(map[string]bool, len(z.Tags))
	for k, v := range z.Tags {
		c.Tags[k] = v
	}
	c.DiscoveredBy = make(map[string]bool, len(z.DiscoveredBy))
	for k, v := range z.DiscoveredBy {
		c.DiscoveredBy[k] = v
	}
	c.Meta = z.Meta.Clone()
	return &c
}

// Validate checks zone-local invariants.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone missing id")
	}
	if z.Meta == nil {
		return fmt.Errorf("zone %s: missing meta", z.ID)
	}
	if err := z.Meta.Validate(); err != nil {
		return fmt.Errorf("zone %s: %w", z.ID, err)
	}
	for _, x := range z.Exits {
		if x.To == "" {
			return fmt.Errorf("zone %s: exit with empty target", z.ID)
		}
	}
	return nil
}

// Dump renders the full GM view of the zone.
func (z *Zone) Dump() map[string]interface{} {
	exits := make([]map[string]interface{}, 0, len(z.Exits))
	for _, x := range z.Exits {
		exits = append(exits, DumpExit(&x))
	}
	return map[string]interface{}{
		"id":             z.ID,
		"name":           z.Name,
		"description":    z.Description,
		"exits":          exits,
		"adjacent_zones": z.AdjacentZones(),
		"blocked_exits":  z.BlockedExits(),
		"tags":           sortedSetKeys(z.Tags),
		"discovered_by":  sortedSetKeys(z.DiscoveredBy),
		"region":         z.Region,
		"meta":           z.Meta.Dump(),
	}
}

// DumpExit renders an exit record.
func DumpExit(x *Exit) map[string]interface{} {
	out := map[string]interface{}{
		"to":        x.To,
		"label":     x.Label,
		"direction": string(x.Direction),
		"blocked":   x.Blocked,
		"cost":      x.EffectiveCost(),
		"terrain":   x.Terrain,
	}
	if x.LockID != "" {
		out["lock_id"] = x.LockID
	}
	if len(x.Conditions) > 0 {
		out["conditions"] = deepCopyMap(x.Conditions)
	}
	return out
}

// UnmarshalJSON canonicalizes tag and discovery sets: both accept list input
// for serialization compatibility and are stored as sets.
func (z *Zone) UnmarshalJSON(data []byte) error {
	type rawZone struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		Exits        []Exit          `json:"exits"`
		Tags         json.RawMessage `json:"tags"`
		DiscoveredBy json.RawMessage `json:"discovered_by"`
		Region       string          `json:"region"`
		Meta         *Meta           `json:"meta"`
	}
	var raw rawZone
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	z.ID = raw.ID
	z.Name = raw.Name
	z.Description = raw.Description
	z.Exits = raw.Exits
	z.Region = raw.Region
	z.Meta = raw.Meta
	if z.Meta == nil {
		z.Meta = NewMeta(VisibilityPublic)
	}
	z.Tags = make(map[string]bool)
	if len(raw.Tags) > 0 {
		set, err := decodeStringSet(raw.Tags)
		if err != nil {
			return fmt.Errorf("zone %s tags: %w", raw.ID, err)
		}
		z.Tags = set
	}
	z.DiscoveredBy = make(map[string]bool)
	if len(raw.DiscoveredBy) > 0 {
		set, err := decodeStringSet(raw.DiscoveredBy)
		if err != nil {
			return fmt.Errorf("zone %s discovered_by: %w", raw.ID, err)
		}
		z.DiscoveredBy = set
	}
	return nil
}
