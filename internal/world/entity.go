package world

import (
	"fmt"
	"sort"
)

// EntityType discriminates the entity variants.
type EntityType string

const (
	EntityPC     EntityType = "pc"
	EntityNPC    EntityType = "npc"
	EntityObject EntityType = "object"
	EntityItem   EntityType = "item"
)

// Stats holds the six ability scores. Default is 10 across the board.
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// DefaultStats returns all-10 ability scores.
func DefaultStats() *Stats {
	return &Stats{10, 10, 10, 10, 10, 10}
}

// HP tracks current and maximum hit points. 0 <= Current <= Max always.
type HP struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Mark is a named, optionally consumable bonus/penalty carried by an entity,
// keyed "{source_id}.{tag}" in the entity's mark map.
type Mark struct {
	Tag         string `json:"tag"`
	Source      string `json:"source"`
	Value       int    `json:"value"`
	Consumes    bool   `json:"consumes"`
	CreatedTurn int    `json:"created_turn"`
}

// MarkKey builds the canonical mark map key.
func MarkKey(sourceID, tag string) string {
	return sourceID + "." + tag
}

// Entity is the tagged-variant world object. The Type discriminator decides
// which field groups are meaningful: living fields for pc/npc, object fields
// for object, item fields for item.
type Entity struct {
	ID          string                 `json:"id"`
	Type        EntityType             `json:"type"`
	Name        string                 `json:"name"`
	CurrentZone string                 `json:"current_zone"`
	Tags        map[string]interface{} `json:"tags,omitempty"`
	Meta        *Meta                  `json:"meta"`

	// Living fields (pc/npc only)
	Stats             *Stats          `json:"stats,omitempty"`
	HP                *HP             `json:"hp,omitempty"`
	Inventory         []string        `json:"inventory,omitempty"` // multiset, duplicates allowed
	VisibleActors     []string        `json:"visible_actors,omitempty"`
	HasWeapon         bool            `json:"has_weapon,omitempty"`
	HasTalkedThisTurn bool            `json:"has_talked_this_turn,omitempty"`
	Conditions        map[string]bool `json:"conditions,omitempty"`
	Guard             int             `json:"guard,omitempty"`
	GuardDuration     int             `json:"guard_duration,omitempty"`
	StyleBonus        int             `json:"style_bonus,omitempty"`
	Marks             map[string]Mark `json:"marks,omitempty"`

	// Object fields
	Description  string `json:"description,omitempty"`
	Interactable bool   `json:"interactable,omitempty"`
	Locked       bool   `json:"locked,omitempty"`

	// Item fields
	Weight float64 `json:"weight,omitempty"`
	Value  float64 `json:"value,omitempty"`
}

// NewActor creates a living entity (pc or npc) with defaults.
func NewActor(t EntityType, id, name, zone string) *Entity {
	return &Entity{
		ID:          id,
		Type:        t,
		Name:        name,
		CurrentZone: zone,
		Tags:        make(map[string]interface{}),
		Meta:        NewMeta(VisibilityPublic),
		Stats:       DefaultStats(),
		HP:          &HP{Current: 10, Max: 10},
		Conditions:  make(map[string]bool),
		Marks:       make(map[string]Mark),
	}
}

// IsLiving reports whether the entity carries the living field group.
func (e *Entity) IsLiving() bool {
	return e.Type == EntityPC || e.Type == EntityNPC
}

// IsAlive reports living with positive HP.
func (e *Entity) IsAlive() bool {
	return e.IsLiving() && e.HP != nil && e.HP.Current > 0
}

// HasItem reports whether the inventory contains at least one copy of id.
func (e *Entity) HasItem(itemID string) bool {
	for _, it := range e.Inventory {
		if it == itemID {
			return true
		}
	}
	return false
}

// CountItem returns how many copies of id the inventory holds.
func (e *Entity) CountItem(itemID string) int {
	n := 0
	for _, it := range e.Inventory {
		if it == itemID {
			n++
		}
	}
	return n
}

// Validate checks entity-local invariants.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity missing id")
	}
	switch e.Type {
	case EntityPC, EntityNPC, EntityObject, EntityItem:
	default:
		return fmt.Errorf("entity %s: invalid type %q", e.ID, e.Type)
	}
	if e.Meta == nil {
		return fmt.Errorf("entity %s: missing meta", e.ID)
	}
	if err := e.Meta.Validate(); err != nil {
		return fmt.Errorf("entity %s: %w", e.ID, err)
	}
	if e.IsLiving() {
		if e.HP == nil {
			return fmt.Errorf("entity %s: living entity missing hp", e.ID)
		}
		if e.HP.Current < 0 || e.HP.Current > e.HP.Max {
			return fmt.Errorf("entity %s: hp %d out of [0,%d]", e.ID, e.HP.Current, e.HP.Max)
		}
		if e.Guard < 0 {
			return fmt.Errorf("entity %s: guard %d < 0", e.ID, e.Guard)
		}
	}
	return nil
}

// Clone deep-copies the entity.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Meta = e.Meta.Clone()
	if e.Tags != nil {
		c.Tags = deepCopyMap(e.Tags)
	}
	if e.Stats != nil {
		s := *e.Stats
		c.Stats = &s
	}
	if e.HP != nil {
		h := *e.HP
		c.HP = &h
	}
	c.Inventory = append([]string(nil), e.Inventory...)
	c.VisibleActors = append([]string(nil), e.VisibleActors...)
	if e.Conditions != nil {
		c.Conditions = make(map[string]bool, len(e.Conditions))
		for k, v := range e.Conditions {
			c.Conditions[k] = v
		}
	}
	if e.Marks != nil {
		c.Marks = make(map[string]Mark, len(e.Marks))
		for k, v := range e.Marks {
			c.Marks[k] = v
		}
	}
	return &c
}

// Dump renders the full GM view of the entity with a stable key set per
// type. Redaction replaces values but never changes the key set.
func (e *Entity) Dump() map[string]interface{} {
	out := map[string]interface{}{
		"id":           e.ID,
		"type":         string(e.Type),
		"name":         e.Name,
		"current_zone": e.CurrentZone,
		"tags":         deepCopyMap(e.Tags),
		"meta":         e.Meta.Dump(),
		"is_visible":   true,
	}
	if out["tags"] == nil {
		out["tags"] = map[string]interface{}{}
	}
	switch e.Type {
	case EntityPC, EntityNPC:
		stats := e.Stats
		if stats == nil {
			stats = DefaultStats()
		}
		out["stats"] = map[string]interface{}{
			"strength":     stats.Strength,
			"dexterity":    stats.Dexterity,
			"constitution": stats.Constitution,
			"intelligence": stats.Intelligence,
			"wisdom":       stats.Wisdom,
			"charisma":     stats.Charisma,
		}
		hp := e.HP
		if hp == nil {
			hp = &HP{}
		}
		out["hp"] = map[string]interface{}{"current": hp.Current, "max": hp.Max}
		out["inventory"] = append([]string{}, e.Inventory...)
		out["visible_actors"] = append([]string{}, e.VisibleActors...)
		out["has_weapon"] = e.HasWeapon
		out["has_talked_this_turn"] = e.HasTalkedThisTurn
		out["conditions"] = copyBoolMap(e.Conditions)
		out["guard"] = e.Guard
		out["guard_duration"] = e.GuardDuration
		out["style_bonus"] = e.StyleBonus
		marks := make(map[string]interface{}, len(e.Marks))
		for k, m := range e.Marks {
			marks[k] = map[string]interface{}{
				"tag":          m.Tag,
				"source":       m.Source,
				"value":        m.Value,
				"consumes":     m.Consumes,
				"created_turn": m.CreatedTurn,
			}
		}
		out["marks"] = marks
	case EntityObject:
		out["description"] = e.Description
		out["interactable"] = e.Interactable
		out["locked"] = e.Locked
	case EntityItem:
		out["description"] = e.Description
		out["weight"] = e.Weight
		out["value"] = e.Value
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedSetKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]interface{}:
			out[k] = deepCopyMap(t)
		case []interface{}:
			cp := make([]interface{}, len(t))
			copy(cp, t)
			out[k] = cp
		case []string:
			out[k] = append([]string(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}
