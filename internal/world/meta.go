// Package world defines the typed game state: entities, zones, clocks, the
// scene, and the GameState aggregate that owns them. All mutation happens
// through the effect engine; this package only provides the types, deep
// copies, and dump/load plumbing.
package world

import (
	"encoding/json"
	"fmt"
	"time"
)

// Visibility controls who can see a world object.
type Visibility string

const (
	VisibilityPublic Visibility = "public"
	VisibilityHidden Visibility = "hidden"
	VisibilityGMOnly Visibility = "gm_only"
)

// Meta is attached to every world object: visibility, the set of actors who
// know about the object, and audit timestamps.
type Meta struct {
	Visibility    Visibility             `json:"visibility"`
	GMOnly        bool                   `json:"gm_only"`
	KnownBy       map[string]bool        `json:"known_by,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	LastChangedAt time.Time              `json:"last_changed_at"`
	Source        string                 `json:"source,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

// NewMeta constructs a Meta with coherent visibility flags.
// GMOnly must equal (visibility == gm_only); this constructor enforces it.
func NewMeta(v Visibility) *Meta {
	now := time.Now().UTC()
	return &Meta{
		Visibility:    v,
		GMOnly:        v == VisibilityGMOnly,
		KnownBy:       make(map[string]bool),
		CreatedAt:     now,
		LastChangedAt: now,
	}
}

// Validate checks the gm_only/visibility invariant.
func (m *Meta) Validate() error {
	if m.GMOnly != (m.Visibility == VisibilityGMOnly) {
		return fmt.Errorf("meta incoherent: gm_only=%v visibility=%s", m.GMOnly, m.Visibility)
	}
	switch m.Visibility {
	case VisibilityPublic, VisibilityHidden, VisibilityGMOnly:
	default:
		return fmt.Errorf("meta invalid visibility: %q", m.Visibility)
	}
	return nil
}

// Touch updates the last-changed timestamp.
func (m *Meta) Touch() {
	m.LastChangedAt = time.Now().UTC()
}

// Knows reports whether an actor is in the known_by set.
func (m *Meta) Knows(actorID string) bool {
	return m.KnownBy[actorID]
}

// AddKnownBy adds an actor to the known_by set and touches the meta.
// Returns true if the actor was newly added.
func (m *Meta) AddKnownBy(actorID string) bool {
	if m.KnownBy == nil {
		m.KnownBy = make(map[string]bool)
	}
	if m.KnownBy[actorID] {
		return false
	}
	m.KnownBy[actorID] = true
	m.Touch()
	return true
}

// Clone deep-copies the meta.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	c := *m
	c.KnownBy = make(map[string]bool, len(m.KnownBy))
	for k, v := range m.KnownBy {
		c.KnownBy[k] = v
	}
	if m.Extra != nil {
		c.Extra = deepCopyMap(m.Extra)
	}
	return &c
}

// UnmarshalJSON accepts slightly incoherent inputs: gm_only is auto-corrected
// from visibility (strict construction, lenient deserialization), and
// known_by accepts both the set form and a list of actor ids.
func (m *Meta) UnmarshalJSON(data []byte) error {
	type rawMeta struct {
		Visibility    Visibility             `json:"visibility"`
		GMOnly        bool                   `json:"gm_only"`
		KnownBy       json.RawMessage        `json:"known_by"`
		CreatedAt     time.Time              `json:"created_at"`
		LastChangedAt time.Time              `json:"last_changed_at"`
		Source        string                 `json:"source"`
		Notes         string                 `json:"notes"`
		Extra         map[string]interface{} `json:"extra"`
	}
	var raw rawMeta
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Visibility == "" {
		raw.Visibility = VisibilityPublic
	}
	m.Visibility = raw.Visibility
	m.GMOnly = raw.Visibility == VisibilityGMOnly
	m.CreatedAt = raw.CreatedAt
	m.LastChangedAt = raw.LastChangedAt
	m.Source = raw.Source
	m.Notes = raw.Notes
	m.Extra = raw.Extra
	m.KnownBy = make(map[string]bool)
	if len(raw.KnownBy) > 0 {
		set, err := decodeStringSet(raw.KnownBy)
		if err != nil {
			return fmt.Errorf("meta known_by: %w", err)
		}
		m.KnownBy = set
	}
	return nil
}

// Dump renders the meta for a given export depth. Full dumps include notes
// and extra; visibility projections strip them elsewhere.
func (m *Meta) Dump() map[string]interface{} {
	out := map[string]interface{}{
		"visibility":      string(m.Visibility),
		"gm_only":         m.GMOnly,
		"known_by":        sortedSetKeys(m.KnownBy),
		"created_at":      m.CreatedAt.Format(time.RFC3339),
		"last_changed_at": m.LastChangedAt.Format(time.RFC3339),
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	if m.Notes != "" {
		out["notes"] = m.Notes
	} else {
		out["notes"] = nil
	}
	if len(m.Extra) > 0 {
		out["extra"] = deepCopyMap(m.Extra)
	}
	return out
}

// decodeStringSet accepts either {"a":true} or ["a","b"].
func decodeStringSet(raw json.RawMessage) (map[string]bool, error) {
	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		set := make(map[string]bool, len(asList))
		for _, s := range asList {
			set[s] = true
		}
		return set, nil
	}
	var asMap map[string]bool
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("expected list or set, got %s", string(raw))
	}
	if asMap == nil {
		asMap = make(map[string]bool)
	}
	return asMap, nil
}
