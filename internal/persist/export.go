// Package persist writes and reads multi-view saves. A save directory
// holds four files, one per audience: gm.json (full fidelity), session.json
// (runtime subset), public.json (role redacted), and manifest.json (save
// metadata plus a minimal index). An optional sqlite audit archive keeps
// effect logs across saves.
package persist

import (
	"encoding/json"
	"fmt"

	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// ExportMode selects how much of each object's meta survives export.
type ExportMode string

const (
	// ModeSave keeps full fidelity: known_by, notes, extra.
	ModeSave ExportMode = "save"
	// ModeSession keeps the runtime subset: visibility, gm_only, known_by,
	// last_changed_at.
	ModeSession ExportMode = "session"
	// ModePublic redacts for players: gm_only objects are dropped entirely
	// and known_by collapses to a count.
	ModePublic ExportMode = "public"
	// ModeMinimal keeps only visibility and gm_only.
	ModeMinimal ExportMode = "minimal"
)

// ParseMode validates a mode string.
func ParseMode(s string) (ExportMode, error) {
	switch ExportMode(s) {
	case ModeSave, ModeSession, ModePublic, ModeMinimal:
		return ExportMode(s), nil
	}
	return "", fmt.Errorf("unknown export mode %q", s)
}

// ExportWorld renders the world as a generic tree with every meta record
// rewritten for the mode. Public mode additionally drops gm_only entities,
// zones and clocks.
func ExportWorld(w *world.GameState, mode ExportMode) (map[string]interface{}, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("exporting world: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("exporting world: %w", err)
	}

	for _, key := range []string{"entities", "zones", "clocks"} {
		objects, ok := tree[key].(map[string]interface{})
		if !ok {
			continue
		}
		for id, obj := range objects {
			record, ok := obj.(map[string]interface{})
			if !ok {
				continue
			}
			if mode == ModePublic && isGMOnly(record) {
				delete(objects, id)
				continue
			}
			if meta, ok := record["meta"].(map[string]interface{}); ok {
				record["meta"] = exportMeta(meta, mode)
			}
		}
	}
	if scene, ok := tree["scene"].(map[string]interface{}); ok {
		if meta, ok := scene["meta"].(map[string]interface{}); ok {
			scene["meta"] = exportMeta(meta, mode)
		}
		if mode == ModePublic {
			// Players never see the GM's working state.
			delete(scene, "last_effect_log")
			delete(scene, "pending_effects")
		}
	}
	return tree, nil
}

func isGMOnly(record map[string]interface{}) bool {
	meta, ok := record["meta"].(map[string]interface{})
	if !ok {
		return false
	}
	gmOnly, _ := meta["gm_only"].(bool)
	return gmOnly || meta["visibility"] == string(world.VisibilityGMOnly)
}

// exportMeta applies the per-mode field policy to one meta record.
func exportMeta(meta map[string]interface{}, mode ExportMode) map[string]interface{} {
	out := map[string]interface{}{
		"visibility": meta["visibility"],
		"gm_only":    meta["gm_only"],
	}
	switch mode {
	case ModeSave:
		for k, v := range meta {
			out[k] = v
		}
	case ModeSession:
		if v, ok := meta["known_by"]; ok {
			out["known_by"] = v
		}
		if v, ok := meta["last_changed_at"]; ok {
			out["last_changed_at"] = v
		}
	case ModePublic:
		out["known_by_count"] = knownByCount(meta["known_by"])
	case ModeMinimal:
		// visibility and gm_only only.
	}
	return out
}

func knownByCount(v interface{}) int {
	switch kb := v.(type) {
	case map[string]interface{}:
		n := 0
		for _, knows := range kb {
			if b, ok := knows.(bool); ok && b {
				n++
			}
		}
		return n
	case []interface{}:
		return len(kb)
	}
	return 0
}
