package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// ErrCorruptSave marks saves whose JSON cannot be parsed.
var ErrCorruptSave = errors.New("corrupt save")

// ErrMissingKeys marks saves that parse but lack required structure.
var ErrMissingKeys = errors.New("save missing required keys")

// File names inside a save directory.
const (
	FileGM       = "gm.json"
	FileSession  = "session.json"
	FilePublic   = "public.json"
	FileManifest = "manifest.json"
)

// Manifest is the save metadata written to manifest.json and embedded at
// the top of every view file.
type Manifest struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Round       int       `json:"round"`
	TurnIndex   int       `json:"turn_index"`
	EntityCount int       `json:"entity_count"`
	ZoneCount   int       `json:"zone_count"`
	ClockCount  int       `json:"clock_count"`
	Version     int       `json:"version"`
}

// saveVersion bumps when the on-disk shape changes incompatibly.
const saveVersion = 1

// saveFile is the top-level shape of every view file.
type saveFile struct {
	Metadata  Manifest               `json:"metadata"`
	GameState map[string]interface{} `json:"game_state"`
}

// SaveWorld writes the four save views under dir, creating it if needed.
// The three game-state views are written concurrently; the manifest carries
// a minimal-mode index of every object so a browser can list a save without
// parsing a full view.
func SaveWorld(dir string, w *world.GameState) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating save dir: %w", err)
	}

	man := Manifest{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		EntityCount: len(w.Entities),
		ZoneCount:   len(w.Zones),
		ClockCount:  len(w.Clocks),
		Version:     saveVersion,
	}
	if w.Scene != nil {
		man.Round = w.Scene.Round
		man.TurnIndex = w.Scene.TurnIndex
	}

	views := []struct {
		file string
		mode ExportMode
	}{
		{FileGM, ModeSave},
		{FileSession, ModeSession},
		{FilePublic, ModePublic},
	}

	var g errgroup.Group
	for _, v := range views {
		g.Go(func() error {
			tree, err := ExportWorld(w, v.mode)
			if err != nil {
				return err
			}
			return writeJSON(filepath.Join(dir, v.file), saveFile{Metadata: man, GameState: tree})
		})
	}
	g.Go(func() error {
		index, err := minimalIndex(w)
		if err != nil {
			return err
		}
		return writeJSON(filepath.Join(dir, FileManifest), map[string]interface{}{
			"metadata": man,
			"index":    index,
		})
	})
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}
	logging.Persist("saved world %s: %d entities, %d zones, round %d",
		man.ID, man.EntityCount, man.ZoneCount, man.Round)
	return man, nil
}

// minimalIndex lists every object id with its minimal-mode meta, sorted.
func minimalIndex(w *world.GameState) (map[string]interface{}, error) {
	tree, err := ExportWorld(w, ModeMinimal)
	if err != nil {
		return nil, err
	}
	index := make(map[string]interface{}, 3)
	for _, key := range []string{"entities", "zones", "clocks"} {
		objects, _ := tree[key].(map[string]interface{})
		ids := make([]string, 0, len(objects))
		for id := range objects {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		entries := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			record, _ := objects[id].(map[string]interface{})
			entries = append(entries, map[string]interface{}{
				"id":   id,
				"meta": record["meta"],
			})
		}
		index[key] = entries
	}
	return index, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// LoadWorld reads the full-fidelity view back into a world, validating
// structure before decoding and world invariants after.
func LoadWorld(dir string) (*world.GameState, Manifest, error) {
	path := filepath.Join(dir, FileGM)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("reading save: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	stateRaw, err := requireKeys(raw)
	if err != nil {
		return nil, Manifest{}, err
	}

	var man Manifest
	if err := json.Unmarshal(raw["metadata"], &man); err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: metadata: %v", ErrCorruptSave, err)
	}

	w := world.NewGameState()
	if err := json.Unmarshal(stateRaw, w); err != nil {
		return nil, Manifest{}, fmt.Errorf("%w: game_state: %v", ErrCorruptSave, err)
	}
	if errs := w.Validate(); len(errs) > 0 {
		return nil, Manifest{}, fmt.Errorf("%w: %d invariant violations, first: %v", ErrCorruptSave, len(errs), errs[0])
	}
	logging.Persist("loaded world %s: %d entities, round %d", man.ID, len(w.Entities), man.Round)
	return w, man, nil
}

// requireKeys checks the metadata/game_state envelope and the game_state
// subkeys the loader depends on.
func requireKeys(raw map[string]json.RawMessage) (json.RawMessage, error) {
	for _, key := range []string{"metadata", "game_state"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingKeys, key)
		}
	}
	var state map[string]json.RawMessage
	if err := json.Unmarshal(raw["game_state"], &state); err != nil {
		return nil, fmt.Errorf("%w: game_state: %v", ErrCorruptSave, err)
	}
	for _, key := range []string{"entities", "zones", "scene"} {
		if _, ok := state[key]; !ok {
			return nil, fmt.Errorf("%w: game_state.%q", ErrMissingKeys, key)
		}
	}
	return raw["game_state"], nil
}
