// Package items provides the item definition registry: YAML-defined item
// records with usage methods, effect templates, delegation, and safety
// flags, plus a built-in fallback set and optional hot reload.
package items

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Delegation routes a use_item call to another tool with merged args.
type Delegation struct {
	Tool         string                 `yaml:"tool" json:"tool"`
	ArgsOverride map[string]interface{} `yaml:"args_override,omitempty" json:"args_override,omitempty"`
}

// EffectTemplate is one effect atom template carried by an item. Deltas
// may be dice expression strings resolved at use time. Target supports the
// placeholders {actor} and {target}.
type EffectTemplate struct {
	Type      string      `yaml:"type" json:"type"`
	Target    string      `yaml:"target,omitempty" json:"target,omitempty"`
	Delta     interface{} `yaml:"delta,omitempty" json:"delta,omitempty"`
	Add       interface{} `yaml:"add,omitempty" json:"add,omitempty"`
	Remove    interface{} `yaml:"remove,omitempty" json:"remove,omitempty"`
	ID        string      `yaml:"id,omitempty" json:"id,omitempty"`
	To        string      `yaml:"to,omitempty" json:"to,omitempty"`
	Zone      string      `yaml:"zone,omitempty" json:"zone,omitempty"`
	Intensity string      `yaml:"intensity,omitempty" json:"intensity,omitempty"`
	Value     int         `yaml:"value,omitempty" json:"value,omitempty"`
	Consumes  bool        `yaml:"consumes,omitempty" json:"consumes,omitempty"`
	Condition string      `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Item is one usable item definition.
type Item struct {
	ID           string           `yaml:"id" json:"id"`
	Name         string           `yaml:"name" json:"name"`
	Description  string           `yaml:"description,omitempty" json:"description,omitempty"`
	UsageMethods []string         `yaml:"usage_methods" json:"usage_methods"`
	Effects      []EffectTemplate `yaml:"effects,omitempty" json:"effects,omitempty"`
	Delegation   *Delegation      `yaml:"delegation,omitempty" json:"delegation,omitempty"`
	Dangerous    bool             `yaml:"dangerous,omitempty" json:"dangerous,omitempty"`
	Poison       bool             `yaml:"poison,omitempty" json:"poison,omitempty"`
	Charges      int              `yaml:"charges,omitempty" json:"charges,omitempty"`
}

// AllowsMethod reports whether a usage method is permitted.
func (it *Item) AllowsMethod(method string) bool {
	for _, m := range it.UsageMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Validate checks an item definition.
func (it *Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item missing id")
	}
	if len(it.UsageMethods) == 0 {
		return fmt.Errorf("item %s: no usage_methods", it.ID)
	}
	for _, m := range it.UsageMethods {
		switch m {
		case "consume", "activate", "equip", "read":
		default:
			return fmt.Errorf("item %s: unknown usage method %q", it.ID, m)
		}
	}
	if it.Delegation != nil {
		switch it.Delegation.Tool {
		case "attack", "talk", "move":
		default:
			return fmt.Errorf("item %s: delegation to unsupported tool %q", it.ID, it.Delegation.Tool)
		}
	}
	return nil
}

// ResolveEffects instantiates the item's effect templates for an actor and
// optional target.
func (it *Item) ResolveEffects(actorID, targetID string) []world.Effect {
	var out []world.Effect
	for _, t := range it.Effects {
		eff := world.Effect{
			Type:      t.Type,
			Target:    substitute(t.Target, actorID, targetID),
			Source:    actorID,
			Cause:     "item:" + it.ID,
			Condition: t.Condition,
			Delta:     t.Delta,
			Add:       t.Add,
			Remove:    t.Remove,
			ID:        t.ID,
			To:        t.To,
			Zone:      t.Zone,
			Intensity: t.Intensity,
			Value:     t.Value,
			Consumes:  t.Consumes,
		}
		if eff.Target == "" && eff.Type != world.EffectClock && eff.Type != world.EffectNoise {
			eff.Target = actorID
		}
		out = append(out, eff)
	}
	return out
}

func substitute(s, actorID, targetID string) string {
	s = strings.ReplaceAll(s, "{actor}", actorID)
	s = strings.ReplaceAll(s, "{target}", targetID)
	return s
}

// Registry holds item definitions, guarded for hot reload.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewRegistry starts with the built-in fallback set.
func NewRegistry() *Registry {
	r := &Registry{items: make(map[string]*Item)}
	for _, it := range builtinItems() {
		r.items[it.ID] = it
	}
	return r
}

// Get looks an item up by id.
func (r *Registry) Get(id string) (*Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	return it, ok
}

// IDs returns all item ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for id := range r.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Put inserts or replaces a definition.
func (r *Registry) Put(it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = it
	return nil
}

// itemFile is the on-disk YAML shape: either one item or a list.
type itemFile struct {
	Items []*Item `yaml:"items"`
}

// LoadDir loads every .yaml/.yml file under dir into the registry,
// replacing same-id definitions. Invalid definitions are skipped with a
// warning; a missing directory is not an error.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading item dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		n, err := r.loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			logging.ItemsWarn("skipping %s: %v", entry.Name(), err)
			continue
		}
		loaded += n
	}
	logging.Items("loaded %d item definitions from %s", loaded, dir)
	return loaded, nil
}

func (r *Registry) loadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var file itemFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	list := file.Items
	if len(list) == 0 {
		// Single-item file.
		var single Item
		if err := yaml.Unmarshal(data, &single); err == nil && single.ID != "" {
			list = []*Item{&single}
		}
	}

	loaded := 0
	for _, it := range list {
		if err := r.Put(it); err != nil {
			logging.ItemsWarn("invalid item in %s: %v", filepath.Base(path), err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// builtinItems is the minimal fallback set used when no data directory is
// configured.
func builtinItems() []*Item {
	return []*Item{
		{
			ID:           "healing_potion",
			Name:         "Healing Potion",
			Description:  "A warm red draught.",
			UsageMethods: []string{"consume"},
			Effects: []EffectTemplate{
				{Type: world.EffectHP, Target: "{actor}", Delta: "2d4+2"},
			},
		},
		{
			ID:           "torch",
			Name:         "Torch",
			Description:  "Burns for a scene.",
			UsageMethods: []string{"activate"},
			Effects: []EffectTemplate{
				{Type: world.EffectTag, Target: "scene", Add: map[string]interface{}{"lighting": "bright"}},
			},
		},
		{
			ID:           "smoke_bomb",
			Name:         "Smoke Bomb",
			Description:  "Fills the room with choking smoke.",
			UsageMethods: []string{"consume"},
			Dangerous:    true,
			Effects: []EffectTemplate{
				{Type: world.EffectTag, Target: "scene", Add: map[string]interface{}{"lighting": "dim", "cover": "good"}},
			},
		},
		{
			ID:           "scroll_of_flame",
			Name:         "Scroll of Flame",
			Description:  "Single-use fire evocation.",
			UsageMethods: []string{"read"},
			Delegation: &Delegation{
				Tool: "attack",
				ArgsOverride: map[string]interface{}{
					"attack_mode": "scroll",
					"damage_expr": "2d6",
					"weapon":      "scroll_of_flame",
				},
			},
		},
		{
			ID:           "vial_of_venom",
			Name:         "Vial of Venom",
			Description:  "Do not drink.",
			UsageMethods: []string{"consume"},
			Poison:       true,
			Dangerous:    true,
			Effects: []EffectTemplate{
				{Type: world.EffectHP, Target: "{target}", Delta: "-2d6"},
			},
		},
	}
}
