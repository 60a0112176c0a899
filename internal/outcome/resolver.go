package outcome

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// EffectTemplate is one consequence effect atom with {actor}, {target} and
// {zone} placeholders.
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
}

// Entry is the consequence for one (domain, outcome) pair.
type Entry struct {
	Consequence string           `yaml:"consequence" json:"consequence"`
	Effects     []EffectTemplate `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// Table maps domain -> outcome band -> entry. Domains are stealth, social
// and combat.
type Table map[string]map[string]Entry

var knownDomains = map[string]bool{"stealth": true, "social": true, "combat": true}

// Resolver enriches finished tool results with table-driven consequences.
type Resolver struct {
	mu    sync.RWMutex
	table Table
}

// NewResolver starts from the built-in table.
func NewResolver() *Resolver {
	return &Resolver{table: defaultTable()}
}

// tableFile is the on-disk YAML shape.
type tableFile struct {
	Consequences Table `yaml:"consequences"`
}

// LoadDir merges every .yaml/.yml consequence table under dir over the
// current one. Unknown domains are skipped with a warning; a missing
// directory is not an error.
func (r *Resolver) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading consequence dir: %w", err)
	}

	merged := 0
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
			logging.ToolsWarn("skipping consequence file %s: %v", entry.Name(), err)
			continue
		}
		merged += n
	}
	logging.Tools("merged %d consequence entries from %s", merged, dir)
	return merged, nil
}

func (r *Resolver) loadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	merged := 0
	for domain, bands := range file.Consequences {
		if !knownDomains[domain] {
			logging.ToolsWarn("%s: unknown consequence domain %q", filepath.Base(path), domain)
			continue
		}
		if r.table[domain] == nil {
			r.table[domain] = make(map[string]Entry)
		}
		for band, entry := range bands {
			r.table[domain][band] = entry
			merged++
		}
	}
	return merged, nil
}

// Resolve looks up the (domain, outcome) consequence for a finished tool
// result and returns the result with a consequence narration field and any
// table effects appended. Results that carry no resolvable domain or
// outcome pass through unchanged.
func (r *Resolver) Resolve(res tools.ToolResult, w *world.GameState) tools.ToolResult {
	domain := domainOf(res)
	band := outcomeOf(res)
	if domain == "" || band == "" {
		return res
	}

	r.mu.RLock()
	entry, ok := r.table[domain][band]
	r.mu.RUnlock()
	if !ok {
		return res
	}

	actor := stringFact(res, "actor")
	target := stringFact(res, "target")
	zone := ""
	if w != nil {
		if ent, ok := w.Entities[actor]; ok {
			zone = ent.CurrentZone
		}
	}

	if entry.Consequence != "" {
		if res.NarrationHint == nil {
			res.NarrationHint = tools.NewHint("", nil, 0)
		}
		res.NarrationHint["consequence"] = substitutePlaceholders(entry.Consequence, actor, target, zone)
	}
	for _, t := range entry.Effects {
		res.Effects = append(res.Effects, t.toEffect(actor, target, zone, domain))
	}
	return res
}

func (t EffectTemplate) toEffect(actor, target, zone, domain string) world.Effect {
	eff := world.Effect{
		Type:      t.Type,
		Target:    substitutePlaceholders(t.Target, actor, target, zone),
		Source:    actor,
		Cause:     "consequence:" + domain,
		Delta:     substituteAny(t.Delta, actor, target, zone),
		Add:       substituteAny(t.Add, actor, target, zone),
		Remove:    substituteAny(t.Remove, actor, target, zone),
		ID:        substitutePlaceholders(t.ID, actor, target, zone),
		To:        substitutePlaceholders(t.To, actor, target, zone),
		Zone:      substitutePlaceholders(t.Zone, actor, target, zone),
		Intensity: t.Intensity,
		Value:     t.Value,
		Consumes:  t.Consumes,
	}
	if eff.Target == "" && eff.Type != world.EffectClock && eff.Type != world.EffectNoise && eff.Type != world.EffectTag {
		eff.Target = actor
	}
	return eff
}

func substitutePlaceholders(s, actor, target, zone string) string {
	s = strings.ReplaceAll(s, "{actor}", actor)
	s = strings.ReplaceAll(s, "{target}", target)
	s = strings.ReplaceAll(s, "{zone}", zone)
	return s
}

func substituteAny(v interface{}, actor, target, zone string) interface{} {
	if s, ok := v.(string); ok {
		return substitutePlaceholders(s, actor, target, zone)
	}
	return v
}

// domainOf classifies the result. Attack is always combat, talk is always
// social, and checks fall to their action's domain class.
func domainOf(res tools.ToolResult) string {
	switch res.ToolID {
	case "attack":
		return "combat"
	case "talk":
		return "social"
	case "ask_roll":
		if d := stringFact(res, "domain"); knownDomains[d] {
			return d
		}
		switch stringFact(res, "action") {
		case "sneak", "hide", "pickpocket":
			return "stealth"
		case "persuade", "intimidate", "deceive", "charm":
			return "social"
		}
	}
	return ""
}

func outcomeOf(res tools.ToolResult) string {
	if band := stringFact(res, "outcome"); band != "" {
		return band
	}
	if check, ok := res.Facts["check"].(map[string]interface{}); ok {
		if band, ok := check["outcome"].(string); ok {
			return band
		}
	}
	return ""
}

func stringFact(res tools.ToolResult, key string) string {
	if res.Facts == nil {
		return ""
	}
	s, _ := res.Facts[key].(string)
	if s == "" {
		if s2, ok := res.Args[key].(string); ok {
			return s2
		}
	}
	return s
}

// defaultTable is the built-in consequence table used when no data
// directory is configured.
func defaultTable() Table {
	return Table{
		"stealth": {
			"crit_success": {
				Consequence: "{actor} moves like a shadow; nobody so much as glances over.",
			},
			"success": {
				Consequence: "{actor} slips by unnoticed.",
			},
			"partial": {
				Consequence: "{actor} gets through, but something creaks behind them.",
				Effects: []EffectTemplate{
					{Type: world.EffectClock, ID: "alarm", Delta: 1},
				},
			},
			"fail": {
				Consequence: "{actor} is spotted in {zone}.",
				Effects: []EffectTemplate{
					{Type: world.EffectClock, ID: "alarm", Delta: 1},
					{Type: world.EffectTag, Target: "scene", Add: map[string]interface{}{"alert": "wary"}},
				},
			},
		},
		"social": {
			"crit_success": {
				Consequence: "{target} warms to {actor} completely.",
			},
			"success": {
				Consequence: "{target} comes around to {actor}'s side.",
			},
			"partial": {
				Consequence: "{target} hesitates, half convinced.",
			},
			"fail": {
				Consequence: "{target} hardens against {actor}.",
			},
		},
		"combat": {
			"crit_success": {
				Consequence: "A devastating blow; {target} reels.",
				Effects: []EffectTemplate{
					{Type: world.EffectNoise, Zone: "{zone}", Intensity: "loud"},
				},
			},
			"success": {
				Consequence: "{actor}'s strike lands clean.",
				Effects: []EffectTemplate{
					{Type: world.EffectNoise, Zone: "{zone}", Intensity: "normal"},
				},
			},
			"partial": {
				Consequence: "A glancing hit; {target} keeps their footing.",
			},
			"fail": {
				Consequence: "{target} turns the attack aside.",
				Effects: []EffectTemplate{
					{Type: world.EffectGuard, Target: "{target}", Delta: 1},
				},
			},
		},
	}
}
