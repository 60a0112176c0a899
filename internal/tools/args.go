package tools

import (
	"fmt"
	"strings"
)

// ValidateArgs checks a raw argument map against the tool's schema:
// required presence, type compatibility, enum membership, and numeric
// bounds. Unknown keys are tolerated and passed through; downstream
// handlers ignore what they do not use.
func ValidateArgs(d *Descriptor, raw map[string]interface{}) error {
	for name, spec := range d.Args {
		v, ok := raw[name]
		if !ok || v == nil {
			if spec.Required {
				return fmt.Errorf("tool %s: missing required arg %q", d.ID, name)
			}
			continue
		}
		if err := checkArg(name, spec, v); err != nil {
			return fmt.Errorf("tool %s: %w", d.ID, err)
		}
	}
	return nil
}

func checkArg(name string, spec ArgSpec, v interface{}) error {
	switch spec.Type {
	case "string":
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("arg %q: expected string, got %T", name, v)
		}
		if len(spec.Enum) > 0 && !inEnum(spec.Enum, strings.ToLower(strings.TrimSpace(s))) {
			return fmt.Errorf("arg %q: %q not in %v", name, s, spec.Enum)
		}
	case "int", "float":
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("arg %q: expected number, got %T", name, v)
		}
		// Min/Max are advisory for clamped args; hard bounds only when the
		// sanitizer does not clamp this arg.
		if !clampedArg(name) {
			if spec.Min != nil && f < *spec.Min {
				return fmt.Errorf("arg %q: %v below minimum %v", name, f, *spec.Min)
			}
			if spec.Max != nil && f > *spec.Max {
				return fmt.Errorf("arg %q: %v above maximum %v", name, f, *spec.Max)
			}
		}
	case "bool":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("arg %q: expected bool, got %T", name, v)
		}
	case "list":
		switch v.(type) {
		case []interface{}, []string, []map[string]interface{}:
		default:
			return fmt.Errorf("arg %q: expected list, got %T", name, v)
		}
	case "map":
		if _, ok := v.(map[string]interface{}); !ok {
			return fmt.Errorf("arg %q: expected map, got %T", name, v)
		}
	case "any", "":
	default:
		return fmt.Errorf("arg %q: unknown schema type %q", name, spec.Type)
	}
	return nil
}

// clampedArg names the args the sanitizer clamps instead of rejecting.
func clampedArg(name string) bool {
	return name == "style" || name == "dc_hint"
}

func inEnum(enum []string, v string) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

// SanitizeArgs applies defaults and the non-destructive cleanups: strings
// trimmed, domain lowercased, style clamped to [0,3], dc_hint clamped to
// [5,25]. The input map is not modified.
func SanitizeArgs(d *Descriptor, raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		out[k] = v
	}
	for name, spec := range d.Args {
		if _, present := out[name]; !present && spec.Default != nil {
			out[name] = spec.Default
		}
	}
	if s, ok := out["domain"].(string); ok {
		out["domain"] = strings.ToLower(s)
	}
	if f, ok := asFloat(out["style"]); ok {
		out["style"] = clampInt(int(f), 0, 3)
	}
	if f, ok := asFloat(out["dc_hint"]); ok {
		out["dc_hint"] = clampInt(int(f), 5, 25)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IntArg reads an integer argument with a default.
func IntArg(args map[string]interface{}, name string, def int) int {
	if f, ok := asFloat(args[name]); ok {
		return int(f)
	}
	return def
}

// StringArg reads a string argument with a default.
func StringArg(args map[string]interface{}, name, def string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return def
}

// BoolArg reads a boolean argument with a default.
func BoolArg(args map[string]interface{}, name string, def bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return def
}

// StringListArg reads an argument that is a single id or a list of ids.
func StringListArg(args map[string]interface{}, name string) []string {
	switch v := args[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
