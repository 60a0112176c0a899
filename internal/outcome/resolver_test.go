package outcome

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jacoblum22/AID-D-sub000/internal/dice"
	"github.com/jacoblum22/AID-D-sub000/internal/tools"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func testWorld(t *testing.T) *world.GameState {
	t.Helper()
	w := world.NewGameState()
	cellar := world.NewZone("cellar", "Cellar")
	w.Zones["cellar"] = cellar
	arin := world.NewActor(world.EntityPC, "pc.arin", "Arin", "cellar")
	guard := world.NewActor(world.EntityNPC, "npc.guard", "Guard", "cellar")
	w.Entities["pc.arin"] = arin
	w.Entities["npc.guard"] = guard
	return w
}

func TestSocialEffectsIntimidateSuccess(t *testing.T) {
	effs := SocialEffects("intimidate", dice.OutcomeSuccess, "pc.arin", "npc.guard")
	if len(effs) != 1 {
		t.Fatalf("effects = %+v", effs)
	}
	e := effs[0]
	if e.Type != world.EffectMark || e.Add != "fear" || e.Target != "npc.guard" {
		t.Fatalf("mark effect = %+v", e)
	}
	if !e.Consumes || e.Value != -1 {
		t.Fatalf("fear mark should be consumable with value -1, got %+v", e)
	}
	if e.Cause != "talk:intimidate" {
		t.Fatalf("cause = %s", e.Cause)
	}
}

func TestSocialEffectsClockSuffixExpansion(t *testing.T) {
	effs := SocialEffects("persuade", dice.OutcomeSuccess, "pc.arin", "npc.guard")
	var clockID string
	for _, e := range effs {
		if e.Type == world.EffectClock {
			clockID = e.ID
		}
	}
	if clockID != "trust_guard" {
		t.Fatalf("clock id = %q, want trust_guard", clockID)
	}

	// Ids without a dot expand to themselves.
	effs = SocialEffects("persuade", dice.OutcomeSuccess, "pc.arin", "stranger")
	for _, e := range effs {
		if e.Type == world.EffectClock && e.ID != "trust_stranger" {
			t.Fatalf("clock id = %q, want trust_stranger", e.ID)
		}
	}
}

func TestSocialEffectsFailRaisesGuard(t *testing.T) {
	effs := SocialEffects("persuade", dice.OutcomeFail, "pc.arin", "npc.guard")
	if len(effs) != 1 || effs[0].Type != world.EffectGuard || effs[0].Delta != 1 {
		t.Fatalf("effects = %+v", effs)
	}
}

func TestSocialEffectsUnknownIntent(t *testing.T) {
	if effs := SocialEffects("taunt", dice.OutcomeSuccess, "a", "b"); effs != nil {
		t.Fatalf("unknown intent produced %+v", effs)
	}
}

func TestResolveStealthFail(t *testing.T) {
	w := testWorld(t)
	r := NewResolver()
	res := tools.ToolResult{
		OK:     true,
		ToolID: "ask_roll",
		Args:   map[string]interface{}{},
		Facts: map[string]interface{}{
			"actor":   "pc.arin",
			"action":  "sneak",
			"outcome": "fail",
		},
		NarrationHint: tools.NewHint("the sneak attempt", nil, 0),
	}

	out := r.Resolve(res, w)
	cons, _ := out.NarrationHint["consequence"].(string)
	if cons != "pc.arin is spotted in cellar." {
		t.Fatalf("consequence = %q", cons)
	}
	if len(out.Effects) != 2 {
		t.Fatalf("effects = %+v", out.Effects)
	}
	if out.Effects[0].Type != world.EffectClock || out.Effects[0].ID != "alarm" {
		t.Fatalf("first effect = %+v", out.Effects[0])
	}
	if out.Effects[0].Cause != "consequence:stealth" {
		t.Fatalf("cause = %s", out.Effects[0].Cause)
	}
}

func TestResolveCombatSubstitution(t *testing.T) {
	w := testWorld(t)
	r := NewResolver()
	res := tools.ToolResult{
		OK:     true,
		ToolID: "attack",
		Args:   map[string]interface{}{},
		Facts: map[string]interface{}{
			"actor":   "pc.arin",
			"target":  "npc.guard",
			"outcome": "fail",
		},
		NarrationHint: tools.NewHint("the attack", nil, 0),
	}

	out := r.Resolve(res, w)
	if len(out.Effects) != 1 {
		t.Fatalf("effects = %+v", out.Effects)
	}
	if out.Effects[0].Type != world.EffectGuard || out.Effects[0].Target != "npc.guard" {
		t.Fatalf("guard effect = %+v", out.Effects[0])
	}
	cons, _ := out.NarrationHint["consequence"].(string)
	if cons != "npc.guard turns the attack aside." {
		t.Fatalf("consequence = %q", cons)
	}
}

func TestResolveOutcomeFromCheckBlock(t *testing.T) {
	w := testWorld(t)
	r := NewResolver()
	res := tools.ToolResult{
		OK:     true,
		ToolID: "attack",
		Args:   map[string]interface{}{},
		Facts: map[string]interface{}{
			"actor":  "pc.arin",
			"target": "npc.guard",
			"check":  map[string]interface{}{"outcome": "success"},
		},
		NarrationHint: tools.NewHint("the attack", nil, 0),
	}

	out := r.Resolve(res, w)
	if _, ok := out.NarrationHint["consequence"]; !ok {
		t.Fatal("outcome from nested check block not resolved")
	}
	if len(out.Effects) != 1 || out.Effects[0].Type != world.EffectNoise {
		t.Fatalf("effects = %+v", out.Effects)
	}
	if out.Effects[0].Zone != "cellar" {
		t.Fatalf("noise zone = %q, want actor zone substituted", out.Effects[0].Zone)
	}
}

func TestResolvePassthroughWithoutDomain(t *testing.T) {
	w := testWorld(t)
	r := NewResolver()
	res := tools.ToolResult{
		OK:            true,
		ToolID:        "get_info",
		Args:          map[string]interface{}{},
		Facts:         map[string]interface{}{"outcome": "success"},
		NarrationHint: tools.NewHint("info", nil, 0),
	}

	out := r.Resolve(res, w)
	if _, ok := out.NarrationHint["consequence"]; ok {
		t.Fatal("get_info should not pick up consequences")
	}
	if len(out.Effects) != 0 {
		t.Fatalf("effects = %+v", out.Effects)
	}
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	content := `consequences:
  stealth:
    fail:
      consequence: "{actor} trips a wire in {zone}."
      effects:
        - type: clock
          id: alarm
          delta: 2
  weather:
    fail:
      consequence: "ignored domain"
`
	if err := os.WriteFile(filepath.Join(dir, "table.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver()
	n, err := r.LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("merged = %d, want 1 (unknown domain skipped)", n)
	}

	w := testWorld(t)
	res := tools.ToolResult{
		OK:     true,
		ToolID: "ask_roll",
		Args:   map[string]interface{}{},
		Facts: map[string]interface{}{
			"actor":   "pc.arin",
			"action":  "sneak",
			"outcome": "fail",
		},
		NarrationHint: tools.NewHint("the sneak attempt", nil, 0),
	}
	out := r.Resolve(res, w)
	cons, _ := out.NarrationHint["consequence"].(string)
	if cons != "pc.arin trips a wire in cellar." {
		t.Fatalf("consequence = %q", cons)
	}
	if len(out.Effects) != 1 || out.Effects[0].Delta != 2 {
		t.Fatalf("effects = %+v", out.Effects)
	}
}

func TestLoadDirMissingIsNotError(t *testing.T) {
	r := NewResolver()
	n, err := r.LoadDir("/nonexistent/consequences")
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
