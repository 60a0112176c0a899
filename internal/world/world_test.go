package world

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMetaCoherence(t *testing.T) {
	m := NewMeta(VisibilityGMOnly)
	if !m.GMOnly {
		t.Fatal("gm_only visibility should set the flag")
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}

	m = NewMeta(VisibilityPublic)
	m.GMOnly = true
	if err := m.Validate(); err == nil {
		t.Fatal("incoherent gm_only flag should fail validation")
	}

	m = NewMeta(Visibility("secret"))
	if err := m.Validate(); err == nil {
		t.Fatal("unknown visibility should fail validation")
	}
}

func TestMetaUnmarshalAutoCorrects(t *testing.T) {
	var m Meta
	body := `{"visibility": "gm_only", "gm_only": false, "known_by": ["pc.arin", "npc.guard"]}`
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatal(err)
	}
	if !m.GMOnly {
		t.Fatal("gm_only should be derived from visibility on load")
	}
	if !m.Knows("pc.arin") || !m.Knows("npc.guard") {
		t.Fatalf("known_by list form not decoded: %v", m.KnownBy)
	}

	var set Meta
	body = `{"known_by": {"pc.arin": true}}`
	if err := json.Unmarshal([]byte(body), &set); err != nil {
		t.Fatal(err)
	}
	if set.Visibility != VisibilityPublic {
		t.Fatalf("missing visibility should default to public, got %s", set.Visibility)
	}
	if !set.Knows("pc.arin") {
		t.Fatal("known_by set form not decoded")
	}

	var bad Meta
	if err := json.Unmarshal([]byte(`{"known_by": 7}`), &bad); err == nil {
		t.Fatal("scalar known_by should be rejected")
	}
}

func TestMetaAddKnownBy(t *testing.T) {
	m := NewMeta(VisibilityHidden)
	before := m.LastChangedAt
	if !m.AddKnownBy("pc.arin") {
		t.Fatal("first add should report new")
	}
	if m.AddKnownBy("pc.arin") {
		t.Fatal("second add should be a no-op")
	}
	if m.LastChangedAt.Before(before) {
		t.Fatal("AddKnownBy should touch the meta")
	}
}

func TestClockAdvanceFillSemantics(t *testing.T) {
	c := NewClock("clock.alarm", "Alarm", 0, 4)

	c.Advance(2, 1, "npc.guard")
	if c.Value != 2 || c.FilledThisTurn {
		t.Fatalf("value = %d, filled = %v", c.Value, c.FilledThisTurn)
	}

	c.Advance(5, 2, "pc.arin")
	if c.Value != 4 {
		t.Fatalf("value should clamp to max, got %d", c.Value)
	}
	if !c.FilledThisTurn || c.FilledBy != "pc.arin" {
		t.Fatalf("crossing the max should fire: filled=%v by=%q", c.FilledThisTurn, c.FilledBy)
	}

	// Staying filled does not re-fire.
	c.FilledThisTurn = false
	c.Advance(1, 3, "npc.guard")
	if c.FilledThisTurn {
		t.Fatal("already-filled clock re-fired")
	}

	c.Advance(-10, 4, "npc.guard")
	if c.Value != 0 {
		t.Fatalf("value should clamp to min, got %d", c.Value)
	}
	if c.LastModifiedRound != 4 || c.LastModifiedBy != "npc.guard" {
		t.Fatalf("audit fields not updated: %d %q", c.LastModifiedRound, c.LastModifiedBy)
	}
}

func TestClockValidateBounds(t *testing.T) {
	c := NewClock("clock.alarm", "Alarm", 0, 4)
	c.Value = 9
	if err := c.Validate(); err == nil {
		t.Fatal("out-of-range value should fail validation")
	}
	c = NewClock("clock.bad", "Bad", 5, 2)
	if err := c.Validate(); err == nil {
		t.Fatal("min > max should fail validation")
	}
}

func TestEntityCloneIndependence(t *testing.T) {
	e := NewActor(EntityPC, "pc.arin", "Arin", "courtyard")
	e.Inventory = []string{"rope", "rope"}
	e.Conditions["hidden"] = true
	e.Marks[MarkKey("npc.guard", "hunter")] = Mark{Tag: "hunter", Source: "npc.guard", Value: 2}
	e.Tags["faction"] = "rebels"

	c := e.Clone()
	c.HP.Current = 1
	c.Stats.Strength = 99
	c.Inventory[0] = "lantern"
	c.Conditions["hidden"] = false
	c.Marks[MarkKey("npc.guard", "hunter")] = Mark{Tag: "hunter", Value: 5}
	c.Tags["faction"] = "crown"
	c.Meta.AddKnownBy("npc.guard")

	if e.HP.Current != 10 || e.Stats.Strength == 99 {
		t.Fatal("clone shares living field pointers")
	}
	if e.Inventory[0] != "rope" {
		t.Fatal("clone shares inventory backing array")
	}
	if !e.Conditions["hidden"] {
		t.Fatal("clone shares conditions map")
	}
	if e.Marks[MarkKey("npc.guard", "hunter")].Value != 2 {
		t.Fatal("clone shares marks map")
	}
	if e.Tags["faction"] != "rebels" {
		t.Fatal("clone shares tags map")
	}
	if e.Meta.Knows("npc.guard") {
		t.Fatal("clone shares meta")
	}
}

func TestEntityValidate(t *testing.T) {
	e := NewActor(EntityNPC, "npc.guard", "Guard", "hall")
	if err := e.Validate(); err != nil {
		t.Fatal(err)
	}

	e.HP.Current = -1
	if err := e.Validate(); err == nil {
		t.Fatal("negative hp should fail validation")
	}
	e.HP.Current = 5
	e.Guard = -1
	if err := e.Validate(); err == nil {
		t.Fatal("negative guard should fail validation")
	}
	e.Guard = 0
	e.Type = EntityType("ghost")
	if err := e.Validate(); err == nil {
		t.Fatal("unknown entity type should fail validation")
	}
}

func TestSceneValidateChoiceCap(t *testing.T) {
	s := NewScene("keep", []string{"pc.arin", "npc.guard"})
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	s.ChoiceCountThisTurn = MaxChoicesPerTurn + 1
	if err := s.Validate(); err == nil {
		t.Fatal("choice count above cap should fail validation")
	}
	s.ChoiceCountThisTurn = 0
	s.Round = 0
	if err := s.Validate(); err == nil {
		t.Fatal("round below 1 should fail validation")
	}
}

func TestSceneCurrentActorAndAlert(t *testing.T) {
	s := NewScene("keep", []string{"pc.arin", "npc.guard"})
	if s.CurrentActor() != "pc.arin" {
		t.Fatalf("actor = %q", s.CurrentActor())
	}
	s.TurnIndex = 1
	if s.CurrentActor() != "npc.guard" {
		t.Fatalf("actor = %q", s.CurrentActor())
	}
	s.TurnIndex = 99
	if s.CurrentActor() != "pc.arin" {
		t.Fatal("out-of-range index should fall back to the first actor")
	}

	if s.AlertLevel() != 1 {
		t.Fatalf("default alert = %d, want 1", s.AlertLevel())
	}
	s.Tags[SceneTagAlert] = "alarmed"
	if s.AlertLevel() != 3 {
		t.Fatalf("alarmed alert = %d, want 3", s.AlertLevel())
	}
}

func TestGameStateValidateReferences(t *testing.T) {
	w := NewGameState()
	hall := NewZone("hall", "Hall")
	hall.Exits = append(hall.Exits, Exit{To: "cellar", Direction: DirDown})
	w.AddZone(hall)
	w.AddEntity(NewActor(EntityPC, "pc.arin", "Arin", "nowhere"))
	w.Scene = NewScene("keep", []string{"pc.arin"})

	errs := w.Validate()
	var badZone, badExit bool
	for _, err := range errs {
		if strings.Contains(err.Error(), "current_zone") {
			badZone = true
		}
		if strings.Contains(err.Error(), "exit target") {
			badExit = true
		}
	}
	if !badZone || !badExit {
		t.Fatalf("expected dangling-reference violations, got %v", errs)
	}

	w.AddZone(NewZone("cellar", "Cellar"))
	w.Entities["pc.arin"].CurrentZone = "hall"
	if errs := w.Validate(); len(errs) != 0 {
		t.Fatalf("repaired world should validate cleanly, got %v", errs)
	}
}

func TestGameStateCloneIsolation(t *testing.T) {
	w := NewGameState()
	w.AddZone(NewZone("hall", "Hall"))
	w.AddEntity(NewActor(EntityPC, "pc.arin", "Arin", "hall"))
	w.AddClock(NewClock("clock.alarm", "Alarm", 0, 4))
	w.Scene = NewScene("keep", []string{"pc.arin"})
	w.CurrentActor = "pc.arin"

	c := w.Clone()
	c.Entities["pc.arin"].HP.Current = 2
	c.Clocks["clock.alarm"].Advance(3, 1, "pc.arin")
	c.Scene.Round = 9
	c.Zones["hall"].Tags["dark"] = true

	if w.Entities["pc.arin"].HP.Current != 10 {
		t.Fatal("clone shares entities")
	}
	if w.Clocks["clock.alarm"].Value != 0 {
		t.Fatal("clone shares clocks")
	}
	if w.Scene.Round != 1 {
		t.Fatal("clone shares the scene")
	}
	if w.Zones["hall"].Tags["dark"] {
		t.Fatal("clone shares zones")
	}
	if w.Bus() == c.Bus() {
		t.Fatal("clone shares the event bus")
	}
}

func TestEntitiesInZoneSorted(t *testing.T) {
	w := NewGameState()
	w.AddZone(NewZone("hall", "Hall"))
	for _, id := range []string{"npc.zed", "pc.arin", "npc.guard"} {
		w.AddEntity(NewActor(EntityNPC, id, id, "hall"))
	}
	w.AddEntity(NewActor(EntityNPC, "npc.far", "Far", "elsewhere"))

	got := w.EntitiesInZone("hall")
	want := []string{"npc.guard", "npc.zed", "pc.arin"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEffectiveActorFallback(t *testing.T) {
	w := NewGameState()
	w.Scene = NewScene("keep", []string{"npc.guard"})
	if got := w.EffectiveActor("pc.arin"); got != "pc.arin" {
		t.Fatalf("explicit actor lost: %q", got)
	}
	if got := w.EffectiveActor(""); got != "npc.guard" {
		t.Fatalf("scene fallback = %q", got)
	}
	w.CurrentActor = "pc.arin"
	if got := w.EffectiveActor(""); got != "pc.arin" {
		t.Fatalf("current-actor fallback = %q", got)
	}
}

func TestRedactionCacheInvalidation(t *testing.T) {
	w := NewGameState()
	w.StoreView("pc.arin", "npc.guard", map[string]interface{}{"hp": "wounded"})
	w.StoreView("pc.arin", "npc.zed", map[string]interface{}{"hp": "fresh"})

	if _, ok := w.CachedView("pc.arin", "npc.guard"); !ok {
		t.Fatal("stored view not retrievable")
	}
	w.InvalidateEntityCache("npc.guard")
	if _, ok := w.CachedView("pc.arin", "npc.guard"); ok {
		t.Fatal("invalidated view still cached")
	}
	if _, ok := w.CachedView("pc.arin", "npc.zed"); !ok {
		t.Fatal("unrelated view dropped")
	}
	w.InvalidateAllCache()
	if _, ok := w.CachedView("pc.arin", "npc.zed"); ok {
		t.Fatal("full invalidation left an entry behind")
	}
}
