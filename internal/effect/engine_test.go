package effect

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jacoblum22/AID-D-sub000/internal/events"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func testWorld(t *testing.T) *world.GameState {
	t.Helper()
	w := world.NewGameState()

	cellar := world.NewZone("cellar", "Cellar")
	hall := world.NewZone("hall", "Hall")
	cellar.Exits = []world.Exit{{To: "hall", Cost: 1}}
	hall.Exits = []world.Exit{{To: "cellar", Cost: 1}}
	w.AddZone(cellar)
	w.AddZone(hall)

	pc := world.NewActor(world.EntityPC, "pc.arin", "Arin", "cellar")
	pc.HP = &world.HP{Current: 18, Max: 20}
	guard := world.NewActor(world.EntityNPC, "npc.guard", "Guard", "hall")
	guard.HP = &world.HP{Current: 10, Max: 10}
	guard.Guard = 2
	w.AddEntity(pc)
	w.AddEntity(guard)

	w.Scene.Round = 3
	return w
}

func TestApplyHPClampAndLog(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5},
	}, "pc.arin", true, ModeStrict, 42)

	if !res.OK || res.Applied != 1 {
		t.Fatalf("res = %+v", res)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 13 {
		t.Fatalf("hp = %d, want 13", pc.HP.Current)
	}
	if !strings.Contains(res.Summary, "[Round 3] [pc.arin]") {
		t.Fatalf("summary %q missing round/actor prefix", res.Summary)
	}
	if !strings.Contains(res.Summary, "pc.arin.hp: 18 -> 13") {
		t.Fatalf("summary %q missing hp diff", res.Summary)
	}
	if w.Scene.LastDiffSummary != res.Summary {
		t.Fatal("scene diff summary not updated")
	}
}

func TestApplyHPNeverBelowZeroOrAboveMax(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	e.Apply(w, []world.Effect{{Type: world.EffectHP, Target: "npc.guard", Delta: -99}}, "pc.arin", true, ModeStrict, 1)
	guard, _ := w.Entity("npc.guard")
	if guard.HP.Current != 0 {
		t.Fatalf("hp = %d, want clamp at 0", guard.HP.Current)
	}

	e.Apply(w, []world.Effect{{Type: world.EffectHP, Target: "npc.guard", Delta: 99}}, "pc.arin", true, ModeStrict, 2)
	guard, _ = w.Entity("npc.guard")
	if guard.HP.Current != guard.HP.Max {
		t.Fatalf("hp = %d, want clamp at max %d", guard.HP.Current, guard.HP.Max)
	}
}

func TestApplyDiceDelta(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: "-2d4"},
	}, "pc.arin", true, ModeStrict, 7)
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}
	var rolled []int
	for _, l := range res.Logs {
		if l.Status == world.LogApplied {
			rolled = l.Rolled
		}
	}
	if len(rolled) != 2 {
		t.Fatalf("rolled = %v, want 2 dice", rolled)
	}
	pc, _ := w.Entity("pc.arin")
	want := 18 - (rolled[0] + rolled[1])
	if pc.HP.Current != want {
		t.Fatalf("hp = %d, want %d from rolls %v", pc.HP.Current, want, rolled)
	}
}

func TestStrictRollbackLeavesWorldUntouched(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)
	before := w.Clone()

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5},
		{Type: world.EffectInventory, Target: "pc.arin", ID: "ghost_item", Delta: -1},
	}, "pc.arin", true, ModeStrict, 9)

	if res.OK {
		t.Fatal("batch with failing inventory removal must fail in strict mode")
	}
	pc, _ := w.Entity("pc.arin")
	pcBefore, _ := before.Entity("pc.arin")
	if diff := cmp.Diff(pcBefore, pc, cmpopts.IgnoreUnexported(world.Entity{}), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("world mutated despite rollback (-before +after):\n%s", diff)
	}
}

func TestStrictRollbackRestoresDiscoveryState(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectPosition, Target: "pc.arin", To: "hall"},
		{Type: world.EffectInventory, Target: "pc.arin", ID: "ghost_item", Delta: -1},
	}, "pc.arin", true, ModeStrict, 9)
	if res.OK {
		t.Fatal("batch with failing inventory removal must fail in strict mode")
	}

	pc, _ := w.Entity("pc.arin")
	if pc.CurrentZone != "cellar" {
		t.Fatalf("zone = %s, want cellar restored", pc.CurrentZone)
	}
	guard, _ := w.Entity("npc.guard")
	if guard.Meta.Knows("pc.arin") {
		t.Fatal("guard known_by survived rollback")
	}
	if containsString(guard.VisibleActors, "pc.arin") {
		t.Fatal("guard visible_actors survived rollback")
	}
	hall, _ := w.Zone("hall")
	cellar, _ := w.Zone("cellar")
	if hall.DiscoveredBy["pc.arin"] {
		t.Fatal("destination discovery survived rollback")
	}
	if cellar.DiscoveredBy["pc.arin"] {
		t.Fatal("adjacent-zone reveal survived rollback")
	}
}

func TestMarkOnLoadedEntity(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	// Save files omit empty mark maps; a decoded entity must still take
	// marks without blowing up.
	var scout world.Entity
	body := `{"id": "npc.scout", "type": "npc", "name": "Scout", "current_zone": "hall",
		"hp": {"current": 8, "max": 8}, "meta": {"visibility": "public"}}`
	if err := json.Unmarshal([]byte(body), &scout); err != nil {
		t.Fatal(err)
	}
	w.AddEntity(&scout)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectMark, Target: "npc.scout", Add: "fear", Source: "pc.arin", Value: -1},
	}, "pc.arin", true, ModeStrict, 4)
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}
	got, _ := w.Entity("npc.scout")
	if _, ok := got.Marks[world.MarkKey("pc.arin", "fear")]; !ok {
		t.Fatalf("mark missing: %v", got.Marks)
	}
}

func TestPartialModeContinuesPastFailure(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectInventory, Target: "pc.arin", ID: "ghost_item", Delta: -1},
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5},
	}, "pc.arin", true, ModePartial, 9)

	if !res.OK {
		t.Fatalf("partial mode should report ok, got %+v", res)
	}
	if res.Failed != 1 || res.Applied < 1 {
		t.Fatalf("failed=%d applied=%d", res.Failed, res.Applied)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 13 {
		t.Fatalf("second effect should have applied, hp = %d", pc.HP.Current)
	}
}

func TestStrictValidationAbortsBeforeMutation(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5},
		{Type: world.EffectHP, Target: "npc.ghost", Delta: -5},
	}, "pc.arin", true, ModeStrict, 3)

	if res.OK {
		t.Fatal("unknown target must fail strict validation")
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 18 {
		t.Fatalf("no mutation should have happened, hp = %d", pc.HP.Current)
	}
}

func TestUnknownEffectTypeSkippedOK(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: "weather", Target: "pc.arin"},
		{Type: world.EffectHP, Target: "pc.arin", Delta: -1},
	}, "pc.arin", true, ModeStrict, 3)

	if !res.OK {
		t.Fatalf("unknown types must not break transactions: %+v", res)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 17 {
		t.Fatalf("hp = %d, want 17", pc.HP.Current)
	}
}

func TestConditionGate(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5, Condition: "target.hp.current > 20"},
	}, "pc.arin", true, ModeStrict, 3)

	if !res.OK || res.Skipped != 1 {
		t.Fatalf("res = %+v, want one condition skip", res)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 18 {
		t.Fatal("condition false must not apply")
	}

	res = e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5, Condition: "target.hp.current > 10"},
	}, "pc.arin", true, ModeStrict, 3)
	pc, _ = w.Entity("pc.arin")
	if pc.HP.Current != 13 {
		t.Fatalf("condition true must apply, hp = %d", pc.HP.Current)
	}
	_ = res
}

func TestUnsafeConditionTreatedAsFalse(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -5, Condition: "exec('rm -rf')"},
	}, "pc.arin", true, ModeStrict, 3)
	if !res.OK || res.Skipped != 1 {
		t.Fatalf("unsafe condition must skip, got %+v", res)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 18 {
		t.Fatal("unsafe condition must not apply the effect")
	}
}

func TestTimedEffectSchedulesAndDrains(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "pc.arin", Delta: -2, AfterRounds: 2},
	}, "pc.arin", true, ModeStrict, 11)
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}
	if len(w.Scene.PendingEffects) != 1 {
		t.Fatalf("pending = %d, want 1", len(w.Scene.PendingEffects))
	}
	pe := w.Scene.PendingEffects[0]
	if pe.TriggerRound != 5 || pe.ID != "timed_11_0" {
		t.Fatalf("pending = %+v", pe)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.HP.Current != 18 {
		t.Fatal("timed effect must not apply immediately")
	}

	// Not yet due.
	w.Scene.Round = 4
	e.Apply(w, nil, "pc.arin", true, ModeStrict, 12)
	if len(w.Scene.PendingEffects) != 1 {
		t.Fatal("effect drained early")
	}

	// Due now.
	w.Scene.Round = 5
	e.Apply(w, nil, "pc.arin", true, ModeStrict, 13)
	if len(w.Scene.PendingEffects) != 0 {
		t.Fatal("due effect not drained")
	}
	pc, _ = w.Entity("pc.arin")
	if pc.HP.Current != 16 {
		t.Fatalf("hp = %d, want 16 after drain", pc.HP.Current)
	}
}

func TestTimedEffectFailureAtTriggerRollsBack(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectInventory, Target: "pc.arin", ID: "torch", Delta: -1, AfterRounds: 1},
	}, "pc.arin", true, ModeStrict, 21)
	if !res.OK || len(w.Scene.PendingEffects) != 1 {
		t.Fatalf("res = %+v, pending = %d", res, len(w.Scene.PendingEffects))
	}

	// No torch at trigger time: the drain must fail the effect, remove it
	// from the queue, and leave the world untouched.
	w.Scene.Round = 4
	res = e.Apply(w, nil, "pc.arin", true, ModeStrict, 22)
	if len(w.Scene.PendingEffects) != 0 {
		t.Fatal("failed timed effect left in the queue")
	}
	failed := false
	for _, l := range res.Logs {
		if l.Status == world.LogFailed && l.EffectType == world.EffectInventory {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("no failed entry in drain logs: %+v", res.Logs)
	}
	pc, _ := w.Entity("pc.arin")
	if pc.CountItem("torch") != 0 || pc.HP.Current != 18 {
		t.Fatal("drain failure mutated the world")
	}
}

func TestReactiveUnconsciousAndBloodied(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "npc.guard", Delta: -8},
	}, "pc.arin", true, ModeStrict, 5)
	guard, _ := w.Entity("npc.guard")
	if guard.HP.Current != 2 {
		t.Fatalf("hp = %d", guard.HP.Current)
	}
	if v, ok := guard.Tags["bloodied"]; !ok || v != true {
		t.Fatalf("bloodied tag missing: %v", guard.Tags)
	}
	if _, ok := guard.Tags["unconscious"]; ok {
		t.Fatal("unconscious should not fire at hp 2")
	}

	e.Apply(w, []world.Effect{
		{Type: world.EffectHP, Target: "npc.guard", Delta: -2},
	}, "pc.arin", true, ModeStrict, 6)
	guard, _ = w.Entity("npc.guard")
	if _, ok := guard.Tags["unconscious"]; !ok {
		t.Fatalf("unconscious tag missing at hp 0: %v", guard.Tags)
	}
}

func TestReactiveFearLowersGuard(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	e.Apply(w, []world.Effect{
		{Type: world.EffectMark, Target: "npc.guard", Add: "fear", Source: "pc.arin", Value: -1},
	}, "pc.arin", true, ModeStrict, 5)

	guard, _ := w.Entity("npc.guard")
	if guard.Guard != 1 {
		t.Fatalf("guard = %d, want 2-1", guard.Guard)
	}
	if _, ok := guard.Marks["pc.arin.fear"]; !ok {
		t.Fatalf("mark missing: %v", guard.Marks)
	}

	e.Apply(w, []world.Effect{
		{Type: world.EffectMark, Target: "npc.guard", Add: "confidence", Source: "npc.guard"},
	}, "npc.guard", true, ModeStrict, 6)
	guard, _ = w.Entity("npc.guard")
	if guard.Guard != 2 {
		t.Fatalf("guard = %d, want back to 2", guard.Guard)
	}
}

func TestGuardFloorsAtZero(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)
	e.Apply(w, []world.Effect{
		{Type: world.EffectGuard, Target: "npc.guard", Delta: -10},
	}, "pc.arin", true, ModeStrict, 5)
	guard, _ := w.Entity("npc.guard")
	if guard.Guard != 0 {
		t.Fatalf("guard = %d, want floor 0", guard.Guard)
	}
}

func TestClockAutovivifyAndClamp(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	e.Apply(w, []world.Effect{
		{Type: world.EffectClock, ID: "alarm", Delta: 3},
	}, "pc.arin", true, ModeStrict, 5)
	c, ok := w.Clock("alarm")
	if !ok {
		t.Fatal("clock not autovivified")
	}
	if c.Value != 3 || c.Minimum != 0 || c.Maximum != 10 {
		t.Fatalf("clock = %+v", c)
	}

	e.Apply(w, []world.Effect{
		{Type: world.EffectClock, ID: "alarm", Delta: 20},
	}, "pc.arin", true, ModeStrict, 6)
	c, _ = w.Clock("alarm")
	if c.Value != 10 || !c.FilledThisTurn {
		t.Fatalf("clock = %+v, want filled at 10", c)
	}
}

func TestSceneTagCoercion(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	e.Apply(w, []world.Effect{
		{Type: world.EffectTag, Target: "scene", Add: map[string]interface{}{"noise": "loud", "level": 2}},
	}, "pc.arin", true, ModeStrict, 5)
	if w.Scene.Tags["noise"] != "loud" || w.Scene.Tags["level"] != "2" {
		t.Fatalf("tags = %v", w.Scene.Tags)
	}

	e.Apply(w, []world.Effect{
		{Type: world.EffectTag, Target: "scene", Remove: "level"},
	}, "pc.arin", true, ModeStrict, 6)
	if _, ok := w.Scene.Tags["level"]; ok {
		t.Fatal("tag not removed")
	}
}

func TestPositionMutualDiscovery(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	var entered, discovered int
	w.Bus().Subscribe(events.TopicZoneEntered, func(tp events.Topic, p events.Payload) { entered++ })
	w.Bus().Subscribe(events.TopicEntityDiscovered, func(tp events.Topic, p events.Payload) { discovered++ })

	res := e.Apply(w, []world.Effect{
		{Type: world.EffectPosition, Target: "pc.arin", To: "hall"},
	}, "pc.arin", true, ModeStrict, 5)
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}

	pc, _ := w.Entity("pc.arin")
	guard, _ := w.Entity("npc.guard")
	if pc.CurrentZone != "hall" {
		t.Fatalf("zone = %s", pc.CurrentZone)
	}
	if !containsString(pc.VisibleActors, "npc.guard") || !containsString(guard.VisibleActors, "pc.arin") {
		t.Fatalf("mutual visibility missing: %v / %v", pc.VisibleActors, guard.VisibleActors)
	}
	if !pc.Meta.Knows("npc.guard") || !guard.Meta.Knows("pc.arin") {
		t.Fatal("mutual known_by missing")
	}
	if entered != 1 || discovered != 1 {
		t.Fatalf("events entered=%d discovered=%d", entered, discovered)
	}

	// Auto-reveal: the hall's exits lead back to the cellar.
	cellar, _ := w.Zone("cellar")
	if !cellar.DiscoveredBy["pc.arin"] {
		t.Fatal("adjacent zone not revealed")
	}
}

func TestInventoryMultiset(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)

	e.Apply(w, []world.Effect{
		{Type: world.EffectInventory, Target: "pc.arin", ID: "torch", Delta: 2},
	}, "pc.arin", true, ModeStrict, 5)
	pc, _ := w.Entity("pc.arin")
	if pc.CountItem("torch") != 2 {
		t.Fatalf("count = %d", pc.CountItem("torch"))
	}

	e.Apply(w, []world.Effect{
		{Type: world.EffectInventory, Target: "pc.arin", ID: "torch", Delta: -1},
	}, "pc.arin", true, ModeStrict, 6)
	pc, _ = w.Entity("pc.arin")
	if pc.CountItem("torch") != 1 {
		t.Fatalf("count = %d after removal", pc.CountItem("torch"))
	}
}

func TestResourceStoredAsTag(t *testing.T) {
	e := NewEngine()
	w := testWorld(t)
	e.Apply(w, []world.Effect{
		{Type: world.EffectResource, Target: "pc.arin", ID: "mana", Delta: 4},
	}, "pc.arin", true, ModeStrict, 5)
	pc, _ := w.Entity("pc.arin")
	if pc.Tags["resource_mana"] != 4 {
		t.Fatalf("tags = %v", pc.Tags)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeStrict {
		t.Fatalf("empty mode: %v %v", m, err)
	}
	if _, err := ParseMode("yolo"); err == nil {
		t.Fatal("bad mode accepted")
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
