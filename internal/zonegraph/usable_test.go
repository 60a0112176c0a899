package zonegraph

import (
	"strings"
	"testing"

	"github.com/jacoblum22/AID-D-sub000/internal/events"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func lockedWorld(t *testing.T) (*world.GameState, *world.Entity) {
	t.Helper()
	w := buildWorld(t)
	actor := world.NewActor(world.EntityPC, "pc.arin", "Arin", "hall")
	w.AddEntity(actor)
	return w, actor
}

func TestIsExitUsableBlockedWinsFirst(t *testing.T) {
	w, actor := lockedWorld(t)
	x := &world.Exit{
		To:      "vault",
		Blocked: true,
		Conditions: map[string]interface{}{
			world.CondKeyRequired: "iron_key",
		},
	}
	ok, reason := IsExitUsable(x, actor, w)
	if ok {
		t.Fatal("blocked exit should not be usable")
	}
	if !strings.Contains(reason, "blocked") {
		t.Fatalf("blocked must be reported before key check, got %q", reason)
	}
}

func TestIsExitUsableKeyRequired(t *testing.T) {
	w, actor := lockedWorld(t)
	x := &world.Exit{To: "vault", Conditions: map[string]interface{}{
		world.CondKeyRequired: "iron_key",
	}}
	if ok, _ := IsExitUsable(x, actor, w); ok {
		t.Fatal("actor without key should be refused")
	}
	actor.Inventory = append(actor.Inventory, "iron_key")
	if ok, reason := IsExitUsable(x, actor, w); !ok {
		t.Fatalf("actor with key refused: %s", reason)
	}
}

func TestIsExitUsableLevelRequired(t *testing.T) {
	w, actor := lockedWorld(t)
	x := &world.Exit{To: "vault", Conditions: map[string]interface{}{
		world.CondLevelRequired: 3,
	}}
	if ok, _ := IsExitUsable(x, actor, w); ok {
		t.Fatal("default level 1 should fail level_required 3")
	}
	actor.Tags["level"] = 5
	if ok, reason := IsExitUsable(x, actor, w); !ok {
		t.Fatalf("level 5 refused: %s", reason)
	}
}

func TestIsExitUsableTagRequired(t *testing.T) {
	w, actor := lockedWorld(t)
	x := &world.Exit{To: "vault", Conditions: map[string]interface{}{
		world.CondTagRequired: "guild_member",
	}}
	if ok, _ := IsExitUsable(x, actor, w); ok {
		t.Fatal("missing tag should be refused")
	}
	actor.Tags["guild_member"] = false
	if ok, _ := IsExitUsable(x, actor, w); ok {
		t.Fatal("explicitly false tag should be refused")
	}
	actor.Tags["guild_member"] = true
	if ok, reason := IsExitUsable(x, actor, w); !ok {
		t.Fatalf("tagged actor refused: %s", reason)
	}
}

func TestIsExitUsableStatCheckReserved(t *testing.T) {
	w, actor := lockedWorld(t)
	x := &world.Exit{To: "vault", Conditions: map[string]interface{}{
		world.CondStatCheck: map[string]interface{}{"stat": "str", "dc": 15},
	}}
	ok, reason := IsExitUsable(x, actor, w)
	if ok {
		t.Fatal("stat_check is reserved and must fail")
	}
	if reason == "" {
		t.Fatal("reserved failure must carry a reason")
	}
}

func TestRevealAdjacentZones(t *testing.T) {
	w, actor := lockedWorld(t)
	secret := world.NewZone("crypt", "Crypt")
	secret.Meta = world.NewMeta(world.VisibilityGMOnly)
	w.AddZone(secret)
	hall, _ := w.Zone("hall")
	hall.Exits = append(hall.Exits, world.Exit{To: "crypt", Cost: 1})

	var published int
	w.Bus().Subscribe(events.TopicZoneEntitiesDiscovered, func(topic events.Topic, p events.Payload) {
		published++
	})

	revealed := RevealAdjacentZones(w, actor.ID, "hall")
	want := map[string]bool{"courtyard": true, "vault": true}
	for _, id := range revealed {
		if !want[id] {
			t.Errorf("unexpected reveal %q", id)
		}
		delete(want, id)
	}
	if len(want) != 0 {
		t.Errorf("unrevealed zones: %v", want)
	}
	if published != 1 {
		t.Errorf("published = %d, want 1", published)
	}

	// gm_only crypt stays hidden.
	crypt, _ := w.Zone("crypt")
	if crypt.DiscoveredBy[actor.ID] {
		t.Fatal("gm_only zone must not be revealed")
	}

	// Second reveal is a no-op.
	if again := RevealAdjacentZones(w, actor.ID, "hall"); len(again) != 0 {
		t.Fatalf("second reveal should be empty, got %v", again)
	}
}

func TestDiscoveryMap(t *testing.T) {
	w, actor := lockedWorld(t)
	secret := world.NewZone("crypt", "Crypt")
	secret.Meta = world.NewMeta(world.VisibilityGMOnly)
	w.AddZone(secret)

	hall, _ := w.Zone("hall")
	hall.DiscoveredBy = map[string]bool{actor.ID: true}

	m := DiscoveryMap(w, actor.ID)
	if m["hall"] != StatusDiscovered {
		t.Errorf("hall = %s, want discovered", m["hall"])
	}
	if m["crypt"] != StatusHidden {
		t.Errorf("crypt = %s, want hidden", m["crypt"])
	}
	if m["vault"] != StatusUndiscovered {
		t.Errorf("vault = %s, want undiscovered", m["vault"])
	}
}

func TestTopologyMutationsPublish(t *testing.T) {
	w, _ := lockedWorld(t)
	var topics []events.Topic
	for _, topic := range []events.Topic{
		events.TopicExitBlocked, events.TopicExitUnblocked,
		events.TopicExitCreated, events.TopicExitDestroyed,
		events.TopicExitConditionsChanged,
	} {
		w.Bus().Subscribe(topic, func(tp events.Topic, p events.Payload) {
			topics = append(topics, tp)
		})
	}

	if err := BlockExit(w, "hall", "vault", MutateOpts{Cause: "cave_in"}); err != nil {
		t.Fatal(err)
	}
	if err := UnblockExit(w, "hall", "vault", MutateOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := CreateExit(w, "vault", world.Exit{To: "garden", Cost: 1}, MutateOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := SetExitConditions(w, "vault", "garden", map[string]interface{}{
		world.CondKeyRequired: "brass_key",
	}, MutateOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := DestroyExit(w, "vault", "garden", MutateOpts{}); err != nil {
		t.Fatal(err)
	}

	want := []events.Topic{
		events.TopicExitBlocked, events.TopicExitUnblocked,
		events.TopicExitCreated, events.TopicExitConditionsChanged,
		events.TopicExitDestroyed,
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("topics[%d] = %s, want %s", i, topics[i], want[i])
		}
	}
}

func TestTopologyMutationSilent(t *testing.T) {
	w, _ := lockedWorld(t)
	fired := false
	w.Bus().Subscribe(events.TopicExitBlocked, func(tp events.Topic, p events.Payload) {
		fired = true
	})
	if err := BlockExit(w, "hall", "vault", MutateOpts{Silent: true}); err != nil {
		t.Fatal(err)
	}
	if fired {
		t.Fatal("silent mutation must not publish")
	}
}

func TestSetExitConditionsRejectsUnknownKey(t *testing.T) {
	w, _ := lockedWorld(t)
	err := SetExitConditions(w, "hall", "vault", map[string]interface{}{
		"vibes_required": "good",
	}, MutateOpts{})
	if err == nil {
		t.Fatal("expected rejection of unrecognized condition key")
	}
}
