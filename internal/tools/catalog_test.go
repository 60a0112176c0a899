package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func testWorld(t *testing.T) *world.GameState {
	t.Helper()
	w := world.NewGameState()

	courtyard := world.NewZone("courtyard", "Courtyard")
	hall := world.NewZone("hall", "Great Hall")
	courtyard.Exits = []world.Exit{{To: "hall", Direction: world.DirNorth, Cost: 1}}
	hall.Exits = []world.Exit{{To: "courtyard", Direction: world.DirSouth, Cost: 1}}
	w.AddZone(courtyard)
	w.AddZone(hall)

	pc := world.NewActor(world.EntityPC, "pc.arin", "Arin", "courtyard")
	pc.HasWeapon = true
	pc.Inventory = []string{"torch", "healing_potion"}
	guard := world.NewActor(world.EntityNPC, "npc.guard", "Guard", "courtyard")
	pc.VisibleActors = []string{"npc.guard"}
	w.AddEntity(pc)
	w.AddEntity(guard)

	w.CurrentActor = "pc.arin"
	w.Scene.TurnOrder = []string{"pc.arin", "npc.guard"}
	return w
}

func TestDefaultCatalogHasNineTools(t *testing.T) {
	c := DefaultCatalog()
	require.Len(t, c.IDs(), 9)
	for _, id := range []string{
		ToolAskRoll, ToolMove, ToolAttack, ToolTalk, ToolUseItem,
		ToolGetInfo, ToolNarrateOnly, ToolApplyEffects, ToolAskClarifying,
	} {
		_, ok := c.Get(id)
		assert.True(t, ok, "missing tool %s", id)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(&Descriptor{ID: "x"}))
	require.Error(t, c.Register(&Descriptor{ID: "x"}))
	require.Error(t, c.Register(nil))
}

func TestCandidatesAlwaysIncludeEscapeHatches(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	cands := c.Candidates(w, Utterance{Text: "zzz nothing actionable zzz", ActorID: "pc.arin"})

	found := map[string]bool{}
	for _, cand := range cands {
		found[cand.ID] = true
	}
	assert.True(t, found[ToolNarrateOnly], "narrate_only must always appear")
	assert.True(t, found[ToolAskClarifying], "ask_clarifying must always appear")
}

func TestCandidatesSortedByConfidence(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	cands := c.Candidates(w, Utterance{Text: "I sneak into the hall", ActorID: "pc.arin"})
	require.NotEmpty(t, cands)
	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Confidence, cands[i].Confidence)
	}
	// "sneak" boosts both ask_roll and move above the escape hatches.
	assert.InDelta(t, 0.7, cands[0].Confidence, 1e-9)
	for _, cand := range cands {
		if cand.ID == ToolMove {
			assert.Equal(t, "sneak", cand.ArgsHint["movement_style"])
			assert.Equal(t, "hall", cand.ArgsHint["to"])
			return
		}
	}
	t.Fatal("move not offered for an adjacent-zone mention")
}

func TestCandidatesEscapeHatchConfidence(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	cands := c.Candidates(w, Utterance{Text: "hm", ActorID: "pc.arin"})
	for _, cand := range cands {
		if cand.ID == ToolNarrateOnly || cand.ID == ToolAskClarifying {
			assert.InDelta(t, 0.3, cand.Confidence, 1e-9)
		}
	}
}

func TestAttackPreconditionNeedsWeapon(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	pc, _ := w.Entity("pc.arin")
	pc.HasWeapon = false

	cands := c.Candidates(w, Utterance{Text: "attack the guard", ActorID: "pc.arin"})
	for _, cand := range cands {
		assert.NotEqual(t, ToolAttack, cand.ID, "unarmed actor should not get attack")
	}
}

func TestTalkPreconditionOncePerTurn(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	pc, _ := w.Entity("pc.arin")
	pc.HasTalkedThisTurn = true

	cands := c.Candidates(w, Utterance{Text: "talk to the guard", ActorID: "pc.arin"})
	for _, cand := range cands {
		assert.NotEqual(t, ToolTalk, cand.ID)
	}
}

func TestAskRollSuggestsDetectedAction(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	cands := c.Candidates(w, Utterance{Text: "I try to persuade the guard", ActorID: "pc.arin"})
	for _, cand := range cands {
		if cand.ID == ToolAskRoll {
			assert.Equal(t, "persuade", cand.ArgsHint["action"])
			return
		}
	}
	t.Fatal("ask_roll not offered for a persuade attempt")
}

func TestAskRollEnrichmentAdjustsDC(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	w.Scene.Tags[world.SceneTagAlert] = "sleepy"
	cands := c.Candidates(w, Utterance{Text: "sneak past", ActorID: "pc.arin"})
	for _, cand := range cands {
		if cand.ID == ToolAskRoll {
			assert.Equal(t, 9, cand.ArgsHint["dc_hint"], "base 12 with sleepy -3")
			return
		}
	}
	t.Fatal("ask_roll not offered")
}

func TestCandidatePanicSkipsTool(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(&Descriptor{
		ID:           "boom",
		Precondition: func(w *world.GameState, utt Utterance) bool { return true },
		SuggestArgs: func(w *world.GameState, utt Utterance) map[string]interface{} {
			panic("hook exploded")
		},
	}))
	require.NoError(t, c.Register(&Descriptor{
		ID:           "calm",
		Precondition: func(w *world.GameState, utt Utterance) bool { return true },
	}))

	cands := c.Candidates(world.NewGameState(), Utterance{Text: "anything"})
	require.Len(t, cands, 1)
	assert.Equal(t, "calm", cands[0].ID)
}

func TestUseItemSuggestsMentionedItem(t *testing.T) {
	c := DefaultCatalog()
	w := testWorld(t)
	cands := c.Candidates(w, Utterance{Text: "drink the healing potion", ActorID: "pc.arin"})
	for _, cand := range cands {
		if cand.ID == ToolUseItem {
			assert.Equal(t, "healing_potion", cand.ArgsHint["item_id"])
			return
		}
	}
	t.Fatal("use_item not offered")
}
