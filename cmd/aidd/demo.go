package main

import (
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// demoWorld builds the bundled starter scenario: a small keep at night
// with one player character, a drowsy guard, and an alarm clock ticking
// toward trouble.
func demoWorld() *world.GameState {
	w := world.NewGameState()

	courtyard := world.NewZone("courtyard", "Courtyard")
	courtyard.Description = "A moonlit courtyard, flagstones slick with rain."
	hall := world.NewZone("hall", "Great Hall")
	hall.Description = "Long tables, dying embers in the hearth."
	cellar := world.NewZone("cellar", "Cellar")
	cellar.Description = "Barrels, cobwebs, and a smell of vinegar."

	courtyard.Exits = []world.Exit{{To: "hall", Direction: world.DirNorth, Cost: 1}}
	hall.Exits = []world.Exit{
		{To: "courtyard", Direction: world.DirSouth, Cost: 1},
		{To: "cellar", Direction: world.DirDown, Cost: 1.5, Terrain: "stairs"},
	}
	cellar.Exits = []world.Exit{{To: "hall", Direction: world.DirUp, Cost: 1.5, Terrain: "stairs"}}
	w.AddZone(courtyard)
	w.AddZone(hall)
	w.AddZone(cellar)

	arin := world.NewActor(world.EntityPC, "pc.arin", "Arin", "courtyard")
	arin.HP = &world.HP{Current: 20, Max: 20}
	arin.HasWeapon = true
	arin.Inventory = []string{"healing_potion", "rope"}
	courtyard.DiscoveredBy["pc.arin"] = true

	guard := world.NewActor(world.EntityNPC, "npc.guard", "Night Guard", "hall")
	guard.HP = &world.HP{Current: 12, Max: 12}
	guard.Guard = 1

	brazier := &world.Entity{
		ID:           "obj.brazier",
		Type:         world.EntityObject,
		Name:         "Iron Brazier",
		CurrentZone:  "courtyard",
		Description:  "A cold brazier, ash long dead.",
		Interactable: true,
		Tags:         make(map[string]interface{}),
		Meta:         world.NewMeta(world.VisibilityPublic),
	}

	w.AddEntity(arin)
	w.AddEntity(guard)
	w.AddEntity(brazier)

	w.AddClock(world.NewClock("alarm", "Castle Alarm", 0, 4))

	w.Scene = world.NewScene("keep_at_night", []string{"pc.arin", "npc.guard"})
	w.Scene.BaseDC = 12
	w.Scene.Tags[world.SceneTagAlert] = "sleepy"
	w.Scene.Tags[world.SceneTagLighting] = "dim"
	w.Scene.Tags[world.SceneTagNoise] = "quiet"
	w.Scene.Objective = "Reach the cellar without raising the alarm."
	w.CurrentActor = "pc.arin"
	return w
}
