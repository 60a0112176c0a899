package zonegraph

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// buildWorld wires a small map:
//
//	courtyard -- hall -- vault
//	     \               /
//	      garden -- tunnel
//
// hall->vault is cheap, tunnel->vault is swamp terrain.
func buildWorld(t *testing.T) *world.GameState {
	t.Helper()
	w := world.NewGameState()
	add := func(id string, exits ...world.Exit) {
		z := world.NewZone(id, id)
		z.Exits = exits
		w.AddZone(z)
	}
	add("courtyard",
		world.Exit{To: "hall", Direction: world.DirNorth, Cost: 1},
		world.Exit{To: "garden", Direction: world.DirEast, Cost: 1},
	)
	add("hall",
		world.Exit{To: "courtyard", Direction: world.DirSouth, Cost: 1},
		world.Exit{To: "vault", Direction: world.DirNorth, Cost: 1},
	)
	add("garden",
		world.Exit{To: "courtyard", Direction: world.DirWest, Cost: 1},
		world.Exit{To: "tunnel", Direction: world.DirDown, Cost: 1},
	)
	add("tunnel",
		world.Exit{To: "garden", Direction: world.DirUp, Cost: 1},
		world.Exit{To: "vault", Direction: world.DirNorth, Cost: 1, Terrain: "swamp"},
	)
	add("vault",
		world.Exit{To: "hall", Direction: world.DirSouth, Cost: 1},
		world.Exit{To: "tunnel", Direction: world.DirSouth, Cost: 1, Terrain: "swamp"},
	)
	return w
}

func TestIsAdjacent(t *testing.T) {
	w := buildWorld(t)
	if !IsAdjacent(w, "courtyard", "hall", false) {
		t.Fatal("courtyard should be adjacent to hall")
	}
	if IsAdjacent(w, "courtyard", "vault", false) {
		t.Fatal("courtyard should not be adjacent to vault")
	}
}

func TestIsAdjacentBlocked(t *testing.T) {
	w := buildWorld(t)
	z, _ := w.Zone("courtyard")
	z.Exits[0].Blocked = true
	if IsAdjacent(w, "courtyard", "hall", false) {
		t.Fatal("blocked exit should not count")
	}
	if !IsAdjacent(w, "courtyard", "hall", true) {
		t.Fatal("allow_blocked should see the exit")
	}
}

func TestFindShortestPath(t *testing.T) {
	w := buildWorld(t)
	got := FindShortestPath(w, "courtyard", "vault", false, 0)
	want := []string{"courtyard", "hall", "vault"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestFindShortestPathSameZone(t *testing.T) {
	w := buildWorld(t)
	got := FindShortestPath(w, "hall", "hall", false, 0)
	if diff := cmp.Diff([]string{"hall"}, got); diff != "" {
		t.Fatalf("trivial path mismatch (-want +got):\n%s", diff)
	}
}

func TestPathExistsDepthBound(t *testing.T) {
	w := buildWorld(t)
	if PathExists(w, "courtyard", "vault", false, 1) {
		t.Fatal("vault is 2 hops away, depth 1 should fail")
	}
	if !PathExists(w, "courtyard", "vault", false, 2) {
		t.Fatal("vault should be reachable within 2 hops")
	}
}

func TestFindLowestCostPathAvoidsSwamp(t *testing.T) {
	w := buildWorld(t)
	// Both routes are 2 hops from garden? No: garden->tunnel->vault costs
	// 1 + 1*2.5 = 3.5, garden->courtyard->hall->vault costs 3.
	p := FindLowestCostPath(w, "garden", "vault", nil, nil, false, 0)
	if p == nil {
		t.Fatal("expected a path")
	}
	want := []string{"garden", "courtyard", "hall", "vault"}
	if diff := cmp.Diff(want, p.Zones); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(p.Cost-3.0) > 1e-9 {
		t.Fatalf("cost = %v, want 3.0", p.Cost)
	}
}

func TestFindLowestCostPathAdmissible(t *testing.T) {
	w := buildWorld(t)
	p := FindLowestCostPath(w, "courtyard", "vault", nil, nil, false, 0)
	if p == nil {
		t.Fatal("expected a path")
	}
	recomputed := PathCost(w, p.Zones, nil, nil)
	if math.Abs(p.Cost-recomputed) > 1e-9 {
		t.Fatalf("reported cost %v != recomputed %v", p.Cost, recomputed)
	}
}

func TestActorTerrainOverride(t *testing.T) {
	w := buildWorld(t)
	swimmer := world.NewActor(world.EntityPC, "pc.mire", "Mire", "garden")
	swimmer.Tags["terrain.swamp"] = 1.0
	w.AddEntity(swimmer)

	p := FindLowestCostPath(w, "garden", "vault", swimmer, nil, false, 0)
	if p == nil {
		t.Fatal("expected a path")
	}
	want := []string{"garden", "tunnel", "vault"}
	if diff := cmp.Diff(want, p.Zones); diff != "" {
		t.Fatalf("swimmer should take the tunnel (-want +got):\n%s", diff)
	}
}

func TestFindMultiplePaths(t *testing.T) {
	w := buildWorld(t)
	paths := FindMultiplePaths(w, "courtyard", "vault", nil, nil, false, 3)
	if len(paths) < 2 {
		t.Fatalf("expected at least 2 distinct paths, got %d", len(paths))
	}
	if paths[0].Cost > paths[1].Cost {
		t.Fatalf("paths not sorted by cost: %v then %v", paths[0].Cost, paths[1].Cost)
	}
	if cmp.Equal(paths[0].Zones, paths[1].Zones) {
		t.Fatal("paths should be distinct")
	}
}

func TestGetReachableZones(t *testing.T) {
	w := buildWorld(t)
	got := GetReachableZones(w, "courtyard", 1, false)
	want := []string{"garden", "hall"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("1-hop reachable mismatch (-want +got):\n%s", diff)
	}
	all := GetReachableZones(w, "courtyard", 0, false)
	if len(all) != 4 {
		t.Fatalf("expected 4 reachable zones, got %v", all)
	}
}

func TestGetReachableZonesWithCost(t *testing.T) {
	w := buildWorld(t)
	got := GetReachableZonesWithCost(w, "courtyard", 2.0, nil, nil, false)
	for _, id := range []string{"garden", "hall", "vault"} {
		if _, ok := got[id]; !ok {
			t.Errorf("expected %s within cost 2.0, got %v", id, got)
		}
	}
	if _, ok := got["tunnel"]; !ok {
		t.Errorf("tunnel is cost 2, should be included: %v", got)
	}
}

func TestUnknownZone(t *testing.T) {
	w := buildWorld(t)
	if _, err := GetZone(w, "abyss"); err == nil {
		t.Fatal("expected ZoneNotFound")
	}
	if p := FindShortestPath(w, "abyss", "vault", false, 0); p != nil {
		t.Fatalf("expected nil path, got %v", p)
	}
}
