package zonegraph

import (
	"strings"
	"testing"

	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

func TestOppositeDirection(t *testing.T) {
	cases := map[world.Direction]world.Direction{
		world.DirNorth:     world.DirSouth,
		world.DirUp:        world.DirDown,
		world.DirNortheast: world.DirSouthwest,
		world.DirIn:        world.DirOut,
		world.DirForward:   world.DirBack,
	}
	for dir, want := range cases {
		if got := OppositeDirection(dir); got != want {
			t.Errorf("opposite(%s) = %s, want %s", dir, got, want)
		}
		if got := OppositeDirection(want); got != dir {
			t.Errorf("opposite(%s) = %s, want %s", want, got, dir)
		}
	}
	if got := OppositeDirection(""); got != "" {
		t.Errorf("opposite of empty = %q", got)
	}
}

func TestMirrorLabel(t *testing.T) {
	cases := map[string]string{
		"North stairs":     "South stairs",
		"door east":        "door west",
		"the way up":       "the way down",
		"plain corridor":   "plain corridor",
		"":                 "",
	}
	for in, want := range cases {
		if got := mirrorLabel(in); got != want {
			t.Errorf("mirrorLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnsureBidirectionalLinksDryRun(t *testing.T) {
	w := world.NewGameState()
	a := world.NewZone("a", "A")
	b := world.NewZone("b", "B")
	a.Exits = []world.Exit{{To: "b", Direction: world.DirNorth, Cost: 2, Terrain: "mud", Label: "North gate"}}
	w.AddZone(a)
	w.AddZone(b)

	report := EnsureBidirectionalLinks(w, true)
	if report.Created != 0 {
		t.Fatalf("dry run created %d exits", report.Created)
	}
	if len(report.Proposed) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(report.Proposed))
	}
	p := report.Proposed[0]
	if p.FromZone != "b" || p.Exit.To != "a" {
		t.Fatalf("proposal wired wrong: %+v", p)
	}
	if p.Exit.Direction != world.DirSouth {
		t.Errorf("direction = %s, want south", p.Exit.Direction)
	}
	if p.Exit.Cost != 2 || p.Exit.Terrain != "mud" {
		t.Errorf("cost/terrain not mirrored: %+v", p.Exit)
	}
	if p.Exit.Label != "South gate" {
		t.Errorf("label = %q, want %q", p.Exit.Label, "South gate")
	}
	if len(b.Exits) != 0 {
		t.Fatal("dry run must not mutate the world")
	}
}

func TestEnsureBidirectionalLinksCreates(t *testing.T) {
	w := world.NewGameState()
	a := world.NewZone("a", "A")
	b := world.NewZone("b", "B")
	a.Exits = []world.Exit{{To: "b", Direction: world.DirEast, Cost: 1}}
	w.AddZone(a)
	w.AddZone(b)

	report := EnsureBidirectionalLinks(w, false)
	if report.Created != 1 {
		t.Fatalf("created = %d, want 1", report.Created)
	}
	back, ok := b.ExitTo("a")
	if !ok {
		t.Fatal("reciprocal exit missing")
	}
	if back.Direction != world.DirWest {
		t.Errorf("direction = %s, want west", back.Direction)
	}

	// Second sweep is a no-op.
	again := EnsureBidirectionalLinks(w, false)
	if again.Created != 0 {
		t.Fatalf("second sweep created %d exits", again.Created)
	}
}

func TestEnsureBidirectionalLinksMissingTarget(t *testing.T) {
	w := world.NewGameState()
	a := world.NewZone("a", "A")
	b := world.NewZone("b", "B")
	a.Exits = []world.Exit{
		{To: "ghost", Direction: world.DirNorth, Cost: 1},
		{To: "b", Direction: world.DirEast, Cost: 1},
	}
	w.AddZone(a)
	w.AddZone(b)

	report := EnsureBidirectionalLinks(w, false)
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "missing_target_zone") {
		t.Fatalf("expected one missing_target_zone error, got %v", report.Errors)
	}
	// The bad exit must not abort the rest of the batch.
	if report.Created != 1 {
		t.Fatalf("created = %d, want 1 despite the error", report.Created)
	}
}

func TestValidateAndFixConsistency(t *testing.T) {
	w := world.NewGameState()
	a := world.NewZone("a", "A")
	b := world.NewZone("b", "B")
	a.Exits = []world.Exit{{To: "b", Cost: 1}}
	b.Exits = []world.Exit{{To: "a", Cost: 3, Terrain: "rubble", Blocked: true}}
	w.AddZone(a)
	w.AddZone(b)

	issues := ValidateBidirectionalConsistency(w)
	if len(issues) != 3 {
		t.Fatalf("expected cost+terrain+blocked issues, got %v", issues)
	}

	fixed, err := FixBidirectionalInconsistencies(w, PreferLowerCost)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 2 {
		t.Fatalf("fixed = %d, want 2", fixed)
	}
	if b.Exits[0].Cost != 1 || a.Exits[0].Cost != 1 {
		t.Errorf("prefer_lower_cost: costs %v / %v", a.Exits[0].Cost, b.Exits[0].Cost)
	}
	if len(ValidateBidirectionalConsistency(w)) != 0 {
		t.Fatal("inconsistencies remain after fix")
	}
}

func TestFixAverageStrategy(t *testing.T) {
	w := world.NewGameState()
	a := world.NewZone("a", "A")
	b := world.NewZone("b", "B")
	a.Exits = []world.Exit{{To: "b", Cost: 1}}
	b.Exits = []world.Exit{{To: "a", Cost: 3}}
	w.AddZone(a)
	w.AddZone(b)

	if _, err := FixBidirectionalInconsistencies(w, AverageCost); err != nil {
		t.Fatal(err)
	}
	if a.Exits[0].Cost != 2 || b.Exits[0].Cost != 2 {
		t.Fatalf("average: costs %v / %v, want 2", a.Exits[0].Cost, b.Exits[0].Cost)
	}
}

func TestFixUnknownStrategy(t *testing.T) {
	w := world.NewGameState()
	if _, err := FixBidirectionalInconsistencies(w, "coin_flip"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
