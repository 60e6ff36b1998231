package world

import (
	"math"
	"testing"
)

func TestRegrowLogistic(t *testing.T) {
	p := &Patch{Resource: 0.5}
	p.Regrow(1.0, 1.0)
	if math.Abs(p.Resource-0.75) > 1e-12 {
		t.Fatalf("resource = %v, want 0.75", p.Resource)
	}

	full := &Patch{Resource: 1.0}
	full.Regrow(1.0, 1.0)
	if full.Resource != 1.0 {
		t.Fatalf("patch at capacity should not grow, got %v", full.Resource)
	}
}

func TestRegrowSnapsNonPositiveToZero(t *testing.T) {
	p := &Patch{Resource: -1e-9}
	p.Regrow(1.0, 1.0)
	if p.Resource != 0 {
		t.Fatalf("resource = %v, want exactly 0", p.Resource)
	}
}

func TestLoseNeverNegative(t *testing.T) {
	p := &Patch{Resource: 0.1}
	p.Lose(0.3)
	if p.Resource != 0 {
		t.Fatalf("resource = %v, want 0", p.Resource)
	}
}

func TestDiffuseConservesMass(t *testing.T) {
	g := NewGrid(5)
	for i, p := range g.Patches {
		p.Resource = float64(i%7) / 7
	}
	before := g.TotalResource()
	for _, p := range g.Patches {
		p.Regrow(0, 1)
	}
	for _, p := range g.Patches {
		p.Diffuse(8.0/9.0, g.Neighbors(p.Coord))
	}
	after := g.TotalResource()
	if math.Abs(before-after) > 1e-9 {
		t.Fatalf("total changed: before=%v after=%v", before, after)
	}
}

func TestNeighborsWrap(t *testing.T) {
	g := NewGrid(4)
	ns := g.Neighbors(Coord{X: 0, Y: 0})
	if len(ns) != 8 {
		t.Fatalf("got %d neighbors, want 8", len(ns))
	}
	seen := make(map[Coord]bool)
	for _, n := range ns {
		if g.Distance(n.Coord, Coord{}) != 1 {
			t.Fatalf("neighbor %v not adjacent to origin", n.Coord)
		}
		seen[n.Coord] = true
	}
	if len(seen) != 8 {
		t.Fatalf("neighbors not distinct: %v", seen)
	}
	if !seen[Coord{X: 3, Y: 3}] {
		t.Fatal("corner should wrap to (3,3)")
	}
}

func TestDistanceToroidal(t *testing.T) {
	g := NewGrid(10)
	cases := []struct {
		a, b Coord
		want int
	}{
		{Coord{0, 0}, Coord{0, 0}, 0},
		{Coord{0, 0}, Coord{9, 9}, 1},
		{Coord{0, 0}, Coord{5, 2}, 5},
		{Coord{1, 1}, Coord{8, 3}, 3},
	}
	for _, tc := range cases {
		if got := g.Distance(tc.a, tc.b); got != tc.want {
			t.Errorf("Distance(%v,%v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestGenerateUniform(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Dim = 10
	g := Generate(cfg)
	if g.PatchCount() != 100 {
		t.Fatalf("patch count = %d", g.PatchCount())
	}
	for _, p := range g.Patches {
		if p.Resource != 1.0 {
			t.Fatalf("patch %v resource = %v, want 1", p.Coord, p.Resource)
		}
	}
}

func TestGeneratePatchyDeterministic(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Dim = 16
	cfg.Seed = 99
	cfg.Patchiness = 0.8
	a := Generate(cfg)
	b := Generate(cfg)
	varied := false
	for i := range a.Patches {
		ra, rb := a.Patches[i].Resource, b.Patches[i].Resource
		if ra != rb {
			t.Fatalf("patch %d differs between identical seeds", i)
		}
		if ra < 0 || ra > cfg.Capacity {
			t.Fatalf("patch %d resource %v out of [0, capacity]", i, ra)
		}
		if ra != a.Patches[0].Resource {
			varied = true
		}
	}
	if !varied {
		t.Fatal("patchy field should not be uniform")
	}
}
