package world

import "fmt"

// Grid holds every patch of a square toroidal ocean.
type Grid struct {
	Dim     int      `json:"dim"`
	Patches []*Patch `json:"-"` // Row-major: index = y*Dim + x
}

// NewGrid creates a grid of dim×dim empty patches.
func NewGrid(dim int) *Grid {
	g := &Grid{
		Dim:     dim,
		Patches: make([]*Patch, dim*dim),
	}
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			i := y*dim + x
			g.Patches[i] = &Patch{Coord: Coord{X: x, Y: y}, Index: i}
		}
	}
	return g
}

// Wrap folds any coordinate onto the torus.
func (g *Grid) Wrap(c Coord) Coord {
	return Coord{X: wrap(c.X, g.Dim), Y: wrap(c.Y, g.Dim)}
}

// At returns the patch at the (wrapped) coordinate.
func (g *Grid) At(c Coord) *Patch {
	c = g.Wrap(c)
	return g.Patches[c.Y*g.Dim+c.X]
}

// Neighbors returns the eight toroidal neighbors of c in a fixed order.
// On grids smaller than 3×3 some neighbors repeat, or are c itself.
func (g *Grid) Neighbors(c Coord) []*Patch {
	out := make([]*Patch, 0, len(NeighborOffsets))
	for _, off := range NeighborOffsets {
		out = append(out, g.At(Coord{X: c.X + off.X, Y: c.Y + off.Y}))
	}
	return out
}

// Distance is the toroidal Chebyshev distance, i.e. the number of single
// king-moves between two cells.
func (g *Grid) Distance(a, b Coord) int {
	dx := axisDistance(a.X, b.X, g.Dim)
	dy := axisDistance(a.Y, b.Y, g.Dim)
	if dy > dx {
		return dy
	}
	return dx
}

// TotalResource sums resource over all patches.
func (g *Grid) TotalResource() float64 {
	total := 0.0
	for _, p := range g.Patches {
		total += p.Resource
	}
	return total
}

// PatchCount returns the number of patches.
func (g *Grid) PatchCount() int {
	return len(g.Patches)
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(dim=%d, patches=%d)", g.Dim, g.PatchCount())
}
