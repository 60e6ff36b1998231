// Package world provides the toroidal resource grid and its patches.
// Coordinates wrap on both axes so every cell has exactly eight neighbors.
package world

// Coord is a cell position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NeighborOffsets are the eight Moore-neighborhood offsets.
var NeighborOffsets = [8]Coord{
	{X: -1, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 1, Y: 1},
}

// wrap folds v into [0, dim).
func wrap(v, dim int) int {
	v %= dim
	if v < 0 {
		v += dim
	}
	return v
}

// axisDistance is the shorter way around a ring of length dim.
func axisDistance(a, b, dim int) int {
	d := wrap(a-b, dim)
	if dim-d < d {
		return dim - d
	}
	return d
}
