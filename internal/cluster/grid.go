package cluster

import (
	"math"
	"sort"
)

// CellKey represents a grid cell coordinate.
type CellKey struct {
	X, Y int
}

// grid buckets projected points into square cells of the cluster radius so a
// radius query only visits the 3x3 block of cells around the query point.
type grid struct {
	cellSize float64
	cells    map[CellKey][]int
	pixels   []Pixel
}

func newGrid(cellSize float64, pixels []Pixel) *grid {
	g := &grid{
		cellSize: cellSize,
		cells:    make(map[CellKey][]int),
		pixels:   pixels,
	}
	for i, p := range pixels {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(p Pixel) CellKey {
	return CellKey{
		X: int(math.Floor(p.X / g.cellSize)),
		Y: int(math.Floor(p.Y / g.cellSize)),
	}
}

// nearby returns the indices of points within radius of p, ascending.
func (g *grid) nearby(p Pixel, radius float64) []int {
	reach := int(math.Ceil(radius / g.cellSize))
	center := g.key(p)
	r2 := radius * radius

	var out []int
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for _, i := range g.cells[CellKey{X: center.X + dx, Y: center.Y + dy}] {
				if g.pixels[i].dist2(p) <= r2 {
					out = append(out, i)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}
