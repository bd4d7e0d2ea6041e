package simulator

import "math"

// cellSizeFactor is the minimum cell edge in units of the largest radius.
// Anything that can touch a particle lives in the 3x3 block around its cell.
const cellSizeFactor = 2.01

// Rect is an axis-aligned cell rectangle
type Rect struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Grid is a uniform partition of the box used to bound collision search.
// Columns (i, along x) are clamped at the walls, rows (j, along y) wrap.
// Cells are stored flat with index i*ny + j.
type Grid struct {
	nx, ny int
	lx, ly float64

	residents [][]int // particle indices per cell
	neighbors [][]int // 3x3 neighbourhood per cell, self included
	bounds    []Rect

	cellOf []int // cell currently recorded for each particle
	slotOf []int // position of each particle inside residents[cellOf[p]]
}

// gridDims returns the cell counts for a box and the largest radius
func gridDims(width, height, maxRadius float64) (nx, ny int) {
	cellMin := cellSizeFactor * maxRadius
	return int(math.Floor(width / cellMin)), int(math.Floor(height / cellMin))
}

// NewGrid builds the grid and files every particle into the cell that
// contains its centre. The caller guarantees nx >= 1 and ny >= 4.
func NewGrid(width, height, maxRadius float64, particles []Particle) *Grid {
	nx, ny := gridDims(width, height, maxRadius)
	g := &Grid{
		nx:        nx,
		ny:        ny,
		lx:        width / float64(nx),
		ly:        height / float64(ny),
		residents: make([][]int, nx*ny),
		neighbors: make([][]int, nx*ny),
		bounds:    make([]Rect, nx*ny),
		cellOf:    make([]int, len(particles)),
		slotOf:    make([]int, len(particles)),
	}

	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			c := g.index(i, j)
			g.bounds[c] = Rect{
				XMin: float64(i) * g.lx,
				XMax: float64(i+1) * g.lx,
				YMin: float64(j) * g.ly,
				YMax: float64(j+1) * g.ly,
			}
			nb := make([]int, 0, 9)
			for di := -1; di <= 1; di++ {
				x := i + di
				if x < 0 || x >= nx {
					continue
				}
				for dj := -1; dj <= 1; dj++ {
					nb = append(nb, g.index(x, wrap(j+dj, ny)))
				}
			}
			g.neighbors[c] = nb
		}
	}

	for p := range particles {
		g.cellOf[p] = -1
		g.Insert(p, g.CellIndex(particles[p].Rx, particles[p].Ry))
	}
	return g
}

func wrap(j, n int) int {
	return ((j % n) + n) % n
}

func (g *Grid) index(i, j int) int {
	return i*g.ny + j
}

// CellIndex returns the cell containing (rx, ry). Columns are clamped to the
// box and rows are reduced modulo ny.
func (g *Grid) CellIndex(rx, ry float64) int {
	i := int(math.Floor(rx / g.lx))
	if i < 0 {
		i = 0
	} else if i >= g.nx {
		i = g.nx - 1
	}
	j := wrap(int(math.Floor(ry/g.ly)), g.ny)
	return g.index(i, j)
}

// Dims returns the number of cells along x and y
func (g *Grid) Dims() (nx, ny int) { return g.nx, g.ny }

// CellSize returns the cell edge lengths
func (g *Grid) CellSize() (lx, ly float64) { return g.lx, g.ly }

func (g *Grid) NumCells() int { return len(g.residents) }

// Neighbors returns the precomputed neighbour cells of c, c itself included.
// The slice is shared and must not be modified.
func (g *Grid) Neighbors(c int) []int { return g.neighbors[c] }

// Bounds returns the rectangle covered by cell c
func (g *Grid) Bounds(c int) Rect { return g.bounds[c] }

// IsBoundary reports whether c touches a wall, i.e. some of its 3x3
// neighbourhood falls outside the box.
func (g *Grid) IsBoundary(c int) bool { return len(g.neighbors[c]) < 9 }

// Residents returns the particles recorded in cell c.
// The slice is shared and must not be modified.
func (g *Grid) Residents(c int) []int { return g.residents[c] }

// CellOf returns the cell currently recorded for particle p
func (g *Grid) CellOf(p int) int { return g.cellOf[p] }

// Remove takes p out of its recorded cell in O(1) by swapping it with the
// last resident.
func (g *Grid) Remove(p int) {
	c := g.cellOf[p]
	if c < 0 {
		return
	}
	cell := g.residents[c]
	slot := g.slotOf[p]
	last := len(cell) - 1
	moved := cell[last]
	cell[slot] = moved
	g.slotOf[moved] = slot
	g.residents[c] = cell[:last]
	g.cellOf[p] = -1
}

// Insert records p as resident in cell c. p must not be filed elsewhere.
func (g *Grid) Insert(p, c int) {
	g.slotOf[p] = len(g.residents[c])
	g.residents[c] = append(g.residents[c], p)
	g.cellOf[p] = c
}

// Move refiles p into cell c
func (g *Grid) Move(p, c int) {
	g.Remove(p)
	g.Insert(p, c)
}
