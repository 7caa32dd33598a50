// Package systems provides the per-agent flocking, steering, fitness and motion rules.
package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// SpatialGrid buckets roster indices by cell on a toroidal world.
// It only narrows the candidate set; callers still apply the exact distance test.
type SpatialGrid struct {
	cellW  float64
	cellH  float64
	cols   int
	rows   int
	width  float64
	height float64
	cells  [][]int // flat grid of roster indices
}

// NewSpatialGrid creates a grid covering a width×height torus with cells no larger than cellSize.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := max(1, int(math.Ceil(width/cellSize)))
	rows := max(1, int(math.Ceil(height/cellSize)))

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellW:  width / float64(cols),
		cellH:  height / float64(rows),
		cols:   cols,
		rows:   rows,
		width:  width,
		height: height,
		cells:  cells,
	}
}

// Clear removes all entries from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds roster index i at position p.
func (g *SpatialGrid) Insert(i int, p r2.Vec) {
	col, row := g.cell(p)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], i)
}

// Rebuild clears the grid and inserts every snapshot by its roster index.
func (g *SpatialGrid) Rebuild(roster []Snapshot) {
	g.Clear()
	for i := range roster {
		g.Insert(i, roster[i].Pos)
	}
}

// CandidatesInto appends to dst the roster indices in every cell that could hold a point
// within radius of p, including across the seams. Each index appears at most once.
func (g *SpatialGrid) CandidatesInto(dst []int, p r2.Vec, radius float64) []int {
	centerCol, centerRow := g.cell(p)
	colSpan := int(math.Ceil(radius/g.cellW)) + 1
	rowSpan := int(math.Ceil(radius/g.cellH)) + 1

	colFrom, colTo := centerCol-colSpan, centerCol+colSpan
	if 2*colSpan+1 >= g.cols {
		colFrom, colTo = 0, g.cols-1
	}
	rowFrom, rowTo := centerRow-rowSpan, centerRow+rowSpan
	if 2*rowSpan+1 >= g.rows {
		rowFrom, rowTo = 0, g.rows-1
	}

	for r := rowFrom; r <= rowTo; r++ {
		row := (r%g.rows + g.rows) % g.rows
		for c := colFrom; c <= colTo; c++ {
			col := (c%g.cols + g.cols) % g.cols
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	return dst
}

// cell returns the grid column and row for a world position.
func (g *SpatialGrid) cell(p r2.Vec) (int, int) {
	col := int(mod(p.X, g.width) / g.cellW)
	row := int(mod(p.Y, g.height) / g.cellH)
	if col >= g.cols {
		col = g.cols - 1
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}
