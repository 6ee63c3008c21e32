// ABOUTME: Fixed-size character grid redrawn every frame
// ABOUTME: Clear, draw text at a cell, then present the whole screen as a string
package ui

import "strings"

const (
	GridWidth  = 64
	GridHeight = 24
)

// Grid is a width x height character screen
type Grid struct {
	width  int
	height int
	cells  [][]rune
}

// NewGrid creates a blank grid
func NewGrid(width, height int) *Grid {
	g := &Grid{
		width:  width,
		height: height,
		cells:  make([][]rune, height),
	}
	for y := range g.cells {
		g.cells[y] = make([]rune, width)
	}
	g.Clear()
	return g
}

// Clear blanks every cell
func (g *Grid) Clear() {
	for _, row := range g.cells {
		for x := range row {
			row[x] = ' '
		}
	}
}

// DrawText writes text starting at column x of row y. Characters that
// fall outside the grid are dropped; later writes overwrite earlier ones.
func (g *Grid) DrawText(x, y int, text string) {
	if y < 0 || y >= g.height {
		return
	}
	row := g.cells[y]
	for _, r := range text {
		if x >= g.width {
			return
		}
		if x >= 0 {
			row[x] = r
		}
		x++
	}
}

// Present renders the grid with trailing blanks trimmed from each row
func (g *Grid) Present() string {
	var b strings.Builder
	for y, row := range g.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(string(row), " "))
	}
	return b.String()
}
