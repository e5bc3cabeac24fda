package tui

import (
	"math"
	"strings"
)

// Braille cells hold a 2x4 dot matrix:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBase = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// canvas is a braille raster of width x height cells, i.e. 2*width by
// 4*height dots.
type canvas struct {
	width, height int
	cells         [][]rune
}

func newCanvas(w, h int) *canvas {
	c := &canvas{width: w, height: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.clear()
	return c
}

func (c *canvas) clear() {
	for _, row := range c.cells {
		for j := range row {
			row[j] = brailleBase
		}
	}
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.width || row >= c.height {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

// line draws with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

type point struct{ x, y float64 }

// polyline scales pts to fill the canvas, keeping the aspect ratio, with
// +y pointing up.
func (c *canvas) polyline(pts []point) {
	if len(pts) == 0 {
		return
	}
	minX, maxX := pts[0].x, pts[0].x
	minY, maxY := pts[0].y, pts[0].y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	dotsW, dotsH := float64(c.width*2-1), float64(c.height*4-1)
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := math.Min(dotsW, dotsH) / span

	px := func(p point) (int, int) {
		return int(math.Round((p.x - minX) * scale)), int(math.Round(dotsH - (p.y-minY)*scale))
	}
	x0, y0 := px(pts[0])
	c.set(x0, y0)
	for _, p := range pts[1:] {
		x1, y1 := px(p)
		c.line(x0, y0, x1, y1)
		x0, y0 = x1, y1
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
