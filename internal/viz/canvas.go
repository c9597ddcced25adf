package viz

import "strings"

const brailleBase = 0x2800

// Dot bits for a braille cell, indexed by subCol*4 + subRow. Columns
// hold dots 1-3,7 and 4-6,8 of the pattern.
var dotBits = [8]rune{0x01, 0x02, 0x04, 0x40, 0x08, 0x10, 0x20, 0x80}

// Canvas rasterizes trajectory fragments into a grid of braille cells.
// Each cell packs 2x4 dots, so a WxH canvas addresses (2W)x(4H) dot
// coordinates.
type Canvas struct {
	Width, Height int
	cells         []rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([]rune, w*h)}
	c.Clear()
	return c
}

// SubWidth and SubHeight are the dot-addressable dimensions.
func (c *Canvas) SubWidth() int  { return c.Width * 2 }
func (c *Canvas) SubHeight() int { return c.Height * 4 }

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBase
	}
}

// Set turns on the dot at (x, y) in dot coordinates. Out-of-range
// coordinates are ignored so trajectories may leave the view.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.SubWidth() || y >= c.SubHeight() {
		return
	}
	c.cells[(y/4)*c.Width+x/2] |= dotBits[(x%2)*4+y%4]
}

// Unset turns off the dot at (x, y).
func (c *Canvas) Unset(x, y int) {
	if x < 0 || y < 0 || x >= c.SubWidth() || y >= c.SubHeight() {
		return
	}
	c.cells[(y/4)*c.Width+x/2] &^= dotBits[(x%2)*4+y%4]
}

// DrawLine rasterizes the segment between two dot coordinates by
// integer interpolation over the longer axis.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := x1-x0, y1-y0
	steps := max(absInt(dx), absInt(dy))
	if steps == 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= steps; i++ {
		c.Set(x0+dx*i/steps, y0+dy*i/steps)
	}
}

// HLine draws a horizontal rule across the full width at dot row y,
// setting every period-th dot. A period above one gives the dashed
// rules used for floors, setpoint bands, and zero axes.
func (c *Canvas) HLine(y, period int) {
	if period < 1 {
		period = 1
	}
	for x := 0; x < c.SubWidth(); x += period {
		c.Set(x, y)
	}
}

// Marker draws a 3x3 blob centered at (x, y), marking the current
// state sample.
func (c *Canvas) Marker(x, y int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

// EventTick draws a short tick down from the top edge at dot column x,
// marking an event instant on a scrolling trace.
func (c *Canvas) EventTick(x int) {
	for y := 0; y < 4; y++ {
		c.Set(x, y)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.Height; row++ {
		b.WriteString(string(c.cells[row*c.Width : (row+1)*c.Width]))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
