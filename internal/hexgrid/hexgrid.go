// Package hexgrid converts between hex-cell coordinates and screen pixels.
//
// The map is a pointy-top hex grid addressed by integer (col, row) with every
// odd row shifted half a cell to the right. A Transform places that grid on
// screen: Scale is the hex size in pixels, OffsetX/OffsetY translate it.
package hexgrid

import (
	"errors"
	"fmt"
	"math"
)

// H is the width/height ratio of a pointy-top hexagon.
var H = math.Sqrt(3) / 2

const (
	// rowPitch is the vertical distance between row centres, in hex units.
	rowPitch = 0.75
	// rowOrigin is the centre of row 0, in row units.
	rowOrigin = 2.0 / 3.0
)

// ErrScale is returned when a transform would end up with a non-positive scale.
var ErrScale = errors.New("hexgrid: scale must be positive")

// Transform is the viewport pan/zoom state.
type Transform struct {
	OffsetX float64
	OffsetY float64
	Scale   float64
}

// NewTransform returns a transform or ErrScale if scale <= 0.
func NewTransform(offsetX, offsetY, scale float64) (Transform, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return Transform{}, fmt.Errorf("%w: got %v", ErrScale, scale)
	}
	return Transform{OffsetX: offsetX, OffsetY: offsetY, Scale: scale}, nil
}

// parity returns row mod 2 in {0, 1}, including for negative rows.
func parity(row int) int {
	return ((row % 2) + 2) % 2
}

// Apply returns the pixel centre of cell (col, row).
func (t Transform) Apply(col, row int) (x, y float64) {
	x = float64(2*col+parity(row)+1)*0.5*H*t.Scale + t.OffsetX
	y = (float64(row)+rowOrigin)*rowPitch*t.Scale + t.OffsetY
	return x, y
}

// Unapply returns the cell whose centre Apply maps closest to (x, y).
// The row is resolved first; its parity then fixes the column shift.
func (t Transform) Unapply(x, y float64) (row, col int) {
	fr := (y-t.OffsetY)/(rowPitch*t.Scale) - rowOrigin
	row = int(math.Round(fr))
	fc := ((x-t.OffsetX)/(0.5*H*t.Scale) - float64(parity(row)) - 1) / 2
	col = int(math.Round(fc))
	return row, col
}

// Pan translates the viewport by (dx, dy) pixels.
func (t Transform) Pan(dx, dy float64) Transform {
	t.OffsetX += dx
	t.OffsetY += dy
	return t
}

// Zoom rescales by factor while keeping the grid point under (cx, cy) fixed
// on screen.
func (t Transform) Zoom(cx, cy, factor float64) (Transform, error) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return t, fmt.Errorf("hexgrid: zoom factor %v: %w", factor, ErrScale)
	}
	next := t.Scale * factor
	if !(next > 0) || math.IsInf(next, 0) {
		return t, fmt.Errorf("hexgrid: zoom to %v: %w", next, ErrScale)
	}

	// Logical (scale-free) offsets of the anchor.
	lx := (cx - t.OffsetX) / t.Scale
	ly := (cy - t.OffsetY) / t.Scale

	t.OffsetX += lx * (t.Scale - next)
	t.OffsetY += ly * (t.Scale - next)
	t.Scale = next
	return t, nil
}

// Fit returns a transform at the origin that shows a width×height map
// entirely inside a viewW×viewH viewport.
func Fit(width, height int, viewW, viewH float64) (Transform, error) {
	if width <= 0 || height <= 0 {
		return Transform{}, fmt.Errorf("hexgrid: fit %dx%d: empty map", width, height)
	}
	hor := H * (float64(width) + 0.5)
	ver := float64(height)*rowPitch + 0.25
	return NewTransform(0, 0, math.Min(viewW/hor, viewH/ver))
}

// Visible reports whether a cell centred at (x, y) can touch a viewW×viewH
// viewport. A one-scale margin covers the hex body.
func (t Transform) Visible(x, y, viewW, viewH float64) bool {
	return x+t.Scale >= 0 && x-t.Scale <= viewW &&
		y+t.Scale >= 0 && y-t.Scale <= viewH
}

// HexCorners returns the six vertices of a pointy-top hex of the given size
// centred at (x, y), starting at the upper-left corner and going
// counter-clockwise.
func HexCorners(x, y, size float64) [6][2]float64 {
	w := H * size * 0.5
	s := size * 0.25
	return [6][2]float64{
		{x - w, y - s},
		{x - w, y + s},
		{x, y + 2*s},
		{x + w, y + s},
		{x + w, y - s},
		{x, y - 2*s},
	}
}

// DirVector returns the unit vector an ant facing dir looks along.
// Direction 0 is east; each step turns 60° clockwise on screen.
func DirVector(dir int) (dx, dy float64) {
	a := float64(dir) * math.Pi / 3
	return math.Cos(a), math.Sin(a)
}
