package hexgrid

import (
	"errors"
	"fmt"
	"math"
)

// DeltaUnit is the unit a wheel delta is reported in.
type DeltaUnit int

const (
	DeltaPixel DeltaUnit = iota
	DeltaLine
	DeltaPage
)

func (u DeltaUnit) String() string {
	switch u {
	case DeltaPixel:
		return "pixel"
	case DeltaLine:
		return "line"
	case DeltaPage:
		return "page"
	}
	return fmt.Sprintf("DeltaUnit(%d)", int(u))
}

const (
	// LineHeight converts line deltas to pixels.
	LineHeight = 12
	// zoomRate is the exponent per pixel of wheel travel.
	zoomRate = 0.002
)

// ErrDeltaUnit is returned for wheel deltas in a unit other than pixels or lines.
var ErrDeltaUnit = errors.New("hexgrid: unsupported wheel delta unit")

// WheelFactor turns a wheel delta into a zoom factor. Positive deltas
// (scrolling down) zoom out.
func WheelFactor(delta float64, unit DeltaUnit) (float64, error) {
	switch unit {
	case DeltaPixel:
	case DeltaLine:
		delta *= LineHeight
	default:
		return 0, fmt.Errorf("%w: %s", ErrDeltaUnit, unit)
	}
	return math.Exp(-delta * zoomRate), nil
}
