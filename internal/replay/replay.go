// Package replay defines the match, background and frame types exchanged
// with the replay server.
//
// The JSON shapes mirror the server's wire format: cells are [col,row]
// pairs, food is [col,row,amount] and marker deposits are
// [col,row,{marker0..marker5}]. Frames are always replaced wholesale.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Color identifies one of the two colonies.
type Color int

const (
	Red Color = iota
	Black
)

// Colors lists both colonies in display order.
var Colors = [2]Color{Red, Black}

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Black:
		return "black"
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

// Opponent returns the other colony.
func (c Color) Opponent() Color {
	if c == Red {
		return Black
	}
	return Red
}

func (c Color) MarshalJSON() ([]byte, error) {
	if c != Red && c != Black {
		return nil, fmt.Errorf("replay: invalid color %d", int(c))
	}
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("replay: color: %w", err)
	}
	switch strings.ToLower(s) {
	case "red":
		*c = Red
	case "black":
		*c = Black
	default:
		return fmt.Errorf("replay: unknown color %q", s)
	}
	return nil
}

// Cell is an integer hex-grid coordinate.
type Cell struct {
	Col int
	Row int
}

func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Col, c.Row})
}

func (c *Cell) UnmarshalJSON(b []byte) error {
	var v [2]int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("replay: cell: %w", err)
	}
	c.Col, c.Row = v[0], v[1]
	return nil
}

// Background is the static per-match data. It is read-only once loaded.
type Background struct {
	Rocks        []Cell `json:"rocks"`
	RedAnthill   []Cell `json:"red_anthill"`
	BlackAnthill []Cell `json:"black_anthill"`
	RedBrain     string `json:"red_brain"`
	BlackBrain   string `json:"black_brain"`
}

// Anthill returns the anthill cells of colony c.
func (b *Background) Anthill(c Color) []Cell {
	if c == Red {
		return b.RedAnthill
	}
	return b.BlackAnthill
}

// Brain returns the automaton source of colony c.
func (b *Background) Brain(c Color) string {
	if c == Red {
		return b.RedBrain
	}
	return b.BlackBrain
}

// BrainLines splits a colony's automaton source into rows, one per state
// index. A trailing newline does not produce an extra state.
func (b *Background) BrainLines(c Color) []string {
	src := strings.TrimRight(b.Brain(c), "\n")
	if src == "" {
		return nil
	}
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// Bounds returns the smallest width and height covering every cell the
// background mentions.
func (b *Background) Bounds() (width, height int) {
	grow := func(cells []Cell) {
		for _, c := range cells {
			width = max(width, c.Col+1)
			height = max(height, c.Row+1)
		}
	}
	grow(b.Rocks)
	grow(b.RedAnthill)
	grow(b.BlackAnthill)
	return width, height
}

// Food is a food deposit on a cell.
type Food struct {
	Col    int
	Row    int
	Amount int
}

func (f Food) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{f.Col, f.Row, f.Amount})
}

func (f *Food) UnmarshalJSON(b []byte) error {
	var v [3]int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("replay: food: %w", err)
	}
	f.Col, f.Row, f.Amount = v[0], v[1], v[2]
	return nil
}

// Markers holds the six pheromone bits one colony left on a cell.
type Markers struct {
	Marker0 bool `json:"marker0"`
	Marker1 bool `json:"marker1"`
	Marker2 bool `json:"marker2"`
	Marker3 bool `json:"marker3"`
	Marker4 bool `json:"marker4"`
	Marker5 bool `json:"marker5"`
}

// Bits returns the markers as a six-bit mask, marker0 in bit 0.
func (m Markers) Bits() uint8 {
	var out uint8
	for i, set := range [6]bool{m.Marker0, m.Marker1, m.Marker2, m.Marker3, m.Marker4, m.Marker5} {
		if set {
			out |= 1 << i
		}
	}
	return out
}

// MarkerDeposit is a colony's marker set on one cell.
type MarkerDeposit struct {
	Col     int
	Row     int
	Markers Markers
}

func (d MarkerDeposit) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{d.Col, d.Row, d.Markers})
}

func (d *MarkerDeposit) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("replay: markers: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("replay: markers: want 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &d.Col); err != nil {
		return fmt.Errorf("replay: markers col: %w", err)
	}
	if err := json.Unmarshal(raw[1], &d.Row); err != nil {
		return fmt.Errorf("replay: markers row: %w", err)
	}
	if err := json.Unmarshal(raw[2], &d.Markers); err != nil {
		return fmt.Errorf("replay: markers set: %w", err)
	}
	return nil
}

// Ant is one agent in a frame. ID is stable across frames for as long as
// the ant is alive.
type Ant struct {
	ID      int   `json:"id"`
	Color   Color `json:"color"`
	Col     int   `json:"x"`
	Row     int   `json:"y"`
	Dir     int   `json:"dir"`
	HasFood bool  `json:"has_food"`
	State   int   `json:"state"`
	Resting int   `json:"resting"`
}

// Cell returns the ant's position.
func (a Ant) Cell() Cell {
	return Cell{Col: a.Col, Row: a.Row}
}

// Frame is one simulation snapshot.
type Frame struct {
	FrameNo      int             `json:"frame_no"`
	Food         []Food          `json:"food"`
	Ants         []Ant           `json:"ants"`
	RedMarkers   []MarkerDeposit `json:"red_markers,omitempty"`
	BlackMarkers []MarkerDeposit `json:"black_markers,omitempty"`
}

// ErrInvalidFrame is wrapped by Validate failures.
var ErrInvalidFrame = errors.New("replay: invalid frame")

// Validate checks the frame invariants.
func (f *Frame) Validate() error {
	if f.FrameNo < 0 {
		return fmt.Errorf("%w: frame_no %d is negative", ErrInvalidFrame, f.FrameNo)
	}
	for _, a := range f.Ants {
		if a.Dir < 0 || a.Dir >= 6 {
			return fmt.Errorf("%w: ant %d has direction %d", ErrInvalidFrame, a.ID, a.Dir)
		}
		if a.Color != Red && a.Color != Black {
			return fmt.Errorf("%w: ant %d has color %d", ErrInvalidFrame, a.ID, int(a.Color))
		}
	}
	return nil
}

// AntAt returns the ant on cell c. Cells should hold at most one ant; if
// several are found the last one wins.
func (f *Frame) AntAt(c Cell) (Ant, bool) {
	var (
		found Ant
		ok    bool
	)
	for _, a := range f.Ants {
		if a.Col == c.Col && a.Row == c.Row {
			found, ok = a, true
		}
	}
	return found, ok
}

// AntByID returns the ant with the given id.
func (f *Frame) AntByID(id int) (Ant, bool) {
	for _, a := range f.Ants {
		if a.ID == id {
			return a, true
		}
	}
	return Ant{}, false
}

// Markers returns the marker deposits of colony c.
func (f *Frame) Markers(c Color) []MarkerDeposit {
	if c == Red {
		return f.RedMarkers
	}
	return f.BlackMarkers
}

// Count returns the number of live ants per colony and the food they carry.
func (f *Frame) Count(c Color) (ants, carrying int) {
	for _, a := range f.Ants {
		if a.Color != c {
			continue
		}
		ants++
		if a.HasFood {
			carrying++
		}
	}
	return ants, carrying
}
