package replay

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// World is a parsed ".world" map file: the static background plus the food
// and ants present before the first round.
type World struct {
	Width   int
	Height  int
	Rocks   []Cell
	Anthill [2][]Cell
	Food    []Food
}

// ParseWorld reads the plain-text world format: the width and height on
// their own lines, then one line per row of whitespace-separated tokens.
// Odd rows are conventionally indented by one space; the indentation is not
// significant.
//
//	#  rock
//	.  clear
//	+  red anthill
//	-  black anthill
//	N  clear cell with N food (1-9)
func ParseWorld(r io.Reader) (*World, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	readInt := func(what string) (int, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, fmt.Errorf("world: read %s: %w", what, err)
			}
			return 0, fmt.Errorf("world: missing %s", what)
		}
		n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("world: bad %s %q", what, sc.Text())
		}
		return n, nil
	}

	w := &World{}
	var err error
	if w.Width, err = readInt("width"); err != nil {
		return nil, err
	}
	if w.Height, err = readInt("height"); err != nil {
		return nil, err
	}

	for row := 0; row < w.Height; row++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("world: row %d: %w", row, err)
			}
			return nil, fmt.Errorf("world: expected %d rows, got %d", w.Height, row)
		}
		tokens := strings.Fields(sc.Text())
		// Tokens may also be written without separators ("#..+#").
		if len(tokens) == 1 && len(tokens[0]) == w.Width {
			tokens = strings.Split(tokens[0], "")
		}
		if len(tokens) != w.Width {
			return nil, fmt.Errorf("world: row %d has %d cells, want %d", row, len(tokens), w.Width)
		}
		for col, tok := range tokens {
			c := Cell{Col: col, Row: row}
			switch tok {
			case "#":
				w.Rocks = append(w.Rocks, c)
			case ".":
			case "+":
				w.Anthill[Red] = append(w.Anthill[Red], c)
			case "-":
				w.Anthill[Black] = append(w.Anthill[Black], c)
			default:
				n, err := strconv.Atoi(tok)
				if err != nil || n < 1 || n > 9 {
					return nil, fmt.Errorf("world: row %d col %d: unknown token %q", row, col, tok)
				}
				w.Food = append(w.Food, Food{Col: col, Row: row, Amount: n})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	return w, nil
}

// Background returns the world's static data with the given automaton
// sources.
func (w *World) Background(redBrain, blackBrain string) *Background {
	return &Background{
		Rocks:        w.Rocks,
		RedAnthill:   w.Anthill[Red],
		BlackAnthill: w.Anthill[Black],
		RedBrain:     redBrain,
		BlackBrain:   blackBrain,
	}
}

// InitialFrame returns frame 0: the world's food, and one ant facing east
// in state 0 on every anthill cell. Ant ids are assigned in row-major order.
func (w *World) InitialFrame() *Frame {
	type hill struct {
		cell  Cell
		color Color
	}
	var hills []hill
	for _, c := range Colors {
		for _, cell := range w.Anthill[c] {
			hills = append(hills, hill{cell, c})
		}
	}
	slices.SortFunc(hills, func(a, b hill) int {
		if c := cmp.Compare(a.cell.Row, b.cell.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.cell.Col, b.cell.Col)
	})

	f := &Frame{FrameNo: 0, Food: append([]Food(nil), w.Food...)}
	for id, h := range hills {
		f.Ants = append(f.Ants, Ant{ID: id, Color: h.color, Col: h.cell.Col, Row: h.cell.Row})
	}
	return f
}
