package main

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/charmbracelet/x/ansi"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/daviddao/antmatch_viewer/internal/hexgrid"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// Layout, in pixels.
const (
	panelWidth   = 320
	panelPad     = 8
	statusHeight = 20
	lineHeight   = 16
	charWidth    = 7

	// brainHeader is the number of panel lines above the automaton listing.
	brainHeader = 10
	brainTop    = panelPad + brainHeader*lineHeight
)

type cellKind int

const (
	cellEmpty cellKind = iota
	cellRock
	cellRedHill
	cellBlackHill
	numCellKinds
)

var (
	backgroundColor = color.RGBA{0x14, 0x16, 0x1a, 0xff}
	panelColor      = color.RGBA{0x1e, 0x21, 0x27, 0xff}
	statusColor     = color.RGBA{0x28, 0x2c, 0x34, 0xff}
	textColor       = color.RGBA{0xdc, 0xdc, 0xdc, 0xff}
	dimColor        = color.RGBA{0x80, 0x84, 0x8c, 0xff}
	errorColor      = color.RGBA{0xff, 0x60, 0x60, 0xff}
	markRowColor    = color.RGBA{0x5a, 0x4a, 0x10, 0xff}
	foodColor       = color.RGBA{0xf0, 0xc8, 0x30, 0xff}
	selectColor     = color.RGBA{0xff, 0xff, 0x60, 0xff}

	cellColors = [numCellKinds]color.RGBA{
		cellEmpty:     {0x3c, 0x5a, 0x3a, 0xff},
		cellRock:      {0x6e, 0x6a, 0x66, 0xff},
		cellRedHill:   {0x8a, 0x44, 0x40, 0xff},
		cellBlackHill: {0x2a, 0x2c, 0x34, 0xff},
	}

	antColors = [2]color.RGBA{
		replay.Red:   {0xe8, 0x3c, 0x32, 0xff},
		replay.Black: {0x10, 0x10, 0x12, 0xff},
	}
	labelColors = [2]color.RGBA{
		replay.Red:   {0xff, 0x70, 0x66, 0xff},
		replay.Black: {0xb4, 0xbc, 0xd0, 0xff},
	}
	markerColors = [2]color.RGBA{
		replay.Red:   {0xff, 0x90, 0x90, 0xff},
		replay.Black: {0x90, 0xa0, 0xff, 0xff},
	}
)

// face is ASCII only.
var face = text.NewGoXFace(basicfont.Face7x13)

var dirNames = [6]string{"E", "SE", "SW", "W", "NW", "NE"}

func newTerrain(bg *replay.Background) map[replay.Cell]cellKind {
	t := make(map[replay.Cell]cellKind)
	for _, c := range bg.RedAnthill {
		t[c] = cellRedHill
	}
	for _, c := range bg.BlackAnthill {
		t[c] = cellBlackHill
	}
	for _, c := range bg.Rocks {
		t[c] = cellRock
	}
	return t
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	w, h := g.mapSize()
	g.drawMap(screen.SubImage(image.Rect(0, 0, w, h)).(*ebiten.Image), w, h)
	g.drawPanel(screen, w)
	g.drawStatus(screen, w, h)
}

func (g *Game) drawMap(dst *ebiten.Image, w, h int) {
	t := g.viewer.Transform()
	mw, mh := g.viewer.MapSize()
	vw, vh := float64(w), float64(h)

	// Cells with a gap between them once they are big enough to show it.
	size := t.Scale
	if size >= 8 {
		size *= 0.94
	}
	var paths [numCellKinds]vector.Path
	for row := 0; row < mh; row++ {
		for col := 0; col < mw; col++ {
			x, y := t.Apply(col, row)
			if !t.Visible(x, y, vw, vh) {
				continue
			}
			hexPath(&paths[g.terrain[replay.Cell{Col: col, Row: row}]], x, y, size)
		}
	}
	for k := range paths {
		fillPath(dst, &paths[k], cellColors[k])
	}

	f := g.viewer.Frame()
	if f == nil {
		return
	}
	s := float32(t.Scale)

	if t.Scale >= 8 {
		for _, c := range replay.Colors {
			radius := 0.36 * t.Scale
			if c == replay.Black {
				radius = 0.24 * t.Scale
			}
			for _, d := range f.Markers(c) {
				x, y := t.Apply(d.Col, d.Row)
				if !t.Visible(x, y, vw, vh) {
					continue
				}
				bits := d.Markers.Bits()
				for i := 0; i < 6; i++ {
					if bits&(1<<i) == 0 {
						continue
					}
					dx, dy := hexgrid.DirVector(i)
					vector.FillCircle(dst, float32(x+dx*radius), float32(y+dy*radius), max(s*0.05, 1), markerColors[c], true)
				}
			}
		}
	}

	for _, food := range f.Food {
		x, y := t.Apply(food.Col, food.Row)
		if !t.Visible(x, y, vw, vh) {
			continue
		}
		vector.FillCircle(dst, float32(x), float32(y), max(s*0.3, 1.5), foodColor, true)
		if t.Scale >= 24 {
			label := strconv.Itoa(food.Amount)
			drawText(dst, label, int(x)-len(label)*charWidth/2, int(y)-6, backgroundColor)
		}
	}

	selected, hasSelection := g.viewer.Selection().Selected()
	for _, a := range f.Ants {
		x, y := t.Apply(a.Col, a.Row)
		if !t.Visible(x, y, vw, vh) {
			continue
		}
		r := max(s*0.28, 1.5)
		cx, cy := float32(x), float32(y)
		vector.FillCircle(dst, cx, cy, r, antColors[a.Color], true)
		dx, dy := hexgrid.DirVector(a.Dir)
		vector.StrokeLine(dst, cx, cy, cx+float32(dx)*s*0.45, cy+float32(dy)*s*0.45, max(s*0.06, 1), antColors[a.Color], true)
		if a.HasFood {
			vector.FillCircle(dst, cx, cy, r*0.45, foodColor, true)
		}
		if hasSelection && a.ID == selected {
			vector.StrokeCircle(dst, cx, cy, r+3, 2, selectColor, true)
		}
	}
}

func hexPath(p *vector.Path, x, y, size float64) {
	cs := hexgrid.HexCorners(x, y, size)
	p.MoveTo(float32(cs[0][0]), float32(cs[0][1]))
	for _, c := range cs[1:] {
		p.LineTo(float32(c[0]), float32(c[1]))
	}
	p.Close()
}

func fillPath(dst *ebiten.Image, p *vector.Path, c color.Color) {
	op := &vector.DrawPathOptions{AntiAlias: true}
	op.ColorScale.ScaleWithColor(c)
	vector.FillPath(dst, p, &vector.FillOptions{}, op)
}

func drawText(dst *ebiten.Image, s string, x, y int, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, face, op)
}

type panelLine struct {
	text  string
	color color.Color
}

// panelLines returns the panel text above the automaton listing, always
// brainHeader lines.
func (g *Game) panelLines() []panelLine {
	lines := []panelLine{{"frame " + g.viewer.Indicator(), textColor}}

	f := g.viewer.Frame()
	for _, c := range replay.Colors {
		if f == nil {
			lines = append(lines, panelLine{fmt.Sprintf("%-6s -", c), labelColors[c]})
			continue
		}
		ants, carrying := f.Count(c)
		lines = append(lines, panelLine{fmt.Sprintf("%-6s %d ants, %d carrying", c, ants, carrying), labelColors[c]})
	}
	lines = append(lines, panelLine{})

	if a, ok := g.viewer.SelectedAnt(); ok {
		food := "no food"
		if a.HasFood {
			food = "carrying food"
		}
		lines = append(lines,
			panelLine{fmt.Sprintf("ant #%d %s", a.ID, a.Color), labelColors[a.Color]},
			panelLine{fmt.Sprintf("at %d,%d  facing %s", a.Col, a.Row, dirNames[a.Dir]), textColor},
			panelLine{fmt.Sprintf("state %d  resting %d", a.State, a.Resting), textColor},
			panelLine{food, dimColor},
		)
	} else if id, ok := g.viewer.Selection().Selected(); ok {
		lines = append(lines, panelLine{fmt.Sprintf("ant #%d", id), textColor}, panelLine{"not in this frame", dimColor}, panelLine{}, panelLine{})
	} else {
		lines = append(lines, panelLine{"no ant selected", dimColor}, panelLine{}, panelLine{}, panelLine{})
	}
	lines = append(lines, panelLine{})
	lines = append(lines, panelLine{fmt.Sprintf("%s brain (%d states)", g.brains.Color(), g.brains.Len()), labelColors[g.brains.Color()]})
	return lines
}

func (g *Game) drawPanel(dst *ebiten.Image, x0 int) {
	vector.FillRect(dst, float32(x0), 0, panelWidth, float32(g.height), panelColor, false)
	cols := (panelWidth - 2*panelPad) / charWidth
	x := x0 + panelPad

	for i, l := range g.panelLines() {
		if l.text == "" {
			continue
		}
		drawText(dst, ansi.Truncate(l.text, cols, "~"), x, panelPad+i*lineHeight, l.color)
	}
	for i, row := range g.brains.Visible() {
		y := brainTop + i*lineHeight
		c := dimColor
		if row.Marked {
			vector.FillRect(dst, float32(x0), float32(y-1), panelWidth, lineHeight, markRowColor, false)
			c = textColor
		}
		drawText(dst, ansi.Truncate(fmt.Sprintf("%4d  %s", row.State, row.Text), cols, "~"), x, y, c)
	}
}

// statusText returns the status bar's left and right parts.
func (g *Game) statusText() (left, right string, leftColor color.Color) {
	switch {
	case g.status != "":
		left, leftColor = g.status, textColor
	case g.viewer.Navigator().LastError() != nil:
		left, leftColor = "fetch failed: "+g.viewer.Navigator().LastError().Error(), errorColor
	default:
		left, leftColor = "click ant: select  drag: pan  wheel: zoom  arrows: frames", dimColor
	}
	right = fmt.Sprintf("%.1fpx/hex  frame %s", g.viewer.Transform().Scale, g.viewer.Indicator())
	if g.viewer.Follow() {
		right = "[follow]  " + right
	}
	return left, right, leftColor
}

func (g *Game) drawStatus(dst *ebiten.Image, w, y0 int) {
	vector.FillRect(dst, 0, float32(y0), float32(w), statusHeight, statusColor, false)
	left, right, lc := g.statusText()
	ty := y0 + (statusHeight-13)/2
	rx := w - panelPad - len([]rune(right))*charWidth
	cols := max((rx-2*panelPad)/charWidth, 0)
	drawText(dst, ansi.Truncate(left, cols, "~"), panelPad, ty, lc)
	drawText(dst, right, rx, ty, textColor)
}
