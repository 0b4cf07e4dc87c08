package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/daviddao/antmatch_viewer/internal/controller"
	"github.com/daviddao/antmatch_viewer/internal/hexgrid"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9E2AF")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)

	foodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	redStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75"))

	blackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4"))

	brainRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BAC2DE"))

	brainMarkStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#F9E2AF"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

func colonyStyle(c replay.Color) lipgloss.Style {
	if c == replay.Red {
		return redStyle
	}
	return blackStyle
}

// --- Map raster ---

// cellKind decides how a terminal cell is styled. Adjacent cells of the
// same kind are rendered as one run.
type cellKind uint8

const (
	cellOff cellKind = iota // outside the map
	cellEmpty
	cellRock
	cellRedHill
	cellBlackHill
	cellFood
	cellRedMarker
	cellBlackMarker
	cellRedAnt
	cellBlackAnt
	cellRedAntFood
	cellBlackAntFood
	cellSelected
)

var cellStyles = map[cellKind]lipgloss.Style{
	cellEmpty:        lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A")),
	cellRock:         lipgloss.NewStyle().Foreground(lipgloss.Color("#7F849C")),
	cellRedHill:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5C2B30")),
	cellBlackHill:    lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A")).Background(lipgloss.Color("#181825")),
	cellFood:         lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true),
	cellRedMarker:    lipgloss.NewStyle().Foreground(lipgloss.Color("#8C4A50")),
	cellBlackMarker:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7F849C")),
	cellRedAnt:       lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true),
	cellBlackAnt:     lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")).Bold(true),
	cellRedAntFood:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Background(lipgloss.Color("#2D4A2D")).Bold(true),
	cellBlackAntFood: lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")).Background(lipgloss.Color("#2D4A2D")).Bold(true),
	cellSelected:     lipgloss.NewStyle().Foreground(lipgloss.Color("#1E1E2E")).Background(lipgloss.Color("#F9E2AF")).Bold(true),
}

// dirArrows are the ant glyphs per direction, 0 = east, clockwise.
var dirArrows = [6]rune{'→', '↘', '↙', '←', '↖', '↗'}

type glyph struct {
	r    rune
	kind cellKind
}

// scene indexes one frame over its background for per-cell lookups.
type scene struct {
	width, height int
	rocks         map[replay.Cell]bool
	hills         map[replay.Cell]replay.Color
	food          map[replay.Cell]int
	markers       map[replay.Cell]replay.Color
	ants          map[replay.Cell]replay.Ant
	selected      int
	hasSelected   bool
}

func newScene(v *controller.Viewer) *scene {
	bg := v.Background()
	s := &scene{
		rocks:   make(map[replay.Cell]bool, len(bg.Rocks)),
		hills:   make(map[replay.Cell]replay.Color),
		food:    make(map[replay.Cell]int),
		markers: make(map[replay.Cell]replay.Color),
		ants:    make(map[replay.Cell]replay.Ant),
	}
	s.width, s.height = v.MapSize()
	s.selected, s.hasSelected = v.Selection().Selected()
	for _, c := range bg.Rocks {
		s.rocks[c] = true
	}
	for _, col := range replay.Colors {
		for _, c := range bg.Anthill(col) {
			s.hills[c] = col
		}
	}
	f := v.Frame()
	if f == nil {
		return s
	}
	for _, food := range f.Food {
		s.food[replay.Cell{Col: food.Col, Row: food.Row}] += food.Amount
	}
	for _, col := range replay.Colors {
		for _, d := range f.Markers(col) {
			if d.Markers.Bits() != 0 {
				s.markers[replay.Cell{Col: d.Col, Row: d.Row}] = col
			}
		}
	}
	for _, a := range f.Ants {
		s.ants[a.Cell()] = a
	}
	return s
}

// glyphAt returns what to draw for cell c. Objects (ants, food, markers)
// are drawn only on the terminal cell holding the hex centre; the rest of
// the hex gets the ground fill.
func (s *scene) glyphAt(c replay.Cell, centre bool) glyph {
	if c.Col < 0 || c.Row < 0 || c.Col >= s.width || c.Row >= s.height {
		return glyph{' ', cellOff}
	}
	if s.rocks[c] {
		return glyph{'▓', cellRock}
	}
	if centre {
		if a, ok := s.ants[c]; ok {
			return glyph{dirArrows[a.Dir], antKind(a, s.hasSelected && a.ID == s.selected)}
		}
		if n := s.food[c]; n > 0 {
			return glyph{foodDigit(n), cellFood}
		}
	}
	if col, ok := s.hills[c]; ok {
		if col == replay.Red {
			return glyph{'░', cellRedHill}
		}
		return glyph{'░', cellBlackHill}
	}
	if !centre {
		return glyph{' ', cellOff}
	}
	if col, ok := s.markers[c]; ok {
		if col == replay.Red {
			return glyph{'∘', cellRedMarker}
		}
		return glyph{'∘', cellBlackMarker}
	}
	return glyph{'·', cellEmpty}
}

func antKind(a replay.Ant, selected bool) cellKind {
	switch {
	case selected:
		return cellSelected
	case a.Color == replay.Red && a.HasFood:
		return cellRedAntFood
	case a.Color == replay.Red:
		return cellRedAnt
	case a.HasFood:
		return cellBlackAntFood
	}
	return cellBlackAnt
}

func foodDigit(n int) rune {
	if n > 9 {
		return '+'
	}
	return rune('0' + n)
}

// renderMap rasterises the map into h lines of w terminal cells. Each
// terminal cell shows the hex under its centre.
func renderMap(v *controller.Viewer, w, h int) []string {
	s := newScene(v)
	t := v.Transform()
	// Hexes narrower than two cells have no room for a fill.
	dense := t.Scale*hexgrid.H < 2

	lines := make([]string, h)
	row := make([]glyph, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px, py := toPixel(x, y)
			r, c := t.Unapply(px, py)
			centre := dense
			if !centre {
				hx, hy := t.Apply(c, r)
				centre = int(math.Floor(hx)) == x && int(math.Floor(hy/cellAspect)) == y
			}
			row[x] = s.glyphAt(replay.Cell{Col: c, Row: r}, centre)
		}
		lines[y] = renderRuns(row)
	}
	return lines
}

// renderRuns styles a row of glyphs, one lipgloss call per run of equal kind.
func renderRuns(row []glyph) string {
	var b strings.Builder
	var run []rune
	kind := cellOff
	flush := func() {
		if len(run) == 0 {
			return
		}
		if st, ok := cellStyles[kind]; ok {
			b.WriteString(st.Render(string(run)))
		} else {
			b.WriteString(string(run))
		}
		run = run[:0]
	}
	for _, g := range row {
		if g.kind != kind {
			flush()
			kind = g.kind
		}
		run = append(run, g.r)
	}
	flush()
	return b.String()
}

// mapCache holds the last map raster. It is rebuilt when the viewer is
// dirty or the map area changes size.
type mapCache struct {
	w, h  int
	lines []string
}

func (m uiModel) mapLines(w, h int) []string {
	c := m.cache
	if m.viewer.Dirty() || c.lines == nil || c.w != w || c.h != h {
		c.lines = renderMap(m.viewer, w, h)
		c.w, c.h = w, h
		m.viewer.ClearDirty()
	}
	return c.lines
}

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	w, h := m.mapSize()
	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')

	mapLines := m.mapLines(w, h)
	panel := m.renderPanel(h)
	sep := dimStyle.Render("│")
	for i := 0; i < h; i++ {
		b.WriteString(mapLines[i])
		b.WriteString(sep)
		b.WriteRune(' ')
		b.WriteString(panel[i])
		b.WriteRune('\n')
	}

	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}

	// Keep narrow terminals from wrapping.
	return truncateLines(b.String(), m.width)
}

// bottomHeight is the number of lines below the map.
func (m uiModel) bottomHeight() int {
	if m.showHelp {
		return lipgloss.Height(m.help.View(keys))
	}
	return 1
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("ant match viewer")
	mt := m.viewer.Match()
	info := redStyle.Render(mt.Red) + dimStyle.Render(" vs ") + blackStyle.Render(mt.Black) +
		dimStyle.Render(fmt.Sprintf(" | %s | seed %d", mt.World, mt.Seed))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(info)-1))
	return title + gap + info
}

func (m uiModel) renderStatusBar() string {
	_, selected := m.viewer.Selection().Selected()
	left := " " + contextHelp(selected, m.viewer.Follow())
	switch err := m.viewer.Navigator().LastError(); {
	case m.status != "":
		left = " " + m.status
	case err != nil:
		left = " " + errorStyle.Render("fetch failed: "+err.Error())
	}

	var right []string
	if m.viewer.Follow() {
		right = append(right, "follow")
	}
	right = append(right, m.zoomLabel(), "frame "+m.viewer.Indicator()+" ")
	r := strings.Join(right, " | ")

	gap := strings.Repeat(" ", max(1, m.width-lipgloss.Width(left)-lipgloss.Width(r)))
	return statusBarStyle.Render(left + gap + r)
}

// --- Helpers ---

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = truncate(line, width)
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to n visible cells.
func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	return ansi.Truncate(s, n, "")
}
