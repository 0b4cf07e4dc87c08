package main

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/antmatch_viewer/internal/brainlist"
	"github.com/daviddao/antmatch_viewer/internal/controller"
	"github.com/daviddao/antmatch_viewer/internal/datasource"
	"github.com/daviddao/antmatch_viewer/internal/hexgrid"
	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/navigator"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// cellAspect is the height of a terminal cell in units of its width. The
// map is laid out in "pixels" where one pixel is one cell wide.
const cellAspect = 2.0

// panelWidth is the width of the side panel, separator included.
const panelWidth = 38

// --- Messages ---

type frameMsg struct {
	fetch navigator.Fetch
	frame *replay.Frame
	err   error
}

type clearStatusMsg struct{ id int }

// --- Model ---

type uiModel struct {
	src    datasource.Source
	viewer *controller.Viewer
	brains *brainlist.List
	server string

	startFrame int
	width      int
	height     int

	// Left-button drag state, in terminal cells.
	dragging  bool
	dragMoved bool
	dragX     int
	dragY     int

	help     help.Model
	showHelp bool

	status   string
	statusID int

	cache *mapCache
}

func newModel(src datasource.Source, m replay.Match, bg *replay.Background, server string) uiModel {
	brains := brainlist.New(bg)
	h := help.New()
	h.ShowAll = true
	return uiModel{
		src:    src,
		viewer: controller.New(m, bg, brains),
		brains: brains,
		server: server,
		help:   h,
		cache:  &mapCache{},
	}
}

func (m uiModel) Init() tea.Cmd {
	if m.startFrame > 0 {
		return m.dispatch(controller.GotoFrame{FrameNo: m.startFrame})
	}
	return m.fetch(m.viewer.Start())
}

// fetch issues one frame request in the background.
func (m uiModel) fetch(f navigator.Fetch) tea.Cmd {
	src, match := m.src, m.viewer.Match()
	return func() tea.Msg {
		frame, err := src.Frame(context.Background(), match, f.FrameNo)
		return frameMsg{fetch: f, frame: frame, err: err}
	}
}

// dispatch applies ev and turns the resulting fetches into commands.
func (m uiModel) dispatch(ev controller.Event) tea.Cmd {
	fetches, err := m.viewer.Dispatch(ev)
	if err != nil {
		logger.Log.WithError(err).Debugf("%T rejected", ev)
		return nil
	}
	if len(fetches) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, len(fetches))
	for i, f := range fetches {
		cmds[i] = m.fetch(f)
	}
	return tea.Batch(cmds...)
}

// mapSize returns the map area in terminal cells.
func (m uiModel) mapSize() (w, h int) {
	w = m.width - panelWidth
	h = m.height - 1 - m.bottomHeight()
	return max(w, 1), max(h, 1)
}

// toPixel returns the map-space point at the centre of terminal cell (x, y).
func toPixel(x, y int) (float64, float64) {
	return float64(x) + 0.5, (float64(y) + 0.5) * cellAspect
}

// inMap reports whether screen cell (x, y) lies on the map and returns its
// map-relative coordinates.
func (m uiModel) inMap(x, y int) (int, int, bool) {
	w, h := m.mapSize()
	y-- // title bar
	return x, y, x >= 0 && x < w && y >= 0 && y < h
}

func (m uiModel) resize() tea.Cmd {
	w, h := m.mapSize()
	m.brains.SetRows(h - brainHeader)
	return m.dispatch(controller.Resize{W: float64(w), H: float64(h) * cellAspect})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, m.resize()

	case frameMsg:
		var ev controller.Event = controller.FrameLoaded{Fetch: msg.fetch, Frame: msg.frame}
		if msg.err != nil {
			ev = controller.FrameFailed{Fetch: msg.fetch, Err: msg.err}
		}
		return m, m.dispatch(ev)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
	}
	return m, nil
}

func (m uiModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if delta, ok := stepDelta(msg); ok {
		return m, m.dispatch(controller.StepFrame{Delta: delta})
	}

	w, h := m.mapSize()
	cx, cy := toPixel(w/2, h/2)
	panStep := float64(w) / 8

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Esc):
		return m, m.dispatch(controller.ClearSelection{})

	case key.Matches(msg, keys.Follow):
		cmd := m.dispatch(controller.ToggleFollow{})
		if m.viewer.Follow() {
			m = m.setStatus("following selected ant")
		} else {
			m = m.setStatus("follow off")
		}
		return m, tea.Batch(cmd, clearStatusAfter(m.statusID))

	case key.Matches(msg, keys.First):
		return m, m.dispatch(controller.GotoFrame{FrameNo: 0})

	case key.Matches(msg, keys.Copy):
		addr := m.viewer.Match().Address(m.server)
		if err := clipboard.WriteAll(addr); err != nil {
			logger.Log.WithError(err).Warn("clipboard")
			m = m.setStatus("clipboard unavailable: " + err.Error())
		} else {
			m = m.setStatus("address copied")
		}
		return m, clearStatusAfter(m.statusID)

	case key.Matches(msg, keys.ZoomIn):
		return m, m.dispatch(controller.Zoom{X: cx, Y: cy, Factor: 1.25})

	case key.Matches(msg, keys.ZoomOut):
		return m, m.dispatch(controller.Zoom{X: cx, Y: cy, Factor: 0.8})

	case key.Matches(msg, keys.Fit):
		return m, m.dispatch(controller.FitView{})

	case key.Matches(msg, keys.PanUp):
		return m, m.dispatch(controller.Pan{DY: panStep})
	case key.Matches(msg, keys.PanDown):
		return m, m.dispatch(controller.Pan{DY: -panStep})
	case key.Matches(msg, keys.PanLeft):
		return m, m.dispatch(controller.Pan{DX: panStep})
	case key.Matches(msg, keys.PanRight):
		return m, m.dispatch(controller.Pan{DX: -panStep})

	case key.Matches(msg, keys.Colony):
		m.brains.ShowColor(m.brains.Color().Opponent())

	case key.Matches(msg, keys.BrainUp):
		m.brains.Scroll(-1)
	case key.Matches(msg, keys.BrainDown):
		m.brains.Scroll(1)

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, m.resize()
	}
	return m, nil
}

func (m uiModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	x, y, onMap := m.inMap(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if !onMap {
			if msg.Button == tea.MouseButtonWheelUp {
				m.brains.Scroll(-3)
			} else {
				m.brains.Scroll(3)
			}
			return m, nil
		}
		px, py := toPixel(x, y)
		delta := 1.0
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		return m, m.dispatch(controller.Wheel{X: px, Y: py, Delta: delta, Unit: hexgrid.DeltaLine})

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !onMap {
			return m, nil
		}
		m.dragging, m.dragMoved = true, false
		m.dragX, m.dragY = msg.X, msg.Y

	case msg.Action == tea.MouseActionMotion && m.dragging:
		dx, dy := msg.X-m.dragX, msg.Y-m.dragY
		if dx == 0 && dy == 0 {
			return m, nil
		}
		m.dragX, m.dragY = msg.X, msg.Y
		m.dragMoved = true
		return m, m.dispatch(controller.Pan{DX: float64(dx), DY: float64(dy) * cellAspect})

	case msg.Action == tea.MouseActionRelease:
		wasClick := m.dragging && !m.dragMoved
		m.dragging = false
		if wasClick && onMap {
			px, py := toPixel(x, y)
			return m, m.dispatch(controller.Select{X: px, Y: py})
		}
	}
	return m, nil
}

func (m uiModel) setStatus(s string) uiModel {
	m.status = s
	m.statusID++
	return m
}

// statusTimeout is how long a status message stays up.
var statusTimeout = 3 * time.Second

func clearStatusAfter(id int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

// stepDelta maps frame-stepping keys to a frame delta. Shift multiplies the
// step by ten and ctrl by a hundred.
func stepDelta(msg tea.KeyMsg) (int, bool) {
	var sign int
	switch {
	case key.Matches(msg, keys.Next):
		sign = 1
	case key.Matches(msg, keys.Prev):
		sign = -1
	default:
		return 0, false
	}
	s := msg.String()
	shift := s == "shift+right" || s == "shift+left" || s == "L" || s == "H" || s == "ctrl+shift+right" || s == "ctrl+shift+left"
	ctrl := s == "ctrl+right" || s == "ctrl+left" || s == "ctrl+shift+right" || s == "ctrl+shift+left" || s == "]" || s == "["
	return sign * navigator.StepSize(shift, ctrl), true
}

func (m uiModel) zoomLabel() string {
	return fmt.Sprintf("%.1fpx/hex", m.viewer.Transform().Scale)
}
