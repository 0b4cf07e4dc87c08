package main

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/daviddao/antmatch_viewer/internal/brainlist"
	"github.com/daviddao/antmatch_viewer/internal/controller"
	"github.com/daviddao/antmatch_viewer/internal/datasource"
	"github.com/daviddao/antmatch_viewer/internal/hexgrid"
	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/navigator"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

const (
	// dragSlop is how far the pointer may move, in pixels, before a press
	// becomes a drag instead of a click.
	dragSlop = 3

	// Arrow keys held down repeat after repeatDelay ticks, every repeatEvery.
	repeatDelay = 20
	repeatEvery = 3

	statusTicks = 180
)

// result is a finished frame fetch, handed from the fetch goroutine to
// Update.
type result struct {
	fetch navigator.Fetch
	frame *replay.Frame
	err   error
}

// input is one tick's worth of pointer and keyboard state.
type input struct {
	x, y     int
	wheel    float64
	pressed  bool
	released bool
	keys     []ebiten.Key
	shift    bool
	ctrl     bool
}

// Game implements ebiten.Game over a controller.Viewer.
type Game struct {
	src     datasource.Source
	viewer  *controller.Viewer
	brains  *brainlist.List
	server  string
	terrain map[replay.Cell]cellKind
	results chan result

	width, height  int
	sizedW, sizedH int

	dragging, dragMoved bool
	pressX, pressY      int
	dragX, dragY        int

	status    string
	statusTTL int
	quit      bool
}

func newGame(src datasource.Source, m replay.Match, bg *replay.Background, server string) *Game {
	brains := brainlist.New(bg)
	return &Game{
		src:     src,
		viewer:  controller.New(m, bg, brains),
		brains:  brains,
		server:  server,
		terrain: newTerrain(bg),
		results: make(chan result, 64),
	}
}

// start requests the opening frame.
func (g *Game) start(frame int) {
	if frame > 0 {
		g.dispatch(controller.GotoFrame{FrameNo: frame})
		return
	}
	g.fetch(g.viewer.Start())
}

func (g *Game) fetch(fs ...navigator.Fetch) {
	m := g.viewer.Match()
	for _, f := range fs {
		go func() {
			frame, err := g.src.Frame(context.Background(), m, f.FrameNo)
			g.results <- result{fetch: f, frame: frame, err: err}
		}()
	}
}

func (g *Game) dispatch(ev controller.Event) {
	fetches, err := g.viewer.Dispatch(ev)
	if err != nil {
		logger.Log.WithError(err).Debugf("%T ignored", ev)
		return
	}
	g.fetch(fetches...)
}

func (g *Game) handle(r result) {
	if r.err != nil {
		g.dispatch(controller.FrameFailed{Fetch: r.fetch, Err: r.err})
		return
	}
	g.dispatch(controller.FrameLoaded{Fetch: r.fetch, Frame: r.frame})
}

// drain applies the fetches that have finished since the last tick.
func (g *Game) drain() {
	for {
		select {
		case r := <-g.results:
			g.handle(r)
		default:
			return
		}
	}
}

func (g *Game) Update() error {
	return g.tick(readInput())
}

func (g *Game) tick(in input) error {
	if g.quit {
		return ebiten.Termination
	}
	g.drain()
	g.resize()
	g.apply(in)
	if g.statusTTL > 0 {
		g.statusTTL--
		if g.statusTTL == 0 {
			g.status = ""
		}
	}
	return nil
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// mapSize returns the map area: the window minus the panel and status bar.
func (g *Game) mapSize() (w, h int) {
	return max(g.width-panelWidth, 1), max(g.height-statusHeight, 1)
}

func (g *Game) resize() {
	if g.width == 0 || (g.width == g.sizedW && g.height == g.sizedH) {
		return
	}
	g.sizedW, g.sizedH = g.width, g.height
	w, h := g.mapSize()
	g.brains.SetRows((g.height - brainTop - panelPad) / lineHeight)
	g.dispatch(controller.Resize{W: float64(w), H: float64(h)})
}

func readInput() input {
	in := input{
		pressed:  inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		released: inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
		keys:     inpututil.AppendJustPressedKeys(nil),
		shift:    ebiten.IsKeyPressed(ebiten.KeyShift),
		ctrl:     ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta),
	}
	in.x, in.y = ebiten.CursorPosition()
	_, in.wheel = ebiten.Wheel()
	for _, k := range []ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyArrowLeft} {
		if d := inpututil.KeyPressDuration(k); d > repeatDelay && d%repeatEvery == 0 {
			in.keys = append(in.keys, k)
		}
	}
	return in
}

func (g *Game) apply(in input) {
	w, h := g.mapSize()
	onMap := in.x >= 0 && in.x < w && in.y >= 0 && in.y < h
	px, py := float64(in.x), float64(in.y)

	if in.wheel != 0 {
		if onMap {
			// Ebiten reports wheel-up as positive; zooming treats it as a
			// negative line delta.
			g.dispatch(controller.Wheel{X: px, Y: py, Delta: -in.wheel, Unit: hexgrid.DeltaLine})
		} else {
			g.brains.Scroll(-int(in.wheel * 3))
		}
	}

	if in.pressed && onMap {
		g.dragging, g.dragMoved = true, false
		g.pressX, g.pressY = in.x, in.y
		g.dragX, g.dragY = in.x, in.y
	}
	if g.dragging {
		if !g.dragMoved && abs(in.x-g.pressX)+abs(in.y-g.pressY) > dragSlop {
			g.dragMoved = true
		}
		if g.dragMoved && (in.x != g.dragX || in.y != g.dragY) {
			g.dispatch(controller.Pan{DX: float64(in.x - g.dragX), DY: float64(in.y - g.dragY)})
			g.dragX, g.dragY = in.x, in.y
		}
	}
	if in.released {
		click := g.dragging && !g.dragMoved
		g.dragging = false
		if click && onMap {
			g.dispatch(controller.Select{X: px, Y: py})
		}
	}

	for _, k := range in.keys {
		g.key(k, in.shift, in.ctrl)
	}
}

func (g *Game) key(k ebiten.Key, shift, ctrl bool) {
	w, h := g.mapSize()
	cx, cy := float64(w)/2, float64(h)/2
	pan := float64(w) / 8

	switch k {
	case ebiten.KeyArrowRight, ebiten.KeyL:
		g.dispatch(controller.StepFrame{Delta: navigator.StepSize(shift, ctrl)})
	case ebiten.KeyArrowLeft, ebiten.KeyH:
		g.dispatch(controller.StepFrame{Delta: -navigator.StepSize(shift, ctrl)})
	case ebiten.KeyHome, ebiten.KeyG:
		g.dispatch(controller.GotoFrame{FrameNo: 0})

	case ebiten.KeyEscape:
		g.dispatch(controller.ClearSelection{})
	case ebiten.KeyF:
		g.dispatch(controller.ToggleFollow{})
		if g.viewer.Follow() {
			g.setStatus("following selected ant")
		} else {
			g.setStatus("follow off")
		}
	case ebiten.KeyY:
		if err := clipboard.WriteAll(g.viewer.Match().Address(g.server)); err != nil {
			logger.Log.WithError(err).Warn("clipboard")
			g.setStatus("clipboard unavailable: " + err.Error())
		} else {
			g.setStatus("address copied")
		}

	case ebiten.KeyNumpadAdd:
		g.dispatch(controller.Zoom{X: cx, Y: cy, Factor: 1.25})
	case ebiten.KeyEqual:
		if shift {
			g.dispatch(controller.Zoom{X: cx, Y: cy, Factor: 1.25})
		} else {
			g.dispatch(controller.FitView{})
		}
	case ebiten.KeyMinus, ebiten.KeyNumpadSubtract:
		g.dispatch(controller.Zoom{X: cx, Y: cy, Factor: 0.8})

	case ebiten.KeyW:
		g.dispatch(controller.Pan{DY: pan})
	case ebiten.KeyS:
		g.dispatch(controller.Pan{DY: -pan})
	case ebiten.KeyA:
		g.dispatch(controller.Pan{DX: pan})
	case ebiten.KeyD:
		g.dispatch(controller.Pan{DX: -pan})

	case ebiten.KeyC:
		g.brains.ShowColor(g.brains.Color().Opponent())
	case ebiten.KeyArrowUp, ebiten.KeyK:
		g.brains.Scroll(-1)
	case ebiten.KeyArrowDown, ebiten.KeyJ:
		g.brains.Scroll(1)
	case ebiten.KeyPageUp:
		g.brains.Scroll(-g.brains.Rows())
	case ebiten.KeyPageDown:
		g.brains.Scroll(g.brains.Rows())

	case ebiten.KeyQ:
		g.quit = true
	}
}

func (g *Game) setStatus(s string) {
	g.status = s
	g.statusTTL = statusTicks
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
