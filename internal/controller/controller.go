// Package controller holds the viewer state shared by the terminal and
// window front ends and applies typed input events to it.
//
// A front end translates its native input into Events, passes them to
// Dispatch, issues the fetches Dispatch returns, and feeds each result back
// as FrameLoaded or FrameFailed. Rendering reads the accessors; Dirty tells
// the front end whether anything changed since the last ClearDirty.
package controller

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/daviddao/antmatch_viewer/internal/hexgrid"
	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/navigator"
	"github.com/daviddao/antmatch_viewer/internal/replay"
	"github.com/daviddao/antmatch_viewer/internal/selection"
)

// Event is one input to Dispatch.
type Event interface {
	event()
}

// Pan moves the viewport by a screen-space delta.
type Pan struct{ DX, DY float64 }

// Zoom scales the viewport by Factor around screen point (X, Y).
type Zoom struct{ X, Y, Factor float64 }

// Wheel is a raw scroll event at (X, Y).
type Wheel struct {
	X, Y  float64
	Delta float64
	Unit  hexgrid.DeltaUnit
}

// Select picks the ant under screen point (X, Y).
type Select struct{ X, Y float64 }

// ClearSelection drops the selection.
type ClearSelection struct{}

// StepFrame moves the desired frame by Delta.
type StepFrame struct{ Delta int }

// GotoFrame sets the desired frame.
type GotoFrame struct{ FrameNo int }

// Resize reports a new viewport size.
type Resize struct{ W, H float64 }

// FitView resets the viewport so the whole map is visible.
type FitView struct{}

// ToggleFollow switches follow mode, which keeps the selected ant centred.
type ToggleFollow struct{}

// FrameLoaded delivers a completed fetch.
type FrameLoaded struct {
	Fetch navigator.Fetch
	Frame *replay.Frame
}

// FrameFailed delivers a failed fetch.
type FrameFailed struct {
	Fetch navigator.Fetch
	Err   error
}

func (Pan) event()            {}
func (Zoom) event()           {}
func (Wheel) event()          {}
func (Select) event()         {}
func (ClearSelection) event() {}
func (StepFrame) event()      {}
func (GotoFrame) event()      {}
func (Resize) event()         {}
func (FitView) event()        {}
func (ToggleFollow) event()   {}
func (FrameLoaded) event()    {}
func (FrameFailed) event()    {}

// Viewer is the state of one open match.
type Viewer struct {
	match replay.Match
	bg    *replay.Background
	mapW  int
	mapH  int

	viewW, viewH float64
	transform    hexgrid.Transform
	// autoFit is true until the user pans or zooms; while set, Resize refits.
	autoFit bool

	nav    *navigator.Navigator
	sel    *selection.Model
	follow bool
	dirty  bool
}

// New returns a viewer for match m with background bg. Highlight changes
// are reported to marker, which may be nil.
func New(m replay.Match, bg *replay.Background, marker selection.Marker) *Viewer {
	w, h := bg.Bounds()
	return &Viewer{
		match:     m,
		bg:        bg,
		mapW:      w,
		mapH:      h,
		transform: hexgrid.Transform{Scale: 1},
		autoFit:   true,
		nav:       navigator.New(),
		sel:       selection.New(marker),
		dirty:     true,
	}
}

// Start requests the first frame.
func (v *Viewer) Start() navigator.Fetch {
	return v.nav.Request(0)
}

func (v *Viewer) Match() replay.Match             { return v.match }
func (v *Viewer) Background() *replay.Background  { return v.bg }
func (v *Viewer) Transform() hexgrid.Transform    { return v.transform }
func (v *Viewer) Frame() *replay.Frame            { return v.nav.Committed() }
func (v *Viewer) Navigator() *navigator.Navigator { return v.nav }
func (v *Viewer) Selection() *selection.Model     { return v.sel }
func (v *Viewer) Follow() bool                    { return v.follow }
func (v *Viewer) ViewSize() (w, h float64)        { return v.viewW, v.viewH }
func (v *Viewer) MapSize() (width, height int)    { return v.mapW, v.mapH }
func (v *Viewer) Dirty() bool                     { return v.dirty }
func (v *Viewer) ClearDirty()                     { v.dirty = false }
func (v *Viewer) SetMarker(m selection.Marker)    { v.sel.SetMarker(m) }
func (v *Viewer) Indicator() string               { return v.nav.Indicator() }

// SelectedAnt returns the selected ant as it appears in the committed frame.
func (v *Viewer) SelectedAnt() (replay.Ant, bool) {
	id, ok := v.sel.Selected()
	if !ok || v.nav.Committed() == nil {
		return replay.Ant{}, false
	}
	return v.nav.Committed().AntByID(id)
}

// Dispatch applies ev and returns the fetches the caller must issue. On
// error the state is unchanged.
func (v *Viewer) Dispatch(ev Event) ([]navigator.Fetch, error) {
	switch ev := ev.(type) {
	case Pan:
		v.setTransform(v.transform.Pan(ev.DX, ev.DY))

	case Zoom:
		t, err := v.transform.Zoom(ev.X, ev.Y, ev.Factor)
		if err != nil {
			return nil, err
		}
		v.setTransform(t)

	case Wheel:
		factor, err := hexgrid.WheelFactor(ev.Delta, ev.Unit)
		if err != nil {
			logger.Log.WithError(err).WithField("unit", ev.Unit).Error("wheel event rejected")
			return nil, err
		}
		t, err := v.transform.Zoom(ev.X, ev.Y, factor)
		if err != nil {
			return nil, err
		}
		v.setTransform(t)

	case Select:
		v.sel.SelectAt(v.transform, v.nav.Committed(), ev.X, ev.Y)
		v.dirty = true

	case ClearSelection:
		v.sel.Clear()
		v.dirty = true

	case StepFrame:
		v.dirty = true
		return []navigator.Fetch{v.nav.Step(ev.Delta)}, nil

	case GotoFrame:
		v.dirty = true
		return []navigator.Fetch{v.nav.Request(ev.FrameNo)}, nil

	case Resize:
		if ev.W <= 0 || ev.H <= 0 {
			return nil, fmt.Errorf("controller: viewport %gx%g is empty", ev.W, ev.H)
		}
		v.viewW, v.viewH = ev.W, ev.H
		if v.autoFit {
			if err := v.fit(); err != nil {
				return nil, err
			}
		}
		v.dirty = true

	case FitView:
		if err := v.fit(); err != nil {
			return nil, err
		}
		v.autoFit = true
		v.dirty = true

	case ToggleFollow:
		v.follow = !v.follow
		if v.follow {
			v.centreSelected()
		}
		v.dirty = true

	case FrameLoaded:
		if !v.nav.Complete(ev.Frame) {
			logger.Log.WithFields(logrus.Fields{
				"frame_no": frameNo(ev.Frame),
				"seq":      ev.Fetch.Seq,
				"desired":  v.nav.Desired(),
			}).Debug("frame discarded")
			v.dirty = true
			return nil, nil
		}
		v.sel.Recompute(ev.Frame)
		if v.follow {
			v.centreSelected()
		}
		v.dirty = true

	case FrameFailed:
		v.nav.Fail(ev.Err)
		logger.Log.WithFields(logrus.Fields{
			"match":    v.match.Key(),
			"frame_no": ev.Fetch.FrameNo,
			"seq":      ev.Fetch.Seq,
		}).WithError(ev.Err).Warn("frame fetch failed")
		v.dirty = true

	default:
		return nil, fmt.Errorf("controller: unknown event %T", ev)
	}
	return nil, nil
}

func (v *Viewer) setTransform(t hexgrid.Transform) {
	v.transform = t
	v.autoFit = false
	v.dirty = true
}

func (v *Viewer) fit() error {
	if v.viewW <= 0 || v.viewH <= 0 || v.mapW == 0 || v.mapH == 0 {
		return nil
	}
	t, err := hexgrid.Fit(v.mapW, v.mapH, v.viewW, v.viewH)
	if err != nil {
		return err
	}
	v.transform = t
	return nil
}

// centreSelected pans so the selected ant sits in the middle of the
// viewport. It does nothing if the ant is not in the committed frame.
func (v *Viewer) centreSelected() {
	a, ok := v.SelectedAnt()
	if !ok || v.viewW <= 0 {
		return
	}
	x, y := v.transform.Apply(a.Col, a.Row)
	v.transform = v.transform.Pan(v.viewW/2-x, v.viewH/2-y)
	v.autoFit = false
}

func frameNo(f *replay.Frame) int {
	if f == nil {
		return -1
	}
	return f.FrameNo
}
