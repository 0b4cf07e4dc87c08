// Package navigator converges the displayed replay frame onto the most
// recently requested frame number.
//
// Frame fetches are asynchronous, cannot be cancelled and may complete in
// any order; the server may also answer with a different frame_no than the
// one asked for. Navigator never relies on ordering or exact matches: a
// completed frame is committed only if it is the desired frame or strictly
// closer to it than the frame currently shown (see Reconcile). The shown
// frame therefore never moves away from the latest target.
//
// A Navigator has a single owner (the UI event loop) and is not safe for
// concurrent use.
package navigator

import (
	"fmt"
	"strconv"

	"github.com/daviddao/antmatch_viewer/internal/replay"
)

// Verdict is the outcome of reconciling a fetched frame.
type Verdict int

const (
	Discard Verdict = iota
	Keep
)

func (v Verdict) String() string {
	if v == Keep {
		return "keep"
	}
	return "discard"
}

// Reconcile decides whether a fetched frame numbered candidate replaces the
// committed one, given the desired frame number.
func Reconcile(desired, committed, candidate int) Verdict {
	if candidate == desired {
		return Keep
	}
	if abs(candidate-desired) < abs(committed-desired) {
		return Keep
	}
	return Discard
}

// Fetch is a frame request the owner must issue. Seq increases with every
// request and is only used for logging and transport correlation.
type Fetch struct {
	FrameNo int
	Seq     uint64
}

func (f Fetch) String() string {
	return fmt.Sprintf("frame %d (#%d)", f.FrameNo, f.Seq)
}

// Step sizes for keyboard navigation.
const (
	StepSmall  = 1
	StepMedium = 10
	StepLarge  = 100
)

// StepSize returns the step for a frame key: the secondary modifier
// multiplies by ten, the tertiary one by a hundred.
func StepSize(secondary, tertiary bool) int {
	switch {
	case tertiary:
		return StepLarge
	case secondary:
		return StepMedium
	}
	return StepSmall
}

// PendingMarker is appended to the indicator while the shown frame differs
// from the desired one.
const PendingMarker = "*"

// Navigator holds the committed frame and the desired frame number.
type Navigator struct {
	committed *replay.Frame
	desired   int
	seq       uint64
	inFlight  int
	lastErr   error
}

// New returns a Navigator with nothing committed and frame 0 desired.
func New() *Navigator {
	return &Navigator{}
}

// Committed returns the frame currently shown, or nil before the first
// commit.
func (n *Navigator) Committed() *replay.Frame {
	return n.committed
}

// Desired returns the most recently requested frame number.
func (n *Navigator) Desired() int {
	return n.desired
}

// InFlight returns the number of fetches issued but not yet completed.
func (n *Navigator) InFlight() int {
	return n.inFlight
}

// LastError returns the most recent fetch failure, cleared on the next
// commit.
func (n *Navigator) LastError() error {
	return n.lastErr
}

// Pending reports whether the shown frame differs from the desired one.
func (n *Navigator) Pending() bool {
	return n.committed == nil || n.committed.FrameNo != n.desired
}

// Request sets the desired frame number (clamped to 0) and returns the fetch
// to issue. Earlier fetches stay outstanding; their results are reconciled
// against the new target when they arrive.
func (n *Navigator) Request(target int) Fetch {
	if target < 0 {
		target = 0
	}
	n.desired = target
	n.seq++
	n.inFlight++
	return Fetch{FrameNo: target, Seq: n.seq}
}

// Step requests the frame delta away from the desired one.
func (n *Navigator) Step(delta int) Fetch {
	return n.Request(n.desired + delta)
}

// Complete reconciles a fetched frame and reports whether it was committed.
// The first frame ever received is always committed.
func (n *Navigator) Complete(f *replay.Frame) bool {
	n.settle()
	if f == nil {
		return false
	}
	if n.committed != nil && Reconcile(n.desired, n.committed.FrameNo, f.FrameNo) == Discard {
		return false
	}
	n.committed = f
	n.lastErr = nil
	return true
}

// Fail records a failed fetch. The committed frame and the desired number
// are left untouched; nothing is retried.
func (n *Navigator) Fail(err error) {
	n.settle()
	n.lastErr = err
}

func (n *Navigator) settle() {
	if n.inFlight > 0 {
		n.inFlight--
	}
}

// Indicator renders the committed frame number, with PendingMarker appended
// while the desired frame has not been reached.
func (n *Navigator) Indicator() string {
	s := "-"
	if n.committed != nil {
		s = strconv.Itoa(n.committed.FrameNo)
	}
	if n.Pending() {
		s += PendingMarker
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
