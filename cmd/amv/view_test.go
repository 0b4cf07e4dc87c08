package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/daviddao/antmatch_viewer/internal/config"
	"github.com/daviddao/antmatch_viewer/internal/datasource"
	"github.com/daviddao/antmatch_viewer/internal/replay"
	"github.com/daviddao/antmatch_viewer/internal/selection"
)

var testMatch = replay.Match{World: "tiny.world", Red: "red.ant", Black: "black.ant", Seed: 1}

func testBackground() *replay.Background {
	var rocks []replay.Cell
	for c := 0; c < 10; c++ {
		rocks = append(rocks, replay.Cell{Col: c, Row: 0}, replay.Cell{Col: c, Row: 9})
	}
	return &replay.Background{
		Rocks:        rocks,
		RedAnthill:   []replay.Cell{{Col: 2, Row: 2}},
		BlackAnthill: []replay.Cell{{Col: 7, Row: 7}},
		RedBrain:     "Sense Ahead 1 2 Food\nMove 0 3\nPickUp 4 0\nTurn Left 0\nDrop 0\n",
		BlackBrain:   "Move 0 0\n",
	}
}

// fakeSource serves frame n with one red ant walking east along row 4 and
// one black ant parked at (6, 6).
type fakeSource struct {
	fail map[int]error
}

func (s *fakeSource) Background(context.Context, replay.Match) (*replay.Background, error) {
	return testBackground(), nil
}

func (s *fakeSource) Frame(_ context.Context, _ replay.Match, n int) (*replay.Frame, error) {
	if err := s.fail[n]; err != nil {
		return nil, err
	}
	return &replay.Frame{
		FrameNo: n,
		Food:    []replay.Food{{Col: 5, Row: 5, Amount: 3}},
		Ants: []replay.Ant{
			{ID: 7, Color: replay.Red, Col: 1 + n%8, Row: 4, State: n % 5},
			{ID: 8, Color: replay.Black, Col: 6, Row: 6, Dir: 3, HasFood: true},
		},
	}, nil
}

func (s *fakeSource) Close() error { return nil }

// testModel returns a sized model that has loaded frame 0.
func testModel(t *testing.T, src *fakeSource) uiModel {
	t.Helper()
	m := newModel(src, testMatch, testBackground(), "http://example.test")
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return drain(t, m, m.Init())
}

// update applies msg and runs the frame fetches it triggers.
func update(t *testing.T, m uiModel, msg tea.Msg) uiModel {
	t.Helper()
	next, cmd := m.Update(msg)
	return drain(t, next.(uiModel), cmd)
}

// drain runs cmd and feeds frame results back into the model. Other
// messages (ticks, quit) are not run.
func drain(t *testing.T, m uiModel, cmd tea.Cmd) uiModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case frameMsg:
		next, cmd := m.Update(msg)
		m = drain(t, next.(uiModel), cmd)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "shift+right":
		return tea.KeyMsg{Type: tea.KeyShiftRight}
	case "ctrl+left":
		return tea.KeyMsg{Type: tea.KeyCtrlLeft}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// screenCell returns the terminal cell showing cell (col, row).
func screenCell(m uiModel, col, row int) (int, int) {
	x, y := m.viewer.Transform().Apply(col, row)
	return int(math.Floor(x)), int(math.Floor(y/cellAspect)) + 1
}

func click(t *testing.T, m uiModel, x, y int) uiModel {
	t.Helper()
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	return update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
}

func TestInitLoadsFirstFrame(t *testing.T) {
	m := testModel(t, &fakeSource{})
	f := m.viewer.Frame()
	if f == nil || f.FrameNo != 0 {
		t.Fatalf("committed frame = %+v, want frame 0", f)
	}
	if got := m.viewer.Indicator(); got != "0" {
		t.Errorf("Indicator() = %q, want %q", got, "0")
	}
}

func TestStartFrameFlag(t *testing.T) {
	m := newModel(&fakeSource{}, testMatch, testBackground(), "")
	m.startFrame = 42
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = drain(t, m, m.Init())
	if f := m.viewer.Frame(); f == nil || f.FrameNo != 42 {
		t.Fatalf("committed frame = %+v, want 42", f)
	}
}

func TestFrameKeys(t *testing.T) {
	m := testModel(t, &fakeSource{})
	steps := []struct {
		key  string
		want int
	}{
		{"right", 1},
		{"l", 2},
		{"shift+right", 12},
		{"left", 11},
		{"ctrl+left", 0},
		{"]", 100},
		{"g", 0},
	}
	for _, s := range steps {
		m = update(t, m, keyMsg(s.key))
		if got := m.viewer.Frame().FrameNo; got != s.want {
			t.Fatalf("after %q frame = %d, want %d", s.key, got, s.want)
		}
	}
}

func TestStepDelta(t *testing.T) {
	tests := []struct {
		msg  tea.KeyMsg
		want int
		ok   bool
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, 1, true},
		{tea.KeyMsg{Type: tea.KeyLeft}, -1, true},
		{tea.KeyMsg{Type: tea.KeyShiftRight}, 10, true},
		{tea.KeyMsg{Type: tea.KeyShiftLeft}, -10, true},
		{tea.KeyMsg{Type: tea.KeyCtrlRight}, 100, true},
		{tea.KeyMsg{Type: tea.KeyCtrlShiftLeft}, -100, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")}, 10, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("[")}, -100, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg.String(), func(t *testing.T) {
			got, ok := stepDelta(tt.msg)
			if got != tt.want || ok != tt.ok {
				t.Errorf("stepDelta(%q) = %d, %v, want %d, %v", tt.msg.String(), got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClickSelectsAndFollowsAnt(t *testing.T) {
	m := testModel(t, &fakeSource{})

	x, y := screenCell(m, 1, 4)
	m = click(t, m, x, y)
	id, ok := m.viewer.Selection().Selected()
	if !ok || id != 7 {
		t.Fatalf("Selected() = %d, %v, want ant 7", id, ok)
	}
	if !m.brains.Marked(selection.Ref{Color: replay.Red, State: 0}) {
		t.Errorf("brain row red:0 not marked: %v", m.brains.MarkedRefs())
	}
	if !strings.Contains(m.View(), "#7 red") {
		t.Error("panel does not show the selected ant")
	}

	// The ant moves and changes state; the highlight follows it.
	m = update(t, m, keyMsg("right"))
	m = update(t, m, keyMsg("right"))
	if !m.brains.Marked(selection.Ref{Color: replay.Red, State: 2}) || len(m.brains.MarkedRefs()) != 1 {
		t.Errorf("marked = %v, want only red:2", m.brains.MarkedRefs())
	}

	m = update(t, m, keyMsg("esc"))
	if _, ok := m.viewer.Selection().Selected(); ok {
		t.Error("esc did not clear the selection")
	}
	if len(m.brains.MarkedRefs()) != 0 {
		t.Errorf("marked = %v after esc", m.brains.MarkedRefs())
	}
}

func TestClickEmptyCellClears(t *testing.T) {
	m := testModel(t, &fakeSource{})
	x, y := screenCell(m, 1, 4)
	m = click(t, m, x, y)
	x, y = screenCell(m, 4, 2)
	m = click(t, m, x, y)
	if _, ok := m.viewer.Selection().Selected(); ok {
		t.Error("click on an empty cell kept the selection")
	}
}

func TestDragPans(t *testing.T) {
	m := testModel(t, &fakeSource{})
	before := m.viewer.Transform()

	m = update(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: 13, Y: 11, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: 13, Y: 11, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	after := m.viewer.Transform()
	if after.OffsetX-before.OffsetX != 3 || after.OffsetY-before.OffsetY != 2 {
		t.Errorf("offset moved by (%v, %v), want (3, 2)", after.OffsetX-before.OffsetX, after.OffsetY-before.OffsetY)
	}
	if _, ok := m.viewer.Selection().Selected(); ok {
		t.Error("a drag must not select")
	}
}

func TestWheelZooms(t *testing.T) {
	m := testModel(t, &fakeSource{})
	before := m.viewer.Transform().Scale

	m = update(t, m, tea.MouseMsg{X: 20, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := m.viewer.Transform().Scale; !(got > before) {
		t.Fatalf("wheel up: scale %v -> %v, want larger", before, got)
	}
	m = update(t, m, tea.MouseMsg{X: 20, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if got := m.viewer.Transform().Scale; math.Abs(got-before) > 1e-9 {
		t.Errorf("wheel up then down: scale %v, want %v", got, before)
	}

	// Over the panel the wheel scrolls the brain instead.
	m = update(t, m, tea.MouseMsg{X: 110, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := m.viewer.Transform().Scale; math.Abs(got-before) > 1e-9 {
		t.Errorf("wheel over panel changed scale to %v", got)
	}
}

func TestFitKeyRestoresView(t *testing.T) {
	m := testModel(t, &fakeSource{})
	fitted := m.viewer.Transform()
	m = update(t, m, keyMsg("+"))
	m = update(t, m, keyMsg("d"))
	if m.viewer.Transform() == fitted {
		t.Fatal("zoom and pan left the transform unchanged")
	}
	m = update(t, m, keyMsg("="))
	if m.viewer.Transform() != fitted {
		t.Errorf("after fit transform = %+v, want %+v", m.viewer.Transform(), fitted)
	}
}

func TestFetchFailureShownInStatus(t *testing.T) {
	src := &fakeSource{fail: map[int]error{1: errors.New("boom")}}
	m := testModel(t, src)
	m = update(t, m, keyMsg("right"))

	if got := m.viewer.Indicator(); got != "0*" {
		t.Errorf("Indicator() = %q, want %q", got, "0*")
	}
	if !strings.Contains(m.View(), "fetch failed: boom") {
		t.Error("status bar does not report the failure")
	}
}

// messages runs cmd and every command it batches, returning their messages.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, messages(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestFollowToggle(t *testing.T) {
	defer func(d time.Duration) { statusTimeout = d }(statusTimeout)
	statusTimeout = time.Millisecond

	m := testModel(t, &fakeSource{})
	m = update(t, m, keyMsg("f"))
	if !m.viewer.Follow() || m.status != "following selected ant" {
		t.Errorf("follow = %v, status = %q", m.viewer.Follow(), m.status)
	}

	next, cmd := m.Update(keyMsg("f"))
	m = next.(uiModel)
	if m.viewer.Follow() || m.status != "follow off" {
		t.Fatalf("follow = %v, status = %q", m.viewer.Follow(), m.status)
	}
	cleared := false
	for _, msg := range messages(cmd) {
		if c, ok := msg.(clearStatusMsg); ok && c.id == m.statusID {
			next, _ := m.Update(msg)
			m = next.(uiModel)
			cleared = true
		}
	}
	if !cleared || m.status != "" {
		t.Errorf("follow status not cleared: %q", m.status)
	}
}

func TestClearStatusMatchesID(t *testing.T) {
	m := testModel(t, &fakeSource{}).setStatus("one")
	old := m.statusID
	m = m.setStatus("two")
	m = update(t, m, clearStatusMsg{id: old})
	if m.status != "two" {
		t.Errorf("stale clear removed status %q", m.status)
	}
	m = update(t, m, clearStatusMsg{id: m.statusID})
	if m.status != "" {
		t.Errorf("status = %q, want cleared", m.status)
	}
}

func TestViewFitsTerminal(t *testing.T) {
	for _, showHelp := range []bool{false, true} {
		m := testModel(t, &fakeSource{})
		if showHelp {
			m = update(t, m, keyMsg("?"))
		}
		lines := strings.Split(m.View(), "\n")
		if len(lines) != m.height {
			t.Errorf("help=%v: %d lines, want %d", showHelp, len(lines), m.height)
		}
		for i, l := range lines {
			if w := lipgloss.Width(l); w > m.width {
				t.Errorf("help=%v: line %d is %d wide, want <= %d", showHelp, i, w, m.width)
			}
		}
	}
}

func TestViewShowsMap(t *testing.T) {
	m := testModel(t, &fakeSource{})
	v := m.View()
	for _, want := range []string{"ant match viewer", "red.ant", "black.ant", "▓", "→", "←", "3", "frame 0"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if m.viewer.Dirty() {
		t.Error("View left the viewer dirty")
	}
}

func TestViewLoading(t *testing.T) {
	m := newModel(&fakeSource{}, testMatch, testBackground(), "")
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q before the first resize", got)
	}
}

func TestBrainListingTracksLayout(t *testing.T) {
	m := testModel(t, &fakeSource{})
	_, h := m.mapSize()
	if m.brains.Rows() != h-brainHeader {
		t.Fatalf("Rows() = %d, want %d", m.brains.Rows(), h-brainHeader)
	}
	lines := m.renderBrain(panelWidth - 2)
	if len(lines) != m.brains.Rows() {
		t.Fatalf("renderBrain = %d lines, want %d", len(lines), m.brains.Rows())
	}
	if !strings.Contains(lines[1], "Move 0 3") {
		t.Errorf("line 1 = %q", lines[1])
	}

	// The full help takes rows from the map and the listing.
	before := m.brains.Rows()
	m = update(t, m, keyMsg("?"))
	_, h = m.mapSize()
	if m.brains.Rows() != h-brainHeader || m.brains.Rows() >= before {
		t.Errorf("Rows() = %d with help, was %d", m.brains.Rows(), before)
	}

	m = update(t, m, keyMsg("c"))
	if m.brains.Color() != replay.Black || m.brains.Len() != 1 {
		t.Errorf("color = %v, len = %d after c", m.brains.Color(), m.brains.Len())
	}
}

func TestParseArgs(t *testing.T) {
	t.Setenv("AMV_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("AMV_SERVER", "")
	t.Setenv("AMV_TRANSPORT", "")
	frag := "#" + testMatch.Fragment()

	tests := []struct {
		name    string
		args    []string
		err     bool
		frame   int
		ws      bool
		noMatch bool
	}{
		{name: "fragment", args: []string{frag}},
		{name: "address", args: []string{testMatch.Address("http://h:1")}},
		{name: "frame", args: []string{"--frame", "7", frag}, frame: 7},
		{name: "ws", args: []string{"--transport", "ws", frag}, ws: true},
		{name: "version", args: []string{"--version"}, noMatch: true},
		{name: "list", args: []string{"--list"}, noMatch: true},
		{name: "bad transport", args: []string{"--transport", "smtp", frag}, err: true},
		{name: "negative frame", args: []string{"--frame", "-1", frag}, err: true},
		{name: "no match", args: nil, err: true},
		{name: "bad fragment", args: []string{"#nope"}, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseArgs(tt.args, io.Discard)
			if tt.err {
				if err == nil {
					t.Fatalf("parseArgs(%q) expected error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs(%q): %v", tt.args, err)
			}
			if tt.noMatch {
				if opts != nil && !opts.list {
					t.Errorf("%q returned options %+v", tt.args, opts)
				}
				return
			}
			if opts.match != testMatch {
				t.Errorf("match = %+v, want %+v", opts.match, testMatch)
			}
			if opts.frame != tt.frame {
				t.Errorf("frame = %d, want %d", opts.frame, tt.frame)
			}
			if got := opts.cfg.Transport == config.TransportWS; got != tt.ws {
				t.Errorf("transport = %q", opts.cfg.Transport)
			}
		})
	}
}

func TestBuildJSONOutput(t *testing.T) {
	src := &fakeSource{}
	f, _ := src.Frame(context.Background(), testMatch, 0)
	out := buildJSONOutput(testMatch, "http://h:1/", testBackground(), f)

	if out.Stats.RedAnts != 1 || out.Stats.BlackAnts != 1 {
		t.Errorf("ants = %d red, %d black", out.Stats.RedAnts, out.Stats.BlackAnts)
	}
	if out.Stats.BlackCarrying != 1 || out.Stats.RedCarrying != 0 {
		t.Errorf("carrying = %d red, %d black", out.Stats.RedCarrying, out.Stats.BlackCarrying)
	}
	if out.Stats.FoodOnGround != 3 {
		t.Errorf("food = %d, want 3", out.Stats.FoodOnGround)
	}
	if !strings.HasPrefix(out.Address, "http://h:1/vis/index.html#") {
		t.Errorf("address = %q", out.Address)
	}
}

func TestListMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/matches" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]replay.Match{testMatch})
	}))
	defer srv.Close()
	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if err := listMatches(&out, srv.URL, datasource.NewHTTPSource(base, 0)); err != nil {
		t.Fatalf("listMatches: %v", err)
	}
	if !strings.Contains(out.String(), testMatch.String()) || !strings.Contains(out.String(), testMatch.Address(srv.URL)) {
		t.Errorf("output = %q", out.String())
	}
}
