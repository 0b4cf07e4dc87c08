package main

import "github.com/charmbracelet/bubbles/key"

// --- Key bindings ---

type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Next      key.Binding
	Prev      key.Binding
	First     key.Binding
	Esc       key.Binding
	Follow    key.Binding
	Copy      key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	Fit       key.Binding
	PanUp     key.Binding
	PanDown   key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding
	Colony    key.Binding
	BrainUp   key.Binding
	BrainDown key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Next:      key.NewBinding(key.WithKeys("right", "l", "shift+right", "L", "ctrl+right", "ctrl+shift+right", "]"), key.WithHelp("→/l", "next frame (shift ×10, ctrl ×100)")),
	Prev:      key.NewBinding(key.WithKeys("left", "h", "shift+left", "H", "ctrl+left", "ctrl+shift+left", "["), key.WithHelp("←/h", "prev frame")),
	First:     key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first frame")),
	Esc:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
	Follow:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow ant")),
	Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy address")),
	ZoomIn:    key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "zoom in")),
	ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
	Fit:       key.NewBinding(key.WithKeys("="), key.WithHelp("=", "fit map")),
	PanUp:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "pan up")),
	PanDown:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "pan down")),
	PanLeft:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "pan left")),
	PanRight:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "pan right")),
	Colony:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "other colony")),
	BrainUp:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "scroll brain")),
	BrainDown: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "scroll brain")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Follow, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.First, k.Esc, k.Follow, k.Copy},
		{k.ZoomIn, k.ZoomOut, k.Fit, k.PanUp, k.PanLeft, k.PanDown, k.PanRight},
		{k.Colony, k.BrainUp, k.BrainDown, k.Help, k.Quit},
	}
}

// contextHelp returns the status-bar hint for the current state.
func contextHelp(selected, follow bool) string {
	switch {
	case selected && follow:
		return "←/→: frame | f: stop following | esc: clear | ?: help | q: quit"
	case selected:
		return "←/→: frame | f: follow | esc: clear | j/k: brain | ?: help | q: quit"
	default:
		return "←/→: frame | click: select ant | drag: pan | wheel: zoom | ?: help | q: quit"
	}
}
