package replay

import (
	"strings"
	"testing"
)

const tinyWorld = `5
4
# # # # #
 # + 5 - #
# . 9 . #
 # # # # #
`

func TestParseWorld(t *testing.T) {
	w, err := ParseWorld(strings.NewReader(tinyWorld))
	if err != nil {
		t.Fatalf("ParseWorld: %v", err)
	}
	if w.Width != 5 || w.Height != 4 {
		t.Errorf("size = %dx%d, want 5x4", w.Width, w.Height)
	}
	if len(w.Rocks) != 14 {
		t.Errorf("rocks = %d, want 14", len(w.Rocks))
	}
	if len(w.Anthill[Red]) != 1 || w.Anthill[Red][0] != (Cell{Col: 1, Row: 1}) {
		t.Errorf("red anthill = %v", w.Anthill[Red])
	}
	if len(w.Anthill[Black]) != 1 || w.Anthill[Black][0] != (Cell{Col: 3, Row: 1}) {
		t.Errorf("black anthill = %v", w.Anthill[Black])
	}
	want := []Food{{Col: 2, Row: 1, Amount: 5}, {Col: 2, Row: 2, Amount: 9}}
	if len(w.Food) != len(want) {
		t.Fatalf("food = %v, want %v", w.Food, want)
	}
	for i := range want {
		if w.Food[i] != want[i] {
			t.Errorf("food[%d] = %v, want %v", i, w.Food[i], want[i])
		}
	}
}

func TestParseWorldCompactRows(t *testing.T) {
	w, err := ParseWorld(strings.NewReader("3\n2\n#+#\n#-#\n"))
	if err != nil {
		t.Fatalf("ParseWorld: %v", err)
	}
	if len(w.Rocks) != 4 || len(w.Anthill[Red]) != 1 || len(w.Anthill[Black]) != 1 {
		t.Errorf("parsed %+v", w)
	}
}

func TestParseWorldErrors(t *testing.T) {
	inputs := map[string]string{
		"empty":        "",
		"bad width":    "x\n2\n",
		"missing rows": "3\n3\n# # #\n",
		"short row":    "3\n1\n# #\n",
		"bad token":    "3\n1\n# x #\n",
		"zero food":    "3\n1\n# 0 #\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseWorld(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWorldInitialFrame(t *testing.T) {
	w, err := ParseWorld(strings.NewReader(tinyWorld))
	if err != nil {
		t.Fatalf("ParseWorld: %v", err)
	}
	f := w.InitialFrame()
	if f.FrameNo != 0 {
		t.Errorf("FrameNo = %d", f.FrameNo)
	}
	if len(f.Ants) != 2 {
		t.Fatalf("ants = %+v", f.Ants)
	}
	// Row-major: red hill (1,1) before black hill (3,1).
	if f.Ants[0].ID != 0 || f.Ants[0].Color != Red || f.Ants[1].ID != 1 || f.Ants[1].Color != Black {
		t.Errorf("ants = %+v", f.Ants)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bg := w.Background("move 0 0", "")
	if len(bg.Rocks) != 14 || bg.RedBrain != "move 0 0" {
		t.Errorf("Background = %+v", bg)
	}
}
