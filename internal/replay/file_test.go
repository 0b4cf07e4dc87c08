package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleReplay = `{
	"match": {"world": "tiny", "red": "a", "black": "b", "seed": 1},
	"background": {"rocks": [[0, 0]], "red_anthill": [[1, 1]], "black_anthill": [[3, 1]], "red_brain": "", "black_brain": ""},
	"frames": [
		{"frame_no": 10, "food": [], "ants": []},
		{"frame_no": 0, "food": [], "ants": []},
		{"frame_no": 20, "food": [], "ants": []}
	]
}`

func TestDecodeFileSortsFrames(t *testing.T) {
	f, err := DecodeFile(strings.NewReader(sampleReplay))
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	for i, want := range []int{0, 10, 20} {
		if f.Frames[i].FrameNo != want {
			t.Errorf("frame[%d] = %d, want %d", i, f.Frames[i].FrameNo, want)
		}
	}
}

func TestDecodeFileDuplicate(t *testing.T) {
	in := `{"match":{"world":"w","red":"r","black":"b","seed":0},"background":{},"frames":[{"frame_no":1},{"frame_no":1}]}`
	if _, err := DecodeFile(strings.NewReader(in)); err == nil {
		t.Error("expected duplicate frame_no error")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.replay.json")
	if err := os.WriteFile(path, []byte(sampleReplay), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.Match.World != "tiny" || len(f.Frames) != 3 {
		t.Errorf("ReadFile = %+v", f)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadFile of missing file should fail")
	}
}

func TestNearest(t *testing.T) {
	frames := []Frame{{FrameNo: 0}, {FrameNo: 10}, {FrameNo: 20}}
	tests := []struct{ want, got int }{
		{-5, 0},
		{0, 0},
		{4, 0},
		{5, 0}, // tie goes low
		{6, 10},
		{10, 10},
		{16, 20},
		{500, 20},
	}
	for _, tt := range tests {
		f, ok := Nearest(frames, tt.want)
		if !ok || f.FrameNo != tt.got {
			t.Errorf("Nearest(%d) = %v, want %d", tt.want, f, tt.got)
		}
	}
	if _, ok := Nearest(nil, 3); ok {
		t.Error("Nearest on empty list should report false")
	}
}
