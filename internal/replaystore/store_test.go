package replaystore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daviddao/antmatch_viewer/internal/replay"
)

const tinyWorld = `5
4
# # # # #
 # + 5 - #
# . 9 . #
 # # # # #
`

var sampleMatch = replay.Match{World: "tiny.world", Red: "sample.ant", Black: "sample.ant", Seed: 1}

func sampleFile() *replay.File {
	f := &replay.File{
		Match: sampleMatch,
		Background: replay.Background{
			Rocks:      []replay.Cell{{Col: 0, Row: 0}, {Col: 4, Row: 3}},
			RedAnthill: []replay.Cell{{Col: 1, Row: 1}},
			RedBrain:   "Move 0 0\n",
		},
	}
	for _, n := range []int{0, 10, 20} {
		f.Frames = append(f.Frames, replay.Frame{
			FrameNo: n,
			Ants:    []replay.Ant{{ID: 0, Color: replay.Red, Col: 1, Row: 1, State: n / 10}},
		})
	}
	return f
}

func writeReplay(t *testing.T, dir, name string, f *replay.File) {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// exerciseStore checks the behaviour shared by every Store holding
// sampleFile.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	bg, err := s.Background(ctx, sampleMatch)
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	if len(bg.Rocks) != 2 || bg.RedBrain != "Move 0 0\n" {
		t.Errorf("background = %+v", bg)
	}

	tests := []struct {
		want, got int
	}{
		{0, 0},
		{4, 0},
		{5, 0}, // tie goes low
		{6, 10},
		{10, 10},
		{15, 10},
		{19, 20},
		{500, 20},
		{-3, 0},
	}
	for _, tt := range tests {
		f, err := s.Frame(ctx, sampleMatch, tt.want)
		if err != nil {
			t.Fatalf("Frame(%d): %v", tt.want, err)
		}
		if f.FrameNo != tt.got {
			t.Errorf("Frame(%d) = %d, want %d", tt.want, f.FrameNo, tt.got)
		}
	}

	other := sampleMatch
	other.Seed = 99
	if _, err := s.Background(ctx, other); !errors.Is(err, ErrUnknownMatch) {
		t.Errorf("Background(unknown) err = %v", err)
	}
	if _, err := s.Frame(ctx, other, 0); !errors.Is(err, ErrUnknownMatch) {
		t.Errorf("Frame(unknown) err = %v", err)
	}
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	writeReplay(t, dir, "sample"+ReplaySuffix, sampleFile())
	if err := os.WriteFile(filepath.Join(dir, "broken"+ReplaySuffix), []byte("{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)

	ms, err := s.Matches(context.Background())
	if err != nil || len(ms) != 1 || ms[0] != sampleMatch {
		t.Errorf("Matches = %v, %v", ms, err)
	}
}

func TestDirStoreMissingDir(t *testing.T) {
	if _, err := OpenDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDirStoreWorldOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tiny"+WorldSuffix), []byte(tinyWorld), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}

	// Any brains may be paired with a bare world.
	m := replay.Match{World: "tiny.world", Red: "x.ant", Black: "y.ant"}
	ctx := context.Background()
	bg, err := s.Background(ctx, m)
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	if len(bg.Rocks) != 14 || bg.RedBrain != "" {
		t.Errorf("background = %+v", bg)
	}
	f, err := s.Frame(ctx, m, 300)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if f.FrameNo != 0 || len(f.Ants) != 2 || len(f.Food) != 2 {
		t.Errorf("frame = %+v", f)
	}

	ms, _ := s.Matches(ctx)
	if len(ms) != 1 || ms[0].Red != AnyBrain {
		t.Errorf("Matches = %v", ms)
	}
}

func TestDirStoreReload(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, err := s.Background(context.Background(), sampleMatch); !errors.Is(err, ErrUnknownMatch) {
		t.Fatalf("err = %v, want ErrUnknownMatch", err)
	}
	writeReplay(t, dir, "sample"+ReplaySuffix, sampleFile())
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, err := s.Background(context.Background(), sampleMatch); err != nil {
		t.Errorf("Background after reload: %v", err)
	}
}

func TestWatchReloadsOnNewReplay(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx, w)

	// Give fsnotify time to start watching.
	time.Sleep(50 * time.Millisecond)
	writeReplay(t, dir, "sample"+ReplaySuffix, sampleFile())

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := s.Background(ctx, sampleMatch); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("replay not picked up by watcher")
}

func TestNewWatcherBadPath(t *testing.T) {
	if _, err := NewWatcher("/nonexistent/replays"); err == nil {
		t.Error("NewWatcher should fail for nonexistent directory")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	select {
	case <-w.Changes():
		t.Error("unexpected change signal for unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "replays.db")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if err := s.Import(ctx, sampleFile()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	// Re-importing replaces rather than duplicating.
	if err := s.Import(ctx, sampleFile()); err != nil {
		t.Fatalf("Import again: %v", err)
	}
	exerciseStore(t, s)

	ms, err := s.Matches(ctx)
	if err != nil || len(ms) != 1 || ms[0] != sampleMatch {
		t.Errorf("Matches = %v, %v", ms, err)
	}

	f, err := s.Frame(ctx, sampleMatch, 20)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if len(f.Ants) != 1 || f.Ants[0].State != 2 || f.Ants[0].Color != replay.Red {
		t.Errorf("frame ants = %+v", f.Ants)
	}
}

func TestSQLiteStoreNoFrames(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "replays.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	empty := sampleFile()
	empty.Frames = nil
	if err := s.Import(ctx, empty); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := s.Frame(ctx, sampleMatch, 0); !errors.Is(err, ErrNoFrames) {
		t.Errorf("err = %v, want ErrNoFrames", err)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "replays.db")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Import(ctx, sampleFile()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}
