package replaystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
)

const (
	ReplaySuffix = ".replay.json"
	WorldSuffix  = ".world"
)

// entry is one loadable match.
type entry struct {
	match      replay.Match
	background *replay.Background
	frames     []replay.Frame
}

// DirStore serves the replay and world files found directly in one
// directory. Replay files are matched by their full match key; world files
// are matched by world name whatever brains are asked for.
type DirStore struct {
	dir string

	mu      sync.RWMutex
	replays map[string]*entry
	worlds  map[string]*entry
}

// OpenDir loads every file in dir. Unreadable files are logged and
// skipped; a missing directory is an error.
func OpenDir(dir string) (*DirStore, error) {
	s := &DirStore{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the served directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Reload rescans the directory and swaps in the new index.
func (s *DirStore) Reload() error {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("replay dir: %w", err)
	}

	replays := make(map[string]*entry)
	worlds := make(map[string]*entry)
	for _, de := range ents {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		path := filepath.Join(s.dir, name)
		log := logger.Log.WithField("file", path)
		switch {
		case strings.HasSuffix(name, ReplaySuffix):
			f, err := replay.ReadFile(path)
			if err != nil {
				log.WithError(err).Warn("skipping replay")
				continue
			}
			key := f.Match.Key()
			if _, dup := replays[key]; dup {
				log.WithField("match", key).Warn("duplicate match, keeping first")
				continue
			}
			replays[key] = &entry{match: f.Match, background: &f.Background, frames: f.Frames}

		case strings.HasSuffix(name, WorldSuffix):
			e, err := loadWorld(path, name)
			if err != nil {
				log.WithError(err).Warn("skipping world")
				continue
			}
			worlds[e.match.World] = e
		}
	}

	s.mu.Lock()
	s.replays, s.worlds = replays, worlds
	s.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"dir":     s.dir,
		"replays": len(replays),
		"worlds":  len(worlds),
	}).Info("replays loaded")
	return nil
}

func loadWorld(path, name string) (*entry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	w, err := replay.ParseWorld(fh)
	if err != nil {
		return nil, err
	}
	return &entry{
		match:      replay.Match{World: name, Red: AnyBrain, Black: AnyBrain},
		background: w.Background("", ""),
		frames:     []replay.Frame{*w.InitialFrame()},
	}, nil
}

func (s *DirStore) lookup(m replay.Match) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.replays[m.Key()]; ok {
		return e, nil
	}
	if e, ok := s.worlds[m.World]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMatch, m)
}

// Matches lists replay and world-only matches, sorted by key.
func (s *DirStore) Matches(ctx context.Context) ([]replay.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]replay.Match, 0, len(s.replays)+len(s.worlds))
	for _, e := range s.replays {
		out = append(out, e.match)
	}
	for _, e := range s.worlds {
		out = append(out, e.match)
	}
	slices.SortFunc(out, func(a, b replay.Match) int { return strings.Compare(a.Key(), b.Key()) })
	return out, nil
}

// Background returns the match's background.
func (s *DirStore) Background(ctx context.Context, m replay.Match) (*replay.Background, error) {
	e, err := s.lookup(m)
	if err != nil {
		return nil, err
	}
	return e.background, nil
}

// Frame returns the frame nearest to frameNo.
func (s *DirStore) Frame(ctx context.Context, m replay.Match, frameNo int) (*replay.Frame, error) {
	e, err := s.lookup(m)
	if err != nil {
		return nil, err
	}
	f, ok := replay.Nearest(e.frames, frameNo)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, m)
	}
	return f, nil
}

// Close is a no-op; the directory store holds no handles.
func (s *DirStore) Close() error {
	return nil
}

// Watch reloads the store whenever w reports a change, until ctx is done.
func (s *DirStore) Watch(ctx context.Context, w *Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.Changes():
			if err := s.Reload(); err != nil {
				logger.Log.WithError(err).Error("reload replays")
			}
		}
	}
}
