package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// File is a recorded match as stored on disk: "<name>.replay.json".
type File struct {
	Match      Match      `json:"match"`
	Background Background `json:"background"`
	Frames     []Frame    `json:"frames"`
}

// DecodeFile reads and validates a replay file. Frames are sorted by
// frame_no; duplicates are rejected.
func DecodeFile(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	if f.Match.World == "" {
		return nil, fmt.Errorf("decode replay: %w: match has no world", ErrBadFragment)
	}
	for i := range f.Frames {
		if err := f.Frames[i].Validate(); err != nil {
			return nil, fmt.Errorf("decode replay: frame %d: %w", i, err)
		}
	}
	sort.Slice(f.Frames, func(i, j int) bool { return f.Frames[i].FrameNo < f.Frames[j].FrameNo })
	for i := 1; i < len(f.Frames); i++ {
		if f.Frames[i].FrameNo == f.Frames[i-1].FrameNo {
			return nil, fmt.Errorf("decode replay: duplicate frame_no %d", f.Frames[i].FrameNo)
		}
	}
	return &f, nil
}

// ReadFile opens and decodes a replay file from disk.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := DecodeFile(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Nearest returns the stored frame whose frame_no is closest to want.
// Ties go to the lower frame_no. Frames must be sorted.
func Nearest(frames []Frame, want int) (*Frame, bool) {
	if len(frames) == 0 {
		return nil, false
	}
	i := sort.Search(len(frames), func(i int) bool { return frames[i].FrameNo >= want })
	switch {
	case i == len(frames):
		return &frames[len(frames)-1], true
	case i == 0 || frames[i].FrameNo == want:
		return &frames[i], true
	}
	below, above := &frames[i-1], &frames[i]
	if want-below.FrameNo <= above.FrameNo-want {
		return below, true
	}
	return above, true
}
