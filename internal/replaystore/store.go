// Package replaystore holds recorded matches on the server side.
//
// Two stores are provided: DirStore serves a directory of replay and world
// files and reloads it on change; SQLiteStore serves matches imported into
// a SQLite database.
package replaystore

import (
	"context"
	"errors"

	"github.com/daviddao/antmatch_viewer/internal/replay"
)

var (
	// ErrUnknownMatch is returned for matches the store does not hold.
	ErrUnknownMatch = errors.New("replaystore: unknown match")
	// ErrNoFrames is returned when a match has no recorded frames.
	ErrNoFrames = errors.New("replaystore: match has no frames")
)

// AnyBrain stands in for either colony's automaton in world-only matches:
// such a match can be opened with any pair of brains.
const AnyBrain = "*"

// Store serves backgrounds and frames.
type Store interface {
	// Matches lists the stored matches, sorted by key.
	Matches(ctx context.Context) ([]replay.Match, error)
	Background(ctx context.Context, m replay.Match) (*replay.Background, error)
	// Frame returns the stored frame nearest to frameNo. Ties go to the
	// lower frame number.
	Frame(ctx context.Context, m replay.Match, frameNo int) (*replay.Frame, error)
	Close() error
}
