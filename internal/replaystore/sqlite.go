package replaystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/daviddao/antmatch_viewer/internal/replay"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	key             TEXT PRIMARY KEY,
	match_json      TEXT NOT NULL,
	background_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
	match_key  TEXT    NOT NULL REFERENCES matches(key) ON DELETE CASCADE,
	frame_no   INTEGER NOT NULL,
	frame_json TEXT    NOT NULL,
	PRIMARY KEY (match_key, frame_no)
);
`

// SQLiteStore serves matches imported into a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps the PRAGMAs below in force for every query.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %s: %w", path, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Import stores f, replacing any earlier copy of the same match.
func (s *SQLiteStore) Import(ctx context.Context, f *replay.File) error {
	matchJSON, err := json.Marshal(f.Match)
	if err != nil {
		return err
	}
	bgJSON, err := json.Marshal(f.Background)
	if err != nil {
		return err
	}
	key := f.Match.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM frames WHERE match_key = ?`, key); err != nil {
		return fmt.Errorf("import %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (key, match_json, background_json) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET match_json = excluded.match_json, background_json = excluded.background_json`,
		key, string(matchJSON), string(bgJSON)); err != nil {
		return fmt.Errorf("import %s: %w", key, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO frames (match_key, frame_no, frame_json) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range f.Frames {
		frameJSON, err := json.Marshal(&f.Frames[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, key, f.Frames[i].FrameNo, string(frameJSON)); err != nil {
			return fmt.Errorf("import %s frame %d: %w", key, f.Frames[i].FrameNo, err)
		}
	}
	return tx.Commit()
}

// Matches lists the imported matches.
func (s *SQLiteStore) Matches(ctx context.Context) ([]replay.Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT match_json FROM matches ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []replay.Match
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var m replay.Match
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("stored match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Background returns the match's background.
func (s *SQLiteStore) Background(ctx context.Context, m replay.Match) (*replay.Background, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT background_json FROM matches WHERE key = ?`, m.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatch, m)
	}
	if err != nil {
		return nil, err
	}
	var bg replay.Background
	if err := json.Unmarshal([]byte(raw), &bg); err != nil {
		return nil, fmt.Errorf("stored background: %w", err)
	}
	return &bg, nil
}

// Frame returns the stored frame nearest to frameNo.
func (s *SQLiteStore) Frame(ctx context.Context, m replay.Match, frameNo int) (*replay.Frame, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT frame_json FROM frames WHERE match_key = ?
		 ORDER BY ABS(frame_no - ?), frame_no LIMIT 1`,
		m.Key(), frameNo).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		if _, bgErr := s.Background(ctx, m); bgErr != nil {
			return nil, bgErr
		}
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, m)
	}
	if err != nil {
		return nil, err
	}
	var f replay.Frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("stored frame: %w", err)
	}
	return &f, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
