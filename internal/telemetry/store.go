// Package telemetry persists visualizer session history to SQLite:
// one row per session plus mode-change events and periodic band
// level samples, for offline inspection and report generation.
package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the telemetry database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the telemetry database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			style TEXT NOT NULL,
			num_lights INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS mode_events (
			event_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			mean_crest DOUBLE NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS band_samples (
			sample_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			bass DOUBLE NOT NULL,
			mids DOUBLE NOT NULL,
			treble DOUBLE NOT NULL,
			amplitude DOUBLE NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_mode_events_session ON mode_events(session_id);
		CREATE INDEX IF NOT EXISTS idx_band_samples_session ON band_samples(session_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create telemetry schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewSessionID generates a session identifier.
func NewSessionID() string {
	return fmt.Sprintf("ses_%s", uuid.NewString())
}

// Session is one visualizer run.
type Session struct {
	ID        string
	Style     string
	NumLights int
	StartedAt time.Time
	EndedAt   *time.Time
}

// ModeEvent records one automatic mode switch.
type ModeEvent struct {
	SessionID string
	Mode      string
	MeanCrest float64
	Timestamp time.Time
}

// BandSample records smoothed band levels at one instant.
type BandSample struct {
	SessionID string
	Bass      float64
	Mids      float64
	Treble    float64
	Amplitude float64
	Timestamp time.Time
}

// BeginSession inserts a new session row.
func (s *Store) BeginSession(sess Session) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (session_id, style, num_lights, started_at) VALUES (?, ?, ?, ?)",
		sess.ID, sess.Style, sess.NumLights, sess.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(sessionID string, endedAt time.Time) error {
	_, err := s.db.Exec("UPDATE sessions SET ended_at = ? WHERE session_id = ?", endedAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// RecordModeEvent inserts a mode switch event.
func (s *Store) RecordModeEvent(ev ModeEvent) error {
	_, err := s.db.Exec(
		"INSERT INTO mode_events (session_id, mode, mean_crest, timestamp) VALUES (?, ?, ?, ?)",
		ev.SessionID, ev.Mode, ev.MeanCrest, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert mode event: %w", err)
	}
	return nil
}

// RecordBandSample inserts a band level sample.
func (s *Store) RecordBandSample(bs BandSample) error {
	_, err := s.db.Exec(
		"INSERT INTO band_samples (session_id, bass, mids, treble, amplitude, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		bs.SessionID, bs.Bass, bs.Mids, bs.Treble, bs.Amplitude, bs.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert band sample: %w", err)
	}
	return nil
}

// GetSession fetches one session by ID.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	row := s.db.QueryRow(
		"SELECT session_id, style, num_lights, started_at, ended_at FROM sessions WHERE session_id = ?",
		sessionID)
	var sess Session
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.Style, &sess.NumLights, &sess.StartedAt, &ended); err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	if ended.Valid {
		sess.EndedAt = &ended.Time
	}
	return &sess, nil
}

// ListSessions returns sessions newest first, up to limit.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		"SELECT session_id, style, num_lights, started_at, ended_at FROM sessions ORDER BY started_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Style, &sess.NumLights, &sess.StartedAt, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if ended.Valid {
			sess.EndedAt = &ended.Time
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ModeEvents returns the mode switches of a session in time order.
func (s *Store) ModeEvents(sessionID string) ([]ModeEvent, error) {
	rows, err := s.db.Query(
		"SELECT session_id, mode, mean_crest, timestamp FROM mode_events WHERE session_id = ? ORDER BY timestamp",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mode events: %w", err)
	}
	defer rows.Close()

	var out []ModeEvent
	for rows.Next() {
		var ev ModeEvent
		if err := rows.Scan(&ev.SessionID, &ev.Mode, &ev.MeanCrest, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan mode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// BandSamples returns the band samples of a session in time order.
func (s *Store) BandSamples(sessionID string) ([]BandSample, error) {
	rows, err := s.db.Query(
		"SELECT session_id, bass, mids, treble, amplitude, timestamp FROM band_samples WHERE session_id = ? ORDER BY timestamp",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query band samples: %w", err)
	}
	defer rows.Close()

	var out []BandSample
	for rows.Next() {
		var bs BandSample
		if err := rows.Scan(&bs.SessionID, &bs.Bass, &bs.Mids, &bs.Treble, &bs.Amplitude, &bs.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan band sample: %w", err)
		}
		out = append(out, bs)
	}
	return out, rows.Err()
}
