// Package history persists chat transcripts to a local SQLite database so
// past conversations survive across runs.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mayachat/internal/transcript"
)

// Store writes transcript turns to SQLite. It satisfies
// conversation.Recorder.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_id TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT,
		component_json TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn_id)
	);
	CREATE INDEX IF NOT EXISTS idx_history_session ON chat_history(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTurn appends one turn. Re-recording a turn already stored for the
// session (same turn id) is a no-op, so retried interactions never duplicate
// history rows.
func (s *Store) RecordTurn(sessionID string, turnNumber int, turn transcript.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var componentJSON sql.NullString
	if turn.Component != nil {
		raw, err := json.Marshal(turn.Component)
		if err != nil {
			return fmt.Errorf("failed to encode component: %w", err)
		}
		componentJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO chat_history (session_id, turn_id, turn_number, role, content, component_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, turn.ID, turnNumber, string(turn.Role), turn.Content, componentJSON,
	)
	return err
}

// StoredTurn is one recorded turn read back from the database.
type StoredTurn struct {
	TurnNumber    int
	Role          transcript.Role
	Content       string
	ComponentJSON string
	CreatedAt     time.Time
}

// SessionSummary describes one recorded session.
type SessionSummary struct {
	SessionID string
	Turns     int
	StartedAt time.Time
	LastAt    time.Time
}

// ListSessions returns recorded sessions, most recent first.
func (s *Store) ListSessions(limit int) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	// Aggregates lose the column's declared DATETIME affinity, so the driver
	// hands them back as strings; parse them ourselves.
	rows, err := s.db.Query(
		`SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at)
		 FROM chat_history
		 GROUP BY session_id
		 ORDER BY MAX(created_at) DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var started, last string
		if err := rows.Scan(&sum.SessionID, &sum.Turns, &started, &last); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = parseStoredTime(started); err != nil {
			return nil, err
		}
		if sum.LastAt, err = parseStoredTime(last); err != nil {
			return nil, err
		}
		sessions = append(sessions, sum)
	}
	return sessions, rows.Err()
}

// parseStoredTime decodes a CURRENT_TIMESTAMP value read back through an
// aggregate.
func parseStoredTime(v string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// GetSession returns every recorded turn of a session in order.
func (s *Store) GetSession(sessionID string) ([]StoredTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT turn_number, role, content, COALESCE(component_json, ''), created_at
		 FROM chat_history
		 WHERE session_id = ?
		 ORDER BY turn_number ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []StoredTurn
	for rows.Next() {
		var t StoredTurn
		var role string
		if err := rows.Scan(&t.TurnNumber, &role, &t.Content, &t.ComponentJSON, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Role = transcript.Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// DeleteSession removes all recorded turns of a session.
func (s *Store) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM chat_history WHERE session_id = ?`, sessionID)
	return err
}
