package eventlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores events in a single table keyed by a monotonic
// AUTOINCREMENT offset. One INSERT per event keeps each append atomic.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	payload, err := marshalPayload(e.Payload)
	if err != nil {
		return fmt.Errorf("%w: payload not serializable: %v", ErrSchemaViolation, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events
		(timestamp, run_id, type, phase, level, message, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.RunID, string(e.Type), e.Phase,
		string(e.Level), e.Message, payload,
	)
	return err
}

// ReadAll returns every event for runID in append order. The read is a
// plain SELECT; replaying it never alters the log.
func (s *SQLite) ReadAll(runID string) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, run_id, type, phase, level, message, payload
		FROM events
		WHERE run_id = ?
		ORDER BY offset ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			ts      time.Time
			typ     string
			level   string
			payload string
		)
		if err := rows.Scan(&ts, &e.RunID, &typ, &e.Phase, &level, &e.Message, &payload); err != nil {
			return nil, err
		}
		e.Time = ts.UTC()
		e.Type = Type(typ)
		e.Level = Level(level)
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("payload for run %q: %w", runID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListRuns returns run IDs in order of first appearance.
func (s *SQLite) ListRuns() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT run_id FROM events
		GROUP BY run_id
		ORDER BY MIN(offset) ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func marshalPayload(p map[string]any) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
