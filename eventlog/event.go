package eventlog

import (
	"errors"
	"fmt"
	"time"
)

// Type enumerates the fixed event vocabulary. The store rejects anything
// outside this set.
type Type string

const (
	TypeRunnerStart Type = "runner_start"
	TypePhaseStart  Type = "phase_start"
	TypePhaseEnd    Type = "phase_end"
	TypeCheckpoint  Type = "checkpoint"
	TypeHeartbeat   Type = "heartbeat"
	TypeError       Type = "error"
	TypeRunnerEnd   Type = "runner_end"
)

// Level is the severity attached to an event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one immutable record in a run's history. Phase is empty for
// run-scoped events. Payload is an open key/value map; readers must
// tolerate keys they do not know.
type Event struct {
	Time    time.Time      `json:"timestamp"`
	RunID   string         `json:"run_id"`
	Type    Type           `json:"type"`
	Phase   string         `json:"phase,omitempty"`
	Level   Level          `json:"level"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ErrSchemaViolation is wrapped by every validation failure so callers can
// distinguish a rejected write from an I/O error.
var ErrSchemaViolation = errors.New("event schema violation")

var validTypes = map[Type]bool{
	TypeRunnerStart: true,
	TypePhaseStart:  true,
	TypePhaseEnd:    true,
	TypeCheckpoint:  true,
	TypeHeartbeat:   true,
	TypeError:       true,
	TypeRunnerEnd:   true,
}

var validLevels = map[Level]bool{
	LevelInfo:    true,
	LevelWarning: true,
	LevelError:   true,
}

// Validate checks the event against the fixed schema. The store fails
// closed: an invalid event is never written.
func (e Event) Validate() error {
	if e.Time.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrSchemaViolation)
	}
	if e.RunID == "" {
		return fmt.Errorf("%w: run_id is required", ErrSchemaViolation)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: type is required", ErrSchemaViolation)
	}
	if !validTypes[e.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrSchemaViolation, e.Type)
	}
	if e.Level == "" {
		return fmt.Errorf("%w: level is required", ErrSchemaViolation)
	}
	if !validLevels[e.Level] {
		return fmt.Errorf("%w: unknown level %q", ErrSchemaViolation, e.Level)
	}
	return nil
}

// Store is the append-only session event log. Append is the only
// mutation; there is no update or delete, so a run's history is
// tamper-evident and replay-safe.
type Store interface {
	Append(Event) error
	ReadAll(runID string) ([]Event, error)
	ListRuns() ([]string, error)
	Close() error
}
