package eventlog

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "events.db")

	s, err := NewSQLite(path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func testEvent(runID string, typ Type, at time.Time) Event {
	return Event{
		Time:    at,
		RunID:   runID,
		Type:    typ,
		Level:   LevelInfo,
		Message: "test",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	s, path := newTestSQLite(t)
	assert.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='events'`).Scan(&name)
	assert.NoError(t, err)
	assert.Equal(t, "events", name)
}

func TestSQLiteAppendReadAllOrdered(t *testing.T) {
	t.Parallel()

	s, _ := newTestSQLite(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	types := []Type{TypeRunnerStart, TypePhaseStart, TypeHeartbeat, TypePhaseEnd, TypeRunnerEnd}
	for i, typ := range types {
		e := testEvent("R1", typ, base.Add(time.Duration(i)*time.Second))
		e.Payload = map[string]any{"seq": float64(i)}
		assert.NoError(t, s.Append(e))
	}
	// Another run interleaved; must not leak into R1 reads.
	assert.NoError(t, s.Append(testEvent("R2", TypeRunnerStart, base)))

	events, err := s.ReadAll("R1")
	assert.NoError(t, err)
	assert.Len(t, events, len(types))
	for i, e := range events {
		assert.Equal(t, types[i], e.Type)
		assert.Equal(t, "R1", e.RunID)
		assert.Equal(t, float64(i), e.Payload["seq"])
	}
}

func TestSQLiteRejectsMissingType(t *testing.T) {
	t.Parallel()

	s, _ := newTestSQLite(t)

	good := testEvent("R1", TypeRunnerStart, time.Now().UTC())
	assert.NoError(t, s.Append(good))

	bad := testEvent("R1", "", time.Now().UTC())
	err := s.Append(bad)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaViolation))

	// Prior history is unchanged and readable.
	events, err := s.ReadAll("R1")
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, TypeRunnerStart, events[0].Type)
}

func TestSQLiteRejectsUnknownEnumValues(t *testing.T) {
	t.Parallel()

	s, _ := newTestSQLite(t)

	e := testEvent("R1", "banana", time.Now().UTC())
	assert.ErrorIs(t, s.Append(e), ErrSchemaViolation)

	e = testEvent("R1", TypeHeartbeat, time.Now().UTC())
	e.Level = "loud"
	assert.ErrorIs(t, s.Append(e), ErrSchemaViolation)

	e = testEvent("", TypeHeartbeat, time.Now().UTC())
	assert.ErrorIs(t, s.Append(e), ErrSchemaViolation)
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	s, _ := newTestSQLite(t)

	base := time.Now().UTC()
	assert.NoError(t, s.Append(testEvent("A", TypeRunnerStart, base)))
	assert.NoError(t, s.Append(testEvent("B", TypeRunnerStart, base.Add(time.Second))))
	assert.NoError(t, s.Append(testEvent("A", TypeRunnerEnd, base.Add(2*time.Second))))

	runs, err := s.ListRuns()
	assert.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, runs)
}
