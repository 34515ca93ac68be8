package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONL appends one JSON object per line to a log file. Each Append is a
// single write of a complete line, so a cancelled run never leaves a
// partially written record behind it.
type JSONL struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &JSONL{f: f, path: path}, nil
}

func (j *JSONL) Append(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: payload not serializable: %v", ErrSchemaViolation, err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err = j.f.Write(line)
	return err
}

// ReadAll reopens the file for reading so a replay never disturbs the
// append handle. Unknown fields on a line are ignored by the decoder.
func (j *JSONL) ReadAll(runID string) ([]Event, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("corrupt event line: %w", err)
		}
		if e.RunID == runID {
			events = append(events, e)
		}
	}
	return events, sc.Err()
}

func (j *JSONL) ListRuns() ([]string, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := map[string]bool{}
	var runs []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("corrupt event line: %w", err)
		}
		if !seen[e.RunID] {
			seen[e.RunID] = true
			runs = append(runs, e.RunID)
		}
	}
	return runs, sc.Err()
}

func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}
