package runner

import (
	"context"
	"time"
)

// PhaseName identifies one ordered unit of the readiness workflow.
type PhaseName string

const (
	PhaseData     PhaseName = "data"
	PhaseStrategy PhaseName = "strategy"
	PhaseExchange PhaseName = "exchange"
)

// Status is a phase lifecycle state. Terminal states are immutable once
// recorded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Phase is a named unit of work with a deadline and retry budget. Body
// does the work; SelfCheck, if set, is the bounded postcondition
// validation run after Body succeeds and before the next phase starts.
type Phase struct {
	Name        PhaseName
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration

	Body      func(ctx context.Context) error
	SelfCheck func(ctx context.Context) error
}

// PhaseResult is the immutable outcome of one phase execution.
type PhaseResult struct {
	Name     PhaseName
	Status   Status
	Attempts int
	Duration time.Duration
	Err      error
}

// Mode selects simulated or real capital.
type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModeLive   Mode = "live"
)

// RunStatus is the workflow-level state.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// WorkflowRun is one execution of the full phase sequence. It is owned by
// the runner while running and read-only once the terminal event is
// written.
type WorkflowRun struct {
	RunID     string
	StartedAt time.Time
	Mode      Mode
	Phases    []PhaseResult
	Status    RunStatus
}
