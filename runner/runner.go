package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/readiness/eventlog"
	"github.com/rustyeddy/readiness/exchange"
	"github.com/rustyeddy/readiness/metrics"
	"github.com/rustyeddy/readiness/pkg/id"
	"github.com/rustyeddy/readiness/safety"
)

// ErrWorkflowFailed wraps any terminal failure so callers can map it to a
// non-zero exit code.
var ErrWorkflowFailed = errors.New("workflow failed")

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultSelfCheckTimeout  = 10 * time.Minute
	defaultBackoffCap        = 30 * time.Second
)

// Options tunes a workflow run.
type Options struct {
	Mode              Mode
	HeartbeatInterval time.Duration
	SelfCheckTimeout  time.Duration
	BackoffCap        time.Duration
	InitialCapital    float64
}

// Runner drives the ordered phase sequence, writing every transition to
// the event store. One Runner executes one run at a time; phases are
// strictly sequential.
type Runner struct {
	phases []Phase
	store  eventlog.Store
	gate   *safety.Gate
	opts   Options
}

// New builds a runner. gate may be nil for dry runs; live mode refuses to
// enter the exchange phase without one.
func New(phases []Phase, store eventlog.Store, gate *safety.Gate, opts Options) *Runner {
	if opts.Mode == "" {
		opts.Mode = ModeDryRun
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opts.SelfCheckTimeout <= 0 {
		opts.SelfCheckTimeout = defaultSelfCheckTimeout
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = defaultBackoffCap
	}
	return &Runner{phases: phases, store: store, gate: gate, opts: opts}
}

// Run executes the configured phases in order, fail-fast. The returned
// WorkflowRun is read-only once the terminal event has been written. A
// non-nil error means the run did not succeed.
func (r *Runner) Run(ctx context.Context) (*WorkflowRun, error) {
	run := &WorkflowRun{
		RunID:     id.New(),
		StartedAt: time.Now().UTC(),
		Mode:      r.opts.Mode,
		Status:    RunRunning,
	}

	log.Printf("run %s starting — mode=%s phases=%d", run.RunID, run.Mode, len(r.phases))
	r.emit(run.RunID, "", eventlog.TypeRunnerStart, eventlog.LevelInfo,
		fmt.Sprintf("workflow started in %s mode", run.Mode),
		map[string]any{
			"mode":            string(run.Mode),
			"initial_capital": r.opts.InitialCapital,
		})

	var failedPhase *PhaseResult
	for i := range r.phases {
		res := r.runPhase(ctx, run.RunID, r.phases[i])
		run.Phases = append(run.Phases, res)
		if res.Status != StatusSucceeded {
			failedPhase = &run.Phases[len(run.Phases)-1]
			break
		}
	}

	if failedPhase != nil {
		run.Status = RunFailed
	} else {
		run.Status = RunSuccess
	}

	// The terminal event is written even when ctx was cancelled mid-phase,
	// so the log always has a coherent end state for the run.
	r.emit(run.RunID, "", eventlog.TypeRunnerEnd, terminalLevel(run.Status),
		fmt.Sprintf("workflow finished: %s", run.Status),
		map[string]any{"status": string(run.Status)})
	metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	log.Printf("run %s finished — status=%s", run.RunID, run.Status)

	if failedPhase != nil {
		return run, fmt.Errorf("%w: phase %s %s: %v",
			ErrWorkflowFailed, failedPhase.Name, failedPhase.Status, failedPhase.Err)
	}
	return run, nil
}

func (r *Runner) runPhase(ctx context.Context, runID string, p Phase) PhaseResult {
	res := PhaseResult{Name: p.Name, Status: StatusRunning}

	log.Printf("run %s phase %s starting — timeout=%s retries=%d", runID, p.Name, p.Timeout, p.MaxRetries)
	r.emit(runID, p.Name, eventlog.TypePhaseStart, eventlog.LevelInfo,
		fmt.Sprintf("phase %s started", p.Name), nil)

	stopHeartbeat := r.startHeartbeat(ctx, runID, p.Name)
	defer stopHeartbeat()

	start := time.Now()
	finish := func(status Status, err error, reason string) PhaseResult {
		res.Status = status
		res.Err = err
		res.Duration = time.Since(start)

		if err != nil {
			r.emit(runID, p.Name, eventlog.TypeError, eventlog.LevelError,
				fmt.Sprintf("phase %s: %v", p.Name, err),
				map[string]any{"reason": reason})
		}
		r.emit(runID, p.Name, eventlog.TypePhaseEnd, eventlog.LevelInfo,
			fmt.Sprintf("phase %s ended: %s", p.Name, status),
			map[string]any{
				"status":           string(status),
				"duration_seconds": res.Duration.Seconds(),
				"attempts":         res.Attempts,
			})
		metrics.PhasesTotal.WithLabelValues(string(p.Name), string(status)).Inc()
		metrics.PhaseSeconds.WithLabelValues(string(p.Name)).Set(res.Duration.Seconds())
		return res
	}

	// Live order capability is gated here: preflight must be all-green and
	// the kill switch must read disengaged immediately before the phase
	// body can run.
	if p.Name == PhaseExchange && r.opts.Mode == ModeLive {
		if r.gate == nil {
			return finish(StatusFailed, fmt.Errorf("live mode requires a safety gate"), "safety_check_failed")
		}

		checks := r.gate.Preflight(ctx)
		for _, c := range checks {
			level := eventlog.LevelInfo
			result := "pass"
			if !c.Passed {
				level = eventlog.LevelWarning
				result = "fail"
			}
			r.emit(runID, p.Name, eventlog.TypeCheckpoint, level,
				fmt.Sprintf("preflight %s: %s", c.Name, c.Detail),
				map[string]any{"check": c.Name, "passed": c.Passed})
			metrics.PreflightChecksTotal.WithLabelValues(c.Name, result).Inc()
		}
		if !safety.AllPassed(checks) {
			return finish(StatusFailed,
				fmt.Errorf("preflight checks failed: %s", strings.Join(safety.Failed(checks), ", ")),
				"safety_check_failed")
		}

		if r.gate.IsKillSwitchEngaged() {
			metrics.KillSwitchBlocksTotal.Inc()
			return finish(StatusFailed, safety.ErrKillSwitchEngaged, "kill_switch_engaged")
		}
	}

	phaseCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		err := p.Body(phaseCtx)
		if err == nil {
			break
		}

		// Deadline wins over classification: a body interrupted by the
		// phase timeout is timed_out, not a retryable transient.
		if phaseCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return finish(StatusTimedOut, fmt.Errorf("deadline exceeded after %s", p.Timeout), "deadline_exceeded")
		}
		if ctx.Err() != nil {
			return finish(StatusFailed, ctx.Err(), "cancelled")
		}

		if !exchange.Retryable(err) || attempt >= p.MaxRetries {
			return finish(StatusFailed, err, exchange.Classify(err).String())
		}

		delay := backoffDelay(p.BackoffBase, attempt, r.opts.BackoffCap)
		metrics.RetriesTotal.WithLabelValues(string(p.Name)).Inc()
		r.emit(runID, p.Name, eventlog.TypeCheckpoint, eventlog.LevelWarning,
			fmt.Sprintf("transient failure (attempt %d/%d), retrying in %s: %v",
				attempt+1, p.MaxRetries+1, delay, err),
			map[string]any{"attempt": attempt + 1, "delay_ms": delay.Milliseconds()})

		select {
		case <-time.After(delay):
		case <-phaseCtx.Done():
			if phaseCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return finish(StatusTimedOut, fmt.Errorf("deadline exceeded after %s", p.Timeout), "deadline_exceeded")
			}
			return finish(StatusFailed, ctx.Err(), "cancelled")
		}
	}

	// Bounded postcondition validation. A failed self-check is a phase
	// failure, never a silent continuation.
	if p.SelfCheck != nil {
		scCtx, scCancel := context.WithTimeout(ctx, r.opts.SelfCheckTimeout)
		scErr := p.SelfCheck(scCtx)
		scCancel()
		if scErr != nil {
			return finish(StatusFailed, fmt.Errorf("self-check: %w", scErr), "self_check_failed")
		}
		r.emit(runID, p.Name, eventlog.TypeCheckpoint, eventlog.LevelInfo,
			fmt.Sprintf("phase %s self-check passed", p.Name), nil)
	}

	return finish(StatusSucceeded, nil, "")
}

// startHeartbeat emits liveness events on a fixed interval until the
// returned stop function is called or the run context ends.
func (r *Runner) startHeartbeat(ctx context.Context, runID string, phase PhaseName) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(r.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.HeartbeatsTotal.Inc()
				r.emit(runID, phase, eventlog.TypeHeartbeat, eventlog.LevelInfo,
					fmt.Sprintf("phase %s alive", phase), nil)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (r *Runner) emit(runID string, phase PhaseName, typ eventlog.Type, level eventlog.Level, msg string, payload map[string]any) {
	e := eventlog.Event{
		Time:    time.Now().UTC(),
		RunID:   runID,
		Type:    typ,
		Phase:   string(phase),
		Level:   level,
		Message: msg,
		Payload: payload,
	}
	if err := r.store.Append(e); err != nil {
		log.Printf("event store append failed (%s %s): %v", typ, runID, err)
	}
}

// backoffDelay returns base * 2^attempt capped at max.
func backoffDelay(base time.Duration, attempt int, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		d = max
	}
	return d
}

func terminalLevel(status RunStatus) eventlog.Level {
	if status == RunFailed {
		return eventlog.LevelError
	}
	return eventlog.LevelInfo
}
