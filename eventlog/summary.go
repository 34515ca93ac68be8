package eventlog

// Summary is a derived aggregate over one run's events. It is never
// persisted as its own source of truth: Summarize is a pure fold over the
// event sequence, so recomputing it always yields the same result.

type PhaseSummary struct {
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type Summary struct {
	RunID           string         `json:"run_id"`
	InitialCapital  float64        `json:"initial_capital"`
	CurrentEquity   float64        `json:"current_equity"`
	TotalPnL        float64        `json:"total_pnl"`
	ROI             float64        `json:"roi"`
	PhasesCompleted []PhaseSummary `json:"phases_completed"`
	ErrorsCount     int            `json:"errors_count"`
	DurationSeconds float64        `json:"duration_seconds"`
	Status          string         `json:"status"`
}

// Summarize folds an ordered event sequence into a Summary. It reads
// payload keys written by the runner (initial_capital, equity, status,
// duration_seconds) and ignores everything it does not recognize.
func Summarize(runID string, events []Event) Summary {
	s := Summary{RunID: runID, Status: "running"}

	var first, last int = -1, -1
	for i, e := range events {
		if e.RunID != runID {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i

		if e.Level == LevelError {
			s.ErrorsCount++
		}

		switch e.Type {
		case TypeRunnerStart:
			if v, ok := payloadFloat(e.Payload, "initial_capital"); ok {
				s.InitialCapital = v
				s.CurrentEquity = v
			}
		case TypePhaseEnd:
			ps := PhaseSummary{Name: e.Phase}
			if v, ok := payloadString(e.Payload, "status"); ok {
				ps.Status = v
			}
			if v, ok := payloadFloat(e.Payload, "duration_seconds"); ok {
				ps.DurationSeconds = v
			}
			s.PhasesCompleted = append(s.PhasesCompleted, ps)
		case TypeRunnerEnd:
			if v, ok := payloadString(e.Payload, "status"); ok {
				s.Status = v
			}
		}

		if v, ok := payloadFloat(e.Payload, "equity"); ok {
			s.CurrentEquity = v
		}
	}

	if first >= 0 && last >= first {
		s.DurationSeconds = events[last].Time.Sub(events[first].Time).Seconds()
	}
	s.TotalPnL = s.CurrentEquity - s.InitialCapital
	if s.InitialCapital != 0 {
		s.ROI = s.TotalPnL / s.InitialCapital
	}
	return s
}

// SummarizeRun reads a run's events from the store and folds them.
func SummarizeRun(store Store, runID string) (Summary, error) {
	events, err := store.ReadAll(runID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(runID, events), nil
}

// payloadFloat tolerates both native numerics and JSON-decoded float64.
func payloadFloat(p map[string]any, key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func payloadString(p map[string]any, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}
