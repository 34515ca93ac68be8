package safety

import (
	"errors"
	"os"
	"sync/atomic"
)

// AckToken is the confirmation value an operator must supply to unlock
// live mode. Anything else fails closed.
const AckToken = "I-UNDERSTAND-LIVE-TRADING"

var (
	ErrKillSwitchEngaged = errors.New("kill switch engaged")
	ErrNotAcknowledged   = errors.New("live trading not acknowledged")
)

// State holds the process-wide safety flags. It is constructed explicitly
// at startup and injected; there is no package-level singleton. The kill
// switch is probed fresh on every read so an operator can engage it while
// a run is in flight.
type State struct {
	acknowledged atomic.Bool
	killProbe    func() bool
}

// NewState builds the safety state. ackValue unlocks live mode only when
// it equals AckToken exactly. killProbe is consulted on every
// KillSwitchEngaged call; nil means no kill switch is wired, which reads
// as not engaged.
func NewState(ackValue string, killProbe func() bool) *State {
	s := &State{killProbe: killProbe}
	s.acknowledged.Store(ackValue == AckToken)
	return s
}

// LiveAcknowledged reports whether the operator supplied the exact
// confirmation token.
func (s *State) LiveAcknowledged() bool {
	return s.acknowledged.Load()
}

// KillSwitchEngaged probes the external toggle. The result is never
// cached: the switch must be observable mid-run, immediately before any
// order call.
func (s *State) KillSwitchEngaged() bool {
	if s.killProbe == nil {
		return false
	}
	return s.killProbe()
}

// Switch is an in-process kill switch backed by an atomic flag. Use its
// Engaged method as the probe when the toggle lives inside the process
// (tests, embedded deployments).
type Switch struct {
	engaged atomic.Bool
}

func (w *Switch) Engage()       { w.engaged.Store(true) }
func (w *Switch) Release()      { w.engaged.Store(false) }
func (w *Switch) Engaged() bool { return w.engaged.Load() }

// FileKillSwitch returns a probe that reports engaged while path exists.
// Operators engage it with `touch <path>` and release it by removing the
// file; no restart required.
func FileKillSwitch(path string) func() bool {
	return func() bool {
		_, err := os.Stat(path)
		return err == nil
	}
}
