package safety

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/readiness/creds"
	"github.com/rustyeddy/readiness/exchange"
)

func goodSim() *exchange.Sim {
	s := exchange.NewSim()
	s.SetBalance("USD", decimal.NewFromInt(100))
	s.SetPair(exchange.PairMetadata{
		Pair:         "BTC-USD",
		Enabled:      true,
		MinOrderSize: decimal.RequireFromString("0.001"),
		MaxOrderSize: decimal.NewFromInt(100),
	}, decimal.NewFromInt(100))
	return s
}

func newGate(client exchange.Client, state *State) *Gate {
	return &Gate{
		State:  state,
		Client: client,
		Creds:  creds.Static{Key: "k", Secret: "s"},
		Config: GateConfig{
			Pair:            "BTC-USD",
			QuoteCurrency:   "USD",
			MinQuoteBalance: decimal.NewFromInt(10),
			MaxClockSkew:    time.Second,
		},
	}
}

func checkByName(t *testing.T, checks []Check, name string) Check {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return Check{}
}

func TestPreflightAllPass(t *testing.T) {
	t.Parallel()

	gate := newGate(goodSim(), NewState(AckToken, nil))
	checks := gate.Preflight(context.Background())

	assert.Len(t, checks, 5)
	assert.True(t, AllPassed(checks))
	assert.Empty(t, Failed(checks))
}

func TestPreflightClockSkewBound(t *testing.T) {
	t.Parallel()

	sim := goodSim()
	sim.ClockSkew = 1500 * time.Millisecond

	gate := newGate(sim, NewState(AckToken, nil))
	checks := gate.Preflight(context.Background())

	c := checkByName(t, checks, "clock-skew")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Detail, "exceeds bound")
	assert.False(t, AllPassed(checks))
}

func TestPreflightBalanceBelowMinimum(t *testing.T) {
	t.Parallel()

	sim := goodSim()
	sim.SetBalance("USD", decimal.NewFromInt(5))

	gate := newGate(sim, NewState(AckToken, nil))
	checks := gate.Preflight(context.Background())

	c := checkByName(t, checks, "balance")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Detail, "below minimum")
	assert.False(t, AllPassed(checks))
}

func TestPreflightDisabledPair(t *testing.T) {
	t.Parallel()

	sim := goodSim()
	sim.SetPair(exchange.PairMetadata{
		Pair:         "BTC-USD",
		Enabled:      false,
		MinOrderSize: decimal.RequireFromString("0.001"),
		MaxOrderSize: decimal.NewFromInt(100),
	}, decimal.NewFromInt(100))

	gate := newGate(sim, NewState(AckToken, nil))
	c := checkByName(t, gate.Preflight(context.Background()), "exchange-metadata")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Detail, "not enabled")
}

func TestPreflightMissingAcknowledgment(t *testing.T) {
	t.Parallel()

	gate := newGate(goodSim(), NewState("nope", nil))
	c := checkByName(t, gate.Preflight(context.Background()), "acknowledgment")
	assert.False(t, c.Passed)
}

func TestPreflightAuthenticationRejected(t *testing.T) {
	t.Parallel()

	sim := goodSim()
	sim.FailPing = true

	gate := newGate(sim, NewState(AckToken, nil))
	c := checkByName(t, gate.Preflight(context.Background()), "authentication")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Detail, "rejected")
}

func TestPreflightDoesNotShortCircuit(t *testing.T) {
	t.Parallel()

	// Multiple independent failures must all surface in one pass.
	sim := goodSim()
	sim.ClockSkew = 2 * time.Second
	sim.SetBalance("USD", decimal.NewFromInt(1))
	sim.FailPing = true

	gate := newGate(sim, NewState("", nil))
	checks := gate.Preflight(context.Background())

	assert.Len(t, checks, 5)
	failed := Failed(checks)
	assert.Contains(t, failed, "acknowledgment")
	assert.Contains(t, failed, "clock-skew")
	assert.Contains(t, failed, "balance")
	assert.Contains(t, failed, "authentication")
}

func TestAllPassedEmptySet(t *testing.T) {
	t.Parallel()

	assert.False(t, AllPassed(nil))
}

func TestGuardedClientBlocksOrders(t *testing.T) {
	t.Parallel()

	sim := goodSim()
	var sw Switch
	state := NewState(AckToken, sw.Engaged)
	guarded := Guard(sim, state)

	req := exchange.OrderRequest{
		ClientOrderID: exchange.NewClientOrderID(),
		Pair:          "BTC-USD",
		Side:          exchange.Buy,
		Units:         decimal.RequireFromString("0.01"),
	}

	// Disengaged: order passes through.
	_, err := guarded.CreateOrder(context.Background(), req)
	assert.NoError(t, err)

	// Engaged after preflight would have passed: still blocked.
	sw.Engage()
	_, err = guarded.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrKillSwitchEngaged)
	assert.Len(t, sim.Fills(), 1)

	// Reads pass through regardless.
	_, err = guarded.Balance(context.Background(), "USD")
	assert.NoError(t, err)
}
