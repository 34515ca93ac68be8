package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/readiness/creds"
	"github.com/rustyeddy/readiness/exchange"
)

// Check is the outcome of one preflight validation.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// AllPassed reports whether every check in the set passed. An empty set
// does not pass; the gate must actually have run.
func AllPassed(checks []Check) bool {
	if len(checks) == 0 {
		return false
	}
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the names of the checks that did not pass.
func Failed(checks []Check) []string {
	var names []string
	for _, c := range checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// GateConfig carries the bounds the preflight checks enforce.
type GateConfig struct {
	Pair            string
	QuoteCurrency   string
	MinQuoteBalance decimal.Decimal
	MaxClockSkew    time.Duration
}

// Gate runs the pre-live validation set. It composes the credential
// provider and the exchange client; it never places orders itself.
type Gate struct {
	State  *State
	Client exchange.Client
	Creds  creds.Provider
	Config GateConfig
}

// Preflight runs every check and returns all results. Checks do not
// short-circuit on first failure: an operator should see every problem at
// once, not one per attempt.
func (g *Gate) Preflight(ctx context.Context) []Check {
	return []Check{
		g.checkAcknowledgment(),
		g.checkClockSkew(ctx),
		g.checkPairMetadata(ctx),
		g.checkBalance(ctx),
		g.checkAuthentication(ctx),
	}
}

func (g *Gate) checkAcknowledgment() Check {
	c := Check{Name: "acknowledgment"}
	if !g.State.LiveAcknowledged() {
		c.Detail = "live trading confirmation token absent or mismatched"
		return c
	}
	c.Passed = true
	c.Detail = "live trading explicitly acknowledged"
	return c
}

func (g *Gate) checkClockSkew(ctx context.Context) Check {
	c := Check{Name: "clock-skew"}

	serverTime, err := g.Client.ServerTime(ctx)
	if err != nil {
		c.Detail = fmt.Sprintf("server time unavailable: %v", err)
		return c
	}

	skew := time.Since(serverTime)
	if skew < 0 {
		skew = -skew
	}
	if skew > g.Config.MaxClockSkew {
		c.Detail = fmt.Sprintf("clock skew %v exceeds bound %v", skew.Round(time.Millisecond), g.Config.MaxClockSkew)
		return c
	}
	c.Passed = true
	c.Detail = fmt.Sprintf("clock skew %v within bound %v", skew.Round(time.Millisecond), g.Config.MaxClockSkew)
	return c
}

func (g *Gate) checkPairMetadata(ctx context.Context) Check {
	c := Check{Name: "exchange-metadata"}

	meta, err := g.Client.PairMetadata(ctx, g.Config.Pair)
	if err != nil {
		c.Detail = fmt.Sprintf("metadata for %s unavailable: %v", g.Config.Pair, err)
		return c
	}
	if !meta.Enabled {
		c.Detail = fmt.Sprintf("pair %s is not enabled for trading", g.Config.Pair)
		return c
	}
	if meta.MaxOrderSize.IsPositive() && meta.MinOrderSize.GreaterThan(meta.MaxOrderSize) {
		c.Detail = fmt.Sprintf("pair %s has inverted size bounds [%s, %s]",
			g.Config.Pair, meta.MinOrderSize, meta.MaxOrderSize)
		return c
	}
	c.Passed = true
	c.Detail = fmt.Sprintf("pair %s enabled, order size [%s, %s]",
		g.Config.Pair, meta.MinOrderSize, meta.MaxOrderSize)
	return c
}

func (g *Gate) checkBalance(ctx context.Context) Check {
	c := Check{Name: "balance"}

	bal, err := g.Client.Balance(ctx, g.Config.QuoteCurrency)
	if err != nil {
		c.Detail = fmt.Sprintf("balance for %s unavailable: %v", g.Config.QuoteCurrency, err)
		return c
	}
	if bal.LessThan(g.Config.MinQuoteBalance) {
		c.Detail = fmt.Sprintf("balance %s %s below minimum %s",
			bal, g.Config.QuoteCurrency, g.Config.MinQuoteBalance)
		return c
	}
	c.Passed = true
	c.Detail = fmt.Sprintf("balance %s %s meets minimum %s",
		bal, g.Config.QuoteCurrency, g.Config.MinQuoteBalance)
	return c
}

func (g *Gate) checkAuthentication(ctx context.Context) Check {
	c := Check{Name: "authentication"}

	if _, err := g.Creds.Resolve(); err != nil {
		c.Detail = fmt.Sprintf("credential resolution failed: %v", err)
		return c
	}
	if err := g.Client.Ping(ctx); err != nil {
		c.Detail = fmt.Sprintf("signed no-op rejected: %v", err)
		return c
	}
	c.Passed = true
	c.Detail = "credential pair accepted by exchange"
	return c
}

// IsKillSwitchEngaged re-probes the external toggle. Never cached.
func (g *Gate) IsKillSwitchEngaged() bool {
	return g.State.KillSwitchEngaged()
}
