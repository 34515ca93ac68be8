package safety

import (
	"context"

	"github.com/rustyeddy/readiness/exchange"
)

// GuardedClient wraps an exchange client so the kill switch is probed
// immediately before every order submission. It is the last line of
// defense: a toggle flipped after preflight still blocks the order.
type GuardedClient struct {
	exchange.Client
	state *State
}

func Guard(client exchange.Client, state *State) *GuardedClient {
	return &GuardedClient{Client: client, state: state}
}

func (g *GuardedClient) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderFill, error) {
	if g.state.KillSwitchEngaged() {
		return exchange.OrderFill{}, ErrKillSwitchEngaged
	}
	return g.Client.CreateOrder(ctx, req)
}
