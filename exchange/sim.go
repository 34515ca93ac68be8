package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Sim is a deterministic in-memory venue used for dry runs and tests.
// It fills market orders immediately at a fixed price.
type Sim struct {
	mu sync.Mutex

	// ClockSkew is added to the local clock when reporting server time.
	ClockSkew time.Duration

	// FailPing simulates a credential rejection on the signed no-op.
	FailPing bool

	balances map[string]decimal.Decimal
	pairs    map[string]PairMetadata
	prices   map[string]decimal.Decimal
	fills    []OrderFill
	nextID   int
}

func NewSim() *Sim {
	return &Sim{
		balances: map[string]decimal.Decimal{},
		pairs:    map[string]PairMetadata{},
		prices:   map[string]decimal.Decimal{},
	}
}

// SetBalance seeds the available balance for a currency.
func (s *Sim) SetBalance(currency string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[currency] = amount
}

// SetPair seeds pair metadata and its fill price.
func (s *Sim) SetPair(meta PairMetadata, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[meta.Pair] = meta
	s.prices[meta.Pair] = price
}

// Fills returns the orders the sim has filled, in submission order.
func (s *Sim) Fills() []OrderFill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OrderFill, len(s.fills))
	copy(out, s.fills)
	return out
}

func (s *Sim) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Now().UTC().Add(s.ClockSkew), nil
}

func (s *Sim) PairMetadata(ctx context.Context, pair string) (PairMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.pairs[pair]
	if !ok {
		return PairMetadata{}, wrap(KindValidation, "pair_metadata", fmt.Errorf("unknown pair %q", pair))
	}
	return meta, nil
}

func (s *Sim) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[currency]
	if !ok {
		return decimal.Zero, nil
	}
	return bal, nil
}

func (s *Sim) Ping(ctx context.Context) error {
	if s.FailPing {
		return wrap(KindAuthentication, "ping", fmt.Errorf("credentials rejected"))
	}
	return nil
}

func (s *Sim) CreateOrder(ctx context.Context, req OrderRequest) (OrderFill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.pairs[req.Pair]
	if !ok {
		return OrderFill{}, wrap(KindValidation, "create_order", fmt.Errorf("unknown pair %q", req.Pair))
	}
	if !meta.Enabled {
		return OrderFill{}, wrap(KindValidation, "create_order", fmt.Errorf("pair %q disabled", req.Pair))
	}
	if !meta.WithinBounds(req.Units) {
		return OrderFill{}, wrap(KindValidation, "create_order",
			fmt.Errorf("units %s outside [%s, %s]", req.Units, meta.MinOrderSize, meta.MaxOrderSize))
	}

	price := s.prices[req.Pair]
	if req.Side == Buy {
		cost := req.Units.Mul(price)
		quote := quoteCurrency(req.Pair)
		if s.balances[quote].LessThan(cost) {
			return OrderFill{}, wrap(KindInsufficientFunds, "create_order",
				fmt.Errorf("need %s %s, have %s", cost, quote, s.balances[quote]))
		}
		s.balances[quote] = s.balances[quote].Sub(cost)
	}

	s.nextID++
	fill := OrderFill{
		OrderID:       fmt.Sprintf("SIM-%d", s.nextID),
		ClientOrderID: req.ClientOrderID,
		Pair:          req.Pair,
		Side:          req.Side,
		Units:         req.Units,
		Price:         price,
		Time:          time.Now().UTC(),
	}
	s.fills = append(s.fills, fill)
	return fill, nil
}

// quoteCurrency extracts the quote leg from a BASE-QUOTE pair name.
func quoteCurrency(pair string) string {
	for i := len(pair) - 1; i >= 0; i-- {
		if pair[i] == '-' || pair[i] == '_' {
			return pair[i+1:]
		}
	}
	return pair
}
