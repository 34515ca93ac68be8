package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is the venue-facing capability the runner and safety gate
// consume. Implementations are safe for concurrent read access; the
// heartbeat task and phase body may share one instance.
type Client interface {
	// ServerTime returns the venue's clock, used for skew detection.
	ServerTime(ctx context.Context) (time.Time, error)

	// PairMetadata returns trading filters and limits for a pair.
	PairMetadata(ctx context.Context, pair string) (PairMetadata, error)

	// Balance returns the available balance of one currency.
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)

	// Ping performs a signed no-op call that validates the credential
	// pair without side effects.
	Ping(ctx context.Context) error

	// CreateOrder submits a market order.
	CreateOrder(ctx context.Context, req OrderRequest) (OrderFill, error)
}

// Side of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// PairMetadata carries the venue's filters for one trading pair.
type PairMetadata struct {
	Pair         string
	Enabled      bool
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
	MinNotional  decimal.Decimal
}

// WithinBounds reports whether units satisfies the pair's size filters.
func (m PairMetadata) WithinBounds(units decimal.Decimal) bool {
	if units.LessThan(m.MinOrderSize) {
		return false
	}
	if m.MaxOrderSize.IsPositive() && units.GreaterThan(m.MaxOrderSize) {
		return false
	}
	return true
}

type OrderRequest struct {
	ClientOrderID string
	Pair          string
	Side          Side
	Units         decimal.Decimal
}

type OrderFill struct {
	OrderID       string
	ClientOrderID string
	Pair          string
	Side          Side
	Units         decimal.Decimal
	Price         decimal.Decimal
	Time          time.Time
}

// NewClientOrderID returns an idempotency key for order submission.
func NewClientOrderID() string {
	return uuid.NewString()
}
