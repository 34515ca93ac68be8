package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// REST talks to the venue's HTTP API with HMAC-signed requests.
type REST struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client
}

// NewREST creates a venue client. Credentials come from the credential
// provider; they are held in memory only.
func NewREST(baseURL, key, secret string) *REST {
	return &REST{
		baseURL: baseURL,
		key:     key,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type serverTimeResponse struct {
	Time string `json:"time"`
}

func (c *REST) ServerTime(ctx context.Context) (time.Time, error) {
	var resp serverTimeResponse
	if err := c.do(ctx, http.MethodGet, "/v1/time", nil, &resp); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, resp.Time)
	if err != nil {
		return time.Time{}, wrap(KindUnknown, "server_time", fmt.Errorf("bad time %q: %w", resp.Time, err))
	}
	return t, nil
}

type pairResponse struct {
	Pair         string `json:"pair"`
	Status       string `json:"status"`
	MinOrderSize string `json:"min_order_size"`
	MaxOrderSize string `json:"max_order_size"`
	MinNotional  string `json:"min_notional"`
}

func (c *REST) PairMetadata(ctx context.Context, pair string) (PairMetadata, error) {
	if pair == "" {
		return PairMetadata{}, wrap(KindValidation, "pair_metadata", fmt.Errorf("pair is required"))
	}

	var resp pairResponse
	if err := c.do(ctx, http.MethodGet, "/v1/pairs/"+pair, nil, &resp); err != nil {
		return PairMetadata{}, err
	}

	meta := PairMetadata{
		Pair:    resp.Pair,
		Enabled: resp.Status == "online",
	}
	var err error
	if meta.MinOrderSize, err = decimal.NewFromString(resp.MinOrderSize); err != nil {
		return PairMetadata{}, wrap(KindUnknown, "pair_metadata", err)
	}
	if meta.MaxOrderSize, err = decimal.NewFromString(resp.MaxOrderSize); err != nil {
		return PairMetadata{}, wrap(KindUnknown, "pair_metadata", err)
	}
	if resp.MinNotional != "" {
		if meta.MinNotional, err = decimal.NewFromString(resp.MinNotional); err != nil {
			return PairMetadata{}, wrap(KindUnknown, "pair_metadata", err)
		}
	}
	return meta, nil
}

type balanceResponse struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
}

func (c *REST) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, "/v1/balances/"+currency, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	bal, err := decimal.NewFromString(resp.Available)
	if err != nil {
		return decimal.Zero, wrap(KindUnknown, "balance", err)
	}
	return bal, nil
}

// Ping is a signed no-op; the venue rejects it unless the key/secret pair
// is valid, which is exactly what the authentication preflight wants.
func (c *REST) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/ping", nil, nil)
}

type orderBody struct {
	ClientOrderID string `json:"client_order_id"`
	Pair          string `json:"pair"`
	Side          string `json:"side"`
	Units         string `json:"units"`
	Type          string `json:"type"`
}

type orderResponse struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Pair          string `json:"pair"`
	Side          string `json:"side"`
	Units         string `json:"units"`
	Price         string `json:"price"`
	Time          string `json:"time"`
}

func (c *REST) CreateOrder(ctx context.Context, req OrderRequest) (OrderFill, error) {
	if req.Pair == "" || req.Units.IsZero() {
		return OrderFill{}, wrap(KindValidation, "create_order", fmt.Errorf("pair and units are required"))
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = NewClientOrderID()
	}

	body := orderBody{
		ClientOrderID: req.ClientOrderID,
		Pair:          req.Pair,
		Side:          string(req.Side),
		Units:         req.Units.String(),
		Type:          "market",
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return OrderFill{}, err
	}

	fill := OrderFill{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Pair:          resp.Pair,
		Side:          Side(resp.Side),
	}
	var err error
	if fill.Units, err = decimal.NewFromString(resp.Units); err != nil {
		return OrderFill{}, wrap(KindUnknown, "create_order", err)
	}
	if fill.Price, err = decimal.NewFromString(resp.Price); err != nil {
		return OrderFill{}, wrap(KindUnknown, "create_order", err)
	}
	if resp.Time != "" {
		if fill.Time, err = time.Parse(time.RFC3339Nano, resp.Time); err != nil {
			return OrderFill{}, wrap(KindUnknown, "create_order", err)
		}
	}
	return fill, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs one signed request and decodes the JSON response into out.
// Failures come back already classified.
func (c *REST) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return wrap(KindValidation, op, err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return wrap(KindValidation, op, err)
	}

	ts := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	req.Header.Set("X-API-Key", c.key)
	req.Header.Set("X-API-Timestamp", ts)
	req.Header.Set("X-API-Sign", c.sign(ts, method, path))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection-level failures are retryable by definition.
		return wrap(KindTransient, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		kind := kindFromStatus(resp.StatusCode)

		var ae apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(raw, &ae) == nil {
			if ae.Code == "insufficient_funds" {
				kind = KindInsufficientFunds
			}
			if ae.Message != "" {
				return wrap(kind, op, fmt.Errorf("status %d: %s", resp.StatusCode, ae.Message))
			}
		}
		return wrap(kind, op, fmt.Errorf("status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap(KindUnknown, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// sign computes the request signature: HMAC-SHA256 over ts+method+path.
func (c *REST) sign(ts, method, path string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(ts + method + path))
	return hex.EncodeToString(mac.Sum(nil))
}
