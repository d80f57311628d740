package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/auth"
	"github.com/standx-tools/volgate/internal/config"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/pkg/logger"
	"github.com/standx-tools/volgate/internal/pkg/metrics"
	"github.com/standx-tools/volgate/internal/signer"
	"golang.org/x/time/rate"
)

// Client is the typed trading client for the venue's REST API. Instances
// are independently constructible; each owns its own signing identity,
// session state and HTTP client.
type Client struct {
	tradeURL string
	authURL  string

	httpClient    *http.Client
	identity      *signer.Identity
	authz         *Authorizer
	authenticator *auth.Authenticator
	limiter       *rate.Limiter

	mu      sync.RWMutex
	wallet  *signer.Wallet
	address string
}

func New(cfg *config.Config) (*Client, error) {
	identity, err := signer.NewIdentity()
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Venue.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}

	rps := cfg.Venue.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}

	return &Client{
		tradeURL:      strings.TrimRight(cfg.Venue.TradeURL, "/"),
		authURL:       strings.TrimRight(cfg.Venue.AuthURL, "/"),
		httpClient:    httpClient,
		identity:      identity,
		authz:         NewAuthorizer(identity),
		authenticator: auth.NewAuthenticator(cfg.Venue.AuthURL, cfg.Venue.Chain, httpClient),
		limiter:       rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Authenticate runs the sign-in handshake and installs the bearer token.
// No token state is touched when any step fails.
func (c *Client) Authenticate(ctx context.Context, privateKey string) (*auth.Result, error) {
	wallet, err := signer.NewWallet(privateKey)
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrSigningFailed, "sign", "invalid wallet key", err)
	}

	result, err := c.authenticator.Authenticate(ctx, wallet, c.identity)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.wallet = wallet
	c.address = wallet.Address().Hex()
	c.mu.Unlock()
	c.authz.SetToken(result.Token)

	return result, nil
}

// Authenticated reports whether a login handshake has completed.
func (c *Client) Authenticated() bool {
	return c.authz.Token() != ""
}

// Address is the checksummed wallet address, empty before authentication.
func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

// Wallet returns the authenticated wallet signer, nil before authentication.
func (c *Client) Wallet() *signer.Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wallet
}

func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) ([]SymbolInfo, error) {
	var out []SymbolInfo
	query := url.Values{"symbol": {symbol}}
	err := c.get(ctx, c.tradeURL, "/api/query_symbol_info", query, &out)
	return out, err
}

// MinOrderQty looks up the venue-reported minimum order quantity for symbol.
func (c *Client) MinOrderQty(ctx context.Context, symbol string) (decimal.Decimal, error) {
	infos, err := c.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if len(infos) == 0 {
		return decimal.Zero, apperrors.NewStage(apperrors.ErrNotFound, "symbol_info", fmt.Sprintf("unknown symbol %q", symbol), nil)
	}
	return infos[0].MinOrderQty, nil
}

func (c *Client) GetMarket(ctx context.Context, symbol string) (*Market, error) {
	var out Market
	query := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, c.tradeURL, "/api/query_symbol_market", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	var out Ticker
	query := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, c.tradeURL, "/api/query_symbol_price", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	var out Balance
	if err := c.get(ctx, c.tradeURL, "/api/query_balance_v2", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPositions lists positions, optionally filtered by symbol ("" for all).
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]Position, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	var out []Position
	err := c.get(ctx, c.tradeURL, "/api/query_positions", query, &out)
	return out, err
}

// GetOpenOrders lists up to 500 resting orders, optionally by symbol.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	query := url.Values{"limit": {"500"}}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	var out struct {
		Result []Order `json:"result"`
	}
	if err := c.get(ctx, c.tradeURL, "/api/query_open_orders", query, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// PlaceOrder submits an order. Market orders go out with the "0" price
// sentinel and ioc; limit orders with gtc.
func (c *Client) PlaceOrder(ctx context.Context, params OrderParams) (json.RawMessage, error) {
	if !params.Side.Valid() {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("invalid side %q", params.Side))
	}

	body := newOrderBody{
		Symbol:     params.Symbol,
		Side:       params.Side,
		OrderType:  params.Type,
		Qty:        params.Qty.String(),
		ReduceOnly: params.ReduceOnly,
	}
	if params.Type == OrderTypeMarket {
		body.Price = "0"
		body.TimeInForce = timeInForceIOC
	} else {
		body.Price = params.Price.String()
		body.TimeInForce = timeInForceGTC
	}

	var out json.RawMessage
	if err := c.post(ctx, "/api/new_order", "order", body, &out); err != nil {
		return nil, err
	}
	logger.Debug("order placed", "symbol", params.Symbol, "side", params.Side, "qty", body.Qty, "price", body.Price)
	return out, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/api/cancel_order", "cancel", cancelOrderBody{OrderID: orderID}, &out)
	return out, err
}

func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/api/cancel_orders", "cancel", cancelOrdersBody{OrderIDList: orderIDs}, &out)
	return out, err
}

// CancelAllOrders fetches the open orders for symbol and batch-cancels
// every returned id. Nothing resting is treated as success.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) (json.RawMessage, error) {
	orders, err := c.GetOpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return json.RawMessage(`[]`), nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return c.CancelOrders(ctx, ids)
}

func (c *Client) ChangeLeverage(ctx context.Context, symbol string, leverage int) (json.RawMessage, error) {
	if leverage <= 0 {
		return nil, apperrors.NewInvalidRequest("leverage must be positive")
	}
	var out json.RawMessage
	err := c.post(ctx, "/api/change_leverage", "leverage", changeLeverageBody{Symbol: symbol, Leverage: leverage}, &out)
	return out, err
}

// ClosePosition issues a reduce-only market order on the opposite side of
// the supplied position side. Callers pass the side the position holds,
// not the side of the closing trade.
func (c *Client) ClosePosition(ctx context.Context, symbol string, size decimal.Decimal, positionSide Side) (json.RawMessage, error) {
	if !positionSide.Valid() {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("invalid side %q", positionSide))
	}
	return c.PlaceOrder(ctx, OrderParams{
		Symbol:     symbol,
		Side:       positionSide.Opposite(),
		Type:       OrderTypeMarket,
		Qty:        size.Abs(),
		ReduceOnly: true,
	})
}

// GetPoints fetches the pre-deposit reward points from the auth host.
func (c *Client) GetPoints(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, c.authURL, "/v1/offchain/pre-deposit/points", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, base, path string, query url.Values, out any) error {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, u, path, nil, out)
}

func (c *Client) post(ctx context.Context, path, stage string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewStage(apperrors.ErrInternal, stage, "marshal request body", err)
	}
	if err := c.do(ctx, http.MethodPost, c.tradeURL+path, path, payload, out); err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Stage == path {
			appErr.Stage = stage
		}
		return err
	}
	return nil
}

// do executes one venue request. Non-2xx responses surface the venue payload
// verbatim; transport errors (including timeouts) map to the network class.
// No retries at this layer.
func (c *Client) do(ctx context.Context, method, fullURL, endpoint string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewStage(apperrors.ErrNetwork, endpoint, "request cancelled", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return apperrors.NewStage(apperrors.ErrInternal, endpoint, "build request", err)
	}
	c.authz.Apply(req.Header, body)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.VenueLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return apperrors.NewStage(apperrors.ErrNetwork, endpoint, "venue request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewStage(apperrors.ErrNetwork, endpoint, "read venue response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return apperrors.NewStage(apperrors.ErrVenue, endpoint, msg, nil)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewStage(apperrors.ErrVenue, endpoint, "malformed venue response", err)
	}
	return nil
}
