package venue

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/config"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Venue: config.VenueConfig{
			TradeURL:       srv.URL,
			AuthURL:        srv.URL,
			Chain:          "bsc",
			TimeoutSeconds: 5,
			RequestsPerSec: 1000,
		},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestPlaceOrder_MarketUsesSentinelPriceAndIOC(t *testing.T) {
	var body newOrderBody
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/new_order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"result":"ok"}`)
	}))

	_, err := c.PlaceOrder(t.Context(), OrderParams{
		Symbol: "BTC-PERP",
		Side:   SideBuy,
		Type:   OrderTypeMarket,
		Qty:    decimal.NewFromFloat(0.01),
	})
	require.NoError(t, err)

	assert.Equal(t, "0", body.Price)
	assert.Equal(t, "ioc", body.TimeInForce)
	assert.Equal(t, "0.01", body.Qty)
	assert.False(t, body.ReduceOnly)
}

func TestPlaceOrder_LimitUsesPriceAndGTC(t *testing.T) {
	var body newOrderBody
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"result":"ok"}`)
	}))

	_, err := c.PlaceOrder(t.Context(), OrderParams{
		Symbol: "BTC-PERP",
		Side:   SideBuy,
		Type:   OrderTypeLimit,
		Qty:    decimal.NewFromFloat(0.01),
		Price:  decimal.NewFromInt(50000),
	})
	require.NoError(t, err)

	assert.Equal(t, "50000", body.Price)
	assert.Equal(t, "gtc", body.TimeInForce)
}

func TestPlaceOrder_SignedHeaders(t *testing.T) {
	type captured struct {
		header http.Header
		body   []byte
	}
	var got captured
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.header = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{}`)
	}))
	c.authz.SetToken("test-token")

	_, err := c.PlaceOrder(t.Context(), OrderParams{
		Symbol: "BTC-PERP", Side: SideSell, Type: OrderTypeLimit,
		Qty: decimal.NewFromFloat(0.5), Price: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", got.header.Get("Authorization"))
	assert.True(t, strings.HasPrefix(got.header.Get("x-session-id"), "session-"))
	assert.Equal(t, "v1", got.header.Get("x-request-sign-version"))

	requestID := got.header.Get("x-request-id")
	_, err = uuid.Parse(requestID)
	assert.NoError(t, err)

	timestamp := got.header.Get("x-request-timestamp")
	_, err = strconv.ParseInt(timestamp, 10, 64)
	assert.NoError(t, err)

	// both signatures verify against the identity's public key, which the
	// venue learns through the base58 request id
	pub, err := base58.Decode(c.identity.RequestID())
	require.NoError(t, err)

	bodySig, err := base64.StdEncoding.DecodeString(got.header.Get("x-body-signature"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, got.body, bodySig))

	reqSig, err := base64.StdEncoding.DecodeString(got.header.Get("x-request-signature"))
	require.NoError(t, err)
	versioned := fmt.Sprintf("v1,%s,%s,%s", requestID, timestamp, got.body)
	assert.True(t, ed25519.Verify(pub, []byte(versioned), reqSig))
}

func TestReadRequests_NoSignatureHeaders(t *testing.T) {
	var header http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		fmt.Fprint(w, `{"symbol":"BTC-PERP","last_price":"50000"}`)
	}))

	_, err := c.GetTicker(t.Context(), "BTC-PERP")
	require.NoError(t, err)

	assert.Empty(t, header.Get("x-request-signature"))
	assert.Empty(t, header.Get("x-body-signature"))
	assert.NotEmpty(t, header.Get("x-session-id"))
}

func TestSessionID_StableAcrossCalls(t *testing.T) {
	var ids []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("x-session-id"))
		fmt.Fprint(w, `{}`)
	}))

	_, err := c.GetTicker(t.Context(), "BTC-PERP")
	require.NoError(t, err)
	_, err = c.GetBalance(t.Context())
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
}

func TestClosePosition_OppositeSideReduceOnly(t *testing.T) {
	var body newOrderBody
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{}`)
	}))

	// closing a long (buy side) sells
	_, err := c.ClosePosition(t.Context(), "BTC-PERP", decimal.NewFromFloat(0.3), SideBuy)
	require.NoError(t, err)
	assert.Equal(t, SideSell, body.Side)
	assert.True(t, body.ReduceOnly)
	assert.Equal(t, "0", body.Price)
	assert.Equal(t, "ioc", body.TimeInForce)

	// closing a short (sell side) buys; negative sizes are folded
	_, err = c.ClosePosition(t.Context(), "BTC-PERP", decimal.NewFromFloat(-0.3), SideSell)
	require.NoError(t, err)
	assert.Equal(t, SideBuy, body.Side)
	assert.Equal(t, "0.3", body.Qty)
}

func TestGetOpenOrders_QueryLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "BTC-PERP", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"result":[{"id":"o1","symbol":"BTC-PERP","side":"buy","qty":"0.1","price":"100","created_at":"2026-01-02T15:04:05Z"}]}`)
	}))

	orders, err := c.GetOpenOrders(t.Context(), "BTC-PERP")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, SideBuy, orders[0].Side)
}

func TestCancelAllOrders_BatchCancelsEveryID(t *testing.T) {
	var cancelled cancelOrdersBody
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/query_open_orders":
			fmt.Fprint(w, `{"result":[{"id":"a"},{"id":"b"},{"id":"c"}]}`)
		case "/api/cancel_orders":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&cancelled))
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	_, err := c.CancelAllOrders(t.Context(), "BTC-PERP")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cancelled.OrderIDList)
}

func TestVenueError_SurfacedVerbatim(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"qty below minimum"}`, http.StatusBadRequest)
	}))

	_, err := c.PlaceOrder(t.Context(), OrderParams{
		Symbol: "BTC-PERP", Side: SideBuy, Type: OrderTypeMarket, Qty: decimal.NewFromFloat(0.00001),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrVenue))
	assert.Contains(t, err.Error(), "qty below minimum")
}

func TestAuthenticate_RejectedHandshakeLeavesNoToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/offchain/prepare-signin", r.URL.Path)
		fmt.Fprint(w, `{"success":false}`)
	}))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = c.Authenticate(t.Context(), hexutil.Encode(crypto.FromECDSA(key)))
	require.Error(t, err)
	assert.False(t, c.Authenticated())
	assert.Empty(t, c.Address())
	assert.Nil(t, c.Wallet())
}

func TestMinOrderQty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"BTC-PERP","min_order_qty":"0.001"}]`)
	}))

	qty, err := c.MinOrderQty(t.Context(), "BTC-PERP")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromFloat(0.001)))
}

func TestMinOrderQty_UnknownSymbol(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	_, err := c.MinOrderQty(t.Context(), "NOPE-PERP")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrNotFound))
}

func TestGetBalance_V2Shape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query_balance_v2", r.URL.Path)
		fmt.Fprint(w, `{"balance":"1000.5","cross_available":"900","equity":"1010","upnl":"9.5"}`)
	}))

	balance, err := c.GetBalance(t.Context())
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromFloat(1000.5)))
	assert.True(t, balance.Upnl.Equal(decimal.NewFromFloat(9.5)))
}

func TestTicker_PriceFallsBackToMark(t *testing.T) {
	ticker := &Ticker{MarkPrice: decimal.NewFromInt(42)}
	assert.True(t, ticker.Price().Equal(decimal.NewFromInt(42)))

	ticker.LastPrice = decimal.NewFromInt(43)
	assert.True(t, ticker.Price().Equal(decimal.NewFromInt(43)))
}
