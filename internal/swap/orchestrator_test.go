package swap

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/config"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dusdAddress = "0x7f77D8a3c4E2a26334cC6b20bDD9c11887e85049"
	usdtAddress = "0x55d398326f99059fF775485246999027B3197955"
)

func newTestOrchestrator(quoteURL string) *Orchestrator {
	return New(config.SwapConfig{
		Router:      "0xAC4c6e212A361c968F1725b4d055b47E63F80b75",
		Pools:       []string{"0xpool1", "0xpool2"},
		QuoteURL:    quoteURL,
		MaxSlippage: 0.01,
		Tokens: []config.TokenConfig{
			{Symbol: "DUSD", Address: dusdAddress, Decimals: 18},
			{Symbol: "USDT", Address: usdtAddress, Decimals: 18},
		},
	})
}

func TestGetQuote_WeiConversionAndQuery(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		fmt.Fprint(w, `{"status":"Success","assumedAmountOut":"2497500000000000000","priceImpact":0.001,"gasSpent":"185000"}`)
	}))
	defer srv.Close()

	o := newTestOrchestrator(srv.URL)
	quote, err := o.GetQuote(t.Context(), "dusd", "USDT", decimal.NewFromFloat(2.5))
	require.NoError(t, err)

	// 2.5 DUSD with 18 decimals travels as integer wei
	assert.Equal(t, "2500000000000000000", query.Get("amount"))
	assert.Equal(t, common.HexToAddress(dusdAddress).Hex(), query.Get("tokenIn"))
	assert.Equal(t, common.HexToAddress(usdtAddress).Hex(), query.Get("tokenOut"))
	assert.Equal(t, "0.01", query.Get("maxSlippage"))
	assert.Equal(t, "0xpool1,0xpool2", query.Get("onlyPools"))

	assert.True(t, quote.AmountOut.Equal(decimal.RequireFromString("2.4975")),
		"amount out %s must be scaled back from wei", quote.AmountOut)
	assert.InDelta(t, 0.001, quote.PriceImpact, 1e-12)
}

func TestGetQuote_UnknownToken(t *testing.T) {
	o := newTestOrchestrator("http://127.0.0.1:1")

	_, err := o.GetQuote(t.Context(), "DOGE", "USDT", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
}

func TestGetQuote_NonPositiveAmount(t *testing.T) {
	o := newTestOrchestrator("http://127.0.0.1:1")

	_, err := o.GetQuote(t.Context(), "DUSD", "USDT", decimal.Zero)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
}

func TestGetQuote_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"NoRouteFound"}`)
	}))
	defer srv.Close()

	o := newTestOrchestrator(srv.URL)
	_, err := o.GetQuote(t.Context(), "DUSD", "USDT", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrUpstream))
	assert.Contains(t, err.Error(), "NoRouteFound")
}

func TestGetQuote_UpstreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := newTestOrchestrator(srv.URL)
	_, err := o.GetQuote(t.Context(), "DUSD", "USDT", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrUpstream))
}

func TestExecute_RequiresWallet(t *testing.T) {
	o := newTestOrchestrator("http://127.0.0.1:1")

	_, err := o.Execute(t.Context(), nil, "DUSD", "USDT", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrSigningFailed))
}

func TestTokenRegistry_CaseInsensitive(t *testing.T) {
	o := newTestOrchestrator("")

	tok, ok := o.Token("dUsD")
	require.True(t, ok)
	assert.Equal(t, "DUSD", tok.Symbol)
	assert.Equal(t, int32(18), tok.Decimals)

	_, ok = o.Token("WETH")
	assert.False(t, ok)
}
