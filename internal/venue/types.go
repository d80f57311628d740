package venue

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side; used when mirroring bot orders and when
// closing a position, which must trade against the position's own side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

const (
	timeInForceIOC = "ioc"
	timeInForceGTC = "gtc"
)

// SymbolInfo is one entry of the query_symbol_info response.
type SymbolInfo struct {
	Symbol      string          `json:"symbol"`
	BaseAsset   string          `json:"base_asset"`
	QuoteAsset  string          `json:"quote_asset"`
	MinOrderQty decimal.Decimal `json:"min_order_qty"`
	TickSize    decimal.Decimal `json:"tick_size"`
	MaxLeverage int             `json:"max_leverage"`
}

// Ticker is the query_symbol_price snapshot. LastPrice may be zero right
// after listing; callers fall back to MarkPrice.
type Ticker struct {
	Symbol     string          `json:"symbol"`
	LastPrice  decimal.Decimal `json:"last_price"`
	MarkPrice  decimal.Decimal `json:"mark_price"`
	IndexPrice decimal.Decimal `json:"index_price"`
}

// Price prefers the last traded price and falls back to the mark price.
func (t *Ticker) Price() decimal.Decimal {
	if !t.LastPrice.IsZero() {
		return t.LastPrice
	}
	return t.MarkPrice
}

type Market struct {
	Symbol       string          `json:"symbol"`
	LastPrice    decimal.Decimal `json:"last_price"`
	MarkPrice    decimal.Decimal `json:"mark_price"`
	FundingRate  decimal.Decimal `json:"funding_rate"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	OpenInterest decimal.Decimal `json:"open_interest"`
}

// Balance is the flat query_balance_v2 shape. The v1 shape is different
// and not supported.
type Balance struct {
	Balance        decimal.Decimal `json:"balance"`
	CrossAvailable decimal.Decimal `json:"cross_available"`
	Equity         decimal.Decimal `json:"equity"`
	Upnl           decimal.Decimal `json:"upnl"`
}

// Position qty is signed: positive is long, negative is short.
type Position struct {
	Symbol     string          `json:"symbol"`
	Qty        decimal.Decimal `json:"qty"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Leverage   int             `json:"leverage"`
	Upnl       decimal.Decimal `json:"upnl"`
}

// Order is one resting order from query_open_orders.
type Order struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	OrderType OrderType       `json:"order_type"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderParams is the caller-facing order description. Qty and Price travel
// to the venue as decimal strings; floats never reach the wire.
type OrderParams struct {
	Symbol     string
	Side       Side
	Type       OrderType
	Qty        decimal.Decimal
	Price      decimal.Decimal
	ReduceOnly bool
	Leverage   int
}

// newOrderBody is the exact wire shape of POST /api/new_order. The same
// serialized bytes are signed and sent.
type newOrderBody struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	OrderType   OrderType `json:"order_type"`
	Qty         string    `json:"qty"`
	Price       string    `json:"price"`
	TimeInForce string    `json:"time_in_force"`
	ReduceOnly  bool      `json:"reduce_only"`
}

type cancelOrderBody struct {
	OrderID string `json:"order_id"`
}

type cancelOrdersBody struct {
	OrderIDList []string `json:"orderIdList"`
}

type changeLeverageBody struct {
	Symbol   string `json:"symbol"`
	Leverage int    `json:"leverage"`
}
