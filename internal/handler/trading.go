package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/venue"
)

type TradingHandler struct {
	client *venue.Client
}

func NewTradingHandler(client *venue.Client) *TradingHandler {
	return &TradingHandler{client: client}
}

func (h *TradingHandler) GetSymbolInfo(c *gin.Context) {
	info, err := h.client.GetSymbolInfo(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *TradingHandler) GetMarket(c *gin.Context) {
	market, err := h.client.GetMarket(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (h *TradingHandler) GetTicker(c *gin.Context) {
	ticker, err := h.client.GetTicker(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ticker)
}

func (h *TradingHandler) GetBalance(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}
	balance, err := h.client.GetBalance(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *TradingHandler) GetPositions(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}
	positions, err := h.client.GetPositions(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *TradingHandler) GetOpenOrders(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}
	orders, err := h.client.GetOpenOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type placeOrderRequest struct {
	Symbol     string          `json:"symbol" binding:"required"`
	Side       venue.Side      `json:"side" binding:"required,oneof=buy sell"`
	Type       venue.OrderType `json:"type" binding:"required,oneof=market limit"`
	Size       decimal.Decimal `json:"size" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	ReduceOnly bool            `json:"reduce_only"`
}

func (h *TradingHandler) PlaceOrder(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.client.PlaceOrder(c.Request.Context(), venue.OrderParams{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Qty:        req.Size,
		Price:      req.Price,
		ReduceOnly: req.ReduceOnly,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TradingHandler) CancelOrder(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}
	orderID := c.Param("id")
	if orderID == "" {
		c.Error(apperrors.NewInvalidRequest("order id is required"))
		return
	}
	resp, err := h.client.CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelAll cancels every resting order, optionally scoped by ?symbol=.
func (h *TradingHandler) CancelAll(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}
	resp, err := h.client.CancelAllOrders(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type closePositionRequest struct {
	Symbol string          `json:"symbol" binding:"required"`
	Size   decimal.Decimal `json:"size" binding:"required"`
	Side   venue.Side      `json:"side" binding:"required,oneof=buy sell"`
}

func (h *TradingHandler) ClosePosition(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}

	var req closePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.client.ClosePosition(c.Request.Context(), req.Symbol, req.Size, req.Side)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type changeLeverageRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Leverage int    `json:"leverage" binding:"required"`
}

func (h *TradingHandler) ChangeLeverage(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}

	var req changeLeverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.client.ChangeLeverage(c.Request.Context(), req.Symbol, req.Leverage)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TradingHandler) GetPoints(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}
	points, err := h.client.GetPoints(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json", points)
}
