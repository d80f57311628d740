package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/swap"
	"github.com/standx-tools/volgate/internal/venue"
)

type SwapHandler struct {
	swap   *swap.Orchestrator
	client *venue.Client
}

func NewSwapHandler(s *swap.Orchestrator, client *venue.Client) *SwapHandler {
	return &SwapHandler{swap: s, client: client}
}

func (h *SwapHandler) GetQuote(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.Error(apperrors.NewInvalidRequest("amount must be a decimal number"))
		return
	}

	quote, err := h.swap.GetQuote(c.Request.Context(), c.Query("from"), c.Query("to"), amount)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

type executeSwapRequest struct {
	From   string          `json:"from" binding:"required"`
	To     string          `json:"to" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *SwapHandler) Execute(c *gin.Context) {
	var req executeSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	result, err := h.swap.Execute(c.Request.Context(), h.client.Wallet(), req.From, req.To, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTokenBalance reads the wallet's on-chain balance for a configured
// token symbol or a raw token address.
func (h *SwapHandler) GetTokenBalance(c *gin.Context) {
	ref := c.Param("token")
	if token, ok := h.swap.Token(ref); ok {
		ref = token.Address.Hex()
	}

	balance, err := h.swap.GetTokenBalance(c.Request.Context(), h.client.Wallet(), ref)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
