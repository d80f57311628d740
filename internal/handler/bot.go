package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/standx-tools/volgate/internal/bot"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/venue"
)

type BotHandler struct {
	bot      *bot.Bot
	client   *venue.Client
	defaults bot.Config
}

// NewBotHandler wires the volume bot; defaults come from the bot.* config
// section and fill whatever fields a start request omits.
func NewBotHandler(b *bot.Bot, client *venue.Client, defaults bot.Config) *BotHandler {
	return &BotHandler{bot: b, client: client, defaults: defaults}
}

// startConfig binds the request body over the configured defaults, so a
// partial body like {"symbol":"ETH-PERP"} starts with the operator's
// configured sizes and intervals.
func (h *BotHandler) startConfig(c *gin.Context) (bot.Config, error) {
	cfg := h.defaults
	err := c.ShouldBindJSON(&cfg)
	return cfg, err
}

func (h *BotHandler) Start(c *gin.Context) {
	if !requireAuth(c, h.client) {
		return
	}

	cfg, err := h.startConfig(c)
	if err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	if err := h.bot.Start(c.Request.Context(), cfg); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "volume bot started"})
}

func (h *BotHandler) Stop(c *gin.Context) {
	stats := h.bot.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "volume bot stopped", "stats": stats})
}

func (h *BotHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.bot.Status())
}
