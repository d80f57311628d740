package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/standx-tools/volgate/internal/bot"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/venue"
)

type AuthHandler struct {
	client *venue.Client
	bot    *bot.Bot
}

func NewAuthHandler(client *venue.Client, b *bot.Bot) *AuthHandler {
	return &AuthHandler{client: client, bot: b}
}

type authRequest struct {
	PrivateKey string `json:"private_key" binding:"required"`
}

// Authenticate runs the sign-in handshake. Re-authentication while the
// volume bot is running is rejected; stop the bot first.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	if h.bot.Running() {
		c.Error(apperrors.New(apperrors.ErrBotRunning, "stop the volume bot before re-authenticating", nil))
		return
	}

	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	result, err := h.client.Authenticate(c.Request.Context(), req.PrivateKey)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": result.Address, "authenticated": true})
}

// requireAuth guards endpoints that need a completed handshake.
func requireAuth(c *gin.Context, client *venue.Client) bool {
	if !client.Authenticated() {
		c.Error(apperrors.NewStage(apperrors.ErrAuthFailed, "login", "not authenticated", nil))
		return false
	}
	return true
}
