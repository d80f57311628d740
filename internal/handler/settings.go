package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/settings"
)

type SettingsHandler struct {
	store *settings.Store
}

func NewSettingsHandler(store *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

func (h *SettingsHandler) Load(c *gin.Context) {
	values, err := h.store.Load()
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, values)
}

func (h *SettingsHandler) Save(c *gin.Context) {
	var values map[string]any
	if err := c.ShouldBindJSON(&values); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if err := h.store.Save(values); err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settings saved", "path": h.store.Path()})
}
