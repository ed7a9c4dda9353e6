package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nie11kun/price-comparator/internal/service"
)

type PriceHandler struct {
	svc *service.PriceService
}

func NewPriceHandler(svc *service.PriceService) *PriceHandler {
	return &PriceHandler{svc: svc}
}

func (h *PriceHandler) GetPrices(c *gin.Context) {
	appName := c.Query("app")
	planName := c.Query("plan")

	if appName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'app' parameter"})
		return
	}

	resp, err := h.svc.GetPrices(c.Request.Context(), appName, planName)
	if err != nil {
		if errors.Is(err, service.ErrUnknownApp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown app: " + appName})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query prices: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
