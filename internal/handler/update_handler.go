package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nie11kun/price-comparator/internal/service"
)

type UpdateHandler struct {
	svc *service.UpdateService
}

func NewUpdateHandler(svc *service.UpdateService) *UpdateHandler {
	return &UpdateHandler{svc: svc}
}

// TriggerUpdate runs the pipeline synchronously and returns its summary.
// The run is detached from the request context so a dropped connection
// does not abort an update already in flight.
func (h *UpdateHandler) TriggerUpdate(c *gin.Context) {
	summary, err := h.svc.Run(context.Background())
	if err != nil {
		if errors.Is(err, service.ErrUpdateRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": service.ErrUpdateRunning.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
