package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KokiWakatsuki/lingua-path/back/internal/api/middleware"
	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

type UsageHandler struct {
	usageService services.UsageService
}

func NewUsageHandler(usageService services.UsageService) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

func (h *UsageHandler) GetUsage(c *gin.Context) {
	summary, err := h.usageService.GetUsage(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.WriteJSONResponse(c, http.StatusOK, gin.H{
		"success": true,
		"usage":   summary,
	})
}
