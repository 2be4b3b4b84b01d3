package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

const providerHealthTimeout = 10 * time.Second

type HealthHandler struct {
	orchestrator services.AIOrchestrator
}

func NewHealthHandler(orchestrator services.AIOrchestrator) *HealthHandler {
	return &HealthHandler{orchestrator: orchestrator}
}

func (h *HealthHandler) Health(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"message":   "LinguaPath Backend Server is running",
		"service":   "lingua-path-backend",
		"version":   "1.0.0",
		"providers": h.orchestrator.Providers(),
	}
	utils.WriteJSONResponse(c, http.StatusOK, response)
}

type providerStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// ProviderHealth probes every configured provider. It answers 503 when none
// of them is healthy.
func (h *HealthHandler) ProviderHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), providerHealthTimeout)
	defer cancel()

	results := h.orchestrator.HealthCheck(ctx)
	providers := make(map[string]providerStatus, len(results))
	healthy := 0
	for name, err := range results {
		if err != nil {
			providers[name] = providerStatus{Error: err.Error()}
			continue
		}
		providers[name] = providerStatus{Healthy: true}
		healthy++
	}

	status, code := "ok", http.StatusOK
	switch {
	case healthy == 0:
		status, code = "unavailable", http.StatusServiceUnavailable
	case healthy < len(results):
		status = "degraded"
	}
	utils.WriteJSONResponse(c, code, gin.H{
		"status":    status,
		"providers": providers,
	})
}
