package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/loggo/v2"

	"github.com/KokiWakatsuki/lingua-path/back/internal/ratelimit"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

var logger = loggo.GetLogger("lingua.api.handlers")

// writeServiceError maps pipeline errors onto HTTP responses.
func writeServiceError(c *gin.Context, err error) {
	var (
		allFailed   *services.AllProvidersFailedError
		generation  *services.GenerationError
		persistence *services.PersistenceError
	)
	switch {
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		utils.WriteCodedErrorResponse(c, http.StatusTooManyRequests, "rate_limited", "AI request limit reached, try again in a minute")
	case errors.Is(err, services.ErrInvalidGoals):
		utils.WriteCodedErrorResponse(c, http.StatusBadRequest, "invalid_goals", err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		utils.WriteCodedErrorResponse(c, http.StatusNotFound, "not_found", "not found")
	case errors.As(err, &allFailed):
		utils.WriteCodedErrorResponse(c, http.StatusBadGateway, "ai_unavailable", "AI providers are unavailable")
	case errors.As(err, &generation):
		utils.WriteCodedErrorResponse(c, http.StatusUnprocessableEntity, "generation_"+string(generation.Stage), generation.Error())
	case errors.As(err, &persistence):
		logger.Errorf("❌ %v", err)
		utils.WriteCodedErrorResponse(c, http.StatusInternalServerError, "persistence_failed", "failed to save course")
	default:
		logger.Errorf("❌ unexpected error: %v", err)
		utils.WriteErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}
