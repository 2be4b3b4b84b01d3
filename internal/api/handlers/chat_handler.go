package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/KokiWakatsuki/lingua-path/back/internal/api/middleware"
	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

const (
	maxChatMessageLength = 8000
	chatMaxTokens        = 1024
	chatTemperature      = 0.8
)

type ChatHandler struct {
	orchestrator services.AIOrchestrator
}

type ChatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model,omitempty"`
}

type ChatResponse struct {
	Success bool              `json:"success"`
	Reply   string            `json:"reply"`
	Model   string            `json:"model"`
	API     string            `json:"api"`
	Usage   models.TokenUsage `json:"usage"`
}

func NewChatHandler(orchestrator services.AIOrchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator}
}

// Chat sends one conversation turn through the orchestrator, so the caller
// gets the same rate limit, cache and provider fallback as course generation.
func (h *ChatHandler) Chat(c *gin.Context) {
	// リクエストボディを解析
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.WriteErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		utils.WriteErrorResponse(c, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if utf8.RuneCountInString(message) > maxChatMessageLength {
		utils.WriteErrorResponse(c, http.StatusBadRequest, "Message too long")
		return
	}

	resp, err := h.orchestrator.ProcessRequest(c.Request.Context(), models.AIRequest{
		Prompt:       message,
		SystemPrompt: req.SystemPrompt,
		ModelHint:    req.Model,
		MaxTokens:    chatMaxTokens,
		Temperature:  chatTemperature,
		UserID:       middleware.UserID(c),
		Kind:         models.RequestKindConversation,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// レスポンスを返す
	utils.WriteJSONResponse(c, http.StatusOK, ChatResponse{
		Success: true,
		Reply:   resp.Content,
		Model:   resp.Model,
		API:     resp.Provider,
		Usage:   resp.Usage,
	})
}
