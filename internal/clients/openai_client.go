package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIClient struct {
	desc      models.ProviderDescriptor
	transport transport
}

type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIResponse struct {
	Model   string       `json:"model"`
	Choices []Choice     `json:"choices"`
	Usage   *OpenAIUsage `json:"usage,omitempty"`
	Error   *APIError    `json:"error,omitempty"`
}

type Choice struct {
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewOpenAIClient creates the chat completions adapter.
func NewOpenAIClient(desc models.ProviderDescriptor) Provider {
	if desc.BaseURL == "" {
		desc.BaseURL = DefaultOpenAIBaseURL
	}
	return &openAIClient{
		desc:      desc,
		transport: newTransport(desc),
	}
}

func (c *openAIClient) Name() string {
	return c.desc.Name
}

func (c *openAIClient) headers() map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + c.desc.APIKey,
	}
	if c.desc.OpenAI != nil && c.desc.OpenAI.Organization != "" {
		h["OpenAI-Organization"] = c.desc.OpenAI.Organization
	}
	return h
}

func (c *openAIClient) Generate(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	model := modelFor(c.desc, req.ModelHint)
	logger.Debugf("🤖 Using OpenAI API with model: %s", model)

	messages := make([]OpenAIMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, OpenAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, OpenAIMessage{Role: "user", Content: req.Prompt})

	request := OpenAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	status, body, err := c.transport.do(ctx, http.MethodPost, c.desc.BaseURL+"/chat/completions", c.headers(), request)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, c.decodeError(status, body)
	}

	var response OpenAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, NewMalformedResponseError(c.desc.Name, fmt.Sprintf("failed to unmarshal response: %v", err))
	}
	if response.Error != nil {
		return nil, c.decodeError(http.StatusBadGateway, body)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return nil, NewMalformedResponseError(c.desc.Name, "no choices returned from OpenAI API")
	}

	// 料金は要求したモデルで計算し、返されたスナップショット名は Model に載せる
	reported := model
	if response.Model != "" {
		reported = response.Model
	}
	var usage models.TokenUsage
	if response.Usage != nil {
		usage = models.TokenUsage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}

	content := response.Choices[0].Message.Content
	logger.Debugf("✅ OpenAI API response received (length: %d)", len(content))

	return &models.AIResponse{
		Content:       content,
		Provider:      c.desc.Name,
		Model:         reported,
		Usage:         usage,
		EstimatedCost: openAIPrices.Cost(model, usage.PromptTokens, usage.CompletionTokens),
	}, nil
}

func (c *openAIClient) decodeError(status int, body []byte) error {
	perr := NewProviderError(c.desc.Name, status, snippet(body, 500))

	var errorResponse OpenAIResponse
	if err := json.Unmarshal(body, &errorResponse); err != nil || errorResponse.Error == nil {
		return perr
	}
	perr.Message = errorResponse.Error.Message
	switch errorResponse.Error.Code {
	case "context_length_exceeded", "max_tokens_exceeded":
		perr.Type = ErrorTypeTokenLimit
	case "insufficient_quota":
		perr.Type = ErrorTypeQuotaExceeded
	case "invalid_api_key":
		perr.Type = ErrorTypeInvalidAPIKey
	case "rate_limit_exceeded":
		perr.Type = ErrorTypeRateLimit
	case "model_not_found":
		perr.Type = ErrorTypeModelNotFound
	}
	return perr
}

func (c *openAIClient) HealthCheck(ctx context.Context) error {
	return c.transport.healthGet(ctx, c.desc.BaseURL+"/models", c.headers())
}
