package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

const (
	DefaultClaudeBaseURL = "https://api.anthropic.com/v1"
	defaultClaudeVersion = "2023-06-01"
)

type claudeClient struct {
	desc      models.ProviderDescriptor
	version   string
	transport transport
}

type ClaudeRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ClaudeResponse struct {
	Model   string         `json:"model"`
	Content []ContentBlock `json:"content"`
	Usage   Usage          `json:"usage"`
	Error   *ClaudeError   `json:"error,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ClaudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewClaudeClient creates the Anthropic Messages API adapter.
func NewClaudeClient(desc models.ProviderDescriptor) Provider {
	if desc.BaseURL == "" {
		desc.BaseURL = DefaultClaudeBaseURL
	}
	version := defaultClaudeVersion
	if desc.Anthropic != nil && desc.Anthropic.Version != "" {
		version = desc.Anthropic.Version
	}
	return &claudeClient{
		desc:      desc,
		version:   version,
		transport: newTransport(desc),
	}
}

func (c *claudeClient) Name() string {
	return c.desc.Name
}

func (c *claudeClient) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.desc.APIKey,
		"anthropic-version": c.version,
	}
}

func (c *claudeClient) Generate(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	model := modelFor(c.desc, req.ModelHint)
	logger.Debugf("🤖 Using Claude API with model: %s", model)

	request := ClaudeRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
		Messages: []Message{
			{
				Role:    "user",
				Content: req.Prompt,
			},
		},
	}

	status, body, err := c.transport.do(ctx, http.MethodPost, c.desc.BaseURL+"/messages", c.headers(), request)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, c.decodeError(status, body)
	}

	var claudeResp ClaudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return nil, NewMalformedResponseError(c.desc.Name, fmt.Sprintf("failed to unmarshal response: %v", err))
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, NewMalformedResponseError(c.desc.Name, "no content returned from Claude API")
	}

	// 料金は要求したモデルで計算し、返されたスナップショット名は Model に載せる
	reported := model
	if claudeResp.Model != "" {
		reported = claudeResp.Model
	}
	usage := models.TokenUsage{
		PromptTokens:     claudeResp.Usage.InputTokens,
		CompletionTokens: claudeResp.Usage.OutputTokens,
		TotalTokens:      claudeResp.Usage.InputTokens + claudeResp.Usage.OutputTokens,
	}

	logger.Debugf("✅ Claude API response received (length: %d)", text.Len())
	return &models.AIResponse{
		Content:       text.String(),
		Provider:      c.desc.Name,
		Model:         reported,
		Usage:         usage,
		EstimatedCost: claudePrices.Cost(model, usage.PromptTokens, usage.CompletionTokens),
	}, nil
}

func (c *claudeClient) decodeError(status int, body []byte) error {
	perr := NewProviderError(c.desc.Name, status, snippet(body, 500))

	var errResp ClaudeResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == nil {
		return perr
	}
	perr.Message = errResp.Error.Message
	switch errResp.Error.Type {
	case "invalid_request_error":
		if strings.Contains(errResp.Error.Message, "maximum context length") || strings.Contains(errResp.Error.Message, "too many tokens") {
			perr.Type = ErrorTypeTokenLimit
		}
	case "authentication_error", "permission_error":
		perr.Type = ErrorTypeInvalidAPIKey
	case "rate_limit_error":
		perr.Type = ErrorTypeRateLimit
	case "not_found_error":
		perr.Type = ErrorTypeModelNotFound
	}
	return perr
}

// HealthCheck lists models; it does not spend generation tokens.
func (c *claudeClient) HealthCheck(ctx context.Context) error {
	return c.transport.healthGet(ctx, c.desc.BaseURL+"/models", c.headers())
}
