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
	DefaultGoogleBaseURL    = "https://generativelanguage.googleapis.com"
	defaultGoogleAPIVersion = "v1beta"
)

type googleClient struct {
	desc       models.ProviderDescriptor
	apiVersion string
	transport  transport
}

type GoogleRequest struct {
	Contents          []GoogleContent        `json:"contents"`
	SystemInstruction *GoogleContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  GoogleGenerationConfig `json:"generationConfig"`
}

type GoogleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GooglePart `json:"parts"`
}

type GooglePart struct {
	Text string `json:"text"`
}

type GoogleGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type GoogleResponse struct {
	Candidates    []GoogleCandidate    `json:"candidates"`
	UsageMetadata *GoogleUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
	Error         *GoogleError         `json:"error,omitempty"`
}

type GoogleCandidate struct {
	Content      GoogleContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type GoogleUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type GoogleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGoogleClient creates the Gemini generateContent adapter.
func NewGoogleClient(desc models.ProviderDescriptor) Provider {
	if desc.BaseURL == "" {
		desc.BaseURL = DefaultGoogleBaseURL
	}
	apiVersion := defaultGoogleAPIVersion
	if desc.Google != nil && desc.Google.APIVersion != "" {
		apiVersion = desc.Google.APIVersion
	}
	return &googleClient{
		desc:       desc,
		apiVersion: apiVersion,
		transport:  newTransport(desc),
	}
}

func (c *googleClient) Name() string {
	return c.desc.Name
}

// キーはヘッダーで送る。URL に載せるとエラーやログに漏れる
func (c *googleClient) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.desc.APIKey}
}

// models/プレフィックスを除いた名前で料金表を引く
func trimModelPrefix(model string) string {
	return strings.TrimPrefix(model, "models/")
}

func (c *googleClient) Generate(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	model := trimModelPrefix(modelFor(c.desc, req.ModelHint))
	logger.Debugf("🤖 Using Google API with model: %s", model)

	request := GoogleRequest{
		Contents: []GoogleContent{
			{
				Role:  "user",
				Parts: []GooglePart{{Text: req.Prompt}},
			},
		},
		GenerationConfig: GoogleGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		request.SystemInstruction = &GoogleContent{Parts: []GooglePart{{Text: req.SystemPrompt}}}
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", c.desc.BaseURL, c.apiVersion, model)
	status, body, err := c.transport.do(ctx, http.MethodPost, endpoint, c.headers(), request)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, c.decodeError(status, body)
	}

	var response GoogleResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, NewMalformedResponseError(c.desc.Name, fmt.Sprintf("failed to unmarshal response: %v", err))
	}
	if response.Error != nil {
		return nil, c.decodeError(http.StatusBadGateway, body)
	}

	// 候補が0件のケースがある (safety block 等)
	if len(response.Candidates) == 0 {
		return nil, NewMalformedResponseError(c.desc.Name, "no candidates returned from Google API")
	}

	candidate := response.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		logger.Warningf("⚠️ Google API response truncated due to MAX_TOKENS")
		return nil, &ProviderError{
			Provider:   c.desc.Name,
			StatusCode: http.StatusBadGateway,
			Type:       ErrorTypeTokenLimit,
			Message:    "response truncated at max output tokens",
		}
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil, NewMalformedResponseError(c.desc.Name,
			fmt.Sprintf("empty content returned from Google API. FinishReason: %s", candidate.FinishReason))
	}

	var usage models.TokenUsage
	if response.UsageMetadata != nil {
		usage = models.TokenUsage{
			PromptTokens:     response.UsageMetadata.PromptTokenCount,
			CompletionTokens: response.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      response.UsageMetadata.TotalTokenCount,
		}
	}

	logger.Debugf("✅ Google API response received (length: %d, finishReason: %s)", text.Len(), candidate.FinishReason)
	return &models.AIResponse{
		Content:       text.String(),
		Provider:      c.desc.Name,
		Model:         model,
		Usage:         usage,
		EstimatedCost: googlePrices.Cost(model, usage.PromptTokens, usage.CompletionTokens),
	}, nil
}

func (c *googleClient) decodeError(status int, body []byte) error {
	perr := NewProviderError(c.desc.Name, status, snippet(body, 500))

	var errorResponse GoogleResponse
	if err := json.Unmarshal(body, &errorResponse); err != nil || errorResponse.Error == nil {
		return perr
	}
	perr.Message = errorResponse.Error.Message
	switch errorResponse.Error.Code {
	case 400:
		if strings.Contains(errorResponse.Error.Message, "too many tokens") || strings.Contains(errorResponse.Error.Message, "maximum context length") {
			perr.Type = ErrorTypeTokenLimit
		}
	case 401, 403:
		perr.Type = ErrorTypeInvalidAPIKey
	case 404:
		perr.Type = ErrorTypeModelNotFound
	case 429:
		perr.Type = ErrorTypeRateLimit
	}
	return perr
}

func (c *googleClient) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s/models", c.desc.BaseURL, c.apiVersion)
	return c.transport.healthGet(ctx, endpoint, c.headers())
}
