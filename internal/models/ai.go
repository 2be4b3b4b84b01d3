package models

import "time"

// RequestKind classifies what an AI request is for. It is part of the cache key.
type RequestKind string

const (
	RequestKindCourseGeneration   RequestKind = "course_generation"
	RequestKindTaskCreation       RequestKind = "task_creation"
	RequestKindContentEvaluation  RequestKind = "content_evaluation"
	RequestKindConversation       RequestKind = "conversation"
	RequestKindFeedbackGeneration RequestKind = "feedback_generation"
)

// Valid reports whether k is one of the known request kinds.
func (k RequestKind) Valid() bool {
	switch k {
	case RequestKindCourseGeneration, RequestKindTaskCreation, RequestKindContentEvaluation,
		RequestKindConversation, RequestKindFeedbackGeneration:
		return true
	}
	return false
}

// AIRequest is the provider-independent request passed through the orchestrator.
// It is passed by value and never modified after construction.
type AIRequest struct {
	Prompt       string      `json:"prompt"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
	ModelHint    string      `json:"model,omitempty"`
	MaxTokens    int         `json:"max_tokens"`
	Temperature  float64     `json:"temperature"`
	UserID       int64       `json:"user_id"`
	Kind         RequestKind `json:"kind"`
}

// TokenUsage reports token consumption for one generation.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AIResponse is the normalized result of a successful provider call.
type AIResponse struct {
	Content          string     `json:"content"`
	Provider         string     `json:"provider"`
	Model            string     `json:"model"`
	Usage            TokenUsage `json:"usage"`
	EstimatedCost    float64    `json:"estimated_cost"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	QualityScore     *float64   `json:"quality_score,omitempty"`
}

// ProviderKind selects which adapter implementation a descriptor configures.
type ProviderKind string

const (
	ProviderKindClaude ProviderKind = "claude"
	ProviderKindOpenAI ProviderKind = "openai"
	ProviderKindGoogle ProviderKind = "google"
)

// ProviderDescriptor configures one provider adapter. Exactly one of the
// kind-specific option blocks is meaningful, selected by Kind.
type ProviderDescriptor struct {
	Name         string        `yaml:"name"`
	Kind         ProviderKind  `yaml:"kind"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Models       []string      `yaml:"models"`
	DefaultModel string        `yaml:"default_model"`
	MaxRetries   int           `yaml:"max_retries"`
	Timeout      time.Duration `yaml:"timeout"`

	Anthropic *AnthropicOptions `yaml:"anthropic,omitempty"`
	OpenAI    *OpenAIOptions    `yaml:"openai,omitempty"`
	Google    *GoogleOptions    `yaml:"google,omitempty"`
}

// AnthropicOptions holds Claude-specific settings.
type AnthropicOptions struct {
	Version string `yaml:"version"`
}

// OpenAIOptions holds OpenAI-specific settings.
type OpenAIOptions struct {
	Organization string `yaml:"organization"`
}

// GoogleOptions holds Gemini-specific settings.
type GoogleOptions struct {
	APIVersion string `yaml:"api_version"`
}

// SupportsModel reports whether model is listed for the provider.
func (d ProviderDescriptor) SupportsModel(model string) bool {
	for _, m := range d.Models {
		if m == model {
			return true
		}
	}
	return false
}
