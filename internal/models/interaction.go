package models

import "time"

// AIInteraction is the audit record written for every successful dispatch.
type AIInteraction struct {
	ID               string      `json:"id" db:"id"`
	RequestID        string      `json:"request_id" db:"request_id"`
	UserID           int64       `json:"user_id" db:"user_id"`
	Provider         string      `json:"provider" db:"provider"`
	Model            string      `json:"model" db:"model"`
	Kind             RequestKind `json:"kind" db:"kind"`
	PromptPreview    string      `json:"prompt_preview" db:"prompt_preview"`
	ResponsePreview  string      `json:"response_preview" db:"response_preview"`
	PromptTokens     int         `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int         `json:"total_tokens" db:"total_tokens"`
	ProcessingTimeMs int64       `json:"processing_time_ms" db:"processing_time_ms"`
	EstimatedCost    float64     `json:"estimated_cost" db:"estimated_cost"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// UsageSummary aggregates a user's interactions.
type UsageSummary struct {
	UserID        int64   `json:"user_id" db:"user_id"`
	Requests      int     `json:"requests" db:"requests"`
	TotalTokens   int     `json:"total_tokens" db:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost" db:"estimated_cost"`
}
