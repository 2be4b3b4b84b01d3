package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

type MySQLInteractionRepository struct {
	db *sqlx.DB
}

func NewMySQLInteractionRepository(db *sqlx.DB) InteractionRepository {
	return &MySQLInteractionRepository{db: db}
}

func (r *MySQLInteractionRepository) Create(ctx context.Context, interaction *models.AIInteraction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO ai_interactions (id, request_id, user_id, provider, model, kind,
			prompt_preview, response_preview, prompt_tokens, completion_tokens, total_tokens,
			processing_time_ms, estimated_cost, created_at)
		VALUES (:id, :request_id, :user_id, :provider, :model, :kind,
			:prompt_preview, :response_preview, :prompt_tokens, :completion_tokens, :total_tokens,
			:processing_time_ms, :estimated_cost, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, interaction); err != nil {
		return fmt.Errorf("failed to record ai interaction: %w", err)
	}
	return nil
}

func (r *MySQLInteractionRepository) UsageByUser(ctx context.Context, userID int64) (*models.UsageSummary, error) {
	summary := &models.UsageSummary{}
	query := `
		SELECT COUNT(*) AS requests,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(estimated_cost), 0) AS estimated_cost
		FROM ai_interactions WHERE user_id = ?
	`
	if err := r.db.GetContext(ctx, summary, query, userID); err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	summary.UserID = userID
	return summary, nil
}
