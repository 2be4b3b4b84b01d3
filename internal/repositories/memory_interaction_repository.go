package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

type memoryInteractionRepository struct {
	interactions []models.AIInteraction
	mutex        sync.RWMutex
}

func NewMemoryInteractionRepository() InteractionRepository {
	return &memoryInteractionRepository{}
}

func (r *memoryInteractionRepository) Create(ctx context.Context, interaction *models.AIInteraction) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	r.interactions = append(r.interactions, *interaction)
	return nil
}

func (r *memoryInteractionRepository) UsageByUser(ctx context.Context, userID int64) (*models.UsageSummary, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	summary := &models.UsageSummary{UserID: userID}
	for _, interaction := range r.interactions {
		if interaction.UserID != userID {
			continue
		}
		summary.Requests++
		summary.TotalTokens += interaction.TotalTokens
		summary.EstimatedCost += interaction.EstimatedCost
	}
	return summary, nil
}
