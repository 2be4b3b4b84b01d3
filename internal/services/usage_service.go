package services

import (
	"context"
	"fmt"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
)

type UsageService interface {
	GetUsage(ctx context.Context, userID int64) (*models.UsageSummary, error)
}

type usageService struct {
	interactions repositories.InteractionRepository
}

func NewUsageService(interactions repositories.InteractionRepository) UsageService {
	return &usageService{interactions: interactions}
}

func (s *usageService) GetUsage(ctx context.Context, userID int64) (*models.UsageSummary, error) {
	summary, err := s.interactions.UsageByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load AI usage: %w", err)
	}
	return summary, nil
}
