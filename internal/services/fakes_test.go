package services

import (
	"context"
	"errors"
	"sync"

	"github.com/KokiWakatsuki/lingua-path/back/internal/clients"
	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

type fakeProvider struct {
	name     string
	generate func(ctx context.Context, req models.AIRequest) (*models.AIResponse, error)
	health   error

	mu       sync.Mutex
	requests []models.AIRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.generate(ctx, req)
}

func (p *fakeProvider) HealthCheck(ctx context.Context) error { return p.health }

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) lastRequest() models.AIRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func answering(name, content string) *fakeProvider {
	return &fakeProvider{
		name: name,
		generate: func(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
			return &models.AIResponse{
				Content:       content,
				Provider:      name,
				Model:         name + "-model",
				Usage:         models.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
				EstimatedCost: 0.01,
			}, nil
		},
	}
}

func failing(name string, status int) *fakeProvider {
	return &fakeProvider{
		name: name,
		generate: func(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
			return nil, clients.NewProviderError(name, status, name+" is down")
		},
	}
}

type recordingInteractions struct {
	mu           sync.Mutex
	interactions []models.AIInteraction
	err          error
}

func (r *recordingInteractions) Create(ctx context.Context, interaction *models.AIInteraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.interactions = append(r.interactions, *interaction)
	return nil
}

func (r *recordingInteractions) UsageByUser(ctx context.Context, userID int64) (*models.UsageSummary, error) {
	return &models.UsageSummary{UserID: userID}, nil
}

func (r *recordingInteractions) all() []models.AIInteraction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AIInteraction(nil), r.interactions...)
}

type limiterFunc func(ctx context.Context, userID int64) error

func (f limiterFunc) Allow(ctx context.Context, userID int64) error { return f(ctx, userID) }

type failingCourseRepo struct{}

func (failingCourseRepo) CreateWithTasks(ctx context.Context, course *models.Course, tasks []*models.CourseTask) error {
	return errors.New("disk full")
}

func (failingCourseRepo) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	return nil, errors.New("not implemented")
}

func (failingCourseRepo) GetByIDAndUserID(ctx context.Context, id, userID int64) (*models.Course, error) {
	return nil, errors.New("not implemented")
}

func (failingCourseRepo) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Course, error) {
	return nil, errors.New("not implemented")
}

func (failingCourseRepo) GetTasks(ctx context.Context, courseID int64) ([]*models.CourseTask, error) {
	return nil, errors.New("not implemented")
}
