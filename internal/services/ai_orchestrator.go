package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
	"golang.org/x/sync/singleflight"

	"github.com/KokiWakatsuki/lingua-path/back/internal/cache"
	"github.com/KokiWakatsuki/lingua-path/back/internal/clients"
	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/ratelimit"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
)

var logger = loggo.GetLogger("lingua.services")

// previewLength bounds the prompt and response text kept in the audit log.
const previewLength = 500

type AIOrchestrator interface {
	ProcessRequest(ctx context.Context, req models.AIRequest) (*models.AIResponse, error)
	HealthCheck(ctx context.Context) map[string]error
	Providers() []string
}

type OrchestratorConfig struct {
	// FallbackOrder lists provider names in the order they are tried.
	// Names without a registered provider are skipped. When empty the
	// registration order is used.
	FallbackOrder    []string
	CacheEnabled     bool
	CacheTTL         time.Duration
	CoalesceRequests bool
	ParallelFallback bool
}

type OrchestratorDeps struct {
	Providers    []clients.Provider
	Limiter      ratelimit.Limiter
	Cache        cache.ResponseCache
	Interactions repositories.InteractionRepository
	Metrics      *Collector
	Clock        clock.Clock
}

type aiOrchestrator struct {
	order        []clients.Provider
	limiter      ratelimit.Limiter
	cache        cache.ResponseCache
	interactions repositories.InteractionRepository
	metrics      *Collector
	clock        clock.Clock
	config       OrchestratorConfig
	inflight     singleflight.Group
}

func NewAIOrchestrator(deps OrchestratorDeps, config OrchestratorConfig) AIOrchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.WallClock
	}
	if !config.CacheEnabled || config.CacheTTL <= 0 {
		deps.Cache = nil
	}

	o := &aiOrchestrator{
		order:        resolveOrder(deps.Providers, config.FallbackOrder),
		limiter:      deps.Limiter,
		cache:        deps.Cache,
		interactions: deps.Interactions,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		config:       config,
	}
	logger.Infof("🧭 AI fallback order: %v (cache=%t coalesce=%t parallel=%t)",
		o.Providers(), o.cache != nil, config.CoalesceRequests, config.ParallelFallback)
	return o
}

func resolveOrder(providers []clients.Provider, order []string) []clients.Provider {
	if len(order) == 0 {
		return append([]clients.Provider(nil), providers...)
	}
	byName := make(map[string]clients.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	var resolved []clients.Provider
	seen := make(map[string]bool)
	for _, name := range order {
		if p, ok := byName[name]; ok && !seen[name] {
			resolved = append(resolved, p)
			seen[name] = true
		}
	}
	for _, p := range providers {
		if !seen[p.Name()] {
			logger.Warningf("⚠️ provider %s is registered but not in the fallback order, it will not be used", p.Name())
		}
	}
	return resolved
}

func (o *aiOrchestrator) Providers() []string {
	names := make([]string, len(o.order))
	for i, p := range o.order {
		names[i] = p.Name()
	}
	return names
}

func (o *aiOrchestrator) ProcessRequest(ctx context.Context, req models.AIRequest) (*models.AIResponse, error) {
	requestID := uuid.NewString()
	rid := requestID[:8]

	if o.limiter != nil {
		if err := o.limiter.Allow(ctx, req.UserID); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimitExceeded) {
				logger.Infof("[%s] 🚫 rate limit exceeded for user %d", rid, req.UserID)
				o.metrics.recordRequest("rate_limited")
				return nil, err
			}
			// バックエンド障害時はリクエストを通す
			logger.Warningf("[%s] ⚠️ rate limiter unavailable, admitting request: %v", rid, err)
		}
	}

	key := cache.Key(req)
	if o.cache != nil {
		resp, ok, err := o.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warningf("[%s] ⚠️ cache lookup failed: %v", rid, err)
		case ok:
			logger.Debugf("[%s] ♻️ cache hit for %s (%s/%s)", rid, req.Kind, resp.Provider, resp.Model)
			o.metrics.recordRequest("cache")
			return resp, nil
		}
	}

	if !o.config.CoalesceRequests {
		return o.dispatch(ctx, requestID, req, key)
	}

	// 同一キーの同時ミスは一度だけプロバイダーを呼ぶ。
	// 先頭の呼び出し元がキャンセルしても他の待機者のために処理を続ける
	results := o.inflight.DoChan(key, func() (interface{}, error) {
		return o.dispatch(context.WithoutCancel(ctx), requestID, req, key)
	})
	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		resp := *res.Val.(*models.AIResponse)
		if res.Shared {
			logger.Debugf("[%s] 🔗 shared in-flight response for %s", rid, req.Kind)
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispatch runs the provider chain and, on success, records the audit entry
// and populates the cache.
func (o *aiOrchestrator) dispatch(ctx context.Context, requestID string, req models.AIRequest, key string) (*models.AIResponse, error) {
	rid := requestID[:8]
	start := o.clock.Now()

	var (
		resp *models.AIResponse
		err  error
	)
	switch {
	case len(o.order) == 0:
		err = &AllProvidersFailedError{LastErr: ErrNoProviders}
	case o.config.ParallelFallback:
		resp, err = o.race(ctx, rid, req)
	default:
		resp, err = o.sequential(ctx, rid, req)
	}
	if err != nil {
		logger.Errorf("[%s] ❌ AI request failed: %v", rid, err)
		o.metrics.recordRequest("failed")
		return nil, err
	}

	resp.ProcessingTimeMs = o.clock.Now().Sub(start).Milliseconds()
	logger.Infof("[%s] ✅ %s answered %s with %s in %dms (%d tokens, $%.5f)", rid,
		resp.Provider, req.Kind, resp.Model, resp.ProcessingTimeMs, resp.Usage.TotalTokens, resp.EstimatedCost)
	o.metrics.recordRequest("provider")
	o.metrics.recordUsage(resp.Provider, resp.Usage.TotalTokens, resp.EstimatedCost)

	o.recordInteraction(ctx, rid, requestID, req, resp)

	if o.cache != nil {
		if err := o.cache.Set(ctx, key, resp, o.config.CacheTTL); err != nil {
			logger.Warningf("[%s] ⚠️ failed to cache response: %v", rid, err)
		}
	}
	return resp, nil
}

func (o *aiOrchestrator) sequential(ctx context.Context, rid string, req models.AIRequest) (*models.AIResponse, error) {
	var lastErr error
	attempted := 0
	for _, p := range o.order {
		// 呼び出し元が諦めた場合のみ途中で止める
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted++
		resp, err := o.attempt(ctx, rid, p, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, &AllProvidersFailedError{Attempted: attempted, LastErr: lastErr}
}

type raceResult struct {
	resp *models.AIResponse
	err  error
}

// race calls every provider at once and keeps the first success. The losers
// are cancelled but may already have been billed.
func (o *aiOrchestrator) race(ctx context.Context, rid string, req models.AIRequest) (*models.AIResponse, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult, len(o.order))
	for _, p := range o.order {
		p := p
		go func() {
			resp, err := o.attempt(raceCtx, rid, p, req)
			results <- raceResult{resp: resp, err: err}
		}()
	}

	var lastErr error
	for range o.order {
		select {
		case r := <-results:
			if r.err == nil {
				return r.resp, nil
			}
			lastErr = r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, &AllProvidersFailedError{Attempted: len(o.order), LastErr: lastErr}
}

func (o *aiOrchestrator) attempt(ctx context.Context, rid string, p clients.Provider, req models.AIRequest) (*models.AIResponse, error) {
	logger.Debugf("[%s] 🤖 trying %s for %s", rid, p.Name(), req.Kind)
	started := o.clock.Now()
	resp, err := p.Generate(ctx, req)
	o.metrics.recordAttempt(p.Name(), err, o.clock.Now().Sub(started))
	if err != nil {
		logger.Warningf("[%s] ⚠️ %s failed: %v", rid, p.Name(), err)
		if clients.IsTokenLimitError(err) {
			logger.Warningf("[%s] ⚠️ prompt exceeds the %s context window (max_tokens %d)", rid, p.Name(), req.MaxTokens)
		}
		return nil, err
	}
	return resp, nil
}

func (o *aiOrchestrator) recordInteraction(ctx context.Context, rid string, requestID string, req models.AIRequest, resp *models.AIResponse) {
	if o.interactions == nil {
		return
	}
	interaction := &models.AIInteraction{
		ID:               uuid.NewString(),
		RequestID:        requestID,
		UserID:           req.UserID,
		Provider:         resp.Provider,
		Model:            resp.Model,
		Kind:             req.Kind,
		PromptPreview:    preview(req.Prompt),
		ResponsePreview:  preview(resp.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		ProcessingTimeMs: resp.ProcessingTimeMs,
		EstimatedCost:    resp.EstimatedCost,
		CreatedAt:        o.clock.Now(),
	}
	if err := o.interactions.Create(ctx, interaction); err != nil {
		logger.Warningf("[%s] ⚠️ failed to record AI interaction: %v", rid, err)
	}
}

func (o *aiOrchestrator) HealthCheck(ctx context.Context) map[string]error {
	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(o.order))
	for _, p := range o.order {
		p := p
		go func() {
			results <- result{name: p.Name(), err: p.HealthCheck(ctx)}
		}()
	}
	status := make(map[string]error, len(o.order))
	for range o.order {
		r := <-results
		status[r.name] = r.err
	}
	return status
}

// preview truncates s to previewLength runes.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLength {
		return s
	}
	return string(runes[:previewLength])
}
