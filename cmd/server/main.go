package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/KokiWakatsuki/lingua-path/back/internal/api/handlers"
	"github.com/KokiWakatsuki/lingua-path/back/internal/api/routes"
	"github.com/KokiWakatsuki/lingua-path/back/internal/cache"
	"github.com/KokiWakatsuki/lingua-path/back/internal/clients"
	"github.com/KokiWakatsuki/lingua-path/back/internal/config"
	"github.com/KokiWakatsuki/lingua-path/back/internal/ratelimit"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

var logger = loggo.GetLogger("lingua.server")

func main() {
	// 環境変数の読み込み
	if err := godotenv.Load(); err != nil {
		logger.Infof(".env file not found: %v", err)
	}

	serverConfig := config.LoadServerConfig()
	if err := loggo.ConfigureLoggers(serverConfig.LogLevel); err != nil {
		logger.Warningf("⚠️ invalid LOG_LEVEL %q: %v", serverConfig.LogLevel, err)
	}

	aiConfig, err := config.LoadAIConfig()
	if err != nil {
		logger.Criticalf("invalid AI configuration: %v", err)
		os.Exit(1)
	}

	// データベース接続の初期化（リトライ機能付き）
	db, err := config.NewDatabaseWithRetry(config.LoadDatabaseConfig())
	if err != nil {
		logger.Errorf("❌ database connection failed: %v", err)
		logger.Warningf("⚠️ falling back to in-memory repositories")
	} else {
		defer db.Close()
	}
	userRepo, courseRepo, interactionRepo := newRepositories(db, serverConfig.SeedUsersFile)

	var redisClient *redis.Client
	if aiConfig.NeedsRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     aiConfig.RedisAddr,
			Password: aiConfig.RedisPassword,
			DB:       aiConfig.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warningf("⚠️ redis at %s is not reachable yet: %v", aiConfig.RedisAddr, err)
		}
	}

	limiter := newLimiter(aiConfig, redisClient)
	responseCache, cacheStats := newResponseCache(aiConfig, redisClient)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go runJanitor(janitorCtx, limiter, responseCache)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetricsCollector(cacheStats)
	registry.MustRegister(metrics)

	providers, err := clients.NewProviders(aiConfig.Providers)
	if err != nil {
		logger.Criticalf("failed to build AI providers: %v", err)
		os.Exit(1)
	}
	if len(providers) == 0 {
		logger.Warningf("⚠️ no AI provider has an API key, course generation will fail")
	}

	orchestrator := services.NewAIOrchestrator(services.OrchestratorDeps{
		Providers:    providers,
		Limiter:      limiter,
		Cache:        responseCache,
		Interactions: interactionRepo,
		Metrics:      metrics,
		Clock:        clock.WallClock,
	}, services.OrchestratorConfig{
		FallbackOrder:    aiConfig.FallbackOrder,
		CacheEnabled:     aiConfig.CacheEnabled,
		CacheTTL:         aiConfig.CacheTTL,
		CoalesceRequests: aiConfig.CoalesceRequests,
		ParallelFallback: aiConfig.ParallelFallback,
	})

	prompts := utils.NewPromptLoader(serverConfig.PromptsDir)
	courseService := services.NewCourseService(orchestrator, courseRepo, userRepo, prompts, metrics)
	usageService := services.NewUsageService(interactionRepo)

	// ハンドラーの初期化
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(
		handlers.NewCourseHandler(courseService),
		handlers.NewUsageHandler(usageService),
		handlers.NewChatHandler(orchestrator),
		handlers.NewHealthHandler(orchestrator),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		serverConfig.AllowedOrigins,
	)

	server := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("🚀 LinguaPath Backend Server starting on port %s", serverConfig.Port)
	logger.Infof("📋 Available endpoints:")
	logger.Infof("  - GET  /health")
	logger.Infof("  - GET  /health/providers")
	logger.Infof("  - GET  /metrics")
	logger.Infof("  - POST /api/courses/generate")
	logger.Infof("  - GET  /api/courses")
	logger.Infof("  - GET  /api/courses/:id")
	logger.Infof("  - POST /api/ai/chat")
	logger.Infof("  - GET  /api/ai/usage")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Criticalf("server failed to start: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infof("🛑 shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("❌ graceful shutdown failed: %v", err)
	}
}

// リポジトリを初期化（データベース接続が成功した場合はSQL、失敗した場合はメモリベース）
func newRepositories(db *sqlx.DB, seedUsersFile string) (repositories.UserRepository, repositories.CourseRepository, repositories.InteractionRepository) {
	if db != nil {
		logger.Infof("✅ using SQL repositories")
		return repositories.NewMySQLUserRepository(db),
			repositories.NewMySQLCourseRepository(db),
			repositories.NewMySQLInteractionRepository(db)
	}
	logger.Infof("✅ using in-memory repositories")
	return repositories.NewMemoryUserRepository(seedUsersFile),
		repositories.NewMemoryCourseRepository(),
		repositories.NewMemoryInteractionRepository()
}

func newLimiter(cfg *config.AIConfig, client *redis.Client) ratelimit.Limiter {
	if cfg.RateLimitBackend == config.BackendRedis {
		logger.Infof("🚦 redis rate limiter: %d requests/minute", cfg.RateLimitRPM)
		return ratelimit.NewRedisLimiter(client, "", cfg.RateLimitRPM)
	}
	logger.Infof("🚦 in-memory rate limiter: %d requests/minute", cfg.RateLimitRPM)
	return ratelimit.NewMemoryLimiter(cfg.RateLimitRPM, clock.WallClock)
}

func newResponseCache(cfg *config.AIConfig, client *redis.Client) (cache.ResponseCache, services.CacheStatsSource) {
	if !cfg.CacheEnabled {
		logger.Infof("💾 response cache disabled")
		return nil, nil
	}
	if cfg.CacheBackend == config.BackendRedis {
		logger.Infof("💾 redis response cache, ttl %s", cfg.CacheTTL)
		c := cache.NewRedisCache(client)
		return c, c
	}
	logger.Infof("💾 in-memory response cache, ttl %s", cfg.CacheTTL)
	c := cache.NewMemoryCache(clock.WallClock)
	return c, c
}

// runJanitor drops expired state from the in-memory backends once per
// rate-limit window. Redis expires its own keys.
func runJanitor(ctx context.Context, limiter ratelimit.Limiter, responseCache cache.ResponseCache) {
	pruner, _ := limiter.(interface{ Prune() })
	purger, _ := responseCache.(interface{ Purge() int })
	if pruner == nil && purger == nil {
		return
	}

	ticker := time.NewTicker(ratelimit.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruner != nil {
				pruner.Prune()
			}
			if purger != nil {
				if n := purger.Purge(); n > 0 {
					logger.Debugf("🧹 purged %d expired cache entries", n)
				}
			}
		}
	}
}
