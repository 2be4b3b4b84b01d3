package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// AIConfig drives the orchestrator and its collaborators.
type AIConfig struct {
	Providers     []models.ProviderDescriptor
	FallbackOrder []string

	RateLimitRPM     int
	RateLimitBackend string

	CacheEnabled bool
	CacheTTL     time.Duration
	CacheBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CoalesceRequests bool
	ParallelFallback bool
}

// NeedsRedis reports whether any backend is configured to use redis.
func (c *AIConfig) NeedsRedis() bool {
	return c.RateLimitBackend == BackendRedis || (c.CacheEnabled && c.CacheBackend == BackendRedis)
}

type providersFile struct {
	FallbackOrder []string                    `yaml:"fallback_order"`
	Providers     []models.ProviderDescriptor `yaml:"providers"`
}

// LoadAIConfig reads the AI settings from the environment. When
// AI_PROVIDERS_FILE is set its providers replace env-declared ones with the
// same name and its fallback_order wins over AI_FALLBACK_ORDER.
func LoadAIConfig() (*AIConfig, error) {
	cfg := &AIConfig{
		Providers:        providersFromEnv(),
		FallbackOrder:    getEnvList("AI_FALLBACK_ORDER", []string{"claude", "openai", "google"}),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 10),
		RateLimitBackend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
		CacheEnabled:     getEnvBool("AI_CACHE_ENABLED", true),
		CacheTTL:         time.Duration(getEnvInt("AI_CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheBackend:     strings.ToLower(getEnv("CACHE_BACKEND", BackendMemory)),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		CoalesceRequests: getEnvBool("AI_COALESCE_REQUESTS", true),
		ParallelFallback: getEnvBool("AI_PARALLEL_FALLBACK", false),
	}

	if path := os.Getenv("AI_PROVIDERS_FILE"); path != "" {
		file, err := loadProvidersFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Providers = mergeProviders(cfg.Providers, file.Providers)
		if len(file.FallbackOrder) > 0 {
			cfg.FallbackOrder = file.FallbackOrder
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AIConfig) validate() error {
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.RateLimitRPM)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("AI_CACHE_TTL_SECONDS must be positive")
	}
	for key, backend := range map[string]string{
		"RATE_LIMIT_BACKEND": c.RateLimitBackend,
		"CACHE_BACKEND":      c.CacheBackend,
	} {
		if backend != BackendMemory && backend != BackendRedis {
			return fmt.Errorf("%s must be %q or %q, got %q", key, BackendMemory, BackendRedis, backend)
		}
	}

	known := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		known[p.Name] = true
	}
	for _, name := range c.FallbackOrder {
		if !known[name] {
			logger.Warningf("⚠️ fallback order names unknown provider %q, it will be skipped", name)
		}
	}
	return nil
}

func providersFromEnv() []models.ProviderDescriptor {
	return []models.ProviderDescriptor{
		{
			Name:         "claude",
			Kind:         models.ProviderKindClaude,
			APIKey:       os.Getenv("CLAUDE_API_KEY"),
			BaseURL:      getEnv("CLAUDE_BASE_URL", ""),
			DefaultModel: getEnv("CLAUDE_MODEL", "claude-3-5-sonnet-20241022"),
			Models:       []string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022", "claude-3-opus-20240229", "claude-3-haiku-20240307"},
			Timeout:      time.Duration(getEnvInt("CLAUDE_TIMEOUT_SECONDS", 60)) * time.Second,
			Anthropic:    &models.AnthropicOptions{Version: getEnv("CLAUDE_API_VERSION", "2023-06-01")},
		},
		{
			Name:         "openai",
			Kind:         models.ProviderKindOpenAI,
			APIKey:       os.Getenv("OPENAI_API_KEY"),
			BaseURL:      getEnv("OPENAI_BASE_URL", ""),
			DefaultModel: getEnv("OPENAI_MODEL", "gpt-4o"),
			Models:       []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
			Timeout:      time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 60)) * time.Second,
			OpenAI:       &models.OpenAIOptions{Organization: os.Getenv("OPENAI_ORGANIZATION")},
		},
		{
			Name:         "google",
			Kind:         models.ProviderKindGoogle,
			APIKey:       os.Getenv("GOOGLE_API_KEY"),
			BaseURL:      getEnv("GOOGLE_BASE_URL", ""),
			DefaultModel: getEnv("GOOGLE_MODEL", "gemini-1.5-pro"),
			Models:       []string{"gemini-1.5-pro", "gemini-1.5-flash", "gemini-2.0-flash"},
			Timeout:      time.Duration(getEnvInt("GOOGLE_TIMEOUT_SECONDS", 60)) * time.Second,
			Google:       &models.GoogleOptions{APIVersion: getEnv("GOOGLE_API_VERSION", "v1beta")},
		},
	}
}

// loadProvidersFile parses the YAML provider file. ${VAR} references are
// expanded from the environment so keys need not be written to disk.
func loadProvidersFile(path string) (*providersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var file providersFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers file %s: %w", path, err)
	}

	for i := range file.Providers {
		p := &file.Providers[i]
		switch p.Kind {
		case models.ProviderKindClaude, models.ProviderKindOpenAI, models.ProviderKindGoogle:
		default:
			return nil, fmt.Errorf("providers file %s: provider %d has unknown kind %q", path, i+1, p.Kind)
		}
		if p.Name == "" {
			p.Name = string(p.Kind)
		}
	}
	logger.Infof("📄 loaded %d providers from %s", len(file.Providers), path)
	return &file, nil
}

func mergeProviders(base, overrides []models.ProviderDescriptor) []models.ProviderDescriptor {
	merged := make([]models.ProviderDescriptor, 0, len(base)+len(overrides))
	index := make(map[string]int)
	for _, p := range base {
		index[p.Name] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range overrides {
		if i, ok := index[p.Name]; ok {
			merged[i] = p
			continue
		}
		index[p.Name] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
