package config

import (
	"os"
	"strconv"
	"strings"
)

// ServerConfig holds the HTTP-facing settings.
type ServerConfig struct {
	Port           string
	LogLevel       string
	SeedUsersFile  string
	PromptsDir     string
	AllowedOrigins []string
}

func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		SeedUsersFile:  getEnv("SEED_USERS_FILE", "data/users.csv"),
		PromptsDir:     getEnv("PROMPTS_DIR", ""),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warningf("⚠️ %s=%q is not an integer, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warningf("⚠️ %s=%q is not a boolean, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
