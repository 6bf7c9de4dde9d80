package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X deonai-be/internal/config.Version=...".
var Version = "dev"

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Upstream  UpstreamConfig
	RateLimit RateLimitConfig
	Models    ModelsConfig
	Nats      NatsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	Version            string
}

type DatabaseConfig struct {
	Connection string
	RLSRole    string // role assumed inside each request transaction, empty to skip
}

type AuthConfig struct {
	JWTSecret string
}

type UpstreamConfig struct {
	APIKey        string // fallback when the client sends none
	CompletionURL string
	ModelsURL     string
	Timeout       time.Duration
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type ModelsConfig struct {
	AllowedIds []string // empty allows every model
	CatalogTTL time.Duration
}

type NatsConfig struct {
	URL string // empty disables usage events
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
			Version:            Version,
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			RLSRole:    getEnv("DB_RLS_ROLE", "authenticated"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		},
		Upstream: UpstreamConfig{
			APIKey:        getEnv("OPENROUTER_API_KEY", ""),
			CompletionURL: getEnv("OPENROUTER_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
			ModelsURL:     getEnv("OPENROUTER_MODELS_URL", "https://openrouter.ai/api/v1/models"),
			Timeout:       getEnvAsSeconds("OPENROUTER_TIMEOUT_SECONDS", 60),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 20),
			Window:      getEnvAsSeconds("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Models: ModelsConfig{
			AllowedIds: getEnvAsList("ALLOWED_MODEL_IDS"),
			CatalogTTL: getEnvAsSeconds("MODEL_CATALOG_TTL_SECONDS", 300),
		},
		Nats: NatsConfig{
			URL: getEnv("NATS_URL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
