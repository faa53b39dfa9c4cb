package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Collab   CollabConfig
	Research ResearchConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type CollabConfig struct {
	ActivityLogCap      int
	MaxCollaborators    int
	LockLeaseSeconds    int
	UseRedisLockBackend bool
}

type ResearchConfig struct {
	BaseURL string
	APIKey  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Collab: CollabConfig{
			ActivityLogCap:      getEnvAsInt("COLLAB_ACTIVITY_LOG_CAP", 100),
			MaxCollaborators:    getEnvAsInt("COLLAB_MAX_COLLABORATORS", 10),
			LockLeaseSeconds:    getEnvAsInt("COLLAB_LOCK_LEASE_SECONDS", 300),
			UseRedisLockBackend: getEnv("COLLAB_LOCK_BACKEND", "memory") == "redis",
		},
		Research: ResearchConfig{
			BaseURL: getEnv("RESEARCH_SERVICE_URL", "http://localhost:8000"),
			APIKey:  getEnv("RESEARCH_SERVICE_API_KEY", ""),
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
