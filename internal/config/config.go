package config

import (
	"os"
	"strings"

	"healthsync/internal/logger"
)

type Config struct {
	DB         DBConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Ultrahuman UltrahumanConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host string
	Port string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

// UltrahumanConfig holds the OAuth application credentials and endpoints for
// the Ultrahuman partner API. Ultrahuman requires HTTPS redirect URLs.
type UltrahumanConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	APIBaseURL   string
	AuthorizeURL string
	TokenURL     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	return &Config{
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "healthsync"),
		},
		Redis: RedisConfig{
			Host: getEnvOrDefault("REDIS_HOST", "localhost"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Ultrahuman: UltrahumanConfig{
			ClientID:     os.Getenv("ULTRAHUMAN_CLIENT_ID"),
			ClientSecret: os.Getenv("ULTRAHUMAN_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("ULTRAHUMAN_REDIRECT_URI"),
			Scope:        getEnvOrDefault("ULTRAHUMAN_SCOPE", "metrics:read profile:read"),
			APIBaseURL:   getEnvOrDefault("ULTRAHUMAN_API_BASE_URL", "https://partner.ultrahuman.com/api/partners/v1"),
			AuthorizeURL: getEnvOrDefault("ULTRAHUMAN_AUTHORIZE_URL", "https://auth.ultrahuman.com/authorise"),
			TokenURL:     getEnvOrDefault("ULTRAHUMAN_TOKEN_URL", "https://partner.ultrahuman.com/api/partners/oauth/token"),
		},
	}, nil
}
