package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string
	DBURL  string

	// AppURL is the builder frontend; checkout redirects land there.
	AppURL            string
	PublicPageBaseURL string
	CORSOrigin        string

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripePremiumPriceID string

	FreePublishLimit int
	FreeMaxPhotos    int
	PremiumMaxPhotos int

	JWTSecret         string
	AdminPasswordHash string

	RedisURL     string
	PageCacheTTL time.Duration

	LogLevel string
}

// LoadEnv reads a .env file when present. A missing file is not an error;
// the process environment is used as is.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),
		DBURL:  getEnv("DB_URL", ""),

		AppURL:     strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePremiumPriceID: getEnv("STRIPE_PREMIUM_PRICE_ID", ""),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	cfg.PublicPageBaseURL = strings.TrimRight(getEnv("PUBLIC_PAGE_BASE_URL", cfg.AppURL+"/p"), "/")

	var err error
	if cfg.FreePublishLimit, err = intEnv("FREE_PUBLISH_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.FreeMaxPhotos, err = intEnv("FREE_MAX_PHOTOS", 3); err != nil {
		return nil, err
	}
	if cfg.PremiumMaxPhotos, err = intEnv("PREMIUM_MAX_PHOTOS", 12); err != nil {
		return nil, err
	}
	if cfg.PageCacheTTL, err = durationEnv("PAGE_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if cfg.FreePublishLimit < 0 {
		return nil, fmt.Errorf("FREE_PUBLISH_LIMIT must be >= 0, got %d", cfg.FreePublishLimit)
	}
	if cfg.FreeMaxPhotos < 1 || cfg.PremiumMaxPhotos < 1 {
		return nil, fmt.Errorf("photo limits must be >= 1 (free=%d, premium=%d)", cfg.FreeMaxPhotos, cfg.PremiumMaxPhotos)
	}

	return cfg, nil
}

// RequireDB is checked by every command that opens the database.
func (c *Config) RequireDB() error {
	if strings.TrimSpace(c.DBURL) == "" {
		return fmt.Errorf("missing required environment variable: DB_URL")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
