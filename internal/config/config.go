package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/trendformats-go/internal/constants"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Pipeline PipelineConfig
	Quota    QuotaConfig
	Session  SessionConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

type ScraperConfig struct {
	APIKeys          []string
	TikTokHost       string
	TikTokBaseURL    string
	InstagramHost    string
	InstagramBaseURL string
}

type OpenAIConfig struct {
	APIKey      string
	VisionModel string
	BaseURL     string
}

type GeminiConfig struct {
	APIKey    string
	TextModel string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type PipelineConfig struct {
	MinViews        int64
	MaxViews        int64
	MaxAgeDays      int
	TargetCount     int
	PageSize        int
	MinCallInterval time.Duration
	OGImageFallback bool
}

type QuotaConfig struct {
	FreeMonthly    int
	CreatorMonthly int
	ProMonthly     int
}

type SessionConfig struct {
	CookieName string
	DevLogin   bool
}

type LoggingConfig struct {
	Level  string
	File   string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			AllowedOrigins: parseCommaSeparated(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		Scraper: ScraperConfig{
			APIKeys:          collectAPIKeys("RAPIDAPI_KEY"),
			TikTokHost:       getEnv("TIKTOK_RAPIDAPI_HOST", constants.APIConfig.TikTokHost),
			TikTokBaseURL:    getEnv("TIKTOK_BASE_URL", constants.APIConfig.TikTokBaseURL),
			InstagramHost:    getEnv("INSTAGRAM_RAPIDAPI_HOST", constants.APIConfig.InstagramHost),
			InstagramBaseURL: getEnv("INSTAGRAM_BASE_URL", constants.APIConfig.InstagramBaseURL),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			VisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey:    getEnv("GEMINI_API_KEY", ""),
			TextModel: getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "trendformats"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "trendformats"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Pipeline: PipelineConfig{
			MinViews:        getEnvInt64("MIN_VIEWS", constants.FilterDefaults.MinViews),
			MaxViews:        getEnvInt64("MAX_VIEWS", constants.FilterDefaults.MaxViews),
			MaxAgeDays:      getEnvInt("MAX_AGE_DAYS", constants.FilterDefaults.MaxAgeDays),
			TargetCount:     getEnvInt("FETCH_TARGET_COUNT", constants.FetchConfig.TargetCount),
			PageSize:        getEnvInt("FETCH_PAGE_SIZE", constants.FetchConfig.PageSize),
			MinCallInterval: getEnvDuration("VENDOR_MIN_INTERVAL", constants.FetchConfig.MinCallInterval),
			OGImageFallback: getEnvBool("OG_IMAGE_FALLBACK", true),
		},
		Quota: QuotaConfig{
			FreeMonthly:    getEnvInt("QUOTA_FREE_MONTHLY", 5),
			CreatorMonthly: getEnvInt("QUOTA_CREATOR_MONTHLY", 50),
			ProMonthly:     getEnvInt("QUOTA_PRO_MONTHLY", 0),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", constants.SessionConfig.CookieName),
			DevLogin:   getEnvBool("SESSION_DEV_LOGIN", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			File:   getEnv("LOG_FILE", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural sanity only. Missing API keys are legal and
// degrade the pipeline instead of failing startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Server.Port)
	}
	if c.Pipeline.MinViews < 0 || c.Pipeline.MinViews > c.Pipeline.MaxViews {
		return fmt.Errorf("MIN_VIEWS (%d) must be between 0 and MAX_VIEWS (%d)", c.Pipeline.MinViews, c.Pipeline.MaxViews)
	}
	if c.Pipeline.MaxAgeDays <= 0 {
		return fmt.Errorf("MAX_AGE_DAYS must be positive")
	}
	if c.Pipeline.TargetCount <= 0 {
		return fmt.Errorf("FETCH_TARGET_COUNT must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}
	return nil
}

// DSN returns a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	parts := []string{
		"host=" + p.Host,
		"port=" + strconv.Itoa(p.Port),
		"user=" + p.User,
		"dbname=" + p.Database,
		"sslmode=" + p.SSLMode,
	}
	if p.Password != "" {
		parts = append(parts, "password="+p.Password)
	}
	return strings.Join(parts, " ")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(strings.ReplaceAll(value, "_", ""), 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// collectAPIKeys reads PREFIX, then PREFIX_1..PREFIX_5, skipping duplicates.
func collectAPIKeys(prefix string) []string {
	keys := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		keys = append(keys, v)
	}

	add(os.Getenv(prefix))
	for i := 1; i <= 5; i++ {
		add(os.Getenv(fmt.Sprintf("%s_%d", prefix, i)))
	}
	return keys
}
