package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Catalog  CatalogConfig
	Feedback FeedbackConfig
	Planner  PlannerConfig
	Export   ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig controls how the section catalog is fetched, cached and mirrored.
type CatalogConfig struct {
	URL            string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	CacheEnabled   bool
	CacheTTL       time.Duration
	MirrorEnabled  bool
	RefreshWorkers int
}

// FeedbackConfig configures the generative-text routine feedback client.
type FeedbackConfig struct {
	Enabled    bool
	BaseURL    string
	Model      string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// PlannerConfig bounds the combination search.
type PlannerConfig struct {
	MaxCombinations int
}

// ExportConfig configures routine exports.
type ExportConfig struct {
	Title string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *fs.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if strings.TrimSpace(c.Catalog.URL) == "" {
		problems = append(problems, "CATALOG_URL is required")
	}
	if c.Catalog.MaxRetries < 1 {
		problems = append(problems, "CATALOG_MAX_RETRIES must be at least 1")
	}
	if c.Catalog.RefreshWorkers < 1 {
		problems = append(problems, "CATALOG_REFRESH_WORKERS must be at least 1")
	}
	if c.Feedback.Enabled && c.Feedback.APIKey == "" {
		problems = append(problems, "FEEDBACK_API_KEY is required when ENABLE_FEEDBACK is set")
	}
	if c.Planner.MaxCombinations == 0 {
		problems = append(problems, "PLANNER_MAX_COMBINATIONS must be positive, or negative for no limit")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Catalog = CatalogConfig{
		URL:            v.GetString("CATALOG_URL"),
		Timeout:        parseDuration(v.GetString("CATALOG_TIMEOUT"), 15*time.Second),
		MaxRetries:     v.GetInt("CATALOG_MAX_RETRIES"),
		RetryDelay:     parseDuration(v.GetString("CATALOG_RETRY_DELAY"), 2*time.Second),
		CacheEnabled:   v.GetBool("ENABLE_CATALOG_CACHE"),
		CacheTTL:       parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
		MirrorEnabled:  v.GetBool("ENABLE_CATALOG_MIRROR"),
		RefreshWorkers: v.GetInt("CATALOG_REFRESH_WORKERS"),
	}

	cfg.Feedback = FeedbackConfig{
		Enabled:    v.GetBool("ENABLE_FEEDBACK"),
		BaseURL:    v.GetString("FEEDBACK_BASE_URL"),
		Model:      v.GetString("FEEDBACK_MODEL"),
		APIKey:     v.GetString("FEEDBACK_API_KEY"),
		Timeout:    parseDuration(v.GetString("FEEDBACK_TIMEOUT"), 20*time.Second),
		MaxRetries: v.GetInt("FEEDBACK_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("FEEDBACK_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Planner = PlannerConfig{
		MaxCombinations: v.GetInt("PLANNER_MAX_COMBINATIONS"),
	}

	cfg.Export = ExportConfig{
		Title: v.GetString("EXPORT_TITLE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "usis_routine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "usis:")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CATALOG_URL", "https://connect-api-lab-fix.vercel.app/raw-schedule")
	v.SetDefault("CATALOG_TIMEOUT", "15s")
	v.SetDefault("CATALOG_MAX_RETRIES", 3)
	v.SetDefault("CATALOG_RETRY_DELAY", "2s")
	v.SetDefault("ENABLE_CATALOG_CACHE", false)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_CATALOG_MIRROR", false)
	v.SetDefault("CATALOG_REFRESH_WORKERS", 1)

	v.SetDefault("ENABLE_FEEDBACK", false)
	v.SetDefault("FEEDBACK_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("FEEDBACK_MODEL", "gemini-1.5-flash")
	v.SetDefault("FEEDBACK_API_KEY", "")
	v.SetDefault("FEEDBACK_TIMEOUT", "20s")
	v.SetDefault("FEEDBACK_MAX_RETRIES", 3)
	v.SetDefault("FEEDBACK_RETRY_DELAY", "2s")

	v.SetDefault("PLANNER_MAX_COMBINATIONS", 200000)
	v.SetDefault("EXPORT_TITLE", "Class Routine")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
