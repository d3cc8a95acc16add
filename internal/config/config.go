package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	AI           AIConfig
	Notification NotificationConfig
	Report       ReportConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig holds snapshot and upload locations.
type StoreConfig struct {
	SnapshotPath string
	UploadDir    string
	MaxFileSize  int64
	Plants       []string
}

// RedisConfig holds connection values for the classification cache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	CacheTTL    time.Duration
	Disabled    bool
	DialTimeout time.Duration
}

// LoggerConfig configures logging behavior. Format is "json" or "console".
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AIConfig configures the external probabilistic classifier.
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	MaxTokens      int
	TimeoutSeconds int
}

// NotificationConfig holds outbound delivery endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// ReportConfig controls scheduled reporting defaults.
type ReportConfig struct {
	DefaultRecipients []string
	SLAHoursNormal    int
	SLAHoursUrgent    int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "feedback-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			SnapshotPath: getEnv("DATA_STORE_PATH", "./data/db.json"),
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
			MaxFileSize:  int64(getEnvAsInt("MAX_FILE_SIZE", 10*1024*1024)),
			Plants:       getEnvAsList("PLANTS", "P1,P2,BK"),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			CacheTTL:    time.Duration(getEnvAsInt("CLASSIFY_CACHE_TTL_SECONDS", 3600)) * time.Second,
			Disabled:    getEnvAsBool("REDIS_DISABLED", false),
			DialTimeout: 2 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("JWT_SECRET", "dev-secret-key"),
			AccessTokenTTLMinutes: getEnvAsInt("JWT_EXPIRES_IN_MINUTES", 30),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		AI: AIConfig{
			APIKey:         os.Getenv("GROQ_API_KEY"),
			BaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Temperature:    getEnvAsFloat32("GROQ_TEMPERATURE", 0.2),
			MaxTokens:      getEnvAsInt("GROQ_MAX_TOKENS", 1200),
			TimeoutSeconds: getEnvAsInt("GROQ_TIMEOUT_SECONDS", 20),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("EMAIL_FROM", "noreply@company.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Report: ReportConfig{
			DefaultRecipients: getEnvAsList("REPORT_RECIPIENTS_DEFAULT", ""),
			SLAHoursNormal:    getEnvAsInt("SLA_HOURS_NORMAL", 72),
			SLAHoursUrgent:    getEnvAsInt("SLA_HOURS_URGENT", 24),
		},
	}

	if cfg.Report.SLAHoursNormal <= 0 {
		cfg.Report.SLAHoursNormal = 72
	}
	if cfg.Report.SLAHoursUrgent <= 0 {
		cfg.Report.SLAHoursUrgent = 24
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the deterministic bound for one external classifier call.
func (c AIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat32(key string, fallback float32) float32 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return fallback
	}
	return float32(parsed)
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
