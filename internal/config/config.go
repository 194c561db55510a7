package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// webhookSecretPattern keeps the secret usable as a single URL path segment.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,256}$`)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Config struct {
	TelegramToken string
	LLM           LLMConfig
	DB            DBConfig
	Redis         RedisConfig
	Subscription  SubscriptionConfig
	Support       SupportConfig
	Export        ExportConfig
	HTTP          HTTPConfig
	Logger        LoggerConfig
}

type LLMConfig struct {
	Provider     string
	GroqAPIKey   string
	GroqModel    string
	GroqBaseURL  string
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig selects the Redis session store when Host is set.
type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type SubscriptionConfig struct {
	PaymentToken   string
	PriceRUB       int
	TrialDays      int
	PaidPeriodDays int
}

type SupportConfig struct {
	Email     string
	SESSender string
	AWSRegion string
}

func (c SupportConfig) Enabled() bool {
	return c.Email != ""
}

type ExportConfig struct {
	FontPath      string
	ArchiveBucket string
	AWSRegion     string
}

// HTTPConfig serves the health endpoint and, when WebhookURL is set, the
// webhook at WebhookURL/webhook/<WebhookSecret>.
type HTTPConfig struct {
	Addr          string
	WebhookURL    string
	WebhookSecret string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return value, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return value, nil
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

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getIntOrDefault(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := getDurationOrDefault(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	awsRegion := getEnvOrDefault("AWS_REGION", "eu-central-1")
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGroq)),
			GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
			GroqModel:    getEnvOrDefault("GROQ_MODEL", "llama3-70b-8192"),
			GroqBaseURL:  getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      durationVar("LLM_TIMEOUT", 90*time.Second),
		},
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "menupro"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:       os.Getenv("REDIS_HOST"),
			Port:       getEnvOrDefault("REDIS_PORT", "6379"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         intVar("REDIS_DB", 0),
			SessionTTL: durationVar("SESSION_TTL", 24*time.Hour),
		},
		Subscription: SubscriptionConfig{
			PaymentToken:   os.Getenv("PAYMENT_TOKEN"),
			PriceRUB:       intVar("SUBSCRIPTION_PRICE_RUB", 299),
			TrialDays:      intVar("TRIAL_DAYS", 10),
			PaidPeriodDays: intVar("PAID_PERIOD_DAYS", 30),
		},
		Support: SupportConfig{
			Email:     os.Getenv("SUPPORT_EMAIL"),
			SESSender: os.Getenv("SES_SENDER"),
			AWSRegion: awsRegion,
		},
		Export: ExportConfig{
			FontPath:      os.Getenv("PDF_FONT_PATH"),
			ArchiveBucket: os.Getenv("PDF_ARCHIVE_BUCKET"),
			AWSRegion:     awsRegion,
		},
		HTTP: HTTPConfig{
			Addr:          getEnvOrDefault("HTTP_ADDR", ":8080"),
			WebhookURL:    os.Getenv("WEBHOOK_URL"),
			WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}

	switch c.LLM.Provider {
	case ProviderGroq:
		if c.LLM.GroqAPIKey == "" {
			errs = append(errs, errors.New("GROQ_API_KEY is required for the groq provider"))
		}
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGroq, ProviderGemini, c.LLM.Provider))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}

	if c.Subscription.PriceRUB <= 0 {
		errs = append(errs, errors.New("SUBSCRIPTION_PRICE_RUB must be positive"))
	}
	if c.Subscription.TrialDays <= 0 {
		errs = append(errs, errors.New("TRIAL_DAYS must be positive"))
	}
	if c.Subscription.PaidPeriodDays <= 0 {
		errs = append(errs, errors.New("PAID_PERIOD_DAYS must be positive"))
	}
	if c.Support.Enabled() && c.Support.SESSender == "" {
		errs = append(errs, errors.New("SES_SENDER is required when SUPPORT_EMAIL is set"))
	}
	if c.HTTP.WebhookURL != "" && !webhookSecretPattern.MatchString(c.HTTP.WebhookSecret) {
		errs = append(errs, errors.New("WEBHOOK_SECRET of 16-256 letters, digits, '_' or '-' is required when WEBHOOK_URL is set"))
	}
	if c.Redis.Enabled() && c.Redis.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	return errors.Join(errs...)
}
