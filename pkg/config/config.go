package config

import (
	"errors"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Currency   CurrencyConfig
	Payments   PaymentsConfig
	Receipts   ReceiptsConfig
	Jobs       JobsConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig fixes the civil time zone in which every doctor's
// wall-clock schedule (working hours and breaks) is interpreted. Slot
// validation converts candidate instants into this zone before comparing.
type SchedulingConfig struct {
	TimeZone string
}

// CurrencyConfig points at the external rate provider used when converting
// fees to USD at payment time.
type CurrencyConfig struct {
	ProviderURL string
	APIKey      string
	CacheTTL    time.Duration
	Timeout     time.Duration
}

// PaymentsConfig configures the external checkout-session provider and the
// webhook that confirms payments.
type PaymentsConfig struct {
	ProviderURL   string
	SecretKey     string
	WebhookSecret string
	ClientURL     string
	Timeout       time.Duration
}

// ReceiptsConfig controls rendered payment receipts and their signed URLs.
type ReceiptsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// JobsConfig tunes the background worker queues.
type JobsConfig struct {
	NotificationWorkers int
	ReceiptWorkers      int
	MaxRetries          int
	RetryDelay          time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		TimeZone: v.GetString("SCHEDULING_TIME_ZONE"),
	}

	cfg.Currency = CurrencyConfig{
		ProviderURL: v.GetString("CURRENCY_PROVIDER_URL"),
		APIKey:      v.GetString("CURRENCY_API_KEY"),
		CacheTTL:    parseDuration(v.GetString("CURRENCY_CACHE_TTL"), 15*time.Minute),
		Timeout:     parseDuration(v.GetString("CURRENCY_TIMEOUT"), 5*time.Second),
	}

	cfg.Payments = PaymentsConfig{
		ProviderURL:   v.GetString("PAYMENT_PROVIDER_URL"),
		SecretKey:     v.GetString("PAYMENT_SECRET_KEY"),
		WebhookSecret: v.GetString("PAYMENT_WEBHOOK_SECRET"),
		ClientURL:     v.GetString("CLIENT_URL"),
		Timeout:       parseDuration(v.GetString("PAYMENT_TIMEOUT"), 10*time.Second),
	}

	cfg.Receipts = ReceiptsConfig{
		Enabled:         v.GetBool("ENABLE_RECEIPTS"),
		StorageDir:      v.GetString("RECEIPTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("RECEIPTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("RECEIPTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Jobs = JobsConfig{
		NotificationWorkers: v.GetInt("NOTIFICATION_WORKERS"),
		ReceiptWorkers:      v.GetInt("RECEIPT_WORKERS"),
		MaxRetries:          v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay:          parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "carebook")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "carebook-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULING_TIME_ZONE", "Asia/Kolkata")

	v.SetDefault("CURRENCY_PROVIDER_URL", "https://api.currencyfreaks.com/v2.0/rates/latest")
	v.SetDefault("CURRENCY_API_KEY", "")
	v.SetDefault("CURRENCY_CACHE_TTL", "15m")
	v.SetDefault("CURRENCY_TIMEOUT", "5s")

	v.SetDefault("PAYMENT_PROVIDER_URL", "https://api.payments.example.com")
	v.SetDefault("PAYMENT_SECRET_KEY", "")
	v.SetDefault("PAYMENT_WEBHOOK_SECRET", "")
	v.SetDefault("CLIENT_URL", "http://localhost:5173")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")

	v.SetDefault("ENABLE_RECEIPTS", true)
	v.SetDefault("RECEIPTS_STORAGE_DIR", "./receipts")
	v.SetDefault("RECEIPTS_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("RECEIPT_WORKERS", 1)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
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
