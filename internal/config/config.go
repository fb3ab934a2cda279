package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Twilio       TwilioConfig
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
	BodyLimitMB           int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	IdempotencyTTLMin int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminName             string
	AdminEmail            string
	AdminPassword         string
}

// StorageConfig points uploads at a local directory served under PublicBaseURL.
type StorageConfig struct {
	Dir           string
	PublicBaseURL string
	MaxUploadMB   int
}

// TwilioConfig holds WhatsApp messaging credentials.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
	BaseURL        string
	CountryPrefix  string
	TimeoutSeconds int
}

// NotificationConfig holds SMTP settings for customer emails.
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
}

// ReportConfig controls accounting and printable report output.
type ReportConfig struct {
	TimeZone              string
	Locale                string
	Currency              string
	DefaultCommissionRate float64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	commission, err := strconv.ParseFloat(getEnv("REPORT_DEFAULT_COMMISSION_RATE", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_DEFAULT_COMMISSION_RATE: %w", err)
	}
	if commission < 0 || commission > 100 {
		return nil, fmt.Errorf("REPORT_DEFAULT_COMMISSION_RATE must be between 0 and 100, got %v", commission)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "repair-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 100),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:          os.Getenv("REDIS_PASSWORD"),
			DB:                redisDB,
			IdempotencyTTLMin: getEnvAsInt("REDIS_IDEMPOTENCY_TTL_MINUTES", 1440),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminName:             getEnv("ADMIN_NAME", "Administrator"),
			AdminEmail:            os.Getenv("ADMIN_EMAIL"),
			AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		},
		Storage: StorageConfig{
			Dir:           getEnv("STORAGE_DIR", "./data/uploads"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files"),
			MaxUploadMB:   getEnvAsInt("STORAGE_MAX_UPLOAD_MB", 50),
		},
		Twilio: TwilioConfig{
			AccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
			WhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
			BaseURL:        getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
			CountryPrefix:  getEnv("TWILIO_COUNTRY_PREFIX", "+2"),
			TimeoutSeconds: getEnvAsInt("TWILIO_TIMEOUT_SECONDS", 15),
		},
		Notification: NotificationConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
		Report: ReportConfig{
			TimeZone:              getEnv("REPORT_TIME_ZONE", "Africa/Cairo"),
			Locale:                getEnv("REPORT_LOCALE", "ar-EG"),
			Currency:              getEnv("REPORT_CURRENCY", "EGP"),
			DefaultCommissionRate: commission,
		},
	}

	if _, err := time.LoadLocation(cfg.Report.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIME_ZONE: %w", err)
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

// Enabled reports whether all Twilio credentials are present.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppNumber != ""
}

// Timeout returns the outbound request timeout.
func (t TwilioConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Location resolves the report time zone, falling back to UTC.
func (r ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
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
