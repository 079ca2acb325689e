package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                       string
	DatabaseURL                string
	MigrationsDir              string
	JWTSecret                  string
	JWTTTL                     time.Duration
	DataEncryptionKey          string
	RetiredEncryptionKeys      []string
	Environment                string
	AppBaseURL                 string
	StorageDir                 string
	SeedAdminEmail             string
	SeedAdminPassword          string
	SeedSystemAdminEmail       string
	SeedSystemAdminPassword    string
	EmailFrom                  string
	EmailEnabled               bool
	EmailProvider              string
	SendGridAPIKey             string
	SMTPHost                   string
	SMTPPort                   int
	SMTPUser                   string
	SMTPPassword               string
	SMTPUseTLS                 bool
	RunMigrations              bool
	RunSeed                    bool
	MaxBodyBytes               int64
	RateLimitPerMinute         int
	RedisAddr                  string
	QueueBackend               string
	CheckInDedupWindow         time.Duration
	OfficeStart                string
	LateGrace                  time.Duration
	FullDayHours               float64
	HalfDayHours               float64
	LeaveAccrualInterval       time.Duration
	ComplianceReminderInterval time.Duration
	AnnouncementExpiryInterval time.Duration
	MetricsEnabled             bool
	RollbarToken               string
	LegacyMySQLDSN             string
}

// Load reads an optional dotenv file before resolving the environment.
func Load() Config {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("dotenv load failed", "path", envFile, "err", err)
		}
	}

	return Config{
		Addr:                       getEnv("APP_ADDR", ":8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		MigrationsDir:              getEnv("MIGRATIONS_DIR", "migrations"),
		JWTSecret:                  getEnv("JWT_SECRET", ""),
		JWTTTL:                     getEnvDuration("JWT_TTL", 8*time.Hour),
		DataEncryptionKey:          getEnv("DATA_ENCRYPTION_KEY", ""),
		RetiredEncryptionKeys:      getEnvList("DATA_ENCRYPTION_KEYS_RETIRED"),
		Environment:                getEnv("APP_ENV", "development"),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:8080"),
		StorageDir:                 getEnv("STORAGE_DIR", "storage"),
		SeedAdminEmail:             getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:          getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedSystemAdminEmail:       getEnv("SEED_SYSTEM_ADMIN_EMAIL", ""),
		SeedSystemAdminPassword:    getEnv("SEED_SYSTEM_ADMIN_PASSWORD", ""),
		EmailFrom:                  getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:               getEnvBool("EMAIL_ENABLED", false),
		EmailProvider:              strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp")),
		SendGridAPIKey:             getEnv("SENDGRID_API_KEY", ""),
		SMTPHost:                   getEnv("SMTP_HOST", ""),
		SMTPPort:                   getEnvInt("SMTP_PORT", 587),
		SMTPUser:                   getEnv("SMTP_USER", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:                 getEnvBool("SMTP_USE_TLS", true),
		RunMigrations:              getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                    getEnvBool("RUN_SEED", true),
		MaxBodyBytes:               int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:         getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RedisAddr:                  getEnv("REDIS_ADDR", ""),
		QueueBackend:               strings.ToLower(getEnv("QUEUE_BACKEND", "memory")),
		CheckInDedupWindow:         getEnvDuration("CHECKIN_DEDUP_WINDOW", 5*time.Minute),
		OfficeStart:                getEnv("OFFICE_START", "09:30"),
		LateGrace:                  getEnvDuration("LATE_GRACE", 15*time.Minute),
		FullDayHours:               getEnvFloat("FULL_DAY_HOURS", 8),
		HalfDayHours:               getEnvFloat("HALF_DAY_HOURS", 4),
		LeaveAccrualInterval:       getEnvDuration("LEAVE_ACCRUAL_INTERVAL", 24*time.Hour),
		ComplianceReminderInterval: getEnvDuration("COMPLIANCE_REMINDER_INTERVAL", 24*time.Hour),
		AnnouncementExpiryInterval: getEnvDuration("ANNOUNCEMENT_EXPIRY_INTERVAL", time.Hour),
		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
		RollbarToken:               getEnv("ROLLBAR_TOKEN", ""),
		LegacyMySQLDSN:             getEnv("LEGACY_MYSQL_DSN", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// OfficeStartClock returns the configured office start as hour and minute.
func (c Config) OfficeStartClock() (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(c.OfficeStart))
	if err != nil {
		return 0, 0, fmt.Errorf("OFFICE_START must be HH:MM: %w", err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled {
		switch c.EmailProvider {
		case "smtp":
			if c.SMTPHost == "" {
				return fmt.Errorf("SMTP_HOST must be set when EMAIL_PROVIDER is smtp")
			}
		case "sendgrid":
			if c.SendGridAPIKey == "" {
				return fmt.Errorf("SENDGRID_API_KEY must be set when EMAIL_PROVIDER is sendgrid")
			}
		default:
			return fmt.Errorf("EMAIL_PROVIDER must be smtp or sendgrid")
		}
	}
	if c.QueueBackend != "memory" && c.QueueBackend != "redis" {
		return fmt.Errorf("QUEUE_BACKEND must be memory or redis")
	}
	if c.QueueBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must be set when QUEUE_BACKEND is redis")
	}
	if _, _, err := c.OfficeStartClock(); err != nil {
		return err
	}
	if c.HalfDayHours <= 0 || c.FullDayHours <= c.HalfDayHours {
		return fmt.Errorf("FULL_DAY_HOURS must be greater than HALF_DAY_HOURS and both positive")
	}
	return nil
}
