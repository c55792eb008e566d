package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	Budget    BudgetConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Environment      string
	LogLevel         string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	LogLevel        string
}

// JWTConfig verifies the session tokens issued by the auth provider. The
// private key is only present outside production, for minting local tokens.
type JWTConfig struct {
	PrivateKey    *rsa.PrivateKey
	PublicKey     *rsa.PublicKey
	Issuer        string
	TokenDuration time.Duration
}

type SchedulerConfig struct {
	Enabled          bool
	RecurringCron    string
	BudgetAlertCron  string
	Timezone         string
	Workers          int
	PollInterval     time.Duration
	ThrottleLimit    int
	ThrottlePeriod   time.Duration
	JobMaxRetries    int
	JobRetention     time.Duration
	JobStaleAfter    time.Duration
	AuditRetention   time.Duration
	BudgetCheckLimit int
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
	AppURL       string
}

// RateLimitConfig is the per-user token bucket in front of transaction creation.
type RateLimitConfig struct {
	TransactionCreateLimit  int
	TransactionCreatePeriod time.Duration
	TransactionCreateBurst  int
}

type BudgetConfig struct {
	AlertThreshold int
}

// Load reads configuration from the environment, after merging a .env file
// when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "localhost"),
			Environment:     getEnv("APP_ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "finance_user"),
			Password:        getEnv("DB_PASSWORD", "finance_password"),
			Name:            getEnv("DB_NAME", "finance_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getIntEnv("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			AutoMigrate:     getBoolEnv("AUTO_MIGRATE", true),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Issuer:        getEnv("JWT_ISSUER", "finance-tracker"),
			TokenDuration: getDurationEnv("JWT_TOKEN_DURATION", time.Hour),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getBoolEnv("SCHEDULER_ENABLED", true),
			RecurringCron:    getEnv("RECURRING_CRON", "0 0 * * *"),
			BudgetAlertCron:  getEnv("BUDGET_ALERT_CRON", "0 0 * * *"),
			Timezone:         getEnv("SCHEDULER_TIMEZONE", "UTC"),
			Workers:          getIntEnv("RECURRING_WORKERS", 4),
			PollInterval:     getDurationEnv("RECURRING_POLL_INTERVAL", time.Second),
			ThrottleLimit:    getIntEnv("RECURRING_THROTTLE_LIMIT", 10),
			ThrottlePeriod:   getDurationEnv("RECURRING_THROTTLE_PERIOD", time.Minute),
			JobMaxRetries:    getIntEnv("RECURRING_JOB_MAX_RETRIES", 3),
			JobRetention:     getDurationEnv("RECURRING_JOB_RETENTION", 7*24*time.Hour),
			JobStaleAfter:    getDurationEnv("RECURRING_JOB_STALE_AFTER", 10*time.Minute),
			AuditRetention:   getDurationEnv("AUDIT_LOG_RETENTION", 90*24*time.Hour),
			BudgetCheckLimit: getIntEnv("BUDGET_CHECK_CONCURRENCY", 4),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "Finance App <onboarding@resend.dev>"),
			AppURL:       getEnv("APP_URL", "http://localhost:3000"),
		},
		RateLimit: RateLimitConfig{
			TransactionCreateLimit:  getIntEnv("TRANSACTION_RATE_LIMIT", 10),
			TransactionCreatePeriod: getDurationEnv("TRANSACTION_RATE_PERIOD", time.Minute),
			TransactionCreateBurst:  getIntEnv("TRANSACTION_RATE_BURST", 10),
		},
		Budget: BudgetConfig{
			AlertThreshold: getIntEnv("BUDGET_ALERT_THRESHOLD", 80),
		},
	}

	config.Server.CORSAllowOrigins = config.loadCORSAllowOrigins()

	var err error
	config.JWT.PrivateKey, config.JWT.PublicKey, err = config.loadJWTKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load RSA keys: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the scheduler or limiter could not run with.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.Scheduler.RecurringCron); err != nil {
		return fmt.Errorf("invalid RECURRING_CRON %q: %w", c.Scheduler.RecurringCron, err)
	}

	if _, err := cron.ParseStandard(c.Scheduler.BudgetAlertCron); err != nil {
		return fmt.Errorf("invalid BUDGET_ALERT_CRON %q: %w", c.Scheduler.BudgetAlertCron, err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}

	if c.Scheduler.Workers < 1 {
		return errors.New("RECURRING_WORKERS must be at least 1")
	}

	if c.Scheduler.ThrottleLimit < 1 || c.Scheduler.ThrottlePeriod <= 0 {
		return errors.New("recurring throttle must allow at least one job per period")
	}

	if c.RateLimit.TransactionCreateLimit < 1 || c.RateLimit.TransactionCreatePeriod <= 0 {
		return errors.New("transaction rate limit must allow at least one request per period")
	}

	if c.Budget.AlertThreshold < 1 || c.Budget.AlertThreshold > 100 {
		return errors.New("BUDGET_ALERT_THRESHOLD must be between 1 and 100")
	}

	return nil
}

// Location returns the scheduler time zone. Validate has already checked it.
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// SlogLevel maps LOG_LEVEL onto slog levels.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// loadJWTKeys prefers base64 PEM keys from JWT_PUBLIC_KEY (and optionally
// JWT_PRIVATE_KEY). Production requires the public key; elsewhere a fresh
// keypair is generated so local tokens can be minted.
func (c *Config) loadJWTKeys() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKeyB64 := os.Getenv("JWT_PRIVATE_KEY")
	publicKeyB64 := os.Getenv("JWT_PUBLIC_KEY")

	if publicKeyB64 != "" {
		publicKey, err := decodePEMEnv("JWT_PUBLIC_KEY", publicKeyB64, loadRSAPublicKey)
		if err != nil {
			return nil, nil, err
		}

		if privateKeyB64 == "" {
			return nil, publicKey, nil
		}

		privateKey, err := decodePEMEnv("JWT_PRIVATE_KEY", privateKeyB64, loadRSAPrivateKey)
		if err != nil {
			return nil, nil, err
		}
		return privateKey, publicKey, nil
	}

	if c.IsProduction() {
		return nil, nil, errors.New("JWT_PUBLIC_KEY environment variable must be set in production environments")
	}

	return GenerateRSAKeyPair()
}

func decodePEMEnv[K any](name, value string, parse func([]byte) (K, error)) (K, error) {
	var zero K

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	key, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return key, nil
}

func (c *Config) loadCORSAllowOrigins() []string {
	corsOrigins := os.Getenv("CORS_ALLOW_ORIGINS")
	if corsOrigins == "" {
		return []string{"*"}
	}

	origins := strings.Split(corsOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}

// GenerateRSAKeyPair generates a new RSA key pair
func GenerateRSAKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return privateKey, &privateKey.PublicKey, nil
}

func loadRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}

	if privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return privateKey, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	privateKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return privateKey, nil
}

func loadRSAPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPublicKey, nil
}
