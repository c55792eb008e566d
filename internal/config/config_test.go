package config

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0 0 * * *", cfg.Scheduler.RecurringCron)
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.BudgetAlertCron)
	assert.Equal(t, 10, cfg.Scheduler.ThrottleLimit)
	assert.Equal(t, time.Minute, cfg.Scheduler.ThrottlePeriod)
	assert.Equal(t, 80, cfg.Budget.AlertThreshold)
	assert.Equal(t, "Finance App <onboarding@resend.dev>", cfg.Email.From)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
	assert.NotNil(t, cfg.JWT.PublicKey)
	assert.NotNil(t, cfg.JWT.PrivateKey)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RECURRING_CRON", "*/5 * * * *")
	t.Setenv("SCHEDULER_TIMEZONE", "Europe/Berlin")
	t.Setenv("RECURRING_THROTTLE_LIMIT", "3")
	t.Setenv("RECURRING_THROTTLE_PERIOD", "30s")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.RecurringCron)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 3, cfg.Scheduler.ThrottleLimit)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ThrottlePeriod)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowOrigins)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad recurring cron", "RECURRING_CRON", "every day"},
		{"bad budget cron", "BUDGET_ALERT_CRON", "61 * * * *"},
		{"bad timezone", "SCHEDULER_TIMEZONE", "Mars/Olympus"},
		{"zero throttle", "RECURRING_THROTTLE_LIMIT", "0"},
		{"threshold above 100", "BUDGET_ALERT_THRESHOLD", "120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionRequiresPublicKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_PUBLIC_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_PUBLIC_KEY")
}

func TestLoad_PublicKeyOnly(t *testing.T) {
	_, publicKey, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(publicKey)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_PUBLIC_KEY", encoded)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.JWT.PrivateKey)
	assert.True(t, publicKey.Equal(cfg.JWT.PublicKey))
}

func TestServerConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&ServerConfig{LogLevel: "DEBUG"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&ServerConfig{LogLevel: "warn"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&ServerConfig{}).SlogLevel())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}
