package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zipfood/reset-api/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Server.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "zipfood", cfg.Database.Name)
	assert.Equal(t, 5, cfg.SMS.MaxPerWindow)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsShortSecretInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "+15005550006")

	_, err := config.Load()
	assert.Error(t, err, "16-char secret is too short for production")
}

func TestLoad_ProductionRequiresTwilioCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-production-grade-secret-with-32-chars!")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("ENV", "production")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "zipfood", SSLMode: "disable",
	}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=zipfood sslmode=disable", cfg.DSN())
}
