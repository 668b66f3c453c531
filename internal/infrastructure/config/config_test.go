package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"DROPSHIP_APP_NAME":                  os.Getenv("DROPSHIP_APP_NAME"),
		"DROPSHIP_APP_ENV":                   os.Getenv("DROPSHIP_APP_ENV"),
		"DROPSHIP_APP_PORT":                  os.Getenv("DROPSHIP_APP_PORT"),
		"DROPSHIP_DATABASE_HOST":             os.Getenv("DROPSHIP_DATABASE_HOST"),
		"DROPSHIP_DATABASE_PORT":             os.Getenv("DROPSHIP_DATABASE_PORT"),
		"DROPSHIP_DATABASE_PASSWORD":         os.Getenv("DROPSHIP_DATABASE_PASSWORD"),
		"DROPSHIP_JWT_SECRET":                os.Getenv("DROPSHIP_JWT_SECRET"),
		"DROPSHIP_DISPATCH_BULK_CONCURRENCY": os.Getenv("DROPSHIP_DISPATCH_BULK_CONCURRENCY"),
		"DROPSHIP_DISPATCH_LOCK_TTL":         os.Getenv("DROPSHIP_DISPATCH_LOCK_TTL"),
		"DROPSHIP_WEBHOOK_BATCH_SIZE":        os.Getenv("DROPSHIP_WEBHOOK_BATCH_SIZE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "dropship-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 30*time.Second, cfg.Dispatch.PlacementTimeout)
		assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
		assert.Equal(t, 16, cfg.Dispatch.BulkConcurrency)
		assert.Equal(t, 50, cfg.Webhook.BatchSize)
		assert.Equal(t, 5*time.Minute, cfg.Webhook.StripeTolerance)
		assert.Equal(t, "*/5 * * * *", cfg.Scheduler.SweepSchedule)
	})

	t.Run("loads values from environment variables with DROPSHIP prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_NAME", "test-app")
		os.Setenv("DROPSHIP_APP_ENV", "testing")
		os.Setenv("DROPSHIP_DATABASE_HOST", "testdb.local")
		os.Setenv("DROPSHIP_DATABASE_PORT", "5433")
		os.Setenv("DROPSHIP_DISPATCH_BULK_CONCURRENCY", "4")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 4, cfg.Dispatch.BulkConcurrency)
	})

	t.Run("rejects zero webhook batch size", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_WEBHOOK_BATCH_SIZE", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook.batch_size")
	})

	t.Run("rejects lock TTL shorter than placement timeout", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_DISPATCH_LOCK_TTL", "10s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lock_ttl")
	})

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "user=testuser")
	assert.Contains(t, dsn, "dbname=testdb")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", cfg.Addr())
}
