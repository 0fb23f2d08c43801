package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/storefront/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Auth.Session.TTL)
	assert.Equal(t, "token", cfg.Auth.Session.CookieName)
	assert.Equal(t, 5, cfg.Auth.Lockout.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.Lockout.Window)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.Auth.Google.Enabled())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingSessionSecret)
}

func TestNewServices_WithoutProvider(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Auth.Session.Secret = "test-secret"
	cfg.Sanitize()

	// The client never connects; constructors only hold the handle.
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	services, err := NewServices(context.Background(), &ServiceDeps{
		Config:      cfg,
		RedisClient: client,
	})
	require.NoError(t, err)
	assert.NotNil(t, services.Auth)
	assert.NotNil(t, services.Tokens)
}

func TestNewServices_EmptySecret(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Sanitize()

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewServices(context.Background(), &ServiceDeps{
		Config:      cfg,
		RedisClient: client,
	})
	require.Error(t, err)
}
