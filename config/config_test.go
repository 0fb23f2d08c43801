package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SessionConfig
		wantErr error
	}{
		{
			name:    "missing secret",
			cfg:     SessionConfig{TTL: 24 * time.Hour},
			wantErr: ErrMissingSessionSecret,
		},
		{
			name: "valid",
			cfg:  SessionConfig{Secret: "test-secret", TTL: 24 * time.Hour},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSessionConfig_Sanitize(t *testing.T) {
	cfg := SessionConfig{Secret: "s"}
	cfg.Sanitize()

	assert.Equal(t, 24*time.Hour, cfg.TTL)
	assert.Equal(t, "token", cfg.CookieName)

	// Explicit values survive sanitization
	cfg = SessionConfig{Secret: "s", TTL: time.Hour, CookieName: "sid"}
	cfg.Sanitize()
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, "sid", cfg.CookieName)
}

func TestLockoutConfig_Sanitize(t *testing.T) {
	cfg := LockoutConfig{MaxAttempts: -1, Window: 0}
	cfg.Sanitize()

	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Window)
}

func TestGoogleConfig_Enabled(t *testing.T) {
	assert.False(t, GoogleConfig{}.Enabled())
	assert.False(t, GoogleConfig{ClientID: "id"}.Enabled())
	assert.True(t, GoogleConfig{ClientID: "id", ClientSecret: "secret"}.Enabled())
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)

	t.Setenv("NODE_ENV", "production")
	cfg = AppConfig{}
	cfg.Sanitize()
	assert.False(t, cfg.IsDev)
}
