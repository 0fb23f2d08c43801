package config

import (
	"errors"
	"time"
)

// SessionConfig controls session-token issuance and the cookie that carries it.
//
// The token lifetime and the cookie MaxAge are always the same value: a cookie
// that outlives its token buys nothing, and a shorter one silently logs users
// out while their token is still valid.
type SessionConfig struct {
	// Secret is the HMAC signing secret for session tokens. Required.
	Secret string `env:"SECRET"`

	// TTL is the session token lifetime. The cookie expires with the token.
	TTL time.Duration `env:"TTL" envDefault:"24h"`

	// CookieName is the name of the session cookie.
	CookieName string `env:"COOKIE_NAME" envDefault:"token"`
}

// ErrMissingSessionSecret is returned when no signing secret is configured.
// This is fatal at startup: tokens can neither be issued nor verified without it.
var ErrMissingSessionSecret = errors.New("session signing secret is required (set SESSION_SECRET)")

// Validate checks that the session configuration is usable.
func (s *SessionConfig) Validate() error {
	if s.Secret == "" {
		return ErrMissingSessionSecret
	}
	return nil
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.TTL <= 0 {
		s.TTL = 24 * time.Hour
	}
	if s.CookieName == "" {
		s.CookieName = "token"
	}
}

// GoogleConfig contains OIDC configuration for federated Google login.
// Federated login is disabled when ClientID is empty.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/google/callback"`
	Scope        string `env:"SCOPE"        envDefault:"openid profile email"`
	IssuerURL    string `env:"ISSUER_URL"   envDefault:"https://accounts.google.com"`
}

// Enabled reports whether federated login is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// LockoutConfig controls the failed-login throttle.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts permitted per identity
	// within the window before logins are rejected outright.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"5"`

	// Window is the lockout window. The failure counter expires with it.
	Window time.Duration `env:"WINDOW" envDefault:"15m"`
}

// Sanitize applies guardrails to lockout configuration values.
func (l *LockoutConfig) Sanitize() {
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = 5
	}
	if l.Window <= 0 {
		l.Window = 15 * time.Minute
	}
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Session SessionConfig `envPrefix:"SESSION_"`
	Google  GoogleConfig  `envPrefix:"GOOGLE_"`
	Lockout LockoutConfig `envPrefix:"LOCKOUT_"`
}
