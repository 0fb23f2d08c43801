package jwtauth

// Package jwtauth implements the session token issuer on HMAC-signed JWTs.

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	domainuser "github.com/greenbasket/storefront/internal/domain/user"
	"github.com/greenbasket/storefront/internal/ports"
)

// Ensure compile-time conformance to the port.
var _ ports.TokenIssuer = (*Issuer)(nil)

// Issuer signs and verifies session tokens with a server-held secret.
// Verification is a pure function of the token and the secret; it never
// touches storage, which is what makes the per-request gate check cheap.
type Issuer struct {
	secret       []byte
	ttl          time.Duration
	timeProvider func() time.Time
}

// Config groups constructor inputs for Issuer.
type Config struct {
	// Secret is the HMAC signing secret. Required.
	Secret string
	// TTL is the token lifetime; exp is always iat + TTL.
	TTL time.Duration
	// Now overrides the clock (useful for tests). Defaults to time.Now.
	Now func() time.Time
}

// ErrMissingSecret is returned when no signing secret is provided.
var ErrMissingSecret = errors.New("jwtauth: signing secret is required")

// NewIssuer constructs an Issuer. A missing secret is a configuration error
// surfaced at startup, not per request.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(cfg.Secret), ttl: ttl, timeProvider: now}, nil
}

// TTL returns the configured token lifetime. The session cookie MaxAge is
// derived from this so cookie and token always expire together.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// sessionClaims is the wire shape of the claim set. Registered claims carry
// iat/exp; private claims carry identity and role.
type sessionClaims struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Photo    string `json:"photo,omitempty"`
	jwt.RegisteredClaims
}

// Issue mints a signed token for the given user record. The role claim is
// copied verbatim from the record; it is trusted from the token until
// re-issuance, so a role change only takes effect on the next login.
func (i *Issuer) Issue(u *domainuser.User) (string, error) {
	if u == nil || u.UID == "" || u.Email == "" || u.Role == "" {
		return "", domainauth.ErrInvalidRecord
	}
	if _, err := domainauth.ParseRole(string(u.Role)); err != nil {
		return "", err
	}

	now := i.timeProvider()
	claims := sessionClaims{
		Role:     string(u.Role),
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.PhoneNumber,
		Photo:    u.Photo(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the embedded claims
// unmodified. Every failure mode (malformed input, bad signature, wrong
// algorithm, past expiry) collapses to ErrInvalidToken so callers cannot
// leak which check failed.
func (i *Issuer) Verify(tokenString string) (*domainauth.Claims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.timeProvider))
	if err != nil || !token.Valid {
		return nil, domainauth.ErrInvalidToken
	}

	role, err := domainauth.ParseRole(claims.Role)
	if err != nil {
		return nil, domainauth.ErrInvalidToken
	}

	out := &domainauth.Claims{
		UID:      claims.Subject,
		Email:    claims.Email,
		Role:     role,
		FullName: claims.FullName,
		Phone:    claims.Phone,
		Photo:    claims.Photo,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
