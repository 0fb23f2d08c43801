package googleauth

// Package googleauth implements the IdentityProvider port against Google's
// OIDC endpoints. First-time identities arrive without a role; role binding
// happens later, in the service layer's role-selection step.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	"github.com/greenbasket/storefront/internal/ports"
)

var _ ports.IdentityProvider = (*Provider)(nil)

// Provider completes the OIDC code flow against Google and maps the ID token
// to a provider-neutral identity.
type Provider struct {
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the Google provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	IssuerURL    string       // defaults to Google's issuer
	HTTPClient   *http.Client // optional, defaults to a 30s-timeout client
}

const defaultIssuer = "https://accounts.google.com"

// NewProvider creates a Google identity provider. Discovery happens once at
// construction time.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = defaultIssuer
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Begin returns the provider auth URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context) (ports.BeginAuthResult, error) {
	state, err := randomToken(32)
	if err != nil {
		return ports.BeginAuthResult{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return ports.BeginAuthResult{}, fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return ports.BeginAuthResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// googleClaims is the subset of Google's ID token claims we consume.
type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Nonce         string `json:"nonce"`
}

// Exchange completes the code flow, verifying the ID token and nonce, and
// returns the authenticated identity.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	if in.Nonce == "" {
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domainauth.Identity{}, errors.New("token response is missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims googleClaims
	if claimsErr := idToken.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if claims.Nonce != in.Nonce {
		return domainauth.Identity{}, errors.New("invalid nonce")
	}
	if claims.Sub == "" {
		return domainauth.Identity{}, errors.New("id_token is missing subject")
	}

	return domainauth.Identity{
		UID:           claims.Sub,
		Email:         claims.Email,
		FullName:      claims.Name,
		Photo:         claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
