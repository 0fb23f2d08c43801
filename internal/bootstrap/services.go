package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenbasket/storefront/config"
	"github.com/greenbasket/storefront/internal/adapters/googleauth"
	"github.com/greenbasket/storefront/internal/adapters/jwtauth"
	"github.com/greenbasket/storefront/internal/adapters/logmail"
	"github.com/greenbasket/storefront/internal/adapters/password"
	"github.com/greenbasket/storefront/internal/adapters/redisstore"
	"github.com/greenbasket/storefront/internal/data"
	"github.com/greenbasket/storefront/internal/ports"
	"github.com/greenbasket/storefront/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth   *service.AuthService
	Tokens ports.TokenIssuer
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires adapters into the auth service. Federated login is only
// wired when the provider credentials are configured.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	issuer, err := jwtauth.NewIssuer(jwtauth.Config{
		Secret: cfg.Auth.Session.Secret,
		TTL:    cfg.Auth.Session.TTL,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("new token issuer: %w", err)
	}

	hasher := password.NewBcryptHasher(bcrypt.DefaultCost)
	users := data.NewUserRepo(deps.DB, hasher)

	throttle := redisstore.NewLoginThrottle(deps.RedisClient, redisstore.ThrottleConfig{
		MaxAttempts: cfg.Auth.Lockout.MaxAttempts,
		Window:      cfg.Auth.Lockout.Window,
	})
	pending := redisstore.NewPendingSignupStore(deps.RedisClient)

	var provider ports.IdentityProvider
	if cfg.Auth.Google.Enabled() {
		p, provErr := googleauth.NewProvider(ctx, googleauth.ProviderConfig{
			ClientID:     cfg.Auth.Google.ClientID,
			ClientSecret: cfg.Auth.Google.ClientSecret,
			RedirectURL:  cfg.Auth.Google.RedirectURL,
			Scope:        cfg.Auth.Google.Scope,
			IssuerURL:    cfg.Auth.Google.IssuerURL,
		})
		if provErr != nil {
			return ServiceContainer{}, fmt.Errorf("new google provider: %w", provErr)
		}
		provider = p
		logger.InfoContext(ctx, "federated login enabled", "issuer", cfg.Auth.Google.IssuerURL)
	} else {
		logger.InfoContext(ctx, "federated login disabled", "reason", "no client credentials configured")
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Users:    users,
		Creds:    users,
		Verifier: users,
		Verify:   users,
		Hasher:   hasher,
		Tokens:   issuer,
		Throttle: throttle,
		Provider: provider,
		Pending:  pending,
		Mailer:   logmail.NewMailer(logger),
		BaseURL:  cfg.HTTP.BaseURL,
		Logger:   logger,
	})

	return ServiceContainer{Auth: auth, Tokens: issuer}, nil
}
