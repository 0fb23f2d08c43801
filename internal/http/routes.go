package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/greenbasket/storefront/internal/ports"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth   AuthServiceInterface
	Tokens ports.TokenIssuer
	// CookieName overrides the session cookie name; empty means SessionCookieName.
	CookieName   string
	CookieDomain string
	// CookieTTL is the session cookie lifetime, matched to the token TTL.
	CookieTTL time.Duration
	Logger    *slog.Logger
}

// NewRouter creates and configures the HTTP handler tree. The session gate
// wraps everything; API and auth endpoints sit on its public prefixes and do
// their own cookie work.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	renderer, err := NewTemplateRenderer(logger)
	if err != nil {
		return nil, fmt.Errorf("new template renderer: %w", err)
	}

	cookies := cookieWriter{Name: services.CookieName, Domain: services.CookieDomain, TTL: services.CookieTTL}
	authHandlers := &AuthHandlers{
		Svc:     services.Auth,
		Tokens:  services.Tokens,
		Cookies: cookies,
		Logger:  logger,
	}
	pages := &PageHandlers{Renderer: renderer}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /", pages.Home)
	mux.HandleFunc("GET /login", pages.Login)
	mux.HandleFunc("GET /signup", pages.Signup)
	mux.HandleFunc("GET /about", pages.About)
	mux.HandleFunc("GET /signup/role", pages.SignupRole)
	mux.HandleFunc("GET /consumer", pages.ConsumerHome)
	mux.HandleFunc("GET /consumer/dashboard", pages.ConsumerDashboard)
	mux.HandleFunc("GET /merchant", pages.MerchantHome)
	mux.HandleFunc("GET /merchant/dashboard", pages.MerchantDashboard)

	mux.HandleFunc("POST /api/signup", authHandlers.Signup)
	mux.HandleFunc("POST /api/signup/check-email", authHandlers.CheckEmail)
	mux.HandleFunc("POST /api/signup/role", authHandlers.SignupRole)
	mux.HandleFunc("POST /api/login", authHandlers.Login)
	mux.HandleFunc("POST /api/session", authHandlers.Session)
	mux.HandleFunc("POST /api/logout", authHandlers.Logout)
	mux.HandleFunc("POST /api/role", authHandlers.SetRole)
	mux.HandleFunc("GET /api/me", authHandlers.Me)
	mux.HandleFunc("GET /api/users/{uid}", authHandlers.GetUser)

	mux.HandleFunc("GET /auth/google/login", authHandlers.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandlers.GoogleCallback)
	mux.HandleFunc("GET /auth/verify", authHandlers.VerifyEmail)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = SessionGate(services.Tokens, services.CookieName)(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
