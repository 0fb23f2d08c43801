package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	"github.com/greenbasket/storefront/internal/ports"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// publicPaths are forwarded regardless of cookie presence or validity.
var publicPaths = map[string]struct{}{
	"/":            {},
	"/login":       {},
	"/signup":      {},
	"/signup/role": {},
	"/about":       {},
	"/healthz":     {},
}

// publicPrefixes cover assets and the API/auth surface, which enforce their
// own authentication where needed.
var publicPrefixes = []string{"/static/", "/auth/", "/api/"}

// rolePrefix pairs a path prefix with the role required to enter it.
type rolePrefix struct {
	prefix string
	role   domainauth.Role
}

var rolePrefixes = []rolePrefix{
	{prefix: "/merchant", role: domainauth.RoleMerchant},
	{prefix: "/consumer", role: domainauth.RoleConsumer},
}

func isPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// requiredRole returns the role a path demands, if any.
func requiredRole(path string) (domainauth.Role, bool) {
	for _, rp := range rolePrefixes {
		if path == rp.prefix || strings.HasPrefix(path, rp.prefix+"/") {
			return rp.role, true
		}
	}
	return "", false
}

// SessionGate authorizes every request from its own cookie, statelessly.
// Public paths pass through untouched. For all other paths the session token
// is verified; a missing, malformed, or expired token redirects to the login
// page with no distinction between the cases. A valid token entering the
// other role's path tree is redirected to its own role home. Verified claims
// ride the request context for downstream handlers.
func SessionGate(tokens ports.TokenIssuer, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = SessionCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			if role, ok := requiredRole(r.URL.Path); ok && claims.Role != role {
				http.Redirect(w, r, claims.Role.HomePath(), http.StatusSeeOther)
				return
			}

			ctx := SetClaimsInContext(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
