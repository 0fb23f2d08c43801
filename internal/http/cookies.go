package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "token"
	// pendingCookieName carries the pending-signup id between the federated
	// callback and the role-selection step.
	pendingCookieName = "pending_signup"
	// pendingCookieMaxAge bounds the role-selection window.
	pendingCookieMaxAge = 600 // 10 minutes
)

// cookieWriter applies consistent attributes to every cookie the app sets.
type cookieWriter struct {
	// Name is the session cookie name; empty falls back to SessionCookieName.
	Name   string
	Domain string
	// TTL is the session cookie lifetime, matched to the token lifetime.
	TTL time.Duration
}

func (c cookieWriter) sessionName() string {
	if c.Name != "" {
		return c.Name
	}
	return SessionCookieName
}

// isSecure reports whether the request arrived over TLS, directly or via a
// terminating proxy.
func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SetSession stores the session token: httpOnly, SameSite=Lax, Path=/,
// Secure when the request came over TLS.
func (c cookieWriter) SetSession(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.sessionName(),
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.TTL.Seconds()),
	})
}

// SetPending stores the pending-signup id for the role-selection step.
func (c cookieWriter) SetPending(w http.ResponseWriter, r *http.Request, pendingID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     pendingCookieName,
		Value:    pendingID,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   pendingCookieMaxAge,
	})
}

// Clear expires a cookie immediately. It mirrors the attributes used when
// setting cookies to maximize compatibility across browsers during deletion.
func (c cookieWriter) Clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirectPath allows only relative paths (no scheme/host). Anything
// else falls back to "/".
func safeRedirectPath(p string) string {
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return u.String()
}
