package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainuser "github.com/greenbasket/storefront/internal/domain/user"
	"github.com/greenbasket/storefront/internal/ports"
	"github.com/greenbasket/storefront/internal/service"
)

// AuthServiceInterface defines the auth service operations the handlers use.
type AuthServiceInterface interface {
	Signup(ctx context.Context, in service.SignupInput) (*domainuser.User, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	IssueSession(ctx context.Context, uid string) (*service.Session, error)
	GetUser(ctx context.Context, uid string) (*domainuser.User, error)
	CheckEmail(ctx context.Context, email string) (*domainuser.User, bool, error)
	AssignRole(ctx context.Context, uid, role string) (*service.Session, error)
	BeginGoogleLogin(ctx context.Context) (ports.BeginAuthResult, error)
	CompleteGoogleLogin(ctx context.Context, in ports.ExchangeInput) (*service.GoogleLoginResult, error)
	CompleteRoleSelection(ctx context.Context, pendingID, role string) (*service.Session, error)
	VerifyEmail(ctx context.Context, token string) (*domainuser.User, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc     AuthServiceInterface
	Tokens  ports.TokenIssuer
	Cookies cookieWriter
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Signup handles POST /api/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	u, err := h.Svc.Signup(r.Context(), service.SignupInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Account created. Check your inbox to verify your email.",
		"user":    u,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/login. On success the session token is set as the
// cookie and the record returned.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	// An optional next parameter carries the page the user was heading for.
	// Anything that is not a plain relative path falls back to the role home.
	redirect := sess.User.Role.HomePath()
	if next := r.URL.Query().Get("next"); next != "" {
		if safe := safeRedirectPath(next); safe != "/" {
			redirect = safe
		}
	}

	h.Cookies.SetSession(w, r, sess.Token)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     sess.User,
		"redirect": redirect,
	})
}

type sessionRequest struct {
	UID string `json:"uid"`
}

// Session handles POST /api/session: issue a token for an existing record.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Svc.IssueSession(r.Context(), req.UID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.Cookies.SetSession(w, r, sess.Token)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    sess.User,
	})
}

// Logout handles POST /api/logout. The token is stateless, so teardown is
// purely clearing the cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.Clear(w, r, h.Cookies.sessionName())
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Signed out.",
		"redirect": "/login",
	})
}

type roleRequest struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

// SetRole handles POST /api/role. The record is rewritten and a fresh token
// issued so the new role takes effect immediately.
func (h *AuthHandlers) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Svc.AssignRole(r.Context(), req.UID, req.Role)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.Cookies.SetSession(w, r, sess.Token)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    sess.User,
	})
}

type checkEmailRequest struct {
	Email string `json:"email"`
}

// CheckEmail handles POST /api/signup/check-email.
func (h *AuthHandlers) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req checkEmailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	u, exists, err := h.Svc.CheckEmail(r.Context(), req.Email)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	resp := map[string]any{"exists": exists}
	if exists {
		resp["user"] = u
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetUser handles GET /api/users/{uid}: look up a record by uid.
func (h *AuthHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Svc.GetUser(r.Context(), r.PathValue("uid"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Me handles GET /api/me: report the identity behind the cookie.
// 401 when the cookie is absent, 403 when it does not verify.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.Cookies.sessionName())
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "unauthenticated_error",
			Err:     errors.New("authentication required"),
		})
		return
	}

	claims, err := h.Tokens.Verify(cookie.Value)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "forbidden_error",
			Err:     errors.New("session token is invalid"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"uid":      claims.UID,
		"email":    claims.Email,
		"role":     claims.Role,
		"fullName": claims.FullName,
		"phone":    claims.Phone,
		"photo":    claims.Photo,
		"iat":      claims.IssuedAt,
		"exp":      claims.ExpiresAt,
	})
}

// GoogleLogin handles GET /auth/google/login: store state and nonce in
// short-lived cookies and redirect to the provider.
func (h *AuthHandlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.BeginGoogleLogin(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setOAuthCookies(w, r, res)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback. A returning identity gets
// a session cookie and lands on its role home; a first-time identity gets a
// pending cookie and is sent to role selection with no session token.
func (h *AuthHandlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation_error",
			Err:     errors.New("code and state parameters are required"),
		})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation_error",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation_error",
			Err:     errors.New("missing nonce"),
		})
		return
	}

	res, err := h.Svc.CompleteGoogleLogin(r.Context(), ports.ExchangeInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.Cookies.Clear(w, r, "oauth_state")
	h.Cookies.Clear(w, r, "oauth_nonce")

	if res.RoleSelectionNeeded() {
		h.Cookies.SetPending(w, r, res.PendingID)
		http.Redirect(w, r, "/signup/role", http.StatusFound)
		return
	}

	h.Cookies.SetSession(w, r, res.Session.Token)
	http.Redirect(w, r, res.Session.User.Role.HomePath(), http.StatusFound)
}

type signupRoleRequest struct {
	Role string `json:"role"`
}

// SignupRole handles POST /api/signup/role: bind the chosen role to the
// pending federated identity carried by the pending cookie.
func (h *AuthHandlers) SignupRole(w http.ResponseWriter, r *http.Request) {
	var req signupRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	pendingID := ""
	if cookie, err := r.Cookie(pendingCookieName); err == nil {
		pendingID = cookie.Value
	}

	sess, err := h.Svc.CompleteRoleSelection(r.Context(), pendingID, req.Role)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.Cookies.Clear(w, r, pendingCookieName)
	h.Cookies.SetSession(w, r, sess.Token)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     sess.User,
		"redirect": sess.User.Role.HomePath(),
	})
}

// VerifyEmail handles GET /auth/verify?token=. Browser flow: success lands
// on the login page.
func (h *AuthHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	u, err := h.Svc.VerifyEmail(r.Context(), token)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.logger().InfoContext(r.Context(), "email verified", "uid", u.UID)
	http.Redirect(w, r, "/login?verified=1", http.StatusFound)
}

// setOAuthCookies stores the federated state and nonce in short-lived cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, res ports.BeginAuthResult) {
	secure := isSecure(r)
	for name, value := range map[string]string{
		"oauth_state": res.State,
		"oauth_nonce": res.Nonce,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.Cookies.Domain,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600,
		})
	}
}
