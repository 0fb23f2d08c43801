package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/storefront/internal/adapters/jwtauth"
	mocks "github.com/greenbasket/storefront/internal/mocks/auth"
	"github.com/greenbasket/storefront/internal/service"
)

type routerFixture struct {
	handler  http.Handler
	users    *mocks.MemoryUserStore
	throttle *mocks.MemoryLoginThrottle
	provider *mocks.MockIdentityProvider
	pending  *mocks.MemoryPendingSignupStore
	mailer   *mocks.RecordingMailer
	issuer   *jwtauth.Issuer
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newRouterFixtureWithCookie(t, "")
}

func newRouterFixtureWithCookie(t *testing.T, cookieName string) *routerFixture {
	t.Helper()

	issuer, err := jwtauth.NewIssuer(jwtauth.Config{Secret: "router-test-secret", TTL: 24 * time.Hour})
	require.NoError(t, err)

	f := &routerFixture{
		users:    mocks.NewMemoryUserStore(),
		throttle: mocks.NewMemoryLoginThrottle(5, 15*time.Minute),
		provider: mocks.NewMockIdentityProvider(),
		pending:  mocks.NewMemoryPendingSignupStore(),
		mailer:   mocks.NewRecordingMailer(),
		issuer:   issuer,
	}

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Users:    f.users,
		Creds:    f.users,
		Verifier: f.users,
		Verify:   f.users,
		Hasher:   mocks.PlainHasher{},
		Tokens:   issuer,
		Throttle: f.throttle,
		Provider: f.provider,
		Pending:  f.pending,
		Mailer:   f.mailer,
		BaseURL:  "http://localhost:8080",
	})

	handler, err := NewRouter(RouterServices{
		Auth:       authSvc,
		Tokens:     issuer,
		CookieName: cookieName,
		CookieTTL:  issuer.TTL(),
	})
	require.NoError(t, err)
	f.handler = handler
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signupAndVerify runs the email signup flow and follows the verification
// link from the recorded mail.
func (f *routerFixture) signupAndVerify(t *testing.T, body string) map[string]any {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/signup", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)

	sent := f.mailer.Sent()
	require.NotEmpty(t, sent)
	verifyURL, err := url.Parse(sent[len(sent)-1].VerifyURL)
	require.NoError(t, err)

	verifyRec := f.do(t, http.MethodGet, "/auth/verify?token="+verifyURL.Query().Get("token"), "")
	require.Equal(t, http.StatusFound, verifyRec.Code)
	return resp["user"].(map[string]any)
}

const merchantSignup = `{"fullName":"Ada Merchant","email":"a@x.com","phone":"5550001","password":"Abcd123!","role":"merchant"}`

func TestSignupEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/signup", merchantSignup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)
	user := resp["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "merchant", user["role"])

	// no session cookie until the email is verified and login happens
	assert.Nil(t, cookieByName(t, rec, SessionCookieName))
}

func TestSignupEndpoint_RejectsUnknownFields(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/signup", `{"email":"a@x.com","password":"Abcd123!","role":"merchant","fullName":"A","isAdmin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeBody(t, rec)["error"])
}

func TestSignupEndpoint_ValidationAndConflict(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/signup", `{"fullName":"A","email":"a@x.com","phone":"","password":"weak","role":"merchant"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decodeBody(t, rec)["field"])

	rec = f.do(t, http.MethodPost, "/api/signup", merchantSignup)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/signup", merchantSignup)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// Merchant signup end to end: record carries the role, the issued token
// carries the role claim, and path admission follows it.
func TestSignupLoginAndRoleGate(t *testing.T) {
	f := newRouterFixture(t)

	f.signupAndVerify(t, merchantSignup)

	rec := f.do(t, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"Abcd123!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := cookieByName(t, rec, SessionCookieName)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, "/", session.Path)
	assert.Equal(t, int((24 * time.Hour).Seconds()), session.MaxAge)

	claims, err := f.issuer.Verify(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "merchant", string(claims.Role))

	// own tree admitted
	pageRec := f.do(t, http.MethodGet, "/merchant/dashboard", "", session)
	assert.Equal(t, http.StatusOK, pageRec.Code)

	// other tree redirected to own home
	crossRec := f.do(t, http.MethodGet, "/consumer/dashboard", "", session)
	assert.Equal(t, http.StatusSeeOther, crossRec.Code)
	assert.Equal(t, "/merchant", crossRec.Header().Get("Location"))
}

func TestLoginEndpoint_UnverifiedEmail(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/signup", merchantSignup)
	require.Equal(t, http.StatusCreated, rec.Code)

	loginRec := f.do(t, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"Abcd123!"}`)
	assert.Equal(t, http.StatusForbidden, loginRec.Code)
	assert.Nil(t, cookieByName(t, loginRec, SessionCookieName))
	// signup mail plus the re-sent one
	assert.Len(t, f.mailer.Sent(), 2)
}

func TestLoginEndpoint_Lockout(t *testing.T) {
	f := newRouterFixture(t)
	f.signupAndVerify(t, merchantSignup)

	for range 5 {
		rec := f.do(t, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"Wrong999!"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// 6th attempt rejected before the credential check, correct password or not
	rec := f.do(t, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"Abcd123!"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "Try again in")
}

// A configured cookie name must be honored by the login handler, the gate,
// and the identity endpoint alike; the default name means nothing then.
func TestConfiguredCookieNameIsUsedEverywhere(t *testing.T) {
	const name = "storefront_session"
	f := newRouterFixtureWithCookie(t, name)
	f.signupAndVerify(t, merchantSignup)

	login := f.do(t, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"Abcd123!"}`)
	require.Equal(t, http.StatusOK, login.Code)
	session := cookieByName(t, login, name)
	require.NotNil(t, session)
	assert.Nil(t, cookieByName(t, login, SessionCookieName))

	admitted := f.do(t, http.MethodGet, "/merchant/dashboard", "", session)
	assert.Equal(t, http.StatusOK, admitted.Code)

	// the same token under the default name is invisible to the gate
	misnamed := f.do(t, http.MethodGet, "/merchant/dashboard", "",
		&http.Cookie{Name: SessionCookieName, Value: session.Value})
	assert.Equal(t, http.StatusSeeOther, misnamed.Code)
	assert.Equal(t, "/login", misnamed.Header().Get("Location"))

	me := f.do(t, http.MethodGet, "/api/me", "", session)
	assert.Equal(t, http.StatusOK, me.Code)

	logout := f.do(t, http.MethodPost, "/api/logout", "", session)
	require.Equal(t, http.StatusOK, logout.Code)
	var cleared *http.Cookie
	for _, c := range logout.Result().Cookies() {
		if c.Name == name {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLoginEndpoint_RedirectTarget(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		redirect string
	}{
		{name: "default is role home", path: "/api/login", redirect: "/merchant"},
		{name: "relative next honored", path: "/api/login?next=/merchant/dashboard", redirect: "/merchant/dashboard"},
		{name: "absolute next rejected", path: "/api/login?next=https://evil.example.com/", redirect: "/merchant"},
		{name: "scheme-relative next rejected", path: "/api/login?next=//evil.example.com/", redirect: "/merchant"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(t)
			f.signupAndVerify(t, merchantSignup)

			rec := f.do(t, http.MethodPost, tc.path, `{"email":"a@x.com","password":"Abcd123!"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tc.redirect, decodeBody(t, rec)["redirect"])
		})
	}
}

func TestGetUserEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	user := f.signupAndVerify(t, merchantSignup)

	rec := f.do(t, http.MethodGet, "/api/users/"+user["uid"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "a@x.com", resp["email"])
	assert.Equal(t, "merchant", resp["role"])

	missing := f.do(t, http.MethodGet, "/api/users/nope", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestSessionEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	user := f.signupAndVerify(t, merchantSignup)

	rec := f.do(t, http.MethodPost, "/api/session", `{"uid":"`+user["uid"].(string)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookieByName(t, rec, SessionCookieName))

	missing := f.do(t, http.MethodPost, "/api/session", `{"uid":"nope"}`)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "/login", resp["redirect"])

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestRoleEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	user := f.signupAndVerify(t, merchantSignup)
	uid := user["uid"].(string)

	rec := f.do(t, http.MethodPost, "/api/role", `{"uid":"`+uid+`","role":"consumer"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// the fresh cookie carries the new role
	session := cookieByName(t, rec, SessionCookieName)
	require.NotNil(t, session)
	claims, err := f.issuer.Verify(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "consumer", string(claims.Role))

	bad := f.do(t, http.MethodPost, "/api/role", `{"uid":"`+uid+`","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestCheckEmailEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	f.signupAndVerify(t, merchantSignup)

	rec := f.do(t, http.MethodPost, "/api/signup/check-email", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["exists"])

	rec = f.do(t, http.MethodPost, "/api/signup/check-email", `{"email":"nobody@x.com"}`)
	resp = decodeBody(t, rec)
	assert.Equal(t, false, resp["exists"])
	assert.NotContains(t, resp, "user")
}

func TestMeEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	f.signupAndVerify(t, merchantSignup)

	login := f.do(t, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"Abcd123!"}`)
	session := cookieByName(t, login, SessionCookieName)
	require.NotNil(t, session)

	rec := f.do(t, http.MethodGet, "/api/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "a@x.com", resp["email"])
	assert.Equal(t, "merchant", resp["role"])

	missing := f.do(t, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	invalid := f.do(t, http.MethodGet, "/api/me", "", &http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusForbidden, invalid.Code)
}

// Federated first-timer: no token exists until role selection completes, and
// protected paths redirect to login in the meantime.
func TestGoogleFlow_FirstTimeRoleSelection(t *testing.T) {
	f := newRouterFixture(t)

	begin := f.do(t, http.MethodGet, "/auth/google/login", "")
	require.Equal(t, http.StatusFound, begin.Code)
	assert.True(t, strings.HasPrefix(begin.Header().Get("Location"), "https://mock-idp/auth"))
	stateCookie := cookieByName(t, begin, "oauth_state")
	nonceCookie := cookieByName(t, begin, "oauth_nonce")
	require.NotNil(t, stateCookie)
	require.NotNil(t, nonceCookie)

	callback := f.do(t, http.MethodGet,
		"/auth/google/callback?code=abc&state="+stateCookie.Value, "",
		stateCookie, nonceCookie)
	require.Equal(t, http.StatusFound, callback.Code)
	assert.Equal(t, "/signup/role", callback.Header().Get("Location"))

	pending := cookieByName(t, callback, pendingCookieName)
	require.NotNil(t, pending)
	assert.Nil(t, cookieByName(t, callback, SessionCookieName))

	// between callback and role selection, protected paths are closed
	blocked := f.do(t, http.MethodGet, "/consumer", "", pending)
	assert.Equal(t, http.StatusSeeOther, blocked.Code)
	assert.Equal(t, "/login", blocked.Header().Get("Location"))

	// role selection mints the first token
	choose := f.do(t, http.MethodPost, "/api/signup/role", `{"role":"consumer"}`, pending)
	require.Equal(t, http.StatusOK, choose.Code, choose.Body.String())
	session := cookieByName(t, choose, SessionCookieName)
	require.NotNil(t, session)

	claims, err := f.issuer.Verify(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "consumer", string(claims.Role))

	admitted := f.do(t, http.MethodGet, "/consumer", "", session)
	assert.Equal(t, http.StatusOK, admitted.Code)
}

func TestGoogleFlow_ReturningUserSkipsRoleSelection(t *testing.T) {
	f := newRouterFixture(t)

	// first pass creates the record
	begin := f.do(t, http.MethodGet, "/auth/google/login", "")
	stateCookie := cookieByName(t, begin, "oauth_state")
	nonceCookie := cookieByName(t, begin, "oauth_nonce")
	callback := f.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+stateCookie.Value, "", stateCookie, nonceCookie)
	pending := cookieByName(t, callback, pendingCookieName)
	choose := f.do(t, http.MethodPost, "/api/signup/role", `{"role":"merchant"}`, pending)
	require.Equal(t, http.StatusOK, choose.Code)

	// second pass goes straight to the role home
	begin2 := f.do(t, http.MethodGet, "/auth/google/login", "")
	stateCookie2 := cookieByName(t, begin2, "oauth_state")
	nonceCookie2 := cookieByName(t, begin2, "oauth_nonce")
	callback2 := f.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+stateCookie2.Value, "", stateCookie2, nonceCookie2)
	require.Equal(t, http.StatusFound, callback2.Code)
	assert.Equal(t, "/merchant", callback2.Header().Get("Location"))
	require.NotNil(t, cookieByName(t, callback2, SessionCookieName))
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	f := newRouterFixture(t)

	begin := f.do(t, http.MethodGet, "/auth/google/login", "")
	stateCookie := cookieByName(t, begin, "oauth_state")
	nonceCookie := cookieByName(t, begin, "oauth_nonce")

	rec := f.do(t, http.MethodGet, "/auth/google/callback?code=abc&state=tampered", "", stateCookie, nonceCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEndpoint_BadToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/verify?token=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPages_RenderPublicly(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/", "/login", "/signup", "/about", "/signup/role"} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	}

	notFound := f.do(t, http.MethodGet, "/no-such-page", "")
	assert.Equal(t, http.StatusSeeOther, notFound.Code) // unauthenticated, gated first
}

func TestSecureCookieBehindProxy(t *testing.T) {
	f := newRouterFixture(t)
	f.signupAndVerify(t, merchantSignup)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"a@x.com","password":"Abcd123!"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	session := cookieByName(t, rec, SessionCookieName)
	require.NotNil(t, session)
	assert.True(t, session.Secure)
}
