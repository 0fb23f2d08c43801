package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	domainuser "github.com/greenbasket/storefront/internal/domain/user"
	"github.com/greenbasket/storefront/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.UserStore          = (*MemoryUserStore)(nil)
	_ ports.CredentialStore    = (*MemoryUserStore)(nil)
	_ ports.CredentialVerifier = (*MemoryUserStore)(nil)
	_ ports.VerificationStore  = (*MemoryUserStore)(nil)
	_ ports.IdentityProvider   = (*MockIdentityProvider)(nil)
	_ ports.PendingSignupStore = (*MemoryPendingSignupStore)(nil)
	_ ports.LoginThrottle      = (*MemoryLoginThrottle)(nil)
	_ ports.VerificationMailer = (*RecordingMailer)(nil)
	_ ports.PasswordHasher     = (*PlainHasher)(nil)
	_ ports.TokenIssuer        = (*FakeTokenIssuer)(nil)
)

// memoryUserRecord is a stored user plus its credential columns.
type memoryUserRecord struct {
	user              domainuser.User
	passwordHash      string
	verificationToken string
}

// MemoryUserStore is an in-memory user repository double. It implements the
// store, credential, and verification ports the way the Postgres repository
// does, including duplicate-email rejection and email normalization.
type MemoryUserStore struct {
	mu      sync.Mutex
	byUID   map[string]*memoryUserRecord
	hasher  ports.PasswordHasher
	nowFunc func() time.Time

	// Optional error overrides for failure-path tests.
	CreateErr error
	GetErr    error
}

// NewMemoryUserStore creates an empty store comparing passwords in plain text.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byUID:   map[string]*memoryUserRecord{},
		hasher:  &PlainHasher{},
		nowFunc: time.Now,
	}
}

// Sentinel errors shared with real store implementations.
var (
	ErrUserNotFound             = ports.ErrUserNotFound
	ErrEmailExists              = ports.ErrEmailExists
	ErrInvalidCredentials       = ports.ErrInvalidCredentials
	ErrVerificationTokenInvalid = ports.ErrVerificationTokenInvalid
)

func normalizeEmail(email string) string {
	out := make([]byte, 0, len(email))
	for i := 0; i < len(email); i++ {
		c := email[i]
		if c == ' ' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func (m *MemoryUserStore) Create(ctx context.Context, u *domainuser.User) (*domainuser.User, error) {
	return m.create(u, "")
}

func (m *MemoryUserStore) CreateWithPassword(ctx context.Context, u *domainuser.User, passwordHash string) (*domainuser.User, error) {
	return m.create(u, passwordHash)
}

func (m *MemoryUserStore) create(u *domainuser.User, passwordHash string) (*domainuser.User, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalizeEmail(u.Email)
	for _, rec := range m.byUID {
		if rec.user.Email == email {
			return nil, ErrEmailExists
		}
	}
	if _, ok := m.byUID[u.UID]; ok {
		return nil, ErrEmailExists
	}

	stored := *u
	stored.Email = email
	stored.CreatedAt = m.nowFunc().UTC()
	m.byUID[u.UID] = &memoryUserRecord{user: stored, passwordHash: passwordHash}
	out := stored
	return &out, nil
}

func (m *MemoryUserStore) GetByUID(ctx context.Context, uid string) (*domainuser.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byUID[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := rec.user
	return &out, nil
}

func (m *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	for _, rec := range m.byUID {
		if rec.user.Email == email {
			out := rec.user
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUserStore) SetRole(ctx context.Context, uid string, role domainauth.Role) (*domainuser.User, error) {
	if _, err := domainauth.ParseRole(string(role)); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byUID[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	rec.user.Role = role
	out := rec.user
	return &out, nil
}

func (m *MemoryUserStore) MarkEmailVerified(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byUID[uid]
	if !ok {
		return ErrUserNotFound
	}
	rec.user.EmailVerified = true
	rec.verificationToken = ""
	return nil
}

func (m *MemoryUserStore) VerifyPassword(ctx context.Context, email, password string) (*domainuser.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	for _, rec := range m.byUID {
		if rec.user.Email != email {
			continue
		}
		if rec.passwordHash == "" {
			return nil, ErrInvalidCredentials
		}
		if err := m.hasher.Compare(rec.passwordHash, password); err != nil {
			return nil, ErrInvalidCredentials
		}
		out := rec.user
		return &out, nil
	}
	return nil, ErrInvalidCredentials
}

func (m *MemoryUserStore) SetVerificationToken(ctx context.Context, uid, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byUID[uid]
	if !ok {
		return ErrUserNotFound
	}
	rec.verificationToken = token
	return nil
}

func (m *MemoryUserStore) ConsumeVerificationToken(ctx context.Context, token string) (*domainuser.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" {
		return nil, ErrVerificationTokenInvalid
	}
	for _, rec := range m.byUID {
		if rec.verificationToken == token {
			rec.user.EmailVerified = true
			rec.verificationToken = ""
			out := rec.user
			return &out, nil
		}
	}
	return nil, ErrVerificationTokenInvalid
}

// VerificationTokenFor exposes the stored token for assertions.
func (m *MemoryUserStore) VerificationTokenFor(uid string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byUID[uid]; ok {
		return rec.verificationToken
	}
	return ""
}

// PlainHasher stores and compares passwords without hashing. Test-only.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return password, nil }

func (PlainHasher) Compare(hash, password string) error {
	if hash != password {
		return ErrInvalidCredentials
	}
	return nil
}

// MockIdentityProvider simulates a federated IdP with deterministic
// state/nonce handling.
type MockIdentityProvider struct {
	BeginFunc    func(ctx context.Context) (ports.BeginAuthResult, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL         string
	DefaultIdentity domainauth.Identity

	callCount int
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultIdentity: domainauth.Identity{
			UID:           "google-subject-1",
			Email:         "mock.user@example.com",
			FullName:      "Mock User",
			Photo:         "https://mock-idp/photo.jpg",
			EmailVerified: true,
		},
	}
}

func (m *MockIdentityProvider) Begin(ctx context.Context) (ports.BeginAuthResult, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.callCount++
	return ports.BeginAuthResult{
		AuthURL: fmt.Sprintf("%s?call=%d", m.AuthURL, m.callCount),
		State:   fmt.Sprintf("state-%d", m.callCount),
		Nonce:   fmt.Sprintf("nonce-%d", m.callCount),
	}, nil
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return m.DefaultIdentity, nil
}

// MemoryPendingSignupStore is an in-memory PendingSignupStore with expiry.
type MemoryPendingSignupStore struct {
	mu      sync.Mutex
	entries map[string]domainauth.PendingSignup
	nowFunc func() time.Time

	SaveErr error
}

// ErrPendingNotFound mirrors the redis store's not-found error.
var ErrPendingNotFound = ports.ErrPendingSignupNotFound

// NewMemoryPendingSignupStore creates an empty pending-signup store.
func NewMemoryPendingSignupStore() *MemoryPendingSignupStore {
	return &MemoryPendingSignupStore{
		entries: map[string]domainauth.PendingSignup{},
		nowFunc: time.Now,
	}
}

func (m *MemoryPendingSignupStore) Save(ctx context.Context, p domainauth.PendingSignup) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[p.ID] = p
	return nil
}

func (m *MemoryPendingSignupStore) Get(ctx context.Context, id string) (domainauth.PendingSignup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[id]
	if !ok || m.nowFunc().After(p.ExpiresAt) {
		return domainauth.PendingSignup{}, ErrPendingNotFound
	}
	return p, nil
}

func (m *MemoryPendingSignupStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// MemoryLoginThrottle is an in-memory LoginThrottle double.
type MemoryLoginThrottle struct {
	mu          sync.Mutex
	failures    map[string]int
	maxAttempts int
	window      time.Duration

	CheckErr error
}

// NewMemoryLoginThrottle creates a throttle allowing maxAttempts failures.
func NewMemoryLoginThrottle(maxAttempts int, window time.Duration) *MemoryLoginThrottle {
	return &MemoryLoginThrottle{
		failures:    map[string]int{},
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (m *MemoryLoginThrottle) Check(ctx context.Context, email string) (ports.ThrottleState, error) {
	if m.CheckErr != nil {
		return ports.ThrottleState{}, m.CheckErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[normalizeEmail(email)] >= m.maxAttempts {
		return ports.ThrottleState{Allowed: false, Remaining: m.window}, nil
	}
	return ports.ThrottleState{Allowed: true}, nil
}

func (m *MemoryLoginThrottle) RecordFailure(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[normalizeEmail(email)]++
	return nil
}

func (m *MemoryLoginThrottle) Reset(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, normalizeEmail(email))
	return nil
}

// Failures exposes the current failure count for assertions.
func (m *MemoryLoginThrottle) Failures(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[normalizeEmail(email)]
}

// RecordingMailer records sent verification mails for assertions.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []ports.VerificationMail

	SendErr error
}

// NewRecordingMailer creates an empty RecordingMailer.
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

func (m *RecordingMailer) SendVerification(ctx context.Context, mail ports.VerificationMail) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

// Sent returns a copy of the recorded mails.
func (m *RecordingMailer) Sent() []ports.VerificationMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.VerificationMail, len(m.sent))
	copy(out, m.sent)
	return out
}

// FakeTokenIssuer issues predictable tokens of the form "token:<uid>:<role>"
// and verifies only tokens it issued.
type FakeTokenIssuer struct {
	mu     sync.Mutex
	issued map[string]domainauth.Claims
	ttl    time.Duration

	IssueErr  error
	VerifyErr error
}

// NewFakeTokenIssuer creates an issuer with a 24h claim lifetime.
func NewFakeTokenIssuer() *FakeTokenIssuer {
	return &FakeTokenIssuer{issued: map[string]domainauth.Claims{}, ttl: 24 * time.Hour}
}

func (f *FakeTokenIssuer) Issue(u *domainuser.User) (string, error) {
	if f.IssueErr != nil {
		return "", f.IssueErr
	}
	if err := u.Validate(); err != nil {
		return "", domainauth.ErrInvalidRecord
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	token := fmt.Sprintf("token:%s:%s", u.UID, u.Role)
	f.issued[token] = domainauth.Claims{
		UID:       u.UID,
		Email:     u.Email,
		Role:      u.Role,
		FullName:  u.FullName,
		Phone:     u.PhoneNumber,
		Photo:     u.Photo(),
		IssuedAt:  now,
		ExpiresAt: now.Add(f.ttl),
	}
	return token, nil
}

func (f *FakeTokenIssuer) Verify(token string) (*domainauth.Claims, error) {
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.issued[token]
	if !ok {
		return nil, domainauth.ErrInvalidToken
	}
	out := claims
	return &out, nil
}
