package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	domainuser "github.com/greenbasket/storefront/internal/domain/user"
)

// Sentinel errors shared by every store implementation, so callers can
// branch on outcome without knowing the backend.
var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when creating a user with a duplicate email.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials is returned when the password does not match or
	// the account carries no password credential.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVerificationTokenInvalid is returned when no user holds the
	// presented verification token.
	ErrVerificationTokenInvalid = errors.New("verification token invalid")
	// ErrPendingSignupNotFound is returned when a pending federated signup
	// is absent or expired.
	ErrPendingSignupNotFound = errors.New("pending signup not found")
)

// TokenIssuer converts a verified user record into a signed, time-bound
// credential and verifies such credentials on inbound requests.
type TokenIssuer interface {
	// Issue mints a signed token embedding the record's identity and role.
	// Fails with domain auth.ErrInvalidRecord when required fields are missing.
	Issue(u *domainuser.User) (string, error)

	// Verify checks signature and expiry and returns the embedded claims
	// unmodified. Fails with domain auth.ErrInvalidToken for any unusable
	// token; callers must not distinguish the failure modes.
	Verify(token string) (*domainauth.Claims, error)
}

// UserStore persists and retrieves user records.
type UserStore interface {
	Create(ctx context.Context, u *domainuser.User) (*domainuser.User, error)
	GetByUID(ctx context.Context, uid string) (*domainuser.User, error)
	GetByEmail(ctx context.Context, email string) (*domainuser.User, error)
	// SetRole overwrites the record's role and returns the canonical record.
	SetRole(ctx context.Context, uid string, role domainauth.Role) (*domainuser.User, error)
	MarkEmailVerified(ctx context.Context, uid string) error
}

// CredentialVerifier checks a password against the stored credential for an
// email, returning the matching record on success.
type CredentialVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (*domainuser.User, error)
}

// CredentialStore persists password credentials alongside user records.
type CredentialStore interface {
	// CreateWithPassword inserts the record together with its password hash
	// in a single statement.
	CreateWithPassword(ctx context.Context, u *domainuser.User, passwordHash string) (*domainuser.User, error)
}

// VerificationStore manages email-verification tokens.
type VerificationStore interface {
	// SetVerificationToken stores a fresh token for the record, replacing
	// any previous one.
	SetVerificationToken(ctx context.Context, uid, token string) error
	// ConsumeVerificationToken marks the owning record verified, clears the
	// token, and returns the updated record.
	ConsumeVerificationToken(ctx context.Context, token string) (*domainuser.User, error)
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ThrottleState reports the state of the failed-login counter for an identity.
type ThrottleState struct {
	// Allowed is false while the identity is locked out.
	Allowed bool
	// Remaining is the time left in the lockout window when Allowed is false.
	Remaining time.Duration
}

// LoginThrottle is a keyed expiring counter limiting failed login attempts
// per identity. Backed by a shared store so the limit holds across server
// instances.
type LoginThrottle interface {
	// Check reports whether a login attempt for the identity is permitted.
	// It must be consulted before any credential work.
	Check(ctx context.Context, email string) (ThrottleState, error)
	// RecordFailure atomically increments the identity's failure counter.
	RecordFailure(ctx context.Context, email string) error
	// Reset clears the counter after a successful login.
	Reset(ctx context.Context, email string) error
}

// BeginAuthResult carries the outputs of starting a federated login flow.
type BeginAuthResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// ExchangeInput groups parameters for the federated code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// IdentityProvider initiates and completes a federated authentication flow.
type IdentityProvider interface {
	Begin(ctx context.Context) (BeginAuthResult, error)
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// PendingSignupStore holds verified federated identities awaiting role
// selection. Entries are short-lived; expiry abandons the signup.
type PendingSignupStore interface {
	Save(ctx context.Context, p domainauth.PendingSignup) error
	Get(ctx context.Context, id string) (domainauth.PendingSignup, error)
	Delete(ctx context.Context, id string) error
}

// VerificationMail describes an email-verification message to deliver.
type VerificationMail struct {
	To        string
	VerifyURL string
}

// VerificationMailer delivers email-verification messages.
type VerificationMailer interface {
	SendVerification(ctx context.Context, mail VerificationMail) error
}
