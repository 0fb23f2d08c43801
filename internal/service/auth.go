package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	domainuser "github.com/greenbasket/storefront/internal/domain/user"
	apperrors "github.com/greenbasket/storefront/internal/errors"
	"github.com/greenbasket/storefront/internal/ports"
)

// pendingSignupTTL bounds the gap between the provider callback and the
// role-selection step. An expired entry forces the user back through the
// provider.
const pendingSignupTTL = 10 * time.Minute

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    ports.UserStore
	Creds    ports.CredentialStore
	Verifier ports.CredentialVerifier
	Verify   ports.VerificationStore
	Hasher   ports.PasswordHasher
	Tokens   ports.TokenIssuer
	Throttle ports.LoginThrottle
	Provider ports.IdentityProvider // nil when federated login is disabled
	Pending  ports.PendingSignupStore
	Mailer   ports.VerificationMailer
	// BaseURL is the externally visible origin used to build verification links.
	BaseURL string
	Logger  *slog.Logger
}

// AuthService orchestrates signup, login, federated auth, and session
// issuance by coordinating the store, token issuer, throttle, and mailer.
type AuthService struct {
	users    ports.UserStore
	creds    ports.CredentialStore
	verifier ports.CredentialVerifier
	verify   ports.VerificationStore
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	throttle ports.LoginThrottle
	provider ports.IdentityProvider
	pending  ports.PendingSignupStore
	mailer   ports.VerificationMailer
	baseURL  string
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    opts.Users,
		creds:    opts.Creds,
		verifier: opts.Verifier,
		verify:   opts.Verify,
		hasher:   opts.Hasher,
		tokens:   opts.Tokens,
		throttle: opts.Throttle,
		provider: opts.Provider,
		pending:  opts.Pending,
		mailer:   opts.Mailer,
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		logger:   logger.With("component", "auth_service"),
	}
}

// Session pairs a user record with a freshly issued token.
type Session struct {
	User  *domainuser.User
	Token string
}

// SignupInput groups parameters for an email/password signup.
type SignupInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     string
}

// Signup creates a user record with the role bound synchronously and sends a
// verification mail. No token is issued; the user logs in after verifying.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domainuser.User, error) {
	if err := validateFullName(in.FullName); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role, err := domainauth.ParseRole(in.Role)
	if err != nil {
		return nil, apperrors.ValidationField("role", "Role must be consumer or merchant.")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to process password")
	}

	u := &domainuser.User{
		UID:         uuid.NewString(),
		Email:       in.Email,
		FullName:    strings.TrimSpace(in.FullName),
		PhoneNumber: strings.TrimSpace(in.Phone),
		Role:        role,
	}
	created, err := s.creds.CreateWithPassword(ctx, u, hash)
	if err != nil {
		if errors.Is(err, ports.ErrEmailExists) {
			return nil, apperrors.Conflict("An account with this email already exists.")
		}
		return nil, apperrors.Wrap(apperrors.MapDBError(err), apperrors.ErrCodeInternal, "failed to create account")
	}

	if mailErr := s.sendVerification(ctx, created); mailErr != nil {
		// The account exists; the user can trigger a re-send by logging in.
		s.logger.ErrorContext(ctx, "failed to send verification mail", "err", mailErr, "uid", created.UID)
	}

	return created, nil
}

// Login verifies credentials behind the failed-attempt throttle and issues a
// session token. The throttle is consulted before any credential work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "Password is required.")
	}

	state, err := s.throttle.Check(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check login throttle")
	}
	if !state.Allowed {
		return nil, apperrors.RateLimited(fmt.Sprintf(
			"Too many failed attempts. Try again in %s.", state.Remaining.Round(time.Second)))
	}

	u, err := s.verifier.VerifyPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredentials) {
			if recErr := s.throttle.RecordFailure(ctx, email); recErr != nil {
				s.logger.ErrorContext(ctx, "failed to record login failure", "err", recErr)
			}
			return nil, apperrors.Unauthenticated("Invalid email or password.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to verify credentials")
	}

	if !u.EmailVerified {
		// Re-send as a side effect of the failed attempt; user-correctable.
		if mailErr := s.sendVerification(ctx, u); mailErr != nil {
			s.logger.ErrorContext(ctx, "failed to re-send verification mail", "err", mailErr, "uid", u.UID)
		}
		return nil, apperrors.Forbidden("Email not verified. A new verification link has been sent to your inbox.")
	}

	if resetErr := s.throttle.Reset(ctx, email); resetErr != nil {
		s.logger.ErrorContext(ctx, "failed to reset login throttle", "err", resetErr)
	}

	return s.issueFor(u)
}

// IssueSession looks up the record for uid and mints a session token.
func (s *AuthService) IssueSession(ctx context.Context, uid string) (*Session, error) {
	if uid == "" {
		return nil, apperrors.ValidationField("uid", "uid is required.")
	}
	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load user")
	}
	return s.issueFor(u)
}

// GetUser returns the record for uid.
func (s *AuthService) GetUser(ctx context.Context, uid string) (*domainuser.User, error) {
	if uid == "" {
		return nil, apperrors.ValidationField("uid", "uid is required.")
	}
	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load user")
	}
	return u, nil
}

// CheckEmail reports whether an account exists for the email, returning the
// record when it does.
func (s *AuthService) CheckEmail(ctx context.Context, email string) (*domainuser.User, bool, error) {
	if err := validateEmail(email); err != nil {
		return nil, false, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up email")
	}
	return u, true, nil
}

// AssignRole overwrites the record's role and returns a fresh session so the
// new role takes effect without waiting out the old token.
func (s *AuthService) AssignRole(ctx context.Context, uid, role string) (*Session, error) {
	if uid == "" {
		return nil, apperrors.ValidationField("uid", "uid is required.")
	}
	parsed, err := domainauth.ParseRole(role)
	if err != nil {
		return nil, apperrors.ValidationField("role", "Role must be consumer or merchant.")
	}

	u, err := s.users.SetRole(ctx, uid, parsed)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to assign role")
	}
	return s.issueFor(u)
}

// BeginGoogleLogin starts the federated flow.
func (s *AuthService) BeginGoogleLogin(ctx context.Context) (ports.BeginAuthResult, error) {
	if s.provider == nil {
		return ports.BeginAuthResult{}, apperrors.Internal("Federated login is not configured.")
	}
	res, err := s.provider.Begin(ctx)
	if err != nil {
		return ports.BeginAuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to begin federated login")
	}
	return res, nil
}

// GoogleLoginResult is the outcome of a federated callback: either a ready
// session for a returning user, or a pending-signup id when the identity has
// no record yet and must pick a role first.
type GoogleLoginResult struct {
	Session   *Session
	PendingID string
}

// RoleSelectionNeeded reports whether the caller must complete role selection.
func (r *GoogleLoginResult) RoleSelectionNeeded() bool {
	return r.Session == nil
}

// CompleteGoogleLogin exchanges the callback code. A returning identity gets
// a session with its stored role; a first-time identity is parked as a
// pending signup and receives no token until a role is chosen.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, in ports.ExchangeInput) (*GoogleLoginResult, error) {
	if s.provider == nil {
		return nil, apperrors.Internal("Federated login is not configured.")
	}
	identity, err := s.provider.Exchange(ctx, in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "federated login failed")
	}

	u, err := s.users.GetByUID(ctx, identity.UID)
	if err == nil {
		sess, issueErr := s.issueFor(u)
		if issueErr != nil {
			return nil, issueErr
		}
		return &GoogleLoginResult{Session: sess}, nil
	}
	if !errors.Is(err, ports.ErrUserNotFound) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load user")
	}

	p := domainauth.PendingSignup{
		ID:        uuid.NewString(),
		Identity:  identity,
		ExpiresAt: time.Now().Add(pendingSignupTTL),
	}
	if saveErr := s.pending.Save(ctx, p); saveErr != nil {
		return nil, apperrors.Wrap(saveErr, apperrors.ErrCodeInternal, "failed to save pending signup")
	}
	return &GoogleLoginResult{PendingID: p.ID}, nil
}

// CompleteRoleSelection binds the chosen role to a pending federated
// identity, creates the record, and issues the first token.
func (s *AuthService) CompleteRoleSelection(ctx context.Context, pendingID, role string) (*Session, error) {
	if pendingID == "" {
		return nil, apperrors.Unauthenticated("No signup in progress.")
	}
	parsed, err := domainauth.ParseRole(role)
	if err != nil {
		return nil, apperrors.ValidationField("role", "Role must be consumer or merchant.")
	}

	p, err := s.pending.Get(ctx, pendingID)
	if err != nil {
		if errors.Is(err, ports.ErrPendingSignupNotFound) {
			return nil, apperrors.Unauthenticated("Signup session expired. Please sign in again.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load pending signup")
	}

	u := &domainuser.User{
		UID:           p.Identity.UID,
		Email:         p.Identity.Email,
		FullName:      p.Identity.FullName,
		Role:          parsed,
		EmailVerified: p.Identity.EmailVerified,
	}
	if p.Identity.Photo != "" {
		photo := p.Identity.Photo
		u.PhotoURL = &photo
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, ports.ErrEmailExists) {
			return nil, apperrors.Conflict("An account with this email already exists.")
		}
		return nil, apperrors.Wrap(apperrors.MapDBError(err), apperrors.ErrCodeInternal, "failed to create account")
	}

	if delErr := s.pending.Delete(ctx, pendingID); delErr != nil {
		s.logger.ErrorContext(ctx, "failed to delete pending signup", "err", delErr, "pending_id", pendingID)
	}

	return s.issueFor(created)
}

// VerifyEmail consumes a verification token and returns the verified record.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domainuser.User, error) {
	u, err := s.verify.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrVerificationTokenInvalid) {
			return nil, apperrors.Validation("Verification link is invalid or already used.")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to verify email")
	}
	return u, nil
}

func (s *AuthService) issueFor(u *domainuser.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to issue session token")
	}
	return &Session{User: u, Token: token}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *domainuser.User) error {
	token := uuid.NewString()
	if err := s.verify.SetVerificationToken(ctx, u.UID, token); err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	verifyURL := fmt.Sprintf("%s/auth/verify?token=%s", s.baseURL, url.QueryEscape(token))
	if err := s.mailer.SendVerification(ctx, ports.VerificationMail{To: u.Email, VerifyURL: verifyURL}); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}
