package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/greenbasket/storefront/internal/data/pgxutil"
	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	domainuser "github.com/greenbasket/storefront/internal/domain/user"
	"github.com/greenbasket/storefront/internal/ports"
)

// Sentinels are shared with the ports package so callers can branch on
// outcome without importing the data layer.
var (
	ErrUserNotFound             = ports.ErrUserNotFound
	ErrEmailExists              = ports.ErrEmailExists
	ErrInvalidCredentials       = ports.ErrInvalidCredentials
	ErrVerificationTokenInvalid = ports.ErrVerificationTokenInvalid
)

// userColumns lists the columns mapped onto domainuser.User.
const userColumns = "uid, email, full_name, role, photo_url, phone_number, email_verified, created_at"

// UserRepo provides database operations for user accounts. It backs the
// UserStore, CredentialStore, CredentialVerifier, and VerificationStore ports.
type UserRepo struct {
	DB           *sql.DB
	hasher       ports.PasswordHasher
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB, hasher ports.PasswordHasher) *UserRepo {
	return &UserRepo{DB: db, hasher: hasher, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, hasher ports.PasswordHasher, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, hasher: hasher, timeProvider: tp}
}

// Create inserts a new user without a password credential. Used for
// federated signups where the provider vouches for the identity.
func (r *UserRepo) Create(ctx context.Context, u *domainuser.User) (*domainuser.User, error) {
	return r.insert(ctx, u, nil)
}

// CreateWithPassword inserts a new user together with its password hash.
func (r *UserRepo) CreateWithPassword(ctx context.Context, u *domainuser.User, passwordHash string) (*domainuser.User, error) {
	if passwordHash == "" {
		return nil, errors.New("password hash is required")
	}
	return r.insert(ctx, u, &passwordHash)
}

func (r *UserRepo) insert(ctx context.Context, u *domainuser.User, passwordHash *string) (*domainuser.User, error) {
	if u == nil {
		return nil, errors.New("user record is required")
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out domainuser.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (
				uid, email, full_name, role, photo_url, phone_number, email_verified, password_hash, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9
			) RETURNING `+userColumns,
			u.UID,
			normalizeEmail(u.Email),
			strings.TrimSpace(u.FullName),
			u.Role,
			u.PhotoURL,
			strings.TrimSpace(u.PhoneNumber),
			u.EmailVerified,
			passwordHash,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainuser.User])
		return err
	}); err != nil {
		return nil, r.mapWriteErr(err, false)
	}
	return &out, nil
}

// GetByUID retrieves a user by its opaque id.
func (r *UserRepo) GetByUID(ctx context.Context, uid string) (*domainuser.User, error) {
	return r.getByQuery(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1`,
		"failed to get user by uid", uid)
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.getByQuery(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		"failed to get user by email", normalizeEmail(email))
}

// SetRole overwrites the user's role and returns the canonical record.
func (r *UserRepo) SetRole(ctx context.Context, uid string, role domainauth.Role) (*domainuser.User, error) {
	if _, err := domainauth.ParseRole(string(role)); err != nil {
		return nil, err
	}

	var out domainuser.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE users SET role = $2 WHERE uid = $1
			RETURNING `+userColumns,
			uid, role,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainuser.User])
		return err
	}); err != nil {
		return nil, r.mapWriteErr(err, true)
	}
	return &out, nil
}

// MarkEmailVerified flips the verified flag for the user.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, uid string) error {
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE users SET email_verified = TRUE, verification_token = NULL
			WHERE uid = $1`, uid)
		if err != nil {
			return fmt.Errorf("mark email verified: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// VerifyPassword checks the password against the stored hash for the email.
// Accounts created through a federated provider have no password credential
// and always fail the check.
func (r *UserRepo) VerifyPassword(ctx context.Context, email, password string) (*domainuser.User, error) {
	type credentialRow struct {
		domainuser.User
		PasswordHash *string `db:"password_hash"`
	}

	var row credentialRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`,
			normalizeEmail(email),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[credentialRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if row.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := r.hasher.Compare(*row.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &row.User, nil
}

// SetVerificationToken stores a fresh verification token, replacing any
// previous one.
func (r *UserRepo) SetVerificationToken(ctx context.Context, uid, token string) error {
	if token == "" {
		return errors.New("verification token is required")
	}
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE users SET verification_token = $2 WHERE uid = $1`, uid, token)
		if err != nil {
			return fmt.Errorf("set verification token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// ConsumeVerificationToken marks the owning user verified, clears the token,
// and returns the updated record.
func (r *UserRepo) ConsumeVerificationToken(ctx context.Context, token string) (*domainuser.User, error) {
	if token == "" {
		return nil, ErrVerificationTokenInvalid
	}

	var out domainuser.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE users SET email_verified = TRUE, verification_token = NULL
			WHERE verification_token = $1
			RETURNING `+userColumns,
			token,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainuser.User])
		return err
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVerificationTokenInvalid
		}
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	return &out, nil
}

func (r *UserRepo) getByQuery(ctx context.Context, query, errMsg string, arg any) (*domainuser.User, error) {
	var out domainuser.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainuser.User])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return &out, nil
}

func (r *UserRepo) mapWriteErr(err error, includeNotFound bool) error {
	if err == nil {
		return nil
	}
	if includeNotFound && errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrEmailExists
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
