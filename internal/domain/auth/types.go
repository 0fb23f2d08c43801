package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"time"
)

// Role represents a storefront authorization role. A role is bound to an
// account once, at signup or at the federated role-selection step, and
// thereafter gates access to disjoint path trees.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleMerchant Role = "merchant"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleConsumer, RoleMerchant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid roles: consumer, merchant)", ErrInvalidRole, s)
	}
}

// HomePath returns the landing path for the role's area.
func (r Role) HomePath() string {
	return "/" + string(r)
}

// Claims is the signed claim set carried by a session token. The role claim
// is copied from the user record at issuance time and trusted until the token
// expires; a role change only takes effect on re-issuance.
type Claims struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Photo     string    `json:"photo,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Identity represents the authenticated principal returned by a federated
// identity provider. Adapters map provider-specific claims into this shape.
type Identity struct {
	UID           string // stable provider subject
	Email         string
	FullName      string
	Photo         string
	EmailVerified bool
}

// PendingSignup carries a verified federated identity between the provider
// callback and the role-selection step. While one of these exists and no
// user record does, no session token may be issued.
type PendingSignup struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	// ErrInvalidToken is returned for any unusable session token: bad
	// signature, malformed payload, or past expiry. Callers treat all of
	// these identically as "not authenticated".
	ErrInvalidToken = errors.New("invalid session token")

	// ErrInvalidRecord is returned when a user record is missing fields
	// required for token issuance (uid, email, role).
	ErrInvalidRecord = errors.New("user record is missing required fields")

	// ErrInvalidRole is returned for role values outside {consumer, merchant}.
	ErrInvalidRole = errors.New("invalid role")
)
