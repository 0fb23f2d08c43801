package user

// Package user contains the durable user-record type held by the store.

import (
	"errors"
	"time"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
)

// User is the durable profile entry keyed by identity.
//
// UID is opaque and immutable: a generated id for email/password signups,
// the provider subject for federated signups. Role is set once and treated
// as effectively immutable afterwards; tokens issued before a role change
// keep authorizing the old role until they expire.
type User struct {
	UID           string          `json:"uid"            db:"uid"`
	Email         string          `json:"email"          db:"email"`
	FullName      string          `json:"fullName"       db:"full_name"`
	Role          domainauth.Role `json:"role"           db:"role"`
	PhotoURL      *string         `json:"photoURL"       db:"photo_url"`
	PhoneNumber   string          `json:"phoneNumber"    db:"phone_number"`
	EmailVerified bool            `json:"emailVerified"  db:"email_verified"`
	CreatedAt     time.Time       `json:"createdAt"      db:"created_at"`
}

// ErrMissingFields is returned by Validate when required fields are absent.
var ErrMissingFields = errors.New("user record requires uid, email, and role")

// Validate checks the fields every stored record must carry.
func (u *User) Validate() error {
	if u.UID == "" || u.Email == "" {
		return ErrMissingFields
	}
	if _, err := domainauth.ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}

// Photo returns the photo URL or empty when unset.
func (u *User) Photo() string {
	if u.PhotoURL == nil {
		return ""
	}
	return *u.PhotoURL
}
