// Package model defines the data structures used throughout the application.
package model

import "time"

// UserType is the role stored on a UserProfile.
type UserType string

const (
	UserTypeRegular UserType = "regular"
	UserTypeAdmin   UserType = "admin"
)

// Valid reports whether t is one of the known roles.
func (t UserType) Valid() bool {
	return t == UserTypeRegular || t == UserTypeAdmin
}

// Account is the credential record held by the local identity provider.
// It is the provider's concern only: services never see the password hash.
type Account struct {
	ID            string    `json:"id"            db:"id"`
	Email         string    `json:"email"         db:"email"`
	PasswordHash  string    `json:"-"             db:"password_hash"`
	Provider      string    `json:"provider"      db:"provider"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
}

// UserProfile is the role record for an account, keyed by the provider's
// opaque account identifier. It is distinct from the authentication
// identity itself.
type UserProfile struct {
	AccountID string   `json:"-"`
	Email     string   `json:"email"`
	UserType  UserType `json:"userType"`
}

// Identity is what the identity provider asserts about a signed-in user.
// It contains facts only, no decisions.
type Identity struct {
	AccountID     string `json:"accountId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Provider      string `json:"provider"` // "password" or "github"
}

// AuthorizedSession is the outcome of a successful session authorization.
type AuthorizedSession struct {
	Identity      Identity  `json:"identity"`
	EmailVerified bool      `json:"emailVerified"`
	UserType      UserType  `json:"userType"`
	AuthorizedAt  time.Time `json:"authorizedAt"`
}

// AccountID is a shorthand for s.Identity.AccountID.
func (s *AuthorizedSession) AccountID() string {
	return s.Identity.AccountID
}

// IsAdmin reports whether the session carries the admin role.
func (s *AuthorizedSession) IsAdmin() bool {
	return s != nil && s.UserType == UserTypeAdmin
}
