// Package auth is the local identity provider: password accounts, GitHub
// sign-in, email verification, session tokens and the middleware that
// reads them.
//
// SESSION FLOW:
//  1. The user signs in with a password or through GitHub.
//  2. The provider fires its identity-established callbacks; the session
//     guard decides whether the identity may hold a session at all.
//  3. An authorized session is written into a signed JWT and stored in the
//     HttpOnly "token" cookie.
//  4. RequireAuth and OptionalAuth read the cookie on later requests, check
//     the signature and the account's revocation time, and put the session
//     into the request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/family-catalog/internal/model"
)

const (
	issuer = "family-catalog"

	purposeSession     = "session"
	purposeVerifyEmail = "verify-email"

	SessionTTL      = 12 * time.Hour
	VerificationTTL = 24 * time.Hour

	minSecretLen = 32
)

// ErrTokenExpired lets callers tell an old link apart from a forged one.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies the two kinds of token the server hands
// out: session tokens and email-verification tokens. Both are HS256 JWTs
// with the same secret; the purpose claim keeps one from being used as the
// other.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLen)
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Purpose       string         `json:"purpose"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	UserType      model.UserType `json:"user_type"`
	Provider      string         `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// Session rebuilds the authorized session the token was issued for.
func (c *SessionClaims) Session() *model.AuthorizedSession {
	var at time.Time
	if c.IssuedAt != nil {
		at = c.IssuedAt.Time
	}
	return &model.AuthorizedSession{
		Identity: model.Identity{
			AccountID:     c.Subject,
			Email:         c.Email,
			EmailVerified: c.EmailVerified,
			Provider:      c.Provider,
		},
		EmailVerified: c.EmailVerified,
		UserType:      c.UserType,
		AuthorizedAt:  at,
	}
}

type verificationClaims struct {
	Purpose string `json:"purpose"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// IssueSession signs a SessionTTL token for sess. Every token gets a random
// jti so two sign-ins in the same second still produce distinct tokens.
func (s *TokenService) IssueSession(sess *model.AuthorizedSession) (string, error) {
	if sess == nil || sess.AccountID() == "" {
		return "", errors.New("auth: cannot issue a token without an account")
	}
	now := s.now()
	c := SessionClaims{
		Purpose:       purposeSession,
		Email:         sess.Identity.Email,
		EmailVerified: sess.EmailVerified,
		UserType:      sess.UserType,
		Provider:      sess.Identity.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.AccountID(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			Issuer:    issuer,
		},
	}
	return s.sign(c)
}

// ParseSession verifies a session token and returns its claims.
func (s *TokenService) ParseSession(tokenStr string) (*SessionClaims, error) {
	c := &SessionClaims{}
	if err := s.parse(tokenStr, c); err != nil {
		return nil, err
	}
	if c.Purpose != purposeSession {
		return nil, errors.New("auth: not a session token")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	return c, nil
}

// IssueVerification signs the token embedded in a verification link.
func (s *TokenService) IssueVerification(accountID, email string) (string, error) {
	now := s.now()
	c := verificationClaims{
		Purpose: purposeVerifyEmail,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(VerificationTTL)),
			Issuer:    issuer,
		},
	}
	return s.sign(c)
}

// ParseVerification returns the account id and email a verification token
// was issued for.
func (s *TokenService) ParseVerification(tokenStr string) (accountID, email string, err error) {
	c := &verificationClaims{}
	if err := s.parse(tokenStr, c); err != nil {
		return "", "", err
	}
	if c.Purpose != purposeVerifyEmail {
		return "", "", errors.New("auth: not an email verification token")
	}
	if c.Subject == "" {
		return "", "", errors.New("auth: token has no subject")
	}
	return c.Subject, c.Email, nil
}

func (s *TokenService) sign(c jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// parse rejects anything that is not HS256, issued by us, and unexpired.
func (s *TokenService) parse(tokenStr string, c jwt.Claims) error {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return errors.New("auth: invalid token claims")
	}
	return nil
}
