// Package auth: password hashing.
//
// WHY BCRYPT?
// bcrypt is a password hash with a tunable amount of work per call. That
// work is what makes guessing passwords from a leaked table expensive;
// fast hashes (MD5, SHA-256) fall to GPU cracking in minutes.
//
// bcrypt automatically:
//   - Generates a random salt, so two accounts with the same password get
//     different hashes
//   - Embeds the salt in the output, so the accounts table needs no salt
//     column
//   - Encodes the work factor ("cost") in the output, so raising the cost
//     later does not invalidate existing hashes
//
// Hash format (what lands in accounts.password_hash):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 → 2^12 rounds)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/family-catalog/internal/apperror"
)

// defaultCost is the bcrypt work factor.
//
// COST TUNING RULE OF THUMB:
// Pick the cost so one hash takes roughly 200-300ms on the server. Lower is
// easy to crack; higher makes every sign-in and registration sluggish.
const defaultCost = 12

// Password length policy, checked before any hashing.
//
// THE 72-BYTE LIMIT:
// bcrypt only looks at the first 72 bytes of its input. Two passwords that
// share those bytes would hash the same, so longer input is rejected
// instead of silently truncated. The limit is in bytes, not characters.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// errBadPassword is what Verify returns on a mismatch. SignIn folds it
// together with "no such account" into one credentials error, so a
// response never tells which of the two was wrong.
var errBadPassword = errors.New("auth: invalid password")

// PasswordService hashes and checks passwords with bcrypt.
//
// It is a struct rather than free functions so the cost can be injected:
// tests run at bcrypt.MinCost (4) and skip the ~250ms of cost 12 per hash.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest builds a PasswordService with the given cost,
// for tests in other packages (the provider and server tests).
//
// Do NOT use in production: cost 4 is far too weak.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckPolicy enforces the length rules without hashing.
func CheckPolicy(plaintext string) error {
	if len(plaintext) < MinPasswordLen {
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	}
	if len(plaintext) > MaxPasswordLen {
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordLen))
	}
	return nil
}

// Hash checks the length policy and hashes plaintext.
//
// The output is self-contained, like:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//
// Store it as-is; bcrypt.CompareHashAndPassword reads the salt and cost
// back out of it.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := CheckPolicy(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and errBadPassword when it
// does not. Any other error means the stored hash is unreadable.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword compares in constant time, so response
// time does not reveal how much of a guess was right.
//
// Accounts created through GitHub have no hash; SignIn rejects them before
// calling Verify.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errBadPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
