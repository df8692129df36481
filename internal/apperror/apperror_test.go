package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("pending request", "YUB4LmNvbQ"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("email", "email is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("account", "a@x.com"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotWhitelisted wraps ErrNotWhitelisted",
			err:       NotWhitelisted(),
			target:    ErrNotWhitelisted,
			wantMatch: true,
		},
		{
			name:      "LookupFailed wraps ErrLookupFailed",
			err:       LookupFailed("whitelist", errors.New("connection reset")),
			target:    ErrLookupFailed,
			wantMatch: true,
		},
		{
			name:      "LookupFailed is not NotFound",
			err:       LookupFailed("whitelist", errors.New("connection reset")),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "NotWhitelisted is not LookupFailed",
			err:       NotWhitelisted(),
			target:    ErrLookupFailed,
			wantMatch: false,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("request", errors.New("disk full")),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "Unavailable is not LookupFailed",
			err:       Unavailable("request", errors.New("disk full")),
			target:    ErrLookupFailed,
			wantMatch: false,
		},
		{
			name:      "AccountCreationFailed wraps ErrAccountCreation",
			err:       AccountCreationFailed("email already in use"),
			target:    ErrAccountCreation,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("object", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("object", "abc123"),
			wantMessage: "object not found with id abc123",
		},
		{
			name:        "AccountCreationFailed keeps provider reason verbatim",
			err:         AccountCreationFailed("auth: account already exists for a@x.com"),
			wantMessage: "auth: account already exists for a@x.com",
		},
		{
			name:        "NotWhitelisted uses the contact-administrator message",
			err:         NotWhitelisted(),
			wantMessage: NotWhitelistedMessage,
		},
		{
			name:        "LookupFailed hides the transport error",
			err:         LookupFailed("whitelist", errors.New("dial tcp 10.0.0.1:6379: i/o timeout")),
			wantMessage: "whitelist is temporarily unavailable, please try again",
		},
		{
			name:        "Unavailable hides the transport error",
			err:         Unavailable("pending request", errors.New("sqlite: database is locked")),
			wantMessage: "the pending request store is unavailable right now, please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestLookupFailedKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := LookupFailed("user profile", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
