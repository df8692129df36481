package model

import "time"

// PendingRequest is a registration attempt from an email that is not yet
// whitelisted. There is at most one per identity key; a repeated attempt
// overwrites RequestedAt.
type PendingRequest struct {
	Key         string    `json:"key"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requestedAt"`
}

// RegistrationOutcome is the non-error result of a registration attempt.
type RegistrationOutcome string

const (
	// OutcomePendingApproval means no account was created; an administrator
	// has to approve the email first.
	OutcomePendingApproval RegistrationOutcome = "pending_approval"
	// OutcomeRegistered means the account and its profile exist and a
	// verification email was requested.
	OutcomeRegistered RegistrationOutcome = "registered"
)

// ProfileRepair records an account whose profile write failed after the
// provider had already created it.
type ProfileRepair struct {
	AccountID string    `json:"accountId"`
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flaggedAt"`
}
