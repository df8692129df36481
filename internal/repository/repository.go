// Package repository describes the storage the application talks to.
//
// Almost all state lives in a hierarchical key-value store addressed by
// slash-separated paths (whitelistedEmails/{key}, pendingRequests/{key},
// users/{accountId}/userType, objects/{id}). Store is that contract; the
// sqlite, redis and postgres packages implement it. The typed repositories
// in kv.go sit on top of any Store and are what services depend on.
package repository

import (
	"context"
	"time"

	"github.com/sakif/family-catalog/internal/model"
)

// Store is a key-value map with path keys. Every mutation is its own atomic
// point write; the interface offers no transactions.
type Store interface {
	// Get returns the value at path, or an error wrapping apperror.ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
	// Set creates or overwrites the value at path.
	Set(ctx context.Context, path string, value []byte) error
	// Delete removes path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error
	// List returns every entry strictly below prefix, keyed by full path.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}

type WhitelistRepository interface {
	IsWhitelisted(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

type PendingRequestRepository interface {
	// Get returns apperror.ErrNotFound when no request exists for key.
	Get(ctx context.Context, key string) (*model.PendingRequest, error)
	// Upsert writes req, replacing any request stored under the same key.
	Upsert(ctx context.Context, req *model.PendingRequest) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]model.PendingRequest, error)
}

type ProfileRepository interface {
	// Get returns apperror.ErrNotFound when the account has no profile.
	Get(ctx context.Context, accountID string) (*model.UserProfile, error)
	Create(ctx context.Context, profile *model.UserProfile) error
}

type RepairRepository interface {
	Flag(ctx context.Context, repair *model.ProfileRepair) error
	List(ctx context.Context) ([]model.ProfileRepair, error)
}

type ObjectRepository interface {
	Create(ctx context.Context, obj *model.CatalogObject) error
	GetByID(ctx context.Context, id string) (*model.CatalogObject, error)
	List(ctx context.Context) ([]model.CatalogObject, error)
	Update(ctx context.Context, obj *model.CatalogObject) error
	Delete(ctx context.Context, id string) error
}

type ProducerRepository interface {
	Create(ctx context.Context, p *model.Producer) error
	GetByID(ctx context.Context, id string) (*model.Producer, error)
	List(ctx context.Context) ([]model.Producer, error)
	Update(ctx context.Context, p *model.Producer) error
	Delete(ctx context.Context, id string) error
}

// RevocationRepository remembers when an account was last signed out so
// that session tokens issued before then stop working.
type RevocationRepository interface {
	Revoke(ctx context.Context, accountID string, at time.Time) error
	RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error)
}

// AccountRepository is the local identity provider's credential table.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	MarkEmailVerified(ctx context.Context, id string) error
	DeleteAccount(ctx context.Context, id string) error
	ListAccounts(ctx context.Context) ([]model.Account, error)
}
