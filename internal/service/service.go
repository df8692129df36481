// Package service holds the access-control rules of the catalog: who may
// register, who may hold a session, what an administrator can decide and
// who may change which object.
//
// Services depend on repository interfaces and on the small provider
// interfaces below, never on a concrete store or on HTTP. Every store or
// provider failure is converted into an *apperror.AppError before it leaves
// this package.
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
)

// AccountProvider is the part of the identity provider registration needs.
type AccountProvider interface {
	CreateAccount(ctx context.Context, email, password string) (model.Identity, error)
	SendVerificationEmail(ctx context.Context, identity model.Identity) error
}

// SessionTerminator is the part of the identity provider the guard needs.
type SessionTerminator interface {
	SignOut(ctx context.Context, identity model.Identity) error
}

// RetryPolicy bounds the retries around store lookups.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// do runs op until it succeeds, returns a backoff.Permanent error, the
// retries run out or ctx ends. The last error is returned.
func (p RetryPolicy) do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	var bo backoff.BackOff = backoff.WithMaxRetries(b, uint64(max(p.MaxRetries, 0)))
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// validationError turns the alphabetically first ozzo field error into an
// AppError.
func validationError(err error) error {
	var fields validation.Errors
	if errors.As(err, &fields) {
		names := make([]string, 0, len(fields))
		for field, ferr := range fields {
			if ferr != nil {
				names = append(names, field)
			}
		}
		if len(names) > 0 {
			sort.Strings(names)
			return apperror.ValidationFailed(names[0], names[0]+": "+fields[names[0]].Error())
		}
	}
	return apperror.ValidationFailed("", err.Error())
}

// storeFailure gives a raw store error the Unavailable kind. Errors that
// already carry a kind pass through unchanged.
func storeFailure(what string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Unavailable(what, err)
}
