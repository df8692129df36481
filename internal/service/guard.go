package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/identkey"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
	"github.com/sakif/family-catalog/internal/session"
)

// Guard decides whether an identity the provider has just established may
// hold a session. It runs on every sign-in, so removing an address from the
// whitelist takes effect at that account's next sign-in.
//
// Whitelist failures close the door: an identity is only let in when its
// entry was actually read. Role failures do not: an unreadable profile
// yields a regular session and a warning.
type Guard struct {
	whitelist repository.WhitelistRepository
	profiles  repository.ProfileRepository
	provider  SessionTerminator
	state     *session.State
	retry     RetryPolicy
	logger    *slog.Logger
	now       func() time.Time
}

func NewGuard(
	whitelist repository.WhitelistRepository,
	profiles repository.ProfileRepository,
	provider SessionTerminator,
	state *session.State,
	retry RetryPolicy,
	logger *slog.Logger,
) *Guard {
	return &Guard{
		whitelist: whitelist,
		profiles:  profiles,
		provider:  provider,
		state:     state,
		retry:     retry,
		logger:    logger,
		now:       time.Now,
	}
}

// OnIdentityEstablished adapts Authorize to the provider's listener
// signature.
func (g *Guard) OnIdentityEstablished(ctx context.Context, identity model.Identity) error {
	_, err := g.Authorize(ctx, identity)
	return err
}

func (g *Guard) Authorize(ctx context.Context, identity model.Identity) (*model.AuthorizedSession, error) {
	key := identkey.Encode(identity.Email)

	var whitelisted bool
	err := g.retry.do(ctx, func() error {
		var err error
		whitelisted, err = g.whitelist.IsWhitelisted(ctx, key)
		return err
	})
	if err != nil {
		g.logger.Error("whitelist lookup failed, rejecting session",
			slog.String("account_id", identity.AccountID),
			slog.String("error", err.Error()),
		)
		return nil, g.reject(ctx, identity, apperror.LookupFailed("whitelist", err))
	}
	if !whitelisted {
		g.logger.Info("session rejected, email not whitelisted", slog.String("account_id", identity.AccountID))
		return nil, g.reject(ctx, identity, apperror.NotWhitelisted())
	}

	sess := &model.AuthorizedSession{
		Identity:      identity,
		EmailVerified: identity.EmailVerified,
		UserType:      g.userType(ctx, identity.AccountID),
		AuthorizedAt:  g.now(),
	}
	g.state.Publish(session.Event{Kind: session.EventAuthorized, Identity: identity, Session: sess})
	return sess, nil
}

// userType reads the role with retries and falls back to regular.
func (g *Guard) userType(ctx context.Context, accountID string) model.UserType {
	var profile *model.UserProfile
	err := g.retry.do(ctx, func() error {
		p, err := g.profiles.Get(ctx, accountID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		profile = p
		return nil
	})

	switch {
	case err != nil && errors.Is(err, apperror.ErrNotFound):
		g.logger.Warn("no user profile, defaulting to regular", slog.String("account_id", accountID))
		return model.UserTypeRegular
	case err != nil:
		g.logger.Warn("user profile lookup failed, defaulting to regular",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		return model.UserTypeRegular
	case !profile.UserType.Valid():
		g.logger.Warn("unknown user type, defaulting to regular",
			slog.String("account_id", accountID),
			slog.String("user_type", string(profile.UserType)),
		)
		return model.UserTypeRegular
	}
	return profile.UserType
}

// reject signs the identity out and publishes the rejection. cause is
// returned so callers can write `return nil, g.reject(...)`.
func (g *Guard) reject(ctx context.Context, identity model.Identity, cause *apperror.AppError) error {
	if err := g.provider.SignOut(ctx, identity); err != nil {
		g.logger.Error("sign-out after rejection failed",
			slog.String("account_id", identity.AccountID),
			slog.String("error", err.Error()),
		)
	}
	g.state.Publish(session.Event{Kind: session.EventRejected, Identity: identity, Reason: cause})
	return cause
}
