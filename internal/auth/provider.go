package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

const (
	ProviderPassword = "password"
	ProviderGitHub   = "github"
)

// IdentityListener is told about every identity that has just proven who it
// is. A non-nil error vetoes the sign-in; the first listener to fail wins.
type IdentityListener func(ctx context.Context, identity model.Identity) error

// LocalProvider is the identity provider backed by the accounts table. It
// answers "who is this" and never decides whether they may use the app.
type LocalProvider struct {
	accounts    repository.AccountRepository
	revocations repository.RevocationRepository
	passwords   *PasswordService
	tokens      *TokenService
	mailer      Mailer
	publicURL   string
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	listeners []IdentityListener
}

func NewLocalProvider(
	accounts repository.AccountRepository,
	revocations repository.RevocationRepository,
	passwords *PasswordService,
	tokens *TokenService,
	mailer Mailer,
	publicURL string,
	logger *slog.Logger,
) *LocalProvider {
	return &LocalProvider{
		accounts:    accounts,
		revocations: revocations,
		passwords:   passwords,
		tokens:      tokens,
		mailer:      mailer,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger,
		now:         time.Now,
	}
}

// OnIdentityEstablished registers l for every later sign-in.
func (p *LocalProvider) OnIdentityEstablished(l IdentityListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

func (p *LocalProvider) establish(ctx context.Context, identity model.Identity) error {
	p.mu.RLock()
	listeners := append([]IdentityListener(nil), p.listeners...)
	p.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, identity); err != nil {
			return err
		}
	}
	return nil
}

// CreateAccount stores a new password account. The caller is signed in to
// nothing; registration only creates the credential. Errors carry a
// message fit to show the user.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (model.Identity, error) {
	hash, err := p.passwords.Hash(password)
	if err != nil {
		return model.Identity{}, err
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderPassword,
	}
	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return model.Identity{}, fmt.Errorf("the email address %s is already in use by another account", email)
		}
		p.logger.Error("creating account", slog.String("error", err.Error()))
		return model.Identity{}, errors.New("the account could not be created, please try again")
	}

	p.logger.Info("account created", slog.String("account_id", account.ID))
	return identityOf(account), nil
}

// SignIn checks the password and then runs the identity listeners. A
// listener veto is returned unchanged.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (model.Identity, error) {
	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, apperror.Unauthorized("invalid email or password")
		}
		return model.Identity{}, fmt.Errorf("auth: looking up account: %w", err)
	}
	if account.PasswordHash == "" {
		return model.Identity{}, apperror.Unauthorized("this account signs in with " + account.Provider)
	}
	if err := p.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, errBadPassword) {
			return model.Identity{}, apperror.Unauthorized("invalid email or password")
		}
		return model.Identity{}, err
	}

	identity := identityOf(account)
	if err := p.establish(ctx, identity); err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

// SignInExternal is the entry point for federated sign-in. The email must
// already be verified by the external provider. The first sign-in creates
// an account row without a password; if a listener then refuses the
// identity, that row is removed again so a refused sign-in leaves no
// account behind.
func (p *LocalProvider) SignInExternal(ctx context.Context, email, provider string) (model.Identity, error) {
	created := false
	account, err := p.accounts.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if !account.EmailVerified {
			if err := p.accounts.MarkEmailVerified(ctx, account.ID); err != nil {
				return model.Identity{}, fmt.Errorf("auth: verifying account: %w", err)
			}
			account.EmailVerified = true
		}
	case errors.Is(err, apperror.ErrNotFound):
		account = &model.Account{Email: email, Provider: provider, EmailVerified: true}
		if err := p.accounts.CreateAccount(ctx, account); err != nil {
			return model.Identity{}, fmt.Errorf("auth: creating %s account: %w", provider, err)
		}
		created = true
		p.logger.Info("account created", slog.String("account_id", account.ID), slog.String("provider", provider))
	default:
		return model.Identity{}, fmt.Errorf("auth: looking up account: %w", err)
	}

	identity := identityOf(account)
	identity.Provider = provider
	if err := p.establish(ctx, identity); err != nil {
		if created {
			p.discardAccount(ctx, account.ID)
		}
		return model.Identity{}, err
	}
	return identity, nil
}

func (p *LocalProvider) discardAccount(ctx context.Context, id string) {
	if err := p.accounts.DeleteAccount(ctx, id); err != nil {
		p.logger.Error("removing refused account failed",
			slog.String("account_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	p.logger.Info("refused account removed", slog.String("account_id", id))
}

// SignOut invalidates every session token issued to the account before now.
func (p *LocalProvider) SignOut(ctx context.Context, identity model.Identity) error {
	if identity.AccountID == "" {
		return nil
	}
	if err := p.revocations.Revoke(ctx, identity.AccountID, p.now()); err != nil {
		return fmt.Errorf("auth: revoking sessions: %w", err)
	}
	return nil
}

// SendVerificationEmail mails a link to /auth/verify carrying a signed
// token.
func (p *LocalProvider) SendVerificationEmail(ctx context.Context, identity model.Identity) error {
	token, err := p.tokens.IssueVerification(identity.AccountID, identity.Email)
	if err != nil {
		return err
	}
	link := p.publicURL + "/auth/verify?token=" + url.QueryEscape(token)
	if err := p.mailer.SendVerification(ctx, identity.Email, link); err != nil {
		return fmt.Errorf("auth: sending verification email: %w", err)
	}
	return nil
}

// VerifyEmail marks the account named in token as verified.
func (p *LocalProvider) VerifyEmail(ctx context.Context, token string) (model.Identity, error) {
	accountID, email, err := p.tokens.ParseVerification(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return model.Identity{}, apperror.ValidationFailed("token", "verification link has expired")
		}
		return model.Identity{}, apperror.ValidationFailed("token", "verification link is invalid")
	}

	account, err := p.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return model.Identity{}, err
	}
	if account.Email != email {
		return model.Identity{}, apperror.ValidationFailed("token", "verification link is for a different address")
	}
	if err := p.accounts.MarkEmailVerified(ctx, accountID); err != nil {
		return model.Identity{}, err
	}
	account.EmailVerified = true
	return identityOf(account), nil
}

// Validate checks a session token and the account's revocation time.
func (p *LocalProvider) Validate(ctx context.Context, token string) (*model.AuthorizedSession, error) {
	claims, err := p.tokens.ParseSession(token)
	if err != nil {
		return nil, apperror.Unauthorized("session is invalid or expired")
	}

	revokedAt, revoked, err := p.revocations.RevokedAt(ctx, claims.Subject)
	if err != nil {
		return nil, apperror.LookupFailed("session", err)
	}
	if revoked && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(revokedAt) {
		return nil, apperror.Unauthorized("session has been signed out")
	}
	return claims.Session(), nil
}

// IssueSession signs the token for a session the guard has authorized.
func (p *LocalProvider) IssueSession(sess *model.AuthorizedSession) (string, error) {
	return p.tokens.IssueSession(sess)
}

func identityOf(a *model.Account) model.Identity {
	return model.Identity{
		AccountID:     a.ID,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Provider:      a.Provider,
	}
}
