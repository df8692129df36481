package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/identkey"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

// profileRepairMessage is shown when the account exists but its profile
// could not be written.
const profileRepairMessage = "your account was created but could not be fully set up; an administrator has been notified"

// RegistrationService is the gate in front of account creation. Only
// whitelisted addresses get an account; everyone else is queued for an
// administrator.
type RegistrationService struct {
	whitelist repository.WhitelistRepository
	pending   repository.PendingRequestRepository
	profiles  repository.ProfileRepository
	repairs   repository.RepairRepository
	provider  AccountProvider
	retry     RetryPolicy
	logger    *slog.Logger
	now       func() time.Time
}

func NewRegistrationService(
	whitelist repository.WhitelistRepository,
	pending repository.PendingRequestRepository,
	profiles repository.ProfileRepository,
	repairs repository.RepairRepository,
	provider AccountProvider,
	retry RetryPolicy,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		whitelist: whitelist,
		pending:   pending,
		profiles:  profiles,
		repairs:   repairs,
		provider:  provider,
		retry:     retry,
		logger:    logger,
		now:       time.Now,
	}
}

type registerInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in registerInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

// Register either queues email for approval or creates the account and its
// profile. Each call does exactly one of the two.
func (s *RegistrationService) Register(ctx context.Context, email, password string) (model.RegistrationOutcome, error) {
	if err := (registerInput{Email: email, Password: password}).Validate(); err != nil {
		return "", validationError(err)
	}

	key := identkey.Encode(email)

	var whitelisted bool
	err := s.retry.do(ctx, func() error {
		var err error
		whitelisted, err = s.whitelist.IsWhitelisted(ctx, key)
		return err
	})
	if err != nil {
		s.logger.Error("whitelist lookup failed", slog.String("key", key), slog.String("error", err.Error()))
		return "", apperror.LookupFailed("whitelist", err)
	}

	if !whitelisted {
		return s.queue(ctx, key, email)
	}
	return s.createAccount(ctx, email, password)
}

func (s *RegistrationService) queue(ctx context.Context, key, email string) (model.RegistrationOutcome, error) {
	req := &model.PendingRequest{Key: key, Email: email, RequestedAt: s.now()}
	if err := s.pending.Upsert(ctx, req); err != nil {
		s.logger.Error("pending request not recorded", slog.String("key", key), slog.String("error", err.Error()))
		return "", storeFailure("pending request", fmt.Errorf("service/registration: recording pending request: %w", err))
	}
	s.logger.Info("registration queued for approval", slog.String("key", key))
	return model.OutcomePendingApproval, nil
}

func (s *RegistrationService) createAccount(ctx context.Context, email, password string) (model.RegistrationOutcome, error) {
	identity, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return "", apperror.AccountCreationFailed(err.Error())
	}

	profile := &model.UserProfile{
		AccountID: identity.AccountID,
		Email:     email,
		UserType:  model.UserTypeRegular,
	}
	err = s.retry.do(ctx, func() error {
		return s.profiles.Create(ctx, profile)
	})
	if err != nil {
		s.flagRepair(ctx, identity, err)
		return "", apperror.AccountCreationFailed(profileRepairMessage)
	}

	if err := s.provider.SendVerificationEmail(ctx, identity); err != nil {
		s.logger.Warn("verification email not sent",
			slog.String("account_id", identity.AccountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("account registered", slog.String("account_id", identity.AccountID))
	return model.OutcomeRegistered, nil
}

// flagRepair records an account that exists without a profile. If even the
// flag cannot be written the log line is the only trace left.
func (s *RegistrationService) flagRepair(ctx context.Context, identity model.Identity, cause error) {
	s.logger.Error("profile write failed after account creation",
		slog.String("account_id", identity.AccountID),
		slog.String("error", cause.Error()),
	)
	repair := &model.ProfileRepair{
		AccountID: identity.AccountID,
		Email:     identity.Email,
		Reason:    cause.Error(),
		FlaggedAt: s.now(),
	}
	if err := s.repairs.Flag(ctx, repair); err != nil {
		s.logger.Error("could not flag account for profile repair",
			slog.String("account_id", identity.AccountID),
			slog.String("error", err.Error()),
		)
	}
}
