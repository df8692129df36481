package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/identkey"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

// AdminService carries out an administrator's decisions on pending
// requests. Callers must have checked RequireAdmin already.
//
// Approve writes the whitelist entry before deleting the request. A failure
// in between leaves both, which a second Approve cleans up.
type AdminService struct {
	whitelist repository.WhitelistRepository
	pending   repository.PendingRequestRepository
	repairs   repository.RepairRepository
	logger    *slog.Logger
}

func NewAdminService(
	whitelist repository.WhitelistRepository,
	pending repository.PendingRequestRepository,
	repairs repository.RepairRepository,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		whitelist: whitelist,
		pending:   pending,
		repairs:   repairs,
		logger:    logger,
	}
}

func (s *AdminService) Approve(ctx context.Context, key string) error {
	req, err := s.getPending(ctx, key)
	if err != nil {
		return err
	}

	if err := s.whitelist.Add(ctx, key); err != nil {
		return s.failed("whitelist", fmt.Errorf("service/admin: whitelisting %s: %w", key, err))
	}
	if err := s.pending.Delete(ctx, key); err != nil {
		return s.failed("pending request", fmt.Errorf("service/admin: clearing pending request %s: %w", key, err))
	}

	s.logger.Info("pending request approved", slog.String("key", key), slog.String("email", req.Email))
	return nil
}

func (s *AdminService) Reject(ctx context.Context, key string) error {
	req, err := s.getPending(ctx, key)
	if err != nil {
		return err
	}

	if err := s.pending.Delete(ctx, key); err != nil {
		return s.failed("pending request", fmt.Errorf("service/admin: deleting pending request %s: %w", key, err))
	}

	s.logger.Info("pending request rejected", slog.String("key", key), slog.String("email", req.Email))
	return nil
}

// ListPending returns the queue oldest first.
func (s *AdminService) ListPending(ctx context.Context) ([]model.PendingRequest, error) {
	reqs, err := s.pending.List(ctx)
	if err != nil {
		return nil, s.failed("pending request", fmt.Errorf("service/admin: listing pending requests: %w", err))
	}
	return reqs, nil
}

// ListRepairs returns accounts whose profile write failed at registration.
func (s *AdminService) ListRepairs(ctx context.Context) ([]model.ProfileRepair, error) {
	repairs, err := s.repairs.List(ctx)
	if err != nil {
		return nil, s.failed("profile repair", fmt.Errorf("service/admin: listing profile repairs: %w", err))
	}
	return repairs, nil
}

// SeedWhitelist whitelists emails directly, without a prior request, and
// drops any request they had queued. It stops at the first failure and
// reports how many were written.
func (s *AdminService) SeedWhitelist(ctx context.Context, emails ...string) (int, error) {
	for i, email := range emails {
		if err := validation.Validate(email, validation.Required, is.Email); err != nil {
			return i, apperror.ValidationFailed("email", fmt.Sprintf("%q: %v", email, err))
		}
		key := identkey.Encode(email)
		if err := s.whitelist.Add(ctx, key); err != nil {
			return i, s.failed("whitelist", fmt.Errorf("service/admin: whitelisting %s: %w", email, err))
		}
		if err := s.pending.Delete(ctx, key); err != nil {
			return i + 1, s.failed("pending request", fmt.Errorf("service/admin: clearing pending request for %s: %w", email, err))
		}
		s.logger.Info("email whitelisted", slog.String("key", key))
	}
	return len(emails), nil
}

func (s *AdminService) getPending(ctx context.Context, key string) (*model.PendingRequest, error) {
	if _, err := identkey.Decode(key); err != nil {
		return nil, err
	}
	req, err := s.pending.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("pending request", key)
		}
		return nil, s.failed("pending request", fmt.Errorf("service/admin: reading pending request %s: %w", key, err))
	}
	return req, nil
}

func (s *AdminService) failed(what string, err error) error {
	s.logger.Error("store operation failed", slog.String("store", what), slog.String("error", err.Error()))
	return storeFailure(what, err)
}
