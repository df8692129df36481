package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
)

var (
	_ WhitelistRepository      = (*KVWhitelist)(nil)
	_ PendingRequestRepository = (*KVPendingRequests)(nil)
	_ ProfileRepository        = (*KVProfiles)(nil)
	_ RepairRepository         = (*KVRepairs)(nil)
	_ ObjectRepository         = (*KVObjects)(nil)
	_ ProducerRepository       = (*KVProducers)(nil)
	_ RevocationRepository     = (*KVRevocations)(nil)
)

// KVWhitelist stores whitelistedEmails/{key} = true.
type KVWhitelist struct{ store Store }

func NewKVWhitelist(store Store) *KVWhitelist { return &KVWhitelist{store: store} }

// IsWhitelisted returns (false, nil) only when the entry is confirmed
// absent. Any other failure is returned as an error so callers can tell the
// two apart.
func (w *KVWhitelist) IsWhitelisted(ctx context.Context, key string) (bool, error) {
	raw, err := w.store.Get(ctx, WhitelistPath(key))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("repository: reading whitelist entry: %w", err)
	}
	var present bool
	if err := json.Unmarshal(raw, &present); err != nil {
		return false, fmt.Errorf("repository: decoding whitelist entry: %w", err)
	}
	return present, nil
}

func (w *KVWhitelist) Add(ctx context.Context, key string) error {
	if err := w.store.Set(ctx, WhitelistPath(key), []byte("true")); err != nil {
		return fmt.Errorf("repository: writing whitelist entry: %w", err)
	}
	return nil
}

// pendingRecord is the stored shape of a pending request. requestedAt is
// unix milliseconds.
type pendingRecord struct {
	Email       string `json:"email"`
	RequestedAt int64  `json:"requestedAt"`
}

// KVPendingRequests stores pendingRequests/{key}.
type KVPendingRequests struct{ store Store }

func NewKVPendingRequests(store Store) *KVPendingRequests {
	return &KVPendingRequests{store: store}
}

func (p *KVPendingRequests) Get(ctx context.Context, key string) (*model.PendingRequest, error) {
	raw, err := p.store.Get(ctx, PendingPath(key))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("pending request", key)
		}
		return nil, fmt.Errorf("repository: reading pending request: %w", err)
	}
	return decodePending(key, raw)
}

func (p *KVPendingRequests) Upsert(ctx context.Context, req *model.PendingRequest) error {
	raw, err := json.Marshal(pendingRecord{
		Email:       req.Email,
		RequestedAt: req.RequestedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("repository: encoding pending request: %w", err)
	}
	if err := p.store.Set(ctx, PendingPath(req.Key), raw); err != nil {
		return fmt.Errorf("repository: writing pending request: %w", err)
	}
	return nil
}

func (p *KVPendingRequests) Delete(ctx context.Context, key string) error {
	if err := p.store.Delete(ctx, PendingPath(key)); err != nil {
		return fmt.Errorf("repository: deleting pending request: %w", err)
	}
	return nil
}

// List returns every pending request, oldest first.
func (p *KVPendingRequests) List(ctx context.Context) ([]model.PendingRequest, error) {
	entries, err := p.store.List(ctx, PendingNode)
	if err != nil {
		return nil, fmt.Errorf("repository: listing pending requests: %w", err)
	}
	out := make([]model.PendingRequest, 0, len(entries))
	for path, raw := range entries {
		req, err := decodePending(LastSegment(path), raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}

func decodePending(key string, raw []byte) (*model.PendingRequest, error) {
	var rec pendingRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("repository: decoding pending request %s: %w", key, err)
	}
	return &model.PendingRequest{
		Key:         key,
		Email:       rec.Email,
		RequestedAt: time.UnixMilli(rec.RequestedAt).UTC(),
	}, nil
}

// KVProfiles stores users/{accountId}/email and users/{accountId}/userType.
// A profile exists once its userType is written, so Create writes it last.
type KVProfiles struct{ store Store }

func NewKVProfiles(store Store) *KVProfiles { return &KVProfiles{store: store} }

func (p *KVProfiles) Get(ctx context.Context, accountID string) (*model.UserProfile, error) {
	rawType, err := p.store.Get(ctx, UserTypePath(accountID))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user profile", accountID)
		}
		return nil, fmt.Errorf("repository: reading user type: %w", err)
	}
	var userType model.UserType
	if err := json.Unmarshal(rawType, &userType); err != nil {
		return nil, fmt.Errorf("repository: decoding user type: %w", err)
	}

	profile := &model.UserProfile{AccountID: accountID, UserType: userType}

	rawEmail, err := p.store.Get(ctx, UserEmailPath(accountID))
	switch {
	case err == nil:
		if err := json.Unmarshal(rawEmail, &profile.Email); err != nil {
			return nil, fmt.Errorf("repository: decoding profile email: %w", err)
		}
	case errors.Is(err, apperror.ErrNotFound):
		// profiles promoted out-of-band may carry only a userType
	default:
		return nil, fmt.Errorf("repository: reading profile email: %w", err)
	}

	return profile, nil
}

func (p *KVProfiles) Create(ctx context.Context, profile *model.UserProfile) error {
	if !profile.UserType.Valid() {
		return apperror.ValidationFailed("userType", fmt.Sprintf("unknown user type %q", profile.UserType))
	}
	email, _ := json.Marshal(profile.Email)
	if err := p.store.Set(ctx, UserEmailPath(profile.AccountID), email); err != nil {
		return fmt.Errorf("repository: writing profile email: %w", err)
	}
	userType, _ := json.Marshal(profile.UserType)
	if err := p.store.Set(ctx, UserTypePath(profile.AccountID), userType); err != nil {
		return fmt.Errorf("repository: writing user type: %w", err)
	}
	return nil
}

// KVRepairs stores profileRepairs/{accountId}.
type KVRepairs struct{ store Store }

func NewKVRepairs(store Store) *KVRepairs { return &KVRepairs{store: store} }

func (r *KVRepairs) Flag(ctx context.Context, repair *model.ProfileRepair) error {
	raw, err := json.Marshal(repair)
	if err != nil {
		return fmt.Errorf("repository: encoding profile repair: %w", err)
	}
	if err := r.store.Set(ctx, RepairPath(repair.AccountID), raw); err != nil {
		return fmt.Errorf("repository: writing profile repair: %w", err)
	}
	return nil
}

func (r *KVRepairs) List(ctx context.Context) ([]model.ProfileRepair, error) {
	entries, err := r.store.List(ctx, RepairsNode)
	if err != nil {
		return nil, fmt.Errorf("repository: listing profile repairs: %w", err)
	}
	out := make([]model.ProfileRepair, 0, len(entries))
	for path, raw := range entries {
		var repair model.ProfileRepair
		if err := json.Unmarshal(raw, &repair); err != nil {
			return nil, fmt.Errorf("repository: decoding profile repair %s: %w", path, err)
		}
		out = append(out, repair)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlaggedAt.Before(out[j].FlaggedAt) })
	return out, nil
}

// KVObjects stores objects/{id} as JSON documents.
type KVObjects struct{ store Store }

func NewKVObjects(store Store) *KVObjects { return &KVObjects{store: store} }

func (o *KVObjects) Create(ctx context.Context, obj *model.CatalogObject) error {
	return o.put(ctx, obj)
}

func (o *KVObjects) GetByID(ctx context.Context, id string) (*model.CatalogObject, error) {
	raw, err := o.store.Get(ctx, ObjectPath(id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("object", id)
		}
		return nil, fmt.Errorf("repository: reading object %s: %w", id, err)
	}
	var obj model.CatalogObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("repository: decoding object %s: %w", id, err)
	}
	obj.ID = id
	return &obj, nil
}

func (o *KVObjects) List(ctx context.Context) ([]model.CatalogObject, error) {
	entries, err := o.store.List(ctx, ObjectsNode)
	if err != nil {
		return nil, fmt.Errorf("repository: listing objects: %w", err)
	}
	out := make([]model.CatalogObject, 0, len(entries))
	for path, raw := range entries {
		var obj model.CatalogObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("repository: decoding object %s: %w", path, err)
		}
		obj.ID = LastSegment(path)
		out = append(out, obj)
	}
	return out, nil
}

func (o *KVObjects) Update(ctx context.Context, obj *model.CatalogObject) error {
	if _, err := o.GetByID(ctx, obj.ID); err != nil {
		return err
	}
	return o.put(ctx, obj)
}

func (o *KVObjects) Delete(ctx context.Context, id string) error {
	if _, err := o.GetByID(ctx, id); err != nil {
		return err
	}
	if err := o.store.Delete(ctx, ObjectPath(id)); err != nil {
		return fmt.Errorf("repository: deleting object %s: %w", id, err)
	}
	return nil
}

func (o *KVObjects) put(ctx context.Context, obj *model.CatalogObject) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("repository: encoding object %s: %w", obj.ID, err)
	}
	if err := o.store.Set(ctx, ObjectPath(obj.ID), raw); err != nil {
		return fmt.Errorf("repository: writing object %s: %w", obj.ID, err)
	}
	return nil
}

// KVProducers stores producers/{id} as JSON documents.
type KVProducers struct{ store Store }

func NewKVProducers(store Store) *KVProducers { return &KVProducers{store: store} }

func (r *KVProducers) Create(ctx context.Context, p *model.Producer) error {
	return r.put(ctx, p)
}

func (r *KVProducers) GetByID(ctx context.Context, id string) (*model.Producer, error) {
	raw, err := r.store.Get(ctx, ProducerPath(id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("producer", id)
		}
		return nil, fmt.Errorf("repository: reading producer %s: %w", id, err)
	}
	var p model.Producer
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("repository: decoding producer %s: %w", id, err)
	}
	p.ID = id
	return &p, nil
}

func (r *KVProducers) List(ctx context.Context) ([]model.Producer, error) {
	entries, err := r.store.List(ctx, ProducersNode)
	if err != nil {
		return nil, fmt.Errorf("repository: listing producers: %w", err)
	}
	out := make([]model.Producer, 0, len(entries))
	for path, raw := range entries {
		var p model.Producer
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("repository: decoding producer %s: %w", path, err)
		}
		p.ID = LastSegment(path)
		out = append(out, p)
	}
	return out, nil
}

func (r *KVProducers) Update(ctx context.Context, p *model.Producer) error {
	if _, err := r.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return r.put(ctx, p)
}

func (r *KVProducers) Delete(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, ProducerPath(id)); err != nil {
		return fmt.Errorf("repository: deleting producer %s: %w", id, err)
	}
	return nil
}

func (r *KVProducers) put(ctx context.Context, p *model.Producer) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("repository: encoding producer %s: %w", p.ID, err)
	}
	if err := r.store.Set(ctx, ProducerPath(p.ID), raw); err != nil {
		return fmt.Errorf("repository: writing producer %s: %w", p.ID, err)
	}
	return nil
}

// KVRevocations stores revokedSessions/{accountId} as unix seconds.
type KVRevocations struct{ store Store }

func NewKVRevocations(store Store) *KVRevocations { return &KVRevocations{store: store} }

func (r *KVRevocations) Revoke(ctx context.Context, accountID string, at time.Time) error {
	value := strconv.FormatInt(at.Unix(), 10)
	if err := r.store.Set(ctx, RevocationPath(accountID), []byte(value)); err != nil {
		return fmt.Errorf("repository: writing session revocation: %w", err)
	}
	return nil
}

func (r *KVRevocations) RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	raw, err := r.store.Get(ctx, RevocationPath(accountID))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("repository: reading session revocation: %w", err)
	}
	secs, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: decoding session revocation: %w", err)
	}
	return time.Unix(secs, 0), true, nil
}
