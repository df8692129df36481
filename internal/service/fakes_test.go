package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
	"github.com/sakif/family-catalog/internal/repository/memory"
	"github.com/sakif/family-catalog/internal/session"
)

// =========================================================================
// FAULTY STORE
// =========================================================================
//
// faultyStore is an in-memory store that can be told to fail the next N
// reads or writes under a top-level node ("whitelistedEmails", "users",
// ...). A negative N fails forever.

var errTransient = errors.New("store unavailable")

type faultyStore struct {
	*memory.Store

	mu       sync.Mutex
	getFails map[string]int
	setFails map[string]int
	delFails map[string]int
	gets     map[string]int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:    memory.New(),
		getFails: make(map[string]int),
		setFails: make(map[string]int),
		delFails: make(map[string]int),
		gets:     make(map[string]int),
	}
}

func topNode(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func (f *faultyStore) fail(m map[string]int, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := m[topNode(path)]
	if n == 0 {
		return nil
	}
	if n > 0 {
		m[topNode(path)] = n - 1
	}
	return errTransient
}

func (f *faultyStore) Get(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.gets[topNode(path)]++
	f.mu.Unlock()
	if err := f.fail(f.getFails, path); err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, path)
}

func (f *faultyStore) Set(ctx context.Context, path string, value []byte) error {
	if err := f.fail(f.setFails, path); err != nil {
		return err
	}
	return f.Store.Set(ctx, path, value)
}

func (f *faultyStore) Delete(ctx context.Context, path string) error {
	if err := f.fail(f.delFails, path); err != nil {
		return err
	}
	return f.Store.Delete(ctx, path)
}

func (f *faultyStore) getCount(node string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[node]
}

// =========================================================================
// FAKE IDENTITY PROVIDER
// =========================================================================

type fakeProvider struct {
	mu sync.Mutex

	createErr error
	verifyErr error
	nextID    int
	created   []model.Identity
	verified  []string
	signedOut []model.Identity
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, _ string) (model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return model.Identity{}, p.createErr
	}
	p.nextID++
	id := model.Identity{
		AccountID: fmt.Sprintf("acc-%d", p.nextID),
		Email:     email,
		Provider:  "password",
	}
	p.created = append(p.created, id)
	return id, nil
}

func (p *fakeProvider) SendVerificationEmail(_ context.Context, identity model.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifyErr != nil {
		return p.verifyErr
	}
	p.verified = append(p.verified, identity.Email)
	return nil
}

func (p *fakeProvider) SignOut(_ context.Context, identity model.Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedOut = append(p.signedOut, identity)
	return nil
}

// =========================================================================
// FIXTURE
// =========================================================================

type fixture struct {
	store    *faultyStore
	provider *fakeProvider
	state    *session.State
	events   []session.Event
	now      time.Time

	whitelist *repository.KVWhitelist
	pending   *repository.KVPendingRequests
	profiles  *repository.KVProfiles
	repairs   *repository.KVRepairs

	registration *RegistrationService
	guard        *Guard
	admin        *AdminService
}

var fastRetry = RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    newFaultyStore(),
		provider: &fakeProvider{},
		state:    session.NewState(),
		now:      time.UnixMilli(1_700_000_000_000).UTC(),
	}
	f.whitelist = repository.NewKVWhitelist(f.store)
	f.pending = repository.NewKVPendingRequests(f.store)
	f.profiles = repository.NewKVProfiles(f.store)
	f.repairs = repository.NewKVRepairs(f.store)

	logger := discardLogger()
	clock := func() time.Time { return f.now }

	f.registration = NewRegistrationService(f.whitelist, f.pending, f.profiles, f.repairs, f.provider, fastRetry, logger)
	f.registration.now = clock
	f.guard = NewGuard(f.whitelist, f.profiles, f.provider, f.state, fastRetry, logger)
	f.guard.now = clock
	f.admin = NewAdminService(f.whitelist, f.pending, f.repairs, logger)

	unsubscribe := f.state.Subscribe(func(ev session.Event) { f.events = append(f.events, ev) })
	t.Cleanup(unsubscribe)
	return f
}

func (f *fixture) seed(t *testing.T, emails ...string) {
	t.Helper()
	if _, err := f.admin.SeedWhitelist(context.Background(), emails...); err != nil {
		t.Fatalf("SeedWhitelist: %v", err)
	}
}
