package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

func TestLogin_Success(t *testing.T) {
	provider := &stubProvider{
		signInFn: func(ctx context.Context, email, password string) (*domain.Session, error) {
			return testSession("u1", email), nil
		},
	}
	profiles := &stubProfiles{
		findFn: func(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
			return &domain.Profile{ID: "p1", Email: value, Role: domain.RoleCustomer, IsActive: true}, nil
		},
	}
	e, warmer := newTestEngine(testConfig(), provider, profiles, newStubRoles())

	res := e.Login(context.Background(), "u1@example.com", "s3cret")
	if !res.OK() {
		t.Fatalf("login failed: %+v", res.Failure)
	}
	if res.User == nil || res.User.ID != "p1" {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	snap := e.Snapshot()
	if !snap.IsAuthenticated || snap.OperationLoading {
		t.Fatalf("unexpected state after login: %+v", snap)
	}

	// Cache warm is fire-and-forget; give it a beat.
	deadline := time.After(time.Second)
	for {
		warmer.mu.Lock()
		n := len(warmer.calls)
		warmer.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("vehicle cache warm was not triggered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestLogin_InvalidCredentials_TypedFailure(t *testing.T) {
	e, _ := newTestEngine(testConfig(), &stubProvider{}, &stubProfiles{}, newStubRoles())

	res := e.Login(context.Background(), "u1@example.com", "wrong")
	if res.OK() {
		t.Fatalf("expected failure")
	}
	if res.Failure.Kind != domain.FailInvalidCredentials {
		t.Fatalf("expected InvalidCredentials, got %s", res.Failure.Kind)
	}
	if snap := e.Snapshot(); snap.IsAuthenticated {
		t.Fatalf("failed login must not authenticate")
	}
}

func TestLogin_ProfileStoreTimeout_StillAuthenticates(t *testing.T) {
	cfg := testConfig()
	cfg.ProfileLookupTimeout = 10 * time.Millisecond
	cfg.RoleLookupTimeout = 10 * time.Millisecond
	provider := &stubProvider{
		signInFn: func(ctx context.Context, email, password string) (*domain.Session, error) {
			return testSession("u1", email), nil
		},
	}
	profiles := &stubProfiles{
		findFn: func(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
			time.Sleep(200 * time.Millisecond)
			return nil, domain.ErrProfileNotFound
		},
	}
	e, _ := newTestEngine(cfg, provider, profiles, newStubRoles())

	res := e.Login(context.Background(), "u1@example.com", "s3cret")
	if !res.OK() {
		t.Fatalf("a hanging profile store must not fail the login: %+v", res.Failure)
	}
	if res.User == nil || res.User.Role != domain.RoleCustomer {
		t.Fatalf("expected synthesized customer user, got %+v", res.User)
	}
	if snap := e.Snapshot(); !snap.IsAuthenticated {
		t.Fatalf("credential exchange succeeded, state must be authenticated")
	}
}

func TestRegister_PendingConfirmation(t *testing.T) {
	provider := &stubProvider{
		signUpFn: func(ctx context.Context, email, password string, metadata map[string]string) (*ports.SignUpResult, error) {
			return &ports.SignUpResult{
				Identity: &domain.IdentityRecord{ID: "u1", Email: email, Metadata: metadata},
			}, nil
		},
	}
	e, _ := newTestEngine(testConfig(), provider, &stubProfiles{}, newStubRoles())

	res := e.Register(context.Background(), ports.RegisterInput{
		Email: "new@example.com", Password: "s3cret", FullName: "New User",
	})
	if !res.OK() {
		t.Fatalf("register failed: %+v", res.Failure)
	}
	if !res.PendingConfirmation {
		t.Fatalf("withheld session must surface as pending confirmation")
	}
	if snap := e.Snapshot(); snap.IsAuthenticated {
		t.Fatalf("pending confirmation must not authenticate")
	}
}

func TestRegister_ProfileInsertTimeout_NonFatal(t *testing.T) {
	cfg := testConfig()
	cfg.ProfileCreateTimeout = 10 * time.Millisecond
	provider := &stubProvider{
		signUpFn: func(ctx context.Context, email, password string, metadata map[string]string) (*ports.SignUpResult, error) {
			s := testSession("u1", email)
			return &ports.SignUpResult{Identity: s.Identity, Session: s}, nil
		},
	}
	profiles := &stubProfiles{
		insertFn: func(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
			time.Sleep(200 * time.Millisecond)
			return nil, errors.New("store down")
		},
	}
	e, _ := newTestEngine(cfg, provider, profiles, newStubRoles())

	res := e.Register(context.Background(), ports.RegisterInput{
		Email: "new@example.com", Password: "s3cret", FullName: "New User",
	})
	if !res.OK() {
		t.Fatalf("profile insert timeout must not fail registration: %+v", res.Failure)
	}
	if res.User == nil {
		t.Fatalf("expected a resolved user despite the failed insert")
	}
	if snap := e.Snapshot(); !snap.IsAuthenticated {
		t.Fatalf("registration with a session must authenticate")
	}
}

func TestRegister_FailedInsert_LoginResolvesAgain(t *testing.T) {
	cfg := testConfig()
	cfg.ProfileCreateTimeout = 10 * time.Millisecond
	provider := &stubProvider{
		signUpFn: func(ctx context.Context, email, password string, metadata map[string]string) (*ports.SignUpResult, error) {
			s := testSession("u1", email)
			return &ports.SignUpResult{Identity: s.Identity, Session: s}, nil
		},
		signInFn: func(ctx context.Context, email, password string) (*domain.Session, error) {
			return testSession("u1", email), nil
		},
	}

	// The insert hangs during register; by login time the store has recovered.
	storeUp := false
	profiles := &stubProfiles{
		insertFn: func(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
			time.Sleep(200 * time.Millisecond)
			return nil, errors.New("store down")
		},
		findFn: func(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
			if !storeUp {
				return nil, domain.ErrProfileNotFound
			}
			return &domain.Profile{ID: "p1", Email: "new@example.com", Role: domain.RoleCustomer, IsActive: true}, nil
		},
	}
	e, _ := newTestEngine(cfg, provider, profiles, newStubRoles())

	if res := e.Register(context.Background(), ports.RegisterInput{Email: "new@example.com", Password: "s3cret"}); !res.OK() {
		t.Fatalf("register must succeed despite the failed insert: %+v", res.Failure)
	}

	storeUp = true
	res := e.Login(context.Background(), "new@example.com", "s3cret")
	if !res.OK() {
		t.Fatalf("login failed: %+v", res.Failure)
	}
	if res.User == nil || res.User.ID != "p1" {
		t.Fatalf("login must re-resolve against the recovered store, got %+v", res.User)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e, _ := newTestEngine(testConfig(), &stubProvider{}, &stubProfiles{}, newStubRoles())

	res := e.Register(context.Background(), ports.RegisterInput{
		Email: "taken@example.com", Password: "s3cret",
	})
	if res.OK() {
		t.Fatalf("expected failure")
	}
	if res.Failure.Kind != domain.FailEmailAlreadyExists {
		t.Fatalf("expected EmailAlreadyExists, got %s", res.Failure.Kind)
	}
}

func TestLogout_ClearsStateBeforeNetwork(t *testing.T) {
	released := make(chan struct{})
	var stateAtSignOut ports.Snapshot
	provider := &stubProvider{}
	e, _ := newTestEngine(testConfig(), provider, &stubProfiles{}, newStubRoles())
	provider.signOutFn = func(ctx context.Context) error {
		stateAtSignOut = e.Snapshot()
		close(released)
		return nil
	}

	e.setAuthenticated(testSession("u1", "u1@example.com"), &domain.LocalUser{Email: "u1@example.com"})
	e.Logout(context.Background())

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatalf("remote sign-out was never attempted")
	}
	if stateAtSignOut.IsAuthenticated {
		t.Fatalf("local state must be cleared before the network call")
	}
}

func TestLogout_HangingSignOut_StillSignsOut(t *testing.T) {
	cfg := testConfig()
	cfg.SignOutTimeout = 10 * time.Millisecond
	provider := &stubProvider{
		signOutFn: func(ctx context.Context) error {
			time.Sleep(200 * time.Millisecond)
			return errors.New("backend hang")
		},
	}
	roles := newStubRoles()
	_ = roles.SetRole(context.Background(), "u1", domain.RoleAdmin)
	e, _ := newTestEngine(cfg, provider, &stubProfiles{}, roles)

	e.setAuthenticated(testSession("u1", "u1@example.com"), &domain.LocalUser{Email: "u1@example.com", Role: domain.RoleAdmin})

	start := time.Now()
	e.Logout(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("logout must not block on a hanging sign-out, took %s", elapsed)
	}

	snap := e.Snapshot()
	if snap.IsAuthenticated || snap.Session != nil || snap.User != nil {
		t.Fatalf("logout must always end unauthenticated: %+v", snap)
	}
	if _, ok, _ := roles.GetRole(context.Background(), "u1"); ok {
		t.Fatalf("logout must clear the role cache")
	}
	if roles.clearCalls() != 1 {
		t.Fatalf("expected one cache clear, got %d", roles.clearCalls())
	}
}

func TestUpdateUser_PartialMerge(t *testing.T) {
	provider := &stubProvider{}
	profiles := &stubProfiles{
		findFn: func(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
			return &domain.Profile{ID: "p1", Email: "u1@example.com", FullName: "Old Name", Role: domain.RoleCustomer}, nil
		},
	}
	e, _ := newTestEngine(testConfig(), provider, profiles, newStubRoles())

	e.setAuthenticated(testSession("u1", "u1@example.com"), &domain.LocalUser{
		ID: "p1", Email: "u1@example.com", FullName: "Old Name", PhoneNumber: "111", Role: domain.RoleCustomer,
	})

	newName := "New Name"
	user, failure := e.UpdateUser(context.Background(), ports.UpdateUserInput{FullName: &newName})
	if failure != nil {
		t.Fatalf("update failed: %+v", failure)
	}
	if user.FullName != "New Name" {
		t.Fatalf("full name not updated: %+v", user)
	}
	if user.PhoneNumber != "111" {
		t.Fatalf("untouched fields must be preserved: %+v", user)
	}

	writes := provider.metadataWrites()
	if len(writes) != 1 || writes[0]["full_name"] != "New Name" {
		t.Fatalf("metadata not updated: %+v", writes)
	}
	if snap := e.Snapshot(); snap.User.FullName != "New Name" {
		t.Fatalf("in-memory user not replaced")
	}
}

func TestUpdateUser_NoSession(t *testing.T) {
	e, _ := newTestEngine(testConfig(), &stubProvider{}, &stubProfiles{}, newStubRoles())

	name := "X"
	if _, failure := e.UpdateUser(context.Background(), ports.UpdateUserInput{FullName: &name}); failure == nil {
		t.Fatalf("update without a session must fail")
	}
}

func TestIsAdminUser_FreshCheck(t *testing.T) {
	profiles := &stubProfiles{
		findFn: func(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
			return &domain.Profile{ID: "p1", Role: domain.RoleAdmin}, nil
		},
	}
	e, _ := newTestEngine(testConfig(), &stubProvider{}, profiles, newStubRoles())

	if e.IsAdminUser(context.Background()) {
		t.Fatalf("no session means not admin")
	}

	e.setAuthenticated(testSession("u1", "u1@example.com"), &domain.LocalUser{Email: "u1@example.com", Role: domain.RoleCustomer})
	if !e.IsAdminUser(context.Background()) {
		t.Fatalf("store says admin, check must agree")
	}
}

func TestIsAdminUser_StoreDown_FallsBackToCurrentRole(t *testing.T) {
	profiles := &stubProfiles{
		findFn: func(ctx context.Context, field ports.ProfileField, value string) (*domain.Profile, error) {
			return nil, errors.New("store down")
		},
	}
	e, _ := newTestEngine(testConfig(), &stubProvider{}, profiles, newStubRoles())

	e.setAuthenticated(testSession("u1", "u1@example.com"), &domain.LocalUser{Email: "u1@example.com", Role: domain.RoleAdmin})
	if !e.IsAdminUser(context.Background()) {
		t.Fatalf("store outage must fall back to the in-memory role")
	}
}
