package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carrent/auth-engine/internal/core/domain"
	"github.com/carrent/auth-engine/internal/core/ports"
)

type stubEngine struct {
	snapshotFn   func() ports.Snapshot
	loginFn      func(ctx context.Context, email, password string) *ports.LoginResult
	registerFn   func(ctx context.Context, input ports.RegisterInput) *ports.RegisterResult
	logoutN      int
	updateFn     func(ctx context.Context, input ports.UpdateUserInput) (*domain.LocalUser, *domain.AuthFailure)
	isAdminFn    func(ctx context.Context) bool
	clearCacheFn func(ctx context.Context) error
}

func (s *stubEngine) Snapshot() ports.Snapshot {
	if s.snapshotFn != nil {
		return s.snapshotFn()
	}
	return ports.Snapshot{}
}

func (s *stubEngine) Login(ctx context.Context, email, password string) *ports.LoginResult {
	return s.loginFn(ctx, email, password)
}

func (s *stubEngine) Register(ctx context.Context, input ports.RegisterInput) *ports.RegisterResult {
	return s.registerFn(ctx, input)
}

func (s *stubEngine) Logout(ctx context.Context) { s.logoutN++ }

func (s *stubEngine) UpdateUser(ctx context.Context, input ports.UpdateUserInput) (*domain.LocalUser, *domain.AuthFailure) {
	return s.updateFn(ctx, input)
}

func (s *stubEngine) IsAdminUser(ctx context.Context) bool {
	if s.isAdminFn != nil {
		return s.isAdminFn(ctx)
	}
	return false
}

func (s *stubEngine) ClearRoleCache(ctx context.Context) error {
	if s.clearCacheFn != nil {
		return s.clearCacheFn(ctx)
	}
	return nil
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubEngine{
		loginFn: func(ctx context.Context, email, password string) *ports.LoginResult {
			if email != "alice@example.com" || password != "s3cret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.LoginResult{
				User:    &domain.LocalUser{Email: email, Role: domain.RoleCustomer},
				Session: &domain.Session{AccessToken: "tok"},
			}
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"s3cret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, present := resp["failure"]; present {
		t.Fatalf("success response must not carry a failure")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubEngine{
		loginFn: func(ctx context.Context, email, password string) *ports.LoginResult {
			return &ports.LoginResult{Failure: &domain.AuthFailure{
				Kind: domain.FailInvalidCredentials, Message: "email or password is incorrect",
			}}
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	failure, ok := resp["failure"].(map[string]any)
	if !ok || failure["kind"] != "InvalidCredentials" {
		t.Fatalf("expected typed failure, got %+v", resp)
	}
}

func TestAuthHandler_Login_ValidationError(t *testing.T) {
	h := NewAuthHandler(&stubEngine{
		loginFn: func(ctx context.Context, email, password string) *ports.LoginResult {
			t.Fatalf("engine must not be called on invalid payload")
			return nil
		},
	})

	c, _ := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"x"}`)
	err := h.Login(c)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestAuthHandler_Register_PendingConfirmation(t *testing.T) {
	stub := &stubEngine{
		registerFn: func(ctx context.Context, input ports.RegisterInput) *ports.RegisterResult {
			return &ports.RegisterResult{PendingConfirmation: true}
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/register",
		`{"email":"new@example.com","password":"s3cret","full_name":"New User"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["pending_confirmation"] != true {
		t.Fatalf("expected pending_confirmation, got %+v", resp)
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	stub := &stubEngine{
		registerFn: func(ctx context.Context, input ports.RegisterInput) *ports.RegisterResult {
			return &ports.RegisterResult{Failure: &domain.AuthFailure{
				Kind: domain.FailEmailAlreadyExists, Message: "an account with this email already exists",
			}}
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/register",
		`{"email":"taken@example.com","password":"s3cret","full_name":"Dup"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	stub := &stubEngine{}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/logout", "")
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if stub.logoutN != 1 {
		t.Fatalf("engine logout not called")
	}
}

func TestSessionHandler_Snapshot(t *testing.T) {
	stub := &stubEngine{
		snapshotFn: func() ports.Snapshot {
			return ports.Snapshot{
				Session:         &domain.Session{AccessToken: "tok"},
				User:            &domain.LocalUser{Email: "alice@example.com", Role: domain.RoleAdmin},
				IsAuthenticated: true,
			}
		},
	}
	h := NewSessionHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/session", "")
	if err := h.Snapshot(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["is_authenticated"] != true {
		t.Fatalf("unexpected snapshot: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["role"] != "admin" {
		t.Fatalf("unexpected user in snapshot: %+v", resp)
	}
}

func TestSessionHandler_UpdateMe(t *testing.T) {
	stub := &stubEngine{
		updateFn: func(ctx context.Context, input ports.UpdateUserInput) (*domain.LocalUser, *domain.AuthFailure) {
			if input.FullName == nil || *input.FullName != "New Name" {
				t.Fatalf("unexpected input: %+v", input)
			}
			if input.PhoneNumber != nil {
				t.Fatalf("absent fields must stay nil")
			}
			return &domain.LocalUser{Email: "alice@example.com", FullName: "New Name"}, nil
		},
	}
	h := NewSessionHandler(stub)

	c, rec := newTestContext(t, http.MethodPatch, "/me", `{"full_name":"New Name"}`)
	if err := h.UpdateMe(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionHandler_AdminCheck(t *testing.T) {
	stub := &stubEngine{isAdminFn: func(ctx context.Context) bool { return true }}
	h := NewSessionHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/me/admin", "")
	if err := h.AdminCheck(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]bool
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["is_admin"] {
		t.Fatalf("expected is_admin true, got %+v", resp)
	}
}

func TestSessionHandler_ClearRoleCache(t *testing.T) {
	cleared := false
	stub := &stubEngine{clearCacheFn: func(ctx context.Context) error {
		cleared = true
		return nil
	}}
	h := NewSessionHandler(stub)

	c, rec := newTestContext(t, http.MethodDelete, "/debug/role-cache", "")
	if err := h.ClearRoleCache(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || !cleared {
		t.Fatalf("cache clear not executed (code %d)", rec.Code)
	}
}
