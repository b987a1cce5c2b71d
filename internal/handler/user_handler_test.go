package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/voiceman/internal/model"
	"github.com/hitoshi/voiceman/internal/user"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	createUserFn   func(ctx context.Context, username, email, password string) (*model.User, error)
	authenticateFn func(ctx context.Context, usernameOrEmail, password string) (*model.User, error)
	getUserFn      func(ctx context.Context, userID int64) (*model.User, error)
	updateUserFn   func(ctx context.Context, userID int64, update user.UserUpdate) (*model.User, error)
	deleteUserFn   func(ctx context.Context, userID int64) bool
}

func (m *mockUserService) CreateUser(ctx context.Context, username, email, password string) (*model.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, username, email, password)
	}
	return nil, nil
}
func (m *mockUserService) Authenticate(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, usernameOrEmail, password)
	}
	return nil, nil
}
func (m *mockUserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockUserService) UpdateUser(ctx context.Context, userID int64, update user.UserUpdate) (*model.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, userID, update)
	}
	return nil, nil
}
func (m *mockUserService) DeleteUser(ctx context.Context, userID int64) bool {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(ctx, userID)
	}
	return false
}

// withURLParam はchiのURLパラメータをリクエストに注入する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- POST /api/auth/register テスト ---

func TestUserHandler_Register_Success(t *testing.T) {
	svc := &mockUserService{
		createUserFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			if username != "hitoshi" || email != "h@example.com" || password != "pass" {
				t.Errorf("unexpected args: %q %q %q", username, email, password)
			}
			return &model.User{ID: 1, Username: username, Email: email, PasswordHash: "hashed"}, nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"username":"hitoshi","email":"h@example.com","password":"pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	// パスワードハッシュがレスポンスに含まれないこと
	if strings.Contains(w.Body.String(), "hashed") {
		t.Error("response must not contain the password hash")
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != 1 || got.Username != "hitoshi" {
		t.Errorf("response = %+v", got)
	}
}

func TestUserHandler_Register_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestUserHandler_Register_DuplicateUsername(t *testing.T) {
	svc := &mockUserService{
		createUserFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewUsernameTakenError()
		},
	}
	h := NewUserHandler(svc)

	body := `{"username":"taken","email":"h@example.com","password":"pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}

// --- POST /api/auth/login テスト ---

func TestUserHandler_Login_Success(t *testing.T) {
	svc := &mockUserService{
		authenticateFn: func(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
			return &model.User{ID: 2, Username: "hitoshi"}, nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"username_or_email":"hitoshi","password":"pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestUserHandler_Login_WrongPassword(t *testing.T) {
	svc := &mockUserService{
		authenticateFn: func(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
			return nil, model.NewNotAuthenticatedError()
		},
	}
	h := NewUserHandler(svc)

	body := `{"username_or_email":"hitoshi","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /api/users/{id} テスト ---

func TestUserHandler_GetProfile_Success(t *testing.T) {
	svc := &mockUserService{
		getUserFn: func(ctx context.Context, userID int64) (*model.User, error) {
			if userID != 5 {
				t.Errorf("userID = %d, want 5", userID)
			}
			return &model.User{ID: userID, Username: "hitoshi"}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/5", nil)
	req = withURLParam(req, "id", "5")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestUserHandler_GetProfile_NotFound(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/999", nil)
	req = withURLParam(req, "id", "999")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestUserHandler_GetProfile_InvalidID(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/abc", nil)
	req = withURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- PUT /api/users/{id} テスト ---

func TestUserHandler_UpdateProfile_PartialFields(t *testing.T) {
	svc := &mockUserService{
		updateUserFn: func(ctx context.Context, userID int64, update user.UserUpdate) (*model.User, error) {
			if update.Username == nil || *update.Username != "renamed" {
				t.Errorf("Username = %v, want renamed", update.Username)
			}
			if update.Email != nil {
				t.Error("Email should be nil when not specified")
			}
			return &model.User{ID: userID, Username: "renamed"}, nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"username":"renamed"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/1", strings.NewReader(body))
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// --- DELETE /api/users/{id} テスト ---

func TestUserHandler_DeleteAccount_Success(t *testing.T) {
	svc := &mockUserService{
		deleteUserFn: func(ctx context.Context, userID int64) bool {
			return true
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/1", nil)
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	h.DeleteAccount(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestUserHandler_DeleteAccount_NotFound(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/999", nil)
	req = withURLParam(req, "id", "999")
	w := httptest.NewRecorder()

	h.DeleteAccount(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
