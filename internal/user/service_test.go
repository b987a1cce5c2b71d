package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/voiceman/internal/model"
	"github.com/hitoshi/voiceman/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn              func(ctx context.Context, id int64) (*model.User, error)
	findByUsernameOrEmailFn func(ctx context.Context, usernameOrEmail string) (*model.User, error)
	createFn                func(ctx context.Context, u *model.User) error
	updateFn                func(ctx context.Context, u *model.User) (bool, error)
	deleteWithModelsFn      func(ctx context.Context, id int64) (bool, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error) {
	if m.findByUsernameOrEmailFn != nil {
		return m.findByUsernameOrEmailFn(ctx, usernameOrEmail)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}
func (m *mockUserRepo) Update(ctx context.Context, u *model.User) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return false, nil
}
func (m *mockUserRepo) DeleteWithModels(ctx context.Context, id int64) (bool, error) {
	if m.deleteWithModelsFn != nil {
		return m.deleteWithModelsFn(ctx, id)
	}
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- CreateUser ---

// TestService_CreateUser_Success は登録時にパスワードがbcryptハッシュで
// 保存されることを検証する。
func TestService_CreateUser_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, u *model.User) error {
			u.ID = 10
			created = u
			return nil
		},
	}

	svc := NewService(repo, testLogger())

	u, err := svc.CreateUser(context.Background(), "hitoshi", "hitoshi@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID != 10 {
		t.Errorf("ID = %d, want 10", u.ID)
	}
	if created.PasswordHash == "secret-pass" {
		t.Error("password must not be stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret-pass")); err != nil {
		t.Errorf("stored hash does not match the password: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps should be set before insert")
	}
}

func TestService_CreateUser_Validation(t *testing.T) {
	svc := NewService(&mockUserRepo{}, testLogger())

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"ユーザー名が空", "", "a@example.com", "pass"},
		{"メールアドレスが空", "a", "", "pass"},
		{"パスワードが空", "a", "a@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.username, tt.email, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
		})
	}
}

// TestService_CreateUser_Duplicates は一意制約違反が重複エラーに
// マッピングされることを検証する。
func TestService_CreateUser_Duplicates(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
	}{
		{"ユーザー名の重複", repository.ErrDuplicateUsername, model.ErrCodeUsernameTaken},
		{"メールアドレスの重複", repository.ErrDuplicateEmail, model.ErrCodeEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{
				createFn: func(ctx context.Context, u *model.User) error {
					return tt.repoErr
				},
			}
			svc := NewService(repo, testLogger())

			_, err := svc.CreateUser(context.Background(), "a", "a@example.com", "pass")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

// --- Authenticate ---

func TestService_Authenticate_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-pass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}

	repo := &mockUserRepo{
		findByUsernameOrEmailFn: func(ctx context.Context, usernameOrEmail string) (*model.User, error) {
			return &model.User{ID: 1, Username: "hitoshi", PasswordHash: string(hash)}, nil
		},
	}
	svc := NewService(repo, testLogger())

	u, err := svc.Authenticate(context.Background(), "hitoshi", "correct-pass")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if u.ID != 1 {
		t.Errorf("ID = %d, want 1", u.ID)
	}
}

// TestService_Authenticate_SameErrorForMissingUserAndWrongPassword は
// ユーザー不在とパスワード不一致で同一のエラーが返ること
// （アカウントの存在有無を漏らさない）を検証する。
func TestService_Authenticate_SameErrorForMissingUserAndWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-pass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}

	missingRepo := &mockUserRepo{}
	existingRepo := &mockUserRepo{
		findByUsernameOrEmailFn: func(ctx context.Context, usernameOrEmail string) (*model.User, error) {
			return &model.User{ID: 1, PasswordHash: string(hash)}, nil
		},
	}

	_, errMissing := NewService(missingRepo, testLogger()).Authenticate(context.Background(), "ghost", "whatever")
	_, errWrongPass := NewService(existingRepo, testLogger()).Authenticate(context.Background(), "hitoshi", "wrong-pass")

	var apiErrMissing, apiErrWrong *model.APIError
	if !errors.As(errMissing, &apiErrMissing) || !errors.As(errWrongPass, &apiErrWrong) {
		t.Fatalf("expected APIError for both cases, got %v / %v", errMissing, errWrongPass)
	}
	if apiErrMissing.Code != model.ErrCodeNotAuthenticated {
		t.Errorf("missing user Code = %q, want %q", apiErrMissing.Code, model.ErrCodeNotAuthenticated)
	}
	if apiErrMissing.Code != apiErrWrong.Code || apiErrMissing.Message != apiErrWrong.Message {
		t.Error("missing user and wrong password must produce identical errors")
	}
}

// --- UpdateUser ---

func TestService_UpdateUser_PartialUpdate(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "old-name", Email: "old@example.com", PasswordHash: "old-hash"}, nil
		},
		updateFn: func(ctx context.Context, u *model.User) (bool, error) {
			saved = u
			return true, nil
		},
	}
	svc := NewService(repo, testLogger())

	newName := "new-name"
	u, err := svc.UpdateUser(context.Background(), 1, UserUpdate{Username: &newName})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if u.Username != "new-name" {
		t.Errorf("Username = %q, want %q", u.Username, "new-name")
	}
	// 指定していないフィールドは変更されない
	if saved.Email != "old@example.com" {
		t.Errorf("Email = %q, want unchanged", saved.Email)
	}
	if saved.PasswordHash != "old-hash" {
		t.Errorf("PasswordHash should be unchanged, got %q", saved.PasswordHash)
	}
}

func TestService_UpdateUser_RehashesPassword(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, PasswordHash: "old-hash"}, nil
		},
		updateFn: func(ctx context.Context, u *model.User) (bool, error) {
			saved = u
			return true, nil
		},
	}
	svc := NewService(repo, testLogger())

	newPass := "new-pass"
	if _, err := svc.UpdateUser(context.Background(), 1, UserUpdate{Password: &newPass}); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if saved.PasswordHash == "old-hash" || saved.PasswordHash == "new-pass" {
		t.Error("password should be rehashed before save")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("new-pass")); err != nil {
		t.Errorf("stored hash does not match the new password: %v", err)
	}
}

func TestService_UpdateUser_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, testLogger())

	newName := "x"
	_, err := svc.UpdateUser(context.Background(), 999, UserUpdate{Username: &newName})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestService_UpdateUser_DuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		updateFn: func(ctx context.Context, u *model.User) (bool, error) {
			return false, repository.ErrDuplicateUsername
		},
	}
	svc := NewService(repo, testLogger())

	newName := "taken"
	_, err := svc.UpdateUser(context.Background(), 1, UserUpdate{Username: &newName})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUsernameTaken {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUsernameTaken)
	}
}

// --- DeleteUser ---

func TestService_DeleteUser_CascadesToModels(t *testing.T) {
	called := false
	repo := &mockUserRepo{
		deleteWithModelsFn: func(ctx context.Context, id int64) (bool, error) {
			called = true
			if id != 7 {
				t.Errorf("id = %d, want 7", id)
			}
			return true, nil
		},
	}
	svc := NewService(repo, testLogger())

	if !svc.DeleteUser(context.Background(), 7) {
		t.Error("DeleteUser() = false, want true")
	}
	if !called {
		t.Error("expected DeleteWithModels to be called")
	}
}

func TestService_DeleteUser_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, testLogger())

	if svc.DeleteUser(context.Background(), 999) {
		t.Error("DeleteUser() = true for missing user, want false")
	}
}
