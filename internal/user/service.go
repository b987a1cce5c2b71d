// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/voiceman/internal/model"
	"github.com/hitoshi/voiceman/internal/repository"
)

// UserUpdate はユーザーの更新可能フィールドを表す。
// nilのフィールドは変更しない。Passwordは平文で受け取り、
// 保存前にハッシュ化される。
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// Service はユーザー管理のサービス層。
// 登録・認証・更新・退会を提供する。パスワードは常にbcryptハッシュで
// 保存し、平文での保存・比較は行わない。
// ユーザー名・メールアドレスの一意性はDBの一意制約で保証し、
// 制約違反を重複の正式なシグナルとして扱う。
type Service struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateUser は新しいユーザーを登録する。
// 重複の判定は事前の存在チェックではなく、挿入時の一意制約違反で行う
// （並行登録でのcheck-then-act競合を排除する）。
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (*model.User, error) {
	if username == "" {
		return nil, model.NewValidationError("ユーザー名は必須です")
	}
	if email == "" {
		return nil, model.NewValidationError("メールアドレスは必須です")
	}
	if password == "" {
		return nil, model.NewValidationError("パスワードは必須です")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("パスワードハッシュの生成に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}

	now := time.Now()
	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, model.NewUsernameTakenError()
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, model.NewEmailTakenError()
		}
		s.logger.Error("ユーザーの作成に失敗しました",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}

	s.logger.Info("ユーザーを登録しました",
		slog.Int64("user_id", u.ID),
		slog.String("username", username),
	)

	return u, nil
}

// Authenticate はユーザー名またはメールアドレスとパスワードで認証する。
// ユーザーが存在しない場合もパスワード不一致の場合も同じエラーを返す
// （アカウントの存在有無を漏らさない）。
func (s *Service) Authenticate(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
	if usernameOrEmail == "" || password == "" {
		return nil, model.NewValidationError("ユーザー名/メールアドレスとパスワードは必須です")
	}

	u, err := s.repo.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		s.logger.Error("ユーザーの検索に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	if u == nil {
		return nil, model.NewNotAuthenticatedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewNotAuthenticatedError()
	}

	return u, nil
}

// GetUser はIDでユーザーを取得する。見つからない場合はnilを返す。
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Error("ユーザーの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	return u, nil
}

// UpdateUser はユーザーのusername / email / passwordを更新する。
// nilのフィールドは変更しない。それ以外のフィールドには更新経路がない。
func (s *Service) UpdateUser(ctx context.Context, userID int64, update UserUpdate) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Error("ユーザーの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("パスワードハッシュの生成に失敗しました",
				slog.String("error", err.Error()),
			)
			return nil, model.NewPersistenceError()
		}
		u.PasswordHash = string(hash)
	}
	u.UpdatedAt = time.Now()

	ok, err := s.repo.Update(ctx, u)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, model.NewUsernameTakenError()
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, model.NewEmailTakenError()
		}
		s.logger.Error("ユーザーの更新に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	if !ok {
		return nil, model.NewUserNotFoundError()
	}

	return u, nil
}

// DeleteUser はユーザーを退会させる。
// 所有する音声モデルは同一トランザクションでソフト削除される
// （孤児レコードを作らないためのカスケードソフト削除）。
// 見つからない場合・失敗の場合はfalseを返す。
func (s *Service) DeleteUser(ctx context.Context, userID int64) bool {
	ok, err := s.repo.DeleteWithModels(ctx, userID)
	if err != nil {
		s.logger.Error("ユーザーの削除に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}

	if ok {
		s.logger.Info("ユーザーを退会させました",
			slog.Int64("user_id", userID),
		)
	}

	return ok
}
