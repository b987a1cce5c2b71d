// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/voiceman/internal/model"
)

// 一意制約違反を表すセンチネルエラー。
// 重複判定は事前の存在チェックではなく、DBの制約違反を正とする。
var (
	// ErrDuplicateUsername はusersのusername一意制約違反を表す。
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail はusersのemail一意制約違反を表す。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateReferenceID はvoice_modelsのreference_id一意制約違反を表す。
	ErrDuplicateReferenceID = errors.New("reference id already exists")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsernameOrEmail はユーザー名またはメールアドレスでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	// 一意制約違反の場合はErrDuplicateUsername / ErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はusername、email、password_hashを更新する。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, user *model.User) (bool, error)

	// DeleteWithModels はユーザーを削除し、所有する音声モデルを
	// 同一トランザクションでソフト削除する。
	// 対象が存在しない場合はfalseを返す。
	DeleteWithModels(ctx context.Context, id int64) (bool, error)
}

// VoiceModelRepository は音声モデルデータの永続化インターフェース。
type VoiceModelRepository interface {
	// FindByID は指定IDの音声モデルを取得する。見つからない場合はnilを返す。
	// ソフト削除済み（status = 'deleted'）のレコードも返す。
	FindByID(ctx context.Context, id int64) (*model.VoiceModel, error)

	// ListActiveByUser はユーザーのstatus = 'active'の音声モデル一覧を返す。
	// deleted / processingのレコードは含めない。
	ListActiveByUser(ctx context.Context, userID int64) ([]*model.VoiceModel, error)

	// Create は音声モデルを作成し、採番されたIDをvm.IDに設定する。
	// reference_idの一意制約違反の場合はErrDuplicateReferenceIDを返す。
	Create(ctx context.Context, vm *model.VoiceModel) error

	// Update は更新可能フィールド（model_name、description、status）を
	// 単一のUPDATE文でアトミックに更新し、更新後のレコードを返す。
	// 対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, update model.VoiceModelUpdate) (*model.VoiceModel, error)

	// UpdateStatus は音声モデルのステータスのみを更新する。
	// 対象が存在しない場合はfalseを返す。
	UpdateStatus(ctx context.Context, id int64, status model.ModelStatus) (bool, error)

	// Delete は音声モデルの行を物理削除する。
	// 対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}
