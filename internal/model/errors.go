// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, voice, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeModelNotFound      = "MODEL_NOT_FOUND"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodeProviderFailure    = "PROVIDER_FAILURE"
	ErrCodeChatFailure        = "CHAT_FAILURE"
	ErrCodeRecognitionFailure = "RECOGNITION_FAILURE"
)

// NewValidationError は入力検証エラーを生成する。
// 検証エラーは状態を一切変更する前に返される。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "必須フィールドを確認して再度リクエストしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewModelNotFoundError は音声モデルが見つからない場合のエラーを生成する。
func NewModelNotFoundError(modelID int64) *APIError {
	return &APIError{
		Code:     ErrCodeModelNotFound,
		Message:  fmt.Sprintf("指定された音声モデルが見つかりません: %d", modelID),
		Category: "voice",
		Action:   "モデルIDを確認してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
// 重複判定はDBの一意制約違反を正とする。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewNotAuthenticatedError は認証失敗エラーを生成する。
// ユーザー名の存在有無を漏らさないよう、メッセージは共通化する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "ユーザー名/メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewPersistenceError は永続化失敗エラーを生成する。
// 原因の詳細はログにのみ記録し、呼び出し元には汎用メッセージを返す。
func NewPersistenceError() *APIError {
	return &APIError{
		Code:     ErrCodePersistenceFailure,
		Message:  "データの保存中にエラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProviderError は外部プロバイダ呼び出し失敗エラーを生成する。
// リトライは行わない。
func NewProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderFailure,
		Message:  "音声プロバイダとの通信に失敗しました。",
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewChatError はチャットAPI呼び出し失敗エラーを生成する。
func NewChatError() *APIError {
	return &APIError{
		Code:     ErrCodeChatFailure,
		Message:  "応答の生成中にエラーが発生しました。",
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRecognitionError は音声認識失敗エラーを生成する。
func NewRecognitionError() *APIError {
	return &APIError{
		Code:     ErrCodeRecognitionFailure,
		Message:  "音声を認識できませんでした。",
		Category: "provider",
		Action:   "録音状態を確認して再度お試しください。",
	}
}
