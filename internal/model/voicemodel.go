// Package model はドメインモデルを定義する。
package model

import "time"

// VoiceModel はユーザーの声から生成した音声クローンモデルのメタデータを表す。
// ReferenceIDは外部TTSプロバイダが発行する不透明なIDで、
// 一度設定されたら変更されない（合成リクエスト時にそのまま渡す）。
type VoiceModel struct {
	ID          int64
	UserID      int64
	ModelName   string
	ReferenceID string
	FilePath    string // ローカルに保存した元サンプル音声のパス（空の場合あり）
	Description string
	Status      ModelStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ModelStatus は音声モデルの状態を表す。
// 同時に成立する状態は常に1つだけ。
type ModelStatus string

const (
	// ModelStatusActive は利用可能な状態。一覧取得の対象になる。
	ModelStatusActive ModelStatus = "active"
	// ModelStatusDeleted はソフト削除された状態。
	// レコードとファイルは残るが一覧からは除外される。activeへの復帰遷移はない。
	ModelStatusDeleted ModelStatus = "deleted"
	// ModelStatusProcessing は生成処理の途中である状態。一覧からは除外される。
	ModelStatusProcessing ModelStatus = "processing"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s ModelStatus) Valid() bool {
	switch s {
	case ModelStatusActive, ModelStatusDeleted, ModelStatusProcessing:
		return true
	}
	return false
}

// VoiceModelUpdate は音声モデルの更新可能フィールドを表す。
// nilのフィールドは変更しない。model_name、description、status以外は
// 更新経路が存在しない（リクエストに含まれていても無視される）。
type VoiceModelUpdate struct {
	ModelName   *string
	Description *string
	Status      *ModelStatus
}
