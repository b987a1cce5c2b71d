// Package voicemodel は音声モデルのライフサイクル管理を提供する。
// ファイル保存・外部プロバイダ登録・DBレコードの整合性契約を所有する:
// レコードが存在するのは、サンプルファイルの保存とプロバイダ登録の
// 両方が成功した場合のみ（ベストエフォート、失敗時の挙動は各操作を参照）。
package voicemodel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/voiceman/internal/model"
	"github.com/hitoshi/voiceman/internal/repository"
)

// SampleStorage はサンプル音声ファイル保存のインターフェース。
type SampleStorage interface {
	Save(userID int64, audio []byte) (string, error)
	Remove(path string) error
}

// VoiceRegistrar は外部プロバイダへの音声モデル登録インターフェース。
type VoiceRegistrar interface {
	RegisterVoiceSample(ctx context.Context, ownerID int64, audio []byte) (string, error)
}

// ProviderCallRecorder はプロバイダ呼び出しのメトリクス記録インターフェース。
type ProviderCallRecorder interface {
	RecordProviderCall(operation string, success bool)
}

// Service は音声モデルのライフサイクルマネージャ。
// 作成は「ファイル保存 → プロバイダ登録 → DBレコード挿入」の多段階処理で、
// 3つのリソースをまたぐアトミック性はない。途中で失敗した場合、
// 書き込み済みのファイルとリモート登録はロールバックされない（既知の制限）。
type Service struct {
	repo      repository.VoiceModelRepository
	store     SampleStorage
	registrar VoiceRegistrar
	recorder  ProviderCallRecorder
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilを許容する。
func NewService(
	repo repository.VoiceModelRepository,
	store SampleStorage,
	registrar VoiceRegistrar,
	recorder ProviderCallRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		registrar: registrar,
		recorder:  recorder,
		logger:    logger,
	}
}

// recordProviderCall はrecorderがnilでない場合のみメトリクスを記録する。
func (s *Service) recordProviderCall(operation string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordProviderCall(operation, success)
	}
}

// CreateVoiceModel は新しい音声モデルを作成する。
// フロー: サンプル音声の保存 → プロバイダ登録 → status = 'active'でレコード挿入。
// 成功時は参照IDが設定されたactiveなモデルを返す。
// いずれかの段階で失敗した場合はエラーを返し、DBレコードは作成されない。
func (s *Service) CreateVoiceModel(ctx context.Context, userID int64, modelName string, audio []byte, description string) (*model.VoiceModel, error) {
	if userID <= 0 {
		return nil, model.NewValidationError("ユーザーIDは正の値である必要があります")
	}
	if modelName == "" {
		return nil, model.NewValidationError("モデル名は必須です")
	}
	if len(audio) == 0 {
		return nil, model.NewValidationError("サンプル音声が空です")
	}

	// 1. サンプル音声をローカルに保存
	filePath, err := s.store.Save(userID, audio)
	if err != nil {
		s.logger.Error("サンプル音声の保存に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}

	// 2. プロバイダに登録して参照IDを取得
	// 失敗時は保存済みファイルを残したまま中断する（クリーンアップしない）。
	referenceID, err := s.registrar.RegisterVoiceSample(ctx, userID, audio)
	if err != nil {
		s.recordProviderCall("register", false)
		s.logger.Error("プロバイダへの音声モデル登録に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("file_path", filePath),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProviderError()
	}
	s.recordProviderCall("register", true)

	// 3. レコードを挿入
	// 挿入失敗時、ファイルとリモート登録はロールバックされない（既知の制限）。
	vm := &model.VoiceModel{
		UserID:      userID,
		ModelName:   modelName,
		ReferenceID: referenceID,
		FilePath:    filePath,
		Description: description,
		Status:      model.ModelStatusActive,
	}
	if err := s.insertModel(ctx, vm); err != nil {
		s.logger.Error("音声モデルレコードの作成に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("reference_id", referenceID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}

	s.logger.Info("音声モデルを作成しました",
		slog.Int64("model_id", vm.ID),
		slog.Int64("user_id", userID),
		slog.String("reference_id", referenceID),
	)

	return vm, nil
}

// insertModel はタイムスタンプを設定してレコードを挿入する。
func (s *Service) insertModel(ctx context.Context, vm *model.VoiceModel) error {
	now := nowFunc()
	vm.CreatedAt = now
	vm.UpdatedAt = now
	if err := s.repo.Create(ctx, vm); err != nil {
		return fmt.Errorf("レコードの挿入に失敗しました: %w", err)
	}
	return nil
}

// GetModelByID はIDで音声モデルを取得する。見つからない場合はnilを返す。
// ソフト削除済みのモデルも返す（ID指定の参照は非破壊）。
func (s *Service) GetModelByID(ctx context.Context, modelID int64) (*model.VoiceModel, error) {
	vm, err := s.repo.FindByID(ctx, modelID)
	if err != nil {
		s.logger.Error("音声モデルの取得に失敗しました",
			slog.Int64("model_id", modelID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	return vm, nil
}

// GetModelsByUser はユーザーのactiveな音声モデル一覧を返す。
// deleted / processingのモデルは含めない。
func (s *Service) GetModelsByUser(ctx context.Context, userID int64) ([]*model.VoiceModel, error) {
	models, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("音声モデル一覧の取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	return models, nil
}

// UpdateModel は音声モデルのmodel_name / description / statusを更新する。
// 指定されたフィールドは単一のUPDATE文でアトミックに反映される。
// それ以外のフィールドには更新経路がない。
func (s *Service) UpdateModel(ctx context.Context, modelID int64, update model.VoiceModelUpdate) (*model.VoiceModel, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不正なステータスです: %s", *update.Status))
	}

	vm, err := s.repo.Update(ctx, modelID, update)
	if err != nil {
		s.logger.Error("音声モデルの更新に失敗しました",
			slog.Int64("model_id", modelID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	if vm == nil {
		return nil, model.NewModelNotFoundError(modelID)
	}

	return vm, nil
}

// DeleteModel は音声モデルをソフト削除する（ステータスのみ変更）。
// レコードとファイルはそのまま残す。deletedからactiveへの復帰遷移はない。
// 見つからない場合・永続化失敗の場合はいずれもfalseを返す（エラーは送出しない）。
func (s *Service) DeleteModel(ctx context.Context, modelID int64) bool {
	ok, err := s.repo.UpdateStatus(ctx, modelID, model.ModelStatusDeleted)
	if err != nil {
		s.logger.Error("音声モデルのソフト削除に失敗しました",
			slog.Int64("model_id", modelID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// HardDeleteModel は音声モデルを完全削除する。
// 存在確認の後、ディスク上のファイルを削除（存在しない場合はエラーにしない）し、
// DBの行を削除する。見つからない場合・失敗の場合はfalseを返す。
func (s *Service) HardDeleteModel(ctx context.Context, modelID int64) bool {
	vm, err := s.repo.FindByID(ctx, modelID)
	if err != nil {
		s.logger.Error("音声モデルの取得に失敗しました",
			slog.Int64("model_id", modelID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if vm == nil {
		return false
	}

	if err := s.store.Remove(vm.FilePath); err != nil {
		s.logger.Error("サンプル音声の削除に失敗しました",
			slog.Int64("model_id", modelID),
			slog.String("file_path", vm.FilePath),
			slog.String("error", err.Error()),
		)
		return false
	}

	ok, err := s.repo.Delete(ctx, modelID)
	if err != nil {
		s.logger.Error("音声モデルレコードの削除に失敗しました",
			slog.Int64("model_id", modelID),
			slog.String("error", err.Error()),
		)
		return false
	}

	if ok {
		s.logger.Info("音声モデルを完全削除しました",
			slog.Int64("model_id", modelID),
			slog.String("reference_id", vm.ReferenceID),
		)
	}

	return ok
}
