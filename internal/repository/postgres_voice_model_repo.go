package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/voiceman/internal/model"
)

// PostgresVoiceModelRepo はPostgreSQLを使用した音声モデルリポジトリ。
type PostgresVoiceModelRepo struct {
	db *sql.DB
}

// NewPostgresVoiceModelRepo はPostgresVoiceModelRepoを生成する。
func NewPostgresVoiceModelRepo(db *sql.DB) *PostgresVoiceModelRepo {
	return &PostgresVoiceModelRepo{db: db}
}

// voiceModelColumns はSELECT句で使用するカラム列。
const voiceModelColumns = `id, user_id, model_name, reference_id, file_path, description, status, created_at, updated_at`

// scanVoiceModel は1行を*model.VoiceModelにスキャンする。
func scanVoiceModel(row interface{ Scan(dest ...any) error }) (*model.VoiceModel, error) {
	vm := &model.VoiceModel{}
	err := row.Scan(
		&vm.ID, &vm.UserID, &vm.ModelName, &vm.ReferenceID,
		&vm.FilePath, &vm.Description, &vm.Status, &vm.CreatedAt, &vm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return vm, nil
}

// FindByID は指定IDの音声モデルを取得する。見つからない場合はnilを返す。
// ソフト削除済みのレコードも返す（ID指定の参照は非破壊）。
func (r *PostgresVoiceModelRepo) FindByID(ctx context.Context, id int64) (*model.VoiceModel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+voiceModelColumns+` FROM voice_models WHERE id = $1`,
		id,
	)

	vm, err := scanVoiceModel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find voice model by ID: %w", err)
	}

	return vm, nil
}

// ListActiveByUser はユーザーのstatus = 'active'の音声モデル一覧を返す。
func (r *PostgresVoiceModelRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*model.VoiceModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+voiceModelColumns+` FROM voice_models
		 WHERE user_id = $1 AND status = 'active'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice models: %w", err)
	}
	defer rows.Close()

	var models []*model.VoiceModel
	for rows.Next() {
		vm, err := scanVoiceModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice model: %w", err)
		}
		models = append(models, vm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voice models: %w", err)
	}

	return models, nil
}

// Create は音声モデルを作成し、採番されたIDをvm.IDに設定する。
// reference_idの一意制約違反はErrDuplicateReferenceIDに変換する。
func (r *PostgresVoiceModelRepo) Create(ctx context.Context, vm *model.VoiceModel) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO voice_models
		   (user_id, model_name, reference_id, file_path, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		vm.UserID, vm.ModelName, vm.ReferenceID, vm.FilePath,
		vm.Description, vm.Status, vm.CreatedAt, vm.UpdatedAt,
	).Scan(&vm.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation &&
			pqErr.Constraint == "voice_models_reference_id_key" {
			return ErrDuplicateReferenceID
		}
		return fmt.Errorf("failed to insert voice model: %w", err)
	}

	return nil
}

// Update は更新可能フィールドを単一のUPDATE文でアトミックに更新し、
// 更新後のレコードを返す。nilのフィールドは現在値を維持する。
// 対象が存在しない場合はnilを返す。
func (r *PostgresVoiceModelRepo) Update(ctx context.Context, id int64, update model.VoiceModelUpdate) (*model.VoiceModel, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE voice_models
		 SET model_name  = COALESCE($1, model_name),
		     description = COALESCE($2, description),
		     status      = COALESCE($3, status),
		     updated_at  = now()
		 WHERE id = $4
		 RETURNING `+voiceModelColumns,
		update.ModelName, update.Description, (*string)(update.Status), id,
	)

	vm, err := scanVoiceModel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update voice model: %w", err)
	}

	return vm, nil
}

// UpdateStatus は音声モデルのステータスのみを更新する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresVoiceModelRepo) UpdateStatus(ctx context.Context, id int64, status model.ModelStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE voice_models SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update voice model status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Delete は音声モデルの行を物理削除する。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresVoiceModelRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM voice_models WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete voice model: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ VoiceModelRepository = (*PostgresVoiceModelRepo)(nil)
