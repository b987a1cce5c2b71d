// Package reconcile はprocessing状態で滞留した音声モデルの整理ジョブを提供する。
// 音声モデルの作成は「ファイル保存 → プロバイダ登録 → DB挿入」の多段階処理で
// アトミックではないため、途中で停止したレコードがprocessingのまま残り得る。
// 本ジョブは一定時間を超えて滞留したレコードをdeletedに遷移させる。
// deletedからactiveへの復帰遷移は存在しないため、この遷移は安全で冪等。
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Sweeper はprocessing状態で滞留した音声モデルの整理ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な遷移処理を保証する。
type Sweeper struct {
	db               Executor
	logger           *slog.Logger
	ProcessingExpiry time.Duration // processing状態を滞留と判定するまでの時間
}

// NewSweeper は新しいSweeperを生成する。
// デフォルトの滞留判定時間は24時間。
func NewSweeper(db Executor, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		db:               db,
		logger:           logger,
		ProcessingExpiry: 24 * time.Hour,
	}
}

// Run は滞留判定時間を超えてprocessingのままの音声モデルをdeletedに遷移させる。
// 冪等: 対象がない場合でもエラーにならない。
// ソフト削除済みレコードの完全削除は行わない（定期ハードデリートは提供しない）。
func (s *Sweeper) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d seconds", int(s.ProcessingExpiry.Seconds()))

	query := `UPDATE voice_models
	          SET status = 'deleted', updated_at = now()
	          WHERE status = 'processing' AND updated_at < now() - $1::interval`
	result, err := s.db.ExecContext(ctx, query, interval)
	if err != nil {
		s.logger.Error("滞留モデル整理ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("processing_expiry", s.ProcessingExpiry),
		)
		return fmt.Errorf("滞留モデル整理の実行に失敗: %w", err)
	}

	expiredCount, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("遷移件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("遷移件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	s.logger.Info("滞留モデル整理ジョブが完了しました",
		slog.Int64("expired_count", expiredCount),
		slog.Duration("processing_expiry", s.ProcessingExpiry),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunLoop は指定間隔でRunを繰り返し実行する。
// コンテキストのキャンセルで停止する。
func (s *Sweeper) RunLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("滞留モデル整理ジョブでエラーが発生しました",
					slog.String("error", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}
