// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// Web UIのセッションは有効期限を持ち、期限切れの行はログイン時の検証で
// 無視されるが、テーブルに残り続けるため定期バッチで物理削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionDeleter は期限切れセッションの削除に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// MetricsRecorder は削除件数のメトリクス記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordSessionsCleaned(count int64)
}

// CleanupJob は期限切れセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions SessionDeleter
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions SessionDeleter, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
	}
}

// SetMetrics はメトリクスコレクターを設定する。未設定の場合は記録しない。
func (j *CleanupJob) SetMetrics(m MetricsRecorder) {
	j.metrics = m
}

// Run は有効期限を過ぎたセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsCleaned(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
