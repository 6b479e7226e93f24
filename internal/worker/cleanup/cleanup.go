// Package cleanup は使用記録の保持期間管理ジョブを提供する。
// 保持日数を超過したconsumption_logsを定期的に削除する。
// 直近24時間の集計を壊さないよう、保持日数は最低MinRetentionDays日とする。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// MinRetentionDays は設定可能な保持日数の下限。
const MinRetentionDays = 2

// DefaultInterval はintervalが0以下の場合に使う実行間隔。
const DefaultInterval = 24 * time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Recorder は削除件数のメトリクス記録インターフェース。
type Recorder interface {
	RecordLogsPurged(count int64)
}

// PurgeJob は保持期間を超過した使用記録の削除ジョブ。
// 削除は冪等で、対象が無くてもエラーにならない。
type PurgeJob struct {
	db            Executor
	logger        *slog.Logger
	recorder      Recorder
	now           func() time.Time
	RetentionDays int // 0以下は削除しない
}

// NewPurgeJob は新しいPurgeJobを生成する。
// retentionDaysが1以上MinRetentionDays未満の場合はMinRetentionDaysに切り上げる。
// recorderはnilでもよい。
func NewPurgeJob(db Executor, logger *slog.Logger, recorder Recorder, retentionDays int) *PurgeJob {
	if retentionDays > 0 && retentionDays < MinRetentionDays {
		retentionDays = MinRetentionDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeJob{
		db:            db,
		logger:        logger,
		recorder:      recorder,
		now:           time.Now,
		RetentionDays: retentionDays,
	}
}

// Enabled は削除が有効な場合にtrueを返す。
func (j *PurgeJob) Enabled() bool {
	return j.RetentionDays > 0
}

// Cutoff はこの時刻より前に記録された使用記録を削除対象とする境界を返す。
func (j *PurgeJob) Cutoff() time.Time {
	return j.now().Add(-time.Duration(j.RetentionDays) * 24 * time.Hour)
}

// Run は保持期間を超過した使用記録を削除し、削除件数を返す。
// 無効化されている場合は何もしない。
func (j *PurgeJob) Run(ctx context.Context) (int64, error) {
	if !j.Enabled() {
		return 0, nil
	}

	start := time.Now()
	cutoff := j.Cutoff()

	result, err := j.db.ExecContext(ctx, `DELETE FROM consumption_logs WHERE logged_at < $1`, cutoff)
	if err != nil {
		j.logger.Error("使用記録の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return 0, fmt.Errorf("使用記録の削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordLogsPurged(deletedCount)
	}

	j.logger.Info("使用記録の削除ジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return deletedCount, nil
}

// Start はintervalごとにRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまでブロックする。
// 無効化されている場合は何もせずキャンセルを待つ。
// intervalが0以下の場合はDefaultIntervalを使う。
func (j *PurgeJob) Start(ctx context.Context, interval time.Duration) {
	if !j.Enabled() {
		j.logger.Info("使用記録の削除ジョブは無効です（CONSUMPTION_RETENTION_DAYS=0）")
		<-ctx.Done()
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	j.logger.Info("使用記録の削除ジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// 失敗はRun内でログ出力済みのため、次の周期で再試行する
		_, _ = j.Run(ctx)

		select {
		case <-ctx.Done():
			j.logger.Info("使用記録の削除ジョブを停止しました")
			return
		case <-ticker.C:
		}
	}
}
