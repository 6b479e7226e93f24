package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ecotrack/internal/model"
)

// PostgresConsumptionLogRepo はPostgreSQLを使用した使用記録リポジトリ。
type PostgresConsumptionLogRepo struct {
	db *sql.DB
}

// NewPostgresConsumptionLogRepo はPostgresConsumptionLogRepoを生成する。
func NewPostgresConsumptionLogRepo(db *sql.DB) *PostgresConsumptionLogRepo {
	return &PostgresConsumptionLogRepo{db: db}
}

// Create は使用記録を作成する。
func (r *PostgresConsumptionLogRepo) Create(ctx context.Context, log *model.ConsumptionLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO consumption_logs (id, user_id, appliance_id, logged_at, watts, minutes, kwh, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.UserID, log.ApplianceID, log.Timestamp,
		log.Watts, log.Minutes, log.KWh, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert consumption log: %w", err)
	}
	return nil
}

// ListByUserBetween はユーザーの使用記録のうち from <= logged_at <= to のものを
// logged_at昇順で返す。
func (r *PostgresConsumptionLogRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.ConsumptionLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, appliance_id, logged_at, watts, minutes, kwh, created_at
		 FROM consumption_logs
		 WHERE user_id = $1 AND logged_at >= $2 AND logged_at <= $3
		 ORDER BY logged_at ASC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumption logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*model.ConsumptionLog, 0)
	for rows.Next() {
		l := &model.ConsumptionLog{}
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ApplianceID, &l.Timestamp,
			&l.Watts, &l.Minutes, &l.KWh, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan consumption log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consumption logs: %w", err)
	}

	return logs, nil
}

// compile-time interface check
var _ ConsumptionLogRepository = (*PostgresConsumptionLogRepo)(nil)
