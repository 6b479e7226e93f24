package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/ecotrack/internal/model"
)

const applianceColumns = `id, user_id, name, power_watts, is_on, created_at, updated_at`

// PostgresApplianceRepo はPostgreSQLを使用した家電リポジトリ。
type PostgresApplianceRepo struct {
	db *sql.DB
}

// NewPostgresApplianceRepo はPostgresApplianceRepoを生成する。
func NewPostgresApplianceRepo(db *sql.DB) *PostgresApplianceRepo {
	return &PostgresApplianceRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppliance(s rowScanner) (*model.Appliance, error) {
	a := &model.Appliance{}
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.PowerWatts, &a.IsOn, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByUserID はユーザーの家電一覧をcreated_at降順で返す。
func (r *PostgresApplianceRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Appliance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applianceColumns+`
		 FROM appliances
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	defer rows.Close()

	appliances := make([]*model.Appliance, 0)
	for rows.Next() {
		a, err := scanAppliance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appliance: %w", err)
		}
		appliances = append(appliances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appliances: %w", err)
	}

	return appliances, nil
}

// FindByUserAndID はユーザーが所有する指定IDの家電を取得する。見つからない場合はnilを返す。
func (r *PostgresApplianceRepo) FindByUserAndID(ctx context.Context, userID, id string) (*model.Appliance, error) {
	a, err := scanAppliance(r.db.QueryRowContext(ctx,
		`SELECT `+applianceColumns+` FROM appliances WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find appliance: %w", err)
	}
	return a, nil
}

// Create は家電を作成する。
func (r *PostgresApplianceRepo) Create(ctx context.Context, appliance *model.Appliance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO appliances (id, user_id, name, power_watts, is_on, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		appliance.ID, appliance.UserID, appliance.Name, appliance.PowerWatts,
		appliance.IsOn, appliance.CreatedAt, appliance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appliance: %w", err)
	}
	return nil
}

// Update はユーザーが所有する家電を1文のUPDATEで部分更新する。
// nilフィールドはCOALESCEにより既存の値を維持する。対象が無い場合はnilを返す。
func (r *PostgresApplianceRepo) Update(ctx context.Context, userID, id string, patch model.AppliancePatch) (*model.Appliance, error) {
	a, err := scanAppliance(r.db.QueryRowContext(ctx,
		`UPDATE appliances
		 SET name        = COALESCE($3::text, name),
		     power_watts = COALESCE($4::double precision, power_watts),
		     is_on       = COALESCE($5::boolean, is_on),
		     updated_at  = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+applianceColumns,
		id, userID, patch.Name, patch.PowerWatts, patch.IsOn,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update appliance: %w", err)
	}
	return a, nil
}

// compile-time interface check
var _ ApplianceRepository = (*PostgresApplianceRepo)(nil)
