// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/ecotrack/internal/model"
)

// ErrDuplicateEmail はemailのユニーク制約違反を表す。
// 同時登録の競合はINSERT時の制約違反としてこのエラーで返る。
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はemailでユーザーを検索する（大文字小文字を区別する）。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// emailが既に存在する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// ApplianceRepository は家電データの永続化インターフェース。
// すべての操作は所有者のユーザーIDで絞り込む。
type ApplianceRepository interface {
	// ListByUserID はユーザーの家電一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Appliance, error)

	// FindByUserAndID はユーザーが所有する指定IDの家電を取得する。
	// 見つからない、または他ユーザーの家電の場合はnilを返す。
	FindByUserAndID(ctx context.Context, userID, id string) (*model.Appliance, error)

	// Create は家電を作成する。
	Create(ctx context.Context, appliance *model.Appliance) error

	// Update はユーザーが所有する家電を部分更新し、更新後の家電を返す。
	// nilフィールドは変更しない。対象が無い場合はnilを返す。
	Update(ctx context.Context, userID, id string, patch model.AppliancePatch) (*model.Appliance, error)
}

// ConsumptionLogRepository は使用記録の永続化インターフェース。
// 記録は追記専用で、更新操作は提供しない。
type ConsumptionLogRepository interface {
	// Create は使用記録を作成する。
	Create(ctx context.Context, log *model.ConsumptionLog) error

	// ListByUserBetween はユーザーの使用記録のうち from <= logged_at <= to のものを返す。
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.ConsumptionLog, error)
}
