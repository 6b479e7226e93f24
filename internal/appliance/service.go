// Package appliance は家電管理のドメインロジックを提供する。
package appliance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/ecotrack/internal/model"
	"github.com/hitoshi/ecotrack/internal/repository"
)

// Service は家電管理のサービス層。
// すべての操作は所有者のユーザーIDを明示的に受け取り、他ユーザーの家電には触れない。
type Service struct {
	repo repository.ApplianceRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ApplianceRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List はユーザーの家電一覧を作成日時の新しい順で返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Appliance, error) {
	appliances, err := s.repo.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("家電一覧の取得に失敗しました: %w", err)
	}
	return appliances, nil
}

// Create は家電を登録する。作成直後はオフ状態。
func (s *Service) Create(ctx context.Context, ownerID, name string, powerWatts float64) (*model.Appliance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("name is required")
	}
	if err := validateNameLength(name); err != nil {
		return nil, err
	}
	if !isPositiveWatts(powerWatts) {
		return nil, model.NewValidationError("powerWatts must be a positive number")
	}

	now := s.now()
	a := &model.Appliance{
		ID:         uuid.New().String(),
		UserID:     ownerID,
		Name:       name,
		PowerWatts: powerWatts,
		IsOn:       false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("家電の登録に失敗しました: %w", err)
	}

	slog.Info("appliance created",
		slog.String("user_id", ownerID),
		slog.String("appliance_id", a.ID),
	)
	return a, nil
}

// Update は家電を部分更新する。指定されなかったフィールドは変更しない。
// 存在しないID、形式不正なID、他ユーザーの家電はいずれもNotFoundとして扱う。
func (s *Service) Update(ctx context.Context, ownerID, applianceID string, patch model.AppliancePatch) (*model.Appliance, error) {
	id, ok := canonicalID(applianceID)
	if !ok {
		return nil, model.NewApplianceNotFoundError(applianceID)
	}
	applianceID = id

	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return nil, model.NewValidationError("name must not be empty")
		}
		if err := validateNameLength(trimmed); err != nil {
			return nil, err
		}
		patch.Name = &trimmed
	}
	if patch.PowerWatts != nil && !isPositiveWatts(*patch.PowerWatts) {
		return nil, model.NewValidationError("powerWatts must be a positive number")
	}

	if patch.IsEmpty() {
		a, err := s.repo.FindByUserAndID(ctx, ownerID, applianceID)
		if err != nil {
			return nil, fmt.Errorf("家電の取得に失敗しました: %w", err)
		}
		if a == nil {
			return nil, model.NewApplianceNotFoundError(applianceID)
		}
		return a, nil
	}

	a, err := s.repo.Update(ctx, ownerID, applianceID, patch)
	if err != nil {
		return nil, fmt.Errorf("家電の更新に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewApplianceNotFoundError(applianceID)
	}

	return a, nil
}

// Get はユーザーが所有する家電を返す。
func (s *Service) Get(ctx context.Context, ownerID, applianceID string) (*model.Appliance, error) {
	id, ok := canonicalID(applianceID)
	if !ok {
		return nil, model.NewApplianceNotFoundError(applianceID)
	}
	applianceID = id

	a, err := s.repo.FindByUserAndID(ctx, ownerID, applianceID)
	if err != nil {
		return nil, fmt.Errorf("家電の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewApplianceNotFoundError(applianceID)
	}
	return a, nil
}

// canonicalID はUUIDを小文字ハイフン区切りの36文字に正規化する。
// uuid.Parseはurn:uuid:や波括弧付きの形式も受け付けるため、DBには正規形のみを渡す。
func canonicalID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func validateNameLength(name string) error {
	if utf8.RuneCountInString(name) > model.MaxApplianceNameLength {
		return model.NewValidationError(fmt.Sprintf("name must be at most %d characters", model.MaxApplianceNameLength))
	}
	return nil
}

func isPositiveWatts(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
