// Package consumption は家電の使用記録と直近24時間の消費電力量集計を提供する。
package consumption

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ecotrack/internal/model"
	"github.com/hitoshi/ecotrack/internal/repository"
)

// SummaryWindow は集計対象の期間。
const SummaryWindow = 24 * time.Hour

// ApplianceFinder は所有者の家電を取得するインターフェース。
// 見つからない場合はNotFoundのAPIErrorを返す。
type ApplianceFinder interface {
	Get(ctx context.Context, ownerID, applianceID string) (*model.Appliance, error)
}

// Recorder は使用記録のメトリクス記録インターフェース。
type Recorder interface {
	RecordUsageLogged(kwh float64)
}

// Service は使用記録のサービス層。
type Service struct {
	logs       repository.ConsumptionLogRepository
	appliances ApplianceFinder
	recorder   Recorder
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(logs repository.ConsumptionLogRepository, appliances ApplianceFinder, recorder Recorder) *Service {
	return &Service{
		logs:       logs,
		appliances: appliances,
		recorder:   recorder,
		now:        time.Now,
	}
}

// LogUsage は家電の使用記録を追加する。
// kWhは記録時点の家電の定格電力から計算し、定格電力とともにスナップショットとして保存する。
// 後から家電の定格電力を変更しても過去の記録は変わらない。
func (s *Service) LogUsage(ctx context.Context, ownerID, applianceID string, minutes float64) (*model.ConsumptionLog, error) {
	applianceID = strings.TrimSpace(applianceID)
	if applianceID == "" {
		return nil, model.NewValidationError("applianceId is required")
	}
	if !(minutes > 0) || math.IsInf(minutes, 0) {
		return nil, model.NewValidationError("minutes must be a positive number")
	}

	appliance, err := s.appliances.Get(ctx, ownerID, applianceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	log := &model.ConsumptionLog{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		ApplianceID: appliance.ID,
		Timestamp:   now,
		Watts:       appliance.PowerWatts,
		Minutes:     minutes,
		KWh:         KWh(appliance.PowerWatts, minutes),
		CreatedAt:   now,
	}

	if err := s.logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("使用記録の保存に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordUsageLogged(log.KWh)
	}
	slog.Info("usage logged",
		slog.String("user_id", ownerID),
		slog.String("appliance_id", appliance.ID),
		slog.Float64("kwh", log.KWh),
	)

	return log, nil
}

// Summary は直近24時間 [now-24h, now] の使用記録を走査し、
// 消費電力量の合計（小数点以下4桁に丸める）と件数を返す。
func (s *Service) Summary(ctx context.Context, ownerID string) (*model.ConsumptionSummary, error) {
	now := s.now()
	logs, err := s.logs.ListByUserBetween(ctx, ownerID, now.Add(-SummaryWindow), now)
	if err != nil {
		return nil, fmt.Errorf("使用記録の取得に失敗しました: %w", err)
	}

	var total float64
	for _, l := range logs {
		total += l.KWh
	}

	return &model.ConsumptionSummary{
		TotalKWhLast24h: round4(total),
		Count:           len(logs),
	}, nil
}
