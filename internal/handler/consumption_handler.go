package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ecotrack/internal/model"
)

// ConsumptionServiceInterface は使用記録ハンドラーが必要とするサービスインターフェース。
type ConsumptionServiceInterface interface {
	LogUsage(ctx context.Context, ownerID, applianceID string, minutes float64) (*model.ConsumptionLog, error)
	Summary(ctx context.Context, ownerID string) (*model.ConsumptionSummary, error)
}

// ConsumptionHandler は使用記録のHTTPハンドラー。
type ConsumptionHandler struct {
	service ConsumptionServiceInterface
}

// NewConsumptionHandler はConsumptionHandlerを生成する。
func NewConsumptionHandler(service ConsumptionServiceInterface) *ConsumptionHandler {
	return &ConsumptionHandler{service: service}
}

type logUsageRequest struct {
	ApplianceID string     `json:"applianceId"`
	Minutes     flexNumber `json:"minutes"`
}

type consumptionLogResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ApplianceID string    `json:"applianceId"`
	Timestamp   time.Time `json:"timestamp"`
	Watts       float64   `json:"watts"`
	Minutes     float64   `json:"minutes"`
	KWh         float64   `json:"kwh"`
	CreatedAt   time.Time `json:"createdAt"`
}

type summaryResponse struct {
	TotalKWhLast24h float64 `json:"totalKwhLast24h"`
	Count           int     `json:"count"`
}

// LogUsage は家電の使用記録を追加する。
// POST /consumption/log
func (h *ConsumptionHandler) LogUsage(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	var req logUsageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ApplianceID == "" || !req.Minutes.set {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("applianceId and minutes are required"))
		return
	}

	l, err := h.service.LogUsage(r.Context(), identity.UserID, req.ApplianceID, req.Minutes.value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, consumptionLogResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		ApplianceID: l.ApplianceID,
		Timestamp:   l.Timestamp,
		Watts:       l.Watts,
		Minutes:     l.Minutes,
		KWh:         l.KWh,
		CreatedAt:   l.CreatedAt,
	})
}

// Summary は直近24時間の消費電力量を返す。
// GET /consumption/summary
func (h *ConsumptionHandler) Summary(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	s, err := h.service.Summary(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		TotalKWhLast24h: s.TotalKWhLast24h,
		Count:           s.Count,
	})
}
