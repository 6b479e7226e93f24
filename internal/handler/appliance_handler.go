package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ecotrack/internal/model"
)

// ApplianceServiceInterface は家電ハンドラーが必要とするサービスインターフェース。
type ApplianceServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]*model.Appliance, error)
	Create(ctx context.Context, ownerID, name string, powerWatts float64) (*model.Appliance, error)
	Update(ctx context.Context, ownerID, applianceID string, patch model.AppliancePatch) (*model.Appliance, error)
}

// ApplianceHandler は家電管理のHTTPハンドラー。
type ApplianceHandler struct {
	service ApplianceServiceInterface
}

// NewApplianceHandler はApplianceHandlerを生成する。
func NewApplianceHandler(service ApplianceServiceInterface) *ApplianceHandler {
	return &ApplianceHandler{service: service}
}

type createApplianceRequest struct {
	Name       string     `json:"name"`
	PowerWatts flexNumber `json:"powerWatts"`
}

// updateApplianceRequest は部分更新リクエスト。省略したフィールドは変更しない。
type updateApplianceRequest struct {
	Name       *string    `json:"name"`
	PowerWatts flexNumber `json:"powerWatts"`
	IsOn       *bool      `json:"isOn"`
}

type applianceResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	PowerWatts float64   `json:"powerWatts"`
	IsOn       bool      `json:"isOn"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toApplianceResponse(a *model.Appliance) applianceResponse {
	return applianceResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		Name:       a.Name,
		PowerWatts: a.PowerWatts,
		IsOn:       a.IsOn,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// List は家電一覧を新しい順で返す。
// GET /appliances
func (h *ApplianceHandler) List(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	appliances, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]applianceResponse, len(appliances))
	for i, a := range appliances {
		resp[i] = toApplianceResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は家電を登録する。
// POST /appliances
func (h *ApplianceHandler) Create(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	var req createApplianceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || !req.PowerWatts.set {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("name and powerWatts are required"))
		return
	}

	a, err := h.service.Create(r.Context(), identity.UserID, req.Name, req.PowerWatts.value)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toApplianceResponse(a))
}

// Update は家電を部分更新する。
// PUT /appliances/{id}
func (h *ApplianceHandler) Update(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	applianceID := chi.URLParam(r, "id")

	var req updateApplianceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := model.AppliancePatch{
		Name:       req.Name,
		PowerWatts: req.PowerWatts.ptr(),
		IsOn:       req.IsOn,
	}

	a, err := h.service.Update(r.Context(), identity.UserID, applianceID, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplianceResponse(a))
}
