package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/ecotrack/internal/database"
)

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	OK bool `json:"ok"`
}

// HealthHandler はヘルスチェックを処理する。
// pingerがnilの場合はプロセスの生存のみを返す。
type HealthHandler struct {
	pinger database.Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(pinger database.Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Health はDB接続を確認し、{ok: true} を返す。DBに到達できない場合は503。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.pinger.PingContext(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false})
			return
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}
