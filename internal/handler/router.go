package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ecotrack/internal/database"
	"github.com/hitoshi/ecotrack/internal/metrics"
	"github.com/hitoshi/ecotrack/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenVerifier     middleware.TokenVerifier

	// ルーティング
	APIPrefix string

	// メトリクス（省略可）
	MetricsRecorder middleware.HTTPRecorder
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	Pinger database.Pinger

	// サービス
	AuthService        AuthServiceInterface
	ApplianceService   ApplianceServiceInterface
	ConsumptionService ConsumptionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Metrics → Logging → SecurityHeaders → CORS
//
// 保護されたルートはハンドラーごとにBearerGuard.Protectで包み、
// 検証済みのIDを引数として渡す。/auth/register と /auth/login にはIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "route not found"})
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	prefix := normalizePrefix(deps.APIPrefix)
	if prefix == "" {
		mountAPIRoutes(r, deps)
	} else {
		r.Route(prefix, func(r chi.Router) {
			mountAPIRoutes(r, deps)
		})
	}

	return r
}

// mountAPIRoutes はAPIルートをrに登録する。
func mountAPIRoutes(r chi.Router, deps *RouterDeps) {
	guard := middleware.NewBearerGuard(deps.TokenVerifier, deps.RateLimiter)

	healthHandler := NewHealthHandler(deps.Pinger)
	authHandler := NewAuthHandler(deps.AuthService)
	applianceHandler := NewApplianceHandler(deps.ApplianceService)
	consumptionHandler := NewConsumptionHandler(deps.ConsumptionService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.AuthMiddleware())
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Get("/me", guard.Protect(authHandler.Me))
	})

	// --- 認証が必要なルート ---

	r.Route("/appliances", func(r chi.Router) {
		r.Get("/", guard.Protect(applianceHandler.List))
		r.Post("/", guard.Protect(applianceHandler.Create))
		r.Put("/{id}", guard.Protect(applianceHandler.Update))
	})

	r.Route("/consumption", func(r chi.Router) {
		r.Post("/log", guard.Protect(consumptionHandler.LogUsage))
		r.Get("/summary", guard.Protect(consumptionHandler.Summary))
	})
}

// normalizePrefix は "/api/" や "api" を "/api" に揃える。"/" は空として扱う。
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
