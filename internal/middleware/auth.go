// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/ecotrack/internal/model"
)

// TokenVerifier はベアラートークンの検証インターフェース。
// auth.Serviceの部分集合として定義する。
type TokenVerifier interface {
	VerifyToken(token string) (model.Identity, error)
}

// AuthenticatedHandlerFunc は検証済みのIDを引数で受け取るハンドラー。
type AuthenticatedHandlerFunc func(w http.ResponseWriter, r *http.Request, identity model.Identity)

// BearerGuard は保護されたハンドラーの前段でベアラートークンを検証する。
// 検証結果はコンテキストに格納せず、ハンドラーへ引数として渡す。
type BearerGuard struct {
	verifier TokenVerifier
	limiter  *RateLimiter
}

// NewBearerGuard はBearerGuardを生成する。
// limiterが指定された場合、認証済みユーザー単位のレート制限も適用する。
func NewBearerGuard(verifier TokenVerifier, limiter *RateLimiter) *BearerGuard {
	return &BearerGuard{verifier: verifier, limiter: limiter}
}

// Authenticate はリクエストのAuthorizationヘッダーを検証し、IDを返す。
// 失敗時は常にAuthErrorを返す。
func (g *BearerGuard) Authenticate(r *http.Request) (model.Identity, error) {
	token, ok := BearerToken(r)
	if !ok {
		return model.Identity{}, model.NewUnauthorizedError("missing bearer token")
	}
	return g.verifier.VerifyToken(token)
}

// Protect はnextを認証必須のハンドラーとして包む。
// 未認証の場合は401を返し、nextは呼び出さない。
func (g *BearerGuard) Protect(next AuthenticatedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.Authenticate(r)
		if err != nil {
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				apiErr = model.NewUnauthorizedError("invalid or expired token")
			}
			WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
			return
		}

		if g.limiter != nil && !g.limiter.AllowUser(identity.UserID) {
			slog.Warn("rate limit exceeded",
				slog.String("user_id", identity.UserID),
				slog.String("limit_type", "general"),
			)
			writeRateLimitResponse(w, g.limiter.config.GeneralRate)
			return
		}

		next(w, r, identity)
	}
}

// BearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// スキーム名は大文字小文字を区別しない。
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
