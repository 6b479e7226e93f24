package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/ecotrack/internal/model"
)

func newTestTokenManager(now time.Time) *TokenManager {
	m := NewTokenManager("test-secret", 7*24*time.Hour)
	m.now = func() time.Time { return now }
	return m
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(now)

	token, err := m.Issue(model.Identity{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	identity, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if identity.UserID != "user-1" || identity.Email != "a@example.com" {
		t.Errorf("identity = %+v, want user-1/a@example.com", identity)
	}
}

// subとid、expが7日後に設定されることを検証
func TestTokenManager_Issue_Claims(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(now)

	token, err := m.Issue(model.Identity{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims.Subject != "user-1" || claims.ID != "user-1" {
		t.Errorf("sub = %q, id = %q, want user-1", claims.Subject, claims.ID)
	}
	if got := claims.ExpiresAt.Time; !got.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Errorf("exp = %v, want %v", got, now.Add(7*24*time.Hour))
	}
}

func TestTokenManager_Verify_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := newTestTokenManager(issuedAt).Issue(model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	later := newTestTokenManager(issuedAt.Add(8 * 24 * time.Hour))
	if _, err := later.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify of expired token = %v, want ErrInvalidToken", err)
	}
}

// tamperPayload は署名を残したままペイロード部分を書き換える。
func tamperPayload(token string) string {
	parts := strings.Split(token, ".")
	parts[1] = "eyJzdWIiOiJhdHRhY2tlciJ9"
	return strings.Join(parts, ".")
}

func TestTokenManager_Verify_Rejects(t *testing.T) {
	now := time.Now()
	m := newTestTokenManager(now)

	valid, err := m.Issue(model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	otherKey, err := NewTokenManager("other-secret", time.Hour).Issue(model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build none token: %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbled", "not.a.jwt"},
		{"tampered signature", valid + "x"},
		{"tampered payload", tamperPayload(valid)},
		{"wrong secret", otherKey},
		{"alg none", noneToken},
		{"missing exp", noExp},
		{"missing sub", noSub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() = %v, want ErrInvalidToken", err)
			}
		})
	}
}
