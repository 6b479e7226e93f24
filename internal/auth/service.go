// Package auth はユーザー登録、ログイン、ベアラートークンの検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/ecotrack/internal/metrics"
	"github.com/hitoshi/ecotrack/internal/model"
	"github.com/hitoshi/ecotrack/internal/repository"
)

// Recorder は認証イベントのメトリクス記録インターフェース。
type Recorder interface {
	RecordRegistration()
	RecordLogin(outcome string)
}

// LoginResult はログイン成功時に返すトークンと公開プロフィール。
type LoginResult struct {
	Token string
	User  model.PublicUser
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   *TokenManager
	recorder Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens *TokenManager,
	recorder Recorder,
) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		now:      time.Now,
	}
}

// Register はユーザーを登録し、公開プロフィールを返す。
// 同じemailの同時登録はINSERTの制約違反で検出し、ConflictErrorとして返す。
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.PublicUser, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, model.NewValidationError("email, password and name are required")
	}
	if utf8.RuneCountInString(email) > model.MaxEmailLength {
		return nil, model.NewValidationError(fmt.Sprintf("email must be at most %d characters", model.MaxEmailLength))
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("name must be at most %d characters", model.MaxNameLength))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailExistsError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordRegistration()
	}
	slog.Info("user registered", slog.String("user_id", user.ID))

	public := user.Public()
	return &public, nil
}

// Login はemailとパスワードを検証し、トークンを発行する。
// 未登録のemailとパスワード誤りは同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.recordLogin(metrics.LoginFailure)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			s.recordLogin(metrics.LoginFailure)
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	token, err := s.tokens.Issue(model.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, err
	}

	s.recordLogin(metrics.LoginSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{Token: token, User: user.Public()}, nil
}

// VerifyToken はベアラートークンを検証し、埋め込まれたIDを返す。
func (s *Service) VerifyToken(token string) (model.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		slog.Debug("token verification failed", slog.String("error", err.Error()))
		return model.Identity{}, model.NewUnauthorizedError("invalid or expired token")
	}
	return identity, nil
}

// CurrentUser は検証済みIDのユーザーの公開プロフィールを返す。
// トークン発行後にユーザーが存在しなくなった場合はAuthErrorを返す。
func (s *Service) CurrentUser(ctx context.Context, identity model.Identity) (*model.PublicUser, error) {
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("user not found")
	}

	public := user.Public()
	return &public, nil
}

func (s *Service) recordLogin(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}
