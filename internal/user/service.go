// Package user はユーザーの登録と参照に関するビジネスロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/acrodex/internal/model"
	"github.com/hitoshi/acrodex/internal/repository"
	"github.com/hitoshi/acrodex/internal/security"
)

// Service はユーザー管理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	acronymRepo repository.AcronymRepository
	sanitizer   security.InputSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	acronymRepo repository.AcronymRepository,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		userRepo:    userRepo,
		acronymRepo: acronymRepo,
		sanitizer:   sanitizer,
	}
}

// Register は新しいユーザーを登録する。
// パスワードはbcryptでハッシュ化して保存する。
// ユーザー名が既に使われている場合はDUPLICATE_USERNAMEエラーを返す。
func (s *Service) Register(ctx context.Context, name, username, password string) (*model.User, error) {
	name = s.sanitizer.Sanitize(name)
	username = s.sanitizer.Sanitize(username)

	if name == "" {
		return nil, model.NewValidationFailedError("name")
	}
	if username == "" {
		return nil, model.NewValidationFailedError("username")
	}
	if password == "" {
		return nil, model.NewValidationFailedError("password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  username,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// List は全ユーザーを公開表現で返す。
func (s *Service) List(ctx context.Context) ([]model.UserPublic, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}

	publics := make([]model.UserPublic, 0, len(users))
	for _, u := range users {
		publics = append(publics, u.Public())
	}
	return publics, nil
}

// Get は指定IDのユーザーを公開表現で返す。
// 存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.UserPublic, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}

	public := user.Public()
	return &public, nil
}

// Acronyms は指定ユーザーが作成した略語の一覧を返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) Acronyms(ctx context.Context, userID string) ([]*model.Acronym, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	acronyms, err := s.acronymRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("略語一覧の取得に失敗しました: %w", err)
	}
	return acronyms, nil
}

// EnsureAdmin は管理者ユーザーが存在することを保証する。
// 既に同名のユーザーが存在する場合は何もしない。起動時に呼び出される。
func (s *Service) EnsureAdmin(ctx context.Context, name, username, password string) error {
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("管理者ユーザーの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil
	}

	if _, err := s.Register(ctx, name, username, password); err != nil {
		return fmt.Errorf("管理者ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("admin user created", slog.String("username", username))
	return nil
}
