// Package acronym は略語のCRUD、検索、カテゴリ関連付けのビジネスロジックを提供する。
package acronym

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/acrodex/internal/model"
	"github.com/hitoshi/acrodex/internal/repository"
	"github.com/hitoshi/acrodex/internal/security"
)

// MetricsRecorder は略語作成のメトリクス記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordAcronymCreated()
}

// Service は略語のビジネスロジックを提供する。
type Service struct {
	acronymRepo  repository.AcronymRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	pivotRepo    repository.AcronymCategoryRepository
	sanitizer    security.InputSanitizerService
	metrics      MetricsRecorder
}

// SetMetrics はメトリクスコレクターを設定する。未設定の場合は記録しない。
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// NewService はServiceを生成する。
func NewService(
	acronymRepo repository.AcronymRepository,
	userRepo repository.UserRepository,
	categoryRepo repository.CategoryRepository,
	pivotRepo repository.AcronymCategoryRepository,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		acronymRepo:  acronymRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		pivotRepo:    pivotRepo,
		sanitizer:    sanitizer,
	}
}

// List は全略語を作成順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Acronym, error) {
	acronyms, err := s.acronymRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("略語一覧の取得に失敗しました: %w", err)
	}
	return acronyms, nil
}

// Create は認証済みユーザーの略語を作成する。
// shortとlongは空であってはならない。
func (s *Service) Create(ctx context.Context, userID, short, long string) (*model.Acronym, error) {
	short = s.sanitizer.Sanitize(short)
	long = s.sanitizer.Sanitize(long)

	if short == "" {
		return nil, model.NewValidationFailedError("short")
	}
	if long == "" {
		return nil, model.NewValidationFailedError("long")
	}

	now := time.Now()
	acronym := &model.Acronym{
		ID:        uuid.New().String(),
		Short:     short,
		Long:      long,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.acronymRepo.Create(ctx, acronym); err != nil {
		return nil, fmt.Errorf("略語の作成に失敗しました: %w", err)
	}

	slog.Info("acronym created",
		slog.String("acronym_id", acronym.ID),
		slog.String("short", acronym.Short),
		slog.String("user_id", userID),
	)

	if s.metrics != nil {
		s.metrics.RecordAcronymCreated()
	}

	return acronym, nil
}

// Get は指定IDの略語を返す。存在しない場合はACRONYM_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Acronym, error) {
	acronym, err := s.acronymRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return nil, model.NewAcronymNotFoundError(id)
	}
	return acronym, nil
}

// Update は略語のshortとlongを更新する。
// 所有権は編集したユーザーに移転する。元の作成者は保持されない。
func (s *Service) Update(ctx context.Context, id, editorID, short, long string) (*model.Acronym, error) {
	short = s.sanitizer.Sanitize(short)
	long = s.sanitizer.Sanitize(long)

	if short == "" {
		return nil, model.NewValidationFailedError("short")
	}
	if long == "" {
		return nil, model.NewValidationFailedError("long")
	}

	acronym, err := s.acronymRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return nil, model.NewAcronymNotFoundError(id)
	}

	acronym.Short = short
	acronym.Long = long
	acronym.UserID = editorID
	acronym.UpdatedAt = time.Now()

	if err := s.acronymRepo.Update(ctx, acronym); err != nil {
		return nil, fmt.Errorf("略語の更新に失敗しました: %w", err)
	}

	return acronym, nil
}

// Delete は略語とそのカテゴリ関連エッジを削除する。
// エッジの削除を先に行う（外部キー制約のため）。
func (s *Service) Delete(ctx context.Context, id string) error {
	acronym, err := s.acronymRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return model.NewAcronymNotFoundError(id)
	}

	if err := s.pivotRepo.DeleteByAcronymID(ctx, id); err != nil {
		return fmt.Errorf("カテゴリ関連の削除に失敗しました: %w", err)
	}

	if err := s.acronymRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("略語の削除に失敗しました: %w", err)
	}

	slog.Info("acronym deleted", slog.String("acronym_id", id))
	return nil
}

// Search はshortまたはlongがtermに完全一致する略語を返す。
// 検索語が空の場合はMISSING_SEARCH_TERMエラーを返す。
func (s *Service) Search(ctx context.Context, term string) ([]*model.Acronym, error) {
	if term == "" {
		return nil, model.NewMissingSearchTermError()
	}

	acronyms, err := s.acronymRepo.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("略語の検索に失敗しました: %w", err)
	}
	return acronyms, nil
}

// First は作成順で先頭の略語を返す。
// 1件も存在しない場合はNO_ACRONYMSエラーを返す。
func (s *Service) First(ctx context.Context) (*model.Acronym, error) {
	acronym, err := s.acronymRepo.First(ctx)
	if err != nil {
		return nil, fmt.Errorf("先頭略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return nil, model.NewNoAcronymsError()
	}
	return acronym, nil
}

// Sorted は全略語をshortの辞書順で返す。
func (s *Service) Sorted(ctx context.Context) ([]*model.Acronym, error) {
	acronyms, err := s.acronymRepo.ListSortedByShort(ctx)
	if err != nil {
		return nil, fmt.Errorf("略語一覧の取得に失敗しました: %w", err)
	}
	return acronyms, nil
}

// Owner は略語の所有者を公開表現で返す。
func (s *Service) Owner(ctx context.Context, acronymID string) (*model.UserPublic, error) {
	acronym, err := s.acronymRepo.FindByID(ctx, acronymID)
	if err != nil {
		return nil, fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return nil, model.NewAcronymNotFoundError(acronymID)
	}

	user, err := s.userRepo.FindByID(ctx, acronym.UserID)
	if err != nil {
		return nil, fmt.Errorf("所有者の取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(acronym.UserID)
	}

	public := user.Public()
	return &public, nil
}

// Categories は略語に関連付いたカテゴリ一覧を返す。
func (s *Service) Categories(ctx context.Context, acronymID string) ([]*model.Category, error) {
	acronym, err := s.acronymRepo.FindByID(ctx, acronymID)
	if err != nil {
		return nil, fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return nil, model.NewAcronymNotFoundError(acronymID)
	}

	categories, err := s.pivotRepo.ListCategoriesByAcronymID(ctx, acronymID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// AttachCategory は略語にカテゴリを関連付ける。
// 既に関連付いている場合は何もしない（冪等）。
func (s *Service) AttachCategory(ctx context.Context, acronymID, categoryID string) error {
	acronym, err := s.acronymRepo.FindByID(ctx, acronymID)
	if err != nil {
		return fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return model.NewAcronymNotFoundError(acronymID)
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(categoryID)
	}

	if err := s.pivotRepo.Attach(ctx, acronymID, categoryID); err != nil {
		return fmt.Errorf("カテゴリの関連付けに失敗しました: %w", err)
	}
	return nil
}

// DetachCategory は略語からカテゴリの関連付けを解除する。
// エッジが存在しない場合は何もしない。
func (s *Service) DetachCategory(ctx context.Context, acronymID, categoryID string) error {
	acronym, err := s.acronymRepo.FindByID(ctx, acronymID)
	if err != nil {
		return fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return model.NewAcronymNotFoundError(acronymID)
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(categoryID)
	}

	if err := s.pivotRepo.Detach(ctx, acronymID, categoryID); err != nil {
		return fmt.Errorf("カテゴリの関連付け解除に失敗しました: %w", err)
	}
	return nil
}
