// Package category はカテゴリのCRUDと略語とのカテゴリ集合の調整ロジックを提供する。
package category

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

// MetricsRecorder はカテゴリ集合調整のメトリクス記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordCategoriesReconciled(added, removed int)
}

// Service はカテゴリのビジネスロジックを提供する。
type Service struct {
	categoryRepo repository.CategoryRepository
	acronymRepo  repository.AcronymRepository
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
	categoryRepo repository.CategoryRepository,
	acronymRepo repository.AcronymRepository,
	pivotRepo repository.AcronymCategoryRepository,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		acronymRepo:  acronymRepo,
		pivotRepo:    pivotRepo,
		sanitizer:    sanitizer,
	}
}

// Create は新しいカテゴリを作成する。名前は空であってはならない。
func (s *Service) Create(ctx context.Context, name string) (*model.Category, error) {
	name = s.sanitizer.Sanitize(name)
	if name == "" {
		return nil, model.NewValidationFailedError("name")
	}

	category := &model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	slog.Info("category created",
		slog.String("category_id", category.ID),
		slog.String("name", category.Name),
	)

	return category, nil
}

// List は全カテゴリを作成順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// Get は指定IDのカテゴリを返す。存在しない場合はCATEGORY_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}
	return category, nil
}

// Acronyms はカテゴリに関連付いた略語一覧を返す。
func (s *Service) Acronyms(ctx context.Context, categoryID string) ([]*model.Acronym, error) {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}

	acronyms, err := s.pivotRepo.ListAcronymsByCategoryID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("略語一覧の取得に失敗しました: %w", err)
	}
	return acronyms, nil
}

// Reconcile は略語のカテゴリ集合を希望集合に一致させる。
// 現在の集合との差分を計算し、追加と削除を単一トランザクションで適用する。
// 同じ希望集合で再実行しても結果は変わらない（冪等）。
func (s *Service) Reconcile(ctx context.Context, acronymID string, desired []string) error {
	acronym, err := s.acronymRepo.FindByID(ctx, acronymID)
	if err != nil {
		return fmt.Errorf("略語の取得に失敗しました: %w", err)
	}
	if acronym == nil {
		return model.NewAcronymNotFoundError(acronymID)
	}

	current, err := s.pivotRepo.ListCategoriesByAcronymID(ctx, acronymID)
	if err != nil {
		return fmt.Errorf("現在のカテゴリ集合の取得に失敗しました: %w", err)
	}

	currentNames := make([]string, 0, len(current))
	for _, c := range current {
		currentNames = append(currentNames, c.Name)
	}

	toAdd, toRemove := diffNames(currentNames, s.normalizeNames(desired))
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}

	if err := s.pivotRepo.ApplyReconciliation(ctx, acronymID, toAdd, toRemove); err != nil {
		return fmt.Errorf("カテゴリ集合の調整に失敗しました: %w", err)
	}

	slog.Info("categories reconciled",
		slog.String("acronym_id", acronymID),
		slog.Int("added", len(toAdd)),
		slog.Int("removed", len(toRemove)),
	)

	if s.metrics != nil {
		s.metrics.RecordCategoriesReconciled(len(toAdd), len(toRemove))
	}

	return nil
}

// normalizeNames は名前のサニタイズ、空要素の除去、重複の排除を行う。
func (s *Service) normalizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = s.sanitizer.Sanitize(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	return result
}

// diffNames は現在の集合と希望集合の差分を返す。
// toAddは希望集合にのみ存在する名前、toRemoveは現在の集合にのみ存在する名前。
func diffNames(current, desired []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]bool, len(current))
	for _, name := range current {
		currentSet[name] = true
	}
	desiredSet := make(map[string]bool, len(desired))
	for _, name := range desired {
		desiredSet[name] = true
	}

	for _, name := range desired {
		if !currentSet[name] {
			toAdd = append(toAdd, name)
		}
	}
	for _, name := range current {
		if !desiredSet[name] {
			toRemove = append(toRemove, name)
		}
	}
	return toAdd, toRemove
}
