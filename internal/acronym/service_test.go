package acronym

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/acrodex/internal/model"
	"github.com/hitoshi/acrodex/internal/security"
)

// mockAcronymRepo はテスト用のAcronymRepositoryモック。
type mockAcronymRepo struct {
	createFunc            func(ctx context.Context, acronym *model.Acronym) error
	findByIDFunc          func(ctx context.Context, id string) (*model.Acronym, error)
	listFunc              func(ctx context.Context) ([]*model.Acronym, error)
	updateFunc            func(ctx context.Context, acronym *model.Acronym) error
	deleteFunc            func(ctx context.Context, id string) error
	listByUserIDFunc      func(ctx context.Context, userID string) ([]*model.Acronym, error)
	searchFunc            func(ctx context.Context, term string) ([]*model.Acronym, error)
	firstFunc             func(ctx context.Context) (*model.Acronym, error)
	listSortedByShortFunc func(ctx context.Context) ([]*model.Acronym, error)
}

func (m *mockAcronymRepo) Create(ctx context.Context, acronym *model.Acronym) error {
	return m.createFunc(ctx, acronym)
}

func (m *mockAcronymRepo) FindByID(ctx context.Context, id string) (*model.Acronym, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockAcronymRepo) List(ctx context.Context) ([]*model.Acronym, error) {
	return m.listFunc(ctx)
}

func (m *mockAcronymRepo) Update(ctx context.Context, acronym *model.Acronym) error {
	return m.updateFunc(ctx, acronym)
}

func (m *mockAcronymRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockAcronymRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Acronym, error) {
	return m.listByUserIDFunc(ctx, userID)
}

func (m *mockAcronymRepo) Search(ctx context.Context, term string) ([]*model.Acronym, error) {
	return m.searchFunc(ctx, term)
}

func (m *mockAcronymRepo) First(ctx context.Context) (*model.Acronym, error) {
	return m.firstFunc(ctx)
}

func (m *mockAcronymRepo) ListSortedByShort(ctx context.Context) ([]*model.Acronym, error) {
	return m.listSortedByShortFunc(ctx)
}

// mockUserRepo はテスト用のUserRepositoryモック。
type mockUserRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) { return nil, nil }

// mockCategoryRepo はテスト用のCategoryRepositoryモック。
type mockCategoryRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Category, error)
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *model.Category) error { return nil }

func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockCategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	return nil, nil
}

func (m *mockCategoryRepo) List(ctx context.Context) ([]*model.Category, error) { return nil, nil }

// mockPivotRepo はテスト用のAcronymCategoryRepositoryモック。
type mockPivotRepo struct {
	attachFunc                    func(ctx context.Context, acronymID, categoryID string) error
	detachFunc                    func(ctx context.Context, acronymID, categoryID string) error
	listCategoriesByAcronymIDFunc func(ctx context.Context, acronymID string) ([]*model.Category, error)
	deleteByAcronymIDFunc         func(ctx context.Context, acronymID string) error
}

func (m *mockPivotRepo) Attach(ctx context.Context, acronymID, categoryID string) error {
	return m.attachFunc(ctx, acronymID, categoryID)
}

func (m *mockPivotRepo) Detach(ctx context.Context, acronymID, categoryID string) error {
	return m.detachFunc(ctx, acronymID, categoryID)
}

func (m *mockPivotRepo) ListCategoriesByAcronymID(ctx context.Context, acronymID string) ([]*model.Category, error) {
	return m.listCategoriesByAcronymIDFunc(ctx, acronymID)
}

func (m *mockPivotRepo) ListAcronymsByCategoryID(ctx context.Context, categoryID string) ([]*model.Acronym, error) {
	return nil, nil
}

func (m *mockPivotRepo) DeleteByAcronymID(ctx context.Context, acronymID string) error {
	return m.deleteByAcronymIDFunc(ctx, acronymID)
}

func (m *mockPivotRepo) ApplyReconciliation(ctx context.Context, acronymID string, toAdd, toRemove []string) error {
	return nil
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返されるべき: %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

func TestCreate_SetsOwner(t *testing.T) {
	var saved *model.Acronym
	repo := &mockAcronymRepo{
		createFunc: func(ctx context.Context, acronym *model.Acronym) error {
			saved = acronym
			return nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	acronym, err := service.Create(context.Background(), "user-1", "OMG", "Oh My God")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if acronym.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", acronym.UserID)
	}
	if acronym.ID == "" {
		t.Error("IDが生成されていない")
	}
	if saved == nil {
		t.Fatal("略語が保存されていない")
	}
}

func TestCreate_EmptyFields(t *testing.T) {
	service := NewService(nil, nil, nil, nil, security.NewInputSanitizer())

	tests := []struct {
		name  string
		short string
		long  string
	}{
		{"shortが空", "", "Oh My God"},
		{"longが空", "OMG", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), "user-1", tt.short, tt.long)
			assertAPIErrorCode(t, err, "VALIDATION_FAILED")
		})
	}
}

func TestCreate_SanitizesInput(t *testing.T) {
	var saved *model.Acronym
	repo := &mockAcronymRepo{
		createFunc: func(ctx context.Context, acronym *model.Acronym) error {
			saved = acronym
			return nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	_, err := service.Create(context.Background(), "user-1", "OMG", "<b>Oh My God</b>")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if saved.Long != "Oh My God" {
		t.Errorf("Long = %q, HTMLタグが除去されるべき", saved.Long)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return nil, nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	_, err := service.Get(context.Background(), "missing")
	assertAPIErrorCode(t, err, "ACRONYM_NOT_FOUND")
}

func TestUpdate_TransfersOwnership(t *testing.T) {
	var updated *model.Acronym
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id, Short: "OMG", Long: "Oh My God", UserID: "creator"}, nil
		},
		updateFunc: func(ctx context.Context, acronym *model.Acronym) error {
			updated = acronym
			return nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	acronym, err := service.Update(context.Background(), "acr-1", "editor", "OMG", "Oh My Goodness")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// 所有権は編集者に移転する
	if acronym.UserID != "editor" {
		t.Errorf("UserID = %q, want editor", acronym.UserID)
	}
	if updated.UserID != "editor" {
		t.Errorf("保存されたUserID = %q, want editor", updated.UserID)
	}
	if acronym.Long != "Oh My Goodness" {
		t.Errorf("Long = %q, want Oh My Goodness", acronym.Long)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return nil, nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	_, err := service.Update(context.Background(), "missing", "editor", "OMG", "Oh My God")
	assertAPIErrorCode(t, err, "ACRONYM_NOT_FOUND")
}

func TestDelete_RemovesPivotRowsFirst(t *testing.T) {
	var order []string
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			order = append(order, "acronym")
			return nil
		},
	}
	pivotRepo := &mockPivotRepo{
		deleteByAcronymIDFunc: func(ctx context.Context, acronymID string) error {
			order = append(order, "pivot")
			return nil
		},
	}

	service := NewService(repo, nil, nil, pivotRepo, security.NewInputSanitizer())

	if err := service.Delete(context.Background(), "acr-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(order) != 2 || order[0] != "pivot" || order[1] != "acronym" {
		t.Errorf("削除順序 = %v, エッジが先に削除されるべき", order)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return nil, nil
		},
	}

	service := NewService(repo, nil, nil, &mockPivotRepo{}, security.NewInputSanitizer())

	err := service.Delete(context.Background(), "missing")
	assertAPIErrorCode(t, err, "ACRONYM_NOT_FOUND")
}

func TestSearch_EmptyTerm(t *testing.T) {
	service := NewService(nil, nil, nil, nil, security.NewInputSanitizer())

	_, err := service.Search(context.Background(), "")
	assertAPIErrorCode(t, err, "MISSING_SEARCH_TERM")
}

func TestSearch_NoMatchesReturnsEmpty(t *testing.T) {
	repo := &mockAcronymRepo{
		searchFunc: func(ctx context.Context, term string) ([]*model.Acronym, error) {
			return []*model.Acronym{}, nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	acronyms, err := service.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(acronyms) != 0 {
		t.Errorf("len = %d, want 0", len(acronyms))
	}
}

func TestFirst_NoAcronyms(t *testing.T) {
	repo := &mockAcronymRepo{
		firstFunc: func(ctx context.Context) (*model.Acronym, error) {
			return nil, nil
		},
	}

	service := NewService(repo, nil, nil, nil, security.NewInputSanitizer())

	_, err := service.First(context.Background())
	assertAPIErrorCode(t, err, "NO_ACRONYMS")
}

func TestOwner_ReturnsPublicRepresentation(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id, UserID: "user-1"}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Alice", Username: "alice", Password: "hash"}, nil
		},
	}

	service := NewService(repo, userRepo, nil, nil, security.NewInputSanitizer())

	owner, err := service.Owner(context.Background(), "acr-1")
	if err != nil {
		t.Fatalf("Owner() error = %v", err)
	}
	if owner.Username != "alice" {
		t.Errorf("Username = %q, want alice", owner.Username)
	}
}

func TestAttachCategory_AcronymNotFound(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return nil, nil
		},
	}

	service := NewService(repo, nil, &mockCategoryRepo{}, &mockPivotRepo{}, security.NewInputSanitizer())

	err := service.AttachCategory(context.Background(), "missing", "cat-1")
	assertAPIErrorCode(t, err, "ACRONYM_NOT_FOUND")
}

func TestAttachCategory_CategoryNotFound(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id}, nil
		},
	}
	categoryRepo := &mockCategoryRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Category, error) {
			return nil, nil
		},
	}

	service := NewService(repo, nil, categoryRepo, &mockPivotRepo{}, security.NewInputSanitizer())

	err := service.AttachCategory(context.Background(), "acr-1", "missing")
	assertAPIErrorCode(t, err, "CATEGORY_NOT_FOUND")
}

func TestAttachCategory_Success(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id}, nil
		},
	}
	categoryRepo := &mockCategoryRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Category, error) {
			return &model.Category{ID: id, Name: "Slang"}, nil
		},
	}
	attached := false
	pivotRepo := &mockPivotRepo{
		attachFunc: func(ctx context.Context, acronymID, categoryID string) error {
			attached = true
			return nil
		},
	}

	service := NewService(repo, nil, categoryRepo, pivotRepo, security.NewInputSanitizer())

	if err := service.AttachCategory(context.Background(), "acr-1", "cat-1"); err != nil {
		t.Fatalf("AttachCategory() error = %v", err)
	}
	if !attached {
		t.Error("エッジが作成されるべき")
	}
}

func TestDetachCategory_Success(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id}, nil
		},
	}
	categoryRepo := &mockCategoryRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Category, error) {
			return &model.Category{ID: id, Name: "Slang"}, nil
		},
	}
	detached := false
	pivotRepo := &mockPivotRepo{
		detachFunc: func(ctx context.Context, acronymID, categoryID string) error {
			detached = true
			return nil
		},
	}

	service := NewService(repo, nil, categoryRepo, pivotRepo, security.NewInputSanitizer())

	if err := service.DetachCategory(context.Background(), "acr-1", "cat-1"); err != nil {
		t.Fatalf("DetachCategory() error = %v", err)
	}
	if !detached {
		t.Error("エッジが削除されるべき")
	}
}

func TestCategories_ReturnsAttached(t *testing.T) {
	repo := &mockAcronymRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Acronym, error) {
			return &model.Acronym{ID: id}, nil
		},
	}
	pivotRepo := &mockPivotRepo{
		listCategoriesByAcronymIDFunc: func(ctx context.Context, acronymID string) ([]*model.Category, error) {
			return []*model.Category{{ID: "cat-1", Name: "Slang"}}, nil
		},
	}

	service := NewService(repo, nil, nil, pivotRepo, security.NewInputSanitizer())

	categories, err := service.Categories(context.Background(), "acr-1")
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "Slang" {
		t.Errorf("categories = %+v, Slangが1件返されるべき", categories)
	}
}
