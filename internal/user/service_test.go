package user

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/acrodex/internal/model"
	"github.com/hitoshi/acrodex/internal/security"
)

// mockUserRepo はテスト用のUserRepositoryモック。
type mockUserRepo struct {
	createFunc         func(ctx context.Context, user *model.User) error
	findByIDFunc       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFunc func(ctx context.Context, username string) (*model.User, error)
	listFunc           func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.findByUsernameFunc(ctx, username)
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	return m.listFunc(ctx)
}

// mockAcronymRepo はテスト用のAcronymRepositoryモック。
// このパッケージで使うメソッドのみ関数フィールドを持つ。
type mockAcronymRepo struct {
	listByUserIDFunc func(ctx context.Context, userID string) ([]*model.Acronym, error)
}

func (m *mockAcronymRepo) Create(ctx context.Context, acronym *model.Acronym) error { return nil }
func (m *mockAcronymRepo) FindByID(ctx context.Context, id string) (*model.Acronym, error) {
	return nil, nil
}
func (m *mockAcronymRepo) List(ctx context.Context) ([]*model.Acronym, error)      { return nil, nil }
func (m *mockAcronymRepo) Update(ctx context.Context, acronym *model.Acronym) error { return nil }
func (m *mockAcronymRepo) Delete(ctx context.Context, id string) error             { return nil }

func (m *mockAcronymRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Acronym, error) {
	return m.listByUserIDFunc(ctx, userID)
}

func (m *mockAcronymRepo) Search(ctx context.Context, term string) ([]*model.Acronym, error) {
	return nil, nil
}
func (m *mockAcronymRepo) First(ctx context.Context) (*model.Acronym, error) { return nil, nil }
func (m *mockAcronymRepo) ListSortedByShort(ctx context.Context) ([]*model.Acronym, error) {
	return nil, nil
}

func TestRegister_HashesPassword(t *testing.T) {
	var saved *model.User
	userRepo := &mockUserRepo{
		createFunc: func(ctx context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	user, err := service.Register(context.Background(), "Alice", "alice", "secret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if saved == nil {
		t.Fatal("ユーザーが保存されていない")
	}
	if saved.Password == "secret" {
		t.Error("パスワードが平文のまま保存されている")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("secret")); err != nil {
		t.Errorf("保存されたハッシュが元のパスワードと照合できない: %v", err)
	}
	if user.ID == "" {
		t.Error("IDが生成されていない")
	}
}

func TestRegister_SanitizesInput(t *testing.T) {
	var saved *model.User
	userRepo := &mockUserRepo{
		createFunc: func(ctx context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	_, err := service.Register(context.Background(), "<script>x</script>Alice", "alice", "secret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if saved.Name != "Alice" {
		t.Errorf("Name = %q, スクリプトタグが除去されるべき", saved.Name)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	userRepo := &mockUserRepo{
		createFunc: func(ctx context.Context, user *model.User) error {
			return model.NewDuplicateUsernameError(user.Username)
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	_, err := service.Register(context.Background(), "Alice", "alice", "secret")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返されるべき: %v", err)
	}
	if apiErr.Code != "DUPLICATE_USERNAME" {
		t.Errorf("Code = %q, want DUPLICATE_USERNAME", apiErr.Code)
	}
}

func TestRegister_EmptyFields(t *testing.T) {
	service := NewService(nil, nil, security.NewInputSanitizer())

	tests := []struct {
		name     string
		userName string
		username string
		password string
	}{
		{"名前が空", "", "alice", "secret"},
		{"ユーザー名が空", "Alice", "", "secret"},
		{"パスワードが空", "Alice", "alice", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.userName, tt.username, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("APIErrorが返されるべき: %v", err)
			}
			if apiErr.Code != "VALIDATION_FAILED" {
				t.Errorf("Code = %q, want VALIDATION_FAILED", apiErr.Code)
			}
		})
	}
}

func TestList_ReturnsPublicRepresentation(t *testing.T) {
	userRepo := &mockUserRepo{
		listFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: "user-1", Name: "Alice", Username: "alice", Password: "hash1"},
				{ID: "user-2", Name: "Bob", Username: "bob", Password: "hash2"},
			}, nil
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	publics, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(publics) != 2 {
		t.Fatalf("len = %d, want 2", len(publics))
	}
	if publics[0].Username != "alice" || publics[1].Username != "bob" {
		t.Error("ユーザー名が保持されるべき")
	}
}

func TestGet_NotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	_, err := service.Get(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返されるべき: %v", err)
	}
	if apiErr.Code != "USER_NOT_FOUND" {
		t.Errorf("Code = %q, want USER_NOT_FOUND", apiErr.Code)
	}
}

func TestAcronyms_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	service := NewService(userRepo, &mockAcronymRepo{}, security.NewInputSanitizer())

	_, err := service.Acronyms(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返されるべき: %v", err)
	}
	if apiErr.Code != "USER_NOT_FOUND" {
		t.Errorf("Code = %q, want USER_NOT_FOUND", apiErr.Code)
	}
}

func TestAcronyms_ReturnsUserAcronyms(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice"}, nil
		},
	}
	acronymRepo := &mockAcronymRepo{
		listByUserIDFunc: func(ctx context.Context, userID string) ([]*model.Acronym, error) {
			return []*model.Acronym{
				{ID: "acr-1", Short: "OMG", Long: "Oh My God", UserID: userID},
			}, nil
		},
	}

	service := NewService(userRepo, acronymRepo, security.NewInputSanitizer())

	acronyms, err := service.Acronyms(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Acronyms() error = %v", err)
	}
	if len(acronyms) != 1 || acronyms[0].Short != "OMG" {
		t.Errorf("acronyms = %+v, 1件のOMGが返されるべき", acronyms)
	}
}

func TestEnsureAdmin_CreatesWhenMissing(t *testing.T) {
	created := false
	userRepo := &mockUserRepo{
		findByUsernameFunc: func(ctx context.Context, username string) (*model.User, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			created = true
			return nil
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	if err := service.EnsureAdmin(context.Background(), "Admin", "admin", "password"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
	if !created {
		t.Error("管理者ユーザーが作成されるべき")
	}
}

func TestEnsureAdmin_SkipsWhenExists(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFunc: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username}, nil
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			t.Fatal("既存の管理者がいる場合はCreateが呼ばれてはならない")
			return nil
		},
	}

	service := NewService(userRepo, nil, security.NewInputSanitizer())

	if err := service.EnsureAdmin(context.Background(), "Admin", "admin", "password"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}
}
