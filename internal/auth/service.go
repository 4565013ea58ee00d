// Package auth はベーシック認証、ベアラートークン認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/acrodex/internal/model"
	"github.com/hitoshi/acrodex/internal/repository"
)

// dummyHash はユーザーが存在しない場合にも比較を行うためのダミーハッシュ。
// ユーザー名の存在有無で応答時間が変わらないようにする。
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("acrodex-dummy-password"), bcrypt.DefaultCost)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// MetricsRecorder はログイン試行のメトリクス記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// Service は認証に関するビジネスロジックを提供する。
// パスワードの照合、トークンの発行・検証、Webセッションの管理を行う。
type Service struct {
	userRepo    repository.UserRepository
	tokenRepo   repository.TokenRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	metrics     MetricsRecorder
}

// SetMetrics はメトリクスコレクターを設定する。未設定の場合は記録しない。
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// AuthenticateBasic はユーザー名とパスワードでユーザーを認証する。
// 認証に失敗した場合はINVALID_CREDENTIALSエラーを返す。
// ユーザーが存在しない場合もダミーハッシュとの比較を行い、応答時間を揃える。
func (s *Service) AuthenticateBasic(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.recordLoginFailure()
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.recordLoginFailure()
		return nil, model.NewInvalidCredentialsError()
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}

	return user, nil
}

func (s *Service) recordLoginFailure() {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure()
	}
}

// IssueToken はユーザーに新しいベアラートークンを発行する。
// トークンは16バイトの乱数をbase64エンコードした不透明な文字列。
func (s *Service) IssueToken(ctx context.Context, user *model.User) (*model.Token, error) {
	secret, err := generateTokenSecret()
	if err != nil {
		return nil, fmt.Errorf("トークンの生成に失敗しました: %w", err)
	}

	token := &model.Token{
		ID:        uuid.New().String(),
		Token:     secret,
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("トークンの保存に失敗しました: %w", err)
	}

	slog.Info("bearer token issued",
		slog.String("user_id", user.ID),
	)

	return token, nil
}

// AuthenticateBearer はベアラートークンでユーザーを認証する。
// トークンが存在しない場合はUNAUTHORIZEDエラーを返す。
func (s *Service) AuthenticateBearer(ctx context.Context, tokenValue string) (*model.User, error) {
	token, err := s.tokenRepo.FindByToken(ctx, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}
	if token == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("トークン所有者の取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// CreateSession はWeb UIログイン用のセッションを発行する。
func (s *Service) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// GetCurrentUser はセッションIDから現在のユーザーを取得する。
// セッションが無効または期限切れの場合はUNAUTHORIZEDエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッションの検索に失敗しました: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("セッション所有者の取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// generateTokenSecret は16バイトの乱数からベアラートークン文字列を生成する。
func generateTokenSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
