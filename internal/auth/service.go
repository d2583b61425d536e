// Package auth はGoogleログインとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/repository"
)

// ErrNoSession はセッションが存在しないか期限切れであることを表す。
var ErrNoSession = errors.New("session not found or expired")

// OAuthUserInfo はIdPから取得したプロフィール。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	PhotoURL       string
	Provider       string
}

// OAuthProvider は認可コードフローを行うIdPのインターフェース。
type OAuthProvider interface {
	GetLoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // 秒
}

// Service はログイン、ログアウト、現在ユーザー解決を提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
	}
}

// GetLoginURL はIdPの認可URLを返す。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback は認可コードを交換してユーザーを特定し、セッションを発行する。
// 初回ログインならユーザーとidentityを作成し、既存ユーザーなら表示名と写真を最新化する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, &model.UpstreamAuthError{API: "google", Err: err}
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "identity.find", Err: err}
	}

	var userID string
	if identity != nil {
		userID = identity.UserID
		if err := s.userRepo.UpdateProfile(ctx, userID, info.Name, info.PhotoURL); err != nil {
			// プロフィールの更新失敗でログインは止めない
			s.logger.Warn("プロフィールの更新に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("既存ユーザーがログインしました",
			slog.String("user_id", userID),
			slog.String("provider", info.Provider),
		)
	} else {
		userID, err = s.register(ctx, info)
		if err != nil {
			return nil, err
		}
	}

	return s.createSession(ctx, userID)
}

func (s *Service) register(ctx context.Context, info *OAuthUserInfo) (string, error) {
	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     info.Email,
		Name:      info.Name,
		PhotoURL:  info.PhotoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}
	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		return "", &model.PersistenceError{Op: "user.create", Err: err}
	}

	s.logger.Info("新規ユーザーを登録しました",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user.ID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewValidationError("session_id", "セッションIDがありません")
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return &model.PersistenceError{Op: "session.delete", Err: err}
	}
	s.logger.Info("ログアウトしました")
	return nil
}

// GetCurrentUser はセッションIDからユーザーを解決する。
// セッションが無効なら ErrNoSession を返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "session.find", Err: err}
	}
	if session == nil {
		return nil, ErrNoSession
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "user.find", Err: err}
	}
	if user == nil {
		return nil, ErrNoSession
	}
	return user, nil
}

// ToCurrentUser は /api/user のレスポンス形に変換する。写真がなければ null にする。
func ToCurrentUser(u *model.User) *model.CurrentUser {
	cu := &model.CurrentUser{
		ID:          u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
	}
	if u.PhotoURL != "" {
		photo := u.PhotoURL
		cu.Photo = &photo
	}
	return cu
}

func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, &model.PersistenceError{Op: "session.create", Err: err}
	}
	return session, nil
}

// generateSessionID は32バイトの乱数を16進文字列にする。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
