// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"log/slog"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/repository"
)

// FavoriteDeleter はお気に入りの一括削除インターフェース。
type FavoriteDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	favorites   FavoriteDeleter
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	favorites FavoriteDeleter,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		favorites:   favorites,
		logger:      logger,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: favorite_songs → sessions → users（identities は CASCADE）。
// 保存済みレコードは作成者名を残したまま共有データとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return &model.PersistenceError{Op: "user.find", Err: err}
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	s.logger.Info("退会処理を開始します", slog.String("user_id", userID))

	if err := s.favorites.DeleteByUserID(ctx, userID); err != nil {
		return &model.PersistenceError{Op: "favorite.delete_all", Err: err}
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return &model.PersistenceError{Op: "session.delete_all", Err: err}
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return &model.PersistenceError{Op: "user.delete", Err: err}
	}

	s.logger.Info("退会処理が完了しました", slog.String("user_id", userID))
	return nil
}
