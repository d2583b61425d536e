// Package favorite はお気に入りトラックの管理を提供する。
package favorite

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/repository"
	"github.com/hitoshi/enthub/internal/validation"
)

// Service はお気に入りのサービス層。
// 同じトラックの重複登録は許容し、削除は (userID, trackID) 単位で行う。
type Service struct {
	repo   repository.FavoriteRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.FavoriteRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Add はお気に入りを1件追加し、保存した内容を返す。
func (s *Service) Add(ctx context.Context, userID string, in model.FavoriteInput) (*model.FavoriteSong, error) {
	in.TrackID = strings.TrimSpace(in.TrackID)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	fav := &model.FavoriteSong{
		ID:         uuid.New().String(),
		UserID:     userID,
		TrackID:    in.TrackID,
		TrackName:  in.TrackName,
		ArtistName: in.ArtistName,
		AlbumArt:   in.AlbumArt,
		PreviewURL: in.PreviewURL,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, fav); err != nil {
		s.logger.Error("お気に入りの保存に失敗しました",
			slog.String("user_id", userID),
			slog.String("track_id", in.TrackID),
			slog.String("error", err.Error()),
		)
		return nil, &model.PersistenceError{Op: "favorite.add", Err: err}
	}
	return fav, nil
}

// List はユーザーのお気に入りを新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.FavoriteSong, error) {
	favs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "favorite.list", Err: err}
	}
	if favs == nil {
		favs = []model.FavoriteSong{}
	}
	return favs, nil
}

// Remove は (userID, trackID) に一致するお気に入りを1件削除する。
// 同じトラックを重複登録していれば残りは残る。一致するものがなくても成功とする。
func (s *Service) Remove(ctx context.Context, userID, trackID string) error {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return model.NewValidationError("trackId", "必須項目です")
	}

	n, err := s.repo.DeleteOneByUserAndTrack(ctx, userID, trackID)
	if err != nil {
		return &model.PersistenceError{Op: "favorite.remove", Err: err}
	}
	s.logger.Debug("お気に入りを削除しました",
		slog.String("user_id", userID),
		slog.String("track_id", trackID),
		slog.Int64("deleted", n),
	)
	return nil
}
