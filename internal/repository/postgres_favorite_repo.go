package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/enthub/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Create はお気に入りを1件作成する。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.FavoriteSong) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorite_songs (id, user_id, track_id, track_name, artist_name, album_art, preview_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fav.ID, fav.UserID, fav.TrackID, fav.TrackName, fav.ArtistName, fav.AlbumArt, fav.PreviewURL, fav.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのお気に入りを登録日時の新しい順に返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]model.FavoriteSong, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, track_id, track_name, artist_name, album_art, preview_url, created_at
		 FROM favorite_songs WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	favs := []model.FavoriteSong{}
	for rows.Next() {
		var f model.FavoriteSong
		if err := rows.Scan(&f.ID, &f.UserID, &f.TrackID, &f.TrackName, &f.ArtistName, &f.AlbumArt, &f.PreviewURL, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}
	return favs, nil
}

// DeleteOneByUserAndTrack は (user_id, track_id) に一致する最も新しい1件だけを削除する。
// 重複登録された残りはそのまま残る。
func (r *PostgresFavoriteRepo) DeleteOneByUserAndTrack(ctx context.Context, userID, trackID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM favorite_songs WHERE id = (
			SELECT id FROM favorite_songs
			WHERE user_id = $1 AND track_id = $2
			ORDER BY created_at DESC, id
			LIMIT 1
		)`,
		userID, trackID,
	)
	if err != nil {
		return 0, fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// DeleteByUserID はユーザーの全お気に入りを削除する。
func (r *PostgresFavoriteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM favorite_songs WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの一括削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
