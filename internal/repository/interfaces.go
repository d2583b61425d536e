// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/enthub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はIdPから取得した表示名とプロフィール画像URLを更新する。
	UpdateProfile(ctx context.Context, id, name, photoURL string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// FavoriteRepository はお気に入りトラックの永続化インターフェース。
type FavoriteRepository interface {
	// Create はお気に入りを1件作成する。同じトラックの重複は許容する。
	Create(ctx context.Context, fav *model.FavoriteSong) error

	// ListByUserID はユーザーのお気に入りを登録日時の新しい順に返す。
	ListByUserID(ctx context.Context, userID string) ([]model.FavoriteSong, error)

	// DeleteOneByUserAndTrack は (user_id, track_id) に一致する最も新しい1件を削除し、削除件数（0か1）を返す。
	// 一致しない場合は0件でエラーにならない。
	DeleteOneByUserAndTrack(ctx context.Context, userID, trackID string) (int64, error)

	// DeleteByUserID はユーザーの全お気に入りを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// RecordRepository は保存済み集約スナップショットの永続化インターフェース。
type RecordRepository interface {
	// Create はレコードを作成する。
	Create(ctx context.Context, rec *model.EntertainmentRecord) error

	// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.EntertainmentRecord, error)

	// List はレコードを作成日時の新しい順に返す。
	List(ctx context.Context) ([]model.EntertainmentRecord, error)

	// Update はレコードの内容を更新する。見つからない場合はfalseを返す。
	Update(ctx context.Context, rec *model.EntertainmentRecord) (bool, error)

	// DeleteByID は指定IDのレコードを削除する。見つからない場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)
}
