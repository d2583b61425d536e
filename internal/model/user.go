// Package model はドメインモデルを定義する。
package model

import "time"

// GuestUserID はログインしていない利用者に割り当てる共有の所有者ID。
const GuestUserID = "guest"

// GuestDisplayName は未ログイン時に集約レスポンスへ入れる表示名。
const GuestDisplayName = "Guest"

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Email     string
	Name      string
	PhotoURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CurrentUser は /api/user が返すログインユーザー情報。
type CurrentUser struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Email       string  `json:"email"`
	Photo       *string `json:"photo"`
}
