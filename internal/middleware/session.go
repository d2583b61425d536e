// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/enthub/internal/model"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

type contextKey string

var userContextKey = contextKey("user")

// UserResolver はセッションIDからユーザーを解決する。auth.Service が実装する。
type UserResolver interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// NewOptionalSessionMiddleware は有効な session_id Cookie があればユーザーを
// コンテキストに注入する。Cookie がない、または無効な場合はゲストとして通過させる。
func NewOptionalSessionMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.GetCurrentUser(r.Context(), cookie.Value)
			if err != nil {
				var perr *model.PersistenceError
				if errors.As(err, &perr) {
					slog.Error("failed to resolve session", slog.String("error", err.Error()))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireUser はログインユーザーがいないリクエストを401で拒否する。
// NewOptionalSessionMiddleware の後に配置する。
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "ログインが必要です。", "ログインしてから再度お試しください。")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext はコンテキストのログインユーザーを返す。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userContextKey).(*model.User)
	return u, ok && u != nil
}

// OwnerID はお気に入りの所有者IDを返す。未ログインなら共有の "guest"。
func OwnerID(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return model.GuestUserID
}

// ContextWithUser はコンテキストにユーザーを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
