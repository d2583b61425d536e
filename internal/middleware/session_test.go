package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/enthub/internal/model"
)

type mockUserResolver struct {
	fn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockUserResolver) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.fn(ctx, sessionID)
}

func resolverFor(valid string, user *model.User) *mockUserResolver {
	return &mockUserResolver{fn: func(ctx context.Context, id string) (*model.User, error) {
		if id == valid {
			return user, nil
		}
		return nil, errors.New("session not found or expired")
	}}
}

// captureOwner は通過したリクエストの所有者IDを記録するハンドラーを返す。
func captureOwner(owner *string, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*owner = OwnerID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestOptionalSession_ValidCookie_InjectsUser(t *testing.T) {
	var owner string
	var called bool
	mw := NewOptionalSessionMiddleware(resolverFor("valid", &model.User{ID: "user-123"}))
	handler := mw(captureOwner(&owner, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/music/favorites", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if owner != "user-123" {
		t.Errorf("所有者 = %q, want user-123", owner)
	}
}

func TestOptionalSession_GuestFallsThrough(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"Cookieなし", nil},
		{"空のCookie", &http.Cookie{Name: SessionCookieName, Value: ""}},
		{"期限切れ", &http.Cookie{Name: SessionCookieName, Value: "expired"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var owner string
			var called bool
			mw := NewOptionalSessionMiddleware(resolverFor("valid", &model.User{ID: "u"}))
			handler := mw(captureOwner(&owner, &called))

			req := httptest.NewRequest(http.MethodGet, "/api/aggregate", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called || w.Code != http.StatusOK {
				t.Fatalf("ゲストも通過すべき: called=%v status=%d", called, w.Code)
			}
			if owner != model.GuestUserID {
				t.Errorf("所有者 = %q, want guest", owner)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("未ログイン status = %d, want 401", w.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Category != "auth" {
		t.Errorf("エラーボディ = %+v, err = %v", body, err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = req.WithContext(ContextWithUser(req.Context(), &model.User{ID: "u1"}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("ログイン済み status = %d, want 204", w.Code)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("空のコンテキストでユーザーが取得できてしまう")
	}
	if got := OwnerID(context.Background()); got != model.GuestUserID {
		t.Errorf("OwnerID = %q, want guest", got)
	}
}
