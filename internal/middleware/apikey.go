package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKeyHeader はクライアントがAPIキーを送るヘッダー名。
const APIKeyHeader = "x-api-key"

// NewAPIKeyMiddleware は x-api-key ヘッダーが apiKey と一致しないリクエストを401で拒否する。
// 比較は定数時間で行う。
func NewAPIKeyMiddleware(apiKey string) func(next http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(APIKeyHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				slog.Warn("api key rejected",
					slog.String("path", r.URL.Path),
					slog.Bool("present", len(got) > 0),
				)
				writeUnauthorized(w, "INVALID_API_KEY", "APIキーが無効です。", "x-api-key ヘッダーに正しいAPIキーを指定してください。")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
