package upstream

import (
	"strings"

	"github.com/hitoshi/enthub/internal/model"
)

// ImageURL は画像パスにベースURLを付与する。パスが空なら空文字を返す。
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	return base + path
}

// JoinNames は複数値フィールドを ", " で連結する。空要素は除く。
func JoinNames(names []string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, ", ")
}

// Query は検索語をトリムし、外部APIを呼ぶべきかを返す。
// 空白のみの場合は false を返し、呼び出し元は空の結果で短絡する。
func Query(q string) (string, bool) {
	q = strings.TrimSpace(q)
	return q, q != ""
}

// NotConfigured は資格情報が未設定のAPIに対して返すエラーを生成する。
// 外部APIは呼び出さない。
func NotConfigured(api string) *model.UpstreamError {
	return &model.UpstreamError{API: api, Message: "credentials are not configured"}
}
