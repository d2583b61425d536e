package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は外部から取得したHTMLを表示用に無害化する。
// bluemondayのポリシーはスレッドセーフなので共有してよい。
type ContentSanitizer struct {
	article *bluemonday.Policy
	text    *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// 記事本文ポリシー:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, h2-h4, figure, figcaption, img
//   - script, iframe, style と on* イベント属性は除去
//   - img の src は https のみ
//   - a には target="_blank" と rel="noopener noreferrer" を付与
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h2", "h3", "h4",
		"figure", "figcaption",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &ContentSanitizer{
		article: p,
		text:    bluemonday.StrictPolicy(),
	}
}

// Sanitize は記事本文HTMLを許可リストに従ってサニタイズする。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	return strings.TrimSpace(s.article.Sanitize(rawHTML))
}

// PlainText はHTMLタグをすべて除去し、エンティティを戻したプレーンテキストを返す。
// RSSの description など、表示上はテキストとして扱うフィールドに使う。
func (s *ContentSanitizer) PlainText(rawHTML string) string {
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(rawHTML)))
}
