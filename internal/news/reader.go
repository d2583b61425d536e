package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/enthub/internal/model"
)

// URLValidator は任意URLの事前検証を行う。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// HTMLSanitizer は記事本文HTMLを無害化する。
type HTMLSanitizer interface {
	Sanitize(rawHTML string) string
	PlainText(rawHTML string) string
}

// Reader は記事URLを取得し、タイトルとサニタイズ済み本文を返す。
// 生のHTMLは返さない。
type Reader struct {
	httpClient *http.Client
	validator  URLValidator
	sanitizer  HTMLSanitizer
	logger     *slog.Logger
	maxSize    int64
}

// NewReader はReaderを生成する。httpClient にはSSRF防止付きクライアントを渡す。
func NewReader(httpClient *http.Client, validator URLValidator, sanitizer HTMLSanitizer, logger *slog.Logger, maxSize int64) *Reader {
	return &Reader{
		httpClient: httpClient,
		validator:  validator,
		sanitizer:  sanitizer,
		logger:     logger,
		maxSize:    maxSize,
	}
}

// Read は記事を取得する。
// URLが空なら ValidationError、安全でないURLなら SSRF_BLOCKED の APIError、
// 取得失敗は UpstreamError を返す。
func (r *Reader) Read(ctx context.Context, rawURL string) (*model.ArticleContent, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, model.NewValidationError("url", "記事のURLを指定してください")
	}
	if err := r.validator.ValidateURL(rawURL); err != nil {
		r.logger.Warn("記事URLがSSRF検証で拒否されました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSSRFBlockedError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewValidationError("url", fmt.Sprintf("URLが不正です: %v", err))
	}
	req.Header.Set("User-Agent", "EntertainmentHub/1.0 ArticleReader")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("記事の取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, &model.UpstreamError{API: "article", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("記事の取得で予期しないHTTPステータスを受信しました",
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &model.UpstreamError{API: "article", Status: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxSize))
	if err != nil {
		return nil, &model.UpstreamError{API: "article", Status: resp.StatusCode, Message: "レスポンスボディの読み取りに失敗しました"}
	}

	title, content, err := extractArticle(body)
	if err != nil {
		return nil, &model.UpstreamError{API: "article", Status: resp.StatusCode, Message: "HTMLの解析に失敗しました"}
	}

	return &model.ArticleContent{
		URL:     rawURL,
		Title:   r.sanitizer.PlainText(title),
		Content: r.sanitizer.Sanitize(content),
	}, nil
}

// extractArticle はHTMLから <title> と本文を取り出す。
// 本文は <article> があればその中身、なければ <main>、それもなければ <body> の中身。
func extractArticle(body []byte) (title string, content string, err error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}

	var titleNode, articleNode, mainNode, bodyNode *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if titleNode == nil {
					titleNode = n
				}
			case atom.Article:
				if articleNode == nil {
					articleNode = n
				}
			case atom.Main:
				if mainNode == nil {
					mainNode = n
				}
			case atom.Body:
				if bodyNode == nil {
					bodyNode = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if titleNode != nil && titleNode.FirstChild != nil {
		title = titleNode.FirstChild.Data
	}

	target := articleNode
	if target == nil {
		target = mainNode
	}
	if target == nil {
		target = bodyNode
	}
	if target == nil {
		return title, "", nil
	}

	var buf bytes.Buffer
	for c := target.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", "", err
		}
	}
	return title, buf.String(), nil
}
