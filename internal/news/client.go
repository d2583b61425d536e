// Package news はNewsAPI v2のアダプタと、RSSによる見出しの代替取得、
// 記事本文リーダーを提供する。
package news

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

const (
	// APIName はログ・メトリクスで使うAPI名。
	APIName = "newsapi"
	// defaultBaseURL はNewsAPI v2のベースURL。
	defaultBaseURL = "https://newsapi.org/v2"
	// pageSize は一覧系エンドポイントの1ページ件数。
	pageSize = 12
	// entertainmentQuery はエンタメ総合フィードの検索式。
	entertainmentQuery = "entertainment OR movies OR hollywood OR celebrity"
	// DefaultTopic はトピック未指定時に使うタグ。
	DefaultTopic = "hollywood"
)

// topicQueries はトピックタグからNewsAPIの検索式への対応。
var topicQueries = map[string]string{
	"hollywood": "hollywood OR celebrity OR actor OR actress",
	"music":     "music industry OR songs OR artist OR album",
	"gaming":    "gaming OR video games OR esports",
	"tv":        "tv shows OR streaming OR netflix OR hbo",
	"movies":    "movies OR cinema OR film",
}

// Topics は既知のトピックタグ一覧を返す。
func Topics() []string {
	return []string{"hollywood", "music", "gaming", "tv", "movies"}
}

// TopicQuery はトピックタグに対応する検索式を返す。
// 未知のタグはそのまま検索語として使い、空なら DefaultTopic を使う。
func TopicQuery(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		tag = DefaultTopic
	}
	if q, ok := topicQueries[tag]; ok {
		return q
	}
	return tag
}

// FallbackSource はNewsAPIが使えない場合の見出し取得元。
type FallbackSource interface {
	Latest(ctx context.Context, limit int) ([]model.Article, error)
}

// Client はNewsAPIのクライアント。
type Client struct {
	http     *upstream.Client
	apiKey   string
	fallback FallbackSource
	logger   *slog.Logger
	baseURL  string // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。fallback は nil でもよい。
func NewClient(httpClient *upstream.Client, apiKey string, fallback FallbackSource, logger *slog.Logger) *Client {
	return &Client{
		http:     httpClient,
		apiKey:   apiKey,
		fallback: fallback,
		logger:   logger,
		baseURL:  defaultBaseURL,
	}
}

type articlesJSON struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// removedMarker はNewsAPIが削除済み記事のタイトルに入れる値。
const removedMarker = "[Removed]"

func (a articlesJSON) normalize() []model.Article {
	articles := make([]model.Article, 0, len(a.Articles))
	for _, src := range a.Articles {
		if src.Title == removedMarker || src.URL == "" {
			continue
		}
		articles = append(articles, model.Article{
			Title:       src.Title,
			Source:      src.Source.Name,
			Author:      src.Author,
			Description: src.Description,
			URL:         src.URL,
			Image:       src.URLToImage,
			PublishedAt: src.PublishedAt,
		})
	}
	return articles
}

// Headlines はカテゴリ別のトップ見出しを最大 limit 件返す。
// NewsAPIが失敗し、代替取得元が設定されている場合はそちらの見出しを返す。
func (c *Client) Headlines(ctx context.Context, category string, limit int) ([]model.Article, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, model.NewValidationError("category", "カテゴリを指定してください")
	}

	params := url.Values{}
	params.Set("category", category)
	params.Set("country", "us")
	params.Set("pageSize", strconv.Itoa(limit))

	articles, err := c.fetch(ctx, "/top-headlines", params)
	if err != nil {
		return c.fallbackOr(ctx, limit, err)
	}
	return articles, nil
}

// Entertainment はエンタメ総合の新着記事を返す。
func (c *Client) Entertainment(ctx context.Context, page int) ([]model.Article, error) {
	articles, err := c.everything(ctx, entertainmentQuery, page, "publishedAt")
	if err != nil {
		return c.fallbackOr(ctx, pageSize, err)
	}
	return articles, nil
}

// Search は記事を検索する。空の検索語の場合は外部APIを呼ばずに空配列を返す。
func (c *Client) Search(ctx context.Context, query string, page int) ([]model.Article, error) {
	q, ok := upstream.Query(query)
	if !ok {
		return []model.Article{}, nil
	}
	return c.everything(ctx, q, page, "publishedAt")
}

// Topic はトピックタグに対応する人気記事を返す。
func (c *Client) Topic(ctx context.Context, tag string, page int) ([]model.Article, error) {
	return c.everything(ctx, TopicQuery(tag), page, "popularity")
}

func (c *Client) everything(ctx context.Context, q string, page int, sortBy string) ([]model.Article, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("sortBy", sortBy)

	return c.fetch(ctx, "/everything", params)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]model.Article, error) {
	if c.apiKey == "" {
		return nil, upstream.NotConfigured(APIName)
	}
	params.Set("apiKey", c.apiKey)

	var out articlesJSON
	if err := c.http.GetJSON(ctx, c.baseURL+path+"?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	// NewsAPIは200でも status=error を返すことがある
	if out.Status == "error" {
		msg := out.Message
		if msg == "" {
			msg = out.Code
		}
		return nil, &model.UpstreamError{API: APIName, Status: 200, Message: msg}
	}
	return out.normalize(), nil
}

func (c *Client) fallbackOr(ctx context.Context, limit int, cause error) ([]model.Article, error) {
	if c.fallback == nil {
		return nil, cause
	}
	articles, err := c.fallback.Latest(ctx, limit)
	if err != nil {
		c.logger.Error("代替フィードからの見出し取得にも失敗しました",
			slog.String("api", APIName),
			slog.String("error", err.Error()),
		)
		return nil, errors.Join(cause, err)
	}
	c.logger.Warn("NewsAPIの代わりに代替フィードの見出しを返します",
		slog.String("cause", cause.Error()),
		slog.Int("items_count", len(articles)),
	)
	return articles, nil
}
