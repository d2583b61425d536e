package news

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

// RSSAPIName はRSS代替取得元のAPI名。
const RSSAPIName = "news-rss"

// TextCleaner はHTMLを含むフィールドをプレーンテキストにする。
type TextCleaner interface {
	PlainText(rawHTML string) string
}

// RSSSource はRSS/Atomフィードから見出しを取得する FallbackSource。
type RSSSource struct {
	http    *upstream.Client
	feedURL string
	cleaner TextCleaner
}

// NewRSSSource はRSSSourceを生成する。
func NewRSSSource(httpClient *upstream.Client, feedURL string, cleaner TextCleaner) *RSSSource {
	return &RSSSource{http: httpClient, feedURL: feedURL, cleaner: cleaner}
}

// Latest はフィードの先頭から最大 limit 件を Article に変換して返す。
func (s *RSSSource) Latest(ctx context.Context, limit int) ([]model.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, &model.UpstreamError{API: RSSAPIName, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	body, err := s.http.Fetch(req)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &model.UpstreamError{API: RSSAPIName, Status: http.StatusOK, Message: "フィードの解析に失敗しました: " + err.Error()}
	}

	return s.convert(feed, limit), nil
}

func (s *RSSSource) convert(feed *gofeed.Feed, limit int) []model.Article {
	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		if limit > 0 && len(articles) >= limit {
			break
		}

		a := model.Article{
			Title:       s.cleaner.PlainText(item.Title),
			Source:      feed.Title,
			Description: s.cleaner.PlainText(item.Description),
			URL:         item.Link,
		}
		if item.Author != nil {
			a.Author = item.Author.Name
		}
		if a.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
			a.Author = item.Authors[0].Name
		}
		if item.Image != nil {
			a.Image = item.Image.URL
		}
		if a.Image == "" {
			for _, enc := range item.Enclosures {
				if enc != nil && strings.HasPrefix(enc.Type, "image/") {
					a.Image = enc.URL
					break
				}
			}
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}
		articles = append(articles, a)
	}
	return articles
}

var _ FallbackSource = (*RSSSource)(nil)
