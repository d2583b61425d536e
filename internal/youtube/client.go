// Package youtube はYouTube Data API v3のアダプタを提供する。
package youtube

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

const (
	// APIName はログ・メトリクスで使うAPI名。
	APIName = "youtube"
	// defaultBaseURL はYouTube Data API v3のベースURL。
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	// maxResultsLimit はAPIが許容するmaxResultsの上限。
	maxResultsLimit = 50
)

// proxyResources はプロキシで転送を許可するリソース。
var proxyResources = map[string]bool{
	"search":          true,
	"videos":          true,
	"channels":        true,
	"playlistItems":   true,
	"playlists":       true,
	"videoCategories": true,
}

// Client はYouTube Data APIのクライアント。
type Client struct {
	http    *upstream.Client
	apiKey  string
	logger  *slog.Logger
	baseURL string // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *upstream.Client, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		http:    httpClient,
		apiKey:  apiKey,
		logger:  logger,
		baseURL: defaultBaseURL,
	}
}

type snippetJSON struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
	Thumbnails   map[string]struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

func (s snippetJSON) thumbnail() string {
	for _, size := range []string{"medium", "high", "default"} {
		if t, ok := s.Thumbnails[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

func (s snippetJSON) normalize(videoID string) model.Video {
	return model.Video{
		VideoID:     videoID,
		Title:       s.Title,
		Channel:     s.ChannelTitle,
		Thumbnail:   s.thumbnail(),
		PublishedAt: s.PublishedAt,
	}
}

// Search は動画を検索する。空の検索語の場合は外部APIを呼ばずに空配列を返す。
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]model.Video, error) {
	q, ok := upstream.Query(query)
	if !ok {
		return []model.Video{}, nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", q)
	params.Set("maxResults", strconv.Itoa(clampMax(maxResults)))

	var out struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet snippetJSON `json:"snippet"`
		} `json:"items"`
	}
	if err := c.get(ctx, "search", params, &out); err != nil {
		return nil, err
	}

	videos := make([]model.Video, 0, len(out.Items))
	for _, item := range out.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, item.Snippet.normalize(item.ID.VideoID))
	}
	return videos, nil
}

// Popular は地域別の人気動画を返す。regionCode が空の場合はUSを使う。
func (c *Client) Popular(ctx context.Context, regionCode string, maxResults int) ([]model.Video, error) {
	regionCode = strings.ToUpper(strings.TrimSpace(regionCode))
	if regionCode == "" {
		regionCode = "US"
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", regionCode)
	params.Set("maxResults", strconv.Itoa(clampMax(maxResults)))

	var out struct {
		Items []struct {
			ID      string      `json:"id"`
			Snippet snippetJSON `json:"snippet"`
		} `json:"items"`
	}
	if err := c.get(ctx, "videos", params, &out); err != nil {
		return nil, err
	}

	videos := make([]model.Video, 0, len(out.Items))
	for _, item := range out.Items {
		videos = append(videos, item.Snippet.normalize(item.ID))
	}
	return videos, nil
}

// Proxy は "search?part=snippet&q=..." 形式のエンドポイントをそのまま転送し、
// レスポンスJSONを返す。許可リストにないリソースは拒否する。
// APIキーはサーバー側で付与し、呼び出し元が指定した key は無視する。
func (c *Client) Proxy(ctx context.Context, endpoint string) (json.RawMessage, error) {
	endpoint = strings.TrimSpace(endpoint)
	if decoded, err := url.QueryUnescape(endpoint); err == nil && strings.Contains(endpoint, "%") {
		endpoint = decoded
	}
	endpoint = strings.TrimPrefix(endpoint, "/")
	if endpoint == "" {
		return nil, model.NewValidationError("endpoint", "endpoint を指定してください")
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.IsAbs() || u.Host != "" {
		return nil, model.NewValidationError("endpoint", "endpoint の形式が不正です")
	}
	if !proxyResources[u.Path] {
		return nil, model.NewEndpointNotAllowedError(u.Path)
	}

	params := u.Query()
	params.Del("key")

	var out json.RawMessage
	if err := c.get(ctx, u.Path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	if c.apiKey == "" {
		return upstream.NotConfigured(APIName)
	}
	params.Set("key", c.apiKey)
	return c.http.GetJSON(ctx, c.baseURL+"/"+resource+"?"+params.Encode(), nil, out)
}

func clampMax(n int) int {
	if n <= 0 {
		return 5
	}
	if n > maxResultsLimit {
		return maxResultsLimit
	}
	return n
}
