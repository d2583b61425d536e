package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	c := NewClient(upstream.NewClient(APIName, server.Client(), nil, logger), "yt-key", logger)
	c.baseURL = server.URL
	return c, &calls
}

func TestClient_Search_NormalizesVideos(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("q") != "entertainment" || q.Get("maxResults") != "5" || q.Get("key") != "yt-key" {
			t.Errorf("リクエスト = %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Write([]byte(`{"items":[
			{"id":{"kind":"youtube#video","videoId":"v1"},"snippet":{"title":"T1","channelTitle":"C1","publishedAt":"2024-01-01T00:00:00Z","thumbnails":{"default":{"url":"d.jpg"},"medium":{"url":"m.jpg"}}}},
			{"id":{"kind":"youtube#channel","channelId":"ch"},"snippet":{"title":"channel"}}
		]}`))
	})

	videos, err := c.Search(context.Background(), "entertainment", 5)
	if err != nil {
		t.Fatalf("Search がエラーを返した: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("件数 = %d, want 1（videoId の無い要素は除外）", len(videos))
	}
	want := model.Video{VideoID: "v1", Title: "T1", Channel: "C1", Thumbnail: "m.jpg", PublishedAt: "2024-01-01T00:00:00Z"}
	if videos[0] != want {
		t.Errorf("Video = %+v, want %+v", videos[0], want)
	}
}

func TestClient_Search_EmptyQueryShortCircuits(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	videos, err := c.Search(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("Search がエラーを返した: %v", err)
	}
	if len(videos) != 0 || calls.Load() != 0 {
		t.Errorf("videos=%d calls=%d, want 0/0", len(videos), calls.Load())
	}
}

func TestClient_Popular(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("chart") != "mostPopular" || q.Get("regionCode") != "LK" {
			t.Errorf("クエリ = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"items":[{"id":"p1","snippet":{"title":"Pop","thumbnails":{"high":{"url":"h.jpg"}}}}]}`))
	})

	videos, err := c.Popular(context.Background(), "lk", 10)
	if err != nil {
		t.Fatalf("Popular がエラーを返した: %v", err)
	}
	if len(videos) != 1 || videos[0].VideoID != "p1" || videos[0].Thumbnail != "h.jpg" {
		t.Errorf("videos = %+v", videos)
	}
}

func TestClient_Proxy_ForwardsAllowedEndpoint(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/videos" {
			t.Errorf("パス = %s, want /videos", r.URL.Path)
		}
		if q.Get("key") != "yt-key" {
			t.Errorf("key = %q, want サーバー側のキー", q.Get("key"))
		}
		if q.Get("id") != "abc" {
			t.Errorf("id = %q, want abc", q.Get("id"))
		}
		w.Write([]byte(`{"kind":"youtube#videoListResponse","items":[]}`))
	})

	raw, err := c.Proxy(context.Background(), "videos%3Fpart%3Dsnippet%26id%3Dabc%26key%3Dstolen")
	if err != nil {
		t.Fatalf("Proxy がエラーを返した: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("レスポンスがJSONではない: %v", err)
	}
	if body["kind"] != "youtube#videoListResponse" {
		t.Errorf("kind = %v", body["kind"])
	}
}

func TestClient_Proxy_RejectsUnknownResource(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Proxy(context.Background(), "../oauth2/v4/token?x=1")
	if err == nil {
		t.Fatal("許可されていないリソースはエラーになるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEndpointBlocked {
		t.Errorf("エラー = %v, want ENDPOINT_NOT_ALLOWED", err)
	}

	_, err = c.Proxy(context.Background(), "   ")
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("空の endpoint のエラー型 = %T, want *model.ValidationError", err)
	}

	_, err = c.Proxy(context.Background(), "https://evil.example.com/search")
	if err == nil {
		t.Error("絶対URLはエラーになるべき")
	}
	if calls.Load() != 0 {
		t.Errorf("外部API呼び出し回数 = %d, want 0", calls.Load())
	}
}

func TestClient_UpstreamFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
	})

	_, err := c.Search(context.Background(), "x", 5)
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("エラー型 = %T, want *model.UpstreamError", err)
	}
	if ue.Status != http.StatusForbidden || ue.Message != "quotaExceeded" {
		t.Errorf("UpstreamError = %+v", ue)
	}
}
