package tmdb

import (
	"bytes"
	"context"
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
	c := NewClient(upstream.NewClient(APIName, server.Client(), nil, logger), "test-key", logger)
	c.baseURL = server.URL
	return c, &calls
}

func TestClient_List_Trending(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trending/movie/week" {
			t.Errorf("パス = %s, want /trending/movie/week", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key = %q, want test-key", r.URL.Query().Get("api_key"))
		}
		w.Write([]byte(`{"results":[
			{"id":1,"title":"Dune","overview":"sand","release_date":"2024-03-01","poster_path":"/p.jpg","backdrop_path":"","vote_average":8.1},
			{"id":2,"title":"Up","overview":"house","release_date":"2009-05-29","poster_path":"","backdrop_path":"/b.jpg","vote_average":7.9}
		]}`))
	})

	movies, err := c.List(context.Background(), "trending")
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("件数 = %d, want 2", len(movies))
	}
	if movies[0].Poster != ImageBaseURL+"/p.jpg" {
		t.Errorf("Poster = %q, want プレフィックス付きURL", movies[0].Poster)
	}
	if movies[0].Backdrop != "" {
		t.Errorf("空パスの Backdrop = %q, want 空文字", movies[0].Backdrop)
	}
	if movies[1].ReleaseDate != "2009-05-29" || movies[1].Rating != 7.9 {
		t.Errorf("movies[1] = %+v", movies[1])
	}
}

func TestClient_List_CategoryPaths(t *testing.T) {
	tests := map[string]string{
		"popular":   "/movie/popular",
		"top_rated": "/movie/top_rated",
	}
	for category, wantPath := range tests {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != wantPath {
				t.Errorf("%s: パス = %s, want %s", category, r.URL.Path, wantPath)
			}
			w.Write([]byte(`{"results":[]}`))
		})
		if _, err := c.List(context.Background(), category); err != nil {
			t.Errorf("%s: List がエラーを返した: %v", category, err)
		}
	}
}

func TestClient_List_InvalidCategory(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, category := range []string{"", "  ", "upcoming"} {
		_, err := c.List(context.Background(), category)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("List(%q) のエラー型 = %T, want *model.ValidationError", category, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("外部API呼び出し回数 = %d, want 0", calls.Load())
	}
}

func TestClient_Search_EmptyQueryShortCircuits(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	movies, err := c.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search がエラーを返した: %v", err)
	}
	if movies == nil || len(movies) != 0 {
		t.Errorf("結果 = %v, want 空配列", movies)
	}
	if calls.Load() != 0 {
		t.Errorf("外部API呼び出し回数 = %d, want 0", calls.Load())
	}
}

func TestClient_Search_PassesTrimmedQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "star wars" {
			t.Errorf("query = %q, want star wars", r.URL.Query().Get("query"))
		}
		w.Write([]byte(`{"results":[{"id":11,"title":"Star Wars"}]}`))
	})

	movies, err := c.Search(context.Background(), "  star wars ")
	if err != nil {
		t.Fatalf("Search がエラーを返した: %v", err)
	}
	if len(movies) != 1 || movies[0].ID != 11 {
		t.Errorf("結果 = %+v", movies)
	}
}

func TestClient_Detail_JoinsGenres(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/550" {
			t.Errorf("パス = %s, want /movie/550", r.URL.Path)
		}
		w.Write([]byte(`{"id":550,"title":"Fight Club","runtime":139,"tagline":"Mischief.","genres":[{"name":"Drama"},{"name":"Thriller"}]}`))
	})

	d, err := c.Detail(context.Background(), "550")
	if err != nil {
		t.Fatalf("Detail がエラーを返した: %v", err)
	}
	if d.Genres != "Drama, Thriller" {
		t.Errorf("Genres = %q, want %q", d.Genres, "Drama, Thriller")
	}
	if d.Runtime != 139 || d.Title != "Fight Club" {
		t.Errorf("Detail = %+v", d)
	}
}

func TestClient_Detail_InvalidID(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"", "abc", "-1"} {
		if _, err := c.Detail(context.Background(), id); err == nil {
			t.Errorf("Detail(%q) はエラーを返すべき", id)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("外部API呼び出し回数 = %d, want 0", calls.Load())
	}
}

func TestClient_VideosAndCredits(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/7/videos":
			w.Write([]byte(`{"results":[{"key":"abc","name":"Trailer","site":"YouTube","type":"Trailer"}]}`))
		case "/movie/7/credits":
			w.Write([]byte(`{"cast":[{"name":"Actor","character":"Hero","profile_path":"/a.jpg"}]}`))
		default:
			t.Errorf("想定外のパス: %s", r.URL.Path)
		}
	})

	videos, err := c.Videos(context.Background(), "7")
	if err != nil {
		t.Fatalf("Videos がエラーを返した: %v", err)
	}
	if len(videos) != 1 || videos[0].Key != "abc" {
		t.Errorf("Videos = %+v", videos)
	}

	cast, err := c.Credits(context.Background(), "7")
	if err != nil {
		t.Fatalf("Credits がエラーを返した: %v", err)
	}
	if len(cast) != 1 || cast[0].Profile != ImageBaseURL+"/a.jpg" {
		t.Errorf("Credits = %+v", cast)
	}
}

func TestClient_UpstreamFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_message":"Invalid API key"}`))
	})

	_, err := c.List(context.Background(), "popular")
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("エラー型 = %T, want *model.UpstreamError", err)
	}
	if ue.API != APIName || ue.Status != http.StatusUnauthorized {
		t.Errorf("UpstreamError = %+v", ue)
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	c.apiKey = ""

	_, err := c.List(context.Background(), "popular")
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("エラー型 = %T, want *model.UpstreamError", err)
	}
	if calls.Load() != 0 {
		t.Errorf("外部API呼び出し回数 = %d, want 0", calls.Load())
	}
}
