package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/enthub/internal/model"
)

// --- 映画 ---

type stubMovieService struct {
	calls []string
}

func (s *stubMovieService) List(ctx context.Context, category string) ([]model.Movie, error) {
	s.calls = append(s.calls, "list:"+category)
	return []model.Movie{{ID: 1, Title: "Dune"}}, nil
}

func (s *stubMovieService) Search(ctx context.Context, query string) ([]model.Movie, error) {
	s.calls = append(s.calls, "search:"+query)
	return []model.Movie{}, nil
}

func (s *stubMovieService) Detail(ctx context.Context, id string) (*model.MovieDetail, error) {
	s.calls = append(s.calls, "detail:"+id)
	if id == "0" {
		return nil, &model.UpstreamError{API: "tmdb", Status: 404, Message: "not found"}
	}
	return &model.MovieDetail{Movie: model.Movie{Title: "Dune"}, Genres: "Drama, Sci-Fi"}, nil
}

func (s *stubMovieService) Videos(ctx context.Context, id string) ([]model.MovieVideo, error) {
	s.calls = append(s.calls, "videos:"+id)
	return []model.MovieVideo{}, nil
}

func (s *stubMovieService) Credits(ctx context.Context, id string) ([]model.CastMember, error) {
	s.calls = append(s.calls, "credits:"+id)
	return []model.CastMember{}, nil
}

func TestMovieHandler_ListOrDetail_RoutesCategoryAndID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "trending", want: "list:trending"},
		{id: "popular", want: "list:popular"},
		{id: "top_rated", want: "list:top_rated"},
		{id: "438631", want: "detail:438631"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			svc := &stubMovieService{}
			h := NewMovieHandler(svc)

			req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/movies/"+tt.id, nil), "id", tt.id)
			w := httptest.NewRecorder()
			h.ListOrDetail(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if len(svc.calls) != 1 || svc.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", svc.calls, tt.want)
			}
		})
	}
}

func TestMovieHandler_Search_EmptyQueryReturnsEmptyArray(t *testing.T) {
	h := NewMovieHandler(&stubMovieService{})

	w := httptest.NewRecorder()
	h.Search(w, httptest.NewRequest(http.MethodGet, "/api/movies/search?q=", nil))

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestMovieHandler_Detail_UpstreamError_ReturnsBadGateway(t *testing.T) {
	h := NewMovieHandler(&stubMovieService{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/movies/details/0", nil), "id", "0")
	w := httptest.NewRecorder()
	h.Detail(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if code := errorCode(t, w); code != model.ErrCodeUpstream {
		t.Errorf("code = %q, want %q", code, model.ErrCodeUpstream)
	}
}

// --- ニュース ---

type stubNewsService struct {
	gotQuery string
	gotPage  int
}

func (s *stubNewsService) Entertainment(ctx context.Context, page int) ([]model.Article, error) {
	s.gotPage = page
	return nil, nil
}

func (s *stubNewsService) Search(ctx context.Context, query string, page int) ([]model.Article, error) {
	s.gotQuery, s.gotPage = query, page
	return []model.Article{{Title: "Headline", URL: "https://news.example/a"}}, nil
}

func (s *stubNewsService) Topic(ctx context.Context, tag string, page int) ([]model.Article, error) {
	if tag == "cooking" {
		return nil, model.NewValidationError("tag", "未知のトピックです")
	}
	return []model.Article{}, nil
}

type stubReader struct{}

func (stubReader) Read(ctx context.Context, rawURL string) (*model.ArticleContent, error) {
	if rawURL == "" {
		return nil, model.NewValidationError("url", "url は必須です")
	}
	if strings.Contains(rawURL, "169.254.169.254") {
		return nil, model.NewSSRFBlockedError()
	}
	return &model.ArticleContent{URL: rawURL, Title: "T", Content: "<p>body</p>"}, nil
}

func TestNewsHandler_WrapsArticles(t *testing.T) {
	svc := &stubNewsService{}
	h := NewNewsHandler(svc, stubReader{})

	w := httptest.NewRecorder()
	h.Search(w, httptest.NewRequest(http.MethodGet, "/api/news/search?q=oscars&page=2", nil))

	var body struct {
		Articles []model.Article `json:"articles"`
	}
	decodeBody(t, w, &body)
	if len(body.Articles) != 1 || body.Articles[0].Title != "Headline" {
		t.Errorf("articles = %+v", body.Articles)
	}
	if svc.gotQuery != "oscars" || svc.gotPage != 2 {
		t.Errorf("query = %q page = %d", svc.gotQuery, svc.gotPage)
	}
}

func TestNewsHandler_Entertainment_NilBecomesEmptyArray(t *testing.T) {
	svc := &stubNewsService{}
	h := NewNewsHandler(svc, stubReader{})

	w := httptest.NewRecorder()
	h.Entertainment(w, httptest.NewRequest(http.MethodGet, "/api/news/entertainment?page=abc", nil))

	if got := strings.TrimSpace(w.Body.String()); got != `{"articles":[]}` {
		t.Errorf("body = %q", got)
	}
	if svc.gotPage != 1 {
		t.Errorf("page = %d, want 1", svc.gotPage)
	}
}

func TestNewsHandler_Topic_Unknown_ReturnsBadRequest(t *testing.T) {
	h := NewNewsHandler(&stubNewsService{}, stubReader{})

	w := httptest.NewRecorder()
	h.Topic(w, httptest.NewRequest(http.MethodGet, "/api/news/topic?tag=cooking", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestNewsHandler_Article(t *testing.T) {
	h := NewNewsHandler(&stubNewsService{}, stubReader{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "正常", target: "/api/news/article?url=https://news.example/a", want: http.StatusOK},
		{name: "url未指定", target: "/api/news/article", want: http.StatusBadRequest},
		{name: "内部アドレス", target: "/api/news/article?url=http://169.254.169.254/latest", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Article(w, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

// --- YouTube ---

type stubVideoService struct {
	gotRegion string
	gotMax    int
}

func (s *stubVideoService) Search(ctx context.Context, query string, maxResults int) ([]model.Video, error) {
	s.gotMax = maxResults
	return []model.Video{}, nil
}

func (s *stubVideoService) Popular(ctx context.Context, regionCode string, maxResults int) ([]model.Video, error) {
	s.gotRegion, s.gotMax = regionCode, maxResults
	return []model.Video{{VideoID: "v1"}}, nil
}

func (s *stubVideoService) Proxy(ctx context.Context, endpoint string) (json.RawMessage, error) {
	if !strings.HasPrefix(endpoint, "search") {
		return nil, model.NewEndpointNotAllowedError(endpoint)
	}
	return json.RawMessage(`{"kind":"youtube#searchListResponse","items":[]}`), nil
}

func TestYouTubeHandler_Popular_DefaultsToResolvedCountry(t *testing.T) {
	svc := &stubVideoService{}
	h := NewYouTubeHandler(svc, &stubLocation{loc: model.DefaultLocation})

	w := httptest.NewRecorder()
	h.Popular(w, httptest.NewRequest(http.MethodGet, "/api/youtube/popular", nil))
	if svc.gotRegion != "LK" || svc.gotMax != defaultVideoResults {
		t.Errorf("region = %q max = %d", svc.gotRegion, svc.gotMax)
	}

	h.Popular(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/youtube/popular?regionCode=jp&maxResults=3", nil))
	if svc.gotRegion != "JP" || svc.gotMax != 3 {
		t.Errorf("region = %q max = %d", svc.gotRegion, svc.gotMax)
	}
}

func TestYouTubeHandler_Proxy(t *testing.T) {
	h := NewYouTubeHandler(&stubVideoService{}, &stubLocation{})

	w := httptest.NewRecorder()
	h.Proxy(w, httptest.NewRequest(http.MethodGet, "/api/youtube?endpoint=search%3Fpart%3Dsnippet", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	decodeBody(t, w, &body)
	if body["kind"] != "youtube#searchListResponse" {
		t.Errorf("body = %v", body)
	}

	w = httptest.NewRecorder()
	h.Proxy(w, httptest.NewRequest(http.MethodGet, "/api/youtube?endpoint=channels", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("許可外エンドポイントの status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
