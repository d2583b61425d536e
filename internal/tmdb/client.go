// Package tmdb はTMDb v3 APIのアダプタを提供する。
// 一覧・検索・詳細・関連動画・出演者を取得し、model の映画型に正規化する。
package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

const (
	// APIName はログ・メトリクスで使うAPI名。
	APIName = "tmdb"
	// defaultBaseURL はTMDb v3 APIのベースURL。
	defaultBaseURL = "https://api.themoviedb.org/3"
	// ImageBaseURL はポスター・背景画像のベースURL。
	ImageBaseURL = "https://image.tmdb.org/t/p/w500"
)

// 一覧カテゴリ
const (
	CategoryTrending = "trending"
	CategoryPopular  = "popular"
	CategoryTopRated = "top_rated"
)

var categoryPaths = map[string]string{
	CategoryTrending: "/trending/movie/week",
	CategoryPopular:  "/movie/popular",
	CategoryTopRated: "/movie/top_rated",
}

// Client はTMDb APIのクライアント。
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

type movieJSON struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

type listJSON struct {
	Results []movieJSON `json:"results"`
}

func (m movieJSON) normalize() model.Movie {
	return model.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		Poster:      upstream.ImageURL(ImageBaseURL, m.PosterPath),
		Backdrop:    upstream.ImageURL(ImageBaseURL, m.BackdropPath),
		Rating:      m.VoteAverage,
	}
}

// List はカテゴリ別の映画一覧を返す。
// category は trending、popular、top_rated のいずれか。
func (c *Client) List(ctx context.Context, category string) ([]model.Movie, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, model.NewValidationError("category", "カテゴリを指定してください")
	}
	path, ok := categoryPaths[category]
	if !ok {
		return nil, model.NewValidationError("category", fmt.Sprintf("未対応のカテゴリです: %s", category))
	}

	params := url.Values{}
	params.Set("page", "1")

	var out listJSON
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return normalizeList(out.Results), nil
}

// Search はタイトルで映画を検索する。空の検索語の場合は外部APIを呼ばずに空配列を返す。
func (c *Client) Search(ctx context.Context, query string) ([]model.Movie, error) {
	q, ok := upstream.Query(query)
	if !ok {
		return []model.Movie{}, nil
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var out listJSON
	if err := c.get(ctx, "/search/movie", params, &out); err != nil {
		return nil, err
	}
	return normalizeList(out.Results), nil
}

type detailJSON struct {
	movieJSON
	Runtime  int    `json:"runtime"`
	Tagline  string `json:"tagline"`
	Homepage string `json:"homepage"`
	Genres   []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// Detail は映画の詳細を返す。
func (c *Client) Detail(ctx context.Context, id string) (*model.MovieDetail, error) {
	movieID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var out detailJSON
	if err := c.get(ctx, "/movie/"+movieID, nil, &out); err != nil {
		return nil, err
	}

	genres := make([]string, 0, len(out.Genres))
	for _, g := range out.Genres {
		genres = append(genres, g.Name)
	}
	return &model.MovieDetail{
		Movie:    out.movieJSON.normalize(),
		Runtime:  out.Runtime,
		Genres:   upstream.JoinNames(genres),
		Tagline:  out.Tagline,
		Homepage: out.Homepage,
	}, nil
}

type videosJSON struct {
	Results []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
		Site string `json:"site"`
		Type string `json:"type"`
	} `json:"results"`
}

// Videos は映画の関連動画（予告編など）を返す。
func (c *Client) Videos(ctx context.Context, id string) ([]model.MovieVideo, error) {
	movieID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var out videosJSON
	if err := c.get(ctx, "/movie/"+movieID+"/videos", nil, &out); err != nil {
		return nil, err
	}

	videos := make([]model.MovieVideo, 0, len(out.Results))
	for _, v := range out.Results {
		videos = append(videos, model.MovieVideo{Key: v.Key, Name: v.Name, Site: v.Site, Type: v.Type})
	}
	return videos, nil
}

type creditsJSON struct {
	Cast []struct {
		Name        string `json:"name"`
		Character   string `json:"character"`
		ProfilePath string `json:"profile_path"`
	} `json:"cast"`
}

// Credits は映画の出演者を返す。
func (c *Client) Credits(ctx context.Context, id string) ([]model.CastMember, error) {
	movieID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var out creditsJSON
	if err := c.get(ctx, "/movie/"+movieID+"/credits", nil, &out); err != nil {
		return nil, err
	}

	cast := make([]model.CastMember, 0, len(out.Cast))
	for _, m := range out.Cast {
		cast = append(cast, model.CastMember{
			Name:      m.Name,
			Character: m.Character,
			Profile:   upstream.ImageURL(ImageBaseURL, m.ProfilePath),
		})
	}
	return cast, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return upstream.NotConfigured(APIName)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", "en-US")

	return c.http.GetJSON(ctx, c.baseURL+path+"?"+params.Encode(), nil, out)
}

func normalizeList(results []movieJSON) []model.Movie {
	movies := make([]model.Movie, 0, len(results))
	for _, m := range results {
		movies = append(movies, m.normalize())
	}
	return movies
}

func parseID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", model.NewValidationError("id", "映画IDを指定してください")
	}
	if n, err := strconv.Atoi(id); err != nil || n <= 0 {
		return "", model.NewValidationError("id", fmt.Sprintf("映画IDが不正です: %s", id))
	}
	return id, nil
}
