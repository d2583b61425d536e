// Package spotify はSpotify Web APIのアダプタを提供する。
// アクセストークンは注入された TokenSource（通常は token.Cache）から取得する。
package spotify

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

const (
	// APIName はログ・メトリクスで使うAPI名。
	APIName = "spotify"
	// AccountsAPIName はトークンエンドポイント用のAPI名。
	AccountsAPIName = "spotify-accounts"
	// defaultBaseURL はSpotify Web APIのベースURL。
	defaultBaseURL = "https://api.spotify.com/v1"
	// searchLimit は検索結果の最大件数。
	searchLimit = 20
	// GlobalTop50 は国別プレイリストが無い場合に使うグローバルTop 50。
	GlobalTop50 = "37i9dQZEVXbMDoHDwVN2tF"
)

// countryTop50 は国コード別のTop 50プレイリストID。
var countryTop50 = map[string]string{
	"LK": "79vXmU3ofwpqL0RhT4QBLw",
	"IN": "37i9dQZEVXbLZqRxydqJYCQ",
	"US": "37i9dQZEVXbLRQDuF5jeBp",
	"GB": "37i9dQZEVXbLnolsZ8PSNw",
	"SG": "37i9dQZEVXbK4gjvS1FjPY",
}

// PlaylistForCountry は国コードに対応するTop 50プレイリストIDを返す。
func PlaylistForCountry(countryCode string) string {
	if id, ok := countryTop50[strings.ToUpper(strings.TrimSpace(countryCode))]; ok {
		return id
	}
	return GlobalTop50
}

// TokenSource はBearerトークンの取得元。
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client はSpotify Web APIのクライアント。
type Client struct {
	http    *upstream.Client
	tokens  TokenSource
	logger  *slog.Logger
	baseURL string // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *upstream.Client, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
		baseURL: defaultBaseURL,
	}
}

type trackJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URI        string `json:"uri"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (t trackJSON) normalize() model.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	albumArt := ""
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}
	return model.Track{
		TrackID:    t.ID,
		TrackName:  t.Name,
		ArtistName: upstream.JoinNames(artists),
		AlbumName:  t.Album.Name,
		AlbumArt:   albumArt,
		PreviewURL: t.PreviewURL,
		URI:        t.URI,
	}
}

// Search はトラックを検索する。空の検索語の場合は外部APIを呼ばずに空配列を返す。
func (c *Client) Search(ctx context.Context, query string) ([]model.Track, error) {
	q, ok := upstream.Query(query)
	if !ok {
		return []model.Track{}, nil
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(searchLimit))

	var out struct {
		Tracks struct {
			Items []trackJSON `json:"items"`
		} `json:"tracks"`
	}
	if err := c.get(ctx, "/search?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(out.Tracks.Items))
	for _, t := range out.Tracks.Items {
		tracks = append(tracks, t.normalize())
	}
	return tracks, nil
}

// PlaylistTracks はプレイリストのトラックを最大 limit 件返す。
// 削除済みなどで track が null の要素は除く。
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]model.Track, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return nil, model.NewValidationError("playlistId", "プレイリストIDを指定してください")
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var out struct {
		Items []struct {
			Track *trackJSON `json:"track"`
		} `json:"items"`
	}
	if err := c.get(ctx, "/playlists/"+url.PathEscape(playlistID)+"/tracks?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(out.Items))
	for _, item := range out.Items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, item.Track.normalize())
	}
	return tracks, nil
}

// TopTracks は国別Top 50から最大 limit 件のトラックを返す。
func (c *Client) TopTracks(ctx context.Context, countryCode string, limit int) ([]model.Track, error) {
	return c.PlaylistTracks(ctx, PlaylistForCountry(countryCode), limit)
}

func (c *Client) get(ctx context.Context, pathAndQuery string, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	return c.http.GetJSON(ctx, c.baseURL+pathAndQuery, header, out)
}
