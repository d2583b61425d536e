package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/enthub/internal/location"
	"github.com/hitoshi/enthub/internal/model"
)

// defaultVideoResults は popular と search の既定件数。
const defaultVideoResults = 12

// VideoServiceInterface はYouTubeハンドラーが必要とするサービスインターフェース。
type VideoServiceInterface interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.Video, error)
	Popular(ctx context.Context, regionCode string, maxResults int) ([]model.Video, error)
	Proxy(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// YouTubeHandler はYouTubeのHTTPハンドラー。
type YouTubeHandler struct {
	service  VideoServiceInterface
	location LocationResolver
}

// NewYouTubeHandler はYouTubeHandlerを生成する。
func NewYouTubeHandler(service VideoServiceInterface, loc LocationResolver) *YouTubeHandler {
	return &YouTubeHandler{service: service, location: loc}
}

// Proxy は許可されたリソースへのリクエストを転送し、レスポンスをそのまま返す。
// GET /api/youtube?endpoint=search%3Fpart%3Dsnippet%26q%3D...
func (h *YouTubeHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.Proxy(r.Context(), r.URL.Query().Get("endpoint")) })
}

// Popular は地域の人気動画を返す。regionCode 未指定なら所在国を使う。
// GET /api/youtube/popular?regionCode=&maxResults=
func (h *YouTubeHandler) Popular(w http.ResponseWriter, r *http.Request) {
	region := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("regionCode")))
	if region == "" {
		region = h.location.Resolve(r.Context(), location.ClientIP(r)).CountryCode
	}
	respond(w, func() (any, error) { return h.service.Popular(r.Context(), region, maxResultsParam(r)) })
}

// Search GET /api/youtube/search?q=&maxResults=
func (h *YouTubeHandler) Search(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) {
		return h.service.Search(r.Context(), r.URL.Query().Get("q"), maxResultsParam(r))
	})
}

func maxResultsParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("maxResults"))
	if err != nil || n <= 0 {
		return defaultVideoResults
	}
	return n
}
