package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/enthub/internal/aggregate"
	"github.com/hitoshi/enthub/internal/location"
	"github.com/hitoshi/enthub/internal/middleware"
	"github.com/hitoshi/enthub/internal/model"
)

// AggregateServiceInterface は集約ハンドラーが必要とするサービスインターフェース。
type AggregateServiceInterface interface {
	Aggregate(ctx context.Context, sections []model.Section, clientIP string, user *model.User) *model.AggregateResponse
	Music(ctx context.Context, clientIP string, user *model.User) (*model.MusicAggregate, error)
}

// LocationResolver は呼び出し元IPから所在地を推定する。失敗時も既定値を返す。
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) model.Location
}

// WeatherReporter は現在の天気と短期予報を返す。
type WeatherReporter interface {
	Report(ctx context.Context, city string) (*model.WeatherReport, error)
}

// PublicConfig は /api/config が返す公開設定。APIキー類は含めない。
type PublicConfig struct {
	Sections     []string `json:"sections"`
	NewsTopics   []string `json:"newsTopics"`
	WeatherProxy bool     `json:"weatherProxy"`
	LoginEnabled bool     `json:"loginEnabled"`
}

// AggregateHandler はダッシュボード向けの集約、所在地、天気、公開設定のHTTPハンドラー。
type AggregateHandler struct {
	service  AggregateServiceInterface
	location LocationResolver
	weather  WeatherReporter
	config   PublicConfig
}

// NewAggregateHandler はAggregateHandlerを生成する。
func NewAggregateHandler(service AggregateServiceInterface, loc LocationResolver, weather WeatherReporter, config PublicConfig) *AggregateHandler {
	return &AggregateHandler{service: service, location: loc, weather: weather, config: config}
}

// Aggregate は要求セクションをまとめて返す。個々の外部APIの失敗は空のセクションになる。
// GET /api/aggregate?section=all|landing|movies|songs|youtube|news|weather
func (h *AggregateHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	sections, err := aggregate.ParseSections(r.URL.Query().Get("section"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	user, _ := middleware.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, h.service.Aggregate(r.Context(), sections, location.ClientIP(r), user))
}

// Location は呼び出し元の所在地を返す。
// GET /api/location
func (h *AggregateHandler) Location(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.location.Resolve(r.Context(), location.ClientIP(r)))
}

// Weather は指定都市、未指定なら所在地の都市の天気を返す。
// GET /api/weather?city=
func (h *AggregateHandler) Weather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		city = h.location.Resolve(r.Context(), location.ClientIP(r)).City
	}
	report, err := h.weather.Report(r.Context(), city)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Config は公開設定を返す。
// GET /api/config
func (h *AggregateHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.config)
}
