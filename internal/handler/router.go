package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/enthub/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	UserResolver      middleware.UserResolver
	CORSAllowedOrigin string
	APIKey            string
	RateLimiter       *middleware.RateLimiter

	// システム
	DB      Pinger
	Metrics http.Handler

	// 認証・ユーザー
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserService UserServiceInterface

	// ダッシュボード
	AggregateService AggregateServiceInterface
	Location         LocationResolver
	Weather          WeatherReporter
	PublicConfig     PublicConfig

	// メディア
	MovieService MovieServiceInterface
	TrackSearch  TrackSearcher
	Favorites    FavoriteServiceInterface
	NewsService  NewsServiceInterface
	Reader       ArticleReader
	VideoService VideoServiceInterface

	// 保存済みスナップショット
	RecordService RecordServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → OptionalSession → Logging
//	  /api/* (公開以外): APIKey → RateLimit(General) [→ RateLimit(Search)]
//
// /health、/metrics、/auth/*、/api/user、/api/location、/api/config はAPIキー不要。
// HSTS は Secure Cookie を使う環境でのみ付与する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewOptionalSessionMiddleware(deps.UserResolver))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	healthHandler := NewHealthHandler(deps.DB)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	aggHandler := NewAggregateHandler(deps.AggregateService, deps.Location, deps.Weather, deps.PublicConfig)
	movieHandler := NewMovieHandler(deps.MovieService)
	musicHandler := NewMusicHandler(deps.AggregateService, deps.TrackSearch, deps.Favorites)
	newsHandler := NewNewsHandler(deps.NewsService, deps.Reader)
	ytHandler := NewYouTubeHandler(deps.VideoService, deps.Location)
	recordHandler := NewRecordHandler(deps.RecordService)

	// --- APIキー不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.Post("/logout", authHandler.Logout)
	})
	r.Get("/api/user", authHandler.CurrentUser)
	r.Get("/api/location", aggHandler.Location)
	r.Get("/api/config", aggHandler.Config)

	// --- APIキーが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(deps.APIKey))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		search := deps.RateLimiter.SearchMiddleware()

		r.Get("/api/aggregate", aggHandler.Aggregate)
		r.Get("/api/weather", aggHandler.Weather)

		r.Route("/api/movies", func(r chi.Router) {
			r.With(search).Get("/search", movieHandler.Search)
			r.Get("/videos/{id}", movieHandler.Videos)
			r.Get("/credits/{id}", movieHandler.Credits)
			r.Get("/details/{id}", movieHandler.Detail)
			r.Get("/{id}", movieHandler.ListOrDetail)
		})

		r.Route("/api/music", func(r chi.Router) {
			r.Get("/aggregate", musicHandler.Aggregate)
			r.With(search).Get("/search", musicHandler.Search)
			r.Get("/favorites", musicHandler.ListFavorites)
			r.Post("/favorites", musicHandler.AddFavorite)
			r.Delete("/favorites/{trackId}", musicHandler.RemoveFavorite)
		})

		r.Route("/api/news", func(r chi.Router) {
			r.Get("/entertainment", newsHandler.Entertainment)
			r.With(search).Get("/search", newsHandler.Search)
			r.Get("/topic", newsHandler.Topic)
			r.Get("/article", newsHandler.Article)
		})

		r.Route("/api/youtube", func(r chi.Router) {
			r.Get("/", ytHandler.Proxy)
			r.Get("/popular", ytHandler.Popular)
			r.With(search).Get("/search", ytHandler.Search)
		})

		r.Route("/api/records", func(r chi.Router) {
			r.Get("/", recordHandler.List)
			r.Post("/", recordHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", recordHandler.Get)
				r.Put("/", recordHandler.Update)
				r.Delete("/", recordHandler.Delete)
			})
		})

		r.With(middleware.RequireUser).Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
