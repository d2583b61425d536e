package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/enthub/internal/aggregate"
	"github.com/hitoshi/enthub/internal/auth"
	"github.com/hitoshi/enthub/internal/config"
	"github.com/hitoshi/enthub/internal/favorite"
	"github.com/hitoshi/enthub/internal/handler"
	"github.com/hitoshi/enthub/internal/location"
	"github.com/hitoshi/enthub/internal/metrics"
	"github.com/hitoshi/enthub/internal/middleware"
	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/news"
	"github.com/hitoshi/enthub/internal/record"
	"github.com/hitoshi/enthub/internal/repository"
	"github.com/hitoshi/enthub/internal/security"
	"github.com/hitoshi/enthub/internal/spotify"
	"github.com/hitoshi/enthub/internal/tmdb"
	"github.com/hitoshi/enthub/internal/token"
	"github.com/hitoshi/enthub/internal/upstream"
	"github.com/hitoshi/enthub/internal/user"
	"github.com/hitoshi/enthub/internal/weather"
	"github.com/hitoshi/enthub/internal/youtube"
)

// spotifyTokenKey は複数プロセスで共有するSpotifyトークンのRedisキー。
const spotifyTokenKey = "enthub:token:spotify"

// server はワイヤリング済みのHTTPハンドラーと後始末が必要な部品。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// openRedis はREDIS_ADDRが設定されていればRedisに接続する。
// 未設定または疎通できない場合は nil を返し、トークンはプロセス内に保持する。
func openRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, using in-process token store",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		rdb.Close()
		return nil
	}
	slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	return rdb
}

// newServer は外部APIアダプタ、サービス、ルーターを組み立てる。
// rdb は nil でもよい。
func newServer(cfg *config.Config, db *sql.DB, rdb *redis.Client, registry *prometheus.Registry, logger *slog.Logger) *server {
	recorder := metrics.NewCollector(registry)
	upstreamClient := func(api string) *upstream.Client {
		return upstream.NewClient(api, upstream.NewHTTPClient(cfg.UpstreamTimeout), recorder, logger)
	}

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)
	recordRepo := repository.NewPostgresRecordRepo(db)

	// セキュリティ
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 外部APIアダプタ
	movies := tmdb.NewClient(upstreamClient(tmdb.APIName), cfg.TMDbAPIKey, logger)

	tokenOpts := []token.Option{token.WithRecorder(recorder)}
	if rdb != nil {
		tokenOpts = append(tokenOpts, token.WithStore(token.NewRedisStore(rdb, spotifyTokenKey)))
	}
	spotifyTokens := token.NewCache(spotify.APIName,
		spotify.NewClientCredentialsExchanger(upstreamClient(spotify.AccountsAPIName), cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		logger, tokenOpts...)
	tracks := spotify.NewClient(upstreamClient(spotify.APIName), spotifyTokens, logger)

	videos := youtube.NewClient(upstreamClient(youtube.APIName), cfg.YouTubeAPIKey, logger)

	var fallback news.FallbackSource
	if cfg.NewsFallbackFeedURL != "" {
		fallback = news.NewRSSSource(upstreamClient(news.RSSAPIName), cfg.NewsFallbackFeedURL, sanitizer)
	}
	newsClient := news.NewClient(upstreamClient(news.APIName), cfg.NewsAPIKey, fallback, logger)
	reader := news.NewReader(ssrfGuard.NewSafeClient(cfg.UpstreamTimeout), ssrfGuard, sanitizer, logger, cfg.ArticleMaxSize)

	weatherClient := weather.NewClient(upstreamClient(weather.APIName), cfg.OpenWeatherKey, logger)
	resolver := location.NewResolver(location.NewClient(upstreamClient(location.APIName)), logger)

	// ドメインサービス
	favoriteService := favorite.NewService(favoriteRepo, logger)
	recordService := record.NewService(recordRepo, logger)
	aggregateService := aggregate.NewService(aggregate.Sources{
		Movies:    movies,
		Tracks:    tracks,
		Videos:    videos,
		News:      newsClient,
		Weather:   weatherClient,
		Location:  resolver,
		Favorites: favoriteService,
	}, recorder, logger, cfg.UpstreamTimeout)

	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, upstreamClient(auth.GoogleAPIName))
	authService := auth.NewService(oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge}, logger)
	userService := user.NewService(userRepo, sessionRepo, favoriteRepo, logger)

	// ログイン未設定なら /auth/google は503を返す（nil interface を渡す）
	var loginService handler.AuthServiceInterface
	if cfg.OAuthEnabled() {
		loginService = authService
	}

	rl := middleware.NewRateLimiter(rateLimiterConfig(cfg), rateLimitKey)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		UserResolver:      authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		APIKey:            cfg.APIKey,
		RateLimiter:       rl,

		DB:      db,
		Metrics: metrics.Handler(registry),

		AuthService: loginService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		UserService: userService,

		AggregateService: aggregateService,
		Location:         resolver,
		Weather:          weatherClient,
		PublicConfig: handler.PublicConfig{
			Sections:     publicSections(),
			NewsTopics:   news.Topics(),
			WeatherProxy: true,
			LoginEnabled: cfg.OAuthEnabled(),
		},

		MovieService: movies,
		TrackSearch:  tracks,
		Favorites:    favoriteService,
		NewsService:  newsClient,
		Reader:       reader,
		VideoService: videos,

		RecordService: recordService,
	})

	return &server{handler: router, rateLimiter: rl}
}

// rateLimiterConfig はreq/min単位の設定をrate.Limit（req/sec）に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rc := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rc.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rc.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitSearch > 0 {
		rc.SearchRate = rate.Limit(float64(cfg.RateLimitSearch) / 60.0)
		rc.SearchBurst = cfg.RateLimitSearch
	}
	return rc
}

// rateLimitKey はログインユーザーならユーザーID、ゲストなら接続元IPで制限する。
// X-Forwarded-For は偽装できるのでキーに使わない。
func rateLimitKey(r *http.Request) string {
	if u, ok := middleware.UserFromContext(r.Context()); ok {
		return "user:" + u.ID
	}
	return "ip:" + location.PeerIP(r)
}

func publicSections() []string {
	sections := []string{aggregate.SectionAll, aggregate.SectionLanding}
	for _, s := range model.AllSections {
		sections = append(sections, string(s))
	}
	return sections
}
