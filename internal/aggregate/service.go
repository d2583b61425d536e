// Package aggregate は複数の外部APIから取得したデータを1つのレスポンスにまとめる。
// 各セクションは並行に取得し、失敗したセクションだけを空の値に置き換える。
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/enthub/internal/metrics"
	"github.com/hitoshi/enthub/internal/model"
)

// ランディング画面向けのセクション指定
const (
	SectionAll     = "all"
	SectionLanding = "landing"
)

// 各セクションの取得件数と検索条件
const (
	sectionLimit   = 5
	movieCategory  = "trending"
	youtubeQuery   = "entertainment"
	newsCategory   = "entertainment"
	defaultTimeout = 5 * time.Second
)

// ParseSections はクエリの section 指定を取得対象セクションに変換する。
// 空文字は all として扱う。
func ParseSections(raw string) ([]model.Section, error) {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "", SectionAll:
		return model.AllSections, nil
	case SectionLanding:
		return []model.Section{model.SectionWeather}, nil
	default:
		for _, known := range model.AllSections {
			if model.Section(s) == known {
				return []model.Section{known}, nil
			}
		}
		return nil, model.NewUnknownSectionError(raw)
	}
}

// MovieSource は映画一覧の取得元。
type MovieSource interface {
	List(ctx context.Context, category string) ([]model.Movie, error)
}

// TrackSource は国別人気トラックの取得元。
type TrackSource interface {
	TopTracks(ctx context.Context, countryCode string, limit int) ([]model.Track, error)
}

// VideoSource は動画検索の取得元。
type VideoSource interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.Video, error)
}

// NewsSource はカテゴリ別見出しの取得元。
type NewsSource interface {
	Headlines(ctx context.Context, category string, limit int) ([]model.Article, error)
}

// WeatherSource は現在の天気の取得元。
type WeatherSource interface {
	Current(ctx context.Context, city string) (*model.WeatherSnapshot, error)
}

// LocationResolver はIPから所在地を推定する。失敗しない。
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) model.Location
}

// FavoriteLister はユーザーのお気に入り一覧を返す。
type FavoriteLister interface {
	List(ctx context.Context, userID string) ([]model.FavoriteSong, error)
}

// Sources は集約に使う取得元の組。
type Sources struct {
	Movies    MovieSource
	Tracks    TrackSource
	Videos    VideoSource
	News      NewsSource
	Weather   WeatherSource
	Location  LocationResolver
	Favorites FavoriteLister
}

// Service は集約処理を行う。
type Service struct {
	src      Sources
	recorder metrics.Recorder
	logger   *slog.Logger
	timeout  time.Duration
}

// NewService はServiceを生成する。timeout はセクション毎の取得時間の上限。
func NewService(src Sources, recorder metrics.Recorder, logger *slog.Logger, timeout time.Duration) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{src: src, recorder: recorder, logger: logger, timeout: timeout}
}

// Aggregate は要求されたセクションを並行に取得して1つのレスポンスにまとめる。
// 外部APIの失敗はレスポンスの該当セクションを空にするだけで、エラーは返さない。
// user が nil の場合はゲストとして扱う。
func (s *Service) Aggregate(ctx context.Context, sections []model.Section, clientIP string, user *model.User) *model.AggregateResponse {
	loc := s.src.Location.Resolve(ctx, clientIP)
	data := model.NewAggregateData(sections)

	// 各goroutineは data の別フィールドにだけ書き込む
	var g errgroup.Group
	for _, section := range sections {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			s.fill(sctx, section, loc, data)
			return nil
		})
	}
	_ = g.Wait()

	resp := &model.AggregateResponse{
		UserName: model.GuestDisplayName,
		Location: model.NewAggregateLocation(loc),
		Data:     data,
	}
	if user != nil {
		if user.Name != "" {
			resp.UserName = user.Name
		}
		resp.UserPhoto = photoOrNil(user.PhotoURL)
	}
	return resp
}

func (s *Service) fill(ctx context.Context, section model.Section, loc model.Location, data *model.AggregateData) {
	var err error
	switch section {
	case model.SectionWeather:
		var w *model.WeatherSnapshot
		if w, err = s.src.Weather.Current(ctx, loc.City); err == nil {
			data.Weather = w
		}
	case model.SectionMovies:
		var movies []model.Movie
		if movies, err = s.src.Movies.List(ctx, movieCategory); err == nil {
			data.Movies = head(movies, sectionLimit)
		}
	case model.SectionSongs:
		var tracks []model.Track
		if tracks, err = s.src.Tracks.TopTracks(ctx, loc.CountryCode, sectionLimit); err == nil {
			data.Songs = head(tracks, sectionLimit)
		}
	case model.SectionYouTube:
		var videos []model.Video
		if videos, err = s.src.Videos.Search(ctx, youtubeQuery, sectionLimit); err == nil {
			data.YouTube = head(videos, sectionLimit)
		}
	case model.SectionNews:
		var articles []model.Article
		if articles, err = s.src.News.Headlines(ctx, newsCategory, sectionLimit); err == nil {
			data.News = head(articles, sectionLimit)
		}
	}
	if err != nil {
		s.logger.Warn("セクションの取得に失敗したため空の値を返します",
			slog.String("section", string(section)),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordSectionFallback(string(section))
	}
}

// Music は音楽画面向けに、所在国の人気トラックとお気に入りをまとめて返す。
// 人気トラックの取得失敗は空配列になるが、お気に入りの読み出し失敗はエラーとして返す。
func (s *Service) Music(ctx context.Context, clientIP string, user *model.User) (*model.MusicAggregate, error) {
	loc := s.src.Location.Resolve(ctx, clientIP)

	userID := model.GuestUserID
	out := &model.MusicAggregate{Location: loc}
	if user != nil {
		userID = user.ID
		if user.Name != "" {
			name := user.Name
			out.UserName = &name
		}
		out.UserPhoto = photoOrNil(user.PhotoURL)
	}
	out.UserID = userID

	var (
		g        errgroup.Group
		trending []model.Track
	)
	g.Go(func() error {
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		tracks, err := s.src.Tracks.TopTracks(tctx, loc.CountryCode, 0)
		if err != nil {
			s.logger.Warn("人気トラックの取得に失敗したため空の値を返します",
				slog.String("country_code", loc.CountryCode),
				slog.String("error", err.Error()),
			)
			s.recorder.RecordSectionFallback(string(model.SectionSongs))
			return nil
		}
		trending = tracks
		return nil
	})
	g.Go(func() error {
		favs, err := s.src.Favorites.List(ctx, userID)
		if err != nil {
			return err
		}
		out.Favorites = favs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if trending == nil {
		trending = []model.Track{}
	}
	out.Trending = trending
	if out.Favorites == nil {
		out.Favorites = []model.FavoriteSong{}
	}
	return out, nil
}

func head[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

func photoOrNil(url string) *string {
	if url == "" {
		return nil
	}
	return &url
}
