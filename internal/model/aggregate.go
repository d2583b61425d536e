package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Location は呼び出し元IPから推定した所在地。
// 永続化しない。常に全フィールドが埋まっている。
type Location struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
}

// DefaultLocation は位置推定に失敗した場合に使う固定値。
var DefaultLocation = Location{
	City:        "Colombo",
	Country:     "Sri Lanka",
	CountryCode: "LK",
}

// AggregateLocation は /api/aggregate が返す所在地。国旗画像のURLを持つ。
// /api/location は Location をそのまま返すので flag を含まない。
type AggregateLocation struct {
	Location
	Flag string `json:"flag"`
}

// NewAggregateLocation は loc の国コードから国旗URLを組み立てる。
func NewAggregateLocation(loc Location) AggregateLocation {
	return AggregateLocation{
		Location: loc,
		Flag:     "https://flagcdn.com/48x36/" + strings.ToLower(loc.CountryCode) + ".png",
	}
}

// Section は集約レスポンスのデータ区分名。
type Section string

const (
	SectionMovies  Section = "movies"
	SectionSongs   Section = "songs"
	SectionYouTube Section = "youtube"
	SectionNews    Section = "news"
	SectionWeather Section = "weather"
)

// AllSections は "all" 指定時に取得する全セクション。
var AllSections = []Section{SectionWeather, SectionMovies, SectionSongs, SectionYouTube, SectionNews}

// AggregateData は要求されたセクションだけを保持する。
// nil のフィールドはレスポンスに含めない。
type AggregateData struct {
	Weather *WeatherSnapshot
	Movies  []Movie
	Songs   []Track
	YouTube []Video
	News    []Article

	requested map[Section]bool
}

// NewAggregateData は要求セクションを記録した空のデータを生成する。
// 要求されたリスト系セクションは空配列で初期化しておき、失敗時も [] を返す。
func NewAggregateData(sections []Section) *AggregateData {
	d := &AggregateData{requested: make(map[Section]bool, len(sections))}
	for _, s := range sections {
		d.requested[s] = true
	}
	if d.requested[SectionWeather] {
		d.Weather = &WeatherSnapshot{}
	}
	if d.requested[SectionMovies] {
		d.Movies = []Movie{}
	}
	if d.requested[SectionSongs] {
		d.Songs = []Track{}
	}
	if d.requested[SectionYouTube] {
		d.YouTube = []Video{}
	}
	if d.requested[SectionNews] {
		d.News = []Article{}
	}
	return d
}

// Requested は指定セクションが要求されているかを返す。
func (d *AggregateData) Requested(s Section) bool {
	return d.requested[s]
}

// MarshalJSON は要求されたセクションのキーだけを出力する。
// 天気の取得に失敗した場合は {} を出力する。
func (d *AggregateData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.requested))
	if d.requested[SectionWeather] {
		if d.Weather == nil || *d.Weather == (WeatherSnapshot{}) {
			out[string(SectionWeather)] = struct{}{}
		} else {
			out[string(SectionWeather)] = d.Weather
		}
	}
	if d.requested[SectionMovies] {
		out[string(SectionMovies)] = d.Movies
	}
	if d.requested[SectionSongs] {
		out[string(SectionSongs)] = d.Songs
	}
	if d.requested[SectionYouTube] {
		out[string(SectionYouTube)] = d.YouTube
	}
	if d.requested[SectionNews] {
		out[string(SectionNews)] = d.News
	}
	return json.Marshal(out)
}

// AggregateResponse は /api/aggregate のレスポンス。リクエスト毎に生成する。
type AggregateResponse struct {
	UserName  string            `json:"userName"`
	UserPhoto *string           `json:"userPhoto"`
	Location  AggregateLocation `json:"location"`
	Data      *AggregateData    `json:"data"`
}

// MusicAggregate は /api/music/aggregate のレスポンス。
type MusicAggregate struct {
	UserID    string         `json:"userId"`
	UserName  *string        `json:"userName"`
	UserPhoto *string        `json:"userPhoto"`
	Location  Location       `json:"location"`
	Trending  []Track        `json:"trending"`
	Favorites []FavoriteSong `json:"favorites"`
}

// FavoriteSong はユーザーがお気に入り登録したトラック。
// (UserID, TrackID) で削除する。重複登録は許容する。
type FavoriteSong struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	TrackID    string    `json:"trackId"`
	TrackName  string    `json:"trackName"`
	ArtistName string    `json:"artistName"`
	AlbumArt   string    `json:"albumArt"`
	PreviewURL string    `json:"previewUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FavoriteInput はお気に入り追加リクエストの本文。
type FavoriteInput struct {
	TrackID    string `json:"trackId" validate:"required,max=128"`
	TrackName  string `json:"trackName" validate:"max=512"`
	ArtistName string `json:"artistName" validate:"max=512"`
	AlbumArt   string `json:"albumArt" validate:"omitempty,url"`
	PreviewURL string `json:"previewUrl" validate:"omitempty,url"`
}

// EntertainmentRecord はユーザーが保存した集約スナップショット。
// 各配列の要素形状は呼び出し側に委ね、JSONのまま保持する。
type EntertainmentRecord struct {
	ID        string          `json:"id"`
	Movies    json.RawMessage `json:"movies"`
	Songs     json.RawMessage `json:"songs"`
	Games     json.RawMessage `json:"games"`
	News      json.RawMessage `json:"news"`
	YouTube   json.RawMessage `json:"youtube"`
	Weather   json.RawMessage `json:"weather"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecordInput はレコード作成・更新リクエストの本文。
type RecordInput struct {
	Movies  json.RawMessage `json:"movies"`
	Songs   json.RawMessage `json:"songs"`
	Games   json.RawMessage `json:"games"`
	News    json.RawMessage `json:"news"`
	YouTube json.RawMessage `json:"youtube"`
	Weather json.RawMessage `json:"weather"`
}

// AnonymousCreator は未ログインで作成したレコードの作成者名。
const AnonymousCreator = "Anonymous"
