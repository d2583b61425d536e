package model

// Movie はTMDbの映画一覧要素を正規化したもの。
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"releaseDate"`
	Poster      string  `json:"poster"`
	Backdrop    string  `json:"backdrop"`
	Rating      float64 `json:"rating"`
}

// MovieDetail は映画詳細。ジャンルは ", " 区切りで連結する。
type MovieDetail struct {
	Movie
	Runtime  int    `json:"runtime"`
	Genres   string `json:"genres"`
	Tagline  string `json:"tagline"`
	Homepage string `json:"homepage"`
}

// MovieVideo は予告編などの関連動画。
type MovieVideo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// CastMember は出演者。
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Profile   string `json:"profile"`
}

// Track はSpotifyのトラックを正規化したもの。
// アーティストが複数の場合は ", " で連結する。
type Track struct {
	TrackID    string `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	AlbumName  string `json:"albumName"`
	AlbumArt   string `json:"albumArt"`
	PreviewURL string `json:"previewUrl"`
	URI        string `json:"uri"`
}

// Video はYouTubeの動画を正規化したもの。
type Video struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Thumbnail   string `json:"thumbnail"`
	PublishedAt string `json:"publishedAt"`
}

// Article はニュース記事を正規化したもの。
type Article struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	Author      string `json:"author"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
}

// WeatherSnapshot は現在の天気。
type WeatherSnapshot struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feelsLike"`
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	WindSpeed   float64 `json:"windSpeed"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// ForecastEntry は3時間毎予報の1件。
type ForecastEntry struct {
	Time        string  `json:"time"`
	Temp        float64 `json:"temp"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// WeatherReport は /api/weather のレスポンス。
type WeatherReport struct {
	Current  WeatherSnapshot `json:"current"`
	Forecast []ForecastEntry `json:"forecast"`
}

// ArticleContent は記事リーダーが返すサニタイズ済み本文。
type ArticleContent struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
