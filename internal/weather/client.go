// Package weather はOpenWeather 2.5 APIのアダプタを提供する。
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/upstream"
)

const (
	// APIName はログ・メトリクスで使うAPI名。
	APIName = "openweather"
	// defaultBaseURL はOpenWeather 2.5 APIのベースURL。
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	// iconURLFormat は天気アイコン画像のURL形式。
	iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"
	// DefaultForecastEntries は予報の既定件数（3時間毎×4件）。
	DefaultForecastEntries = 4
)

// Client はOpenWeather APIのクライアント。
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

type conditionJSON struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mainJSON struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure"`
}

type currentJSON struct {
	Name    string          `json:"name"`
	Main    mainJSON        `json:"main"`
	Weather []conditionJSON `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

type forecastJSON struct {
	List []struct {
		DtTxt   string          `json:"dt_txt"`
		Main    mainJSON        `json:"main"`
		Weather []conditionJSON `json:"weather"`
	} `json:"list"`
}

func iconURL(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, code)
}

// firstCondition は天気状態の先頭要素を返す。空配列なら零値。
func firstCondition(cs []conditionJSON) conditionJSON {
	if len(cs) == 0 {
		return conditionJSON{}
	}
	return cs[0]
}

func (c currentJSON) normalize() *model.WeatherSnapshot {
	cond := firstCondition(c.Weather)
	return &model.WeatherSnapshot{
		City:        c.Name,
		Country:     c.Sys.Country,
		Temp:        c.Main.Temp,
		FeelsLike:   c.Main.FeelsLike,
		TempMin:     c.Main.TempMin,
		TempMax:     c.Main.TempMax,
		Humidity:    c.Main.Humidity,
		Pressure:    c.Main.Pressure,
		WindSpeed:   c.Wind.Speed,
		Description: cond.Description,
		Icon:        iconURL(cond.Icon),
	}
}

// Current は都市の現在の天気を返す。気温は摂氏。
func (c *Client) Current(ctx context.Context, city string) (*model.WeatherSnapshot, error) {
	var out currentJSON
	if err := c.get(ctx, "/weather", city, &out); err != nil {
		return nil, err
	}
	return out.normalize(), nil
}

// Forecast は都市の3時間毎予報を先頭から最大 n 件返す。
func (c *Client) Forecast(ctx context.Context, city string, n int) ([]model.ForecastEntry, error) {
	if n <= 0 {
		n = DefaultForecastEntries
	}

	var out forecastJSON
	if err := c.get(ctx, "/forecast", city, &out); err != nil {
		return nil, err
	}

	entries := make([]model.ForecastEntry, 0, n)
	for _, e := range out.List {
		if len(entries) >= n {
			break
		}
		cond := firstCondition(e.Weather)
		entries = append(entries, model.ForecastEntry{
			Time:        e.DtTxt,
			Temp:        e.Main.Temp,
			Description: cond.Description,
			Icon:        iconURL(cond.Icon),
		})
	}
	return entries, nil
}

// Report は現在の天気と予報をまとめて返す。
func (c *Client) Report(ctx context.Context, city string) (*model.WeatherReport, error) {
	current, err := c.Current(ctx, city)
	if err != nil {
		return nil, err
	}
	forecast, err := c.Forecast(ctx, city, DefaultForecastEntries)
	if err != nil {
		return nil, err
	}
	return &model.WeatherReport{Current: *current, Forecast: forecast}, nil
}

func (c *Client) get(ctx context.Context, path, city string, out any) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return model.NewValidationError("city", "都市名を指定してください")
	}
	if c.apiKey == "" {
		return upstream.NotConfigured(APIName)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	return c.http.GetJSON(ctx, c.baseURL+path+"?"+params.Encode(), nil, out)
}
