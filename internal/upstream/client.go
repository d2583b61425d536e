// Package upstream は外部APIアダプタが共有するHTTP呼び出し基盤を提供する。
// タイムアウト付きHTTPクライアント、APIごとのサーキットブレーカー、メトリクス記録、
// UpstreamErrorへの変換をまとめて扱う。リトライは行わない。
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hitoshi/enthub/internal/metrics"
	"github.com/hitoshi/enthub/internal/model"
)

const (
	// maxBodySize はレスポンスボディの読み取り上限（5MB）。
	maxBodySize = 5 << 20
	// userAgent は外部APIへのリクエストに付与するUser-Agent。
	userAgent = "EntertainmentHub/1.0"
)

// Client は1つの外部APIに対するHTTP呼び出しを担当する。
type Client struct {
	api        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	recorder   metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
// api はログ・メトリクス・UpstreamErrorに使うAPI名（例: "tmdb"）。
func NewClient(api string, httpClient *http.Client, recorder metrics.Recorder, logger *slog.Logger) *Client {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	c := &Client{
		api:        api,
		httpClient: httpClient,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
	recorder.RecordBreakerState(api, 0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        api,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// 4xx は呼び出し側の問題なのでブレーカーの失敗に数えない
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ue *model.UpstreamError
			if errors.As(err, &ue) && ue.Status >= 400 && ue.Status < 500 {
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("サーキットブレーカーの状態が変化しました",
				slog.String("api", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			recorder.RecordBreakerState(name, breakerStateValue(to))
		},
	})
	return c
}

// NewHTTPClient は外部API呼び出し用のタイムアウト付きHTTPクライアントを生成する。
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// API はこのクライアントが担当するAPI名を返す。
func (c *Client) API() string {
	return c.api
}

// GetJSON は rawURL へGETリクエストを送り、レスポンスJSONを out にデコードする。
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &model.UpstreamError{API: c.api, Message: fmt.Sprintf("リクエストの作成に失敗しました: %v", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(req, out)
}

// Do はリクエストを実行し、2xxの場合のみレスポンスJSONを out にデコードする。
// out が nil の場合はデコードしない。
// 非2xx、トランスポートエラー、タイムアウト、ブレーカー開放、不正JSONはすべて
// *model.UpstreamError として返す。
func (c *Client) Do(req *http.Request, out any) error {
	body, err := c.Fetch(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("外部APIのレスポンスのパースに失敗しました",
			slog.String("api", c.api),
			slog.String("error", err.Error()),
		)
		return &model.UpstreamError{API: c.api, Status: http.StatusOK, Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}

// Fetch はリクエストを実行し、2xxレスポンスのボディを返す。
func (c *Client) Fetch(req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("サーキットブレーカーにより外部API呼び出しを拒否しました",
				slog.String("api", c.api),
			)
			c.recorder.RecordUpstreamCall(c.api, 0, err)
			return nil, &model.UpstreamError{API: c.api, Message: "circuit breaker open"}
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	start := c.now()
	resp, err := c.httpClient.Do(req)
	c.recorder.RecordUpstreamLatency(c.api, c.now().Sub(start))
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			msg = "timeout"
		}
		c.logger.Error("外部APIの呼び出しに失敗しました",
			slog.String("api", c.api),
			slog.String("error", err.Error()),
		)
		c.recorder.RecordUpstreamCall(c.api, 0, err)
		return nil, &model.UpstreamError{API: c.api, Message: msg}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("api", c.api),
			slog.String("error", err.Error()),
		)
		c.recorder.RecordUpstreamCall(c.api, resp.StatusCode, err)
		return nil, &model.UpstreamError{API: c.api, Status: resp.StatusCode, Message: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ue := &model.UpstreamError{API: c.api, Status: resp.StatusCode, Message: errorMessage(body, resp.Status)}
		c.logger.Error("外部APIがエラーステータスを返しました",
			slog.String("api", c.api),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", ue.Message),
		)
		c.recorder.RecordUpstreamCall(c.api, resp.StatusCode, ue)
		return nil, ue
	}

	c.recorder.RecordUpstreamCall(c.api, resp.StatusCode, nil)
	return body, nil
}

// errorMessage はエラーレスポンスから人が読めるメッセージを取り出す。
// 各APIのエラーJSONで使われる代表的なフィールドを順に探す。
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message       string `json:"message"`
		StatusMessage string `json:"status_message"`
		Error         any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.StatusMessage != "":
			return payload.StatusMessage
		case payload.Message != "":
			return payload.Message
		}
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	return fallback
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
