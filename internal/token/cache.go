// Package token は外部APIの短命なBearerトークンをキャッシュする。
//
// Cache はトークンの有効期限を確認し、期限切れの場合のみ Exchanger で再取得する。
// 再取得にロックは掛けない。複数のリクエストが同時に期限切れを検出すると
// それぞれが再取得し、最後に保存したトークンが残る。どちらも有効なトークンなので
// 余分な交換呼び出しが発生するだけで正しさには影響しない。
package token

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/enthub/internal/metrics"
	"github.com/hitoshi/enthub/internal/model"
)

// Token はキャッシュされるBearerトークン。保存後は変更せず、期限切れ時に置き換える。
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ValidAt は now 時点でトークンを返してよいかを返す。
// now >= ExpiresAt のトークンは無効。
func (t *Token) ValidAt(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// Exchanger は資格情報を新しいトークンに交換する。
type Exchanger interface {
	Exchange(ctx context.Context) (value string, ttl time.Duration, err error)
}

// Store はトークンの保存先。
// Load はトークンが無い場合 nil, nil を返す。
type Store interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, t *Token) error
}

// Option はCacheの生成オプション。
type Option func(*Cache)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithStore はトークンの保存先を差し替える。
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithRecorder はメトリクスの記録先を設定する。
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// Cache は1つのAPIのトークンを保持する。
type Cache struct {
	api       string
	exchanger Exchanger
	store     Store
	now       func() time.Time
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewCache はCacheを生成する。保存先の既定はプロセス内メモリ。
func NewCache(api string, exchanger Exchanger, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		api:       api,
		exchanger: exchanger,
		store:     NewMemoryStore(),
		now:       time.Now,
		recorder:  metrics.Nop{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token は有効なトークン値を返す。
// キャッシュが期限切れか未取得の場合は交換を行い、結果を保存する。
// 交換に失敗した場合は *model.UpstreamAuthError を返す。
func (c *Cache) Token(ctx context.Context) (string, error) {
	now := c.now()

	cached, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("トークンストアからの読み込みに失敗しました",
			slog.String("api", c.api),
			slog.String("error", err.Error()),
		)
	}
	if cached.ValidAt(now) {
		return cached.Value, nil
	}

	value, ttl, err := c.exchanger.Exchange(ctx)
	if err != nil {
		c.recorder.RecordTokenRefresh(c.api, false)
		c.logger.Error("トークンの取得に失敗しました",
			slog.String("api", c.api),
			slog.String("error", err.Error()),
		)
		return "", &model.UpstreamAuthError{API: c.api, Err: err}
	}
	c.recorder.RecordTokenRefresh(c.api, true)

	// 交換開始時刻を基準にするので、実際の失効より早めに期限切れと判定される
	fresh := &Token{Value: value, ExpiresAt: now.Add(ttl)}
	if err := c.store.Save(ctx, fresh); err != nil {
		c.logger.Warn("トークンストアへの保存に失敗しました",
			slog.String("api", c.api),
			slog.String("error", err.Error()),
		)
	}

	c.logger.Debug("トークンを更新しました",
		slog.String("api", c.api),
		slog.Time("expires_at", fresh.ExpiresAt),
	)
	return fresh.Value, nil
}
