package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore はプロセス内にトークンを保持する。
// 保存はポインタの差し替えだけで行い、保存済みのTokenは変更しない。
type MemoryStore struct {
	current atomic.Pointer[Token]
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load は現在のトークンを返す。未保存なら nil。
func (s *MemoryStore) Load(ctx context.Context) (*Token, error) {
	return s.current.Load(), nil
}

// Save はトークンを差し替える。
func (s *MemoryStore) Save(ctx context.Context, t *Token) error {
	s.current.Store(t)
	return nil
}

// RedisStore は複数のサーバープロセスで1つのトークンを共有するためのストア。
// Redis上のTTLはトークンの残り有効期間に合わせる。
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore はRedisStoreを生成する。key は例えば "enthub:token:spotify"。
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Load はRedisからトークンを読み込む。キーが無い場合は nil, nil を返す。
func (s *RedisStore) Load(ctx context.Context) (*Token, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET for token key '%s' failed: %w", s.key, err)
	}

	var t Token
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token for key '%s': %w", s.key, err)
	}
	return &t, nil
}

// Save はトークンを残り有効期間をTTLとして保存する。既に期限切れなら保存しない。
func (s *RedisStore) Save(ctx context.Context, t *Token) error {
	ttl := t.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal token for key '%s': %w", s.key, err)
	}
	if err := s.client.Set(ctx, s.key, string(payload), ttl).Err(); err != nil {
		return fmt.Errorf("redis SET for token key '%s' failed: %w", s.key, err)
	}
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
