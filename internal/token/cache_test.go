package token

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/enthub/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// fakeClock はテストから進められる時計。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// mockExchanger は呼び出し回数を記録するExchanger。
type mockExchanger struct {
	mu     sync.Mutex
	calls  int
	values []string
	ttl    time.Duration
	err    error
}

func (m *mockExchanger) Exchange(ctx context.Context) (string, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", 0, m.err
	}
	v := m.values[(m.calls-1)%len(m.values)]
	return v, m.ttl, nil
}

func (m *mockExchanger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCache_ReturnsCachedTokenWithinTTL(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	ex := &mockExchanger{values: []string{"tok-1", "tok-2"}, ttl: time.Hour}
	c := NewCache("spotify", ex, newTestLogger(&buf), WithClock(clock.Now))

	first, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token がエラーを返した: %v", err)
	}
	clock.Advance(59 * time.Minute)
	second, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token がエラーを返した: %v", err)
	}

	if first != "tok-1" || second != "tok-1" {
		t.Errorf("トークン = %q, %q, want 同じキャッシュ値 tok-1", first, second)
	}
	if ex.Calls() != 1 {
		t.Errorf("交換呼び出し回数 = %d, want 1", ex.Calls())
	}
}

func TestCache_RefreshesExactlyOnceAfterExpiry(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	ex := &mockExchanger{values: []string{"tok-1", "tok-2"}, ttl: time.Hour}
	c := NewCache("spotify", ex, newTestLogger(&buf), WithClock(clock.Now))

	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token がエラーを返した: %v", err)
	}

	// now == expiresAt の時点で既に無効
	clock.Advance(time.Hour)
	got, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token がエラーを返した: %v", err)
	}
	if got != "tok-2" {
		t.Errorf("期限切れ後のトークン = %q, want tok-2", got)
	}
	if ex.Calls() != 2 {
		t.Errorf("交換呼び出し回数 = %d, want 2", ex.Calls())
	}

	again, _ := c.Token(context.Background())
	if again != "tok-2" || ex.Calls() != 2 {
		t.Errorf("再取得後はキャッシュを返すべき: token=%q calls=%d", again, ex.Calls())
	}
}

func TestCache_ExchangeFailure_ReturnsUpstreamAuthError(t *testing.T) {
	var buf bytes.Buffer
	cause := errors.New("invalid_client")
	ex := &mockExchanger{err: cause}
	c := NewCache("spotify", ex, newTestLogger(&buf))

	_, err := c.Token(context.Background())
	var authErr *model.UpstreamAuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("エラー型 = %T, want *model.UpstreamAuthError", err)
	}
	if authErr.API != "spotify" {
		t.Errorf("API = %q, want spotify", authErr.API)
	}
	if !errors.Is(err, cause) {
		t.Error("UpstreamAuthError は原因エラーをラップするべき")
	}
}

func TestCache_ConcurrentRefreshYieldsValidToken(t *testing.T) {
	var buf bytes.Buffer
	ex := &mockExchanger{values: []string{"a", "b", "c", "d"}, ttl: time.Hour}
	c := NewCache("spotify", ex, newTestLogger(&buf))

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Token(context.Background())
			if err != nil {
				t.Errorf("Token がエラーを返した: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		if v == "" {
			t.Errorf("results[%d] が空", i)
		}
	}
	if ex.Calls() < 1 {
		t.Error("少なくとも1回は交換するべき")
	}
}

// failingStore は常に失敗するストア。
type failingStore struct{}

func (failingStore) Load(ctx context.Context) (*Token, error) { return nil, errors.New("down") }
func (failingStore) Save(ctx context.Context, t *Token) error  { return errors.New("down") }

func TestCache_StoreFailureStillReturnsToken(t *testing.T) {
	var buf bytes.Buffer
	ex := &mockExchanger{values: []string{"tok"}, ttl: time.Hour}
	c := NewCache("spotify", ex, newTestLogger(&buf), WithStore(failingStore{}))

	got, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token がエラーを返した: %v", err)
	}
	if got != "tok" {
		t.Errorf("トークン = %q, want tok", got)
	}
}

func TestMemoryStore_ReplacesPointer(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if got, _ := s.Load(ctx); got != nil {
		t.Fatalf("初期状態は nil であるべき: %+v", got)
	}

	first := &Token{Value: "one", ExpiresAt: time.Now().Add(time.Minute)}
	_ = s.Save(ctx, first)
	second := &Token{Value: "two", ExpiresAt: time.Now().Add(time.Minute)}
	_ = s.Save(ctx, second)

	got, _ := s.Load(ctx)
	if got != second {
		t.Error("Load は最後に保存したトークンを返すべき")
	}
	if first.Value != "one" {
		t.Error("保存済みトークンが変更された")
	}
}

func TestToken_ValidAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &Token{Value: "v", ExpiresAt: now.Add(time.Second)}

	if !tok.ValidAt(now) {
		t.Error("期限前は有効であるべき")
	}
	if tok.ValidAt(now.Add(time.Second)) {
		t.Error("now == expiresAt は無効であるべき")
	}
	var nilTok *Token
	if nilTok.ValidAt(now) {
		t.Error("nil トークンは無効であるべき")
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR が未設定のためスキップ")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	key := "enthub:test:token"
	t.Cleanup(func() { client.Del(context.Background(), key) })

	client.Del(ctx, key)

	s := NewRedisStore(client, key)
	if got, err := s.Load(ctx); err != nil || got != nil {
		t.Fatalf("キーが無い場合は nil, nil を返すべき: got=%+v err=%v", got, err)
	}

	want := &Token{Value: "redis-token", ExpiresAt: time.Now().Add(time.Minute).UTC().Truncate(time.Second)}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if got == nil || got.Value != want.Value || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	ttl := client.TTL(ctx, key).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want 0 < ttl <= 1m", ttl)
	}
}

func TestRedisStore_SkipsExpiredToken(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR が未設定のためスキップ")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	key := "enthub:test:expired"
	client.Del(context.Background(), key)

	s := NewRedisStore(client, key)
	if err := s.Save(context.Background(), &Token{Value: "old", ExpiresAt: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if n := client.Exists(context.Background(), key).Val(); n != 0 {
		t.Error("期限切れトークンは保存されるべきではない")
	}
}
