package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/enthub/internal/database"
	"github.com/hitoshi/enthub/internal/model"
)

func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
	var _ RecordRepository = (*PostgresRecordRepo)(nil)
}

// setupDB は TEST_DATABASE_URL のデータベースにマイグレーションを適用し、全テーブルを空にする。
// 未設定または接続できない場合はスキップする。
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE favorite_songs, entertainment_items, sessions, identities, users CASCADE`); err != nil {
		t.Fatalf("テーブルの初期化に失敗: %v", err)
	}
	return db
}

func newFavorite(userID, trackID string, createdAt time.Time) *model.FavoriteSong {
	return &model.FavoriteSong{
		ID:         uuid.New().String(),
		UserID:     userID,
		TrackID:    trackID,
		TrackName:  "Song " + trackID,
		ArtistName: "Artist",
		CreatedAt:  createdAt,
	}
}

func TestPostgresFavoriteRepo_CreateListDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewPostgresFavoriteRepo(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, fav := range []*model.FavoriteSong{
		newFavorite("guest", "t1", base),
		newFavorite("guest", "t1", base.Add(time.Minute)),
		newFavorite("guest", "t2", base.Add(2*time.Minute)),
		newFavorite("other", "t1", base),
	} {
		if err := repo.Create(ctx, fav); err != nil {
			t.Fatalf("%d件目の作成に失敗: %v", i+1, err)
		}
	}

	favs, err := repo.ListByUserID(ctx, "guest")
	if err != nil {
		t.Fatalf("一覧取得に失敗: %v", err)
	}
	if len(favs) != 3 {
		t.Fatalf("件数 = %d, want 3（重複登録を許容）", len(favs))
	}
	if favs[0].TrackID != "t2" {
		t.Errorf("先頭 = %q, want 新しい順で t2", favs[0].TrackID)
	}

	n, err := repo.DeleteOneByUserAndTrack(ctx, "guest", "t1")
	if err != nil {
		t.Fatalf("削除に失敗: %v", err)
	}
	if n != 1 {
		t.Errorf("削除件数 = %d, want 1", n)
	}
	favs, _ = repo.ListByUserID(ctx, "guest")
	var remaining []time.Time
	for _, f := range favs {
		if f.TrackID == "t1" {
			remaining = append(remaining, f.CreatedAt)
		}
	}
	if len(remaining) != 1 || !remaining[0].Equal(base) {
		t.Errorf("残った t1 = %v, want 古い方の1件（%v）", remaining, base)
	}

	n, err = repo.DeleteOneByUserAndTrack(ctx, "guest", "missing")
	if err != nil || n != 0 {
		t.Errorf("存在しない組の削除 = (%d, %v), want (0, nil)", n, err)
	}

	others, _ := repo.ListByUserID(ctx, "other")
	if len(others) != 1 {
		t.Errorf("他ユーザーのお気に入りが削除された: %d件", len(others))
	}
}

func TestPostgresRecordRepo_CRUD(t *testing.T) {
	db := setupDB(t)
	repo := NewPostgresRecordRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := &model.EntertainmentRecord{
		ID:        uuid.New().String(),
		Movies:    json.RawMessage(`[{"title":"Dune"}]`),
		Songs:     json.RawMessage(`[]`),
		Games:     json.RawMessage(`[]`),
		News:      json.RawMessage(`[]`),
		YouTube:   json.RawMessage(`[]`),
		Weather:   json.RawMessage(`{"temp":28}`),
		CreatedBy: "ada@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("作成に失敗: %v", err)
	}

	got, err := repo.FindByID(ctx, rec.ID)
	if err != nil || got == nil {
		t.Fatalf("取得に失敗: rec=%v err=%v", got, err)
	}
	var movies []map[string]string
	if err := json.Unmarshal(got.Movies, &movies); err != nil || len(movies) != 1 || movies[0]["title"] != "Dune" {
		t.Errorf("movies = %s", got.Movies)
	}
	if got.CreatedBy != "ada@example.com" {
		t.Errorf("createdBy = %q", got.CreatedBy)
	}

	rec.Weather = json.RawMessage(`{"temp":30}`)
	rec.UpdatedAt = now.Add(time.Minute)
	ok, err := repo.Update(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("更新に失敗: ok=%v err=%v", ok, err)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("一覧取得 = %d件, err=%v", len(list), err)
	}
	var weather struct{ Temp float64 }
	json.Unmarshal(list[0].Weather, &weather)
	if weather.Temp != 30 {
		t.Errorf("更新後の weather = %s", list[0].Weather)
	}

	ok, err = repo.DeleteByID(ctx, rec.ID)
	if err != nil || !ok {
		t.Fatalf("削除に失敗: ok=%v err=%v", ok, err)
	}
	ok, err = repo.DeleteByID(ctx, rec.ID)
	if err != nil || ok {
		t.Errorf("2回目の削除 = (%v, %v), want (false, nil)", ok, err)
	}
	if got, _ := repo.FindByID(ctx, rec.ID); got != nil {
		t.Error("削除済みレコードが取得できてしまう")
	}
}

func TestPostgresUserRepo_ProfileAndSessions(t *testing.T) {
	db := setupDB(t)
	users := NewPostgresUserRepo(db)
	idents := NewPostgresIdentityRepo(db)
	sessions := NewPostgresSessionRepo(db)
	ctx := context.Background()
	now := time.Now()

	user := &model.User{
		ID:        uuid.New().String(),
		Email:     "ada@example.com",
		Name:      "Ada",
		PhotoURL:  "https://photo.example/ada.png",
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       "google",
		ProviderUserID: "g-1",
		CreatedAt:      now,
	}
	if err := users.CreateWithIdentity(ctx, user, identity); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}

	found, err := idents.FindByProviderAndProviderUserID(ctx, "google", "g-1")
	if err != nil || found == nil || found.UserID != user.ID {
		t.Fatalf("identity = %+v, err = %v", found, err)
	}

	if err := users.UpdateProfile(ctx, user.ID, "Ada L.", "https://photo.example/new.png"); err != nil {
		t.Fatalf("プロフィール更新に失敗: %v", err)
	}
	got, err := users.FindByID(ctx, user.ID)
	if err != nil || got == nil {
		t.Fatalf("ユーザー取得に失敗: %v", err)
	}
	if got.Name != "Ada L." || got.PhotoURL != "https://photo.example/new.png" {
		t.Errorf("user = %+v", got)
	}

	live := &model.Session{ID: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	expired := &model.Session{ID: "expired", UserID: user.ID, ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	for _, s := range []*model.Session{live, expired} {
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("セッション作成に失敗: %v", err)
		}
	}
	if s, _ := sessions.FindByID(ctx, "live"); s == nil {
		t.Error("有効なセッションが取得できない")
	}
	if s, _ := sessions.FindByID(ctx, "expired"); s != nil {
		t.Error("期限切れセッションが取得できてしまう")
	}

	if err := users.DeleteByID(ctx, user.ID); err != nil {
		t.Fatalf("ユーザー削除に失敗: %v", err)
	}
	if err := users.DeleteByID(ctx, user.ID); err == nil {
		t.Error("存在しないユーザーの削除はエラーになるべき")
	}
}
