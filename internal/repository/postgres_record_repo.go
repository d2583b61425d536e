package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/enthub/internal/model"
)

// PostgresRecordRepo はPostgreSQLを使用した保存済みスナップショットのリポジトリ。
// 各セクションはJSONBのまま保持する。
type PostgresRecordRepo struct {
	db *sql.DB
}

// NewPostgresRecordRepo はPostgresRecordRepoを生成する。
func NewPostgresRecordRepo(db *sql.DB) *PostgresRecordRepo {
	return &PostgresRecordRepo{db: db}
}

const recordColumns = `id, movies, songs, games, news, youtube, weather, created_by, created_at, updated_at`

// rowScanner は *sql.Row と *sql.Rows の共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*model.EntertainmentRecord, error) {
	rec := &model.EntertainmentRecord{}
	var movies, songs, games, news, youtube, weather []byte
	if err := s.Scan(&rec.ID, &movies, &songs, &games, &news, &youtube, &weather, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Movies = json.RawMessage(movies)
	rec.Songs = json.RawMessage(songs)
	rec.Games = json.RawMessage(games)
	rec.News = json.RawMessage(news)
	rec.YouTube = json.RawMessage(youtube)
	rec.Weather = json.RawMessage(weather)
	return rec, nil
}

// Create はレコードを作成する。
func (r *PostgresRecordRepo) Create(ctx context.Context, rec *model.EntertainmentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entertainment_items (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, []byte(rec.Movies), []byte(rec.Songs), []byte(rec.Games), []byte(rec.News),
		[]byte(rec.YouTube), []byte(rec.Weather), rec.CreatedBy, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
func (r *PostgresRecordRepo) FindByID(ctx context.Context, id string) (*model.EntertainmentRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM entertainment_items WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レコードの取得に失敗しました: %w", err)
	}
	return rec, nil
}

// List はレコードを作成日時の新しい順に返す。
func (r *PostgresRecordRepo) List(ctx context.Context) ([]model.EntertainmentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM entertainment_items ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("レコード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	records := []model.EntertainmentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("レコード行の読み取りに失敗しました: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レコード一覧の走査に失敗しました: %w", err)
	}
	return records, nil
}

// Update はレコードの内容を更新する。作成者と作成日時は変更しない。
func (r *PostgresRecordRepo) Update(ctx context.Context, rec *model.EntertainmentRecord) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE entertainment_items
		 SET movies = $2, songs = $3, games = $4, news = $5, youtube = $6, weather = $7, updated_at = $8
		 WHERE id = $1`,
		rec.ID, []byte(rec.Movies), []byte(rec.Songs), []byte(rec.Games), []byte(rec.News),
		[]byte(rec.YouTube), []byte(rec.Weather), rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("レコードの更新に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByID は指定IDのレコードを削除する。
func (r *PostgresRecordRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM entertainment_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("レコードの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ RecordRepository = (*PostgresRecordRepo)(nil)
