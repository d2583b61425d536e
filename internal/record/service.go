// Package record は保存済み集約スナップショットのCRUDを提供する。
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/repository"
)

var (
	emptyArray  = json.RawMessage(`[]`)
	emptyObject = json.RawMessage(`{}`)
)

// Service はレコードのサービス層。
type Service struct {
	repo   repository.RecordRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.RecordRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Create はレコードを作成する。user が nil の場合、作成者は "Anonymous" になる。
func (s *Service) Create(ctx context.Context, in model.RecordInput, user *model.User) (*model.EntertainmentRecord, error) {
	rec, err := fromInput(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.ID = uuid.New().String()
	rec.CreatedBy = model.AnonymousCreator
	if user != nil && user.Email != "" {
		rec.CreatedBy = user.Email
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("レコードの保存に失敗しました", slog.String("error", err.Error()))
		return nil, &model.PersistenceError{Op: "record.create", Err: err}
	}
	return rec, nil
}

// List は全レコードを新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.EntertainmentRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, &model.PersistenceError{Op: "record.list", Err: err}
	}
	if recs == nil {
		recs = []model.EntertainmentRecord{}
	}
	return recs, nil
}

// Get は指定IDのレコードを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.EntertainmentRecord, error) {
	if !validID(id) {
		return nil, model.NewRecordNotFoundError(id)
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, &model.PersistenceError{Op: "record.get", Err: err}
	}
	if rec == nil {
		return nil, model.NewRecordNotFoundError(id)
	}
	return rec, nil
}

// Update はレコードの各セクションを置き換える。作成者と作成日時は保持する。
func (s *Service) Update(ctx context.Context, id string, in model.RecordInput) (*model.EntertainmentRecord, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := fromInput(in)
	if err != nil {
		return nil, err
	}
	rec.ID = current.ID
	rec.CreatedBy = current.CreatedBy
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = s.now().UTC()

	ok, err := s.repo.Update(ctx, rec)
	if err != nil {
		return nil, &model.PersistenceError{Op: "record.update", Err: err}
	}
	if !ok {
		return nil, model.NewRecordNotFoundError(id)
	}
	return rec, nil
}

// Delete は指定IDのレコードを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return model.NewRecordNotFoundError(id)
	}
	ok, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return &model.PersistenceError{Op: "record.delete", Err: err}
	}
	if !ok {
		return model.NewRecordNotFoundError(id)
	}
	return nil
}

// IDはUUID。それ以外はストアに問い合わせず未検出として扱う。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// fromInput は入力を正規化する。省略されたリストは []、天気は {} とする。
func fromInput(in model.RecordInput) (*model.EntertainmentRecord, error) {
	rec := &model.EntertainmentRecord{}
	fields := []struct {
		name  string
		raw   json.RawMessage
		dst   *json.RawMessage
		empty json.RawMessage
		open  byte
	}{
		{"movies", in.Movies, &rec.Movies, emptyArray, '['},
		{"songs", in.Songs, &rec.Songs, emptyArray, '['},
		{"games", in.Games, &rec.Games, emptyArray, '['},
		{"news", in.News, &rec.News, emptyArray, '['},
		{"youtube", in.YouTube, &rec.YouTube, emptyArray, '['},
		{"weather", in.Weather, &rec.Weather, emptyObject, '{'},
	}
	for _, f := range fields {
		raw := bytes.TrimSpace(f.raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			*f.dst = f.empty
			continue
		}
		if raw[0] != f.open || !json.Valid(raw) {
			if f.open == '[' {
				return nil, model.NewValidationError(f.name, "配列で指定してください")
			}
			return nil, model.NewValidationError(f.name, "オブジェクトで指定してください")
		}
		*f.dst = json.RawMessage(raw)
	}
	return rec, nil
}
