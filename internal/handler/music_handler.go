package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/enthub/internal/location"
	"github.com/hitoshi/enthub/internal/middleware"
	"github.com/hitoshi/enthub/internal/model"
)

// TrackSearcher はトラック検索のインターフェース。
type TrackSearcher interface {
	Search(ctx context.Context, query string) ([]model.Track, error)
}

// FavoriteServiceInterface はお気に入り操作のインターフェース。
type FavoriteServiceInterface interface {
	Add(ctx context.Context, userID string, in model.FavoriteInput) (*model.FavoriteSong, error)
	List(ctx context.Context, userID string) ([]model.FavoriteSong, error)
	Remove(ctx context.Context, userID, trackID string) error
}

// MusicHandler は音楽画面のHTTPハンドラー。
type MusicHandler struct {
	aggregate AggregateServiceInterface
	tracks    TrackSearcher
	favorites FavoriteServiceInterface
}

// NewMusicHandler はMusicHandlerを生成する。
func NewMusicHandler(aggregate AggregateServiceInterface, tracks TrackSearcher, favorites FavoriteServiceInterface) *MusicHandler {
	return &MusicHandler{aggregate: aggregate, tracks: tracks, favorites: favorites}
}

// Aggregate は所在国の人気トラックとお気に入りを返す。
// GET /api/music/aggregate
func (h *MusicHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	respond(w, func() (any, error) { return h.aggregate.Music(r.Context(), location.ClientIP(r), user) })
}

// Search GET /api/music/search?q=
func (h *MusicHandler) Search(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.tracks.Search(r.Context(), r.URL.Query().Get("q")) })
}

// ListFavorites GET /api/music/favorites
func (h *MusicHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.favorites.List(r.Context(), middleware.OwnerID(r.Context())) })
}

// AddFavorite POST /api/music/favorites
func (h *MusicHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var in model.FavoriteInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}
	fav, err := h.favorites.Add(r.Context(), middleware.OwnerID(r.Context()), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// RemoveFavorite は指定トラックのお気に入りを全て削除する。存在しなくても成功。
// DELETE /api/music/favorites/{trackId}
func (h *MusicHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Remove(r.Context(), middleware.OwnerID(r.Context()), chi.URLParam(r, "trackId")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favorites"})
}
