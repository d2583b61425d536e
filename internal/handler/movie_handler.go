package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/tmdb"
)

// MovieServiceInterface は映画ハンドラーが必要とするサービスインターフェース。
type MovieServiceInterface interface {
	List(ctx context.Context, category string) ([]model.Movie, error)
	Search(ctx context.Context, query string) ([]model.Movie, error)
	Detail(ctx context.Context, id string) (*model.MovieDetail, error)
	Videos(ctx context.Context, id string) ([]model.MovieVideo, error)
	Credits(ctx context.Context, id string) ([]model.CastMember, error)
}

// MovieHandler は映画情報のHTTPハンドラー。
type MovieHandler struct {
	service MovieServiceInterface
}

// NewMovieHandler はMovieHandlerを生成する。
func NewMovieHandler(service MovieServiceInterface) *MovieHandler {
	return &MovieHandler{service: service}
}

// Search GET /api/movies/search?q=
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.Search(r.Context(), r.URL.Query().Get("q")) })
}

// Videos GET /api/movies/videos/{id}
func (h *MovieHandler) Videos(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.Videos(r.Context(), chi.URLParam(r, "id")) })
}

// Credits GET /api/movies/credits/{id}
func (h *MovieHandler) Credits(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.Credits(r.Context(), chi.URLParam(r, "id")) })
}

// Detail GET /api/movies/details/{id}
func (h *MovieHandler) Detail(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.Detail(r.Context(), chi.URLParam(r, "id")) })
}

// ListOrDetail は /api/movies/{id} を処理する。
// trending、popular、top_rated は一覧、それ以外は映画IDとして詳細を返す。
func (h *MovieHandler) ListOrDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	switch id {
	case tmdb.CategoryTrending, tmdb.CategoryPopular, tmdb.CategoryTopRated:
		respond(w, func() (any, error) { return h.service.List(r.Context(), id) })
	default:
		h.Detail(w, r)
	}
}

// respond は fn の結果を200で返し、エラーは統一フォーマットで返す。
func respond(w http.ResponseWriter, fn func() (any, error)) {
	v, err := fn()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
