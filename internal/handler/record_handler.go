package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/enthub/internal/middleware"
	"github.com/hitoshi/enthub/internal/model"
)

// RecordServiceInterface はレコードハンドラーが必要とするサービスインターフェース。
type RecordServiceInterface interface {
	Create(ctx context.Context, in model.RecordInput, user *model.User) (*model.EntertainmentRecord, error)
	List(ctx context.Context) ([]model.EntertainmentRecord, error)
	Get(ctx context.Context, id string) (*model.EntertainmentRecord, error)
	Update(ctx context.Context, id string, in model.RecordInput) (*model.EntertainmentRecord, error)
	Delete(ctx context.Context, id string) error
}

// RecordHandler は保存済みスナップショットのHTTPハンドラー。
type RecordHandler struct {
	service RecordServiceInterface
}

// NewRecordHandler はRecordHandlerを生成する。
func NewRecordHandler(service RecordServiceInterface) *RecordHandler {
	return &RecordHandler{service: service}
}

// Create POST /api/records
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}
	user, _ := middleware.UserFromContext(r.Context())
	rec, err := h.service.Create(r.Context(), in, user)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// List GET /api/records
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.List(r.Context()) })
}

// Get GET /api/records/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.service.Get(r.Context(), chi.URLParam(r, "id")) })
}

// Update PUT /api/records/{id}
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in model.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}
	respond(w, func() (any, error) { return h.service.Update(r.Context(), chi.URLParam(r, "id"), in) })
}

// Delete DELETE /api/records/{id}
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record deleted"})
}
