// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/enthub/internal/middleware"
	"github.com/hitoshi/enthub/internal/model"
)

// maxBodyBytes はJSONリクエスト本文の上限。
const maxBodyBytes = 1 << 20

// writeJSON はステータスコードとともに v をJSONで書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエスト本文を v にデコードする。不正な本文は ValidationError を返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("body", "リクエスト本文のJSONが不正です")
	}
	return nil
}

// pageParam は ?page= を1以上の整数として読む。不正値は1。
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// handleServiceError はサービス層のエラーを統一エラーフォーマットに変換して書き込む。
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		apiErr   *model.APIError
		verr     *model.ValidationError
		verrs    model.ValidationErrors
		authErr  *model.UpstreamAuthError
		upErr    *model.UpstreamError
		storeErr *model.PersistenceError
	)

	switch {
	case errors.As(err, &apiErr):
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
	case errors.As(err, &verrs), errors.As(err, &verr):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidation,
			Message:  err.Error(),
			Category: "validation",
			Action:   "入力内容を確認してください。",
		})
	case errors.As(err, &authErr):
		slog.Error("upstream credential exchange failed", slog.String("api", authErr.API), slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     model.ErrCodeUpstreamAuth,
			Message:  "外部サービスの認証に失敗しました。",
			Category: "upstream",
			Action:   "しばらく待ってから再度お試しください。",
		})
	case errors.As(err, &upErr):
		slog.Warn("upstream request failed",
			slog.String("api", upErr.API),
			slog.Int("status", upErr.Status),
			slog.String("error", upErr.Message),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     model.ErrCodeUpstream,
			Message:  "外部サービスからデータを取得できませんでした: " + upErr.API,
			Category: "upstream",
			Action:   "しばらく待ってから再度お試しください。",
		})
	case errors.As(err, &storeErr):
		slog.Error("persistence failure", slog.String("op", storeErr.Op), slog.String("error", storeErr.Err.Error()))
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     model.ErrCodePersistence,
			Message:  "データの保存または読み込みに失敗しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
	default:
		slog.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeUnknownSection, model.ErrCodeEndpointBlocked:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeRecordNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstream, model.ErrCodeUpstreamAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
