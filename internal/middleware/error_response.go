package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/enthub/internal/model"
)

// ErrorResponseBody は全エンドポイント共通のエラーJSON。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は apiErr を statusCode で書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は詳細を伏せた500を書き込む。原因はログにだけ残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

func writeUnauthorized(w http.ResponseWriter, code, message, action string) {
	WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     code,
		Message:  message,
		Category: "auth",
		Action:   action,
	})
}
