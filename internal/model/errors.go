// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeUpstreamAuth    = "UPSTREAM_AUTH_ERROR"
	ErrCodePersistence     = "PERSISTENCE_ERROR"
	ErrCodeRecordNotFound  = "RECORD_NOT_FOUND"
	ErrCodeUnknownSection  = "UNKNOWN_SECTION"
	ErrCodeEndpointBlocked = "ENDPOINT_NOT_ALLOWED"
	ErrCodeSSRFBlocked     = "SSRF_BLOCKED"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
)

// NewRecordNotFoundError はレコード未検出エラーを生成する。
func NewRecordNotFoundError(recordID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("指定されたレコードが見つかりません: %s", recordID),
		Category: "validation",
		Action:   "レコードIDを確認してください。",
	}
}

// NewUnknownSectionError は未対応セクション指定エラーを生成する。
func NewUnknownSectionError(section string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownSection,
		Message:  fmt.Sprintf("無効なセクションです: %s", section),
		Category: "validation",
		Action:   "section には all、landing、movies、songs、youtube、news、weather のいずれかを指定してください。",
	}
}

// NewEndpointNotAllowedError はプロキシ対象外のYouTubeエンドポイント指定エラーを生成する。
func NewEndpointNotAllowedError(endpoint string) *APIError {
	return &APIError{
		Code:     ErrCodeEndpointBlocked,
		Message:  fmt.Sprintf("許可されていないエンドポイントです: %s", endpoint),
		Category: "validation",
		Action:   "search、videos、channels、playlistItems のいずれかを指定してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されている記事のURLを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// UpstreamError は外部APIが非2xxステータスまたは不正なレスポンスを返したことを表す。
// Status はトランスポートエラーやタイムアウトの場合0になる。
type UpstreamError struct {
	API     string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.API, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.API, e.Status, e.Message)
}

// UpstreamAuthError はトークン交換の失敗を表す。
type UpstreamAuthError struct {
	API string
	Err error
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("%s: credential exchange failed: %v", e.API, e.Err)
}

func (e *UpstreamAuthError) Unwrap() error {
	return e.Err
}

// ValidationError は必須入力の欠落や形式不正を表す。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError は ValidationError を生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError はストア操作の失敗を表す。
// 書き込み結果を保証できないため、呼び出し元には必ず失敗として伝える。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationErrors は複数フィールドの検証エラーをまとめる。
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}
