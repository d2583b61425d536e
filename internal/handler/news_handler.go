package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/enthub/internal/model"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	Entertainment(ctx context.Context, page int) ([]model.Article, error)
	Search(ctx context.Context, query string, page int) ([]model.Article, error)
	Topic(ctx context.Context, tag string, page int) ([]model.Article, error)
}

// ArticleReader は記事URLからサニタイズ済み本文を取得する。
type ArticleReader interface {
	Read(ctx context.Context, rawURL string) (*model.ArticleContent, error)
}

// articlesResponse はニュース一覧のレスポンス。
type articlesResponse struct {
	Articles []model.Article `json:"articles"`
}

// NewsHandler はニュースのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
	reader  ArticleReader
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface, reader ArticleReader) *NewsHandler {
	return &NewsHandler{service: service, reader: reader}
}

// Entertainment GET /api/news/entertainment?page=
func (h *NewsHandler) Entertainment(w http.ResponseWriter, r *http.Request) {
	h.articles(w, func() ([]model.Article, error) { return h.service.Entertainment(r.Context(), pageParam(r)) })
}

// Search GET /api/news/search?q=&page=
func (h *NewsHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.articles(w, func() ([]model.Article, error) {
		return h.service.Search(r.Context(), r.URL.Query().Get("q"), pageParam(r))
	})
}

// Topic GET /api/news/topic?tag=&page=
func (h *NewsHandler) Topic(w http.ResponseWriter, r *http.Request) {
	h.articles(w, func() ([]model.Article, error) {
		return h.service.Topic(r.Context(), r.URL.Query().Get("tag"), pageParam(r))
	})
}

// Article は記事本文をサニタイズして返す。
// GET /api/news/article?url=
func (h *NewsHandler) Article(w http.ResponseWriter, r *http.Request) {
	respond(w, func() (any, error) { return h.reader.Read(r.Context(), r.URL.Query().Get("url")) })
}

func (h *NewsHandler) articles(w http.ResponseWriter, fn func() ([]model.Article, error)) {
	articles, err := fn()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	writeJSON(w, http.StatusOK, articlesResponse{Articles: articles})
}
