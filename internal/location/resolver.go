// Package location は呼び出し元IPから所在地を推定する。
// 推定に失敗しても model.DefaultLocation を返し、呼び出し元にエラーを返さない。
package location

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/enthub/internal/model"
	"github.com/hitoshi/enthub/internal/security"
	"github.com/hitoshi/enthub/internal/upstream"
)

const (
	// APIName はログ・メトリクスで使うAPI名。
	APIName = "ipapi"
	// defaultBaseURL はipapi.coのベースURL。
	defaultBaseURL = "https://ipapi.co"
	// DefaultClientIP はクライアントIPを特定できない場合に使うアドレス。
	DefaultClientIP = "8.8.8.8"
)

// Client はipapi.coのクライアント。
type Client struct {
	http    *upstream.Client
	baseURL string // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *upstream.Client) *Client {
	return &Client{http: httpClient, baseURL: defaultBaseURL}
}

type lookupJSON struct {
	City        string `json:"city"`
	CountryName string `json:"country_name"`
	Country     string `json:"country"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Lookup はIPアドレスの所在地を問い合わせる。
// 返す Location は欠けたフィールドを含み得る。
func (c *Client) Lookup(ctx context.Context, ip string) (model.Location, error) {
	var out lookupJSON
	if err := c.http.GetJSON(ctx, c.baseURL+"/"+url.PathEscape(ip)+"/json/", nil, &out); err != nil {
		return model.Location{}, err
	}
	// ipapi は予約済みアドレスやレート超過を200で返す
	if out.Error {
		return model.Location{}, &model.UpstreamError{API: APIName, Status: http.StatusOK, Message: out.Reason}
	}
	return model.Location{
		City:        out.City,
		Country:     out.CountryName,
		CountryCode: out.Country,
	}, nil
}

// Lookuper はIPから所在地を問い合わせる。
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (model.Location, error)
}

// Resolver は所在地推定を行う。
type Resolver struct {
	lookup Lookuper
	logger *slog.Logger
}

// NewResolver はResolverを生成する。
func NewResolver(lookup Lookuper, logger *slog.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve はIPから所在地を推定する。失敗時は model.DefaultLocation を返す。
// 非公開アドレスや解析できないIPは外部APIを呼ばずに既定値を返す。
func (r *Resolver) Resolve(ctx context.Context, ip string) model.Location {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || security.IsNonPublicIP(parsed) {
		r.logger.Debug("位置推定の対象外のIPのため既定の所在地を使います",
			slog.String("ip", ip),
		)
		return model.DefaultLocation
	}

	loc, err := r.lookup.Lookup(ctx, parsed.String())
	if err != nil {
		attrs := []any{slog.String("ip", ip), slog.String("error", err.Error())}
		var ue *model.UpstreamError
		if errors.As(err, &ue) {
			attrs = append(attrs, slog.Int("http_status", ue.Status))
		}
		r.logger.Warn("位置推定に失敗したため既定の所在地を使います", attrs...)
		return model.DefaultLocation
	}
	return fillDefaults(loc)
}

// fillDefaults は欠けたフィールドだけを既定値で埋める。
func fillDefaults(loc model.Location) model.Location {
	if loc.City == "" {
		loc.City = model.DefaultLocation.City
	}
	if loc.Country == "" {
		loc.Country = model.DefaultLocation.Country
	}
	if loc.CountryCode == "" {
		loc.CountryCode = model.DefaultLocation.CountryCode
	}
	return loc
}

// ClientIP は位置推定に使う呼び出し元IPを返す。
// X-Forwarded-For の先頭、RemoteAddr のホスト部、DefaultClientIP の順に使う。
// ヘッダーはクライアントが自由に設定できるため、レート制限のキーには PeerIP を使う。
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return PeerIP(r)
}

// PeerIP は接続元ソケットのアドレス（RemoteAddr のホスト部）を返す。ヘッダーは見ない。
func PeerIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return DefaultClientIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
