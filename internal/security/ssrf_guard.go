// Package security は記事リーダーが外部URLを取得する際のSSRF対策とHTMLサニタイズを提供する。
package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// nonPublicPrefixes はインターネットから到達できないアドレス範囲。
// クラウドのメタデータエンドポイント 169.254.169.254 はリンクローカルに含まれる。
var nonPublicPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // CGNAT
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// SSRFGuard は記事URLの事前検証と、接続先IPを検査するHTTPクライアントの生成を担う。
type SSRFGuard struct {
	schemes []string
	ports   []int
}

// NewSSRFGuard は http/https の80/443番ポートだけを許可する SSRFGuard を返す。
func NewSSRFGuard() *SSRFGuard {
	return &SSRFGuard{schemes: []string{"http", "https"}, ports: []int{80, 443}}
}

// NewSafeClient は接続直前に解決済みIPを検査するクライアントを返す。
// DNSリバインディングで ValidateURL をすり抜けた場合もここで止まる。
func (g *SSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(g.schemes...).
		SetAllowedPorts(g.ports...).
		Build()
	return safeurl.Client(cfg).Client
}

// ValidateURL はDNS解決をせずに判定できる範囲で rawURL を検査する。
func (g *SSRFGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !g.schemeAllowed(u.Scheme) {
		return fmt.Errorf("disallowed scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "":
		return errors.New("URL has no host")
	case host == "localhost" || strings.HasSuffix(host, ".localhost"):
		return fmt.Errorf("blocked host %q", host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && isNonPublicAddr(addr) {
		return fmt.Errorf("blocked address %s", addr)
	}
	return nil
}

func (g *SSRFGuard) schemeAllowed(scheme string) bool {
	for _, s := range g.schemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

// IsNonPublicIP は ip がプライベート、ループバック、リンクローカル等の非公開アドレスかを返す。
// 位置推定では、この範囲のクライアントIPを既定地点へフォールバックさせる。
func IsNonPublicIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	return isNonPublicAddr(addr)
}

func isNonPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsUnspecified() {
		return true
	}
	for _, p := range nonPublicPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
