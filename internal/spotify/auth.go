package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/enthub/internal/upstream"
)

// defaultTokenURL はSpotify Accountsのトークンエンドポイント。
const defaultTokenURL = "https://accounts.spotify.com/api/token"

// ClientCredentialsExchanger はClient Credentialsフローでアクセストークンを取得する。
// token.Exchanger を実装する。
type ClientCredentialsExchanger struct {
	http         *upstream.Client
	clientID     string
	clientSecret string
	tokenURL     string // テスト用に差し替え可能
}

// NewClientCredentialsExchanger はClientCredentialsExchangerを生成する。
func NewClientCredentialsExchanger(httpClient *upstream.Client, clientID, clientSecret string) *ClientCredentialsExchanger {
	return &ClientCredentialsExchanger{
		http:         httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultTokenURL,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange はクライアントID・シークレットをアクセストークンに交換する。
func (e *ClientCredentialsExchanger) Exchange(ctx context.Context) (string, time.Duration, error) {
	if e.clientID == "" || e.clientSecret == "" {
		return "", 0, errors.New("spotify client credentials are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("トークンリクエストの作成に失敗しました: %w", err)
	}
	req.SetBasicAuth(e.clientID, e.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := e.http.Do(req, &tok); err != nil {
		return "", 0, err
	}
	if tok.AccessToken == "" {
		return "", 0, errors.New("token response did not contain access_token")
	}
	if tok.ExpiresIn <= 0 {
		return "", 0, fmt.Errorf("token response has invalid expires_in: %d", tok.ExpiresIn)
	}

	return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
}
