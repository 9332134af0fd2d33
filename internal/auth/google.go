package auth

import (
	"net/http"
	"time"
)

const (
	// ProviderGoogle はGoogleで検証済みのユーザーに付与するラベル。
	ProviderGoogle = "google"

	defaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// googleIssuers はGoogleが発行するIDトークンのiss。
// 古いトークンはスキームなしの値を使う。
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleConfig はGoogle IDトークン検証器の設定。
type GoogleConfig struct {
	ClientID   string
	HTTPClient *http.Client
	Now        func() time.Time
	ClockSkew  time.Duration

	// テスト用にオーバーライド可能なURL
	JWKSURL string
}

// NewGoogleVerifier はGoogle Sign-InのIDトークン検証器を生成する。
func NewGoogleVerifier(config GoogleConfig) (*OIDCVerifier, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultGoogleJWKSURL
	}
	return NewOIDCVerifier(OIDCConfig{
		Provider:   ProviderGoogle,
		ClientID:   config.ClientID,
		Issuers:    googleIssuers,
		JWKSURL:    config.JWKSURL,
		HTTPClient: config.HTTPClient,
		Now:        config.Now,
		ClockSkew:  config.ClockSkew,
	})
}
