package auth

import (
	"net/http"
	"time"
)

const (
	// ProviderKakao はKakaoで検証済みのユーザーに付与するラベル。
	ProviderKakao = "kakao"

	kakaoIssuer         = "https://kauth.kakao.com"
	defaultKakaoJWKSURL = "https://kauth.kakao.com/.well-known/jwks.json"
)

// KakaoConfig はKakao IDトークン検証器の設定。
// ClientIDにはKakaoアプリのREST APIキーを指定する。
type KakaoConfig struct {
	ClientID   string
	HTTPClient *http.Client
	Now        func() time.Time
	ClockSkew  time.Duration

	// テスト用にオーバーライド可能なURL
	JWKSURL string
}

// NewKakaoVerifier はKakao LoginのOIDC IDトークン検証器を生成する。
// Kakaoのトークンはnameを持たずnicknameのみの場合がある。
func NewKakaoVerifier(config KakaoConfig) (*OIDCVerifier, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultKakaoJWKSURL
	}
	return NewOIDCVerifier(OIDCConfig{
		Provider:   ProviderKakao,
		ClientID:   config.ClientID,
		Issuers:    []string{kakaoIssuer},
		JWKSURL:    config.JWKSURL,
		HTTPClient: config.HTTPClient,
		Now:        config.Now,
		ClockSkew:  config.ClockSkew,
	})
}
