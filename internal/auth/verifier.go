// Package auth はIdPが署名したIDトークンの検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/hitoshi/safeai/internal/model"
)

// TokenVerifier はIDトークンを検証し、正規化済みクレームを返す。
// Providerが返すラベルは検証器ごとに固定で、リクエストからは決まらない。
type TokenVerifier interface {
	Provider() string
	Verify(ctx context.Context, credential string) (*model.Claims, error)
}

// OIDCConfig はOpenID Connect IDトークン検証器の設定。
type OIDCConfig struct {
	// Provider は検証成功時にクレームへ付与するラベル。
	Provider string
	// ClientID はaudとして要求する値。設定からのみ与える。
	ClientID string
	// Issuers は許可するiss。
	Issuers []string
	// JWKSURL は公開鍵セットの取得先。
	JWKSURL string

	// HTTPClient は公開鍵取得に使うクライアント。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
	// KeySet を指定した場合はJWKSURLを使わずにこの鍵で署名検証する。
	KeySet oidc.KeySet
	// Now は有効期限判定に使う現在時刻。nilの場合はtime.Now。
	Now func() time.Time
	// ClockSkew はexpとnbfに対して許容する時刻ずれ。
	ClockSkew time.Duration
}

// OIDCVerifier はgo-oidcを用いたTokenVerifierの実装。
// 鍵セットはgo-oidcのRemoteKeySetがキャッシュし、複数リクエストで共有される。
type OIDCVerifier struct {
	provider  string
	clientID  string
	issuers   []string
	keySet    oidc.KeySet
	now       func() time.Time
	clockSkew time.Duration
	parser    *jwt.Parser
}

// NewOIDCVerifier はOIDCVerifierを生成する。
func NewOIDCVerifier(cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("oidc verifier: provider label is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oidc verifier %s: client ID is required", cfg.Provider)
	}
	if len(cfg.Issuers) == 0 {
		return nil, fmt.Errorf("oidc verifier %s: at least one issuer is required", cfg.Provider)
	}

	keySet := cfg.KeySet
	if keySet == nil {
		if cfg.JWKSURL == "" {
			return nil, fmt.Errorf("oidc verifier %s: JWKS URL is required", cfg.Provider)
		}
		ctx := context.Background()
		if cfg.HTTPClient != nil {
			ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
		}
		keySet = oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &OIDCVerifier{
		provider:  cfg.Provider,
		clientID:  cfg.ClientID,
		issuers:   slices.Clone(cfg.Issuers),
		keySet:    keySet,
		now:       now,
		clockSkew: cfg.ClockSkew,
		parser:    jwt.NewParser(),
	}, nil
}

// Provider は検証器のプロバイダラベルを返す。
func (v *OIDCVerifier) Provider() string {
	return v.provider
}

// idTokenClaims はIDトークンのペイロードから取り出す項目。
type idTokenClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

// Verify はIDトークンを検証する。
// 形式、署名、iss、aud、exp、nbfの順に判定し、最初に失敗した項目のエラーを返す。
func (v *OIDCVerifier) Verify(ctx context.Context, credential string) (*model.Claims, error) {
	// 登録済みクレームを型付きで読み、exp等が数値でないペイロードを形式不正として弾く。
	var registered jwt.RegisteredClaims
	if _, _, err := v.parser.ParseUnverified(credential, &registered); err != nil {
		return nil, model.NewTokenMalformedError(err)
	}

	// iss/aud/expは自前で判定し、失敗種別を区別できるようにする。
	probe := &probeKeySet{inner: v.keySet}
	verifier := oidc.NewVerifier(v.issuers[0], probe, &oidc.Config{
		SkipClientIDCheck: true,
		SkipExpiryCheck:   true,
		SkipIssuerCheck:   true,
	})

	token, err := verifier.Verify(ctx, credential)
	if err != nil {
		if probe.err != nil && isKeyFetchFailure(probe.err) {
			return nil, model.NewProviderUnavailableError(v.provider, probe.err)
		}
		return nil, model.NewTokenInvalidSignatureError(err)
	}

	if !slices.Contains(v.issuers, token.Issuer) {
		return nil, model.NewTokenInvalidSignatureError(fmt.Errorf("unexpected issuer %q", token.Issuer))
	}
	if !slices.Contains(token.Audience, v.clientID) {
		return nil, model.NewTokenAudienceMismatchError(token.Audience)
	}
	if token.Expiry.IsZero() {
		return nil, model.NewTokenMalformedError(errors.New("missing exp claim"))
	}
	if v.now().After(token.Expiry.Add(v.clockSkew)) {
		return nil, model.NewTokenExpiredError()
	}
	if registered.NotBefore != nil && v.now().Add(v.clockSkew).Before(registered.NotBefore.Time) {
		return nil, model.NewTokenNotYetValidError(registered.NotBefore.Time)
	}

	var c idTokenClaims
	if err := token.Claims(&c); err != nil {
		return nil, model.NewTokenMalformedError(err)
	}

	name := c.Name
	if name == "" {
		name = c.Nickname
	}

	return &model.Claims{
		Subject:  token.Subject,
		Email:    c.Email,
		Name:     name,
		Picture:  c.Picture,
		Provider: v.provider,
	}, nil
}

// probeKeySet は内側のKeySetが返した生のエラーを保持する。
// go-oidcは署名検証エラーを文字列化して返すため、鍵取得失敗の判別に使う。
// 1回のVerify呼び出しごとに生成する。
type probeKeySet struct {
	inner oidc.KeySet
	err   error
}

func (p *probeKeySet) VerifySignature(ctx context.Context, raw string) ([]byte, error) {
	payload, err := p.inner.VerifySignature(ctx, raw)
	p.err = err
	return payload, err
}

// isKeyFetchFailure は鍵取得先に到達できなかったことを示すエラーかを判定する。
// RemoteKeySetは取得失敗を "fetching keys" で始まるエラーで返す。
func isKeyFetchFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return strings.HasPrefix(err.Error(), "fetching keys")
}

// compile-time interface check
var _ TokenVerifier = (*OIDCVerifier)(nil)
