package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/unrolled/secure"
)

// SecureOptions はセキュリティヘッダーミドルウェアの設定。
type SecureOptions struct {
	// Production が真の場合、HTTPSへのリダイレクトとHSTSを有効にする。
	Production bool
	// PlainHTTPPaths はHTTPSリダイレクトの対象外とするパス。
	// コンテナ内からlocalhostに送るヘルスチェック用。
	PlainHTTPPaths []string
}

// NewSecureMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// APIはJSONのみを返すため、CSPは全リソースを拒否する。
func NewSecureMiddleware(opts SecureOptions) func(next http.Handler) http.Handler {
	strict := secure.New(secureOptions(opts.Production, opts.Production))
	plain := secure.New(secureOptions(opts.Production, false))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := strict
			if slices.Contains(opts.PlainHTTPPaths, r.URL.Path) {
				s = plain
			}
			if err := s.Process(w, r); err != nil {
				// SSLRedirectでリダイレクト済み、または許可されないホスト
				slog.Warn("secure headers blocked request",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secureOptions(production, sslRedirect bool) secure.Options {
	o := secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           sslRedirect,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	}
	if production {
		o.STSSeconds = 31536000
		o.STSIncludeSubdomains = true
	}
	return o
}
