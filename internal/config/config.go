package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// Database
	// postgres://... または sqlite3://path/to/users.db
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Identity providers
	GoogleClientID string `envconfig:"GOOGLE_CLIENT_ID"`
	KakaoClientID  string `envconfig:"KAKAO_CLIENT_ID"`

	// 検証フローを持たず、クライアント申告をそのまま受け入れるプロバイダ
	UnverifiedProviders []string `envconfig:"UNVERIFIED_PROVIDERS" default:"guest,test_mode"`

	// Token verification
	TokenClockSkew   time.Duration `envconfig:"TOKEN_CLOCK_SKEW" default:"0s"`
	JWKSFetchTimeout time.Duration `envconfig:"JWKS_FETCH_TIMEOUT" default:"10s"`

	// Server
	ServerPort       string `envconfig:"SERVER_PORT" default:"8080"`
	RequestBodyLimit int64  `envconfig:"REQUEST_BODY_LIMIT" default:"65536"`

	// CORS
	CORSAllowedOrigin string `envconfig:"CORS_ALLOWED_ORIGIN" default:"http://localhost:5173"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.UnverifiedProviders = normalizeProviders(cfg.UnverifiedProviders)
	return &cfg, nil
}

// IsProduction は本番環境で動作しているかを返す。
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

func normalizeProviders(list []string) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
