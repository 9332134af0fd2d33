// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/safeai/internal/auth"
	"github.com/hitoshi/safeai/internal/metrics"
	"github.com/hitoshi/safeai/internal/model"
	"github.com/hitoshi/safeai/internal/repository"
	"github.com/hitoshi/safeai/internal/security"
)

// VerifierResolver はプロバイダラベルから検証方針を引くインターフェース。
// auth.Registryが実装する。
type VerifierResolver interface {
	Verifier(provider string) (auth.TokenVerifier, bool)
	AllowsUnverified(provider string) bool
}

// Service はプロフィールUPSERTのサービス層。
// リクエスト間で状態を持たず、唯一の共有状態はユーザーストアである。
type Service struct {
	userRepo  repository.UserRepository
	resolver  VerifierResolver
	sanitizer security.ProfileSanitizerService
	metrics   metrics.MetricsCollector
	validate  *validator.Validate
	now       func() time.Time
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithClock はlast_loginに使う時刻源を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	resolver VerifierResolver,
	sanitizer security.ProfileSanitizerService,
	opts ...Option,
) *Service {
	s := &Service{
		userRepo:  userRepo,
		resolver:  resolver,
		sanitizer: sanitizer,
		metrics:   noopMetrics{},
		validate:  newValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertProfile はプロフィールを検証・正規化し、emailをキーにUPSERTする。
//
// 検証可能なプロバイダではcredentialの検証が必須で、成功時はクライアント申告の
// name/email/picture/providerを検証済みクレームで完全に置き換える。
// 検証に失敗した場合はストアに触れずにエラーを返す。
func (s *Service) UpsertProfile(ctx context.Context, in model.ProfileInput) (*model.User, error) {
	start := time.Now()
	saved, err := s.upsertProfile(ctx, in)
	s.metrics.RecordUpsertLatency(time.Since(start))
	s.metrics.RecordUpsert(resultLabel(err))
	return saved, err
}

func (s *Service) upsertProfile(ctx context.Context, in model.ProfileInput) (*model.User, error) {
	profile, verified, err := s.resolveProfile(ctx, in)
	if err != nil {
		return nil, err
	}

	user, err := s.normalize(profile, verified)
	if err != nil {
		return nil, err
	}
	user.LastLogin = s.now()

	saved, err := s.userRepo.Upsert(ctx, user)
	if err != nil {
		slog.Error("ユーザーの保存に失敗しました",
			slog.String("provider", user.Provider),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreUnavailableError(err)
	}

	slog.Info("ユーザーを保存しました",
		slog.Int64("user_id", saved.ID),
		slog.String("provider", saved.Provider),
		slog.Bool("verified", verified),
	)
	return saved, nil
}

// resolveProfile はプロバイダの検証方針に従い、保存に使うプロフィールを決める。
// 戻り値のboolはトークン検証を経たかどうか。
func (s *Service) resolveProfile(ctx context.Context, in model.ProfileInput) (model.ProfileInput, bool, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	credential := strings.TrimSpace(in.Credential)

	if v, ok := s.resolver.Verifier(provider); ok {
		if credential == "" {
			return model.ProfileInput{}, false, model.NewInvalidProfileError(
				fmt.Sprintf("credential is required for provider %s", provider))
		}

		claims, err := v.Verify(ctx, credential)
		s.metrics.RecordVerification(v.Provider(), resultLabel(err))
		if err != nil {
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				err = model.NewTokenInvalidSignatureError(err)
			}
			slog.Warn("IDトークンの検証に失敗しました",
				slog.String("provider", v.Provider()),
				slog.String("code", resultLabel(err)),
				slog.String("error", err.Error()),
			)
			return model.ProfileInput{}, false, err
		}

		return model.ProfileInput{
			Name:     claims.Name,
			Email:    claims.Email,
			Picture:  claims.Picture,
			Provider: claims.Provider,
		}, true, nil
	}

	if s.resolver.AllowsUnverified(provider) {
		if credential != "" {
			slog.Warn("検証なしプロバイダに送られたcredentialを無視します",
				slog.String("provider", provider),
			)
		}
		in.Provider = provider
		in.Credential = ""
		return in, false, nil
	}

	if provider == "" {
		return model.ProfileInput{}, false, model.NewInvalidProfileError("provider is required")
	}
	return model.ProfileInput{}, false, model.NewInvalidProfileError(
		fmt.Sprintf("unsupported provider: %s", provider))
}

// normalize は入力をトリム・検証し、保存用のUserに変換する。
// 名前のサニタイズはクライアント申告のプロフィールにだけ適用し、
// 検証済みクレームはトリムと検証のみで保存する。
func (s *Service) normalize(p model.ProfileInput, verified bool) (*model.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Picture = strings.TrimSpace(p.Picture)
	p.Provider = strings.TrimSpace(p.Provider)

	if err := s.validate.Struct(p); err != nil {
		return nil, model.NewInvalidProfileError(describeValidation(err))
	}
	if err := s.sanitizer.ValidatePicture(p.Picture); err != nil {
		return nil, model.NewInvalidProfileError(
			fmt.Sprintf("picture must be a relative path or a public http(s) URL: %v", err))
	}

	name := p.Name
	if !verified {
		name = s.sanitizer.SanitizeName(name)
	}

	return &model.User{
		Name:     name,
		Email:    p.Email,
		Picture:  p.Picture,
		Provider: p.Provider,
	}, nil
}

// resultLabel はメトリクスとログ用にエラーをコードへ変換する。
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "INTERNAL_ERROR"
}

// noopMetrics はメトリクス未設定時に使う。
type noopMetrics struct{}

func (noopMetrics) RecordVerification(string, string) {}
func (noopMetrics) RecordUpsert(string)               {}
func (noopMetrics) RecordUpsertLatency(time.Duration) {}
func (noopMetrics) RecordHTTPStatus(int)              {}
