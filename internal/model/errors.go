// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, provider, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因（ログ用、クライアントには返さない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is はエラーコードが一致する場合にtrueを返す。
// errors.Is(err, model.ErrTokenExpired) のように種別判定に使う。
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable は同一リクエストの再送で成功しうるかを返す。
func (e *APIError) Retryable() bool {
	return e.Category == CategoryProvider || e.Category == CategorySystem
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryProvider   = "provider"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidProfile        = "INVALID_PROFILE"
	ErrCodeTokenMalformed        = "TOKEN_MALFORMED"
	ErrCodeTokenInvalidSignature = "TOKEN_INVALID_SIGNATURE"
	ErrCodeTokenAudienceMismatch = "TOKEN_AUDIENCE_MISMATCH"
	ErrCodeTokenExpired          = "TOKEN_EXPIRED"
	ErrCodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	ErrCodeStoreUnavailable      = "STORE_UNAVAILABLE"
)

// errors.Is 判定用の番兵。コードのみ比較される。
var (
	ErrInvalidProfile        = &APIError{Code: ErrCodeInvalidProfile}
	ErrTokenMalformed        = &APIError{Code: ErrCodeTokenMalformed}
	ErrTokenInvalidSignature = &APIError{Code: ErrCodeTokenInvalidSignature}
	ErrTokenAudienceMismatch = &APIError{Code: ErrCodeTokenAudienceMismatch}
	ErrTokenExpired          = &APIError{Code: ErrCodeTokenExpired}
	ErrProviderUnavailable   = &APIError{Code: ErrCodeProviderUnavailable}
	ErrStoreUnavailable      = &APIError{Code: ErrCodeStoreUnavailable}
)

// NewInvalidProfileError はプロフィール入力不正エラーを生成する。
func NewInvalidProfileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  reason,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewTokenMalformedError はトークン形式不正エラーを生成する。
func NewTokenMalformedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeTokenMalformed,
		Message:  "IDトークンの形式が不正です。",
		Category: CategoryAuth,
		Action:   "再度ログインしてください。",
		Err:      err,
	}
}

// NewTokenInvalidSignatureError は署名または発行者の検証失敗エラーを生成する。
func NewTokenInvalidSignatureError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalidSignature,
		Message:  "IDトークンの署名を検証できません。",
		Category: CategoryAuth,
		Action:   "再度ログインしてください。",
		Err:      err,
	}
}

// NewTokenAudienceMismatchError はaudience不一致エラーを生成する。
func NewTokenAudienceMismatchError(audience []string) *APIError {
	return &APIError{
		Code:     ErrCodeTokenAudienceMismatch,
		Message:  fmt.Sprintf("IDトークンの対象が一致しません: %v", audience),
		Category: CategoryAuth,
		Action:   "再度ログインしてください。",
	}
}

// NewTokenExpiredError は有効期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "IDトークンの有効期限が切れています。",
		Category: CategoryAuth,
		Action:   "再度ログインしてください。",
	}
}

// NewTokenNotYetValidError はnbfが未来を指すトークンのエラーを生成する。
// 有効期間の外にあるトークンとしてTOKEN_EXPIREDに分類する。
func NewTokenNotYetValidError(notBefore time.Time) *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "IDトークンはまだ有効になっていません。",
		Category: CategoryAuth,
		Action:   "再度ログインしてください。",
		Err:      fmt.Errorf("token not valid before %s", notBefore.UTC().Format(time.RFC3339)),
	}
}

// NewProviderUnavailableError は鍵取得先に到達できないエラーを生成する。
func NewProviderUnavailableError(provider string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeProviderUnavailable,
		Message:  fmt.Sprintf("認証プロバイダ %s の公開鍵を取得できません。", provider),
		Category: CategoryProvider,
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewStoreUnavailableError はユーザーストアへの書き込み失敗エラーを生成する。
func NewStoreUnavailableError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "ユーザー情報を保存できませんでした。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}
