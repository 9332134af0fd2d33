// Package model はドメインモデルを定義する。
package model

import "time"

// User は利用者1人分のレコードを表す。emailが自然キー。
type User struct {
	ID        int64
	Name      string
	Email     string
	Picture   string
	Provider  string
	LastLogin time.Time
}

// ProfileInput はクライアントから送られるプロフィール申告。
// Credentialがある場合は検証済みクレームで他の項目が置き換えられる。
type ProfileInput struct {
	Name       string `json:"name" validate:"max=255"`
	Email      string `json:"email" validate:"required,max=320"`
	Picture    string `json:"picture" validate:"max=2048"`
	Provider   string `json:"provider" validate:"required,max=64"`
	Credential string `json:"credential,omitempty"`
}

// Claims は検証済みIDトークンから取り出した正規化済みの属性。
// Providerは検証器が固定で付与する。
type Claims struct {
	Subject  string
	Email    string
	Name     string
	Picture  string
	Provider string
}
