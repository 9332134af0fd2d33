// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/safeai/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Upsert はemailをキーにユーザーを1文で作成または更新する。
	// 既存レコードのidは変わらず、last_loginは後退しない。
	// 保存後のidと実効last_loginを含むレコードを返す。
	Upsert(ctx context.Context, user *model.User) (*model.User, error)

	// FindByEmail はemailでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CountByEmail はemailに一致するレコード数を返す。
	CountByEmail(ctx context.Context, email string) (int, error)
}

// NewUserRepository はドライバ名に応じたUserRepositoryを返す。
func NewUserRepository(db *sql.DB, driver string) (UserRepository, error) {
	switch driver {
	case "postgres":
		return NewPostgresUserRepo(db), nil
	case "sqlite3":
		return NewSQLiteUserRepo(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
