package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/safeai/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const postgresUpsertUserSQL = `INSERT INTO users (name, email, picture, provider, last_login)
	 VALUES ($1, $2, $3, $4, $5)
	 ON CONFLICT (email) DO UPDATE SET
		name = EXCLUDED.name,
		picture = EXCLUDED.picture,
		provider = EXCLUDED.provider,
		last_login = GREATEST(users.last_login, EXCLUDED.last_login)
	 RETURNING id, last_login`

// Upsert はemailをキーにユーザーを作成または更新する。
// ON CONFLICTで1文に収めるため、同一emailの並行リクエストでも行は1つに収束する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	saved := *user
	err := r.db.QueryRowContext(ctx, postgresUpsertUserSQL,
		user.Name, user.Email, user.Picture, user.Provider, user.LastLogin.UTC(),
	).Scan(&saved.ID, &saved.LastLogin)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user%s: %w", sqlState(err), err)
	}
	return &saved, nil
}

// FindByEmail はemailでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, picture, provider, last_login FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Picture, &user.Provider, &user.LastLogin)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// CountByEmail はemailに一致するレコード数を返す。
func (r *PostgresUserRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = $1`, email,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users by email: %w", err)
	}
	return n, nil
}

// sqlState はpqエラーのSQLSTATEをエラーメッセージ用に整形する。
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Sprintf(" (sqlstate %s)", pqErr.Code)
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
