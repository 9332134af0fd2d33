package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hitoshi/safeai/internal/model"
)

// sqliteTimeLayout はlast_loginの保存形式。
// 固定幅のUTC文字列にすることで、MAX()の文字列比較が時刻順と一致する。
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteUserRepo はSQLiteを使用したユーザーリポジトリ。
type SQLiteUserRepo struct {
	db *sql.DB
}

// NewSQLiteUserRepo はSQLiteUserRepoを生成する。
func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

const sqliteUpsertUserSQL = `INSERT INTO users (name, email, picture, provider, last_login)
	 VALUES (?, ?, ?, ?, ?)
	 ON CONFLICT (email) DO UPDATE SET
		name = excluded.name,
		picture = excluded.picture,
		provider = excluded.provider,
		last_login = MAX(users.last_login, excluded.last_login)
	 RETURNING id, last_login`

// Upsert はemailをキーにユーザーを作成または更新する。
func (r *SQLiteUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	saved := *user
	var lastLogin sqliteTime
	err := r.db.QueryRowContext(ctx, sqliteUpsertUserSQL,
		user.Name, user.Email, user.Picture, user.Provider, formatSQLiteTime(user.LastLogin),
	).Scan(&saved.ID, &lastLogin)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user%s: %w", sqliteCode(err), err)
	}
	saved.LastLogin = time.Time(lastLogin)
	return &saved, nil
}

// FindByEmail はemailでユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var lastLogin sqliteTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, picture, provider, last_login FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Picture, &user.Provider, &lastLogin)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	user.LastLogin = time.Time(lastLogin)
	return user, nil
}

// CountByEmail はemailに一致するレコード数を返す。
func (r *SQLiteUserRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, email,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users by email: %w", err)
	}
	return n, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// sqliteTime はTIMESTAMP列をtime.Timeに読み込む。
// 宣言型によってドライバが文字列のまま返す場合があるため両方を受け付ける。
type sqliteTime time.Time

func (t *sqliteTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = sqliteTime(v.UTC())
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = sqliteTime(time.Time{})
		return nil
	default:
		return fmt.Errorf("unsupported last_login type %T", src)
	}
}

func (t *sqliteTime) parse(s string) error {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = sqliteTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unparsable last_login %q", s)
}

// sqliteCode はsqlite3エラーの拡張コードをエラーメッセージ用に整形する。
func sqliteCode(err error) string {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return fmt.Sprintf(" (sqlite %s)", sqErr.ExtendedCode)
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*SQLiteUserRepo)(nil)
