package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ドライバ名。database/sqlとgolang-migrateの双方で同じ名前を使う。
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// sqliteBusyTimeoutMS はSQLiteで書き込みロック待ちを許容する時間（ミリ秒）。
const sqliteBusyTimeoutMS = 5000

// DriverName はDATABASE_URLのスキームからドライバ名を判定する。
// postgres:// と postgresql:// はPostgreSQL、sqlite3:// はSQLiteとして扱う。
func DriverName(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid database URL: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme: %q", u.Scheme)
	}
}

// Open はDATABASE_URLに応じたデータベース接続を開く。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sql.DB, error) {
	driver, err := DriverName(databaseURL)
	if err != nil {
		return nil, err
	}

	dsn := databaseURL
	if driver == DriverSQLite {
		dsn = sqliteDSN(databaseURL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLiteは単一ライタのため接続を1本に絞り、書き込みを直列化する。
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// sqliteDSN はsqlite3://path形式のURLをgo-sqlite3のDSNに変換する。
func sqliteDSN(databaseURL string) string {
	dsn := strings.TrimPrefix(databaseURL, "sqlite3://")
	if strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", dsn, sep, sqliteBusyTimeoutMS)
}
