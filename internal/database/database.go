// Package database はshiftkeeperの永続化層への接続を提供する。
//
// DATABASE_URL が postgres:// で始まる場合は pgx 経由でPostgreSQLに接続し、
// それ以外は modernc.org/sqlite による組み込みSQLiteを使う。
// リポジトリは ? プレースホルダでSQLを書き、方言の差異はこのパッケージが吸収する。
package database

import (
	"context"
	"database/sql"
	"embed"
	"strconv"
	"strings"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect は接続先データベースの種類。
type Dialect string

const (
	// SQLite は組み込みSQLite。
	SQLite Dialect = "sqlite"
	// Postgres はPostgreSQL。
	Postgres Dialect = "postgres"
)

// DBTX は *sql.DB と *sql.Tx の共通部分。リポジトリはこれだけに依存する。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB は方言に応じてプレースホルダを書き換える *sql.DB のラッパー。
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open は url に応じてSQLiteまたはPostgreSQLを開き、マイグレーションを適用する。
func Open(ctx context.Context, url string) (*DB, error) {
	if isPostgresURL(url) {
		return OpenPostgres(ctx, url)
	}
	return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Dialect は接続先の方言を返す。
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// ExecContext はプレースホルダを書き換えてから実行する。
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.DB.ExecContext(ctx, rebind(d.dialect, query), args...)
}

// QueryContext はプレースホルダを書き換えてから実行する。
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, rebind(d.dialect, query), args...)
}

// QueryRowContext はプレースホルダを書き換えてから実行する。
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.DB.QueryRowContext(ctx, rebind(d.dialect, query), args...)
}

// WithTx はトランザクションを開始して fn を実行し、成功時にコミット、
// エラーまたはpanic時にロールバックする。panicは再送出する。
// SQLiteは接続が1本なので、fn 内では必ず tx を使うこと。
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) (err error) {
	sqlTx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()

	return fn(ctx, &tx{Tx: sqlTx, dialect: d.dialect})
}

type tx struct {
	*sql.Tx
	dialect Dialect
}

func (t *tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.Tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

func (t *tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.Tx.QueryContext(ctx, rebind(t.dialect, query), args...)
}

func (t *tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.Tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

// rebind は ? プレースホルダをPostgreSQLの $n 形式に置き換える。
// 文字列リテラル内の ? は置き換えない。
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
