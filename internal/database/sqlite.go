package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nao1215/shiftkeeper/pkg/migration"
	_ "modernc.org/sqlite"
)

// OpenSQLite はSQLiteデータベースを開き、組み込みのマイグレーションを適用する。
// path が空の場合はインメモリDBを使う。
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗: %w", err)
	}
	// SQLiteは書き込みが直列化されるため接続は1本に固定する。
	// インメモリDBは接続ごとに別物になる点でも1本である必要がある。
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s に失敗: %w", pragma, err)
		}
	}

	if _, err := migration.Run(ctx, sqlDB, migrations, "migrations/sqlite"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("マイグレーションの実行に失敗: %w", err)
	}

	return &DB{DB: sqlDB, dialect: SQLite}, nil
}
