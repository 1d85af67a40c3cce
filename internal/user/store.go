package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/shiftkeeper/internal/database"
)

// Repository は利用者の永続化を抽象化する。
// 一意性（userName・email）はストア側で保証する。
type Repository interface {
	Create(ctx context.Context, c *Credentials) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindCredentialsByID(ctx context.Context, id string) (*Credentials, error)
	FindCredentialsByUserName(ctx context.Context, userName string) (*Credentials, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, c *Credentials) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Store はSQLデータベース上の Repository 実装。
type Store struct {
	db database.DBTX
}

var _ Repository = (*Store)(nil)

// NewStore は Store を生成する。
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

const publicColumns = `id, name, user_name, email, created_at`

// Create は利用者を登録する。
func (s *Store) Create(ctx context.Context, c *Credentials) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, user_name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.UserName, c.Email, c.PasswordHash,
		database.NewTime(c.CreatedAt), database.NewTime(c.UpdatedAt),
	)
	if err != nil {
		return translateWriteError(err)
	}
	return nil
}

// FindByID は公開ビューで利用者を取得する。パスワードハッシュは読み出さない。
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+publicColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateReadError(err)
	}
	return u, nil
}

// FindCredentialsByID は内部ビューで利用者を取得する。
func (s *Store) FindCredentialsByID(ctx context.Context, id string) (*Credentials, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+publicColumns+`, password_hash, updated_at FROM users WHERE id = ?`, id)
	c, err := scanCredentials(row)
	if err != nil {
		return nil, translateReadError(err)
	}
	return c, nil
}

// FindCredentialsByUserName はログイン照合のために内部ビューで利用者を取得する。
func (s *Store) FindCredentialsByUserName(ctx context.Context, userName string) (*Credentials, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+publicColumns+`, password_hash, updated_at FROM users WHERE user_name = ?`, userName)
	c, err := scanCredentials(row)
	if err != nil {
		return nil, translateReadError(err)
	}
	return c, nil
}

// List は全利用者を登録順に返す。
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publicColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("利用者一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("利用者の読み取りに失敗: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update は利用者を更新する。
func (s *Store) Update(ctx context.Context, c *Credentials) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, user_name = ?, email = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.UserName, c.Email, c.PasswordHash, database.NewTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return translateWriteError(err)
	}
	return requireAffected(res)
}

// Delete は利用者を削除する。
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("利用者の削除に失敗: %w", err)
	}
	return requireAffected(res)
}

// Count は登録済み利用者数を返す。
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("利用者数の取得に失敗: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var (
		u         User
		createdAt database.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.UserName, &u.Email, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = createdAt.Time
	return &u, nil
}

func scanCredentials(row scanner) (*Credentials, error) {
	var (
		c                    Credentials
		createdAt, updatedAt database.Time
	)
	if err := row.Scan(&c.ID, &c.Name, &c.UserName, &c.Email, &createdAt, &c.PasswordHash, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

func translateReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("利用者の取得に失敗: %w", err)
}

// translateWriteError は一意制約違反をどのフィールドによるものかに変換する。
func translateWriteError(err error) error {
	if !database.IsUniqueViolation(err) {
		return fmt.Errorf("利用者の保存に失敗: %w", err)
	}
	if strings.Contains(err.Error(), "email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUserName
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
