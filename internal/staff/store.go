package staff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/shiftkeeper/internal/database"
)

// Repository はスタッフの永続化を抽象化する。
type Repository interface {
	Create(ctx context.Context, s *Staff) error
	FindByID(ctx context.Context, id string) (*Staff, error)
	List(ctx context.Context) ([]*Staff, error)
	Update(ctx context.Context, s *Staff) error
	Delete(ctx context.Context, id string) error
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

const columns = `id, name, staff_code, role, shift, created_at`

func (st *Store) Create(ctx context.Context, s *Staff) error {
	_, err := st.db.ExecContext(ctx,
		`INSERT INTO staff (`+columns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Code, s.Role, s.Shift, database.NewTime(s.CreatedAt),
	)
	return translateWriteError(err)
}

func (st *Store) FindByID(ctx context.Context, id string) (*Staff, error) {
	row := st.db.QueryRowContext(ctx, `SELECT `+columns+` FROM staff WHERE id = ?`, id)
	s, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("スタッフの取得に失敗: %w", err)
	}
	return s, nil
}

// List はスタッフを名前順に返す。
func (st *Store) List(ctx context.Context) ([]*Staff, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT `+columns+` FROM staff ORDER BY name, staff_code`)
	if err != nil {
		return nil, fmt.Errorf("スタッフ一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	list := make([]*Staff, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("スタッフの読み取りに失敗: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (st *Store) Update(ctx context.Context, s *Staff) error {
	res, err := st.db.ExecContext(ctx,
		`UPDATE staff SET name = ?, staff_code = ?, role = ?, shift = ? WHERE id = ?`,
		s.Name, s.Code, s.Role, s.Shift, s.ID,
	)
	if err != nil {
		return translateWriteError(err)
	}
	return requireAffected(res)
}

// Delete はスタッフを削除する。勤怠記録は外部キーで連鎖削除される。
func (st *Store) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM staff WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("スタッフの削除に失敗: %w", err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*Staff, error) {
	var (
		s         Staff
		createdAt database.Time
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Role, &s.Shift, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt = createdAt.Time
	return &s, nil
}

func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrDuplicateCode
	default:
		return fmt.Errorf("スタッフの保存に失敗: %w", err)
	}
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
