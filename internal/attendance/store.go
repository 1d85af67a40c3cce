package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/shiftkeeper/internal/database"
)

// Store はSQLデータベース上の勤怠記録ストア。
type Store struct {
	db *database.DB
}

// NewStore は Store を生成する。
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const selectRecord = `
SELECT a.id, a.staff_id, s.staff_code, s.name, a.date, a.status, a.shift, a.remarks,
       COALESCE(a.marked_by, ''), a.created_at, a.updated_at
  FROM attendance a
  JOIN staff s ON s.id = a.staff_id`

// Upsert はスタッフと日付の組で勤怠を記録する。既存の記録があれば更新し、created は false になる。
func (st *Store) Upsert(ctx context.Context, m Mark, markedBy string, now time.Time) (*Record, bool, error) {
	id, created, err := upsert(ctx, st.db, m, markedBy, now)
	if err != nil {
		return nil, false, err
	}
	r, err := findByID(ctx, st.db, id)
	if err != nil {
		return nil, false, err
	}
	return r, created, nil
}

// UpsertMany は複数の勤怠を1つのトランザクションで記録する。
// いずれかが失敗した場合は何も記録しない。
func (st *Store) UpsertMany(ctx context.Context, marks []Mark, markedBy string, now time.Time) ([]*Record, error) {
	records := make([]*Record, 0, len(marks))
	err := st.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		for i, m := range marks {
			id, _, err := upsert(ctx, tx, m, markedBy, now)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			r, err := findByID(ctx, tx, id)
			if err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func upsert(ctx context.Context, q database.DBTX, m Mark, markedBy string, now time.Time) (string, bool, error) {
	var defaultShift string
	err := q.QueryRowContext(ctx, `SELECT shift FROM staff WHERE id = ?`, m.StaffID).Scan(&defaultShift)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, ErrStaffNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("スタッフの確認に失敗: %w", err)
	}

	shift := m.Shift
	if shift == "" {
		shift = defaultShift
	}

	newID := uuid.NewString()
	ts := database.NewTime(now)
	var id string
	err = q.QueryRowContext(ctx, `
		INSERT INTO attendance (id, staff_id, date, status, shift, remarks, marked_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (staff_id, date) DO UPDATE SET
			status     = excluded.status,
			shift      = excluded.shift,
			remarks    = excluded.remarks,
			marked_by  = excluded.marked_by,
			updated_at = excluded.updated_at
		RETURNING id`,
		newID, m.StaffID, m.Date, string(m.Status), shift, m.Remarks, nullable(markedBy), ts, ts,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("勤怠の記録に失敗: %w", err)
	}
	return id, id == newID, nil
}

// FindByID は勤怠記録を取得する。
func (st *Store) FindByID(ctx context.Context, id string) (*Record, error) {
	return findByID(ctx, st.db, id)
}

func findByID(ctx context.Context, q database.DBTX, id string) (*Record, error) {
	r, err := scan(q.QueryRowContext(ctx, selectRecord+` WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("勤怠記録の取得に失敗: %w", err)
	}
	return r, nil
}

// List は条件に一致する勤怠記録を新しい日付順に返す。
// StaffID はスタッフの _id と職員番号のどちらにも一致する。
func (st *Store) List(ctx context.Context, f Filter) ([]*Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Date != "" {
		where = append(where, "a.date = ?")
		args = append(args, f.Date)
	}
	if f.Shift != "" {
		where = append(where, "a.shift = ?")
		args = append(args, f.Shift)
	}
	if f.StaffID != "" {
		where = append(where, "(a.staff_id = ? OR s.staff_code = ?)")
		args = append(args, f.StaffID, f.StaffID)
	}
	if f.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, string(f.Status))
	}

	query := selectRecord
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.date DESC, a.shift, s.name"
	return st.query(ctx, query, args...)
}

// ListByStaff はスタッフの勤怠履歴を期間で絞り込んで新しい日付順に返す。
func (st *Store) ListByStaff(ctx context.Context, staffID string, r Range) ([]*Record, error) {
	query := selectRecord + ` WHERE a.staff_id = ?`
	args := []any{staffID}
	if r.Start != "" {
		query += ` AND a.date >= ?`
		args = append(args, r.Start)
	}
	if r.End != "" {
		query += ` AND a.date <= ?`
		args = append(args, r.End)
	}
	query += ` ORDER BY a.date DESC`
	return st.query(ctx, query, args...)
}

// Update は勤怠区分と備考を更新する。
func (st *Store) Update(ctx context.Context, id string, status *Status, remarks *string, now time.Time) (*Record, error) {
	current, err := findByID(ctx, st.db, id)
	if err != nil {
		return nil, err
	}
	if status != nil {
		current.Status = *status
	}
	if remarks != nil {
		current.Remarks = strings.TrimSpace(*remarks)
	}

	res, err := st.db.ExecContext(ctx,
		`UPDATE attendance SET status = ?, remarks = ?, updated_at = ? WHERE id = ?`,
		string(current.Status), current.Remarks, database.NewTime(now), id,
	)
	if err != nil {
		return nil, fmt.Errorf("勤怠記録の更新に失敗: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return findByID(ctx, st.db, id)
}

// Delete は勤怠記録を削除する。
func (st *Store) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("勤怠記録の削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (st *Store) query(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("勤怠記録の検索に失敗: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("勤怠記録の読み取りに失敗: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*Record, error) {
	var (
		r                    Record
		status               string
		createdAt, updatedAt database.Time
	)
	err := row.Scan(&r.ID, &r.StaffID, &r.StaffCode, &r.StaffName, &r.Date, &status,
		&r.Shift, &r.Remarks, &r.MarkedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.CreatedAt = createdAt.Time
	r.UpdatedAt = updatedAt.Time
	return &r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
