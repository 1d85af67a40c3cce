// Package attendance はスタッフの日次勤怠記録を扱う。
//
// 勤怠記録はスタッフと日付の組で一意になる。同じ組に対する再記録は既存の記録を更新する。
package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/shiftkeeper/internal/validation"
)

var (
	// ErrNotFound は勤怠記録が存在しない場合のエラー。
	ErrNotFound = errors.New("attendance record not found")
	// ErrStaffNotFound は記録対象のスタッフが存在しない場合のエラー。
	ErrStaffNotFound = errors.New("staff not found")
	// ErrInvalidStatus は勤怠区分が不正な場合のエラー。
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrInvalidDate は日付の形式が不正な場合のエラー。
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

// Status は勤怠区分。
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLeave   Status = "Leave"
	StatusHalfDay Status = "Half-Day"
)

// Statuses は有効な勤怠区分の一覧。
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLeave, StatusHalfDay}

// ParseStatus は文字列を勤怠区分に変換する。大文字小文字は区別する。
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// DateLayout は勤怠記録の日付形式。
const DateLayout = "2006-01-02"

// ParseDate は日付を YYYY-MM-DD に正規化する。RFC3339形式の日時も受け付け、UTCの日付部分を使う。
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Record は勤怠記録1件。スタッフの職員番号と氏名を結合して保持する。
type Record struct {
	ID        string    `json:"_id"`
	StaffID   string    `json:"staff"`
	StaffCode string    `json:"staffId"`
	StaffName string    `json:"staffName"`
	Date      string    `json:"date"`
	Status    Status    `json:"status"`
	Shift     string    `json:"shift"`
	Remarks   string    `json:"remarks"`
	MarkedBy  string    `json:"markedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarkParams は勤怠記録の入力。staff はスタッフの _id。
type MarkParams struct {
	Staff   string `json:"staff"`
	Date    string `json:"date"`
	Status  string `json:"status"`
	Shift   string `json:"shift"`
	Remarks string `json:"remarks"`
}

// Mark は検証済みの勤怠記録の入力。Shift が空の場合はスタッフの既定シフトを使う。
type Mark struct {
	StaffID string
	Date    string
	Status  Status
	Shift   string
	Remarks string
}

// Validate は入力を検証して Mark に変換する。
func (p MarkParams) Validate() (Mark, error) {
	v := validation.New()
	v.Require("staff", p.Staff, "Please add a staff member")
	v.Require("date", p.Date, "Please add a date")
	v.Require("status", p.Status, "Please add an attendance status")

	m := Mark{
		StaffID: strings.TrimSpace(p.Staff),
		Shift:   strings.TrimSpace(p.Shift),
		Remarks: strings.TrimSpace(p.Remarks),
	}
	if strings.TrimSpace(p.Date) != "" {
		date, err := ParseDate(p.Date)
		if err != nil {
			v.Add("date", "Date must be in YYYY-MM-DD format")
		}
		m.Date = date
	}
	if p.Status != "" {
		status, err := ParseStatus(strings.TrimSpace(p.Status))
		if err != nil {
			v.Add("status", "Status must be one of Present, Absent, Leave, Half-Day")
		}
		m.Status = status
	}
	if err := v.OrNil(); err != nil {
		return Mark{}, err
	}
	return m, nil
}

// UpdateParams は勤怠記録の更新内容。nil のフィールドは変更しない。
type UpdateParams struct {
	Status  *string `json:"status"`
	Remarks *string `json:"remarks"`
}

// Filter は勤怠一覧の絞り込み条件。空のフィールドは条件にしない。
type Filter struct {
	Date    string
	Shift   string
	StaffID string
	Status  Status
}

// Range はスタッフ別履歴の期間。両端を含む。空の端は無制限。
type Range struct {
	Start string
	End   string
}
