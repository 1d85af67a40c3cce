// Package staff は勤怠管理の対象となる医療スタッフを扱う。
package staff

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/shiftkeeper/internal/validation"
)

var (
	// ErrNotFound はスタッフが存在しない場合のエラー。
	ErrNotFound = errors.New("staff not found")
	// ErrDuplicateCode はスタッフIDが既に使われている場合のエラー。
	ErrDuplicateCode = errors.New("staff with this staffId already exists")
)

// Staff はスタッフ1名分のレコード。
// ID は内部識別子、Code は病院側で割り当てる職員番号（JSONでは staffId）。
type Staff struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Code      string    `json:"staffId"`
	Role      string    `json:"role"`
	Shift     string    `json:"shift"`
	CreatedAt time.Time `json:"createdAt"`
}

// Params はスタッフ作成・更新時の入力。
type Params struct {
	Name  *string `json:"name"`
	Code  *string `json:"staffId"`
	Role  *string `json:"role"`
	Shift *string `json:"shift"`
}

// New は入力を検証して新しいスタッフを組み立てる。
func New(p Params, now time.Time) (*Staff, error) {
	s := &Staff{
		ID:        uuid.NewString(),
		Name:      trimmed(p.Name),
		Code:      trimmed(p.Code),
		Role:      trimmed(p.Role),
		Shift:     trimmed(p.Shift),
		CreatedAt: now.UTC(),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply は指定されたフィールドだけを更新する。
func (s *Staff) Apply(p Params) error {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Code != nil {
		s.Code = strings.TrimSpace(*p.Code)
	}
	if p.Role != nil {
		s.Role = strings.TrimSpace(*p.Role)
	}
	if p.Shift != nil {
		s.Shift = strings.TrimSpace(*p.Shift)
	}
	return s.validate()
}

func (s *Staff) validate() error {
	v := validation.New()
	v.Require("name", s.Name, "Please add a name")
	v.Require("staffId", s.Code, "Please add a staff ID")
	v.Require("role", s.Role, "Please add a role")
	v.Require("shift", s.Shift, "Please add shift details")
	return v.OrNil()
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
