// Package user はシステム利用者（管理者・受付担当など）の識別レコードを扱う。
//
// 利用者は2つの射影で表現する。User は外部へ返す公開ビューで、パスワード情報を
// 一切持たない。Credentials はログイン照合のための内部ビューで、ハッシュを含む。
package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/shiftkeeper/internal/validation"
)

var (
	// ErrNotFound は利用者が存在しない場合のエラー。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUserName はユーザー名が既に使われている場合のエラー。
	ErrDuplicateUserName = errors.New("user with this userName already exists")
	// ErrDuplicateEmail はメールアドレスが既に使われている場合のエラー。
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// User は利用者の公開ビュー。
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials はログイン照合用の内部ビュー。JSONにはハッシュを出さない。
type Credentials struct {
	User
	PasswordHash string    `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Public は秘密情報を除いた公開ビューを返す。
func (c *Credentials) Public() *User {
	u := c.User
	return &u
}

// PasswordHasher はパスワードを一方向ハッシュに変換する。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// NewParams は利用者作成時の入力。
type NewParams struct {
	Name     string `json:"name"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// New は入力を検証し、パスワードをハッシュ化した新しい利用者を組み立てる。
// ハッシュ化はここで1回だけ行う。
func New(p NewParams, hasher PasswordHasher, now time.Time) (*Credentials, error) {
	name := strings.TrimSpace(p.Name)
	userName := strings.TrimSpace(p.UserName)
	email := normalizeEmail(p.Email)

	v := validation.New()
	v.Require("name", name, "Please add a name")
	v.Require("userName", userName, "Please add a username")
	v.Require("email", email, "Please add an email")
	v.Require("password", p.Password, "Please add a password")
	if email != "" && !validEmail(email) {
		v.Add("email", "Please add a valid email")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(p.Password)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Credentials{
		User: User{
			ID:        uuid.NewString(),
			Name:      name,
			UserName:  userName,
			Email:     email,
			CreatedAt: now,
		},
		PasswordHash: hash,
		UpdatedAt:    now,
	}, nil
}

// UpdateParams は利用者更新時の入力。nil のフィールドは変更しない。
type UpdateParams struct {
	Name     *string `json:"name"`
	UserName *string `json:"userName"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Apply は更新内容を反映する。パスワードが指定された場合のみ再ハッシュする。
func (c *Credentials) Apply(p UpdateParams, hasher PasswordHasher, now time.Time) error {
	v := validation.New()
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
		v.Require("name", c.Name, "Please add a name")
	}
	if p.UserName != nil {
		c.UserName = strings.TrimSpace(*p.UserName)
		v.Require("userName", c.UserName, "Please add a username")
	}
	if p.Email != nil {
		c.Email = normalizeEmail(*p.Email)
		v.Require("email", c.Email, "Please add an email")
		if c.Email != "" && !validEmail(c.Email) {
			v.Add("email", "Please add a valid email")
		}
	}
	if p.Password != nil {
		v.Require("password", *p.Password, "Please add a password")
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	if p.Password != nil {
		hash, err := hasher.Hash(*p.Password)
		if err != nil {
			return err
		}
		c.PasswordHash = hash
	}
	c.UpdatedAt = now.UTC()
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
