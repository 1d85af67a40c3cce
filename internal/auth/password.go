package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword は空のパスワードをハッシュ化しようとした場合のエラー。
var ErrEmptyPassword = errors.New("password must not be empty")

// dummyPassword は存在しない利用者の照合時に比較対象とするパスワード。
const dummyPassword = "shiftkeeper-dummy-password"

// Hasher はパスワードのbcryptハッシュ化と照合を行う。
// ハッシュ化はパスワード設定時に1回だけ呼ぶこと。読み取り時に再ハッシュしてはいけない。
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher はコストを指定して Hasher を生成する。
// 0以下は bcrypt.DefaultCost、範囲外の値はbcryptの上下限に丸める。
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost は実際に使われるbcryptコストを返す。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash はソルト付きの一方向ハッシュを返す。同じ入力でも呼び出しごとに異なる値になる。
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return string(hash), nil
}

// Verify は平文がハッシュと一致するかを定数時間比較で判定する。
// ハッシュが空や不正な形式の場合は false を返す。
func (h *Hasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyUnknown は存在しない利用者に対してダミーのハッシュで照合を行い、常に false を返す。
// 利用者の有無で応答時間に差が出ないようにする。
func (h *Hasher) VerifyUnknown(plaintext string) bool {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
	return false
}
