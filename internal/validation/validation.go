// Package validation はレコード生成・更新時の入力検証エラーを表現する。
package validation

import (
	"sort"
	"strings"
)

// Error はフィールド単位の検証エラーをまとめたエラー。
// 値が空でない場合のみ error として返すこと。
type Error struct {
	// Fields はフィールド名からエラーメッセージへの対応。
	Fields map[string]string
}

// New は空の検証エラーを生成する。
func New() *Error {
	return &Error{Fields: make(map[string]string)}
}

// Add はフィールドのエラーを追加する。同じフィールドへの2回目以降の追加は無視する。
func (e *Error) Add(field, message string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = message
}

// Require は値が空白のみの場合にエラーを追加する。
func (e *Error) Require(field, value, message string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, message)
	}
}

// Has はいずれかのフィールドにエラーがあるかを返す。
func (e *Error) Has() bool {
	return len(e.Fields) > 0
}

// OrNil はエラーがあれば自身を、なければnilを返す。
func (e *Error) OrNil() error {
	if !e.Has() {
		return nil
	}
	return e
}

// Error はフィールド名順に並べたメッセージを ", " で連結して返す。
func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, ", ")
}
