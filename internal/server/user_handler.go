package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/user"
)

// handleListUsers は利用者一覧を返すハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.users.List(c.Request.Context())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		respondList(c, users)
	}
}

// handleCreateUser は利用者を登録するハンドラを返す。パスワードはここで1回だけハッシュ化する。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.NewParams
		if !bindJSON(c, &req) {
			return
		}

		cred, err := user.New(req, s.hasher, s.now())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if err := s.users.Create(c.Request.Context(), cred); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusCreated, cred.Public())
	}
}

// handleGetUser は利用者を1件返すハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.users.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, u)
	}
}

// handleUpdateUser は利用者を更新するハンドラを返す。
// パスワードが指定された場合だけ再ハッシュする。
func (s *Server) handleUpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.UpdateParams
		if !bindJSON(c, &req) {
			return
		}

		ctx := c.Request.Context()
		cred, err := s.users.FindCredentialsByID(ctx, c.Param("id"))
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if err := cred.Apply(req, s.hasher, s.now()); err != nil {
			respondStoreError(c, err)
			return
		}
		if err := s.users.Update(ctx, cred); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, cred.Public())
	}
}

// handleDeleteUser は利用者を削除するハンドラを返す。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{})
	}
}
