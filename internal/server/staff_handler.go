package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/staff"
)

// handleListStaff はスタッフ一覧を氏名順に返すハンドラを返す。
func (s *Server) handleListStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.staff.List(c.Request.Context())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		respondList(c, list)
	}
}

// handleCreateStaff はスタッフを登録するハンドラを返す。
// 職員番号が重複する場合は400を返す。
func (s *Server) handleCreateStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req staff.Params
		if !bindJSON(c, &req) {
			return
		}

		st, err := staff.New(req, s.now())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if err := s.staff.Create(c.Request.Context(), st); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusCreated, st)
	}
}

// handleGetStaff はスタッフを1件返すハンドラを返す。
func (s *Server) handleGetStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.staff.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, st)
	}
}

// handleUpdateStaff はスタッフを更新するハンドラを返す。
func (s *Server) handleUpdateStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req staff.Params
		if !bindJSON(c, &req) {
			return
		}

		ctx := c.Request.Context()
		st, err := s.staff.FindByID(ctx, c.Param("id"))
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if err := st.Apply(req); err != nil {
			respondStoreError(c, err)
			return
		}
		if err := s.staff.Update(ctx, st); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, st)
	}
}

// handleDeleteStaff はスタッフを削除するハンドラを返す。スタッフの勤怠記録も削除される。
func (s *Server) handleDeleteStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.staff.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{})
	}
}
