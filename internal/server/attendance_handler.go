package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/attendance"
	"github.com/nao1215/shiftkeeper/pkg/middleware"
)

// bulkAttendanceRequest は一括記録リクエストのJSON構造。
type bulkAttendanceRequest struct {
	// AttendanceRecords は記録する勤怠の一覧。
	AttendanceRecords []attendance.MarkParams `json:"attendanceRecords"`
}

// handleListAttendance は条件に一致する勤怠記録を返すハンドラを返す。
// 一覧に加えてシフト別のグループと区分ごとの集計を返す。
func (s *Server) handleListAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := attendance.Filter{
			Shift:   c.Query("shift"),
			StaffID: c.Query("staffId"),
		}
		if v := c.Query("date"); v != "" {
			date, err := attendance.ParseDate(v)
			if err != nil {
				respondStoreError(c, err)
				return
			}
			filter.Date = date
		}
		if v := c.Query("status"); v != "" {
			status, err := attendance.ParseStatus(v)
			if err != nil {
				respondStoreError(c, err)
				return
			}
			filter.Status = status
		}

		records, err := s.attendance.List(c.Request.Context(), filter)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"count":   len(records),
			"data":    records,
			"grouped": attendance.GroupByShift(records),
			"summary": attendance.Summarize(records),
		})
	}
}

// handleMarkAttendance は勤怠を1件記録するハンドラを返す。
// 同じスタッフと日付の記録があれば更新して200、なければ作成して201を返す。
func (s *Server) handleMarkAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req attendance.MarkParams
		if !bindJSON(c, &req) {
			return
		}
		mark, err := req.Validate()
		if err != nil {
			respondStoreError(c, err)
			return
		}

		record, created, err := s.attendance.Upsert(c.Request.Context(), mark, markedBy(c), s.now())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		respond(c, status, record)
	}
}

// handleMarkBulkAttendance は複数の勤怠を1つのトランザクションで記録するハンドラを返す。
func (s *Server) handleMarkBulkAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkAttendanceRequest
		if !bindJSON(c, &req) {
			return
		}
		if len(req.AttendanceRecords) == 0 {
			respondError(c, http.StatusBadRequest, "Please provide attendance records")
			return
		}

		marks := make([]attendance.Mark, 0, len(req.AttendanceRecords))
		for i, p := range req.AttendanceRecords {
			m, err := p.Validate()
			if err != nil {
				respondError(c, http.StatusBadRequest, fmt.Sprintf("Record %d: %v", i, err))
				return
			}
			marks = append(marks, m)
		}

		records, err := s.attendance.UpsertMany(c.Request.Context(), marks, markedBy(c), s.now())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "count": len(records), "data": records})
	}
}

// handleStaffAttendance はスタッフの勤怠履歴と集計を返すハンドラを返す。
// startDate と endDate で期間を絞り込める。
func (s *Server) handleStaffAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		st, err := s.staff.FindByID(ctx, c.Param("staffId"))
		if err != nil {
			respondStoreError(c, err)
			return
		}

		var r attendance.Range
		for _, q := range []struct {
			key string
			dst *string
		}{
			{key: "startDate", dst: &r.Start},
			{key: "endDate", dst: &r.End},
		} {
			v := c.Query(q.key)
			if v == "" {
				continue
			}
			date, err := attendance.ParseDate(v)
			if err != nil {
				respondStoreError(c, err)
				return
			}
			*q.dst = date
		}

		records, err := s.attendance.ListByStaff(ctx, st.ID, r)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"count":      len(records),
			"staff":      st,
			"data":       records,
			"statistics": attendance.Summarize(records),
		})
	}
}

// handleUpdateAttendance は勤怠区分と備考を更新するハンドラを返す。
func (s *Server) handleUpdateAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req attendance.UpdateParams
		if !bindJSON(c, &req) {
			return
		}

		var status *attendance.Status
		if req.Status != nil {
			st, err := attendance.ParseStatus(*req.Status)
			if err != nil {
				respondStoreError(c, err)
				return
			}
			status = &st
		}

		record, err := s.attendance.Update(c.Request.Context(), c.Param("id"), status, req.Remarks, s.now())
		if err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, record)
	}
}

// handleDeleteAttendance は勤怠記録を削除するハンドラを返す。
func (s *Server) handleDeleteAttendance() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondStoreError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{})
	}
}

// markedBy は記録者として残す利用者IDを返す。
func markedBy(c *gin.Context) string {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return ""
}
