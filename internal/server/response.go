package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/shiftkeeper/internal/attendance"
	"github.com/nao1215/shiftkeeper/internal/staff"
	"github.com/nao1215/shiftkeeper/internal/user"
	"github.com/nao1215/shiftkeeper/internal/validation"
)

// respond は成功レスポンス {success:true, data} を返す。
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondList は件数付きの成功レスポンス {success:true, count, data} を返す。
func respondList[T any](c *gin.Context, data []T) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(data), "data": data})
}

// respondError は失敗レスポンス {success:false, error} を返す。
func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// respondStoreError はドメイン層のエラーをHTTPステータスとメッセージに変換して返す。
// 想定外のエラーは詳細をログに残し、クライアントには500だけを返す。
func respondStoreError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, user.ErrNotFound):
		respondError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, staff.ErrNotFound), errors.Is(err, attendance.ErrStaffNotFound):
		respondError(c, http.StatusNotFound, "Staff not found")
	case errors.Is(err, attendance.ErrNotFound):
		respondError(c, http.StatusNotFound, "Attendance record not found")
	case errors.Is(err, user.ErrDuplicateUserName),
		errors.Is(err, user.ErrDuplicateEmail),
		errors.Is(err, staff.ErrDuplicateCode):
		respondError(c, http.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, attendance.ErrInvalidStatus), errors.Is(err, attendance.ErrInvalidDate):
		respondError(c, http.StatusBadRequest, capitalize(err.Error()))
	default:
		slog.Error("リクエストの処理に失敗しました",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		respondError(c, http.StatusInternalServerError, "Internal Server Error")
	}
}

// capitalize は先頭の1文字を大文字にする。メッセージはASCIIで始まる前提。
func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// bindJSON はリクエストボディをJSONとして読み込む。失敗した場合は400を返して false を返す。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
