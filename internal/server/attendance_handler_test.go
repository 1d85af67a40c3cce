package server

import (
	"net/http"
	"testing"
)

// attendanceFixture は勤怠APIのテストで使うサーバーとスタッフ。
type attendanceFixture struct {
	s       *Server
	token   string
	adminID string
	nurse   string
	doctor  string
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()

	s := setupTestServer(t)
	admin, token := createTestUser(t, s, "admin", "password123")
	return &attendanceFixture{
		s:       s,
		token:   token,
		adminID: admin.ID,
		nurse:   createStaffViaAPI(t, s, token, "Alice", "N-001", "Nurse", "Morning"),
		doctor:  createStaffViaAPI(t, s, token, "Bob", "D-001", "Doctor", "Night"),
	}
}

func (f *attendanceFixture) mark(t *testing.T, staffID, date, status string) map[string]any {
	t.Helper()

	w := doRequest(f.s, http.MethodPost, "/api/attendance", f.token, map[string]string{
		"staff": staffID, "date": date, "status": status,
	})
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("勤怠の記録に失敗: %d %s", w.Code, w.Body.String())
	}
	return dataOf(t, parseJSON(t, w))
}

// TestMarkAttendance は勤怠の記録を検証する。
func TestMarkAttendance(t *testing.T) {
	t.Parallel()

	t.Run("初回は201で記録し同じ日付の再記録は200で更新すること", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		w := doRequest(f.s, http.MethodPost, "/api/attendance", f.token, map[string]string{
			"staff": f.nurse, "date": "2026-03-01", "status": "Present",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
		}
		first := dataOf(t, parseJSON(t, w))
		if first["shift"] != "Morning" || first["staffId"] != "N-001" || first["markedBy"] != f.adminID {
			t.Errorf("data = %v", first)
		}

		w = doRequest(f.s, http.MethodPost, "/api/attendance", f.token, map[string]string{
			"staff": f.nurse, "date": "2026-03-01", "status": "Absent", "remarks": "sick",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		second := dataOf(t, parseJSON(t, w))
		if second["_id"] != first["_id"] || second["status"] != "Absent" || second["remarks"] != "sick" {
			t.Errorf("data = %v", second)
		}
	})

	t.Run("存在しないスタッフは404になること", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		w := doRequest(f.s, http.MethodPost, "/api/attendance", f.token, map[string]string{
			"staff": "507f1f77bcf86cd799439011", "date": "2026-03-01", "status": "Present",
		})
		assertError(t, w, http.StatusNotFound, "Staff not found")
	})

	t.Run("不正な区分や日付は400になること", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		for _, body := range []map[string]string{
			{"staff": f.nurse, "date": "2026-03-01", "status": "Late"},
			{"staff": f.nurse, "date": "03/01/2026", "status": "Present"},
			{"date": "2026-03-01", "status": "Present"},
		} {
			w := doRequest(f.s, http.MethodPost, "/api/attendance", f.token, body)
			assertError(t, w, http.StatusBadRequest, "")
		}
	})
}

// TestMarkBulkAttendance は一括記録を検証する。
func TestMarkBulkAttendance(t *testing.T) {
	t.Parallel()

	t.Run("全件を記録して201を返すこと", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		w := doRequest(f.s, http.MethodPost, "/api/attendance/bulk", f.token, map[string]any{
			"attendanceRecords": []map[string]string{
				{"staff": f.nurse, "date": "2026-03-01", "status": "Present"},
				{"staff": f.doctor, "date": "2026-03-01", "status": "Leave"},
			},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
		}
		if body := parseJSON(t, w); body["count"] != float64(2) {
			t.Errorf("count = %v, want 2", body["count"])
		}
	})

	t.Run("空の一覧は400になること", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		for _, body := range []any{
			map[string]any{"attendanceRecords": []any{}},
			map[string]any{},
		} {
			w := doRequest(f.s, http.MethodPost, "/api/attendance/bulk", f.token, body)
			assertError(t, w, http.StatusBadRequest, "Please provide attendance records")
		}
	})

	t.Run("1件でも存在しないスタッフがあれば何も記録しないこと", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		w := doRequest(f.s, http.MethodPost, "/api/attendance/bulk", f.token, map[string]any{
			"attendanceRecords": []map[string]string{
				{"staff": f.nurse, "date": "2026-03-01", "status": "Present"},
				{"staff": "missing", "date": "2026-03-01", "status": "Present"},
			},
		})
		assertError(t, w, http.StatusNotFound, "Staff not found")

		list := parseJSON(t, doRequest(f.s, http.MethodGet, "/api/attendance", f.token, nil))
		if list["count"] != float64(0) {
			t.Errorf("count = %v, want 0", list["count"])
		}
	})
}

// TestListAttendance は勤怠一覧と集計を検証する。
func TestListAttendance(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t)
	f.mark(t, f.nurse, "2026-03-01", "Present")
	f.mark(t, f.nurse, "2026-03-02", "Half-Day")
	f.mark(t, f.doctor, "2026-03-01", "Absent")
	f.mark(t, f.doctor, "2026-03-02", "Present")

	t.Run("シフト別のグループと集計を返すこと", func(t *testing.T) {
		t.Parallel()

		body := parseJSON(t, doRequest(f.s, http.MethodGet, "/api/attendance?date=2026-03-01", f.token, nil))
		if body["count"] != float64(2) {
			t.Fatalf("count = %v, want 2", body["count"])
		}
		grouped, ok := body["grouped"].(map[string]any)
		if !ok || len(grouped) != 2 {
			t.Errorf("grouped = %v", body["grouped"])
		}
		summary, ok := body["summary"].(map[string]any)
		if !ok {
			t.Fatalf("summary = %v", body["summary"])
		}
		if summary["present"] != float64(1) || summary["absent"] != float64(1) || summary["attendanceRate"] != float64(50) {
			t.Errorf("summary = %v", summary)
		}
	})

	t.Run("職員番号と区分で絞り込めること", func(t *testing.T) {
		t.Parallel()

		body := parseJSON(t, doRequest(f.s, http.MethodGet, "/api/attendance?staffId=D-001&status=Present", f.token, nil))
		if body["count"] != float64(1) {
			t.Errorf("count = %v, want 1", body["count"])
		}
	})

	t.Run("不正な区分での絞り込みは400になること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(f.s, http.MethodGet, "/api/attendance?status=Sleeping", f.token, nil)
		assertError(t, w, http.StatusBadRequest, "")
	})

	t.Run("スタッフ別の履歴と統計を返すこと", func(t *testing.T) {
		t.Parallel()

		w := doRequest(f.s, http.MethodGet, "/api/attendance/staff/"+f.nurse+"?startDate=2026-03-01&endDate=2026-03-31", f.token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		body := parseJSON(t, w)
		if body["count"] != float64(2) {
			t.Errorf("count = %v, want 2", body["count"])
		}
		stats, ok := body["statistics"].(map[string]any)
		if !ok {
			t.Fatalf("statistics = %v", body["statistics"])
		}
		if stats["total"] != float64(2) || stats["halfDay"] != float64(1) || stats["attendanceRate"] != float64(75) {
			t.Errorf("statistics = %v", stats)
		}
	})

	t.Run("存在しないスタッフの履歴は404になること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(f.s, http.MethodGet, "/api/attendance/staff/missing", f.token, nil)
		assertError(t, w, http.StatusNotFound, "Staff not found")
	})
}

// TestUpdateDeleteAttendance は勤怠記録の更新と削除を検証する。
func TestUpdateDeleteAttendance(t *testing.T) {
	t.Parallel()

	t.Run("区分と備考を更新できること", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		id := f.mark(t, f.nurse, "2026-03-01", "Present")["_id"].(string)

		w := doRequest(f.s, http.MethodPut, "/api/attendance/"+id, f.token, map[string]string{
			"status": "Leave", "remarks": "vacation",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		data := dataOf(t, parseJSON(t, w))
		if data["status"] != "Leave" || data["remarks"] != "vacation" {
			t.Errorf("data = %v", data)
		}

		w = doRequest(f.s, http.MethodPut, "/api/attendance/"+id, f.token, map[string]string{"status": "Unknown"})
		assertError(t, w, http.StatusBadRequest, "")
	})

	t.Run("削除後は404になること", func(t *testing.T) {
		t.Parallel()

		f := newAttendanceFixture(t)
		id := f.mark(t, f.nurse, "2026-03-01", "Present")["_id"].(string)

		if w := doRequest(f.s, http.MethodDelete, "/api/attendance/"+id, f.token, nil); w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		assertError(t, doRequest(f.s, http.MethodDelete, "/api/attendance/"+id, f.token, nil), http.StatusNotFound, "Attendance record not found")
		w := doRequest(f.s, http.MethodPut, "/api/attendance/"+id, f.token, map[string]string{"remarks": "x"})
		assertError(t, w, http.StatusNotFound, "Attendance record not found")
	})
}
