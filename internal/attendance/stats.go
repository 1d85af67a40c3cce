package attendance

import "math"

// Summary は勤怠区分ごとの件数と出勤率。
type Summary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Leave   int `json:"leave"`
	HalfDay int `json:"halfDay"`
	// AttendanceRate は出勤率（%）。半日勤務は0.5日として数える。小数第2位に丸める。
	AttendanceRate float64 `json:"attendanceRate"`
}

// Summarize は記録を集計する。
func Summarize(records []*Record) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLeave:
			s.Leave++
		case StatusHalfDay:
			s.HalfDay++
		}
	}
	if s.Total > 0 {
		rate := (float64(s.Present) + 0.5*float64(s.HalfDay)) / float64(s.Total) * 100
		s.AttendanceRate = math.Round(rate*100) / 100
	}
	return s
}

// GroupByShift は記録をシフト名ごとにまとめる。各グループ内の順序は入力順を保つ。
func GroupByShift(records []*Record) map[string][]*Record {
	groups := make(map[string][]*Record)
	for _, r := range records {
		groups[r.Shift] = append(groups[r.Shift], r)
	}
	return groups
}
