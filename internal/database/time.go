package database

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayout は固定幅のUTC表現。SQLiteのTEXT列でも辞書順が時刻順になる。
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Time はSQLiteのTEXT列とPostgreSQLのTIMESTAMPTZ列の両方に読み書きできる時刻。
type Time struct {
	time.Time
}

// NewTime は t をマイクロ秒に丸めたUTC時刻として包む。
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Truncate(time.Microsecond)}
}

// Value は driver.Valuer の実装。
func (t Time) Value() (driver.Value, error) {
	return t.UTC().Format(timeLayout), nil
}

// Scan は sql.Scanner の実装。
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("時刻として読み取れない型: %T", src)
	}
}

func (t *Time) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("時刻の形式が不正: %q", s)
}
