package db

import (
	"fmt"
	"time"
)

// sqliteTimeLayout is fixed width so stored values sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TimeValue converts t to the argument type the dialect stores timestamps as.
func (d Dialect) TimeValue(t time.Time) any {
	if d == SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// TimeType is the column type used for timestamps.
func (d Dialect) TimeType() string {
	if d == SQLite {
		return "TEXT"
	}
	return "TIMESTAMPTZ"
}

// ScanTime converts a scanned timestamp column back to time.Time.
func ScanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", v)
	}
}
