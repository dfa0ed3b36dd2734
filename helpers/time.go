package helpers

import "time"

func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

// UnixMilli for platforms expecting millisecond timestamps.
func UnixMilli(t time.Time) int64 { return t.UnixNano() / int64(time.Millisecond) }
