package utils

import "time"

// MinuteZero truncate time to the start of its minute in utc
func MinuteZero(now time.Time) time.Time {
	return now.UTC().Truncate(time.Minute)
}

// PreviousMinuteZero start of the minute before now
func PreviousMinuteZero(now time.Time) time.Time {
	return MinuteZero(now).Add(-time.Minute)
}

// NextMinuteZero start of the minute after now
func NextMinuteZero(now time.Time) time.Time {
	return MinuteZero(now).Add(time.Minute)
}

// UnixMilli milliseconds since epoch, used as cache busting query value
func UnixMilli(now time.Time) int64 {
	return now.UnixNano() / int64(time.Millisecond)
}
