package testutil

import "time"

// FixedTime returns the reference instant tests build timelines from
func FixedTime() time.Time {
	return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
}
