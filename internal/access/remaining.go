package access

import (
	"time"

	"github.com/nilopro/teleauth/internal/types"
)

// Decompose splits d into whole days, hours and minutes, discarding seconds.
// Non-positive durations yield the zero value.
func Decompose(d time.Duration) types.Remaining {
	if d <= 0 {
		return types.Remaining{}
	}

	day := 24 * time.Hour
	return types.Remaining{
		Days:    int(d / day),
		Hours:   int(d % day / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
	}
}

// TimeRemaining returns the time left on rec at now, or 0 once expired.
func TimeRemaining(rec types.Record, now time.Time) time.Duration {
	remaining := rec.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
