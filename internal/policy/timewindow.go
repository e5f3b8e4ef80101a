// Package policy holds the pure time-window rules gating the booking
// journey. Every function takes an explicit "now" so callers inject the
// clock and tests never race the wall clock.
package policy

import "time"

// MinimumLeadTime is how far ahead a same-day segment must start. Sized so
// a pre-hearing segment beginning 15 minutes before the main hearing is
// still bookable right at the boundary.
const MinimumLeadTime = 15 * time.Minute

// DefaultPrisonWarningWindow is the short-notice threshold used when no
// override is configured.
const DefaultPrisonWarningWindow = 48 * time.Hour

// terminalStatuses are backend booking states that can never be amended or
// cancelled, regardless of when the booking starts.
var terminalStatuses = map[string]bool{
	"CANCELLED": true,
	"COMPLETED": true,
	"EXPIRED":   true,
}

// Amendable reports whether an existing booking may still be changed or
// cancelled: its status must not be terminal and its earliest segment must
// start strictly in the future.
func Amendable(status string, firstStart, now time.Time) bool {
	if terminalStatuses[status] {
		return false
	}
	return firstStart.After(now)
}

// MinimumLeadTimeOK reports whether a segment start satisfies the minimum
// lead time. Any future date passes; today's date requires the start to be
// at least MinimumLeadTime ahead of now.
func MinimumLeadTimeOK(start, now time.Time) bool {
	if laterDate(start, now) {
		return true
	}
	if laterDate(now, start) {
		return false
	}
	return !start.Before(now.Add(MinimumLeadTime))
}

// ShouldWarnPrison flags a booking starting inside the short-notice window
// so the prison can be told to expect it. Render-time signal only.
func ShouldWarnPrison(firstStart, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultPrisonWarningWindow
	}
	return firstStart.Before(now.Add(window))
}

func laterDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}
