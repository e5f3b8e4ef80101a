package appointment

import "time"

// Period buckets a wall-clock time into the day parts staff pick on the
// booking-details page.
type Period string

const (
	PeriodAM Period = "AM" // before midday
	PeriodPM Period = "PM" // midday to 17:00
	PeriodED Period = "ED" // 17:00 onwards
)

// PeriodOf returns the day part a start time falls into.
func PeriodOf(t time.Time) Period {
	switch h := t.Hour(); {
	case h < 12:
		return PeriodAM
	case h < 17:
		return PeriodPM
	default:
		return PeriodED
	}
}

// Periods returns the distinct day parts covered by the segments' starts,
// in segment order.
func Periods(segs []Segment) []Period {
	var out []Period
	seen := map[Period]bool{}
	for _, s := range segs {
		p := PeriodOf(s.Start)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
