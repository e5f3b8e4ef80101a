package appointment

import (
	"errors"
	"fmt"
	"time"
)

// Role identifies a segment's position within a composite booking.
type Role string

const (
	RolePre  Role = "PRE"
	RoleMain Role = "MAIN"
	RolePost Role = "POST"
)

// ErrInvalidOrder is returned when a segment list fails cross-segment checks.
var ErrInvalidOrder = errors.New("appointment: invalid segment order")

// Segment is one contiguous time block within a single day's booking.
// Times are absolute instants; the backend's date/wall-clock split is
// reproduced only when a request is built.
type Segment struct {
	Role         Role      `json:"role"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	LocationCode string    `json:"locationCode,omitempty"`
}

// Date returns the calendar day of the segment in the segment's location.
func (s Segment) Date() time.Time {
	y, m, d := s.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.Start.Location())
}

// DateString formats the segment's calendar date as the backend expects it.
func (s Segment) DateString() string {
	return s.Start.Format("2006-01-02")
}

// StartClock and EndClock format the wall-clock interval bounds.
func (s Segment) StartClock() string { return s.Start.Format("15:04") }
func (s Segment) EndClock() string   { return s.End.Format("15:04") }

// DeriveAdjacent builds the optional PRE or POST segment from the MAIN
// anchor when the caller asked for one. PRE ends exactly where MAIN starts;
// POST starts exactly where MAIN ends.
func DeriveAdjacent(required bool, main Segment, offset time.Duration, role Role) (Segment, bool) {
	if !required {
		return Segment{}, false
	}
	switch role {
	case RolePre:
		return Segment{Role: RolePre, Start: main.Start.Add(-offset), End: main.Start}, true
	case RolePost:
		return Segment{Role: RolePost, Start: main.End, End: main.End.Add(offset)}, true
	default:
		return Segment{}, false
	}
}

// ValidateOrdering checks cross-segment consistency: every interval must
// end strictly after it starts, exactly one MAIN must be present, PRE/POST
// must share MAIN's date, and PRE sorts before MAIN before POST.
func ValidateOrdering(segs []Segment) error {
	var main *Segment
	for i := range segs {
		s := segs[i]
		if !s.End.After(s.Start) {
			return fmt.Errorf("%w: %s segment end must be after start", ErrInvalidOrder, s.Role)
		}
		if s.Role == RoleMain {
			if main != nil {
				return fmt.Errorf("%w: more than one main segment", ErrInvalidOrder)
			}
			main = &segs[i]
		}
	}
	if main == nil {
		return fmt.Errorf("%w: main segment missing", ErrInvalidOrder)
	}
	for _, s := range segs {
		switch s.Role {
		case RolePre:
			if !s.Date().Equal(main.Date()) {
				return fmt.Errorf("%w: pre segment on a different date", ErrInvalidOrder)
			}
			if s.Start.After(main.Start) {
				return fmt.Errorf("%w: pre segment starts after main", ErrInvalidOrder)
			}
		case RolePost:
			if !s.Date().Equal(main.Date()) {
				return fmt.Errorf("%w: post segment on a different date", ErrInvalidOrder)
			}
			if s.End.Before(main.End) {
				return fmt.Errorf("%w: post segment ends before main", ErrInvalidOrder)
			}
		}
	}
	return nil
}

// Main returns the MAIN segment when present.
func Main(segs []Segment) (Segment, bool) {
	for _, s := range segs {
		if s.Role == RoleMain {
			return s, true
		}
	}
	return Segment{}, false
}

// ByRole returns the segment with the given role when present.
func ByRole(segs []Segment, role Role) (Segment, bool) {
	for _, s := range segs {
		if s.Role == role {
			return s, true
		}
	}
	return Segment{}, false
}

// FirstStart returns the earliest start instant across the present
// segments. A PRE segment therefore takes precedence over MAIN for every
// threshold check built on it.
func FirstStart(segs []Segment) (time.Time, bool) {
	var first time.Time
	for _, s := range segs {
		if first.IsZero() || s.Start.Before(first) {
			first = s.Start
		}
	}
	return first, !first.IsZero()
}
