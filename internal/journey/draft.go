// Package journey holds the working state of one booking-in-progress: the
// draft accumulated across pages, the session-scoped store it lives in, and
// the sequencer deciding which page comes next.
package journey

import (
	"time"

	"github.com/justiceops/videolink-booking/internal/appointment"
)

// Kind distinguishes the two journey shapes.
type Kind string

const (
	KindCourt     Kind = "COURT"
	KindProbation Kind = "PROBATION"
)

// Mode is the operation being performed on a journey, fixed for the
// lifetime of the draft.
type Mode string

const (
	ModeCreate  Mode = "CREATE"
	ModeAmend   Mode = "AMEND"
	ModeCancel  Mode = "CANCEL"
	ModeRequest Mode = "REQUEST"
)

// Subject is the prisoner identity snapshot taken when the journey starts.
// It is deliberately not re-fetched per step.
type Subject struct {
	PrisonerNumber string `json:"prisonerNumber"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	PrisonCode     string `json:"prisonCode"`
	PrisonName     string `json:"prisonName,omitempty"`
}

// ContactDetails carries the probation officer's contact information.
// NotKnown records an explicit "details not known" answer and is mutually
// exclusive with the other fields.
type ContactDetails struct {
	NotKnown bool   `json:"notKnown"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// VideoAccess carries the court hearing link: either a CVP URL or an HMCTS
// number with an optional guest PIN, never both.
type VideoAccess struct {
	CVPLink          string `json:"cvpLink,omitempty"`
	HMCTSNumber      string `json:"hmctsNumber,omitempty"`
	GuestPINRequired bool   `json:"guestPinRequired,omitempty"`
	GuestPIN         string `json:"guestPin,omitempty"`
}

// ScheduleFingerprint is the schedule-relevant shape of a hydrated booking,
// captured once so an amend journey can skip the availability re-check when
// nothing that matters to scheduling changed.
type ScheduleFingerprint struct {
	Date      string            `json:"date"`
	Intervals map[string]string `json:"intervals"` // role -> "start-end"
}

// Draft is the mutable state of one booking workflow.
type Draft struct {
	JourneyID    string `json:"journeyId"`
	Kind         Kind   `json:"kind"`
	Mode         Mode   `json:"mode"`
	BookingID    *int64 `json:"bookingId,omitempty"`
	StatusAtLoad string `json:"statusAtLoad,omitempty"`

	Subject    Subject `json:"subject"`
	AgencyCode string  `json:"agencyCode,omitempty"` // requesting court or probation team
	TypeCode   string  `json:"typeCode,omitempty"`   // hearing or meeting type

	Segments []appointment.Segment `json:"segments,omitempty"`
	Notes    string                `json:"notes,omitempty"`

	Contact *ContactDetails `json:"contact,omitempty"` // probation only
	Video   *VideoAccess    `json:"video,omitempty"`   // court only

	Original  *ScheduleFingerprint `json:"original,omitempty"` // amend only
	CreatedAt time.Time            `json:"createdAt"`
}

// Complete reports whether the draft holds everything its mode needs before
// the terminal confirm step may run.
func (d *Draft) Complete() bool {
	switch d.Mode {
	case ModeCancel:
		return d.BookingID != nil
	case ModeAmend:
		if d.BookingID == nil {
			return false
		}
	}
	main, ok := appointment.Main(d.Segments)
	if !ok {
		return false
	}
	if main.Start.IsZero() || !main.End.After(main.Start) {
		return false
	}
	return d.AgencyCode != "" && d.TypeCode != ""
}

// Fingerprint computes the schedule-relevant shape of the current segments.
func (d *Draft) Fingerprint() ScheduleFingerprint {
	fp := ScheduleFingerprint{Intervals: map[string]string{}}
	for _, s := range d.Segments {
		fp.Date = s.DateString()
		fp.Intervals[string(s.Role)] = s.StartClock() + "-" + s.EndClock()
	}
	return fp
}

// ScheduleUnchanged reports whether the resubmitted schedule equals the
// hydrated original. Only meaningful on amend journeys.
func (d *Draft) ScheduleUnchanged() bool {
	if d.Mode != ModeAmend || d.Original == nil {
		return false
	}
	current := d.Fingerprint()
	if current.Date != d.Original.Date || len(current.Intervals) != len(d.Original.Intervals) {
		return false
	}
	for role, interval := range current.Intervals {
		if d.Original.Intervals[role] != interval {
			return false
		}
	}
	return true
}

// ClearRooms drops previously chosen rooms. Called when the availability
// step rejects the schedule and the user is sent back to booking details.
func (d *Draft) ClearRooms() {
	for i := range d.Segments {
		d.Segments[i].LocationCode = ""
	}
}
