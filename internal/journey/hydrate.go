package journey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
)

// NewDraft seeds a fresh draft for a create/request journey.
func NewDraft(kind Kind, mode Mode, subject Subject) *Draft {
	return &Draft{
		JourneyID: uuid.NewString(),
		Kind:      kind,
		Mode:      mode,
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
	}
}

// HydrateFromBooking replays a backend booking into a draft for an
// amend/cancel journey. The journey id is derived from the booking id so a
// session re-entering the same booking finds its in-progress draft instead
// of discarding edits.
func HydrateFromBooking(mode Mode, booking *bookingapi.Booking, loc *time.Location) (*Draft, error) {
	if mode != ModeAmend && mode != ModeCancel {
		return nil, fmt.Errorf("journey: cannot hydrate a %s journey from a booking", mode)
	}
	if loc == nil {
		loc = time.Local
	}

	segments := make([]appointment.Segment, 0, len(booking.Appointments))
	for _, a := range booking.Appointments {
		role, ok := roleOf(a.Type)
		if !ok {
			return nil, fmt.Errorf("journey: unknown appointment type %q", a.Type)
		}
		start, err := time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.StartTime, loc)
		if err != nil {
			return nil, fmt.Errorf("journey: parse appointment start: %w", err)
		}
		end, err := time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.EndTime, loc)
		if err != nil {
			return nil, fmt.Errorf("journey: parse appointment end: %w", err)
		}
		segments = append(segments, appointment.Segment{
			Role:         role,
			Start:        start,
			End:          end,
			LocationCode: a.LocationCode,
		})
	}

	kind := KindCourt
	agency := booking.CourtCode
	typeCode := booking.CourtHearingType
	if booking.BookingType == string(KindProbation) {
		kind = KindProbation
		agency = booking.ProbationTeamCode
		typeCode = booking.ProbationMeetingType
	}

	id := booking.ID
	draft := &Draft{
		JourneyID:    JourneyIDForBooking(mode, id),
		Kind:         kind,
		Mode:         mode,
		BookingID:    &id,
		StatusAtLoad: booking.Status,
		Subject: Subject{
			PrisonerNumber: booking.PrisonerNumber,
			FirstName:      booking.FirstName,
			LastName:       booking.LastName,
			PrisonCode:     booking.PrisonCode,
			PrisonName:     booking.PrisonName,
		},
		AgencyCode: agency,
		TypeCode:   typeCode,
		Segments:   segments,
		Notes:      booking.Comments,
		CreatedAt:  time.Now().UTC(),
	}

	if kind == KindCourt && (booking.VideoLinkURL != "" || booking.HMCTSNumber != "") {
		draft.Video = &VideoAccess{
			CVPLink:          booking.VideoLinkURL,
			HMCTSNumber:      booking.HMCTSNumber,
			GuestPINRequired: booking.GuestPIN != "",
			GuestPIN:         booking.GuestPIN,
		}
	}
	if kind == KindProbation && booking.AdditionalDetails != nil {
		draft.Contact = &ContactDetails{
			Name:  booking.AdditionalDetails.ContactName,
			Email: booking.AdditionalDetails.ContactEmail,
			Phone: booking.AdditionalDetails.ContactPhone,
		}
	}

	if mode == ModeAmend {
		fp := draft.Fingerprint()
		draft.Original = &fp
	}
	return draft, nil
}

// JourneyIDForBooking gives amend/cancel journeys a stable id per booking,
// keyed by mode so a cancel does not trample an in-flight amend.
func JourneyIDForBooking(mode Mode, bookingID int64) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(string(mode)), bookingID)
}

func roleOf(appointmentType string) (appointment.Role, bool) {
	switch {
	case strings.HasSuffix(appointmentType, "_PRE"):
		return appointment.RolePre, true
	case strings.HasSuffix(appointmentType, "_POST"):
		return appointment.RolePost, true
	case strings.HasSuffix(appointmentType, "_MAIN"), appointmentType == "VLB_PROBATION":
		return appointment.RoleMain, true
	default:
		return "", false
	}
}
