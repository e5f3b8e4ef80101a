// Package bookingreq turns a completed draft into the exact request shape
// the scheduling backend accepts. Three typed builders share one base so
// no shape ever carries fields it is not allowed to.
package bookingreq

import (
	"errors"
	"fmt"
	"sort"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/journey"
)

// ErrNoMainSegment indicates the sequencer let an incomplete draft through;
// it is a programming error, not a user-facing validation failure.
var ErrNoMainSegment = errors.New("bookingreq: draft has no main segment")

// FeatureConfig gates the court video-access fields. Passed once at
// construction so toggle combinations are trivially testable.
type FeatureConfig struct {
	HMCTSLinkAndGuestPIN bool
}

// Builder assembles backend booking requests from drafts.
type Builder struct {
	features FeatureConfig
}

// NewBuilder creates a request builder with the given toggles.
func NewBuilder(features FeatureConfig) *Builder {
	return &Builder{features: features}
}

// BuildCreate produces the request that creates a confirmed booking.
func (b *Builder) BuildCreate(d *journey.Draft) (bookingapi.CreateBookingRequest, error) {
	return b.base(d)
}

// BuildAmend produces the request that amends an existing booking; it
// always carries the original booking id.
func (b *Builder) BuildAmend(d *journey.Draft) (bookingapi.AmendBookingRequest, error) {
	if d.BookingID == nil {
		return bookingapi.AmendBookingRequest{}, fmt.Errorf("bookingreq: amend draft has no booking id")
	}
	base, err := b.base(d)
	if err != nil {
		return bookingapi.AmendBookingRequest{}, err
	}
	return bookingapi.AmendBookingRequest{BookingID: *d.BookingID, CreateBookingRequest: base}, nil
}

// BuildRequest produces the request that submits a booking for staff
// approval; like create, it never carries a booking id.
func (b *Builder) BuildRequest(d *journey.Draft) (bookingapi.RequestBookingRequest, error) {
	base, err := b.base(d)
	if err != nil {
		return bookingapi.RequestBookingRequest{}, err
	}
	return bookingapi.RequestBookingRequest(base), nil
}

func (b *Builder) base(d *journey.Draft) (bookingapi.CreateBookingRequest, error) {
	if _, ok := appointment.Main(d.Segments); !ok {
		return bookingapi.CreateBookingRequest{}, ErrNoMainSegment
	}

	segments := orderSegments(d.Segments)
	appointments := make([]bookingapi.Appointment, 0, len(segments))
	for _, seg := range segments {
		appointmentType, err := appointmentType(d.Kind, seg.Role)
		if err != nil {
			return bookingapi.CreateBookingRequest{}, err
		}
		appointments = append(appointments, bookingapi.Appointment{
			Type:         appointmentType,
			LocationCode: seg.LocationCode,
			Date:         seg.DateString(),
			StartTime:    seg.StartClock(),
			EndTime:      seg.EndClock(),
		})
	}

	req := bookingapi.CreateBookingRequest{
		BookingType: string(d.Kind),
		Prisoners: []bookingapi.PrisonerBlock{{
			PrisonCode:     d.Subject.PrisonCode,
			PrisonerNumber: d.Subject.PrisonerNumber,
			Appointments:   appointments,
		}},
		Comments: d.Notes,
	}

	switch d.Kind {
	case journey.KindCourt:
		req.CourtCode = d.AgencyCode
		req.CourtHearingType = d.TypeCode
		b.applyVideoAccess(&req, d.Video)
	case journey.KindProbation:
		req.ProbationTeamCode = d.AgencyCode
		req.ProbationMeetingType = d.TypeCode
		req.AdditionalDetails = contactBlock(d.Contact)
	}
	return req, nil
}

// applyVideoAccess forwards whichever link form is present; the mutual
// exclusion of CVP link vs HMCTS number was validated at input time and is
// not re-checked here.
func (b *Builder) applyVideoAccess(req *bookingapi.CreateBookingRequest, video *journey.VideoAccess) {
	if video == nil {
		return
	}
	if b.features.HMCTSLinkAndGuestPIN {
		req.HMCTSNumber = video.HMCTSNumber
		req.VideoLinkURL = video.CVPLink
		if video.GuestPINRequired {
			req.GuestPIN = video.GuestPIN
		}
		return
	}
	req.VideoLinkURL = video.CVPLink
}

// contactBlock is nil both when no contact info was provided and when the
// caller explicitly declined to provide it; an empty block is never sent.
func contactBlock(contact *journey.ContactDetails) *bookingapi.AdditionalBookingDetails {
	if contact == nil || contact.NotKnown {
		return nil
	}
	if contact.Name == "" && contact.Email == "" && contact.Phone == "" {
		return nil
	}
	return &bookingapi.AdditionalBookingDetails{
		ContactName:  contact.Name,
		ContactEmail: contact.Email,
		ContactPhone: contact.Phone,
	}
}

func appointmentType(kind journey.Kind, role appointment.Role) (string, error) {
	switch kind {
	case journey.KindCourt:
		switch role {
		case appointment.RolePre:
			return "VLB_COURT_PRE", nil
		case appointment.RoleMain:
			return "VLB_COURT_MAIN", nil
		case appointment.RolePost:
			return "VLB_COURT_POST", nil
		}
	case journey.KindProbation:
		// Probation bookings have no pre/post appointment types.
		if role == appointment.RoleMain {
			return "VLB_PROBATION", nil
		}
	}
	return "", fmt.Errorf("bookingreq: no appointment type for %s %s", kind, role)
}

func orderSegments(segs []appointment.Segment) []appointment.Segment {
	ordered := append([]appointment.Segment(nil), segs...)
	rank := map[appointment.Role]int{appointment.RolePre: 0, appointment.RoleMain: 1, appointment.RolePost: 2}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Role] < rank[ordered[j].Role]
	})
	return ordered
}
