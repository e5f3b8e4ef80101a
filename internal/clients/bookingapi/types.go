package bookingapi

// Appointment is one scheduled block within a booking as the backend
// models it: a calendar date with an independent wall-clock interval, not
// an absolute timestamp.
type Appointment struct {
	Type         string `json:"appointmentType"`
	LocationCode string `json:"locationCode,omitempty"`
	Date         string `json:"date"`      // yyyy-MM-dd
	StartTime    string `json:"startTime"` // HH:mm
	EndTime      string `json:"endTime"`   // HH:mm
}

// PrisonerBlock carries one prisoner's identity and their ordered
// appointment list within a booking request.
type PrisonerBlock struct {
	PrisonCode     string        `json:"prisonCode"`
	PrisonerNumber string        `json:"prisonerNumber"`
	Appointments   []Appointment `json:"appointments"`
}

// AdditionalBookingDetails is the optional officer contact block. It is
// omitted entirely when contact details were declined, never sent empty.
type AdditionalBookingDetails struct {
	ContactName  string `json:"contactName,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactNumber,omitempty"`
}

// CreateBookingRequest creates a confirmed booking.
type CreateBookingRequest struct {
	BookingType          string                    `json:"bookingType"`
	Prisoners            []PrisonerBlock           `json:"prisoners"`
	CourtCode            string                    `json:"courtCode,omitempty"`
	CourtHearingType     string                    `json:"courtHearingType,omitempty"`
	ProbationTeamCode    string                    `json:"probationTeamCode,omitempty"`
	ProbationMeetingType string                    `json:"probationMeetingType,omitempty"`
	Comments             string                    `json:"comments,omitempty"`
	VideoLinkURL         string                    `json:"videoLinkUrl,omitempty"`
	HMCTSNumber          string                    `json:"hmctsNumber,omitempty"`
	GuestPIN             string                    `json:"guestPin,omitempty"`
	AdditionalDetails    *AdditionalBookingDetails `json:"additionalBookingDetails,omitempty"`
}

// AmendBookingRequest changes an existing booking and therefore carries its id.
type AmendBookingRequest struct {
	BookingID int64 `json:"videoLinkBookingId"`
	CreateBookingRequest
}

// RequestBookingRequest submits a booking for staff approval rather than
// immediate confirmation; no rooms are allocated yet.
type RequestBookingRequest CreateBookingRequest

// Booking is the backend's record of an existing booking.
type Booking struct {
	ID                   int64                     `json:"videoLinkBookingId"`
	BookingType          string                    `json:"bookingType"`
	Status               string                    `json:"statusCode"`
	CourtCode            string                    `json:"courtCode,omitempty"`
	CourtHearingType     string                    `json:"courtHearingType,omitempty"`
	ProbationTeamCode    string                    `json:"probationTeamCode,omitempty"`
	ProbationMeetingType string                    `json:"probationMeetingType,omitempty"`
	PrisonCode           string                    `json:"prisonCode"`
	PrisonName           string                    `json:"prisonName,omitempty"`
	PrisonerNumber       string                    `json:"prisonerNumber"`
	FirstName            string                    `json:"firstName,omitempty"`
	LastName             string                    `json:"lastName,omitempty"`
	Appointments         []Appointment             `json:"appointments"`
	Comments             string                    `json:"comments,omitempty"`
	VideoLinkURL         string                    `json:"videoLinkUrl,omitempty"`
	HMCTSNumber          string                    `json:"hmctsNumber,omitempty"`
	GuestPIN             string                    `json:"guestPin,omitempty"`
	AdditionalDetails    *AdditionalBookingDetails `json:"additionalBookingDetails,omitempty"`
}

// Room is a bookable video-link location at a prison.
type Room struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// AvailabilityQuery asks which rooms are free for one segment's interval.
// ExcludeBookingID keeps an amended booking from conflicting with itself.
type AvailabilityQuery struct {
	PrisonCode       string `json:"prisonCode"`
	Date             string `json:"date"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	LocationCode     string `json:"locationCode,omitempty"`
	ExcludeBookingID *int64 `json:"excludeVideoLinkBookingId,omitempty"`
}

// AlternativesQuery asks for candidate slots near a rejected request.
type AlternativesQuery struct {
	PrisonCode      string `json:"prisonCode"`
	Date            string `json:"date"`
	DurationMinutes int    `json:"durationMinutes"`
}

// CandidateSlot is one alternative room/time combination.
type CandidateSlot struct {
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	LocationCode string `json:"locationCode"`
	RoomName     string `json:"roomName,omitempty"`
}

// RefCode is a reference-data entry (hearing type, meeting type).
type RefCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
