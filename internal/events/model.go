package events

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of a journey.
type Outcome string

const (
	OutcomeCreated   Outcome = "BOOKING_CREATED"
	OutcomeAmended   Outcome = "BOOKING_AMENDED"
	OutcomeCancelled Outcome = "BOOKING_CANCELLED"
	OutcomeRequested Outcome = "BOOKING_REQUESTED"
)

// JourneyEvent records one completed journey for the backend team's
// reporting. Written only at terminal confirmation, never mid-journey.
type JourneyEvent struct {
	ID             uuid.UUID `json:"id"`
	JourneyID      string    `json:"journeyId"`
	BookingID      *int64    `json:"bookingId,omitempty"`
	Kind           string    `json:"kind"`
	Mode           string    `json:"mode"`
	Outcome        Outcome   `json:"outcome"`
	PrisonerNumber string    `json:"prisonerNumber"`
	PrisonCode     string    `json:"prisonCode"`
	AgencyCode     string    `json:"agencyCode"`
	CreatedAt      time.Time `json:"createdAt"`
}
