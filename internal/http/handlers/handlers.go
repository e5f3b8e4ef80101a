// Package handlers exposes the booking journey over HTTP. Each journey
// step has a POST endpoint that validates the submission, mutates the
// session-scoped draft and advances the sequencer; GET endpoints render
// current draft state for the step pages.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/justiceops/videolink-booking/internal/availability"
	"github.com/justiceops/videolink-booking/internal/bookingreq"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/clients/prisonerapi"
	"github.com/justiceops/videolink-booking/internal/events"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/observability/metrics"
	"github.com/justiceops/videolink-booking/pkg/logging"
)

// SubjectLookup resolves a prisoner number to a subject snapshot.
type SubjectLookup interface {
	GetByPrisonerNumber(ctx context.Context, prisonerNumber string) (*prisonerapi.Prisoner, error)
}

// BookingBackend is the slice of the scheduling backend the journey
// handlers drive at terminal steps and on amend/cancel entry.
type BookingBackend interface {
	GetBooking(ctx context.Context, id int64) (*bookingapi.Booking, error)
	CreateBooking(ctx context.Context, req bookingapi.CreateBookingRequest) (int64, error)
	AmendBooking(ctx context.Context, bookingID int64, req bookingapi.AmendBookingRequest) error
	RequestBooking(ctx context.Context, req bookingapi.RequestBookingRequest) error
	CancelBooking(ctx context.Context, id int64) error
}

// AvailabilityChecker answers whether a draft schedule can be roomed.
type AvailabilityChecker interface {
	Check(ctx context.Context, d *journey.Draft) (availability.Result, error)
	Alternatives(ctx context.Context, d *journey.Draft) (availability.Options, error)
}

// EventRecorder persists journey outcomes for audit.
type EventRecorder interface {
	Record(ctx context.Context, ev *events.JourneyEvent) error
}

// JourneyHandler carries the collaborators for every step endpoint.
type JourneyHandler struct {
	drafts     *journey.Store
	subjects   SubjectLookup
	backend    BookingBackend
	checker    AvailabilityChecker
	builder    *bookingreq.Builder
	recorder   EventRecorder
	metrics    *metrics.JourneyMetrics
	logger     *logging.Logger
	loc        *time.Location
	warnWindow time.Duration

	// now is swappable in tests
	now func() time.Time
}

// Option tweaks a JourneyHandler at construction.
type Option func(*JourneyHandler)

// WithClock overrides the handler clock.
func WithClock(now func() time.Time) Option {
	return func(h *JourneyHandler) { h.now = now }
}

// WithLocation sets the timezone used to interpret submitted dates and times.
func WithLocation(loc *time.Location) Option {
	return func(h *JourneyHandler) { h.loc = loc }
}

// WithPrisonWarningWindow sets how close to the start a change must be
// before the caller is told to phone the prison.
func WithPrisonWarningWindow(d time.Duration) Option {
	return func(h *JourneyHandler) { h.warnWindow = d }
}

// NewJourneyHandler wires the step endpoints.
func NewJourneyHandler(
	drafts *journey.Store,
	subjects SubjectLookup,
	backend BookingBackend,
	checker AvailabilityChecker,
	builder *bookingreq.Builder,
	recorder EventRecorder,
	m *metrics.JourneyMetrics,
	logger *logging.Logger,
	opts ...Option,
) *JourneyHandler {
	h := &JourneyHandler{
		drafts:     drafts,
		subjects:   subjects,
		backend:    backend,
		checker:    checker,
		builder:    builder,
		recorder:   recorder,
		metrics:    m,
		logger:     logger,
		loc:        time.Local,
		warnWindow: 0,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// stepResponse is the common payload returned after a step submission.
type stepResponse struct {
	JourneyID    string                       `json:"journeyId"`
	Step         journey.Step                 `json:"step,omitempty"`
	Draft        *journey.Draft               `json:"draft,omitempty"`
	Rooms        map[string][]bookingapi.Room `json:"rooms,omitempty"`
	Alternatives *availability.Options        `json:"alternatives,omitempty"`
	WarnPrison   bool                         `json:"warnPrison,omitempty"`
	BookingID    *int64                       `json:"bookingId,omitempty"`
}

func (h *JourneyHandler) respondStep(w http.ResponseWriter, status int, resp *stepResponse) {
	writeJSON(w, status, resp)
}
