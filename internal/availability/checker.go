// Package availability decides whether a draft's segments can all be
// roomed at the prison. Segments are queried independently but judged
// jointly: a hearing whose escort or handover slot cannot be roomed is not
// a useful booking, so one empty segment rejects the whole attempt.
package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/journey"
)

// Backend is the slice of the scheduling client the checker needs.
type Backend interface {
	CheckAvailability(ctx context.Context, query bookingapi.AvailabilityQuery) ([]bookingapi.Room, error)
	FindAlternatives(ctx context.Context, query bookingapi.AlternativesQuery) ([]bookingapi.CandidateSlot, error)
}

// Result aggregates the per-segment answers into one decision.
type Result struct {
	OK          bool
	Unavailable []appointment.Role
	Rooms       map[appointment.Role][]bookingapi.Room
}

// Options are the probation alternatives, ranked so slots matching one of
// the originally requested day parts come first.
type Options struct {
	MatchingPreferred []bookingapi.CandidateSlot
	Other             []bookingapi.CandidateSlot
}

// Checker queries room availability for each present segment.
type Checker struct {
	backend Backend
	tracer  trace.Tracer
}

// NewChecker creates an availability checker.
func NewChecker(backend Backend, tracer trace.Tracer) *Checker {
	if backend == nil {
		panic("availability: backend cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("videolink.internal.availability")
	}
	return &Checker{backend: backend, tracer: tracer}
}

// Check dispatches one query per present segment concurrently and joins
// them. Any transport error fails the whole check; "no rooms" is a normal
// not-available outcome, not an error.
func (c *Checker) Check(ctx context.Context, draft *journey.Draft) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "availability.check")
	defer span.End()

	if len(draft.Segments) == 0 {
		return Result{}, fmt.Errorf("availability: draft has no segments")
	}

	rooms := make([][]bookingapi.Room, len(draft.Segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range draft.Segments {
		g.Go(func() error {
			found, err := c.backend.CheckAvailability(gctx, queryFor(draft, seg))
			if err != nil {
				return fmt.Errorf("availability: %s segment: %w", seg.Role, err)
			}
			rooms[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	result := Result{OK: true, Rooms: map[appointment.Role][]bookingapi.Room{}}
	for i, seg := range draft.Segments {
		result.Rooms[seg.Role] = rooms[i]
		if len(rooms[i]) == 0 {
			result.OK = false
			result.Unavailable = append(result.Unavailable, seg.Role)
		}
	}
	return result, nil
}

// Alternatives fetches candidate slots near the rejected window and splits
// them by whether they fall in a requested day part. Probation only; court
// journeys just send the user back to booking details.
func (c *Checker) Alternatives(ctx context.Context, draft *journey.Draft) (Options, error) {
	ctx, span := c.tracer.Start(ctx, "availability.alternatives")
	defer span.End()

	main, ok := appointment.Main(draft.Segments)
	if !ok {
		return Options{}, fmt.Errorf("availability: draft has no main segment")
	}

	slots, err := c.backend.FindAlternatives(ctx, bookingapi.AlternativesQuery{
		PrisonCode:      draft.Subject.PrisonCode,
		Date:            main.DateString(),
		DurationMinutes: int(main.End.Sub(main.Start) / time.Minute),
	})
	if err != nil {
		span.RecordError(err)
		return Options{}, fmt.Errorf("availability: find alternatives: %w", err)
	}

	requested := map[appointment.Period]bool{}
	for _, p := range appointment.Periods(draft.Segments) {
		requested[p] = true
	}

	var opts Options
	for _, slot := range slots {
		start, err := time.Parse("15:04", slot.StartTime)
		if err != nil {
			continue
		}
		if requested[appointment.PeriodOf(start)] {
			opts.MatchingPreferred = append(opts.MatchingPreferred, slot)
		} else {
			opts.Other = append(opts.Other, slot)
		}
	}
	return opts, nil
}

func queryFor(draft *journey.Draft, seg appointment.Segment) bookingapi.AvailabilityQuery {
	q := bookingapi.AvailabilityQuery{
		PrisonCode:   draft.Subject.PrisonCode,
		Date:         seg.DateString(),
		StartTime:    seg.StartClock(),
		EndTime:      seg.EndClock(),
		LocationCode: seg.LocationCode,
	}
	if draft.Mode == journey.ModeAmend {
		q.ExcludeBookingID = draft.BookingID
	}
	return q
}
