package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/journey"
)

type fakeBackend struct {
	mu      sync.Mutex
	queries []bookingapi.AvailabilityQuery

	// rooms per interval key "start-end"; missing key means no rooms
	rooms map[string][]bookingapi.Room
	err   error

	alternatives []bookingapi.CandidateSlot
	altErr       error
}

func (f *fakeBackend) CheckAvailability(ctx context.Context, q bookingapi.AvailabilityQuery) ([]bookingapi.Room, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rooms[q.StartTime+"-"+q.EndTime], nil
}

func (f *fakeBackend) FindAlternatives(ctx context.Context, q bookingapi.AlternativesQuery) ([]bookingapi.CandidateSlot, error) {
	if f.altErr != nil {
		return nil, f.altErr
	}
	return f.alternatives, nil
}

func draftWith(t *testing.T, mode journey.Mode, withPre bool) *journey.Draft {
	t.Helper()
	main := appointment.Segment{
		Role:  appointment.RoleMain,
		Start: time.Date(2026, 9, 2, 13, 30, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 2, 14, 30, 0, 0, time.UTC),
	}
	d := journey.NewDraft(journey.KindCourt, mode, journey.Subject{PrisonerNumber: "A1234AA", PrisonCode: "WWI"})
	d.Segments = []appointment.Segment{main}
	if withPre {
		pre, _ := appointment.DeriveAdjacent(true, main, 15*time.Minute, appointment.RolePre)
		d.Segments = append([]appointment.Segment{pre}, d.Segments...)
	}
	return d
}

func TestCheckAllSegmentsAvailable(t *testing.T) {
	backend := &fakeBackend{rooms: map[string][]bookingapi.Room{
		"13:15-13:30": {{Code: "R1"}},
		"13:30-14:30": {{Code: "R1"}, {Code: "R2"}},
	}}
	checker := NewChecker(backend, nil)

	result, err := checker.Check(context.Background(), draftWith(t, journey.ModeCreate, true))
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected ok, got %+v", result)
	}
	if len(backend.queries) != 2 {
		t.Fatalf("expected one query per segment, got %d", len(backend.queries))
	}
	if len(result.Rooms[appointment.RoleMain]) != 2 {
		t.Fatalf("expected main rooms preserved, got %+v", result.Rooms)
	}
}

func TestCheckOneSegmentEmptyRejectsAll(t *testing.T) {
	// MAIN has rooms, PRE has none: the whole attempt is not available.
	backend := &fakeBackend{rooms: map[string][]bookingapi.Room{
		"13:30-14:30": {{Code: "R1"}},
	}}
	checker := NewChecker(backend, nil)

	result, err := checker.Check(context.Background(), draftWith(t, journey.ModeCreate, true))
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if result.OK {
		t.Fatal("expected not ok when pre segment has no rooms")
	}
	if len(result.Unavailable) != 1 || result.Unavailable[0] != appointment.RolePre {
		t.Fatalf("expected PRE flagged unavailable, got %+v", result.Unavailable)
	}
}

func TestCheckBackendErrorIsError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("timeout")}
	checker := NewChecker(backend, nil)

	if _, err := checker.Check(context.Background(), draftWith(t, journey.ModeCreate, false)); err == nil {
		t.Fatal("a failed query is a processing error, not a not-available outcome")
	}
}

func TestCheckAmendExcludesOwnBooking(t *testing.T) {
	backend := &fakeBackend{rooms: map[string][]bookingapi.Room{"13:30-14:30": {{Code: "R1"}}}}
	checker := NewChecker(backend, nil)

	d := draftWith(t, journey.ModeAmend, false)
	id := int64(77)
	d.BookingID = &id

	if _, err := checker.Check(context.Background(), d); err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if backend.queries[0].ExcludeBookingID == nil || *backend.queries[0].ExcludeBookingID != 77 {
		t.Fatalf("amend query must exclude its own booking, got %+v", backend.queries[0])
	}
}

func TestCheckEmptyDraft(t *testing.T) {
	checker := NewChecker(&fakeBackend{}, nil)
	d := journey.NewDraft(journey.KindCourt, journey.ModeCreate, journey.Subject{})
	if _, err := checker.Check(context.Background(), d); err == nil {
		t.Fatal("expected error for draft without segments")
	}
}

func TestAlternativesPartition(t *testing.T) {
	backend := &fakeBackend{alternatives: []bookingapi.CandidateSlot{
		{Date: "2026-09-02", StartTime: "13:00", EndTime: "14:00", LocationCode: "R1"},
		{Date: "2026-09-02", StartTime: "09:00", EndTime: "10:00", LocationCode: "R2"},
		{Date: "2026-09-02", StartTime: "15:00", EndTime: "16:00", LocationCode: "R3"},
	}}
	checker := NewChecker(backend, nil)

	// Requested window is PM only.
	opts, err := checker.Alternatives(context.Background(), draftWith(t, journey.ModeCreate, false))
	if err != nil {
		t.Fatalf("Alternatives error: %v", err)
	}
	if len(opts.MatchingPreferred) != 2 {
		t.Fatalf("expected two PM slots preferred, got %+v", opts.MatchingPreferred)
	}
	if len(opts.Other) != 1 || opts.Other[0].LocationCode != "R2" {
		t.Fatalf("expected the AM slot in other, got %+v", opts.Other)
	}
}

func TestAlternativesBackendError(t *testing.T) {
	backend := &fakeBackend{altErr: errors.New("boom")}
	checker := NewChecker(backend, nil)
	if _, err := checker.Alternatives(context.Background(), draftWith(t, journey.ModeCreate, false)); err == nil {
		t.Fatal("expected error")
	}
}
