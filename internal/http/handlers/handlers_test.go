package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/availability"
	"github.com/justiceops/videolink-booking/internal/bookingreq"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/clients/prisonerapi"
	"github.com/justiceops/videolink-booking/internal/events"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/observability/metrics"
	"github.com/justiceops/videolink-booking/internal/session"
	"github.com/justiceops/videolink-booking/pkg/logging"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const testSessionID = "sess-1"

type fakeSubjects struct {
	prisoner *prisonerapi.Prisoner
	err      error
}

func (f *fakeSubjects) GetByPrisonerNumber(_ context.Context, _ string) (*prisonerapi.Prisoner, error) {
	return f.prisoner, f.err
}

type fakeBackend struct {
	booking    *bookingapi.Booking
	getErr     error
	createErr  error
	createReq  *bookingapi.CreateBookingRequest
	amendReq   *bookingapi.AmendBookingRequest
	requestReq *bookingapi.RequestBookingRequest
	cancelled  []int64
}

func (f *fakeBackend) GetBooking(_ context.Context, _ int64) (*bookingapi.Booking, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.booking == nil {
		return nil, errors.New("not found")
	}
	return f.booking, nil
}

func (f *fakeBackend) CreateBooking(_ context.Context, req bookingapi.CreateBookingRequest) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.createReq = &req
	return 101, nil
}

func (f *fakeBackend) AmendBooking(_ context.Context, bookingID int64, req bookingapi.AmendBookingRequest) error {
	req.BookingID = bookingID
	f.amendReq = &req
	return nil
}

func (f *fakeBackend) RequestBooking(_ context.Context, req bookingapi.RequestBookingRequest) error {
	f.requestReq = &req
	return nil
}

func (f *fakeBackend) CancelBooking(_ context.Context, id int64) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeChecker struct {
	result     availability.Result
	alts       availability.Options
	checkCalls int
	altCalls   int
	err        error
}

func (f *fakeChecker) Check(_ context.Context, _ *journey.Draft) (availability.Result, error) {
	f.checkCalls++
	return f.result, f.err
}

func (f *fakeChecker) Alternatives(_ context.Context, _ *journey.Draft) (availability.Options, error) {
	f.altCalls++
	return f.alts, nil
}

type fakeRecorder struct {
	recorded []*events.JourneyEvent
}

func (f *fakeRecorder) Record(_ context.Context, ev *events.JourneyEvent) error {
	f.recorded = append(f.recorded, ev)
	return nil
}

type testEnv struct {
	router   http.Handler
	drafts   *journey.Store
	subjects *fakeSubjects
	backend  *fakeBackend
	checker  *fakeChecker
	recorder *fakeRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		drafts: journey.NewStore(client, time.Hour, nil),
		subjects: &fakeSubjects{prisoner: &prisonerapi.Prisoner{
			PrisonerNumber: "A1234BC",
			FirstName:      "John",
			LastName:       "Smith",
			PrisonCode:     "MDI",
			PrisonName:     "Moorland",
		}},
		backend:  &fakeBackend{},
		checker:  &fakeChecker{},
		recorder: &fakeRecorder{},
	}

	h := NewJourneyHandler(
		env.drafts,
		env.subjects,
		env.backend,
		env.checker,
		bookingreq.NewBuilder(bookingreq.FeatureConfig{HMCTSLinkAndGuestPIN: true}),
		env.recorder,
		metrics.NewJourneyMetrics(prometheus.NewRegistry()),
		logging.New("error"),
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithPrisonWarningWindow(48*time.Hour),
	)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(session.WithSessionID(req.Context(), testSessionID)))
		})
	})
	r.Post("/journeys", h.StartJourney)
	r.Post("/journeys/amend/{bookingID}", h.StartAmend)
	r.Post("/journeys/cancel/{bookingID}", h.StartCancel)
	r.Get("/journeys/{journeyID}", h.GetJourney)
	r.Delete("/journeys/{journeyID}", h.AbandonJourney)
	r.Post("/journeys/{journeyID}/booking-details", h.SubmitBookingDetails)
	r.Post("/journeys/{journeyID}/not-available", h.SubmitNotAvailable)
	r.Post("/journeys/{journeyID}/select-rooms", h.SubmitSelectRooms)
	r.Post("/journeys/{journeyID}/notes", h.SubmitNotes)
	r.Post("/journeys/{journeyID}/confirm", h.Confirm)
	r.Post("/journeys/{journeyID}/confirm-cancel", h.ConfirmCancel)
	r.Get("/bookings/{bookingID}", h.ViewBooking)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeStep(t *testing.T, rec *httptest.ResponseRecorder) *stepResponse {
	t.Helper()
	var resp stepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode step response: %v (body %s)", err, rec.Body.String())
	}
	return &resp
}

func decodeValidation(t *testing.T, rec *httptest.ResponseRecorder) []fieldError {
	t.Helper()
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp validationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode validation response: %v", err)
	}
	return resp.Errors
}

func availableRooms() availability.Result {
	room := func(code string) []bookingapi.Room {
		return []bookingapi.Room{{Code: code, Description: "Room " + code}}
	}
	return availability.Result{
		OK: true,
		Rooms: map[appointment.Role][]bookingapi.Room{
			appointment.RolePre:  room("R1"),
			appointment.RoleMain: room("R2"),
			appointment.RolePost: room("R3"),
		},
	}
}

func courtDetails() map[string]any {
	return map[string]any{
		"agencyCode":   "ABERCV",
		"typeCode":     "APPEAL",
		"date":         "2026-03-05",
		"startTime":    "10:00",
		"endTime":      "11:00",
		"preRequired":  true,
		"postRequired": true,
	}
}

func TestCourtCreateJourney(t *testing.T) {
	env := newTestEnv(t)
	env.checker.result = availableRooms()

	rec := env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "A1234BC",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	start := decodeStep(t, rec)
	if start.Step != journey.StepDetails {
		t.Fatalf("expected step %s, got %s", journey.StepDetails, start.Step)
	}
	jid := start.JourneyID

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", courtDetails())
	if rec.Code != http.StatusOK {
		t.Fatalf("details: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	details := decodeStep(t, rec)
	if details.Step != journey.StepSelectRooms {
		t.Fatalf("expected step %s, got %s", journey.StepSelectRooms, details.Step)
	}
	if len(details.Rooms["MAIN"]) != 1 {
		t.Fatalf("expected rooms for MAIN, got %v", details.Rooms)
	}
	if env.checker.checkCalls != 1 {
		t.Fatalf("expected 1 availability check, got %d", env.checker.checkCalls)
	}
	if got := len(details.Draft.Segments); got != 3 {
		t.Fatalf("expected 3 segments, got %d", got)
	}
	pre := details.Draft.Segments[0]
	if pre.StartClock() != "09:45" || pre.EndClock() != "10:00" {
		t.Errorf("pre segment %s-%s, want 09:45-10:00", pre.StartClock(), pre.EndClock())
	}

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/select-rooms", map[string]any{
		"rooms": map[string]string{"PRE": "R1", "MAIN": "R2", "POST": "R3"},
	})
	if step := decodeStep(t, rec).Step; step != journey.StepNotes {
		t.Fatalf("expected step %s, got %s", journey.StepNotes, step)
	}

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/notes", map[string]any{
		"notes": "interpreter required",
		"video": map[string]any{"cvpLink": "https://meet.example.com/h1"},
	})
	if step := decodeStep(t, rec).Step; step != journey.StepCheckAnswers {
		t.Fatalf("expected step %s, got %s", journey.StepCheckAnswers, step)
	}

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	confirm := decodeStep(t, rec)
	if confirm.Step != journey.StepConfirmation {
		t.Fatalf("expected step %s, got %s", journey.StepConfirmation, confirm.Step)
	}
	if confirm.BookingID == nil || *confirm.BookingID != 101 {
		t.Fatalf("expected booking id 101, got %v", confirm.BookingID)
	}

	if env.backend.createReq == nil {
		t.Fatal("expected a create request to reach the backend")
	}
	if got := env.backend.createReq.VideoLinkURL; got != "https://meet.example.com/h1" {
		t.Errorf("create request video link = %q", got)
	}
	if len(env.backend.createReq.Prisoners) != 1 || len(env.backend.createReq.Prisoners[0].Appointments) != 3 {
		t.Fatalf("unexpected prisoner block: %+v", env.backend.createReq.Prisoners)
	}

	if len(env.recorder.recorded) != 1 || env.recorder.recorded[0].Outcome != events.OutcomeCreated {
		t.Fatalf("expected one BOOKING_CREATED event, got %+v", env.recorder.recorded)
	}

	if _, err := env.drafts.Get(context.Background(), testSessionID, jid); !errors.Is(err, journey.ErrNoDraft) {
		t.Fatalf("expected draft cleared after confirm, got %v", err)
	}
}

func TestProbationUnavailableLoop(t *testing.T) {
	env := newTestEnv(t)
	env.checker.result = availability.Result{OK: false}
	env.checker.alts = availability.Options{
		MatchingPreferred: []bookingapi.CandidateSlot{{Date: "2026-03-05", StartTime: "11:00", EndTime: "12:00", LocationCode: "R4"}},
	}

	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "PROBATION",
		"prisonerNumber": "A1234BC",
	}))
	jid := start.JourneyID

	rec := env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", map[string]any{
		"agencyCode": "BLKPPP",
		"typeCode":   "PSR",
		"date":       "2026-03-05",
		"startTime":  "10:00",
		"endTime":    "11:00",
	})
	resp := decodeStep(t, rec)
	if resp.Step != journey.StepNotAvailable {
		t.Fatalf("expected step %s, got %s", journey.StepNotAvailable, resp.Step)
	}
	if resp.Alternatives == nil || len(resp.Alternatives.MatchingPreferred) != 1 {
		t.Fatalf("expected probation alternatives, got %+v", resp.Alternatives)
	}
	if env.checker.altCalls != 1 {
		t.Fatalf("expected 1 alternatives call, got %d", env.checker.altCalls)
	}

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/not-available", nil)
	back := decodeStep(t, rec)
	if back.Step != journey.StepDetails {
		t.Fatalf("expected step %s, got %s", journey.StepDetails, back.Step)
	}
	for _, seg := range back.Draft.Segments {
		if seg.LocationCode != "" {
			t.Errorf("expected rooms cleared, segment %s still has %q", seg.Role, seg.LocationCode)
		}
	}
}

func amendableBooking() *bookingapi.Booking {
	return &bookingapi.Booking{
		ID:               9,
		BookingType:      "COURT",
		Status:           "ACTIVE",
		CourtCode:        "ABERCV",
		CourtHearingType: "APPEAL",
		PrisonCode:       "MDI",
		PrisonerNumber:   "A1234BC",
		Appointments: []bookingapi.Appointment{
			{Type: "VLB_COURT_PRE", Date: "2026-03-05", StartTime: "09:45", EndTime: "10:00", LocationCode: "R1"},
			{Type: "VLB_COURT_MAIN", Date: "2026-03-05", StartTime: "10:00", EndTime: "11:00", LocationCode: "R2"},
			{Type: "VLB_COURT_POST", Date: "2026-03-05", StartTime: "11:00", EndTime: "11:15", LocationCode: "R3"},
		},
	}
}

func TestAmendUnchangedShortCircuit(t *testing.T) {
	env := newTestEnv(t)
	env.backend.booking = amendableBooking()

	rec := env.do(t, http.MethodPost, "/journeys/amend/9", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start amend: expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	start := decodeStep(t, rec)
	if start.Step != journey.StepDetails {
		t.Fatalf("expected step %s, got %s", journey.StepDetails, start.Step)
	}
	if start.WarnPrison {
		t.Error("did not expect a prison warning for a booking 3 days out")
	}
	jid := start.JourneyID

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", courtDetails())
	resp := decodeStep(t, rec)
	if resp.Step != journey.StepCheckAnswers {
		t.Fatalf("expected short-circuit to %s, got %s", journey.StepCheckAnswers, resp.Step)
	}
	if env.checker.checkCalls != 0 {
		t.Fatalf("expected no availability check for unchanged schedule, got %d", env.checker.checkCalls)
	}

	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if env.backend.amendReq == nil || env.backend.amendReq.BookingID != 9 {
		t.Fatalf("expected amend request for booking 9, got %+v", env.backend.amendReq)
	}
	if len(env.recorder.recorded) != 1 || env.recorder.recorded[0].Outcome != events.OutcomeAmended {
		t.Fatalf("expected one BOOKING_AMENDED event, got %+v", env.recorder.recorded)
	}

	// The short-circuit skips room selection, so the amend request must
	// still carry the booking's existing rooms.
	apps := env.backend.amendReq.Prisoners[0].Appointments
	if len(apps) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(apps))
	}
	wantRooms := map[string]string{
		"VLB_COURT_PRE":  "R1",
		"VLB_COURT_MAIN": "R2",
		"VLB_COURT_POST": "R3",
	}
	for _, a := range apps {
		if a.LocationCode != wantRooms[a.Type] {
			t.Errorf("appointment %s room = %q, want %q", a.Type, a.LocationCode, wantRooms[a.Type])
		}
	}
}

func TestAmendChangedScheduleRechecks(t *testing.T) {
	env := newTestEnv(t)
	env.backend.booking = amendableBooking()
	env.checker.result = availableRooms()

	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys/amend/9", nil))

	changed := courtDetails()
	changed["startTime"] = "14:00"
	changed["endTime"] = "15:00"
	rec := env.do(t, http.MethodPost, "/journeys/"+start.JourneyID+"/booking-details", changed)
	resp := decodeStep(t, rec)
	if resp.Step != journey.StepSelectRooms {
		t.Fatalf("expected step %s, got %s", journey.StepSelectRooms, resp.Step)
	}
	if env.checker.checkCalls != 1 {
		t.Fatalf("expected availability re-check, got %d calls", env.checker.checkCalls)
	}
}

func TestCancelJourney(t *testing.T) {
	env := newTestEnv(t)
	env.backend.booking = amendableBooking()

	rec := env.do(t, http.MethodPost, "/journeys/cancel/9", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start cancel: expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	start := decodeStep(t, rec)
	if start.Step != journey.StepConfirmCancel {
		t.Fatalf("expected step %s, got %s", journey.StepConfirmCancel, start.Step)
	}

	rec = env.do(t, http.MethodPost, "/journeys/"+start.JourneyID+"/confirm-cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm-cancel: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeStep(t, rec)
	if resp.Step != journey.StepCancelled {
		t.Fatalf("expected step %s, got %s", journey.StepCancelled, resp.Step)
	}
	if len(env.backend.cancelled) != 1 || env.backend.cancelled[0] != 9 {
		t.Fatalf("expected booking 9 cancelled, got %v", env.backend.cancelled)
	}
	if len(env.recorder.recorded) != 1 || env.recorder.recorded[0].Outcome != events.OutcomeCancelled {
		t.Fatalf("expected one BOOKING_CANCELLED event, got %+v", env.recorder.recorded)
	}
}

func TestRequestJourneySkipsAvailability(t *testing.T) {
	env := newTestEnv(t)

	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"mode":           "REQUEST",
		"prisonerNumber": "A1234BC",
	}))
	jid := start.JourneyID

	rec := env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", courtDetails())
	resp := decodeStep(t, rec)
	if resp.Step != journey.StepNotes {
		t.Fatalf("expected step %s, got %s", journey.StepNotes, resp.Step)
	}
	if env.checker.checkCalls != 0 {
		t.Fatalf("request journeys must not room-check, got %d calls", env.checker.checkCalls)
	}

	env.do(t, http.MethodPost, "/journeys/"+jid+"/notes", map[string]any{
		"video": map[string]any{"hmctsNumber": "1234"},
	})
	rec = env.do(t, http.MethodPost, "/journeys/"+jid+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if env.backend.requestReq == nil {
		t.Fatal("expected a request-booking call")
	}
	if len(env.recorder.recorded) != 1 || env.recorder.recorded[0].Outcome != events.OutcomeRequested {
		t.Fatalf("expected one BOOKING_REQUESTED event, got %+v", env.recorder.recorded)
	}
}

func TestBookingDetailsValidation(t *testing.T) {
	env := newTestEnv(t)
	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "A1234BC",
	}))
	jid := start.JourneyID

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name: "missing agency",
			body: map[string]any{
				"typeCode": "APPEAL", "date": "2026-03-05",
				"startTime": "10:00", "endTime": "11:00",
			},
			field: "agencyCode",
		},
		{
			name: "bad date",
			body: map[string]any{
				"agencyCode": "ABERCV", "typeCode": "APPEAL", "date": "05/03/2026",
				"startTime": "10:00", "endTime": "11:00",
			},
			field: "date",
		},
		{
			name: "end before start",
			body: map[string]any{
				"agencyCode": "ABERCV", "typeCode": "APPEAL", "date": "2026-03-05",
				"startTime": "11:00", "endTime": "10:00",
			},
			field: "endTime",
		},
		{
			name: "same day too soon",
			body: map[string]any{
				"agencyCode": "ABERCV", "typeCode": "APPEAL", "date": "2026-03-02",
				"startTime": "09:10", "endTime": "10:00",
			},
			field: "startTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", tt.body)
			errs := decodeValidation(t, rec)
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error on %q, got %+v", tt.field, errs)
			}
		})
	}
}

func TestSameDayInsideLeadTimeAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.checker.result = availableRooms()
	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "A1234BC",
	}))

	rec := env.do(t, http.MethodPost, "/journeys/"+start.JourneyID+"/booking-details", map[string]any{
		"agencyCode": "ABERCV", "typeCode": "APPEAL", "date": "2026-03-02",
		"startTime": "10:00", "endTime": "11:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for booking one hour out, got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestSelectRoomsRequiresEverySegment(t *testing.T) {
	env := newTestEnv(t)
	env.checker.result = availableRooms()
	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "A1234BC",
	}))
	jid := start.JourneyID
	env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", courtDetails())

	rec := env.do(t, http.MethodPost, "/journeys/"+jid+"/select-rooms", map[string]any{
		"rooms": map[string]string{"PRE": "R1", "POST": "R3"},
	})
	errs := decodeValidation(t, rec)
	if len(errs) != 1 || errs[0].Field != "rooms.MAIN" {
		t.Fatalf("expected rooms.MAIN error, got %+v", errs)
	}
}

func TestNotesValidation(t *testing.T) {
	t.Run("probation contact mutually exclusive", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.result = availableRooms()
		start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
			"kind":           "PROBATION",
			"prisonerNumber": "A1234BC",
		}))
		jid := start.JourneyID
		env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", map[string]any{
			"agencyCode": "BLKPPP", "typeCode": "PSR", "date": "2026-03-05",
			"startTime": "10:00", "endTime": "11:00",
		})
		env.do(t, http.MethodPost, "/journeys/"+jid+"/select-rooms", map[string]any{
			"rooms": map[string]string{"MAIN": "R2"},
		})

		rec := env.do(t, http.MethodPost, "/journeys/"+jid+"/notes", map[string]any{
			"contact": map[string]any{"notKnown": true, "name": "Jane Doe"},
		})
		errs := decodeValidation(t, rec)
		if len(errs) != 1 || errs[0].Field != "contact" {
			t.Fatalf("expected contact error, got %+v", errs)
		}
	})

	t.Run("court video link exclusive", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.result = availableRooms()
		start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
			"kind":           "COURT",
			"prisonerNumber": "A1234BC",
		}))
		jid := start.JourneyID
		env.do(t, http.MethodPost, "/journeys/"+jid+"/booking-details", courtDetails())
		env.do(t, http.MethodPost, "/journeys/"+jid+"/select-rooms", map[string]any{
			"rooms": map[string]string{"PRE": "R1", "MAIN": "R2", "POST": "R3"},
		})

		rec := env.do(t, http.MethodPost, "/journeys/"+jid+"/notes", map[string]any{
			"video": map[string]any{"cvpLink": "https://x", "hmctsNumber": "1234"},
		})
		errs := decodeValidation(t, rec)
		if len(errs) != 1 || errs[0].Field != "video" {
			t.Fatalf("expected video error, got %+v", errs)
		}
	})
}

func TestOutOfOrderSubmissionKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "A1234BC",
	}))

	// Notes before booking details: redirected, but the journey survives.
	rec := env.do(t, http.MethodPost, "/journeys/"+start.JourneyID+"/notes", map[string]any{
		"notes": "too early",
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if _, err := env.drafts.Get(context.Background(), testSessionID, start.JourneyID); err != nil {
		t.Fatalf("expected draft to survive an out-of-order submission, got %v", err)
	}
}

func TestStaleAmendDraftDiscarded(t *testing.T) {
	env := newTestEnv(t)

	// A hydrated amend draft whose booking has since started: the next
	// submission must discard it and send the caller to the booking view.
	booking := amendableBooking()
	for i := range booking.Appointments {
		booking.Appointments[i].Date = "2026-03-01"
	}
	draft, err := journey.HydrateFromBooking(journey.ModeAmend, booking, time.UTC)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := env.drafts.Put(context.Background(), testSessionID, draft); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/journeys/"+draft.JourneyID+"/booking-details", courtDetails())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/bookings/9" {
		t.Fatalf("expected redirect to /bookings/9, got %q", loc)
	}
	if _, err := env.drafts.Get(context.Background(), testSessionID, draft.JourneyID); !errors.Is(err, journey.ErrNoDraft) {
		t.Fatalf("expected stale amend draft discarded, got %v", err)
	}
}

func TestMissingDraftRedirectsHome(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/journeys/nope/booking-details", courtDetails())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
}

func TestAmendGateFailures(t *testing.T) {
	t.Run("terminal status on entry", func(t *testing.T) {
		env := newTestEnv(t)
		booking := amendableBooking()
		booking.Status = "CANCELLED"
		env.backend.booking = booking

		rec := env.do(t, http.MethodPost, "/journeys/amend/9", nil)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/bookings/9" {
			t.Fatalf("expected redirect to /bookings/9, got %q", loc)
		}
	})

	t.Run("booking started in the past", func(t *testing.T) {
		env := newTestEnv(t)
		booking := amendableBooking()
		for i := range booking.Appointments {
			booking.Appointments[i].Date = "2026-03-01"
		}
		env.backend.booking = booking

		rec := env.do(t, http.MethodPost, "/journeys/amend/9", nil)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
	})
}

func TestAmendReentryResumesDraft(t *testing.T) {
	env := newTestEnv(t)
	env.backend.booking = amendableBooking()

	first := decodeStep(t, env.do(t, http.MethodPost, "/journeys/amend/9", nil))

	rec := env.do(t, http.MethodPost, "/journeys/amend/9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-entry: expected 200, got %d", rec.Code)
	}
	second := decodeStep(t, rec)
	if second.JourneyID != first.JourneyID {
		t.Fatalf("expected resumed journey %s, got %s", first.JourneyID, second.JourneyID)
	}
}

func TestCancelWithin48HoursWarnsPrison(t *testing.T) {
	env := newTestEnv(t)
	booking := amendableBooking()
	for i := range booking.Appointments {
		booking.Appointments[i].Date = "2026-03-03"
	}
	env.backend.booking = booking

	resp := decodeStep(t, env.do(t, http.MethodPost, "/journeys/cancel/9", nil))
	if !resp.WarnPrison {
		t.Fatal("expected prison warning for a booking starting tomorrow")
	}
}

func TestAbandonJourney(t *testing.T) {
	env := newTestEnv(t)
	start := decodeStep(t, env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "A1234BC",
	}))

	rec := env.do(t, http.MethodDelete, "/journeys/"+start.JourneyID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, err := env.drafts.Get(context.Background(), testSessionID, start.JourneyID); !errors.Is(err, journey.ErrNoDraft) {
		t.Fatalf("expected draft gone, got %v", err)
	}
}

func TestStartJourneyUnknownPrisoner(t *testing.T) {
	env := newTestEnv(t)
	env.subjects.prisoner = nil
	env.subjects.err = fmt.Errorf("prisonerapi: get prisoner: status 404")

	rec := env.do(t, http.MethodPost, "/journeys", map[string]any{
		"kind":           "COURT",
		"prisonerNumber": "Z9999ZZ",
	})
	errs := decodeValidation(t, rec)
	if len(errs) != 1 || errs[0].Field != "prisonerNumber" {
		t.Fatalf("expected prisonerNumber error, got %+v", errs)
	}
}

func TestViewBooking(t *testing.T) {
	env := newTestEnv(t)
	env.backend.booking = amendableBooking()

	rec := env.do(t, http.MethodGet, "/bookings/9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Booking   *bookingapi.Booking `json:"booking"`
		Amendable bool                `json:"amendable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Booking == nil || resp.Booking.ID != 9 {
		t.Fatalf("unexpected booking: %+v", resp.Booking)
	}
	if !resp.Amendable {
		t.Fatal("expected booking to be amendable")
	}
}
