package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/policy"
	"github.com/justiceops/videolink-booking/internal/session"
)

// adjacentDuration is the fixed length of an auto-derived pre or post
// court segment.
const adjacentDuration = 15 * time.Minute

type bookingDetailsRequest struct {
	AgencyCode   string `json:"agencyCode"`
	TypeCode     string `json:"typeCode"`
	Date         string `json:"date"`      // 2006-01-02
	StartTime    string `json:"startTime"` // 15:04
	EndTime      string `json:"endTime"`   // 15:04
	PreRequired  bool   `json:"preRequired"`
	PostRequired bool   `json:"postRequired"`
}

// SubmitBookingDetails validates the schedule submission, rebuilds the
// draft segments and runs the availability check that decides whether
// the journey moves to room selection or the not-available page.
func (h *JourneyHandler) SubmitBookingDetails(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if !journey.Gate(draft, journey.StepDetails) {
		h.gateRedirect(w, r, draft)
		return
	}
	if draft.Mode == journey.ModeAmend && !h.stillAmendable(draft) {
		h.amendabilityRedirect(w, r, draft)
		return
	}

	var req bookingDetailsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	segments, errs := h.buildSegments(draft.Kind, &req)
	if req.AgencyCode == "" {
		errs = append(errs, fieldError{Field: "agencyCode", Message: "is required"})
	}
	if req.TypeCode == "" {
		errs = append(errs, fieldError{Field: "typeCode", Message: "is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	prior := draft.Segments
	draft.AgencyCode = req.AgencyCode
	draft.TypeCode = req.TypeCode
	draft.Segments = segments

	// Amend journeys that leave the schedule untouched skip the
	// availability re-check and go straight to check-answers. The
	// hydrated segments stay in place: they carry the booking's
	// existing room codes, which the rebuilt segments do not.
	if draft.ScheduleUnchanged() {
		draft.Segments = prior
		h.advance(w, r, draft, journey.StepDetails, journey.EventUnchanged, nil)
		return
	}

	// Requested bookings are placed by the prison, so there is nothing
	// to room-check here.
	if draft.Mode == journey.ModeRequest {
		h.advance(w, r, draft, journey.StepDetails, journey.EventSubmitted, nil)
		return
	}

	result, err := h.checker.Check(r.Context(), draft)
	if err != nil {
		h.logger.Error("availability check failed", "journey_id", draft.JourneyID, "error", err)
		writeError(w, http.StatusBadGateway, "availability check failed")
		return
	}
	h.metrics.ObserveAvailability(string(draft.Kind), result.OK)

	if !result.OK {
		extra := &stepResponse{}
		if draft.Kind == journey.KindProbation {
			opts, altErr := h.checker.Alternatives(r.Context(), draft)
			if altErr != nil {
				h.logger.Warn("failed to fetch alternatives", "journey_id", draft.JourneyID, "error", altErr)
			} else {
				extra.Alternatives = &opts
			}
		}
		h.advance(w, r, draft, journey.StepDetails, journey.EventUnavailable, extra)
		return
	}

	h.advance(w, r, draft, journey.StepDetails, journey.EventSubmitted, &stepResponse{Rooms: roomsByRole(result.Rooms)})
}

// SubmitNotAvailable acknowledges the not-available page: room choices
// are discarded and the user returns to booking details.
func (h *JourneyHandler) SubmitNotAvailable(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if !journey.Gate(draft, journey.StepNotAvailable) {
		h.gateRedirect(w, r, draft)
		return
	}
	draft.ClearRooms()
	h.advance(w, r, draft, journey.StepNotAvailable, journey.EventSubmitted, nil)
}

type selectRoomsRequest struct {
	Rooms map[string]string `json:"rooms"` // role -> room code
}

// SubmitSelectRooms records the chosen room for every segment.
func (h *JourneyHandler) SubmitSelectRooms(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if !journey.Gate(draft, journey.StepSelectRooms) {
		h.gateRedirect(w, r, draft)
		return
	}

	var req selectRoomsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs []fieldError
	for i := range draft.Segments {
		role := string(draft.Segments[i].Role)
		code := strings.TrimSpace(req.Rooms[role])
		if code == "" {
			errs = append(errs, fieldError{Field: "rooms." + role, Message: "a room is required"})
			continue
		}
		draft.Segments[i].LocationCode = code
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	h.advance(w, r, draft, journey.StepSelectRooms, journey.EventSubmitted, nil)
}

type notesRequest struct {
	Notes   string                  `json:"notes"`
	Contact *journey.ContactDetails `json:"contact,omitempty"`
	Video   *journey.VideoAccess    `json:"video,omitempty"`
}

// SubmitNotes records free-text notes plus the kind-specific extras:
// probation officer contact details or the court video link.
func (h *JourneyHandler) SubmitNotes(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if !journey.Gate(draft, journey.StepNotes) {
		h.gateRedirect(w, r, draft)
		return
	}

	var req notesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs []fieldError
	switch draft.Kind {
	case journey.KindProbation:
		errs = validateContact(req.Contact)
	case journey.KindCourt:
		errs = validateVideo(req.Video)
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	draft.Notes = strings.TrimSpace(req.Notes)
	if draft.Kind == journey.KindProbation {
		draft.Contact = req.Contact
	} else {
		draft.Video = req.Video
	}

	h.advance(w, r, draft, journey.StepNotes, journey.EventSubmitted, nil)
}

func validateContact(c *journey.ContactDetails) []fieldError {
	if c == nil {
		return []fieldError{{Field: "contact", Message: "enter contact details or mark them as not known"}}
	}
	hasDetails := c.Name != "" || c.Email != "" || c.Phone != ""
	if c.NotKnown && hasDetails {
		return []fieldError{{Field: "contact", Message: "cannot both provide details and mark them as not known"}}
	}
	if !c.NotKnown && !hasDetails {
		return []fieldError{{Field: "contact", Message: "enter contact details or mark them as not known"}}
	}
	var errs []fieldError
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		errs = append(errs, fieldError{Field: "contact.email", Message: "must be a valid email address"})
	}
	return errs
}

func validateVideo(v *journey.VideoAccess) []fieldError {
	if v == nil {
		return nil
	}
	var errs []fieldError
	if v.CVPLink != "" && v.HMCTSNumber != "" {
		errs = append(errs, fieldError{Field: "video", Message: "provide either a CVP link or an HMCTS number, not both"})
	}
	if v.GuestPINRequired && v.GuestPIN == "" {
		errs = append(errs, fieldError{Field: "video.guestPin", Message: "is required when a guest PIN is needed"})
	}
	return errs
}

// buildSegments parses the submitted schedule into absolute instants and
// derives the adjacent court segments.
func (h *JourneyHandler) buildSegments(kind journey.Kind, req *bookingDetailsRequest) ([]appointment.Segment, []fieldError) {
	var errs []fieldError

	day, err := time.ParseInLocation("2006-01-02", req.Date, h.loc)
	if err != nil {
		errs = append(errs, fieldError{Field: "date", Message: "must be a valid date in YYYY-MM-DD format"})
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		errs = append(errs, fieldError{Field: "startTime", Message: "must be a valid time in HH:MM format"})
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		errs = append(errs, fieldError{Field: "endTime", Message: "must be a valid time in HH:MM format"})
	}
	if kind == journey.KindProbation && (req.PreRequired || req.PostRequired) {
		errs = append(errs, fieldError{Field: "preRequired", Message: "probation meetings have a single segment"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	main := appointment.Segment{
		Role:  appointment.RoleMain,
		Start: time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, h.loc),
		End:   time.Date(day.Year(), day.Month(), day.Day(), end.Hour(), end.Minute(), 0, 0, h.loc),
	}
	if !main.End.After(main.Start) {
		return nil, []fieldError{{Field: "endTime", Message: "must be after the start time"}}
	}

	segments := []appointment.Segment{main}
	if pre, ok := appointment.DeriveAdjacent(req.PreRequired, main, adjacentDuration, appointment.RolePre); ok {
		segments = append([]appointment.Segment{pre}, segments...)
	}
	if post, ok := appointment.DeriveAdjacent(req.PostRequired, main, adjacentDuration, appointment.RolePost); ok {
		segments = append(segments, post)
	}

	if err := appointment.ValidateOrdering(segments); err != nil {
		if errors.Is(err, appointment.ErrInvalidOrder) {
			return nil, []fieldError{{Field: "startTime", Message: "segments must be contiguous and in order"}}
		}
		return nil, []fieldError{{Field: "startTime", Message: err.Error()}}
	}

	firstStart, _ := appointment.FirstStart(segments)
	if !policy.MinimumLeadTimeOK(firstStart, h.now()) {
		msg := fmt.Sprintf("must be at least %d minutes from now", int(policy.MinimumLeadTime.Minutes()))
		return nil, []fieldError{{Field: "startTime", Message: msg}}
	}

	return segments, nil
}

// advance stores the draft, asks the sequencer for the next step and
// writes the step response. extra, when present, carries step-specific
// payload such as rooms or alternatives.
func (h *JourneyHandler) advance(w http.ResponseWriter, r *http.Request, draft *journey.Draft, current journey.Step, event journey.Event, extra *stepResponse) {
	sessionID, _ := session.SessionIDFromContext(r.Context())
	if err := h.drafts.Put(r.Context(), sessionID, draft); err != nil {
		h.logger.Error("failed to store draft", "journey_id", draft.JourneyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save journey")
		return
	}

	next, err := journey.Next(draft.Mode, current, event)
	if err != nil {
		h.logger.Error("no transition", "journey_id", draft.JourneyID, "step", current, "event", event)
		writeError(w, http.StatusConflict, "submission not valid for this step")
		return
	}

	resp := &stepResponse{
		JourneyID:  draft.JourneyID,
		Step:       next,
		Draft:      draft,
		WarnPrison: h.warnPrison(draft),
	}
	if extra != nil {
		resp.Rooms = extra.Rooms
		resp.Alternatives = extra.Alternatives
	}
	h.respondStep(w, http.StatusOK, resp)
}

// stillAmendable re-checks the amend window against the hydrated
// schedule, so a draft left open past the threshold cannot proceed.
func (h *JourneyHandler) stillAmendable(draft *journey.Draft) bool {
	firstStart, ok := appointment.FirstStart(draft.Segments)
	if !ok {
		return true
	}
	return policy.Amendable(draft.StatusAtLoad, firstStart, h.now())
}

// gateRedirect sends the caller to a safe landing page when a step's
// entry conditions are not met. The draft survives: an out-of-order
// submission (stale tab, browser back) must not destroy the journey.
func (h *JourneyHandler) gateRedirect(w http.ResponseWriter, _ *http.Request, draft *journey.Draft) {
	next, err := journey.Next(draft.Mode, "", journey.EventGateFailed)
	if err == nil && next == journey.StepBookingView && draft.BookingID != nil {
		redirect(w, fmt.Sprintf("/bookings/%d", *draft.BookingID))
		return
	}
	redirect(w, "/")
}

// amendabilityRedirect handles a draft whose booking can no longer be
// changed: the journey is dead, so the draft is discarded before the
// caller lands back on the booking view.
func (h *JourneyHandler) amendabilityRedirect(w http.ResponseWriter, r *http.Request, draft *journey.Draft) {
	if sessionID, ok := session.SessionIDFromContext(r.Context()); ok {
		if err := h.drafts.Clear(r.Context(), sessionID, draft.JourneyID); err != nil {
			h.logger.Warn("failed to clear unamendable draft", "journey_id", draft.JourneyID, "error", err)
		}
	}
	h.gateRedirect(w, r, draft)
}

func roomsByRole(rooms map[appointment.Role][]bookingapi.Room) map[string][]bookingapi.Room {
	if len(rooms) == 0 {
		return nil
	}
	out := make(map[string][]bookingapi.Room, len(rooms))
	for role, list := range rooms {
		out[string(role)] = list
	}
	return out
}
