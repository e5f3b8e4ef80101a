package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/policy"
	"github.com/justiceops/videolink-booking/internal/session"
)

type startJourneyRequest struct {
	Kind           string `json:"kind"`
	Mode           string `json:"mode"`
	PrisonerNumber string `json:"prisonerNumber"`
}

// StartJourney begins a CREATE or REQUEST journey: it resolves the
// subject, seeds a fresh draft and hands back the first step.
func (h *JourneyHandler) StartJourney(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	var req startJourneyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs []fieldError
	kind := journey.Kind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if kind != journey.KindCourt && kind != journey.KindProbation {
		errs = append(errs, fieldError{Field: "kind", Message: "must be COURT or PROBATION"})
	}
	mode := journey.Mode(strings.ToUpper(strings.TrimSpace(req.Mode)))
	if mode == "" {
		mode = journey.ModeCreate
	}
	if mode != journey.ModeCreate && mode != journey.ModeRequest {
		errs = append(errs, fieldError{Field: "mode", Message: "must be CREATE or REQUEST"})
	}
	if strings.TrimSpace(req.PrisonerNumber) == "" {
		errs = append(errs, fieldError{Field: "prisonerNumber", Message: "is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	prisoner, err := h.subjects.GetByPrisonerNumber(r.Context(), req.PrisonerNumber)
	if err != nil {
		h.logger.Error("prisoner lookup failed", "prisoner_number", req.PrisonerNumber, "error", err)
		writeValidationErrors(w, []fieldError{{Field: "prisonerNumber", Message: "no prisoner found with this number"}})
		return
	}

	draft := journey.NewDraft(kind, mode, journey.Subject{
		PrisonerNumber: prisoner.PrisonerNumber,
		FirstName:      prisoner.FirstName,
		LastName:       prisoner.LastName,
		DateOfBirth:    prisoner.DateOfBirth,
		PrisonCode:     prisoner.PrisonCode,
		PrisonName:     prisoner.PrisonName,
	})
	if err := h.drafts.Put(r.Context(), sessionID, draft); err != nil {
		h.logger.Error("failed to store draft", "journey_id", draft.JourneyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start journey")
		return
	}

	h.respondStep(w, http.StatusCreated, &stepResponse{
		JourneyID: draft.JourneyID,
		Step:      journey.StepDetails,
		Draft:     draft,
	})
}

// StartAmend loads an existing booking into an AMEND draft. Re-entry
// with a live draft for the same booking resumes it rather than
// re-hydrating, so in-flight edits survive a page refresh.
func (h *JourneyHandler) StartAmend(w http.ResponseWriter, r *http.Request) {
	h.startFromBooking(w, r, journey.ModeAmend, journey.StepDetails)
}

// StartCancel loads an existing booking into a CANCEL draft.
func (h *JourneyHandler) StartCancel(w http.ResponseWriter, r *http.Request) {
	h.startFromBooking(w, r, journey.ModeCancel, journey.StepConfirmCancel)
}

func (h *JourneyHandler) startFromBooking(w http.ResponseWriter, r *http.Request, mode journey.Mode, firstStep journey.Step) {
	sessionID, ok := session.SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	journeyID := journey.JourneyIDForBooking(mode, bookingID)
	if draft, err := h.drafts.Get(r.Context(), sessionID, journeyID); err == nil {
		h.respondStep(w, http.StatusOK, &stepResponse{
			JourneyID:  draft.JourneyID,
			Step:       firstStep,
			Draft:      draft,
			WarnPrison: h.warnPrison(draft),
		})
		return
	} else if !errors.Is(err, journey.ErrNoDraft) {
		h.logger.Error("failed to load draft", "journey_id", journeyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load journey")
		return
	}

	booking, err := h.backend.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.logger.Error("failed to load booking", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	draft, err := journey.HydrateFromBooking(mode, booking, h.loc)
	if err != nil {
		h.logger.Error("failed to hydrate booking", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load booking")
		return
	}

	firstStart, _ := appointment.FirstStart(draft.Segments)
	if !policy.Amendable(draft.StatusAtLoad, firstStart, h.now()) {
		redirect(w, fmt.Sprintf("/bookings/%d", bookingID))
		return
	}

	if err := h.drafts.Put(r.Context(), sessionID, draft); err != nil {
		h.logger.Error("failed to store draft", "journey_id", draft.JourneyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start journey")
		return
	}

	h.respondStep(w, http.StatusCreated, &stepResponse{
		JourneyID:  draft.JourneyID,
		Step:       firstStep,
		Draft:      draft,
		WarnPrison: h.warnPrison(draft),
	})
}

// GetJourney renders the current draft for step pages.
func (h *JourneyHandler) GetJourney(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	h.respondStep(w, http.StatusOK, &stepResponse{
		JourneyID:  draft.JourneyID,
		Draft:      draft,
		WarnPrison: h.warnPrison(draft),
	})
}

// AbandonJourney discards the draft without touching the backend.
func (h *JourneyHandler) AbandonJourney(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	journeyID := chi.URLParam(r, "journeyID")
	if err := h.drafts.Clear(r.Context(), sessionID, journeyID); err != nil {
		h.logger.Error("failed to clear draft", "journey_id", journeyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to abandon journey")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadDraft fetches the session draft for the journey in the URL. A
// missing draft sends the caller back to the start rather than a 404,
// matching how an expired journey should land.
func (h *JourneyHandler) loadDraft(w http.ResponseWriter, r *http.Request) (*journey.Draft, bool) {
	sessionID, ok := session.SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return nil, false
	}
	journeyID := chi.URLParam(r, "journeyID")
	draft, err := h.drafts.Get(r.Context(), sessionID, journeyID)
	if err != nil {
		if errors.Is(err, journey.ErrNoDraft) {
			redirect(w, "/")
			return nil, false
		}
		h.logger.Error("failed to load draft", "journey_id", journeyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load journey")
		return nil, false
	}
	return draft, true
}

func (h *JourneyHandler) warnPrison(d *journey.Draft) bool {
	if h.warnWindow <= 0 || (d.Mode != journey.ModeAmend && d.Mode != journey.ModeCancel) {
		return false
	}
	firstStart, ok := appointment.FirstStart(d.Segments)
	if !ok {
		return false
	}
	return policy.ShouldWarnPrison(firstStart, h.now(), h.warnWindow)
}
