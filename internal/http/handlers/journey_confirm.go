package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/justiceops/videolink-booking/internal/events"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/session"
)

// Confirm is the terminal step for create, amend and request journeys:
// it builds the backend request, submits it, records the outcome and
// discards the draft.
func (h *JourneyHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if draft.Mode == journey.ModeCancel {
		writeError(w, http.StatusConflict, "cancel journeys confirm via confirm-cancel")
		return
	}
	if !journey.Gate(draft, journey.StepCheckAnswers) {
		h.gateRedirect(w, r, draft)
		return
	}
	if draft.Mode == journey.ModeAmend && !h.stillAmendable(draft) {
		h.amendabilityRedirect(w, r, draft)
		return
	}

	var (
		bookingID *int64
		outcome   events.Outcome
	)
	switch draft.Mode {
	case journey.ModeCreate:
		req, err := h.builder.BuildCreate(draft)
		if err != nil {
			h.logger.Error("failed to build create request", "journey_id", draft.JourneyID, "error", err)
			writeError(w, http.StatusConflict, "journey is not ready to confirm")
			return
		}
		id, err := h.backend.CreateBooking(r.Context(), req)
		if err != nil {
			h.logger.Error("create booking failed", "journey_id", draft.JourneyID, "error", err)
			writeError(w, http.StatusBadGateway, "scheduling backend rejected the booking")
			return
		}
		bookingID = &id
		outcome = events.OutcomeCreated

	case journey.ModeAmend:
		req, err := h.builder.BuildAmend(draft)
		if err != nil {
			h.logger.Error("failed to build amend request", "journey_id", draft.JourneyID, "error", err)
			writeError(w, http.StatusConflict, "journey is not ready to confirm")
			return
		}
		if err := h.backend.AmendBooking(r.Context(), req.BookingID, req); err != nil {
			h.logger.Error("amend booking failed", "journey_id", draft.JourneyID, "error", err)
			writeError(w, http.StatusBadGateway, "scheduling backend rejected the amendment")
			return
		}
		bookingID = draft.BookingID
		outcome = events.OutcomeAmended

	case journey.ModeRequest:
		req, err := h.builder.BuildRequest(draft)
		if err != nil {
			h.logger.Error("failed to build booking request", "journey_id", draft.JourneyID, "error", err)
			writeError(w, http.StatusConflict, "journey is not ready to confirm")
			return
		}
		if err := h.backend.RequestBooking(r.Context(), req); err != nil {
			h.logger.Error("request booking failed", "journey_id", draft.JourneyID, "error", err)
			writeError(w, http.StatusBadGateway, "scheduling backend rejected the request")
			return
		}
		outcome = events.OutcomeRequested
	}

	h.finishJourney(r.Context(), draft, bookingID, outcome)
	h.metrics.ObserveStepLatency(string(journey.StepCheckAnswers), time.Since(started).Seconds())

	h.respondStep(w, http.StatusOK, &stepResponse{
		JourneyID: draft.JourneyID,
		Step:      journey.StepConfirmation,
		BookingID: bookingID,
	})
}

// ConfirmCancel is the terminal step of a cancel journey.
func (h *JourneyHandler) ConfirmCancel(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if draft.Mode != journey.ModeCancel {
		writeError(w, http.StatusConflict, "only cancel journeys may confirm a cancellation")
		return
	}
	if !journey.Gate(draft, journey.StepCancelled) {
		h.gateRedirect(w, r, draft)
		return
	}
	if !h.stillAmendable(draft) {
		h.amendabilityRedirect(w, r, draft)
		return
	}

	if err := h.backend.CancelBooking(r.Context(), *draft.BookingID); err != nil {
		h.logger.Error("cancel booking failed", "journey_id", draft.JourneyID, "error", err)
		writeError(w, http.StatusBadGateway, "scheduling backend rejected the cancellation")
		return
	}

	h.finishJourney(r.Context(), draft, draft.BookingID, events.OutcomeCancelled)

	h.respondStep(w, http.StatusOK, &stepResponse{
		JourneyID: draft.JourneyID,
		Step:      journey.StepCancelled,
		BookingID: draft.BookingID,
	})
}

// finishJourney records the audit event, bumps the outcome counter and
// clears the draft. Failures here are logged, never surfaced: the
// backend mutation already happened.
func (h *JourneyHandler) finishJourney(ctx context.Context, draft *journey.Draft, bookingID *int64, outcome events.Outcome) {
	ev := &events.JourneyEvent{
		JourneyID:      draft.JourneyID,
		BookingID:      bookingID,
		Kind:           string(draft.Kind),
		Mode:           string(draft.Mode),
		Outcome:        outcome,
		PrisonerNumber: draft.Subject.PrisonerNumber,
		PrisonCode:     draft.Subject.PrisonCode,
		AgencyCode:     draft.AgencyCode,
	}
	if h.recorder != nil {
		if err := h.recorder.Record(ctx, ev); err != nil {
			h.logger.Error("failed to record journey event", "journey_id", draft.JourneyID, "error", err)
		}
	}
	h.metrics.ObserveOutcome(string(draft.Kind), string(draft.Mode), string(outcome))

	if sessionID, ok := session.SessionIDFromContext(ctx); ok {
		if err := h.drafts.Clear(ctx, sessionID, draft.JourneyID); err != nil {
			h.logger.Warn("failed to clear confirmed draft", "journey_id", draft.JourneyID, "error", err)
		}
	}

	h.logger.Info("journey completed",
		"journey_id", draft.JourneyID,
		"kind", draft.Kind,
		"mode", draft.Mode,
		"outcome", outcome,
	)
}
