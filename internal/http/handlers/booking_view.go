package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justiceops/videolink-booking/internal/appointment"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/policy"
)

// ViewBooking renders an existing booking together with the actions the
// caller may still take on it.
func (h *JourneyHandler) ViewBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.backend.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.logger.Error("failed to load booking", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}

	amendable := false
	if draft, hErr := journey.HydrateFromBooking(journey.ModeAmend, booking, h.loc); hErr == nil {
		if firstStart, ok := appointment.FirstStart(draft.Segments); ok {
			amendable = policy.Amendable(draft.StatusAtLoad, firstStart, h.now())
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"booking":   booking,
		"amendable": amendable,
	})
}
