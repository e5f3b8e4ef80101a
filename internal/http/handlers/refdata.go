package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/justiceops/videolink-booking/internal/refdata"
	"github.com/justiceops/videolink-booking/pkg/logging"
)

// RefDataHandler serves the cached reference data the step pages need
// to populate their dropdowns.
type RefDataHandler struct {
	refdata *refdata.Service
	logger  *logging.Logger
}

// NewRefDataHandler creates the reference data handler.
func NewRefDataHandler(svc *refdata.Service, logger *logging.Logger) *RefDataHandler {
	return &RefDataHandler{refdata: svc, logger: logger}
}

// HearingTypes lists the court hearing type codes.
func (h *RefDataHandler) HearingTypes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.refdata.HearingTypes(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch hearing types", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch hearing types")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

// MeetingTypes lists the probation meeting type codes.
func (h *RefDataHandler) MeetingTypes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.refdata.MeetingTypes(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch meeting types", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch meeting types")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

// Rooms lists the video rooms of one prison.
func (h *RefDataHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	prisonCode := chi.URLParam(r, "prisonCode")
	rooms, err := h.refdata.Rooms(r.Context(), prisonCode)
	if err != nil {
		h.logger.Error("failed to fetch rooms", "prison_code", prisonCode, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}
