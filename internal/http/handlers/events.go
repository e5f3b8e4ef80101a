package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/justiceops/videolink-booking/internal/events"
	"github.com/justiceops/videolink-booking/pkg/logging"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

// EventLister is the read side of the journey event store.
type EventLister interface {
	ListRecent(ctx context.Context, limit int) ([]events.JourneyEvent, error)
	ListByPrisoner(ctx context.Context, prisonerNumber string, limit int) ([]events.JourneyEvent, error)
}

// EventsHandler serves the journey audit feed.
type EventsHandler struct {
	store  EventLister
	logger *logging.Logger
}

// NewEventsHandler creates the audit feed handler.
func NewEventsHandler(store EventLister, logger *logging.Logger) *EventsHandler {
	return &EventsHandler{store: store, logger: logger}
}

// List returns recent journey events, optionally filtered by prisoner
// number via ?prisonerNumber=.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxEventLimit {
			n = maxEventLimit
		}
		limit = n
	}

	var (
		list []events.JourneyEvent
		err  error
	)
	if prisonerNumber := strings.TrimSpace(r.URL.Query().Get("prisonerNumber")); prisonerNumber != "" {
		list, err = h.store.ListByPrisoner(r.Context(), prisonerNumber, limit)
	} else {
		list, err = h.store.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("failed to list journey events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	if list == nil {
		list = []events.JourneyEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}
