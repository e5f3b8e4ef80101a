package journey

import (
	"errors"
	"fmt"

	"github.com/justiceops/videolink-booking/internal/appointment"
)

// Step identifies one page of the journey.
type Step string

const (
	StepSearch        Step = "search"
	StepDetails       Step = "booking-details"
	StepNotAvailable  Step = "not-available"
	StepSelectRooms   Step = "select-rooms"
	StepNotes         Step = "notes"
	StepCheckAnswers  Step = "check-answers"
	StepConfirmation  Step = "confirmation"
	StepConfirmCancel Step = "confirm-cancel"
	StepCancelled     Step = "cancelled"

	// Redirect targets outside the journey proper.
	StepBookingView Step = "booking-view"
	StepHome        Step = "home"
)

// Event is what a step submission produced.
type Event string

const (
	EventSubmitted   Event = "submitted"
	EventUnavailable Event = "unavailable"
	EventUnchanged   Event = "unchanged"
	EventGateFailed  Event = "gate-failed"
)

// ErrNoTransition is returned for an event the current step cannot produce.
var ErrNoTransition = errors.New("journey: no transition")

// transitions is the full state machine: mode × step × event → next step.
// Normal flow is forward-only; EventUnavailable loops the user back through
// the not-available page, and EventUnchanged is the amend short-circuit
// that skips the availability re-check.
var transitions = map[Mode]map[Step]map[Event]Step{
	ModeCreate: {
		StepSearch:       {EventSubmitted: StepDetails},
		StepDetails:      {EventSubmitted: StepSelectRooms, EventUnavailable: StepNotAvailable},
		StepNotAvailable: {EventSubmitted: StepDetails},
		StepSelectRooms:  {EventSubmitted: StepNotes},
		StepNotes:        {EventSubmitted: StepCheckAnswers},
		StepCheckAnswers: {EventSubmitted: StepConfirmation},
	},
	ModeRequest: {
		// Requested bookings are approved by prison staff later, so no
		// rooms are pre-allocated and the availability step is skipped.
		StepSearch:       {EventSubmitted: StepDetails},
		StepDetails:      {EventSubmitted: StepNotes},
		StepNotes:        {EventSubmitted: StepCheckAnswers},
		StepCheckAnswers: {EventSubmitted: StepConfirmation},
	},
	ModeAmend: {
		StepDetails: {
			EventSubmitted:   StepSelectRooms,
			EventUnavailable: StepNotAvailable,
			EventUnchanged:   StepCheckAnswers,
		},
		StepNotAvailable: {EventSubmitted: StepDetails},
		StepSelectRooms:  {EventSubmitted: StepNotes},
		StepNotes:        {EventSubmitted: StepCheckAnswers},
		StepCheckAnswers: {EventSubmitted: StepConfirmation},
	},
	ModeCancel: {
		StepConfirmCancel: {EventSubmitted: StepCancelled},
	},
}

// Initial returns the first step of a mode's journey.
func Initial(mode Mode) Step {
	switch mode {
	case ModeAmend:
		return StepDetails
	case ModeCancel:
		return StepConfirmCancel
	default:
		return StepSearch
	}
}

// Terminal reports whether a step ends the journey; the draft is cleared
// once it is reached.
func Terminal(step Step) bool {
	return step == StepConfirmation || step == StepCancelled
}

// Next resolves the step that follows the given event. The amendability
// gate failing sends amend/cancel journeys to the booking's read view and
// everything else home, regardless of the current step.
func Next(mode Mode, current Step, event Event) (Step, error) {
	if event == EventGateFailed {
		if mode == ModeAmend || mode == ModeCancel {
			return StepBookingView, nil
		}
		return StepHome, nil
	}
	next, ok := transitions[mode][current][event]
	if !ok {
		return "", fmt.Errorf("%w: mode %s step %s event %s", ErrNoTransition, mode, current, event)
	}
	return next, nil
}

// Gate reports whether the draft is far enough along to enter a step.
// Failing a gate is a silent redirect, never a user-facing error.
func Gate(d *Draft, step Step) bool {
	switch step {
	case StepSearch, StepConfirmCancel:
		return true
	case StepDetails:
		return d.Subject.PrisonerNumber != ""
	case StepSelectRooms, StepNotAvailable, StepNotes:
		_, ok := appointment.Main(d.Segments)
		return ok
	case StepCheckAnswers, StepConfirmation, StepCancelled:
		return d.Complete()
	default:
		return false
	}
}
