package checkinService

import (
	"fmt"
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
)

const boundaryLayout = "02 Jan 2006 15:04"

var deniedMessages = map[entity.DenialReason]string{
	entity.DenialInvalidToken:    "The scanned code is not a valid booking pass.",
	entity.DenialBookingNotFound: "No booking matches the scanned code.",
	entity.DenialMissingSubject:  "The booking has no guest identity to verify against.",
	entity.DenialNetworkError:    "The booking service could not be reached.",
	entity.DenialOutOfWindow:     "The booking is outside its stay window.",
	entity.DenialNoMatch:         "The face does not match the guest on the booking.",
	entity.DenialServerRejected:  "The request was rejected.",
}

// Present renders an outcome for the operator. A granted panel cannot be
// dismissed until completion is acknowledged.
func Present(mode entity.FlowMode, outcome entity.AccessOutcome) entity.OutcomePanel {
	switch outcome.Kind {
	case entity.OutcomeGranted:
		title := "Check-in complete"
		message := "Room key issued."
		if mode == entity.ModeOpenDoor {
			title = "Door unlocked"
			message = "Access granted."
		}
		if outcome.RoomCode != "" {
			message = fmt.Sprintf("%s Room %s.", message, outcome.RoomCode)
		}
		return entity.OutcomePanel{
			Kind:        outcome.Kind,
			Title:       title,
			Message:     message,
			RoomCode:    outcome.RoomCode,
			RoomKey:     outcome.RoomKey,
			Dismissible: false,
			Retryable:   false,
			Actions:     []entity.PanelAction{entity.ActionComplete},
		}

	case entity.OutcomeDenied:
		return entity.OutcomePanel{
			Kind:        outcome.Kind,
			Title:       "Access denied",
			Message:     deniedMessage(outcome),
			Dismissible: true,
			Retryable:   outcome.Reason != entity.DenialOutOfWindow,
			Actions:     []entity.PanelAction{entity.ActionRetry},
		}

	default:
		message := "Unknown outcome, safe to retry."
		if outcome.Message != "" {
			message = fmt.Sprintf("Unknown outcome, safe to retry (%s).", outcome.Message)
		}
		return entity.OutcomePanel{
			Kind:        entity.OutcomeTransportError,
			Title:       "Connection problem",
			Message:     message,
			Dismissible: true,
			Retryable:   true,
			Actions:     []entity.PanelAction{entity.ActionRetry},
		}
	}
}

func deniedMessage(outcome entity.AccessOutcome) string {
	if outcome.Reason == entity.DenialOutOfWindow && outcome.Boundary != nil {
		return windowMessage(outcome.Message, *outcome.Boundary)
	}

	base, ok := deniedMessages[outcome.Reason]
	if !ok {
		base = deniedMessages[entity.DenialServerRejected]
	}
	if outcome.Message != "" && outcome.Message != base {
		return fmt.Sprintf("%s %s", base, outcome.Message)
	}
	return base
}

func windowMessage(result string, boundary time.Time) string {
	if result == string(checkin.WindowTooEarly) {
		return fmt.Sprintf("Check-in opens at %s.", boundary.Format(boundaryLayout))
	}
	return fmt.Sprintf("The stay ended at %s.", boundary.Format(boundaryLayout))
}
