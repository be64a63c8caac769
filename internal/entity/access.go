package entity

import "time"

type FlowMode string

const (
	ModeCheckin  FlowMode = "checkin"
	ModeOpenDoor FlowMode = "open-door"
)

// VerificationAttempt is the payload submitted for one capture.
type VerificationAttempt struct {
	AttemptID   string           `json:"attempt_id"`
	Mode        FlowMode         `json:"mode"`
	Reference   BookingReference `json:"reference"`
	Image       []byte           `json:"-"`
	IsReference bool             `json:"is_reference"`
	Timestamp   time.Time        `json:"timestamp"`
}

type OutcomeKind string

const (
	OutcomeGranted        OutcomeKind = "GRANTED"
	OutcomeDenied         OutcomeKind = "DENIED"
	OutcomeTransportError OutcomeKind = "TRANSPORT_ERROR"
)

type DenialReason string

const (
	DenialInvalidToken    DenialReason = "INVALID_TOKEN"
	DenialBookingNotFound DenialReason = "BOOKING_NOT_FOUND"
	DenialMissingSubject  DenialReason = "MISSING_SUBJECT"
	DenialNetworkError    DenialReason = "NETWORK_ERROR"
	DenialOutOfWindow     DenialReason = "OUT_OF_WINDOW"
	DenialNoMatch         DenialReason = "NO_MATCH"
	DenialServerRejected  DenialReason = "SERVER_REJECTED"
)

// AccessOutcome is the terminal value of one attempt. Only the fields that
// belong to Kind are set.
type AccessOutcome struct {
	Kind       OutcomeKind  `json:"kind"`
	RoomKey    string       `json:"room_key,omitempty"`
	RoomCode   string       `json:"room_code,omitempty"`
	Reason     DenialReason `json:"reason,omitempty"`
	ServerCode string       `json:"server_code,omitempty"`
	Message    string       `json:"message,omitempty"`
	Boundary   *time.Time   `json:"boundary,omitempty"`
}

func Granted(roomKey, roomCode string) AccessOutcome {
	return AccessOutcome{Kind: OutcomeGranted, RoomKey: roomKey, RoomCode: roomCode}
}

func Denied(reason DenialReason, message string) AccessOutcome {
	return AccessOutcome{Kind: OutcomeDenied, Reason: reason, Message: message}
}

func TransportError(message string) AccessOutcome {
	return AccessOutcome{Kind: OutcomeTransportError, Message: message}
}

type PanelAction string

const (
	ActionComplete PanelAction = "complete"
	ActionRetry    PanelAction = "retry"
)

// OutcomePanel is the operator-facing rendering of an AccessOutcome.
type OutcomePanel struct {
	Kind        OutcomeKind   `json:"kind"`
	Title       string        `json:"title"`
	Message     string        `json:"message"`
	RoomCode    string        `json:"room_code,omitempty"`
	RoomKey     string        `json:"room_key,omitempty"`
	Dismissible bool          `json:"dismissible"`
	Retryable   bool          `json:"retryable"`
	Actions     []PanelAction `json:"actions"`
}

// AccessEvent is the journaled form of a terminal outcome. It never carries
// the captured image.
type AccessEvent struct {
	ID         string       `json:"id" db:"id"`
	AttemptID  string       `json:"attempt_id" db:"attempt_id"`
	BookingID  int64        `json:"booking_id" db:"booking_id"`
	SubjectID  string       `json:"subject_id,omitempty" db:"subject_id"`
	Mode       FlowMode     `json:"mode" db:"mode"`
	Outcome    OutcomeKind  `json:"outcome" db:"outcome"`
	Reason     DenialReason `json:"reason,omitempty" db:"reason"`
	Message    string       `json:"message,omitempty" db:"message"`
	RoomCode   string       `json:"room_code,omitempty" db:"room_code"`
	OperatorID string       `json:"operator_id,omitempty" db:"operator_id"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}
