package checkin

import (
	"HotelGate/internal/entity"
	"time"
)

type State string

const (
	StateIdle           State = "IDLE"
	StateScanning       State = "SCANNING"
	StateTokenResolved  State = "TOKEN_RESOLVED"
	StateWindowChecked  State = "WINDOW_CHECKED"
	StateLiveFraming    State = "LIVE_FRAMING"
	StateCapturing      State = "CAPTURING"
	StateSubmitting     State = "SUBMITTING"
	StateGranted        State = "GRANTED"
	StateDenied         State = "DENIED"
	StateTransportError State = "TRANSPORT_ERROR"
)

func (s State) Terminal() bool {
	return s == StateGranted || s == StateDenied || s == StateTransportError
}

type WindowResult string

const (
	WindowOk       WindowResult = "OK"
	WindowTooEarly WindowResult = "TOO_EARLY"
	WindowTooLate  WindowResult = "TOO_LATE"
)

// Snapshot is a read-only view of one workflow instance, pushed to the kiosk
// after every transition.
type Snapshot struct {
	AttemptID      string                   `json:"attempt_id,omitempty"`
	Generation     uint64                   `json:"generation"`
	Mode           entity.FlowMode          `json:"mode"`
	State          State                    `json:"state"`
	ScannerOpen    bool                     `json:"scanner_open"`
	Reference      *entity.BookingReference `json:"reference,omitempty"`
	Booking        *entity.BookingRecord    `json:"booking,omitempty"`
	Assessment     entity.FramingAssessment `json:"assessment"`
	CaptureEnabled bool                     `json:"capture_enabled"`
	CameraError    string                   `json:"camera_error,omitempty"`
	Outcome        *entity.AccessOutcome    `json:"outcome,omitempty"`
	Panel          *entity.OutcomePanel     `json:"panel,omitempty"`
}

type ResolveRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResolveResponse struct {
	Reference entity.BookingReference `json:"reference"`
	Booking   *entity.BookingRecord   `json:"booking"`
	Window    WindowResult            `json:"window"`
	CheckedAt time.Time               `json:"checked_at"`
}

type DecodeResponse struct {
	Token     string                  `json:"token"`
	Reference entity.BookingReference `json:"reference"`
}

// Kiosk session protocol. Text frames carry ClientMessage/ServerMessage JSON,
// binary frames carry camera images.
const (
	MsgOpenScanner = "scanner.open"
	MsgScan        = "scan"
	MsgScanImage   = "scan.image"
	MsgCapture     = "capture"
	MsgCancel      = "cancel"
	MsgRestart     = "restart"
	MsgRetry       = "retry"
	MsgAcknowledge = "acknowledge"
	MsgCameraRetry = "camera.retry"
	MsgCameraState = "camera.state"

	MsgState  = "state"
	MsgCamera = "camera"
	MsgError  = "error"
)

type ClientMessage struct {
	Type        string `json:"type" validate:"required,oneof=scanner.open scan scan.image capture cancel restart retry acknowledge camera.retry camera.state"`
	Token       string `json:"token,omitempty" validate:"required_if=Type scan"`
	ImageBase64 string `json:"image_base64,omitempty" validate:"required_if=Type scan.image"`
	Paused      bool   `json:"paused,omitempty"`
	Ended       bool   `json:"ended,omitempty"`
}

type CameraCommand struct {
	Action  string `json:"action"`
	Purpose string `json:"purpose,omitempty"`
}

type ServerMessage struct {
	Type     string         `json:"type"`
	Snapshot *Snapshot      `json:"snapshot,omitempty"`
	Camera   *CameraCommand `json:"camera,omitempty"`
	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
}

type DecodeImageRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
}
