package checkin

import (
	"HotelGate/pkg/response"
	"net/http"
)

var (
	ErrEmptyToken          = response.NewError(http.StatusBadRequest, "EMPTY_TOKEN", "token is empty")
	ErrUnrecognizedFormat  = response.NewError(http.StatusBadRequest, "UNRECOGNIZED_FORMAT", "token format not recognized")
	ErrBookingNotFound     = response.NewError(http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrMissingSubject      = response.NewError(http.StatusUnprocessableEntity, "MISSING_SUBJECT", "booking has no guest identity")
	ErrNetwork             = response.NewError(http.StatusBadGateway, "NETWORK_ERROR", "booking service unreachable")
	ErrCameraUnavailable   = response.NewError(http.StatusServiceUnavailable, "CAMERA_UNAVAILABLE", "camera unavailable")
	ErrDetectorUnavailable = response.NewError(http.StatusServiceUnavailable, "DETECTOR_UNAVAILABLE", "face detector unavailable")
	ErrCameraNotReady      = response.NewError(http.StatusServiceUnavailable, "CAMERA_NOT_READY", "camera not ready")
	ErrAcknowledgeRequired = response.NewError(http.StatusConflict, "ACKNOWLEDGE_REQUIRED", "granted result must be acknowledged")
	ErrNotIdle             = response.NewError(http.StatusConflict, "NOT_IDLE", "an attempt is already in progress")
	ErrNoQRCode            = response.NewError(http.StatusBadRequest, "NO_QR_CODE", "no QR code found in image")
	ErrInvalidMessage      = response.NewError(http.StatusBadRequest, "INVALID_MESSAGE", "invalid message")
	ErrSessionClosed       = response.NewError(http.StatusGone, "SESSION_CLOSED", "session closed")
)
