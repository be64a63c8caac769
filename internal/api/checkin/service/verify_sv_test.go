package checkinService

import (
	"errors"
	"net/http"
	"testing"

	"HotelGate/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestClassifySubmission(t *testing.T) {
	success := []string{"SUCCESS", "00", "200"}

	tests := []struct {
		name       string
		status     int
		body       string
		err        error
		wantKind   entity.OutcomeKind
		wantReason entity.DenialReason
		wantRoom   string
		wantKey    string
	}{
		{
			name:     "success with room code",
			status:   http.StatusOK,
			body:     `{"code":"SUCCESS","data":{"roomCode":"R101","roomKey":"K-9"}}`,
			wantKind: entity.OutcomeGranted,
			wantRoom: "R101",
			wantKey:  "K-9",
		},
		{
			name:     "numeric success code at top level",
			status:   http.StatusOK,
			body:     `{"responseCode":"00","room_code":"305"}`,
			wantKind: entity.OutcomeGranted,
			wantRoom: "305",
		},
		{
			name:       "success code but no match",
			status:     http.StatusOK,
			body:       `{"code":"SUCCESS","data":{"match":false}}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialNoMatch,
		},
		{
			name:       "domain no match on 200",
			status:     http.StatusOK,
			body:       `{"code":"FACE_MISMATCH","message":"face does not match"}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialNoMatch,
		},
		{
			name:       "out of window code",
			status:     http.StatusOK,
			body:       `{"code":"TOO_EARLY"}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialOutOfWindow,
		},
		{
			name:       "unknown code is server rejected",
			status:     http.StatusOK,
			body:       `{"code":"ROOM_LOCKED"}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialServerRejected,
		},
		{
			name:       "4xx with structured code",
			status:     http.StatusNotFound,
			body:       `{"code":"BOOKING_NOT_FOUND","message":"no booking"}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialBookingNotFound,
		},
		{
			name:       "4xx with unknown domain code",
			status:     http.StatusForbidden,
			body:       `{"code":"ROOM_BLOCKED","message":"blocked"}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialServerRejected,
		},
		{
			name:     "4xx with message only",
			status:   http.StatusForbidden,
			body:     `{"message":"blocked"}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "5xx framework error body echoing status",
			status:   http.StatusServiceUnavailable,
			body:     `{"status":500,"error":"Internal Server Error","path":"/checkin/face-verify"}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "5xx gateway message",
			status:   http.StatusServiceUnavailable,
			body:     `{"message":"Service Unavailable"}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "401 from auth proxy",
			status:   http.StatusUnauthorized,
			body:     `{"message":"Unauthorized"}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "5xx with numeric code",
			status:   http.StatusInternalServerError,
			body:     `{"code":500,"message":"boom"}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "5xx carrying a success code",
			status:   http.StatusBadGateway,
			body:     `{"code":"SUCCESS"}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:       "5xx with domain code",
			status:     http.StatusInternalServerError,
			body:       `{"code":"FACE_NOT_MATCH"}`,
			wantKind:   entity.OutcomeDenied,
			wantReason: entity.DenialNoMatch,
		},
		{
			name:     "2xx with numeric status only",
			status:   http.StatusOK,
			body:     `{"status":200}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "5xx without body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "2xx without code",
			status:   http.StatusOK,
			body:     `{"data":{"roomCode":"R1"}}`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "2xx non object",
			status:   http.StatusOK,
			body:     `"ok"`,
			wantKind: entity.OutcomeTransportError,
		},
		{
			name:     "network error",
			err:      errors.New("connection reset"),
			wantKind: entity.OutcomeTransportError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySubmission(tt.status, []byte(tt.body), tt.err, success)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantRoom, got.RoomCode)
			assert.Equal(t, tt.wantKey, got.RoomKey)
		})
	}
}

func TestClassifySubmission_CustomSuccessCodes(t *testing.T) {
	got := ClassifySubmission(http.StatusOK, []byte(`{"status":"OK"}`), nil, []string{"ok"})
	assert.Equal(t, entity.OutcomeGranted, got.Kind)

	got = ClassifySubmission(http.StatusOK, []byte(`{"status":"OK"}`), nil, []string{"SUCCESS"})
	assert.Equal(t, entity.OutcomeDenied, got.Kind)
	assert.Equal(t, "OK", got.ServerCode)
}
