package checkinService

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/fields"
	"github.com/sirupsen/logrus"
)

var submitPaths = map[entity.FlowMode]string{
	entity.ModeCheckin:  "/checkin/face-verify",
	entity.ModeOpenDoor: "/doors/open",
}

var (
	codeKeys     = []string{"code", "responseCode", "response_code"}
	messageKeys  = []string{"message", "msg", "error", "errorMessage", "error_message"}
	matchKeys    = []string{"match", "matched", "isMatch", "is_match"}
	roomCodeKeys = []string{"roomCode", "room_code", "room.code", "roomNumber", "room_number"}
	roomKeyKeys  = []string{"roomKey", "room_key", "key", "accessKey", "access_key", "keyCode", "key_code"}
)

var reasonByCode = map[string]entity.DenialReason{
	"NO_MATCH":          entity.DenialNoMatch,
	"FACE_MISMATCH":     entity.DenialNoMatch,
	"FACE_NOT_MATCH":    entity.DenialNoMatch,
	"OUT_OF_WINDOW":     entity.DenialOutOfWindow,
	"OUTSIDE_WINDOW":    entity.DenialOutOfWindow,
	"TOO_EARLY":         entity.DenialOutOfWindow,
	"TOO_LATE":          entity.DenialOutOfWindow,
	"BOOKING_NOT_FOUND": entity.DenialBookingNotFound,
}

type verifier struct {
	backend      backend.IBackend
	successCodes []string
	log          *logrus.Logger
}

func newVerifier(b backend.IBackend, successCodes []string, log *logrus.Logger) *verifier {
	return &verifier{backend: b, successCodes: successCodes, log: log}
}

func (v *verifier) Verify(ctx context.Context, attempt entity.VerificationAttempt, booking *entity.BookingRecord) entity.AccessOutcome {
	path, ok := submitPaths[attempt.Mode]
	if !ok {
		path = submitPaths[entity.ModeCheckin]
	}

	subjectID := attempt.Reference.SubjectID
	if subjectID == "" && booking != nil {
		subjectID = booking.SubjectID
	}

	resp, err := v.backend.SubmitVerification(ctx, backend.VerificationRequest{
		Path:        path,
		BookingID:   attempt.Reference.BookingID,
		SubjectID:   subjectID,
		Image:       attempt.Image,
		ImageName:   attempt.AttemptID + ".jpg",
		IsReference: attempt.IsReference,
	})

	var (
		status int
		body   []byte
	)
	if resp != nil {
		status, body = resp.Status, resp.Body
	}

	outcome := ClassifySubmission(status, body, err, v.successCodes)
	if outcome.Kind == entity.OutcomeGranted && outcome.RoomCode == "" && booking != nil {
		outcome.RoomCode = booking.RoomCode
	}

	v.log.WithFields(logrus.Fields{
		"request_id":  contextPkg.GetRequestID(ctx),
		"attempt_id":  attempt.AttemptID,
		"booking_id":  attempt.Reference.BookingID,
		"http_status": status,
		"outcome":     outcome.Kind,
		"reason":      outcome.Reason,
		"server_code": outcome.ServerCode,
	}).Info("Verification submitted")

	return outcome
}

// ClassifySubmission maps a verification reply onto an outcome. Transport
// failures and unreadable replies are TransportError; a reply that carries a
// domain verdict is Denied unless the code is a success code and the match
// flag, when present, is true.
//
// A non-2xx reply is only a verdict when it names a non-numeric domain code.
// Gateway and framework error bodies ({"status":503}, {"message":"Unauthorized"})
// leave the outcome unknown.
func ClassifySubmission(status int, body []byte, err error, successCodes []string) entity.AccessOutcome {
	if err != nil {
		return entity.TransportError(err.Error())
	}

	doc := fields.Parse(body)
	code, hasCode := resultCode(doc)
	message, _ := doc.String(messageKeys...)

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		if doc.IsObject() && hasCode && !isNumeric(code) && !isSuccessCode(code, successCodes) {
			return denial(code, message)
		}
		if message != "" {
			return entity.TransportError(fmt.Sprintf("server returned status %d: %s", status, message))
		}
		return entity.TransportError(fmt.Sprintf("server returned status %d", status))
	}

	if !doc.IsObject() {
		return entity.TransportError("unreadable verification response")
	}
	if !hasCode {
		return entity.TransportError("verification response has no result code")
	}
	if !isSuccessCode(code, successCodes) {
		return denial(code, message)
	}

	data, ok := doc.Sub("data")
	if !ok {
		data = doc
	}

	if match, ok := lookupBool(data, doc, matchKeys); ok && !match {
		outcome := entity.Denied(entity.DenialNoMatch, message)
		outcome.ServerCode = code
		return outcome
	}

	roomCode := lookupString(data, doc, roomCodeKeys)
	roomKey := lookupString(data, doc, roomKeyKeys)

	return entity.Granted(roomKey, roomCode)
}

// resultCode reads the envelope's result code. A bare "status" counts only
// when it is not a number, since frameworks echo the HTTP status there.
func resultCode(doc fields.Doc) (string, bool) {
	if code, ok := doc.String(codeKeys...); ok {
		return code, true
	}
	if code, ok := doc.String("status"); ok && !isNumeric(code) {
		return code, true
	}
	return "", false
}

func isNumeric(code string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(code), 64)
	return err == nil
}

func denial(code, message string) entity.AccessOutcome {
	reason, ok := reasonByCode[strings.ToUpper(code)]
	if !ok {
		reason = entity.DenialServerRejected
	}
	if message == "" {
		message = code
	}

	outcome := entity.Denied(reason, message)
	outcome.ServerCode = code
	return outcome
}

func isSuccessCode(code string, successCodes []string) bool {
	for _, c := range successCodes {
		if strings.EqualFold(strings.TrimSpace(code), c) {
			return true
		}
	}
	return false
}

func lookupBool(primary, fallback fields.Doc, keys []string) (bool, bool) {
	if v, ok := primary.Bool(keys...); ok {
		return v, true
	}
	return fallback.Bool(keys...)
}

func lookupString(primary, fallback fields.Doc, keys []string) string {
	if v, ok := primary.String(keys...); ok {
		return v
	}
	v, _ := fallback.String(keys...)
	return v
}
