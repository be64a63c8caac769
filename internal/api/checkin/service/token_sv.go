package checkinService

import (
	"encoding/base64"
	"strconv"
	"strings"
	"unicode"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
	"HotelGate/pkg/fields"
	jsoniter "github.com/json-iterator/go"
)

var (
	bookingIDKeys = []string{"bookingId", "id", "booking_id"}
	subjectIDKeys = []string{"userId", "user_id"}
)

// DecodeToken turns a scanned or uploaded string into a BookingReference.
// Formats are tried in a fixed order: "bookingId|subjectId", base64 JSON,
// plain JSON, bare digits.
func DecodeToken(raw string) (entity.BookingReference, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return entity.BookingReference{}, checkin.ErrEmptyToken
	}

	if ref, ok := decodePipe(token); ok {
		return ref, nil
	}

	if ref, ok := decodeBase64JSON(token); ok {
		return ref, nil
	}

	if ref, ok := decodeJSON([]byte(token)); ok {
		return ref, nil
	}

	if isDigits(token) {
		if id, err := strconv.ParseInt(token, 10, 64); err == nil {
			return entity.BookingReference{BookingID: id}, nil
		}
	}

	return entity.BookingReference{}, checkin.ErrUnrecognizedFormat
}

func decodePipe(token string) (entity.BookingReference, bool) {
	parts := strings.Split(token, "|")
	if len(parts) != 2 {
		return entity.BookingReference{}, false
	}

	bookingPart := strings.TrimSpace(parts[0])
	subjectPart := strings.TrimSpace(parts[1])
	if bookingPart == "" || subjectPart == "" || !isDigits(bookingPart) {
		return entity.BookingReference{}, false
	}

	id, err := strconv.ParseInt(bookingPart, 10, 64)
	if err != nil {
		return entity.BookingReference{}, false
	}

	return entity.BookingReference{BookingID: id, SubjectID: subjectPart}, true
}

func decodeBase64JSON(token string) (entity.BookingReference, bool) {
	padded, ok := padBase64(token)
	if !ok {
		return entity.BookingReference{}, false
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding} {
		data, err := enc.DecodeString(padded)
		if err != nil {
			continue
		}
		if ref, ok := decodeJSON(data); ok {
			return ref, true
		}
	}

	return entity.BookingReference{}, false
}

// padBase64 strips whitespace and existing padding, then pads to a multiple
// of four. A remainder of one can never be valid base64.
func padBase64(s string) (string, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	compact = strings.TrimRight(compact, "=")

	switch len(compact) % 4 {
	case 0:
		return compact, compact != ""
	case 2:
		return compact + "==", true
	case 3:
		return compact + "=", true
	default:
		return "", false
	}
}

func decodeJSON(data []byte) (entity.BookingReference, bool) {
	if !jsoniter.Valid(data) {
		return entity.BookingReference{}, false
	}

	doc := fields.Parse(data)
	if !doc.IsObject() {
		return entity.BookingReference{}, false
	}

	id, ok := doc.Int64(bookingIDKeys...)
	if !ok || id <= 0 {
		return entity.BookingReference{}, false
	}

	subject, _ := doc.String(subjectIDKeys...)

	return entity.BookingReference{BookingID: id, SubjectID: subject}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
