package checkinService

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/fields"
	"github.com/sirupsen/logrus"
)

// Candidate keys per logical field, in priority order. The upstream API is
// loosely typed and different endpoints spell the same field differently.
var (
	bookingKeys = struct {
		id, code, subjectID, name, email, phone, roomID, roomCode, checkin, checkout, guests, status []string
	}{
		id:        []string{"id", "bookingId", "booking_id"},
		code:      []string{"code", "bookingCode", "booking_code"},
		subjectID: []string{"userId", "user_id", "user.id", "user.userId", "guestId", "guest_id"},
		name:      []string{"userName", "user_name", "user.fullName", "user.full_name", "user.name", "fullName", "guestName"},
		email:     []string{"userEmail", "user_email", "user.email", "email"},
		phone:     []string{"userPhone", "user_phone", "user.phone", "user.phoneNumber", "user.phone_number", "phone", "phoneNumber"},
		roomID:    []string{"roomId", "room_id", "room.id"},
		roomCode:  []string{"roomCode", "room_code", "room.code", "room.roomCode", "room.room_code", "roomNumber", "room_number"},
		checkin:   []string{"checkinDate", "checkin_date", "checkInDate", "check_in_date", "checkin"},
		checkout:  []string{"checkoutDate", "checkout_date", "checkOutDate", "check_out_date", "checkout"},
		guests:    []string{"numGuests", "num_guests", "numberOfGuests", "guests"},
		status:    []string{"status", "bookingStatus", "booking_status"},
	}

	userKeys = struct {
		name, email, phone []string
	}{
		name:  []string{"fullName", "full_name", "name", "userName", "username"},
		email: []string{"email", "userEmail", "user_email"},
		phone: []string{"phone", "phoneNumber", "phone_number", "userPhone"},
	}

	roomKeys = []string{"code", "roomCode", "room_code", "roomNumber", "room_number", "name"}
)

type bookingResolver struct {
	backend backend.IBackend
	loc     *time.Location
	log     *logrus.Logger
}

func newBookingResolver(b backend.IBackend, loc *time.Location, log *logrus.Logger) *bookingResolver {
	if loc == nil {
		loc = time.Local
	}
	return &bookingResolver{backend: b, loc: loc, log: log}
}

// Resolve fetches the booking and fills contact and room gaps from the user
// and room collaborators. Fields already present are never overwritten.
func (r *bookingResolver) Resolve(ctx context.Context, ref entity.BookingReference) (*entity.BookingRecord, error) {
	logger := r.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"attempt_id": contextPkg.GetAttemptID(ctx),
		"booking_id": ref.BookingID,
	})

	raw, err := r.backend.GetBooking(ctx, ref.BookingID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			logger.Warn("Booking not found")
			return nil, checkin.ErrBookingNotFound
		}
		logger.WithField("error", err.Error()).Error("Failed to fetch booking")
		return nil, fmt.Errorf("%w: %v", checkin.ErrNetwork, err)
	}

	doc := fields.Parse(raw).Unwrap("data")
	if !doc.IsObject() {
		logger.Error("Booking response is not a JSON object")
		return nil, fmt.Errorf("%w: unreadable booking response", checkin.ErrNetwork)
	}

	record := parseBooking(doc, r.loc)
	if record.BookingID == 0 {
		record.BookingID = ref.BookingID
	}

	subjectID := ref.SubjectID
	if subjectID == "" {
		subjectID = record.SubjectID
	}
	if subjectID == "" {
		logger.Warn("Neither token nor booking carries a guest identity")
		return nil, checkin.ErrMissingSubject
	}
	if record.SubjectID == "" {
		record.SubjectID = subjectID
	}

	if record.MissingContact() {
		if err := r.mergeUser(ctx, record, subjectID); err != nil {
			logger.WithField("error", err.Error()).Error("Failed to fetch guest profile")
			return nil, err
		}
	}

	if record.RoomCode == "" && record.RoomID != "" {
		if err := r.mergeRoom(ctx, record); err != nil {
			logger.WithField("error", err.Error()).Error("Failed to fetch room")
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"subject_id": record.SubjectID,
		"room_code":  record.RoomCode,
	}).Debug("Booking resolved")

	return record, nil
}

func (r *bookingResolver) mergeUser(ctx context.Context, record *entity.BookingRecord, subjectID string) error {
	raw, err := r.backend.GetUser(ctx, subjectID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", checkin.ErrNetwork, err)
	}

	doc := fields.Parse(raw).Unwrap("data")
	fillString(&record.SubjectName, doc, userKeys.name...)
	fillString(&record.SubjectEmail, doc, userKeys.email...)
	fillString(&record.SubjectPhone, doc, userKeys.phone...)

	return nil
}

func (r *bookingResolver) mergeRoom(ctx context.Context, record *entity.BookingRecord) error {
	raw, err := r.backend.GetRoom(ctx, record.RoomID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", checkin.ErrNetwork, err)
	}

	fillString(&record.RoomCode, fields.Parse(raw).Unwrap("data"), roomKeys...)

	return nil
}

func parseBooking(doc fields.Doc, loc *time.Location) *entity.BookingRecord {
	record := &entity.BookingRecord{}

	if id, ok := doc.Int64(bookingKeys.id...); ok {
		record.BookingID = id
	}
	fillString(&record.Code, doc, bookingKeys.code...)
	fillString(&record.SubjectID, doc, bookingKeys.subjectID...)
	fillString(&record.SubjectName, doc, bookingKeys.name...)
	fillString(&record.SubjectEmail, doc, bookingKeys.email...)
	fillString(&record.SubjectPhone, doc, bookingKeys.phone...)
	fillString(&record.RoomID, doc, bookingKeys.roomID...)
	fillString(&record.RoomCode, doc, bookingKeys.roomCode...)
	fillString(&record.Status, doc, bookingKeys.status...)

	if n, ok := doc.Int64(bookingKeys.guests...); ok {
		record.NumGuests = int(n)
	}

	if t, _, ok := doc.Time(loc, bookingKeys.checkin...); ok {
		record.CheckinDate = &t
	}

	// A date-only checkout covers the whole day.
	if t, dateOnly, ok := doc.Time(loc, bookingKeys.checkout...); ok {
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		record.CheckoutDate = &t
	}

	return record
}

func fillString(dst *string, doc fields.Doc, candidates ...string) {
	if *dst != "" {
		return
	}
	if v, ok := doc.String(candidates...); ok {
		*dst = v
	}
}
