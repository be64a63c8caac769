package checkinService

import (
	"time"

	"HotelGate/internal/api/checkin"
	"HotelGate/internal/entity"
)

// CheckWindow is inclusive at both ends.
func CheckWindow(now, checkinAt, checkoutAt time.Time) checkin.WindowResult {
	if now.Before(checkinAt) {
		return checkin.WindowTooEarly
	}
	if now.After(checkoutAt) {
		return checkin.WindowTooLate
	}
	return checkin.WindowOk
}

// bookingWindow applies CheckWindow to a booking and reports the boundary that
// was crossed. Bookings without both dates pass; the server re-validates.
func bookingWindow(now time.Time, booking *entity.BookingRecord) (checkin.WindowResult, *time.Time) {
	if booking == nil || booking.CheckinDate == nil || booking.CheckoutDate == nil {
		return checkin.WindowOk, nil
	}

	switch result := CheckWindow(now, *booking.CheckinDate, *booking.CheckoutDate); result {
	case checkin.WindowTooEarly:
		boundary := *booking.CheckinDate
		return result, &boundary
	case checkin.WindowTooLate:
		boundary := *booking.CheckoutDate
		return result, &boundary
	default:
		return result, nil
	}
}
