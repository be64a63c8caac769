package access

import (
	"HotelGate/pkg/response"
	"net/http"
)

var (
	ErrInvalidBookingID = response.NewError(http.StatusBadRequest, "INVALID_BOOKING_ID", "invalid booking id")
	ErrInvalidLimit     = response.NewError(http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 200")
	ErrJournalWrite     = response.NewError(http.StatusInternalServerError, "JOURNAL_WRITE_FAILED", "failed to journal access event")
	ErrJournalRead      = response.NewError(http.StatusInternalServerError, "JOURNAL_READ_FAILED", "failed to read access journal")
)
