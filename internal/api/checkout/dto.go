package checkout

import "HotelGate/internal/entity"

type AwaitRequest struct {
	BookingID int64 `json:"booking_id" validate:"omitempty,gt=0"`
}

type AwaitResponse struct {
	Payment    entity.PaymentStatus `json:"payment"`
	CheckedOut bool                 `json:"checked_out"`
}
