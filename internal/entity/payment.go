package entity

type PaymentState string

const (
	PaymentPending PaymentState = "PENDING"
	PaymentPaid    PaymentState = "PAID"
	PaymentFailed  PaymentState = "FAILED"
)

type PaymentStatus struct {
	OrderID   string       `json:"order_id"`
	BookingID int64        `json:"booking_id,omitempty"`
	State     PaymentState `json:"state"`
	RawStatus string       `json:"raw_status,omitempty"`
	Amount    float64      `json:"amount,omitempty"`
	Attempts  int          `json:"attempts"`
}
