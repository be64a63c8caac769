package checkout

import (
	"HotelGate/pkg/response"
	"net/http"
)

var (
	ErrEmptyOrderID     = response.NewError(http.StatusBadRequest, "EMPTY_ORDER_ID", "order id is required")
	ErrPaymentNotFound  = response.NewError(http.StatusNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrPaymentFailed    = response.NewError(http.StatusPaymentRequired, "PAYMENT_FAILED", "payment failed")
	ErrPaymentTimedOut  = response.NewError(http.StatusGatewayTimeout, "PAYMENT_TIMED_OUT", "payment not confirmed in time")
	ErrCheckoutRejected = response.NewError(http.StatusBadGateway, "CHECKOUT_REJECTED", "booking service rejected checkout")
)
