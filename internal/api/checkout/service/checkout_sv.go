package checkoutService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"HotelGate/internal/api/checkout"
	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/fields"
	"HotelGate/pkg/metrics"
	"github.com/sirupsen/logrus"
)

var (
	paymentStatusKeys = []string{"status", "paymentStatus", "payment_status", "transactionStatus", "transaction_status"}
	paymentAmountKeys = []string{"amount", "grossAmount", "gross_amount", "total", "totalAmount"}
	paymentBookingKey = []string{"bookingId", "booking_id", "booking.id"}
)

var paymentStates = map[string]entity.PaymentState{
	"PAID":       entity.PaymentPaid,
	"SUCCESS":    entity.PaymentPaid,
	"SETTLED":    entity.PaymentPaid,
	"SETTLEMENT": entity.PaymentPaid,
	"CAPTURE":    entity.PaymentPaid,
	"FAILED":     entity.PaymentFailed,
	"CANCELLED":  entity.PaymentFailed,
	"CANCELED":   entity.PaymentFailed,
	"EXPIRED":    entity.PaymentFailed,
	"EXPIRE":     entity.PaymentFailed,
	"DENY":       entity.PaymentFailed,
}

// AwaitPayment polls the payment at a fixed interval until it is paid or
// failed, giving up with ErrPaymentTimedOut after MaxAttempts polls.
func (s *checkoutService) AwaitPayment(ctx context.Context, orderID string) (*entity.PaymentStatus, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, checkout.ErrEmptyOrderID
	}

	logger := s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"order_id":   orderID,
	})

	for attempt := 1; attempt <= s.poll.MaxAttempts; attempt++ {
		status, err := s.pollOnce(ctx, orderID)
		switch {
		case errors.Is(err, backend.ErrNotFound):
			logger.Warn("Payment not found")
			return nil, checkout.ErrPaymentNotFound
		case err != nil:
			metrics.PaymentPolls.WithLabelValues("error").Inc()
			logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Payment poll failed")
		default:
			status.Attempts = attempt
			metrics.PaymentPolls.WithLabelValues(string(status.State)).Inc()

			if status.State != entity.PaymentPending {
				logger.WithFields(logrus.Fields{
					"attempt": attempt,
					"state":   status.State,
				}).Info("Payment settled")
				return status, nil
			}
		}

		if attempt == s.poll.MaxAttempts {
			break
		}

		select {
		case <-time.After(s.poll.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	logger.WithField("attempts", s.poll.MaxAttempts).Warn("Payment not confirmed in time")
	return nil, checkout.ErrPaymentTimedOut
}

func (s *checkoutService) Complete(ctx context.Context, bookingID int64, orderID string) (*checkout.AwaitResponse, error) {
	status, err := s.AwaitPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status.State == entity.PaymentFailed {
		return &checkout.AwaitResponse{Payment: *status}, checkout.ErrPaymentFailed
	}

	if bookingID <= 0 {
		bookingID = status.BookingID
	}
	if bookingID <= 0 {
		return &checkout.AwaitResponse{Payment: *status}, nil
	}

	if err := s.backend.CompleteCheckout(ctx, bookingID, orderID); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"booking_id": bookingID,
			"order_id":   orderID,
			"error":      err.Error(),
		}).Error("Failed to complete checkout")
		return nil, fmt.Errorf("%w: %v", checkout.ErrCheckoutRejected, err)
	}

	return &checkout.AwaitResponse{
		Payment:    *status,
		CheckedOut: true,
	}, nil
}

func (s *checkoutService) pollOnce(ctx context.Context, orderID string) (*entity.PaymentStatus, error) {
	raw, err := s.backend.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	doc := fields.Parse(raw).Unwrap("data")
	if !doc.IsObject() {
		return nil, errors.New("unreadable payment response")
	}

	rawStatus, _ := doc.String(paymentStatusKeys...)
	status := &entity.PaymentStatus{
		OrderID:   orderID,
		State:     PaymentStateOf(rawStatus),
		RawStatus: rawStatus,
	}
	if amount, ok := doc.Float64(paymentAmountKeys...); ok {
		status.Amount = amount
	}
	if id, ok := doc.Int64(paymentBookingKey...); ok {
		status.BookingID = id
	}

	return status, nil
}

// PaymentStateOf maps a backend payment status onto paid, failed or pending.
// Unknown statuses are pending.
func PaymentStateOf(raw string) entity.PaymentState {
	if state, ok := paymentStates[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return state
	}
	return entity.PaymentPending
}
