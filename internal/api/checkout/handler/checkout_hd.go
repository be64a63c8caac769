package checkoutHandler

import (
	"context"
	"errors"
	"time"

	"HotelGate/internal/api/checkout"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/handlerUtil"
	"HotelGate/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// AwaitPayment blocks until the order's payment settles. With a booking id
// the booking is checked out once the payment is paid.
func (h *CheckoutHandler) AwaitPayment(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 2*time.Minute)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req checkout.AwaitRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	orderID := ctx.Params("id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"order_id":   orderID,
		"booking_id": req.BookingID,
	}).Info("Awaiting payment")

	res, err := h.checkoutService.Complete(c, req.BookingID, orderID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errHandler.HandleRequestTimeout(ctx)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "await_payment")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
}
