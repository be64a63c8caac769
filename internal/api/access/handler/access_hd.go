package accessHandler

import (
	"context"
	"strconv"
	"time"

	"HotelGate/internal/api/access"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/handlerUtil"
	"HotelGate/pkg/log"
	"github.com/gofiber/fiber/v2"
)

func (h *AccessHandler) ListRecent(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var query access.ListQuery
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, access.ErrInvalidLimit, ctx.Path(), "parse_query")
	}
	if err := h.validator.Struct(query); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	events, source, err := h.accessService.Recent(c, query.Limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_recent_access_events")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"count":      len(events),
		"source":     source,
	}).Debug("Listed recent access events")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, access.EventsResponse{
		Events: events,
		Source: source,
	})
}

func (h *AccessHandler) ListByBooking(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	bookingID, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return errHandler.Handle(ctx, requestID, access.ErrInvalidBookingID, ctx.Path(), "parse_booking_id")
	}

	var query access.ListQuery
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, access.ErrInvalidLimit, ctx.Path(), "parse_query")
	}
	if err := h.validator.Struct(query); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	events, err := h.accessService.ByBooking(c, bookingID, query.Limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_booking_access_events")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, access.EventsResponse{
		Events: events,
		Source: "database",
	})
}
