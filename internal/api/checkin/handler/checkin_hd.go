package checkinHandler

import (
	"bytes"
	"context"
	"time"

	"HotelGate/internal/api/checkin"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/handlerUtil"
	"HotelGate/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// DecodeQR reads a QR code from an uploaded image, either a multipart
// "image" file or a JSON image_base64 body, and decodes its token.
func (h *CheckinHandler) DecodeQR(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	var image []byte
	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing QR file upload")

		image, err = h.utils.ReadImageFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image_file")
		}
	} else {
		var req checkin.DecodeImageRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		image, err = h.utils.DecodeBase64Image(req.ImageBase64)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_base64_image")
		}
	}

	res, err := h.checkinService.DecodeQRImage(bytes.NewReader(image))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_qr_image")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"booking_id": res.Reference.BookingID,
	}).Info("QR image decoded")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
}

// Resolve looks a booking up from a token and reports its stay window.
func (h *CheckinHandler) Resolve(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req checkin.ResolveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	res, err := h.checkinService.Preview(c, req.Token)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "preview_booking")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
