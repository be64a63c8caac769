package checkinService

import (
	"context"
	"errors"
	"fmt"
	"io"

	"HotelGate/internal/api/checkin"
	contextPkg "HotelGate/pkg/context"
	"HotelGate/pkg/qr"
	"github.com/sirupsen/logrus"
)

func (s *checkinService) DecodeQRImage(r io.Reader) (checkin.DecodeResponse, error) {
	raw, err := qr.DecodeImage(r)
	if err != nil {
		if errors.Is(err, qr.ErrNoCode) || errors.Is(err, qr.ErrInvalidImage) {
			return checkin.DecodeResponse{}, fmt.Errorf("%w: %v", checkin.ErrNoQRCode, err)
		}
		return checkin.DecodeResponse{}, err
	}

	ref, err := DecodeToken(raw)
	if err != nil {
		return checkin.DecodeResponse{}, err
	}

	return checkin.DecodeResponse{
		Token:     raw,
		Reference: ref,
	}, nil
}

// Preview resolves a token and evaluates the stay window without starting a
// workflow. Nothing is acquired or submitted.
func (s *checkinService) Preview(ctx context.Context, token string) (*checkin.ResolveResponse, error) {
	ref, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	booking, err := s.resolver.Resolve(resolveCtx, ref)
	if err != nil {
		return nil, err
	}

	now := s.now()
	window, _ := bookingWindow(now, booking)

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"booking_id": ref.BookingID,
		"window":     window,
	}).Debug("Booking previewed")

	return &checkin.ResolveResponse{
		Reference: ref.WithSubject(booking.SubjectID),
		Booking:   booking,
		Window:    window,
		CheckedAt: now,
	}, nil
}
