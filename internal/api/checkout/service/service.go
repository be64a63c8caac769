package checkoutService

import (
	"context"
	"time"

	"HotelGate/internal/api/checkout"
	"HotelGate/internal/entity"
	"HotelGate/pkg/backend"
	"github.com/sirupsen/logrus"
)

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    3 * time.Second,
		MaxAttempts: 20,
	}
}

type ICheckoutService interface {
	AwaitPayment(ctx context.Context, orderID string) (*entity.PaymentStatus, error)
	Complete(ctx context.Context, bookingID int64, orderID string) (*checkout.AwaitResponse, error)
}

type checkoutService struct {
	log     *logrus.Logger
	backend backend.IBackend
	poll    PollConfig
}

func NewCheckoutService(log *logrus.Logger, backend backend.IBackend, poll PollConfig) ICheckoutService {
	defaults := DefaultPollConfig()
	if poll.Interval <= 0 {
		poll.Interval = defaults.Interval
	}
	if poll.MaxAttempts <= 0 {
		poll.MaxAttempts = defaults.MaxAttempts
	}

	return &checkoutService{
		log:     log,
		backend: backend,
		poll:    poll,
	}
}
