package accessService

import (
	"context"

	accessRepository "HotelGate/internal/api/access/repository"
	"HotelGate/internal/entity"
	"HotelGate/pkg/redis"
	"github.com/sirupsen/logrus"
)

type IAccessService interface {
	Record(ctx context.Context, event entity.AccessEvent) error
	Recent(ctx context.Context, limit int) ([]entity.AccessEvent, string, error)
	ByBooking(ctx context.Context, bookingID int64, limit int) ([]entity.AccessEvent, error)
}

type accessService struct {
	log        *logrus.Logger
	repository accessRepository.Repository
	feed       redis.IRedis
}

// NewAccessService journals to Postgres and mirrors to a Redis feed. Either
// store may be nil.
func NewAccessService(
	log *logrus.Logger,
	repository accessRepository.Repository,
	feed redis.IRedis,
) IAccessService {
	return &accessService{
		log:        log,
		repository: repository,
		feed:       feed,
	}
}
